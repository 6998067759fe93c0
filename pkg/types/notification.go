package types

// Category classifies a notification and doubles as its issue label
type Category string

const (
	CategoryManifestMismatch  Category = "manifest-version-mismatch"
	CategoryDeprecationNotice Category = "deprecation-notice"
)

// NotificationIntent is what an evaluation wants to tell the maintainers.
// Title is the deduplication key against open issues.
type NotificationIntent struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Category Category `json:"category"`
}

// Labels returns the issue labels for the intent
func (n NotificationIntent) Labels() []string {
	return []string{string(n.Category)}
}

// Issue is an issue on the tracking repository
type Issue struct {
	Number int
	Title  string
	URL    string
	Labels []string
}
