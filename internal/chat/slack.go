package chat

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nickromney-org/runtime-eol-checker/pkg/types"
	"github.com/parnurzeal/gorequest"
)

const defaultTimeout = 10 * time.Second

// Message is the content of one chat notification
type Message struct {
	Intent   types.NotificationIntent
	IssueURL string
	RunID    string
}

// Block is a Slack Block Kit block
type Block struct {
	Type     string  `json:"type"`
	Text     *Text   `json:"text,omitempty"`
	Elements []*Text `json:"elements,omitempty"`
}

// Text is a Slack text object
type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Payload is the body posted to the webhook
type Payload struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks"`
}

// SlackNotifier posts messages to a Slack incoming webhook
type SlackNotifier struct {
	webhookURL string
	timeout    time.Duration
}

// NewSlackNotifier creates a notifier; an empty URL disables sending
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{webhookURL: webhookURL, timeout: defaultTimeout}
}

// Enabled reports whether a webhook is configured
func (s *SlackNotifier) Enabled() bool {
	return s.webhookURL != ""
}

// Send posts msg. It returns false without error when no webhook is configured.
func (s *SlackNotifier) Send(ctx context.Context, msg Message) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%w: %w", types.ErrNotificationDeliveryFailed, err)
	}

	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	resp, body, errs := gorequest.New().
		Post(s.webhookURL).
		Type("json").
		Timeout(timeout).
		Send(BuildPayload(msg)).
		End()
	if len(errs) > 0 {
		return false, fmt.Errorf("%w: %w", types.ErrNotificationDeliveryFailed, errs[0])
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: unexpected status code: %d, body: %s", types.ErrNotificationDeliveryFailed, resp.StatusCode, body)
	}
	return true, nil
}

// BuildPayload lays out a greeting, the notification body and a footer
func BuildPayload(msg Message) Payload {
	body := msg.Intent.Body
	if msg.IssueURL != "" {
		body = fmt.Sprintf("*<%s|%s>*\n\n%s", msg.IssueURL, msg.Intent.Title, body)
	} else {
		body = fmt.Sprintf("*%s*\n\n%s", msg.Intent.Title, body)
	}

	blocks := []Block{
		{
			Type: "section",
			Text: &Text{Type: "mrkdwn", Text: "Hello team :wave:"},
		},
		{
			Type: "section",
			Text: &Text{Type: "mrkdwn", Text: body},
		},
	}

	footer := fmt.Sprintf("Category: `%s`", msg.Intent.Category)
	if msg.RunID != "" {
		footer += fmt.Sprintf(" | run %s", msg.RunID)
	}
	blocks = append(blocks, Block{
		Type:     "context",
		Elements: []*Text{{Type: "mrkdwn", Text: footer}},
	})

	return Payload{
		Text:   msg.Intent.Title,
		Blocks: blocks,
	}
}
