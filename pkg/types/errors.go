package types

import "errors"

// Error kinds shared by the gateways and the evaluation engine
var (
	ErrInvalidVersionFormat       = errors.New("invalid version format")
	ErrFeedUnavailable            = errors.New("eol feed unavailable")
	ErrManifestUnavailable        = errors.New("manifest unavailable")
	ErrTrackerUnavailable         = errors.New("issue tracker unavailable")
	ErrNotificationDeliveryFailed = errors.New("notification delivery failed")
)
