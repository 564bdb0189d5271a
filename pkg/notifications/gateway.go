package notifications

import (
	"context"
	"errors"
	"fmt"
)

// PushPayload is the provider-agnostic push message shape handed to the
// gateway. Rendering and localization happen upstream; data values are plain
// strings because provider payloads are string maps on the wire.
type PushPayload struct {
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Icon        string            `json:"icon,omitempty"`
	Image       string            `json:"image,omitempty"`
	ClickAction string            `json:"click_action,omitempty"`
	Data        map[string]string `json:"data,omitempty"`
}

// BatchResult is the gateway's own aggregate for a multicast call.
type BatchResult struct {
	SuccessCount int
	FailureCount int
	// Errors holds the per-token error, nil for successful sends, indexed
	// like the token list passed to SendMulticast.
	Errors []error
}

// Gateway is the external push provider boundary. Implementations wrap a
// concrete provider SDK (FCM, APNs bridge, etc.) and are constructed once at
// process start and injected, never initialized lazily behind a global.
//
// Errors returned by Send must be classifiable: wrap them in a GatewayError
// with a stable code so the dispatcher can distinguish permanent token
// failures (prune) from transient ones (leave the token alone).
type Gateway interface {
	// Send delivers the payload to a single device token.
	Send(ctx context.Context, token string, payload PushPayload) (messageID string, err error)

	// SendMulticast delivers the payload to many tokens in one provider call.
	SendMulticast(ctx context.Context, tokens []string, payload PushPayload) (BatchResult, error)

	// SendToTopic delivers the payload to every device subscribed to a topic.
	SendToTopic(ctx context.Context, topic string, payload PushPayload) (messageID string, err error)

	// ValidateToken reports whether the provider still considers the token
	// deliverable.
	ValidateToken(ctx context.Context, token string) bool

	// SubscribeToTopic subscribes the tokens to a topic.
	SubscribeToTopic(ctx context.Context, tokens []string, topic string) error

	// UnsubscribeFromTopic unsubscribes the tokens from a topic.
	UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) error
}

// Stable gateway error codes. Providers map their SDK errors onto these.
const (
	// ErrCodeTokenNotRegistered: the device uninstalled the app or the token
	// was rotated. Permanent; the token must be pruned.
	ErrCodeTokenNotRegistered = "registration-token-not-registered"

	// ErrCodeInvalidToken: the token never was valid. Permanent; prune.
	ErrCodeInvalidToken = "invalid-registration-token"

	// ErrCodeQuotaExceeded: provider-side rate limiting. Transient.
	ErrCodeQuotaExceeded = "quota-exceeded"

	// ErrCodeUnavailable: provider outage or network failure. Transient.
	ErrCodeUnavailable = "unavailable"

	// ErrCodeTimeout: the send attempt hit its deadline. Transient.
	ErrCodeTimeout = "deadline-exceeded"

	// ErrCodeInternal: anything unclassified. Transient, so a provider bug
	// never wipes out a user's registrations.
	ErrCodeInternal = "internal"
)

// GatewayError carries a stable machine-readable code alongside the
// provider's underlying error.
type GatewayError struct {
	Code string
	Err  error
}

func (e *GatewayError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("gateway error: %s", e.Code)
	}
	return fmt.Sprintf("gateway error: %s: %v", e.Code, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewGatewayError wraps a provider error with a stable code.
func NewGatewayError(code string, err error) *GatewayError {
	return &GatewayError{Code: code, Err: err}
}

// ErrorCode extracts the stable code from a gateway error, or
// ErrCodeInternal when the error carries none.
func ErrorCode(err error) string {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrCodeTimeout
	}
	return ErrCodeInternal
}

// IsPermanentTokenError reports whether the error means the token is dead and
// must be pruned. Everything else, timeouts included, is transient and leaves
// the token registered.
func IsPermanentTokenError(err error) bool {
	switch ErrorCode(err) {
	case ErrCodeTokenNotRegistered, ErrCodeInvalidToken:
		return true
	}
	return false
}
