package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind identifies one category in the closed set of normalized failures
// surfaced to callers, independent of which upstream produced them.
type Kind string

const (
	// KindValidation marks bad or missing input detected before any network
	// call, or an upstream 400 on a chat call.
	KindValidation Kind = "VALIDATION_ERROR"

	// KindUnauthorized marks an upstream 401.
	KindUnauthorized Kind = "UNAUTHORIZED"

	// KindRateLimited marks an upstream 429.
	KindRateLimited Kind = "RATE_LIMITED"

	// KindTimeout marks an exceeded connect or read deadline.
	KindTimeout Kind = "TIMEOUT"

	// KindNetwork marks any other transport failure: DNS, connection
	// refused, reset, TLS.
	KindNetwork Kind = "NETWORK_ERROR"

	// KindUpstream marks any other upstream status >= 400.
	KindUpstream Kind = "UPSTREAM_ERROR"

	// KindInternal marks an unexpected local fault.
	KindInternal Kind = "INTERNAL_ERROR"
)

// Error is the single normalized error shape produced by every relay
// operation. Message is always non-empty and suitable for direct display,
// preferring upstream-provided text over the per-kind default.
type Error struct {
	// Kind is the normalized failure category.
	Kind Kind

	// Message is a display-ready description of the failure.
	Message string

	// Status is the upstream HTTP status that produced the error,
	// 0 when no upstream response was involved.
	Status int

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the caller-facing HTTP status for this error: the
// upstream's original status when one was involved, otherwise a default
// per kind (local validation 400, timeout 504, network 502, internal 500).
func (e *Error) HTTPStatus() int {
	if e.Status > 0 {
		return e.Status
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindNetwork, KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewError builds an *Error with the given kind and message, substituting
// the kind's default message when message is empty.
func NewError(kind Kind, message string) *Error {
	if message == "" {
		message = kind.DefaultMessage()
	}
	return &Error{Kind: kind, Message: message}
}

// DefaultMessage returns the non-empty fallback message for a kind, used
// when an upstream supplies no explanatory text.
func (k Kind) DefaultMessage() string {
	switch k {
	case KindValidation:
		return "Invalid request"
	case KindUnauthorized:
		return "Unauthorized"
	case KindRateLimited:
		return "Rate limit exceeded"
	case KindTimeout:
		return "Upstream request timed out"
	case KindNetwork:
		return "Failed to reach upstream"
	case KindUpstream:
		return "Upstream error"
	default:
		return "Internal error"
	}
}

// KindForStatus is the pure status translation table shared by model
// listing and the streaming pre-relay check: 401 UNAUTHORIZED,
// 429 RATE_LIMITED, anything else >= 400 UPSTREAM_ERROR. Callers only
// pass statuses >= 400.
func KindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindUpstream
	}
}

// ChatKindForStatus is the chat-call translation table: identical to
// KindForStatus except that an upstream 400 becomes VALIDATION_ERROR,
// since a 400 on chat completions reports a malformed request body rather
// than an upstream-side fault. Both chat modes share this table.
func ChatKindForStatus(status int) Kind {
	if status == http.StatusBadRequest {
		return KindValidation
	}
	return KindForStatus(status)
}

// upstreamError builds the *Error for an upstream response with the given
// status, carrying it so callers can surface the original code.
func upstreamError(kind Kind, status int, message string) *Error {
	if message == "" {
		message = defaultStatusMessage(kind, status)
	}
	return &Error{Kind: kind, Status: status, Message: message}
}

func defaultStatusMessage(kind Kind, status int) string {
	switch kind {
	case KindUnauthorized, KindRateLimited:
		return kind.DefaultMessage()
	default:
		return fmt.Sprintf("Upstream error (%d)", status)
	}
}

// classifyTransport translates a transport-level failure into TIMEOUT or
// NETWORK_ERROR. Deadline and timeout conditions (dial timeout, response
// header timeout, context deadline) become TIMEOUT; everything else,
// including caller cancellation, is NETWORK_ERROR.
func classifyTransport(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: KindTimeout.DefaultMessage(), Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Message: KindTimeout.DefaultMessage(), Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindNetwork, Message: "Upstream request canceled", Cause: err}
	}
	return &Error{
		Kind:    KindNetwork,
		Message: fmt.Sprintf("Failed to reach upstream: %v", err),
		Cause:   err,
	}
}
