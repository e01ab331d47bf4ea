package relay

import (
	"errors"
	"net/url"
	"strings"
)

// Target identifies one OpenAI-compatible upstream endpoint plus its
// credential. Targets are constructed per call from caller input and are
// never persisted by the relay.
type Target struct {
	// BaseURL is the upstream root, e.g. "https://api.openrouter.ai".
	// Paths like /v1/models are appended to the normalized form.
	BaseURL string

	// APIKey is sent as a bearer credential on every upstream call.
	APIKey string
}

// NormalizeBaseURL validates and canonicalizes an upstream base URL.
// It fails with a VALIDATION_ERROR *Error when the URL is empty or
// whitespace-only, lacks a scheme or host, or names a loopback host
// (localhost, 127.0.0.1, ::1, in any letter case). On success it returns
// the URL with all trailing slashes removed, so the result is stable
// under repeated normalization.
//
// The loopback rejection is a security boundary: without it a caller
// could point the relay at services listening on the relay host itself.
func NormalizeBaseURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", NewError(KindValidation, "Base URL must not be empty")
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", NewError(KindValidation, "Base URL is not a valid URL")
	}
	if u.Scheme == "" || u.Host == "" {
		return "", NewError(KindValidation, "Base URL must include a scheme and host")
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		// Hostname() drops unbracketed IPv6 literals; fall back to the raw
		// host component so ::1 cannot slip through.
		host = strings.ToLower(strings.Trim(u.Host, "[]"))
	}
	if isLoopbackHost(host) {
		return "", NewError(KindValidation, "Base URL must not point at a loopback address")
	}

	return strings.TrimRight(trimmed, "/"), nil
}

func isLoopbackHost(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// prepareTarget runs the pre-network checks shared by every relay
// operation: non-empty credential, then base URL normalization. It
// returns the normalized base URL or the VALIDATION_ERROR describing the
// first failure. No network call happens before this passes.
func prepareTarget(t Target) (string, *Error) {
	if strings.TrimSpace(t.APIKey) == "" {
		return "", NewError(KindValidation, "API key must not be empty")
	}
	base, err := NormalizeBaseURL(t.BaseURL)
	if err != nil {
		var relayErr *Error
		if errors.As(err, &relayErr) {
			return "", relayErr
		}
		return "", NewError(KindValidation, err.Error())
	}
	return base, nil
}
