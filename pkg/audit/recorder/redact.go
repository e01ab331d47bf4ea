package recorder

import (
	"net/url"
	"strings"
)

// redactedValue replaces credential material in persisted URLs.
const redactedValue = "REDACTED"

// credentialParams are query parameter names whose values are credential
// material and must never reach storage. Matching is case-insensitive.
var credentialParams = map[string]bool{
	"key":          true,
	"api_key":      true,
	"apikey":       true,
	"api-key":      true,
	"token":        true,
	"access_token": true,
	"auth":         true,
	"secret":       true,
	"password":     true,
}

// RedactURL strips credential material from a URL before it is persisted:
// userinfo is removed and the values of credential-bearing query parameters
// are replaced with REDACTED. When the URL does not parse, everything from
// the first '?' on is dropped so an unparseable query string can never
// smuggle a key into a record.
func RedactURL(raw string) string {
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		if i := strings.Index(raw, "?"); i >= 0 {
			return raw[:i]
		}
		return raw
	}

	u.User = nil

	if u.RawQuery != "" {
		q := u.Query()
		changed := false
		for name := range q {
			if credentialParams[strings.ToLower(name)] {
				q.Set(name, redactedValue)
				changed = true
			}
		}
		if changed {
			u.RawQuery = q.Encode()
		}
	}

	return u.String()
}
