package logging

import (
	"fmt"
	"regexp"
	"strings"

	"styx-hq/charon/pkg/config"
)

// Redactor masks credentials in log output. The relay handles caller
// API keys it does not own, so anything that looks like a key, token,
// or credential-bearing URL is masked before it reaches a handler.
type Redactor struct {
	patterns map[string]*redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in redaction pattern names.
const (
	PatternAPIKey        = "api_key"
	PatternBearerToken   = "bearer_token"
	PatternPassword      = "password"
	PatternURLCredential = "url_credential"
)

// NewRedactor creates a new Redactor with default and custom patterns.
// Invalid custom patterns are skipped; config validation reports them
// before a logger is built from file config.
func NewRedactor(customPatterns []config.RedactPattern) *Redactor {
	r := &Redactor{
		patterns: make(map[string]*redactPattern),
	}

	r.addDefaultPatterns()

	for _, p := range customPatterns {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		r.patterns[p.Name] = &redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: p.Replacement,
		}
	}

	return r
}

// addDefaultPatterns adds the built-in credential patterns.
func (r *Redactor) addDefaultPatterns() {
	patterns := map[string]struct {
		regex       string
		replacement string
	}{
		// API keys: sk- style values, or key fields written into
		// message text ("api_key: abc123")
		PatternAPIKey: {
			regex:       `(sk-[a-zA-Z0-9_-]+|api[-_]?key[-_:]\s*[a-zA-Z0-9_-]+)`,
			replacement: "sk-***",
		},

		// Authorization header values
		PatternBearerToken: {
			regex:       `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`,
			replacement: "Bearer ***",
		},

		// Password assignments in message text
		PatternPassword: {
			regex:       `(password|passwd|pwd)[:=]\s*[^\s]+`,
			replacement: "$1: ***",
		},

		// Credential-bearing query parameters in URLs
		PatternURLCredential: {
			regex:       `([?&](?:api[-_]?key|apikey|token|access_token|secret|password|auth)=)[^&\s"]+`,
			replacement: "${1}REDACTED",
		},
	}

	for name, p := range patterns {
		r.patterns[name] = &redactPattern{
			name:        name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		}
	}
}

// RedactString masks credential material in a string value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}

	redacted := value
	for _, pattern := range r.patterns {
		redacted = pattern.regex.ReplaceAllString(redacted, pattern.replacement)
	}

	return redacted
}

// isSensitiveKey checks if a field name indicates credential material.
func (r *Redactor) isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)

	sensitiveKeys := []string{
		"password", "passwd", "pwd",
		"secret", "token", "api_key", "apikey",
		"auth", "authorization",
		"credential",
		"private_key", "privatekey",
	}

	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}

	return false
}

// redactValue masks a value logged under a sensitive key. A short
// prefix survives so operators can tell keys apart.
func (r *Redactor) redactValue(value any) any {
	switch v := value.(type) {
	case string:
		if v == "" {
			return ""
		}
		if len(v) <= 4 {
			return "***"
		}
		return v[:4] + "***"
	case fmt.Stringer:
		return "***"
	default:
		return "***"
	}
}
