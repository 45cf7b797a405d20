package logging

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Redactor keeps chat content and credentials out of log output.
//
// Attributes whose key names message content (content, prompt, messages,
// response) are replaced by a length marker. Credential keys are masked and
// string values are scrubbed for bearer tokens and API keys.
type Redactor struct {
	patterns []redactPattern
}

type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

var (
	contentKeys = []string{"content", "prompt", "messages", "response", "reply"}

	secretKeys = []string{
		"password", "passwd", "secret", "token",
		"api_key", "apikey", "authorization", "private_key",
	}
)

// NewRedactor creates a Redactor with the built-in patterns.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []redactPattern{
			{regex: regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`), replacement: "Bearer ***"},
			{regex: regexp.MustCompile(`sk-[a-zA-Z0-9_\-]{8,}`), replacement: "sk-***"},
			{regex: regexp.MustCompile(`(?i)(password|passwd|pwd)[:=]\s*[^\s&]+`), replacement: "$1=***"},
		},
	}
}

// RedactString scrubs known credential shapes from value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// RedactAttr returns a redacted copy of a. Groups are walked recursively.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)

	if a.Value.Kind() == slog.KindGroup {
		if matchesAny(key, contentKeys) {
			return slog.String(a.Key, "[redacted]")
		}
		group := a.Value.Group()
		out := make([]any, len(group))
		for i, ga := range group {
			out[i] = r.RedactAttr(ga)
		}
		return slog.Group(a.Key, out...)
	}

	switch {
	case matchesAny(key, contentKeys):
		if isCount(a.Value) {
			return a
		}
		return slog.String(a.Key, contentMarker(a.Value))
	case matchesAny(key, secretKeys):
		return slog.String(a.Key, "***")
	}

	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, r.RedactString(a.Value.String()))
	}
	return a
}

// contentMarker describes a redacted value without revealing it.
func contentMarker(v slog.Value) string {
	v = v.Resolve()
	if v.Kind() == slog.KindString {
		return fmt.Sprintf("[redacted %d chars]", len(v.String()))
	}
	return "[redacted]"
}

// isCount reports numeric values such as ("messages", 3), which are not content.
func isCount(v slog.Value) bool {
	switch v.Kind() {
	case slog.KindInt64, slog.KindUint64, slog.KindBool:
		return true
	}
	return false
}

func matchesAny(key string, candidates []string) bool {
	for _, c := range candidates {
		if key == c || strings.HasSuffix(key, "_"+c) {
			return true
		}
	}
	return false
}
