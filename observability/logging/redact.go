package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces sensitive values in log output.
const RedactedValue = "[REDACTED]"

var redactionAllowlist = map[string]struct{}{
	"service":    {},
	"env":        {},
	"message":    {},
	"severity":   {},
	"timestamp":  {},
	"error":      {},
	"reason":     {},
	"component":  {},
	"command":    {},
	"program":    {},
	"tx":         {},
	"request_id": {},
}

func isAllowlisted(key string) bool {
	_, ok := redactionAllowlist[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// MaskValue redacts non-empty values.
func MaskValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	return RedactedValue
}

// MaskKey renders key material as its first and last four characters so log
// lines stay correlatable without carrying the full value.
func MaskKey(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) <= 8 {
		return MaskValue(trimmed)
	}
	return trimmed[:4] + "…" + trimmed[len(trimmed)-4:]
}

// MaskField builds a slog attribute whose value is redacted unless key is on
// the allowlist.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || isAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}
