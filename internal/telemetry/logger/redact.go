package logger

import (
	"log/slog"
	"strings"
)

// rawKeyPrefix marks a raw snapshot encryption key in its text form.
const rawKeyPrefix = "dbk_"

const redactedValue = "***REDACTED***"

// sensitiveWords match attribute names case-insensitively by substring.
var sensitiveWords = []string{"password", "passphrase", "secret", "encryption_key", "token", "credential"}

// redact masks raw keys wherever they appear and blanks string values of
// attributes with sensitive names. Groups are walked recursively.
func redact(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		s := a.Value.String()
		if strings.HasPrefix(s, rawKeyPrefix) {
			return slog.String(a.Key, maskRawKey(s))
		}
		if s != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	case slog.KindGroup:
		group := a.Value.Group()
		out := make([]slog.Attr, 0, len(group))
		for _, ga := range group {
			out = append(out, redact(ga))
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// maskRawKey keeps the prefix and three characters at each end of the
// body. Short keys lose the whole body.
func maskRawKey(s string) string {
	body := s[len(rawKeyPrefix):]
	if len(body) <= 6 {
		return rawKeyPrefix + "***"
	}
	return rawKeyPrefix + body[:3] + "..." + body[len(body)-3:]
}

// IsSensitiveKey reports whether an attribute name suggests a secret.
func IsSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, w := range sensitiveWords {
		if strings.Contains(key, w) {
			return true
		}
	}
	return false
}
