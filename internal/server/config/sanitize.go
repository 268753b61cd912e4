package config

import (
	"strings"

	"github.com/yndnr/dblite-go/internal/storage/snapshot"
)

// Sanitize returns a copy of the config with sensitive fields masked.
//
// This is used for logging configuration without exposing secrets.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	if sanitized.Security.EncryptionKey != "" {
		sanitized.Security.EncryptionKey = maskSecret(sanitized.Security.EncryptionKey)
	}

	return &sanitized
}

// maskSecret keeps the raw key prefix so the key type stays visible.
func maskSecret(s string) string {
	prefix := ""
	if strings.HasPrefix(s, snapshot.KeyPrefix) {
		prefix = snapshot.KeyPrefix
		s = s[len(prefix):]
	}
	if len(s) <= 4 {
		return prefix + "****"
	}
	return prefix + s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
