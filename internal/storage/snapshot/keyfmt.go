package snapshot

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// KeyPrefix marks a configured encryption key as a raw base64url key
// rather than a passphrase.
const KeyPrefix = "dbk_"

// EncodeKey renders a raw key in the dbk_ text form accepted by
// ParseEncryptionKey.
func EncodeKey(key []byte) string {
	return KeyPrefix + base64.RawURLEncoding.EncodeToString(key)
}

// ParseEncryptionKey turns the configured secret into an encryption
// config. Values starting with KeyPrefix are decoded as raw keys; anything
// else is a passphrase. An empty secret disables encryption and returns nil.
func ParseEncryptionKey(secret, algorithm string) (*EncryptionConfig, error) {
	if secret == "" {
		return nil, nil
	}

	cfg := &EncryptionConfig{Algorithm: algorithm}
	if raw, ok := strings.CutPrefix(secret, KeyPrefix); ok {
		key, err := base64.RawURLEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("snapshot: decode %s key: %w", KeyPrefix, err)
		}
		cfg.Key = key
	} else {
		cfg.Passphrase = []byte(secret)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
