package snapshot

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"

	"github.com/yndnr/dblite-go/pkg/crypto/adaptive"
)

// Encryption errors.
var (
	ErrKeyTooShort       = errors.New("snapshot: encryption key too short (minimum 16 bytes)")
	ErrPassphraseTooWeak = errors.New("snapshot: passphrase too weak (minimum 8 characters)")
	ErrDecryptionFailed  = errors.New("snapshot: decryption failed: wrong key or corrupted data")
)

const (
	MinKeyLength        = 16
	MinPassphraseLength = 8

	// SaltLength is the Argon2 salt length stored in encrypted headers.
	SaltLength = 16

	cipherKeyLen = 32

	// Argon2id cost for passphrases.
	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4

	// hkdfInfo binds raw keys to snapshot encryption.
	hkdfInfo = "dblite-snapshot-v1"
)

// EncryptionConfig configures snapshot encryption.
type EncryptionConfig struct {
	// Key is a raw master key; the cipher key is derived from it with
	// HKDF-SHA256. Ignored when Passphrase is set.
	Key []byte

	// Passphrase is stretched with Argon2id.
	Passphrase []byte

	// Salt is the Argon2 salt. Writers leave it nil to get a fresh one;
	// readers pass the salt recorded in the file header.
	Salt []byte

	// Algorithm is "aes-gcm" or "chacha20-poly1305". Empty picks the
	// CPU's preferred cipher.
	Algorithm string
}

// Validate checks key strength and the algorithm name.
func (cfg EncryptionConfig) Validate() error {
	switch {
	case len(cfg.Passphrase) > 0 && len(cfg.Passphrase) < MinPassphraseLength:
		return ErrPassphraseTooWeak
	case len(cfg.Passphrase) == 0 && len(cfg.Key) > 0 && len(cfg.Key) < MinKeyLength:
		return ErrKeyTooShort
	}

	switch adaptive.CipherType(cfg.Algorithm) {
	case "", adaptive.CipherAESGCM, adaptive.CipherChaCha20:
		return nil
	default:
		return fmt.Errorf("snapshot: unsupported algorithm: %s", cfg.Algorithm)
	}
}

// enabled reports whether any key material is configured.
func (cfg EncryptionConfig) enabled() bool {
	return len(cfg.Key) > 0 || len(cfg.Passphrase) > 0
}

// newCipher builds the cipher for cfg. It returns the Argon2 salt used,
// which the writer records in the header; raw keys use no salt.
func newCipher(cfg EncryptionConfig) (adaptive.Cipher, []byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	key, salt, err := cipherKey(cfg)
	if err != nil {
		return nil, nil, err
	}
	defer ZeroKey(key)

	algo := adaptive.CipherType(cfg.Algorithm)
	if algo == "" {
		algo = adaptive.Preferred()
	}
	c, err := adaptive.NewWithType(key, algo)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: %w", err)
	}
	return c, salt, nil
}

func cipherKey(cfg EncryptionConfig) (key, salt []byte, err error) {
	if len(cfg.Passphrase) > 0 {
		salt = cfg.Salt
		if salt == nil {
			salt = make([]byte, SaltLength)
			if _, err := rand.Read(salt); err != nil {
				return nil, nil, fmt.Errorf("snapshot: generate salt: %w", err)
			}
		}
		if len(salt) != SaltLength {
			return nil, nil, fmt.Errorf("%w: salt length %d", ErrCorrupt, len(salt))
		}
		return argon2.IDKey(cfg.Passphrase, salt, argon2Time, argon2Memory, argon2Threads, cipherKeyLen), salt, nil
	}

	if len(cfg.Key) < MinKeyLength {
		return nil, nil, ErrKeyTooShort
	}
	key = make([]byte, cipherKeyLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, cfg.Key, nil, []byte(hkdfInfo)), key); err != nil {
		return nil, nil, fmt.Errorf("snapshot: derive key: %w", err)
	}
	return key, nil, nil
}

// GenerateKey returns length random bytes for use as a raw key.
func GenerateKey(length int) ([]byte, error) {
	if length < MinKeyLength {
		return nil, ErrKeyTooShort
	}
	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("snapshot: generate key: %w", err)
	}
	return key, nil
}

// ZeroKey overwrites key with zeros.
func ZeroKey(key []byte) {
	clear(key)
}
