package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
)

// CipherType identifies the cipher algorithm.
type CipherType string

const (
	CipherAESGCM   CipherType = "aes-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

var (
	// ErrUnknownCipher is returned for an unsupported CipherType.
	ErrUnknownCipher = errors.New("adaptive: unknown cipher type")

	// ErrCiphertextTooShort is returned when input is shorter than a nonce.
	ErrCiphertextTooShort = errors.New("adaptive: ciphertext too short")
)

// Cipher provides authenticated encryption.
type Cipher interface {
	Type() CipherType
	// Encrypt seals plaintext, binding additionalData, and returns
	// nonce || ciphertext || tag.
	Encrypt(plaintext, additionalData []byte) ([]byte, error)
	Decrypt(ciphertext, additionalData []byte) ([]byte, error)
	// Overhead is the number of bytes Encrypt adds.
	Overhead() int
}

var constructors = map[CipherType]func(key []byte) (cipher.AEAD, error){
	CipherAESGCM: func(key []byte) (cipher.AEAD, error) {
		switch len(key) {
		case 16, 24, 32:
		default:
			return nil, fmt.Errorf("adaptive: aes-gcm key must be 16, 24 or 32 bytes, got %d", len(key))
		}
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	},
	CipherChaCha20: func(key []byte) (cipher.AEAD, error) {
		if len(key) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("adaptive: chacha20-poly1305 key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
		}
		return chacha20poly1305.New(key)
	},
}

// Preferred returns the cipher type best suited to this CPU.
func Preferred() CipherType {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return CipherAESGCM
	default:
		return CipherChaCha20
	}
}

// New creates a cipher of the Preferred type.
func New(key []byte) (Cipher, error) {
	return NewWithType(key, Preferred())
}

// NewWithType creates a cipher of the given type.
func NewWithType(key []byte, t CipherType) (Cipher, error) {
	ctor, ok := constructors[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCipher, t)
	}
	a, err := ctor(key)
	if err != nil {
		return nil, err
	}
	return &aeadCipher{typ: t, aead: a}, nil
}

type aeadCipher struct {
	typ  CipherType
	aead cipher.AEAD
}

func (c *aeadCipher) Type() CipherType { return c.typ }

func (c *aeadCipher) Overhead() int { return c.aead.NonceSize() + c.aead.Overhead() }

func (c *aeadCipher) Encrypt(plaintext, additionalData []byte) ([]byte, error) {
	ns := c.aead.NonceSize()
	out := make([]byte, ns, ns+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(out); err != nil {
		return nil, err
	}
	return c.aead.Seal(out, out[:ns], plaintext, additionalData), nil
}

func (c *aeadCipher) Decrypt(ciphertext, additionalData []byte) ([]byte, error) {
	ns := c.aead.NonceSize()
	if len(ciphertext) < ns+c.aead.Overhead() {
		return nil, ErrCiphertextTooShort
	}
	return c.aead.Open(nil, ciphertext[:ns], ciphertext[ns:], additionalData)
}
