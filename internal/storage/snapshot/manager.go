package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yndnr/dblite-go/internal/core/domain"
	"github.com/yndnr/dblite-go/pkg/crypto/adaptive"
)

// Magic bytes identify snapshot files.
var magicBytes = []byte("DBLSNAP\x00")

const (
	checksumSize  = 32
	headerVersion = 1

	// MaxHeaderSize bounds the JSON header.
	MaxHeaderSize = 64 * 1024

	// MaxFileSize bounds the size of a snapshot accepted by Read.
	MaxFileSize = 4 << 30

	fileMode = 0o640
)

type snapshotHeader struct {
	Version    int    `json:"version"`
	CreatedAt  int64  `json:"created_at"`
	EntryCount uint64 `json:"entry_count"`
	Encrypted  bool   `json:"encrypted"`
	Algorithm  string `json:"algorithm,omitempty"`
	Salt       []byte `json:"salt,omitempty"`
}

var (
	// ErrCorrupt is wrapped by every structural validation failure.
	ErrCorrupt = errors.New("snapshot: corrupt stream")

	ErrInvalidMagic       = fmt.Errorf("%w: invalid magic bytes", ErrCorrupt)
	ErrChecksumMismatch   = fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported version", ErrCorrupt)
	ErrTooLarge           = fmt.Errorf("%w: file too large", ErrCorrupt)

	ErrEncryptionRequired = errors.New("snapshot: file is encrypted but no key is configured")
)

// Config configures the snapshot manager.
type Config struct {
	// Encryption enables encrypted snapshots when non-nil. Files written
	// by this manager are encrypted; plain files remain readable.
	Encryption *EncryptionConfig
}

// Manager writes and reads snapshot files.
type Manager struct {
	cfg Config
}

// NewManager validates cfg and creates a manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Encryption != nil {
		if err := cfg.Encryption.Validate(); err != nil {
			return nil, err
		}
		if !cfg.Encryption.enabled() {
			return nil, fmt.Errorf("snapshot: encryption enabled without key or passphrase")
		}
	}
	return &Manager{cfg: cfg}, nil
}

// Encrypted reports whether new snapshots are encrypted.
func (m *Manager) Encrypted() bool {
	return m.cfg.Encryption != nil
}

// Info contains metadata about a snapshot file.
type Info struct {
	Path       string `json:"path"`
	CreatedAt  int64  `json:"created_at"`
	EntryCount int64  `json:"entry_count"`
	Size       int64  `json:"size"`
	Checksum   string `json:"checksum"`
	Encrypted  bool   `json:"encrypted"`
}

// Write encodes entries into a snapshot file at path. now is the instant
// the remaining ttls are computed against. The file is written to a
// temporary sibling and renamed into place, so a failed write never
// clobbers an existing snapshot.
func (m *Manager) Write(path string, now time.Time, entries map[string]*domain.Entry) (*Info, error) {
	data, sum, err := m.encode(now, entries)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("snapshot: create dir: %w", err)
	}

	file, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("snapshot: create temp file: %w", err)
	}
	tempPath := file.Name()
	defer os.Remove(tempPath)

	if _, err := file.Write(data); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: write: %w", err)
	}
	if err := file.Chmod(fileMode); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: chmod: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: sync: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("snapshot: close: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return nil, fmt.Errorf("snapshot: rename: %w", err)
	}

	return &Info{
		Path:       path,
		CreatedAt:  now.UnixMilli(),
		EntryCount: int64(len(entries)),
		Size:       int64(len(data)),
		Checksum:   hex.EncodeToString(sum),
		Encrypted:  m.Encrypted(),
	}, nil
}

func (m *Manager) encode(now time.Time, entries map[string]*domain.Entry) ([]byte, []byte, error) {
	hdr := snapshotHeader{
		Version:    headerVersion,
		CreatedAt:  now.UnixMilli(),
		EntryCount: uint64(len(entries)),
	}

	var c adaptive.Cipher
	if m.cfg.Encryption != nil {
		encCfg := *m.cfg.Encryption
		encCfg.Salt = nil

		var salt []byte
		var err error
		c, salt, err = newCipher(encCfg)
		if err != nil {
			return nil, nil, err
		}
		hdr.Encrypted = true
		hdr.Algorithm = string(c.Type())
		hdr.Salt = salt
	}

	hdrJSON, err := json.Marshal(hdr)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: marshal header: %w", err)
	}

	body := encodeEntries(nil, now, entries)
	if c != nil {
		body, err = c.Encrypt(body, hdrJSON)
		if err != nil {
			return nil, nil, fmt.Errorf("snapshot: encrypt: %w", err)
		}
	}

	buf := bytes.NewBuffer(make([]byte, 0, len(magicBytes)+4+len(hdrJSON)+8+len(body)+checksumSize))
	buf.Write(magicBytes)
	buf.Write(binary.BigEndian.AppendUint32(nil, uint32(len(hdrJSON))))
	buf.Write(hdrJSON)
	buf.Write(binary.BigEndian.AppendUint64(nil, uint64(len(body))))
	buf.Write(body)

	sum := sha256.Sum256(buf.Bytes())
	buf.Write(sum[:])

	return buf.Bytes(), sum[:], nil
}

// Read loads the snapshot at path and rebuilds its entries relative to
// now. Entries whose ttl ran out since the snapshot was taken are dropped.
func (m *Manager) Read(path string, now time.Time) (map[string]*domain.Entry, *Info, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: %w", err)
	}
	if stat.Size() > MaxFileSize {
		return nil, nil, ErrTooLarge
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: read: %w", err)
	}

	entries, info, err := m.Decode(data, now)
	if err != nil {
		return nil, nil, err
	}
	info.Path = path
	return entries, info, nil
}

// Decode parses a complete snapshot image.
func (m *Manager) Decode(data []byte, now time.Time) (map[string]*domain.Entry, *Info, error) {
	if len(data) < len(magicBytes)+4+8+checksumSize {
		return nil, nil, fmt.Errorf("%w: file too small", ErrCorrupt)
	}
	if !bytes.Equal(data[:len(magicBytes)], magicBytes) {
		return nil, nil, ErrInvalidMagic
	}

	payload, trailer := data[:len(data)-checksumSize], data[len(data)-checksumSize:]
	sum := sha256.Sum256(payload)
	if !bytes.Equal(sum[:], trailer) {
		return nil, nil, ErrChecksumMismatch
	}

	rest := payload[len(magicBytes):]
	hdrLen := binary.BigEndian.Uint32(rest[:4])
	rest = rest[4:]
	if hdrLen == 0 || hdrLen > MaxHeaderSize || uint64(hdrLen)+8 > uint64(len(rest)) {
		return nil, nil, fmt.Errorf("%w: bad header length %d", ErrCorrupt, hdrLen)
	}
	hdrJSON := rest[:hdrLen]
	rest = rest[hdrLen:]

	var hdr snapshotHeader
	if err := json.Unmarshal(hdrJSON, &hdr); err != nil {
		return nil, nil, fmt.Errorf("%w: unmarshal header: %v", ErrCorrupt, err)
	}
	if hdr.Version != headerVersion {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, hdr.Version)
	}

	bodyLen := binary.BigEndian.Uint64(rest[:8])
	rest = rest[8:]
	if bodyLen != uint64(len(rest)) {
		return nil, nil, fmt.Errorf("%w: body length %d, have %d bytes", ErrCorrupt, bodyLen, len(rest))
	}
	body := rest

	if hdr.Encrypted {
		if m.cfg.Encryption == nil {
			return nil, nil, ErrEncryptionRequired
		}
		encCfg := *m.cfg.Encryption
		encCfg.Salt = hdr.Salt
		if hdr.Algorithm != "" {
			encCfg.Algorithm = hdr.Algorithm
		}
		c, _, err := newCipher(encCfg)
		if err != nil {
			return nil, nil, err
		}
		plain, err := c.Decrypt(body, hdrJSON)
		if err != nil {
			return nil, nil, ErrDecryptionFailed
		}
		body = plain
	}

	elapsed := now.Sub(time.UnixMilli(hdr.CreatedAt))
	if elapsed < 0 {
		elapsed = 0
	}
	entries, err := decodeEntries(body, now, elapsed)
	if err != nil {
		return nil, nil, err
	}

	return entries, &Info{
		CreatedAt:  hdr.CreatedAt,
		EntryCount: int64(hdr.EntryCount),
		Size:       int64(len(data)),
		Checksum:   hex.EncodeToString(trailer),
		Encrypted:  hdr.Encrypted,
	}, nil
}
