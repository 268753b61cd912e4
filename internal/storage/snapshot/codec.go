package snapshot

import (
	"encoding/binary"
	"fmt"
	"slices"
	"time"

	"github.com/yndnr/dblite-go/internal/core/domain"
)

// noExpiry marks an entry without ttl in the entry stream.
const noExpiry int64 = -1

// encodeEntries appends the entry stream for entries to buf. Keys are
// written in sorted order so identical stores produce identical bodies.
func encodeEntries(buf []byte, now time.Time, entries map[string]*domain.Entry) []byte {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	buf = binary.AppendUvarint(buf, uint64(len(keys)))
	for _, key := range keys {
		e := entries[key]

		ttl := noExpiry
		if e.HasExpiry() {
			ttl = e.ExpireAt.Sub(now).Milliseconds()
			if ttl < 1 {
				ttl = 1
			}
		}

		buf = appendString(buf, key)
		buf = append(buf, byte(e.Value.Kind))
		buf = binary.AppendVarint(buf, ttl)

		switch e.Value.Kind {
		case domain.KindString:
			buf = appendString(buf, e.Value.Str)
		case domain.KindList:
			buf = binary.AppendUvarint(buf, uint64(len(e.Value.List)))
			for _, item := range e.Value.List {
				buf = appendString(buf, item)
			}
		case domain.KindHash:
			fields := make([]string, 0, len(e.Value.Hash))
			for f := range e.Value.Hash {
				fields = append(fields, f)
			}
			slices.Sort(fields)
			buf = binary.AppendUvarint(buf, uint64(len(fields)))
			for _, f := range fields {
				buf = appendString(buf, f)
				buf = appendString(buf, e.Value.Hash[f])
			}
		case domain.KindSet:
			members := make([]string, 0, len(e.Value.Set))
			for m := range e.Value.Set {
				members = append(members, m)
			}
			slices.Sort(members)
			buf = binary.AppendUvarint(buf, uint64(len(members)))
			for _, m := range members {
				buf = appendString(buf, m)
			}
		default:
			panic(fmt.Sprintf("snapshot: entry %q has invalid kind %d", key, e.Value.Kind))
		}
	}
	return buf
}

func appendString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

// decoder reads the entry stream with bounds checks on every field.
type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) remaining() int {
	return len(d.buf) - d.pos
}

func (d *decoder) readUvarint() (uint64, error) {
	v, n := binary.Uvarint(d.buf[d.pos:])
	if n <= 0 {
		return 0, fmt.Errorf("%w: bad uvarint at offset %d", ErrCorrupt, d.pos)
	}
	d.pos += n
	return v, nil
}

func (d *decoder) readVarint() (int64, error) {
	v, n := binary.Varint(d.buf[d.pos:])
	if n <= 0 {
		return 0, fmt.Errorf("%w: bad varint at offset %d", ErrCorrupt, d.pos)
	}
	d.pos += n
	return v, nil
}

func (d *decoder) readByte() (byte, error) {
	if d.remaining() < 1 {
		return 0, fmt.Errorf("%w: unexpected end of body", ErrCorrupt)
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) readString() (string, error) {
	n, err := d.readUvarint()
	if err != nil {
		return "", err
	}
	if n > uint64(d.remaining()) {
		return "", fmt.Errorf("%w: string length %d exceeds remaining %d bytes", ErrCorrupt, n, d.remaining())
	}
	s := string(d.buf[d.pos : d.pos+int(n)])
	d.pos += int(n)
	return s, nil
}

// readCount reads a collection length. Each element needs at least minSize
// bytes, which bounds the allocation by the input size.
func (d *decoder) readCount(minSize int) (int, error) {
	n, err := d.readUvarint()
	if err != nil {
		return 0, err
	}
	if n > uint64(d.remaining()/minSize) {
		return 0, fmt.Errorf("%w: count %d exceeds remaining input", ErrCorrupt, n)
	}
	return int(n), nil
}

// readCollectionCount reads the element count of a list, hash or set.
// Empty collections are never stored.
func (d *decoder) readCollectionCount(minSize int) (int, error) {
	n, err := d.readCount(minSize)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: empty collection", ErrCorrupt)
	}
	return n, nil
}

// decodeEntries parses an entry stream and rebuilds entries relative to
// now. elapsed is the wall clock time since the snapshot was taken; any
// entry whose remaining ttl is used up is dropped.
func decodeEntries(body []byte, now time.Time, elapsed time.Duration) (map[string]*domain.Entry, error) {
	d := &decoder{buf: body}

	// Smallest entry: key len, kind, ttl, payload len.
	n, err := d.readCount(4)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]*domain.Entry, n)
	for i := 0; i < n; i++ {
		key, err := d.readString()
		if err != nil {
			return nil, err
		}
		if _, dup := entries[key]; dup {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrCorrupt, key)
		}

		tag, err := d.readByte()
		if err != nil {
			return nil, err
		}
		ttlMillis, err := d.readVarint()
		if err != nil {
			return nil, err
		}
		if ttlMillis < noExpiry {
			return nil, fmt.Errorf("%w: negative ttl for key %q", ErrCorrupt, key)
		}

		value, err := d.readValue(domain.Kind(tag))
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}

		e := &domain.Entry{Value: value}
		if ttlMillis != noExpiry {
			left := time.Duration(ttlMillis)*time.Millisecond - elapsed
			if left <= 0 {
				continue
			}
			e.ExpireAt = now.Add(left)
		}
		entries[key] = e
	}

	if d.remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes in body", ErrCorrupt, d.remaining())
	}
	return entries, nil
}

func (d *decoder) readValue(kind domain.Kind) (domain.Value, error) {
	switch kind {
	case domain.KindString:
		s, err := d.readString()
		if err != nil {
			return domain.Value{}, err
		}
		return domain.NewString(s), nil

	case domain.KindList:
		n, err := d.readCollectionCount(1)
		if err != nil {
			return domain.Value{}, err
		}
		v := domain.NewList()
		v.List = make([]string, 0, n)
		for i := 0; i < n; i++ {
			s, err := d.readString()
			if err != nil {
				return domain.Value{}, err
			}
			v.List = append(v.List, s)
		}
		return v, nil

	case domain.KindHash:
		n, err := d.readCollectionCount(2)
		if err != nil {
			return domain.Value{}, err
		}
		v := domain.NewHash()
		for i := 0; i < n; i++ {
			f, err := d.readString()
			if err != nil {
				return domain.Value{}, err
			}
			val, err := d.readString()
			if err != nil {
				return domain.Value{}, err
			}
			v.Hash[f] = val
		}
		return v, nil

	case domain.KindSet:
		n, err := d.readCollectionCount(1)
		if err != nil {
			return domain.Value{}, err
		}
		v := domain.NewSet()
		for i := 0; i < n; i++ {
			m, err := d.readString()
			if err != nil {
				return domain.Value{}, err
			}
			v.Set[m] = struct{}{}
		}
		return v, nil
	}

	return domain.Value{}, fmt.Errorf("%w: unknown kind tag %d", ErrCorrupt, kind)
}
