package resp

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the type byte of a reply.
type Kind byte

// Reply kinds.
const (
	KindStatus  Kind = '+'
	KindError   Kind = '-'
	KindInteger Kind = ':'
	KindBulk    Kind = '$'
	KindNil     Kind = '_'
	KindArray   Kind = '*'
	KindMap     Kind = '%'
	KindSet     Kind = '&'
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindError:
		return "error"
	case KindInteger:
		return "integer"
	case KindBulk:
		return "bulk"
	case KindNil:
		return "nil"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindSet:
		return "set"
	default:
		return fmt.Sprintf("kind(%q)", byte(k))
	}
}

// Value is a decoded or to-be-encoded reply.
//
// Str holds status, error and bulk payloads. Elems holds array and set
// elements, and alternating keys and values for maps.
type Value struct {
	Kind  Kind
	Str   string
	Int   int64
	Elems []Value
}

// Status returns a status reply.
func Status(s string) Value { return Value{Kind: KindStatus, Str: s} }

// Error returns an error reply.
func Error(msg string) Value { return Value{Kind: KindError, Str: msg} }

// Int returns an integer reply.
func Int(n int64) Value { return Value{Kind: KindInteger, Int: n} }

// Bulk returns a bulk string reply.
func Bulk(s string) Value { return Value{Kind: KindBulk, Str: s} }

// Nil returns the nil reply.
func Nil() Value { return Value{Kind: KindNil} }

// OK is the "+OK" status reply.
func OK() Value { return Status("OK") }

// Array returns an array reply.
func Array(elems ...Value) Value { return Value{Kind: KindArray, Elems: elems} }

// BulkArray returns an array of bulk strings.
func BulkArray(items []string) Value {
	return Value{Kind: KindArray, Elems: bulks(items)}
}

// BulkSet returns a set of bulk strings.
func BulkSet(items []string) Value {
	return Value{Kind: KindSet, Elems: bulks(items)}
}

// Map returns a map reply from alternating keys and values.
func Map(pairs ...Value) Value {
	if len(pairs)%2 != 0 {
		panic("resp: Map requires an even number of elements")
	}
	return Value{Kind: KindMap, Elems: pairs}
}

func bulks(items []string) []Value {
	out := make([]Value, len(items))
	for i, s := range items {
		out[i] = Bulk(s)
	}
	return out
}

// IsNil reports whether v is the nil reply.
func (v Value) IsNil() bool { return v.Kind == KindNil }

// Err returns a *ReplyError for error replies and nil otherwise.
func (v Value) Err() error {
	if v.Kind == KindError {
		return &ReplyError{Msg: v.Str}
	}
	return nil
}

// Strings returns the string payloads of an array or set reply.
func (v Value) Strings() []string {
	out := make([]string, 0, len(v.Elems))
	for _, e := range v.Elems {
		out = append(out, e.Text())
	}
	return out
}

// StringMap returns a map reply as key to text.
func (v Value) StringMap() map[string]string {
	out := make(map[string]string, len(v.Elems)/2)
	for i := 0; i+1 < len(v.Elems); i += 2 {
		out[v.Elems[i].Text()] = v.Elems[i+1].Text()
	}
	return out
}

// Text renders scalar replies as plain text.
func (v Value) Text() string {
	switch v.Kind {
	case KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case KindNil:
		return ""
	default:
		return v.Str
	}
}

// WriteValue encodes v.
func WriteValue(w *bufio.Writer, v Value) error {
	switch v.Kind {
	case KindStatus:
		return WriteSimpleString(w, v.Str)
	case KindError:
		return WriteError(w, v.Str)
	case KindInteger:
		return WriteInteger(w, v.Int)
	case KindBulk:
		return WriteBulkString(w, v.Str)
	case KindNil:
		return WriteNullBulk(w)
	case KindArray, KindSet, KindMap:
		n := len(v.Elems)
		if v.Kind == KindMap {
			n /= 2
		}
		if err := writeHeader(w, byte(v.Kind), n); err != nil {
			return err
		}
		for _, e := range v.Elems {
			if err := WriteValue(w, e); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("resp: cannot encode reply kind %v", v.Kind)
	}
}

// WriteSimpleString writes a status line. CR and LF in s become spaces.
func WriteSimpleString(w *bufio.Writer, s string) error {
	_, err := w.WriteString("+" + lineSafe(s) + "\r\n")
	return err
}

// WriteError writes an error line. CR and LF in s become spaces.
func WriteError(w *bufio.Writer, s string) error {
	_, err := w.WriteString("-" + lineSafe(s) + "\r\n")
	return err
}

// lineSafe keeps s on one protocol line.
func lineSafe(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return ' '
		}
		return r
	}, s)
}

// WriteInteger writes an integer reply.
func WriteInteger(w *bufio.Writer, n int64) error {
	_, err := w.WriteString(":" + strconv.FormatInt(n, 10) + "\r\n")
	return err
}

// WriteNullBulk writes the nil reply.
func WriteNullBulk(w *bufio.Writer) error {
	_, err := w.WriteString("$-1\r\n")
	return err
}

// WriteBulkString writes a length-prefixed string.
func WriteBulkString(w *bufio.Writer, s string) error {
	if _, err := w.WriteString("$" + strconv.Itoa(len(s)) + "\r\n"); err != nil {
		return err
	}
	if _, err := w.WriteString(s); err != nil {
		return err
	}
	_, err := w.WriteString("\r\n")
	return err
}

// WriteArrayHeader writes the header of an n-element array.
func WriteArrayHeader(w *bufio.Writer, n int) error {
	return writeHeader(w, '*', n)
}

func writeHeader(w *bufio.Writer, prefix byte, n int) error {
	if err := w.WriteByte(prefix); err != nil {
		return err
	}
	_, err := w.WriteString(strconv.Itoa(n) + "\r\n")
	return err
}

// maxDepth bounds reply nesting.
const maxDepth = 16

// ReadValue reads one reply. An unknown kind byte on an otherwise well
// formed line yields a non-fatal *ProtocolError.
func ReadValue(r *bufio.Reader) (Value, error) {
	return readValue(r, 0)
}

func readValue(r *bufio.Reader, depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, fatalf("reply nesting exceeds %d", maxDepth)
	}

	line, err := readLine(r, MaxInlineLen)
	if err != nil {
		if depth > 0 {
			return Value{}, midFrame(err)
		}
		return Value{}, err
	}
	if line == "" {
		return Value{}, fatalf("empty reply line")
	}

	kind, rest := Kind(line[0]), line[1:]
	switch kind {
	case KindStatus, KindError:
		return Value{Kind: kind, Str: rest}, nil

	case KindInteger:
		n, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return Value{}, localf("invalid integer %q", rest)
		}
		return Int(n), nil

	case KindBulk:
		n, err := strconv.Atoi(rest)
		if err != nil || n < -1 {
			return Value{}, fatalf("invalid bulk length %q", rest)
		}
		if n == -1 {
			return Nil(), nil
		}
		if n > MaxBulkLen {
			return Value{}, limitf(true, "bulk length %d exceeds limit %d", n, MaxBulkLen)
		}
		body, err := readBulkBody(r, n)
		if err != nil {
			return Value{}, midFrame(err)
		}
		return Bulk(string(body)), nil

	case KindArray, KindSet, KindMap:
		n, err := strconv.Atoi(rest)
		if err != nil || n < -1 {
			return Value{}, fatalf("invalid %v length %q", kind, rest)
		}
		if n == -1 {
			return Nil(), nil
		}
		if n > MaxArrayLen {
			return Value{}, limitf(true, "%v length %d exceeds limit %d", kind, n, MaxArrayLen)
		}
		count := n
		if kind == KindMap {
			count = 2 * n
		}
		elems := make([]Value, 0, min(count, 64))
		for i := 0; i < count; i++ {
			e, err := readValue(r, depth+1)
			if err != nil {
				if !IsFatal(err) {
					return Value{}, fatalf("element %d: %v", i, err)
				}
				return Value{}, err
			}
			elems = append(elems, e)
		}
		return Value{Kind: kind, Elems: elems}, nil

	default:
		return Value{}, localf("unknown reply kind %q", line[0])
	}
}
