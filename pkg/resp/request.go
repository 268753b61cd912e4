package resp

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"
)

// Protocol limits to prevent resource exhaustion.
const (
	// MaxArrayLen limits the number of elements in an array frame.
	MaxArrayLen = 1024 * 1024

	// MaxBulkLen limits the size of a single bulk string (512MB).
	MaxBulkLen = 512 * 1024 * 1024

	// MaxInlineLen limits inline command line length (64KB).
	MaxInlineLen = 64 * 1024

	// maxHeaderLen bounds "*<n>" and "$<n>" header lines.
	maxHeaderLen = 32
)

// Limits bounds the frames accepted by ReadCommandLimits.
type Limits struct {
	ArrayLen  int
	BulkLen   int
	InlineLen int
}

// DefaultLimits are the limits used by ReadCommand.
var DefaultLimits = Limits{
	ArrayLen:  MaxArrayLen,
	BulkLen:   MaxBulkLen,
	InlineLen: MaxInlineLen,
}

// ReadCommand reads one request frame. It returns nil args and a nil
// error for empty frames ("*0", blank inline lines), which callers should
// ignore. io.EOF is returned only at a frame boundary.
func ReadCommand(r *bufio.Reader) ([][]byte, error) {
	return ReadCommandLimits(r, DefaultLimits)
}

// ReadCommandLimits is ReadCommand with explicit limits. Zero fields fall
// back to DefaultLimits.
func ReadCommandLimits(r *bufio.Reader, lim Limits) ([][]byte, error) {
	lim = lim.withDefaults()

	b, err := r.Peek(1)
	if err != nil {
		return nil, err
	}

	switch b[0] {
	case '*':
		return readArrayCommand(r, lim)
	default:
		line, err := readLine(r, lim.InlineLen)
		if err != nil {
			return nil, midFrame(err)
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			return nil, nil
		}
		out := make([][]byte, 0, len(parts))
		for _, p := range parts {
			out = append(out, []byte(p))
		}
		return out, nil
	}
}

func (l Limits) withDefaults() Limits {
	if l.ArrayLen <= 0 {
		l.ArrayLen = MaxArrayLen
	}
	if l.BulkLen <= 0 {
		l.BulkLen = MaxBulkLen
	}
	if l.InlineLen <= 0 {
		l.InlineLen = MaxInlineLen
	}
	return l
}

func readArrayCommand(r *bufio.Reader, lim Limits) ([][]byte, error) {
	line, err := readLine(r, maxHeaderLen)
	if err != nil {
		return nil, midFrame(err)
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil {
		return nil, fatalf("invalid array length %q", line[1:])
	}
	if n <= 0 {
		return nil, nil
	}
	if n > lim.ArrayLen {
		return nil, limitf(true, "array length %d exceeds limit %d", n, lim.ArrayLen)
	}

	// A bad element does not stop the read: the rest of the frame is
	// consumed so the error stays local to this request.
	var frameErr error
	out := make([][]byte, 0, min(n, 64))
	for i := 0; i < n; i++ {
		arg, err := readBulkArg(r, lim.BulkLen)
		if err != nil {
			if IsFatal(err) {
				return nil, midFrame(err)
			}
			if frameErr == nil {
				frameErr = err
			}
			continue
		}
		out = append(out, arg)
	}
	if frameErr != nil {
		return nil, frameErr
	}
	return out, nil
}

func readBulkArg(r *bufio.Reader, maxLen int) ([]byte, error) {
	line, err := readLine(r, maxHeaderLen)
	if err != nil {
		return nil, err
	}
	if line == "" || line[0] != '$' {
		return nil, fatalf("expected bulk string, got %q", line)
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil {
		return nil, fatalf("invalid bulk length %q", line[1:])
	}
	if n == -1 {
		return nil, localf("null bulk string in request")
	}
	if n < 0 {
		return nil, fatalf("invalid bulk length %d", n)
	}
	if n > maxLen {
		if _, err := r.Discard(n + 2); err != nil {
			return nil, err
		}
		return nil, limitf(false, "bulk length %d exceeds limit %d", n, maxLen)
	}

	return readBulkBody(r, n)
}

func readBulkBody(r *bufio.Reader, n int) ([]byte, error) {
	buf := make([]byte, n+2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	if !bytes.HasSuffix(buf, []byte("\r\n")) {
		return nil, fatalf("invalid bulk terminator")
	}
	return buf[:n], nil
}

// readLine reads a CRLF terminated line without the terminator.
func readLine(r *bufio.Reader, maxLen int) (string, error) {
	var buf []byte
	for {
		frag, err := r.ReadSlice('\n')
		if err == nil {
			buf = append(buf, frag...)
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			buf = append(buf, frag...)
			if len(buf) > maxLen+2 {
				return "", limitf(true, "line length exceeds limit %d", maxLen)
			}
			continue
		}
		return "", err
	}

	if len(buf) > maxLen+2 {
		return "", limitf(true, "line length exceeds limit %d", maxLen)
	}
	if len(buf) < 2 || buf[len(buf)-2] != '\r' {
		return "", fatalf("missing CRLF")
	}
	return string(buf[:len(buf)-2]), nil
}

// midFrame turns an EOF inside a frame into io.ErrUnexpectedEOF.
func midFrame(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// WriteCommand writes args as an array of bulk strings.
func WriteCommand(w *bufio.Writer, args ...string) error {
	if err := WriteArrayHeader(w, len(args)); err != nil {
		return err
	}
	for _, a := range args {
		if err := WriteBulkString(w, a); err != nil {
			return err
		}
	}
	return nil
}

// NormalizeCommandName upper-cases an ASCII command name.
func NormalizeCommandName(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	// Uppercase ASCII without allocating for already uppercased tokens.
	if bytes.ContainsAny(b, "abcdefghijklmnopqrstuvwxyz") {
		return strings.ToUpper(string(b))
	}
	return string(b)
}
