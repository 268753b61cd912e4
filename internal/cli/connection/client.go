package connection

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yndnr/dblite-go/pkg/resp"
)

// DefaultTimeout bounds one request when the context has no deadline.
const DefaultTimeout = 10 * time.Second

// ErrUnexpectedReply is returned when a reply has the wrong kind for the
// command that was sent.
var ErrUnexpectedReply = errors.New("connection: unexpected reply")

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTLS connects over TLS.
func WithTLS(cfg *tls.Config) Option {
	return func(c *Client) { c.tls = cfg }
}

// Client is a connection to a dblite server. It is safe for concurrent
// use; requests are serialized on the single connection.
type Client struct {
	addr    string
	timeout time.Duration
	tls     *tls.Config

	mu   sync.Mutex
	conn net.Conn
	br   *bufio.Reader
	bw   *bufio.Writer
}

// Dial connects to addr. Addresses of the form unix:/path use a unix
// socket; anything else is host:port.
func Dial(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	c := &Client{addr: addr, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}

	network := "tcp"
	target := addr
	if path, ok := strings.CutPrefix(addr, "unix:"); ok {
		network, target = "unix", path
	}

	d := &net.Dialer{Timeout: c.timeout}
	var (
		conn net.Conn
		err  error
	)
	if c.tls != nil {
		conn, err = (&tls.Dialer{NetDialer: d, Config: c.tls}).DialContext(ctx, network, target)
	} else {
		conn, err = d.DialContext(ctx, network, target)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}

	c.conn = conn
	c.br = bufio.NewReader(conn)
	c.bw = bufio.NewWriter(conn)
	return c, nil
}

// Addr returns the address the client was dialed with.
func (c *Client) Addr() string { return c.addr }

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Do sends one command and returns its reply. An error reply is returned
// both as the value and as a *resp.ReplyError.
func (c *Client) Do(ctx context.Context, args ...string) (resp.Value, error) {
	if len(args) == 0 {
		return resp.Value{}, errors.New("connection: empty command")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return resp.Value{}, net.ErrClosed
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return resp.Value{}, err
	}

	if err := resp.WriteCommand(c.bw, args...); err != nil {
		return resp.Value{}, c.broken(err)
	}
	if err := c.bw.Flush(); err != nil {
		return resp.Value{}, c.broken(err)
	}

	v, err := resp.ReadValue(c.br)
	if err != nil {
		if resp.IsFatal(err) {
			return resp.Value{}, c.broken(err)
		}
		return resp.Value{}, err
	}
	return v, v.Err()
}

func (c *Client) closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn == nil
}

// broken closes a desynchronized connection. Caller holds c.mu.
func (c *Client) broken(err error) error {
	_ = c.conn.Close()
	c.conn = nil
	return err
}

func expect(v resp.Value, err error, kinds ...resp.Kind) (resp.Value, error) {
	if err != nil {
		return v, err
	}
	for _, k := range kinds {
		if v.Kind == k {
			return v, nil
		}
	}
	return v, fmt.Errorf("%w: got %s", ErrUnexpectedReply, v.Kind)
}

func (c *Client) status(ctx context.Context, args ...string) error {
	v, err := c.Do(ctx, args...)
	_, err = expect(v, err)
	return err
}

func (c *Client) integer(ctx context.Context, args ...string) (int64, error) {
	v, err := c.Do(ctx, args...)
	v, err = expect(v, err, resp.KindInteger)
	return v.Int, err
}

func (c *Client) flag(ctx context.Context, args ...string) (bool, error) {
	n, err := c.integer(ctx, args...)
	return n == 1, err
}

func (c *Client) bulk(ctx context.Context, args ...string) (string, bool, error) {
	v, err := c.Do(ctx, args...)
	v, err = expect(v, err, resp.KindBulk, resp.KindNil)
	if err != nil || v.IsNil() {
		return "", false, err
	}
	return v.Str, true, nil
}

// Set stores a string value.
func (c *Client) Set(ctx context.Context, key, value string) error {
	return c.status(ctx, "SET", key, value)
}

// Get returns the string at key; ok is false when the key is absent.
func (c *Client) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	return c.bulk(ctx, "GET", key)
}

// Delete removes key and reports whether it existed.
func (c *Client) Delete(ctx context.Context, key string) (bool, error) {
	return c.flag(ctx, "DELETE", key)
}

// Exists reports whether key holds a live value.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	return c.flag(ctx, "EXISTS", key)
}

// LPush prepends values and returns the new list length.
func (c *Client) LPush(ctx context.Context, key string, values ...string) (int64, error) {
	return c.integer(ctx, append([]string{"LPUSH", key}, values...)...)
}

// LPop removes and returns the first list element.
func (c *Client) LPop(ctx context.Context, key string) (string, bool, error) {
	return c.bulk(ctx, "LPOP", key)
}

// HSet sets a hash field and reports whether the field is new.
func (c *Client) HSet(ctx context.Context, key, field, value string) (bool, error) {
	return c.flag(ctx, "HSET", key, field, value)
}

// HGet returns a hash field.
func (c *Client) HGet(ctx context.Context, key, field string) (string, bool, error) {
	return c.bulk(ctx, "HGET", key, field)
}

// SAdd adds members and returns how many were new.
func (c *Client) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	return c.integer(ctx, append([]string{"SADD", key}, members...)...)
}

// SMembers returns the members of a set in server order.
func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	v, err := c.Do(ctx, "SMEMBERS", key)
	v, err = expect(v, err, resp.KindSet, resp.KindArray)
	if err != nil {
		return nil, err
	}
	return v.Strings(), nil
}

// Expire sets a time to live in whole seconds and reports whether the
// key existed.
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.flag(ctx, "EXPIRE", key, strconv.FormatInt(int64(ttl/time.Second), 10))
}

// TTL returns the remaining seconds: -1 without expiry, -2 when absent.
func (c *Client) TTL(ctx context.Context, key string) (int64, error) {
	return c.integer(ctx, "TTL", key)
}

// Type returns the kind of value at key, or "none".
func (c *Client) Type(ctx context.Context, key string) (string, error) {
	v, err := c.Do(ctx, "TYPE", key)
	v, err = expect(v, err, resp.KindStatus, resp.KindBulk)
	return v.Str, err
}

// FlushAll removes every key.
func (c *Client) FlushAll(ctx context.Context) error {
	return c.status(ctx, "FLUSHALL")
}

// Save writes a snapshot file in the server data directory.
func (c *Client) Save(ctx context.Context, name string) error {
	return c.status(ctx, "SAVE", name)
}

// Restore replaces the server contents with a snapshot file.
func (c *Client) Restore(ctx context.Context, name string) error {
	_, err := c.integer(ctx, "RESTORE", name)
	return err
}

// Field is one INFO statistic.
type Field struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Info returns the server statistics in server order.
func (c *Client) Info(ctx context.Context) ([]Field, error) {
	v, err := c.Do(ctx, "INFO")
	v, err = expect(v, err, resp.KindMap)
	if err != nil {
		return nil, err
	}
	fields := make([]Field, 0, len(v.Elems)/2)
	for i := 0; i+1 < len(v.Elems); i += 2 {
		fields = append(fields, Field{Name: v.Elems[i].Text(), Value: v.Elems[i+1].Text()})
	}
	return fields, nil
}

// Ping checks the connection. With a message the server echoes it.
func (c *Client) Ping(ctx context.Context, msg ...string) (string, error) {
	v, err := c.Do(ctx, append([]string{"PING"}, msg...)...)
	v, err = expect(v, err, resp.KindStatus, resp.KindBulk)
	return v.Str, err
}

// Shutdown asks the server to stop. The connection is closed afterwards.
func (c *Client) Shutdown(ctx context.Context) error {
	err := c.status(ctx, "SHUTDOWN")
	_ = c.Close()
	return err
}

// Quit ends the session and closes the connection.
func (c *Client) Quit(ctx context.Context) error {
	err := c.status(ctx, "QUIT")
	_ = c.Close()
	return err
}
