package connection

import (
	"context"
	"sync"

	"github.com/yndnr/dblite-go/pkg/resp"
)

// Manager owns the client used by CLI commands. The connection is dialed
// on first use and reused until Close.
type Manager struct {
	addr string
	opts []Option

	mu      sync.Mutex
	current *Client
}

// NewManager creates a manager for addr.
func NewManager(addr string, opts ...Option) *Manager {
	return &Manager{addr: addr, opts: opts}
}

// Addr returns the server address.
func (m *Manager) Addr() string {
	return m.addr
}

// Client returns the connected client, dialing if needed.
func (m *Manager) Client(ctx context.Context) (*Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && !m.current.closed() {
		return m.current, nil
	}
	c, err := Dial(ctx, m.addr, m.opts...)
	if err != nil {
		return nil, err
	}
	m.current = c
	return c, nil
}

// Connect switches to a different server, closing the current connection.
func (m *Manager) Connect(ctx context.Context, addr string) error {
	c, err := Dial(ctx, addr, m.opts...)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		_ = m.current.Close()
	}
	m.addr, m.current = addr, c
	return nil
}

// IsConnected reports whether a connection is open.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// Close closes the current connection, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	err := m.current.Close()
	m.current = nil
	return err
}

// Do sends one command on the managed connection, dialing if needed.
func (m *Manager) Do(ctx context.Context, args ...string) (resp.Value, error) {
	c, err := m.Client(ctx)
	if err != nil {
		return resp.Value{}, err
	}
	return c.Do(ctx, args...)
}
