package respserver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/dblite-go/internal/core/domain"
	"github.com/yndnr/dblite-go/internal/storage"
	"github.com/yndnr/dblite-go/internal/storage/memory"
	"github.com/yndnr/dblite-go/pkg/resp"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestEngine(t *testing.T) (*storage.Engine, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Now()}
	cfg := storage.DefaultConfig(t.TempDir())
	cfg.SweepInterval = 0
	cfg.StoreOptions = []memory.Option{memory.WithClock(clock.Now)}
	engine, err := storage.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine, clock
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testClock) {
	t.Helper()
	engine, clock := newTestEngine(t)
	return NewDispatcher(engine, nil), clock
}

// do runs one command and returns its reply.
func do(t *testing.T, d *Dispatcher, args ...string) resp.Value {
	t.Helper()
	raw := make([][]byte, len(args))
	for i, a := range args {
		raw[i] = []byte(a)
	}
	v, _ := d.Dispatch(context.Background(), raw)
	return v
}

func TestDispatcher_Commands(t *testing.T) {
	d, _ := newTestDispatcher(t)

	steps := []struct {
		args []string
		want resp.Value
	}{
		{[]string{"SET", "k", "v"}, resp.OK()},
		{[]string{"GET", "k"}, resp.Bulk("v")},
		{[]string{"get", "missing"}, resp.Nil()},
		{[]string{"EXISTS", "k"}, resp.Int(1)},
		{[]string{"DELETE", "k"}, resp.Int(1)},
		{[]string{"DELETE", "k"}, resp.Int(0)},
		{[]string{"EXISTS", "k"}, resp.Int(0)},
		{[]string{"GET", "k"}, resp.Nil()},

		{[]string{"LPUSH", "l", "a", "b", "c"}, resp.Int(3)},
		{[]string{"LPOP", "l"}, resp.Bulk("c")},
		{[]string{"LPOP", "l"}, resp.Bulk("b")},
		{[]string{"LPOP", "l"}, resp.Bulk("a")},
		{[]string{"LPOP", "l"}, resp.Nil()},

		{[]string{"HSET", "h", "f", "1"}, resp.Int(1)},
		{[]string{"HSET", "h", "f", "2"}, resp.Int(0)},
		{[]string{"HGET", "h", "f"}, resp.Bulk("2")},
		{[]string{"HGET", "h", "nope"}, resp.Nil()},

		{[]string{"SADD", "s", "x", "y"}, resp.Int(2)},
		{[]string{"SADD", "s", "y", "z"}, resp.Int(1)},
		{[]string{"SMEMBERS", "s"}, resp.BulkSet([]string{"x", "y", "z"})},
		{[]string{"SMEMBERS", "none"}, resp.BulkSet([]string{})},

		{[]string{"TYPE", "s"}, resp.Status("set")},
		{[]string{"TYPE", "none"}, resp.Status("none")},
		{[]string{"PING"}, resp.Status("PONG")},
		{[]string{"ping", "hello"}, resp.Bulk("hello")},
		{[]string{"FLUSHALL"}, resp.OK()},
		{[]string{"EXISTS", "s"}, resp.Int(0)},
	}

	for _, st := range steps {
		got := do(t, d, st.args...)
		assert.Equal(t, st.want, got, "%v", st.args)
	}
}

func TestDispatcher_Errors(t *testing.T) {
	d, _ := newTestDispatcher(t)
	do(t, d, "SET", "str", "v")
	do(t, d, "LPUSH", "list", "a")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown command", []string{"FROB", "x"}, "ERR unknown command 'FROB'"},
		{"arity too few", []string{"SET", "k"}, "ERR wrong number of arguments for 'set' command"},
		{"arity too many", []string{"GET", "a", "b"}, "ERR wrong number of arguments for 'get' command"},
		{"variadic minimum", []string{"LPUSH", "k"}, "ERR wrong number of arguments for 'lpush' command"},
		{"ping extra", []string{"PING", "a", "b"}, "ERR wrong number of arguments for 'ping' command"},
		{"lpush on string", []string{"LPUSH", "str", "x"}, "WRONGTYPE Operation against a key holding the wrong kind of value"},
		{"get on list", []string{"GET", "list"}, "WRONGTYPE Operation against a key holding the wrong kind of value"},
		{"hget on list", []string{"HGET", "list", "f"}, "WRONGTYPE Operation against a key holding the wrong kind of value"},
		{"smembers on string", []string{"SMEMBERS", "str"}, "WRONGTYPE Operation against a key holding the wrong kind of value"},
		{"sadd on list", []string{"SADD", "list", "m"}, "WRONGTYPE Operation against a key holding the wrong kind of value"},
		{"expire not integer", []string{"EXPIRE", "str", "soon"}, "ERR value is not an integer or out of range"},
		{"expire overflow", []string{"EXPIRE", "str", "9223372036854775807"}, "ERR value is not an integer or out of range"},
		{"save escapes data dir", []string{"SAVE", "../x.db"}, `ERR persistence: file name "../x.db" must be relative to the data directory`},
		{"restore missing file", []string{"RESTORE", "missing.db"}, "ERR persistence: no such file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := do(t, d, tt.args...)
			require.Equal(t, resp.KindError, got.Kind)
			assert.Equal(t, tt.want, got.Str)
		})
	}

	// Failed commands never mutate.
	assert.Equal(t, resp.Bulk("v"), do(t, d, "GET", "str"))
	assert.Equal(t, resp.Status("list"), do(t, d, "TYPE", "list"))
}

func TestDispatcher_Expire(t *testing.T) {
	d, clock := newTestDispatcher(t)

	do(t, d, "SET", "k", "v")
	assert.Equal(t, resp.Int(-1), do(t, d, "TTL", "k"))
	assert.Equal(t, resp.Int(1), do(t, d, "EXPIRE", "k", "1"))
	assert.Equal(t, resp.Int(1), do(t, d, "TTL", "k"))
	assert.Equal(t, resp.Int(0), do(t, d, "EXPIRE", "missing", "1"))

	clock.Advance(1001 * time.Millisecond)
	assert.Equal(t, resp.Nil(), do(t, d, "GET", "k"))
	assert.Equal(t, resp.Int(0), do(t, d, "EXISTS", "k"))
	assert.Equal(t, resp.Int(-2), do(t, d, "TTL", "k"))

	do(t, d, "SET", "k2", "v")
	assert.Equal(t, resp.Int(1), do(t, d, "EXPIRE", "k2", "0"))
	assert.Equal(t, resp.Int(0), do(t, d, "EXISTS", "k2"))
}

func TestDispatcher_SaveRestore(t *testing.T) {
	d, clock := newTestDispatcher(t)

	do(t, d, "SET", "s", "v")
	do(t, d, "LPUSH", "l", "a", "b")
	do(t, d, "HSET", "h", "f", "1")
	do(t, d, "SADD", "set", "x", "y")
	do(t, d, "SET", "short", "gone")
	do(t, d, "EXPIRE", "short", "1")

	require.Equal(t, resp.OK(), do(t, d, "SAVE", "dump.db"))
	require.Equal(t, resp.OK(), do(t, d, "FLUSHALL"))
	clock.Advance(2 * time.Second)
	require.Equal(t, resp.Int(1), do(t, d, "RESTORE", "dump.db"))

	assert.Equal(t, resp.Bulk("v"), do(t, d, "GET", "s"))
	assert.Equal(t, resp.Bulk("b"), do(t, d, "LPOP", "l"))
	assert.Equal(t, resp.Bulk("1"), do(t, d, "HGET", "h", "f"))
	assert.Equal(t, resp.BulkSet([]string{"x", "y"}), do(t, d, "SMEMBERS", "set"))
	assert.Equal(t, resp.Int(0), do(t, d, "EXISTS", "short"))
}

func TestDispatcher_Actions(t *testing.T) {
	d, _ := newTestDispatcher(t)

	tests := []struct {
		args []string
		want Action
	}{
		{[]string{"PING"}, ActionNone},
		{[]string{"QUIT"}, ActionClose},
		{[]string{"quit"}, ActionClose},
		{[]string{"SHUTDOWN"}, ActionShutdown},
		{[]string{"SHUTDOWN", "now"}, ActionNone},
		{[]string{"NOPE"}, ActionNone},
	}
	for _, tt := range tests {
		raw := make([][]byte, len(tt.args))
		for i, a := range tt.args {
			raw[i] = []byte(a)
		}
		_, action := d.Dispatch(context.Background(), raw)
		assert.Equal(t, tt.want, action, "%v", tt.args)
	}
}

func TestDispatcher_Info(t *testing.T) {
	d, _ := newTestDispatcher(t)
	do(t, d, "SET", "a", "1")
	do(t, d, "SET", "b", "2")
	do(t, d, "NOPE")

	v := do(t, d, "INFO")
	require.Equal(t, resp.KindMap, v.Kind)
	require.Len(t, v.Elems, 2*len(InfoKeys))
	for i, k := range InfoKeys {
		assert.Equal(t, k, v.Elems[2*i].Str)
	}

	m := v.StringMap()
	assert.Equal(t, "threaded", m["mode"])
	assert.Equal(t, "2", m["keys"])
	assert.Equal(t, "4", m["commands_processed"])
	assert.Equal(t, "1", m["command_errors"])
	assert.NotEmpty(t, m["version"])
}

func TestDispatcher_ConcurrentSAdd(t *testing.T) {
	d, _ := newTestDispatcher(t)

	const workers, perWorker = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				// Members overlap between neighbouring workers.
				do(t, d, "SADD", "s", memberName(w*perWorker/2+i))
			}
		}(w)
	}
	wg.Wait()

	distinct := (workers-1)*perWorker/2 + perWorker
	assert.Len(t, do(t, d, "SMEMBERS", "s").Elems, distinct)
}

func memberName(i int) string {
	return "m" + string(rune('a'+i%26)) + string(rune('a'+i/26%26)) + string(rune('a'+i/676))
}

func TestFormatError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"wrong type", domain.ErrWrongType, "WRONGTYPE Operation against a key holding the wrong kind of value"},
		{"unknown", domain.ErrUnknownCommand.WithDetails("Frob"), "ERR unknown command 'Frob'"},
		{"arity", domain.ErrWrongArity.WithDetails("SET"), "ERR wrong number of arguments for 'set' command"},
		{"persistence", domain.ErrPersistence.WithDetails("disk full"), "ERR persistence: disk full"},
		{"persistence no details", domain.ErrPersistence, "ERR persistence: persistence error"},
		{"corrupt", domain.ErrCorruptSnapshot.WithDetails("checksum mismatch"), "ERR persistence: corrupt snapshot: checksum mismatch"},
		{"protocol", domain.ErrProtocol.WithDetails("bad length"), "ERR protocol: bad length"},
		{"rate limited", domain.ErrRateLimited, "ERR too many requests"},
		{"max clients", domain.ErrMaxClients, "ERR max number of clients reached"},
		{"wrapped", errors.Join(errors.New("ctx"), domain.ErrNotInteger), "ERR value is not an integer or out of range"},
		{"plain", errors.New("boom"), "ERR boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatError(tt.err))
		})
	}
}

func TestCommands(t *testing.T) {
	names := Commands()
	assert.Contains(t, names, "SMEMBERS")
	assert.Contains(t, names, "SHUTDOWN")
	assert.IsIncreasing(t, names)
}
