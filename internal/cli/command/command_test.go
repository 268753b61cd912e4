package command

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/dblite-go/internal/cli/config"
	"github.com/yndnr/dblite-go/internal/server/respserver"
	"github.com/yndnr/dblite-go/internal/storage"
)

type testEnv struct {
	t    *testing.T
	port string
	dir  string
}

func newTestEnv(t *testing.T, opts ...respserver.Option) *testEnv {
	t.Helper()
	cfg := storage.DefaultConfig(t.TempDir())
	cfg.SweepInterval = 0
	engine, err := storage.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	srv := respserver.New(&respserver.Config{Address: "127.0.0.1:0"}, engine, opts...)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	return &testEnv{
		t:    t,
		port: strconv.Itoa(srv.Addr("tcp").(*net.TCPAddr).Port),
		dir:  t.TempDir(),
	}
}

// run executes the CLI with input on stdin and returns stdout.
func (e *testEnv) run(input string, args ...string) (string, error) {
	e.t.Helper()
	var out bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = &out
	app.Reader = strings.NewReader(input)

	full := append([]string{"dblite-cli",
		"--config", filepath.Join(e.dir, "cli.yaml"),
		"-H", "127.0.0.1", "-p", e.port, "--timeout", "2s"}, args...)
	err := app.Run(full)
	return out.String(), err
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run("", args...)
	require.NoError(e.t, err, "dblite-cli %v", args)
	return out
}

func TestApp_Commands(t *testing.T) {
	app := App()
	names := make(map[string]bool)
	for _, cmd := range app.Commands {
		names[cmd.Name] = true
	}
	for _, name := range []string{
		"set", "get", "delete", "exists", "lpush", "lpop", "hset", "hget", "sadd", "smembers",
		"expire", "ttl", "type", "flushall", "ping", "save", "restore", "info", "shutdown",
		"repl", "config",
	} {
		assert.True(t, names[name], "missing command %s", name)
	}
}

func TestDataCommands(t *testing.T) {
	e := newTestEnv(t)

	assert.Equal(t, "OK\n", e.mustRun("set", "k", "hello world"))
	assert.Equal(t, "hello world\n", e.mustRun("get", "k"))
	assert.Equal(t, "(nil)\n", e.mustRun("get", "missing"))
	assert.Equal(t, "(integer) 1\n", e.mustRun("exists", "k"))
	assert.Equal(t, "string\n", e.mustRun("type", "k"))
	assert.Equal(t, "(integer) 1\n", e.mustRun("del", "k"))
	assert.Equal(t, "(integer) 0\n", e.mustRun("delete", "k"))

	assert.Equal(t, "(integer) 2\n", e.mustRun("lpush", "l", "a", "b"))
	assert.Equal(t, "b\n", e.mustRun("lpop", "l"))

	assert.Equal(t, "(integer) 1\n", e.mustRun("hset", "h", "f", "v"))
	assert.Equal(t, "v\n", e.mustRun("hget", "h", "f"))

	assert.Equal(t, "(integer) 2\n", e.mustRun("sadd", "s", "y", "x"))
	assert.Equal(t, "1) \"x\"\n2) \"y\"\n", e.mustRun("smembers", "s"))

	assert.Equal(t, "(integer) -1\n", e.mustRun("ttl", "s"))
	assert.Equal(t, "(integer) 1\n", e.mustRun("expire", "s", "100"))
	assert.Equal(t, "(integer) 100\n", e.mustRun("ttl", "s"))

	assert.Equal(t, "PONG\n", e.mustRun("ping"))
	assert.Equal(t, "hi\n", e.mustRun("ping", "hi"))
	assert.Equal(t, "OK\n", e.mustRun("flushall"))
	assert.Equal(t, "(integer) -2\n", e.mustRun("ttl", "s"))
}

func TestDataCommands_Errors(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun("set", "k", "v")

	_, err := e.run("", "lpush", "k", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WRONGTYPE")

	_, err = e.run("", "get")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage: get KEY")

	_, err = e.run("", "ping", "a", "b")
	require.Error(t, err)

	_, err = e.run("", "expire", "k", "soon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "integer")
}

func TestOutputFormats(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun("sadd", "s", "a")

	assert.Equal(t, "null\n", e.mustRun("-o", "json", "get", "missing"))
	assert.Equal(t, "[\n  \"a\"\n]\n", e.mustRun("-o", "json", "smembers", "s"))
	assert.Equal(t, "- a\n", e.mustRun("-o", "yaml", "smembers", "s"))

	_, err := e.run("", "-o", "xml", "ping")
	require.Error(t, err)
}

func TestSaveRestoreInfo(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun("set", "a", "1")
	assert.Equal(t, "OK\n", e.mustRun("save", "dump.db"))
	e.mustRun("flushall")
	assert.Equal(t, "OK\n", e.mustRun("restore", "dump.db"))
	assert.Equal(t, "1\n", e.mustRun("get", "a"))

	info := e.mustRun("info")
	assert.True(t, strings.HasPrefix(info, "NAME"), "info output:\n%s", info)
	assert.Contains(t, info, "keys")

	infoJSON := e.mustRun("-o", "json", "info")
	assert.Contains(t, infoJSON, `"name": "keys"`)
}

func TestRawCommand(t *testing.T) {
	e := newTestEnv(t)
	assert.Equal(t, "OK\n", e.mustRun("SET", "k", "v"))
	assert.Equal(t, "\"v\"\n", e.mustRun("GET", "k"))

	_, err := e.run("", "NOSUCH")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestREPLCommand(t *testing.T) {
	e := newTestEnv(t)
	hist := filepath.Join(e.dir, "history")
	require.NoError(t, config.Save(&config.CLIConfig{
		Host: "127.0.0.1", Port: 1, Output: "table", Timeout: time.Second, HistoryFile: hist,
	}, filepath.Join(e.dir, "cli.yaml")))

	out, err := e.run("set k \"a b\"\nget k\nexit\n")
	require.NoError(t, err)
	assert.Contains(t, out, "> OK\n")
	assert.Contains(t, out, "> \"a b\"\n")
	assert.FileExists(t, hist)
}

func TestShutdownCommand(t *testing.T) {
	shutdown := make(chan struct{})
	e := newTestEnv(t, respserver.WithShutdownFunc(func() { close(shutdown) }))

	_, err := e.run("n\n", "shutdown")
	require.Error(t, err)

	out, err := e.run("y\n", "shutdown")
	require.NoError(t, err)
	assert.Contains(t, out, "OK\n")

	select {
	case <-shutdown:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown callback not called")
	}
}

func TestConfigCommands(t *testing.T) {
	e := newTestEnv(t)

	out := e.mustRun("-o", "json", "config", "show")
	assert.Contains(t, out, `"port": "`+e.port+`"`)

	e.mustRun("--output", "yaml", "config", "save")
	cfg, err := config.Load(filepath.Join(e.dir, "cli.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "yaml", cfg.Output)
	assert.Equal(t, e.port, strconv.Itoa(cfg.Port))
}

func TestConnectError(t *testing.T) {
	e := &testEnv{t: t, port: "1", dir: t.TempDir()}
	_, err := e.run("", "ping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to 127.0.0.1:1")
}
