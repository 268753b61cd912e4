package respserver

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/yndnr/dblite-go/internal/core/domain"
	"github.com/yndnr/dblite-go/internal/infra/buildinfo"
	"github.com/yndnr/dblite-go/internal/storage"
	"github.com/yndnr/dblite-go/internal/telemetry/metric"
	"github.com/yndnr/dblite-go/pkg/resp"
)

// Action tells the connection loop what to do after writing a reply.
type Action int

const (
	ActionNone Action = iota
	ActionClose
	ActionShutdown
)

// commandFunc runs one command with its arguments (command name excluded).
type commandFunc func(d *Dispatcher, ctx context.Context, args []string) (resp.Value, error)

type command struct {
	name    string
	minArgs int
	maxArgs int // -1 for variadic
	fn      commandFunc
	action  Action
}

// commandTable maps upper-cased command names to their handlers.
var commandTable = map[string]command{
	"SET":      {name: "set", minArgs: 2, maxArgs: 2, fn: (*Dispatcher).set},
	"GET":      {name: "get", minArgs: 1, maxArgs: 1, fn: (*Dispatcher).get},
	"DELETE":   {name: "delete", minArgs: 1, maxArgs: 1, fn: (*Dispatcher).del},
	"EXISTS":   {name: "exists", minArgs: 1, maxArgs: 1, fn: (*Dispatcher).exists},
	"LPUSH":    {name: "lpush", minArgs: 2, maxArgs: -1, fn: (*Dispatcher).lpush},
	"LPOP":     {name: "lpop", minArgs: 1, maxArgs: 1, fn: (*Dispatcher).lpop},
	"HSET":     {name: "hset", minArgs: 3, maxArgs: 3, fn: (*Dispatcher).hset},
	"HGET":     {name: "hget", minArgs: 2, maxArgs: 2, fn: (*Dispatcher).hget},
	"SADD":     {name: "sadd", minArgs: 2, maxArgs: -1, fn: (*Dispatcher).sadd},
	"SMEMBERS": {name: "smembers", minArgs: 1, maxArgs: 1, fn: (*Dispatcher).smembers},
	"EXPIRE":   {name: "expire", minArgs: 2, maxArgs: 2, fn: (*Dispatcher).expire},
	"TTL":      {name: "ttl", minArgs: 1, maxArgs: 1, fn: (*Dispatcher).ttl},
	"TYPE":     {name: "type", minArgs: 1, maxArgs: 1, fn: (*Dispatcher).typeOf},
	"FLUSHALL": {name: "flushall", minArgs: 0, maxArgs: 0, fn: (*Dispatcher).flushAll},
	"SAVE":     {name: "save", minArgs: 1, maxArgs: 1, fn: (*Dispatcher).save},
	"RESTORE":  {name: "restore", minArgs: 1, maxArgs: 1, fn: (*Dispatcher).restore},
	"INFO":     {name: "info", minArgs: 0, maxArgs: 0, fn: (*Dispatcher).info},
	"PING":     {name: "ping", minArgs: 0, maxArgs: 1, fn: (*Dispatcher).ping},
	"QUIT":     {name: "quit", minArgs: 0, maxArgs: 0, fn: (*Dispatcher).ok, action: ActionClose},
	"SHUTDOWN": {name: "shutdown", minArgs: 0, maxArgs: 0, fn: (*Dispatcher).ok, action: ActionShutdown},
}

// Commands returns the supported command names in upper case, sorted.
func Commands() []string {
	names := lo.Keys(commandTable)
	slices.Sort(names)
	return names
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithMode sets the mode reported by INFO.
func WithMode(m Mode) DispatcherOption {
	return func(d *Dispatcher) { d.mode = m }
}

// WithDispatcherLogger sets the dispatcher logger.
func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithDispatcherMetrics records per-command metrics in r.
func WithDispatcherMetrics(r *metric.Registry) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = r }
}

// Dispatcher validates requests against the command table and executes
// them against the storage engine.
type Dispatcher struct {
	engine  *storage.Engine
	stats   *Stats
	mode    Mode
	started time.Time
	logger  *slog.Logger
	metrics *metric.Registry
}

// NewDispatcher creates a dispatcher over engine. stats may be nil.
func NewDispatcher(engine *storage.Engine, stats *Stats, opts ...DispatcherOption) *Dispatcher {
	if stats == nil {
		stats = newStats()
	}
	d := &Dispatcher{
		engine:  engine,
		stats:   stats,
		mode:    ModeThreaded,
		started: time.Now(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch executes one request. args[0] is the command name. Errors are
// returned as error replies; Dispatch itself never fails.
func (d *Dispatcher) Dispatch(ctx context.Context, args [][]byte) (resp.Value, Action) {
	if len(args) == 0 {
		return resp.Error("ERR empty command"), ActionNone
	}

	start := time.Now()
	name := resp.NormalizeCommandName(args[0])
	d.stats.commandsProcessed.Inc()

	cmd, ok := commandTable[name]
	if !ok {
		d.record("UNKNOWN", start, false)
		return d.fail(domain.ErrUnknownCommand.WithDetails(string(args[0]))), ActionNone
	}

	argc := len(args) - 1
	if argc < cmd.minArgs || (cmd.maxArgs >= 0 && argc > cmd.maxArgs) {
		d.record(name, start, false)
		return d.fail(domain.ErrWrongArity.WithDetails(cmd.name)), ActionNone
	}

	strArgs := make([]string, argc)
	for i, a := range args[1:] {
		strArgs[i] = string(a)
	}

	reply, err := cmd.fn(d, ctx, strArgs)
	d.record(name, start, err == nil)
	if err != nil {
		return d.fail(err), ActionNone
	}
	return reply, cmd.action
}

func (d *Dispatcher) fail(err error) resp.Value {
	d.stats.commandErrors.Inc()
	if de, ok := domain.AsDomainError(err); !ok || de.Code == domain.ErrInternal.Code {
		d.logger.Error("command failed", "error", err)
	}
	return resp.Error(formatError(err))
}

func (d *Dispatcher) record(name string, start time.Time, ok bool) {
	if d.metrics == nil {
		return
	}
	d.metrics.RecordCommand(name, lo.Ternary(ok, "ok", "error"), time.Since(start).Seconds())
}

// ============================================================================
// Key commands
// ============================================================================

func (d *Dispatcher) set(ctx context.Context, args []string) (resp.Value, error) {
	d.engine.Store().Set(ctx, args[0], args[1])
	return resp.OK(), nil
}

func (d *Dispatcher) get(ctx context.Context, args []string) (resp.Value, error) {
	v, ok, err := d.engine.Store().Get(ctx, args[0])
	if err != nil {
		return resp.Value{}, err
	}
	if !ok {
		return resp.Nil(), nil
	}
	return resp.Bulk(v), nil
}

func (d *Dispatcher) del(ctx context.Context, args []string) (resp.Value, error) {
	return resp.Int(int64(d.engine.Store().Delete(ctx, args[0]))), nil
}

func (d *Dispatcher) exists(ctx context.Context, args []string) (resp.Value, error) {
	return resp.Int(boolInt(d.engine.Store().Exists(ctx, args[0]))), nil
}

func (d *Dispatcher) typeOf(ctx context.Context, args []string) (resp.Value, error) {
	kind, ok := d.engine.Store().Type(ctx, args[0])
	if !ok {
		return resp.Status("none"), nil
	}
	return resp.Status(kind.String()), nil
}

// maxExpireSeconds keeps seconds*time.Second within int64.
const maxExpireSeconds = math.MaxInt64 / int64(time.Second)

func (d *Dispatcher) expire(ctx context.Context, args []string) (resp.Value, error) {
	secs, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || secs > maxExpireSeconds {
		return resp.Value{}, domain.ErrNotInteger
	}
	ok := d.engine.Store().Expire(ctx, args[0], time.Duration(secs)*time.Second)
	return resp.Int(boolInt(ok)), nil
}

func (d *Dispatcher) ttl(ctx context.Context, args []string) (resp.Value, error) {
	ttl, ok := d.engine.Store().TTL(ctx, args[0])
	if !ok {
		return resp.Int(-2), nil
	}
	if ttl < 0 {
		return resp.Int(-1), nil
	}
	// Round up so a key with 400ms left still reports 1.
	return resp.Int(int64((ttl + time.Second - 1) / time.Second)), nil
}

func (d *Dispatcher) flushAll(ctx context.Context, _ []string) (resp.Value, error) {
	d.engine.Store().FlushAll(ctx)
	return resp.OK(), nil
}

// ============================================================================
// List, hash and set commands
// ============================================================================

func (d *Dispatcher) lpush(ctx context.Context, args []string) (resp.Value, error) {
	n, err := d.engine.Store().LPush(ctx, args[0], args[1:]...)
	if err != nil {
		return resp.Value{}, err
	}
	return resp.Int(int64(n)), nil
}

func (d *Dispatcher) lpop(ctx context.Context, args []string) (resp.Value, error) {
	v, ok, err := d.engine.Store().LPop(ctx, args[0])
	if err != nil {
		return resp.Value{}, err
	}
	if !ok {
		return resp.Nil(), nil
	}
	return resp.Bulk(v), nil
}

func (d *Dispatcher) hset(ctx context.Context, args []string) (resp.Value, error) {
	created, err := d.engine.Store().HSet(ctx, args[0], args[1], args[2])
	if err != nil {
		return resp.Value{}, err
	}
	return resp.Int(boolInt(created)), nil
}

func (d *Dispatcher) hget(ctx context.Context, args []string) (resp.Value, error) {
	v, ok, err := d.engine.Store().HGet(ctx, args[0], args[1])
	if err != nil {
		return resp.Value{}, err
	}
	if !ok {
		return resp.Nil(), nil
	}
	return resp.Bulk(v), nil
}

func (d *Dispatcher) sadd(ctx context.Context, args []string) (resp.Value, error) {
	n, err := d.engine.Store().SAdd(ctx, args[0], args[1:]...)
	if err != nil {
		return resp.Value{}, err
	}
	return resp.Int(int64(n)), nil
}

func (d *Dispatcher) smembers(ctx context.Context, args []string) (resp.Value, error) {
	members, err := d.engine.Store().SMembers(ctx, args[0])
	if err != nil {
		return resp.Value{}, err
	}
	return resp.BulkSet(members), nil
}

// ============================================================================
// Persistence commands
// ============================================================================

func (d *Dispatcher) save(ctx context.Context, args []string) (resp.Value, error) {
	start := time.Now()
	info, err := d.engine.Save(ctx, args[0])
	if err != nil {
		return resp.Value{}, err
	}
	if d.metrics != nil {
		d.metrics.ObserveSnapshot("save", time.Since(start).Seconds(), info.Size)
	}
	return resp.OK(), nil
}

func (d *Dispatcher) restore(ctx context.Context, args []string) (resp.Value, error) {
	start := time.Now()
	info, err := d.engine.Restore(ctx, args[0])
	if err != nil {
		return resp.Value{}, err
	}
	if d.metrics != nil {
		d.metrics.ObserveSnapshot("restore", time.Since(start).Seconds(), info.Size)
	}
	return resp.Int(1), nil
}

// ============================================================================
// Server commands
// ============================================================================

func (d *Dispatcher) ping(_ context.Context, args []string) (resp.Value, error) {
	if len(args) == 1 {
		return resp.Bulk(args[0]), nil
	}
	return resp.Status("PONG"), nil
}

func (d *Dispatcher) ok(context.Context, []string) (resp.Value, error) {
	return resp.OK(), nil
}

// InfoKeys lists the INFO fields in reply order.
var InfoKeys = []string{
	"version",
	"mode",
	"uptime_seconds",
	"keys",
	"connections",
	"active_connections",
	"commands_processed",
	"command_errors",
	"expired_keys",
}

// InfoField is one INFO statistic. Value is a string or an int64.
type InfoField struct {
	Name  string
	Value any
}

// Info returns the server statistics in InfoKeys order.
func (d *Dispatcher) Info() []InfoField {
	st := d.engine.Store()
	values := map[string]any{
		"version":            buildinfo.Get().Version,
		"mode":               string(d.mode),
		"uptime_seconds":     int64(time.Since(d.started) / time.Second),
		"keys":               int64(st.Len()),
		"connections":        d.stats.ConnectionsTotal(),
		"active_connections": d.stats.ConnectionsActive(),
		"commands_processed": d.stats.CommandsProcessed(),
		"command_errors":     d.stats.CommandErrors(),
		"expired_keys":       int64(st.ExpiredKeys()),
	}
	return lo.Map(InfoKeys, func(k string, _ int) InfoField {
		return InfoField{Name: k, Value: values[k]}
	})
}

func (d *Dispatcher) info(context.Context, []string) (resp.Value, error) {
	pairs := lo.FlatMap(d.Info(), func(f InfoField, _ int) []resp.Value {
		v := resp.Bulk(fmt.Sprint(f.Value))
		if n, ok := f.Value.(int64); ok {
			v = resp.Int(n)
		}
		return []resp.Value{resp.Bulk(f.Name), v}
	})
	return resp.Map(pairs...), nil
}

func boolInt(b bool) int64 {
	return lo.Ternary[int64](b, 1, 0)
}

// formatError renders err as an error reply message.
func formatError(err error) string {
	de, ok := domain.AsDomainError(err)
	if !ok {
		return "ERR " + err.Error()
	}

	switch de.Code {
	case domain.ErrWrongType.Code:
		return "WRONGTYPE " + de.Message
	case domain.ErrUnknownCommand.Code:
		return fmt.Sprintf("ERR unknown command '%s'", de.Details)
	case domain.ErrWrongArity.Code:
		return fmt.Sprintf("ERR wrong number of arguments for '%s' command", strings.ToLower(de.Details))
	case domain.ErrPersistence.Code:
		return "ERR persistence: " + lo.CoalesceOrEmpty(de.Details, de.Message)
	case domain.ErrCorruptSnapshot.Code:
		return "ERR persistence: " + de.Message + lo.Ternary(de.Details != "", ": "+de.Details, "")
	case domain.ErrProtocol.Code:
		return "ERR protocol: " + lo.CoalesceOrEmpty(de.Details, de.Message)
	default:
		if de.Details != "" {
			return "ERR " + de.Message + ": " + de.Details
		}
		return "ERR " + de.Message
	}
}
