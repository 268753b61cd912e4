package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if r.registry == nil {
		t.Error("registry field is nil")
	}
	if r.CommandsTotal == nil || r.CommandDuration == nil {
		t.Error("command metrics are nil")
	}
	if r.ConnectionsActive == nil || r.ConnectionsRejected == nil {
		t.Error("connection metrics are nil")
	}
}

func TestGlobal(t *testing.T) {
	if Global() != Global() {
		t.Error("Global() should return the same instance")
	}
}

func TestHandler(t *testing.T) {
	body := scrape(t, Handler())
	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected go_goroutines metric")
	}
	if !strings.Contains(body, "process_") {
		t.Error("expected process metrics")
	}
}

func TestCommandMetrics(t *testing.T) {
	r := NewRegistry()
	r.RecordCommand("SET", "ok", 0.0001)
	r.RecordCommand("SET", "ok", 0.0002)
	r.RecordCommand("GET", "error", 0.0001)

	body := scrape(t, r.Handler())
	if !strings.Contains(body, `dblite_commands_total{command="SET",status="ok"} 2`) {
		t.Error("expected dblite_commands_total for SET ok")
	}
	if !strings.Contains(body, `dblite_commands_total{command="GET",status="error"} 1`) {
		t.Error("expected dblite_commands_total for GET error")
	}
	if !strings.Contains(body, `dblite_command_duration_seconds_count{command="SET"} 2`) {
		t.Error("expected duration count for SET")
	}
}

func TestConnectionMetrics(t *testing.T) {
	r := NewRegistry()
	r.ConnectionOpened()
	r.ConnectionOpened()
	r.ConnectionClosed()
	r.ConnectionRejected("max_clients")

	body := scrape(t, r.Handler())
	for _, want := range []string{
		"dblite_connections_active 1",
		"dblite_connections_total 2",
		`dblite_connections_rejected_total{reason="max_clients"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in output", want)
		}
	}
}

func TestSnapshotAndHTTPMetrics(t *testing.T) {
	r := NewRegistry()
	r.ObserveSnapshot("save", 0.25, 4096)
	r.RecordHTTPRequest("GET", "/health", "200")

	body := scrape(t, r.Handler())
	for _, want := range []string{
		`dblite_snapshot_duration_seconds_count{op="save"} 1`,
		"dblite_snapshot_bytes 4096",
		`dblite_http_requests_total{method="GET",path="/health",status="200"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in output", want)
		}
	}
}

type fakeStats struct {
	keys    int
	expired uint64
}

func (f fakeStats) Len() int            { return f.keys }
func (f fakeStats) ExpiredKeys() uint64 { return f.expired }

func TestCollector(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(NewCollector(fakeStats{keys: 7, expired: 3})); err != nil {
		t.Fatalf("Register: %v", err)
	}
	body := scrape(t, r.Handler())
	if !strings.Contains(body, "dblite_keys 7") {
		t.Error("expected dblite_keys 7")
	}
	if !strings.Contains(body, "dblite_expired_keys_total 3") {
		t.Error("expected dblite_expired_keys_total 3")
	}
}
