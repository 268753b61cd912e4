package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/dblite-go/internal/server/respserver"
	"github.com/yndnr/dblite-go/internal/storage/snapshot"
	"github.com/yndnr/dblite-go/internal/telemetry/metric"
)

type stubEngine struct{}

func (stubEngine) Save(context.Context, string) (*snapshot.Info, error) {
	return &snapshot.Info{}, nil
}

func (stubEngine) Restore(context.Context, string) (*snapshot.Info, error) {
	return &snapshot.Info{}, nil
}

type stubInfo struct{}

func (stubInfo) Info() []respserver.InfoField {
	return []respserver.InfoField{{Name: "keys", Value: int64(0)}}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(mutate func(*RouterConfig)) (http.Handler, *metric.Registry) {
	reg := metric.NewRegistry()
	cfg := &RouterConfig{
		Engine:  stubEngine{},
		Info:    stubInfo{},
		Metrics: reg,
		Logger:  quietLogger(),
	}
	if mutate != nil {
		mutate(cfg)
	}
	return NewRouter(cfg), reg
}

func get(h http.Handler, path, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_RequestID(t *testing.T) {
	h, _ := newTestRouter(nil)

	rec := get(h, "/health", "")
	id := rec.Header().Get("X-Request-ID")
	if !strings.HasPrefix(id, "req-") {
		t.Fatalf("X-Request-ID = %q, want generated req- id", id)
	}
	var body struct {
		RequestID string `json:"request_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.RequestID != id {
		t.Errorf("body request_id = %q, header %q", body.RequestID, id)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "client-supplied")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "client-supplied" {
		t.Errorf("X-Request-ID = %q, want client-supplied", got)
	}
}

func TestRouter_Metrics(t *testing.T) {
	h, _ := newTestRouter(nil)

	get(h, "/health", "")
	get(h, "/nope", "")

	rec := get(h, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`dblite_http_requests_total{method="GET",path="GET /health",status="200"} 1`,
		`path="unmatched",status="404"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestRouter_NoMetrics(t *testing.T) {
	h, _ := newTestRouter(func(c *RouterConfig) { c.Metrics = nil })
	if rec := get(h, "/metrics", ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET /metrics without registry = %d, want 404", rec.Code)
	}
}

func TestRouter_NetworkACL(t *testing.T) {
	h, _ := newTestRouter(func(c *RouterConfig) {
		c.AllowList = []string{"10.0.0.0/8", "192.168.1.5", "not-an-ip"}
	})

	tests := []struct {
		remote string
		path   string
		want   int
	}{
		{"10.1.2.3:5000", "/admin/v1/info", http.StatusOK},
		{"192.168.1.5:5000", "/admin/v1/info", http.StatusOK},
		{"192.168.1.6:5000", "/admin/v1/info", http.StatusForbidden},
		{"192.168.1.6:5000", "/health", http.StatusOK},
	}
	for _, tt := range tests {
		if rec := get(h, tt.path, tt.remote); rec.Code != tt.want {
			t.Errorf("%s from %s = %d, want %d", tt.path, tt.remote, rec.Code, tt.want)
		}
	}
}

func TestRouter_RateLimit(t *testing.T) {
	h, _ := newTestRouter(func(c *RouterConfig) { c.RateLimit = 2 })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, get(h, "/health", "10.0.0.1:1000").Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("status codes = %v, want [200 200 429]", codes)
	}

	if rec := get(h, "/health", "10.0.0.2:1000"); rec.Code != http.StatusOK {
		t.Errorf("other client = %d, want 200", rec.Code)
	}
}

func TestRecover(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), Recover(quietLogger()), RequestID(quietLogger()))

	rec := get(h, "/", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if rec.Header().Get("X-Error-Code") != "DBL-SYS-5000" {
		t.Errorf("X-Error-Code = %q", rec.Header().Get("X-Error-Code"))
	}
}

func TestServer_StartShutdown(t *testing.T) {
	h, _ := newTestRouter(nil)
	s := New("127.0.0.1:0", h)

	errCh, err := s.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	resp, err := http.Get("http://" + s.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for serve to return")
	}
}

func TestServer_StartBindError(t *testing.T) {
	s := New("127.0.0.1:-1", http.NotFoundHandler())
	if _, err := s.Start(); err == nil {
		t.Error("Start() should fail for an invalid address")
	}
}
