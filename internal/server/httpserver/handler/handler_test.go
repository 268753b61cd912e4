package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yndnr/dblite-go/internal/core/domain"
	"github.com/yndnr/dblite-go/internal/server/respserver"
	"github.com/yndnr/dblite-go/internal/storage/snapshot"
)

type fakeEngine struct {
	saved    []string
	restored []string
	err      error
}

func (f *fakeEngine) Save(_ context.Context, name string) (*snapshot.Info, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.saved = append(f.saved, name)
	return &snapshot.Info{Path: "/data/" + name, EntryCount: 3, Size: 128, Checksum: "abc"}, nil
}

func (f *fakeEngine) Restore(_ context.Context, name string) (*snapshot.Info, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.restored = append(f.restored, name)
	return &snapshot.Info{Path: "/data/" + name, EntryCount: 3}, nil
}

type fakeInfo []respserver.InfoField

func (f fakeInfo) Info() []respserver.InfoField { return f }

func newTestHandler(engine *fakeEngine, opts ...Option) *Handler {
	info := fakeInfo{{Name: "version", Value: "1.0.0"}, {Name: "keys", Value: int64(7)}}
	return New(engine, info, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

func TestHealthAndReady(t *testing.T) {
	ready := false
	h := newTestHandler(&fakeEngine{}, WithReady(func() bool { return ready }))

	rec, resp := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || resp.Code != "OK" {
		t.Errorf("GET /health = %d %s, want 200 OK", rec.Code, resp.Code)
	}

	rec, _ = do(t, h, http.MethodGet, "/ready", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /ready before start = %d, want 503", rec.Code)
	}

	ready = true
	rec, _ = do(t, h, http.MethodGet, "/ready", "")
	if rec.Code != http.StatusOK {
		t.Errorf("GET /ready = %d, want 200", rec.Code)
	}
}

func TestInfo(t *testing.T) {
	h := newTestHandler(&fakeEngine{})

	rec, resp := do(t, h, http.MethodGet, "/admin/v1/info", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /admin/v1/info = %d", rec.Code)
	}
	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %T, want object", resp.Data)
	}
	if data["version"] != "1.0.0" {
		t.Errorf("version = %v, want 1.0.0", data["version"])
	}
	if data["keys"] != float64(7) {
		t.Errorf("keys = %v, want 7", data["keys"])
	}
}

func TestSnapshotEndpoints(t *testing.T) {
	engine := &fakeEngine{}
	h := newTestHandler(engine)

	rec, resp := do(t, h, http.MethodPost, "/admin/v1/snapshots", `{"name":"backup.db"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /admin/v1/snapshots = %d: %s", rec.Code, resp.Message)
	}
	data := resp.Data.(map[string]any)
	if data["entry_count"] != float64(3) || data["path"] != "/data/backup.db" {
		t.Errorf("snapshot data = %v", data)
	}

	rec, _ = do(t, h, http.MethodPost, "/admin/v1/restores", `{"name":"backup.db"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /admin/v1/restores = %d", rec.Code)
	}

	if len(engine.saved) != 1 || len(engine.restored) != 1 {
		t.Errorf("saved=%v restored=%v, want one each", engine.saved, engine.restored)
	}
}

func TestSnapshotEndpoints_BadRequest(t *testing.T) {
	h := newTestHandler(&fakeEngine{})

	for _, body := range []string{`not json`, `{}`, `{"name":""}`} {
		rec, resp := do(t, h, http.MethodPost, "/admin/v1/snapshots", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
		if !strings.HasPrefix(resp.Code, "DBL-ARG-") {
			t.Errorf("body %q: code = %q", body, resp.Code)
		}
	}
}

func TestSnapshotEndpoints_EngineErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"corrupt", domain.ErrCorruptSnapshot.WithDetails("bad checksum"), http.StatusUnprocessableEntity},
		{"io", domain.ErrPersistence.WithDetails("no such file"), http.StatusInternalServerError},
		{"plain", io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&fakeEngine{err: tt.err})
			rec, resp := do(t, h, http.MethodPost, "/admin/v1/restores", `{"name":"x.db"}`)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if rec.Header().Get("X-Error-Code") != resp.Code {
				t.Errorf("X-Error-Code = %q, body code %q", rec.Header().Get("X-Error-Code"), resp.Code)
			}
		})
	}
}

func TestConfigEndpoint(t *testing.T) {
	h := newTestHandler(&fakeEngine{})
	req := httptest.NewRequest(http.MethodGet, "/admin/v1/config", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("config endpoint without WithConfig = %d, want 404", rec.Code)
	}

	h = newTestHandler(&fakeEngine{}, WithConfig(func() any {
		return map[string]string{"encryption_key": "su****se"}
	}))
	rec, resp := do(t, h, http.MethodGet, "/admin/v1/config", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /admin/v1/config = %d", rec.Code)
	}
	if resp.Data.(map[string]any)["encryption_key"] != "su****se" {
		t.Errorf("data = %v", resp.Data)
	}
}
