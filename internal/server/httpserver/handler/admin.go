package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/yndnr/dblite-go/internal/core/domain"
	"github.com/yndnr/dblite-go/internal/storage/snapshot"
)

var (
	errBadBody      = &domain.DomainError{Code: "DBL-ARG-4000", Message: "invalid request body"}
	errNameRequired = &domain.DomainError{Code: "DBL-ARG-4001", Message: "name is required"}
)

// handleInfo handles GET /admin/v1/info. Fields mirror the INFO command.
func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	fields := h.info.Info()
	data := make(map[string]any, len(fields))
	for _, f := range fields {
		data[f.Name] = f.Value
	}
	h.writeJSON(w, r, http.StatusOK, data)
}

// handleSave handles POST /admin/v1/snapshots.
func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	h.snapshotOp(w, r, h.engine.Save)
}

// handleRestore handles POST /admin/v1/restores.
func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	h.snapshotOp(w, r, h.engine.Restore)
}

func (h *Handler) snapshotOp(w http.ResponseWriter, r *http.Request,
	op func(context.Context, string) (*snapshot.Info, error)) {
	var req SnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, errBadBody.WithDetails(err.Error()))
		return
	}
	if req.Name == "" {
		h.writeError(w, r, errNameRequired)
		return
	}

	start := time.Now()
	info, err := op(r.Context(), req.Name)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, SnapshotResponse{
		Name:       req.Name,
		Path:       info.Path,
		CreatedAt:  time.UnixMilli(info.CreatedAt).UTC().Format(time.RFC3339),
		EntryCount: info.EntryCount,
		Size:       info.Size,
		Checksum:   info.Checksum,
		Encrypted:  info.Encrypted,
		DurationMs: time.Since(start).Milliseconds(),
	})
}

// handleConfig handles GET /admin/v1/config.
func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, h.config())
}
