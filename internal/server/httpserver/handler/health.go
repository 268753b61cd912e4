package handler

import (
	"net/http"
	"time"

	"github.com/yndnr/dblite-go/internal/core/domain"
)

var errNotReady = &domain.DomainError{Code: "DBL-SYS-5032", Message: "not accepting clients"}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.probe(w, r, "healthy")
}

// handleReady fails once shutdown has begun.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if !h.ready() {
		h.writeError(w, r, errNotReady)
		return
	}
	h.probe(w, r, "ready")
}

func (h *Handler) probe(w http.ResponseWriter, r *http.Request, status string) {
	h.writeJSON(w, r, http.StatusOK, ProbeResponse{
		Status: status,
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
