package handler

import "time"

// Response is the JSON envelope of every admin endpoint except /metrics.
// Code is "OK" on success or a DBL-* error code.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

func newResponse(requestID, code, message string, data any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// SnapshotRequest is the body of POST /admin/v1/snapshots and
// POST /admin/v1/restores. Name is resolved inside the data directory.
type SnapshotRequest struct {
	Name string `json:"name"`
}

// SnapshotResponse describes a snapshot file written or read.
type SnapshotResponse struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	CreatedAt  string `json:"created_at"`
	EntryCount int64  `json:"entry_count"`
	Size       int64  `json:"size"`
	Checksum   string `json:"checksum"`
	Encrypted  bool   `json:"encrypted"`
	DurationMs int64  `json:"duration_ms"`
}

// ProbeResponse is the data of /health and /ready.
type ProbeResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}
