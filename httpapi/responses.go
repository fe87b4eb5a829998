package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/poiesic/scriptvault/core"
)

// NoVersionsMessage is the 404 body of the latest endpoint.
const NoVersionsMessage = "there is no versions for this file"

// FilesResponse lists the version files of a namespace.
type FilesResponse struct {
	Files []string `json:"files"`
}

// InfoResponse reports the latest version id.
type InfoResponse struct {
	Latest string `json:"latest"`
}

// WriteResponse reports the outcome of a push.
type WriteResponse struct {
	Status  string   `json:"status"`
	Version string   `json:"version"`
	Pruned  []string `json:"pruned,omitempty"`
}

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// Write statuses.
const (
	StatusCreated   = "created"
	StatusUnchanged = "unchanged"
)

func newWriteResponse(outcome core.WriteOutcome) WriteResponse {
	resp := WriteResponse{Status: StatusUnchanged, Version: outcome.Version.String()}
	if outcome.Created() {
		resp.Status = StatusCreated
	}
	for _, id := range outcome.Pruned {
		resp.Pruned = append(resp.Pruned, id.String())
	}
	return resp
}

func newFilesResponse(ids []core.VersionID) FilesResponse {
	files := make([]string, len(ids))
	for i, id := range ids {
		files[i] = id.FileName()
	}
	return FilesResponse{Files: files}
}

// statusFor maps store errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidIdentifier),
		errors.Is(err, ErrMissingAPIKey),
		errors.Is(err, ErrInvalidAPIKey):
		return http.StatusBadRequest
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Storage details stay in the logs.
		msg = http.StatusText(status)
	}
	writeJSON(w, status, ErrorResponse{Error: msg, RequestID: requestIDFrom(r.Context())})
}
