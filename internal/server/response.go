package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/wesm/queryview/internal/pipeline"
)

// writeJSON writes v as JSON with the given HTTP status code.
// v is encoded before the header goes out, so a value that cannot
// be encoded becomes a 500 instead of an empty success.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		zap.L().Error("writeJSON: encoding response", zap.Error(err))
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		zap.L().Warn("writeJSON: writing response", zap.Error(err))
	}
}

// writeError writes a JSON error response with the given status
// and message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, jsonError{Error: msg})
}

// noData is the body returned when a selection matches no rows.
type noData struct {
	NoData    bool               `json:"no_data"`
	Selection pipeline.Selection `json:"selection"`
}

// handleContextError reports whether err is a context
// cancellation or deadline. The caller stops processing without
// writing; withTimeout has already answered with a 503 and a
// second write would race with its buffered response.
func handleContextError(_ http.ResponseWriter, err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
