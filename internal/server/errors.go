package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/calder-n/notewise/internal/fault"
	"github.com/calder-n/notewise/internal/logging"
)

// statusFor maps a fault kind to its HTTP status. Caller mistakes are
// 4xx; unreachable collaborators on the retrieval path are 503 so load
// balancers treat them as transient; everything else is a plain 500.
func statusFor(kind fault.Kind) int {
	switch kind {
	case fault.KindValidation:
		return http.StatusBadRequest
	case fault.KindNotFound:
		return http.StatusNotFound
	case fault.KindEmbedding, fault.KindSearch:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs the root cause and sends the structured JSON error body.
// The body carries only the stable caller-safe message; the underlying
// error chain is included only when Config.Debug is set.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := fault.KindOf(err)
	status := statusFor(kind)

	log := logging.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			slog.String("kind", kind.String()),
			slog.Int("status", status),
			slog.Any("error", err),
		)
	} else {
		log.Warn("request rejected",
			slog.String("kind", kind.String()),
			slog.Int("status", status),
			slog.Any("error", err),
		)
	}

	body := errorResponse{Error: fault.Message(err)}
	if s.cfg.Debug {
		body.Detail = err.Error()
	}

	writeJSON(w, status, body)
}

// writeJSON encodes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
