package http

import (
	"context"
	"encoding/json"
	"net/http"

	"claimdesk/internal/log"
)

// envelope is the wire shape of every JSON response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Message: msg})
}

// writeServerError logs the detail server-side and returns an opaque 500
// envelope to the client.
func writeServerError(ctx context.Context, w http.ResponseWriter, logger *log.Logger, op string, err error) {
	logger.ErrorContext(ctx, "Report generation failed",
		log.FieldOperation, op,
		log.FieldError, err)
	writeMessage(w, http.StatusInternalServerError, "server error")
}
