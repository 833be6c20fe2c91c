// Package httputil provides the shared HTTP response helpers used by all
// handlers: one JSON writer and one error envelope.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "github.com/0xshikhar/sapphire-did-sub000/pkg/domain-errors"
)

// errorResponse is the wire format shared by all error replies.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteError maps a domain error onto the shared error envelope. Server-side
// failures (5xx) omit the description so infrastructure details never reach
// clients; the code string alone is returned.
func WriteError(w http.ResponseWriter, err error) {
	status := dErrors.HTTPStatus(err)
	resp := errorResponse{Error: string(dErrors.CodeOf(err))}
	if status < http.StatusInternalServerError {
		var de *dErrors.Error
		if errors.As(err, &de) {
			resp.ErrorDescription = de.Message
		}
	}
	WriteJSON(w, status, resp)
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
