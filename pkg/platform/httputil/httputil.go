// Package httputil centralizes the JSON envelopes shared by every handler.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "conosco/pkg/domain-errors"
)

type errorBody struct {
	Error       string   `json:"error"`
	Description string   `json:"error_description,omitempty"`
	Issues      []string `json:"issues,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the JSON error envelope. Internal
// errors omit the description so storage details never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := errorBody{Error: string(code)}
	var de *dErrors.Error
	if errors.As(err, &de) && code != dErrors.CodeInternal {
		body.Description = de.Message
		body.Issues = de.Issues
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}
