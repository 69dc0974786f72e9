// Package response provides helpers for writing consistent JSON HTTP
// responses. Every handler answers in JSON; errors always share the
// Response envelope so the browser client can read error.error.
package response

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Response is the envelope returned for error cases:
//
//	{ "status": "error", "error": "field name is required" }
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Message is the envelope for successful writes. The payload is carried
// under a per-operation key ("student", "updated" or "deleted").
type Message map[string]any

// reasons maps a validator tag to the phrase following "field <name>".
var reasons = map[string]string{
	"required": "is required",
}

// WriteJSON sets the content type, writes status and encodes data as the
// body. Headers cannot change once WriteHeader has run.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WithMessage builds {"status": "ok", "message": message, key: payload}.
func WithMessage(message, key string, payload any) Message {
	return Message{
		"status":  StatusOK,
		"message": message,
		key:       payload,
	}
}

// GeneralError reports err under the error status.
func GeneralError(err error) Response {
	return Response{Status: StatusError, Error: err.Error()}
}

// ValidationError joins every failed field into one message:
//
//	{ "status": "error", "error": "field name is required, field sem is required" }
func ValidationError(errs validator.ValidationErrors) Response {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		reason, ok := reasons[fe.ActualTag()]
		if !ok {
			reason = "is invalid"
		}
		msgs = append(msgs, "field "+fe.Field()+" "+reason)
	}
	return Response{Status: StatusError, Error: strings.Join(msgs, ", ")}
}
