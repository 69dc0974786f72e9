// Package status reports which storage backend the process is running on.
package status

import (
	"net/http"

	"github.com/svharshitha92-max/CRUD/internal/utils/response"
)

// Reporter is satisfied by *selector.Selection.
type Reporter interface {
	Connected() bool
}

// Connection is the body of GET /api/connection-status.
type Connection struct {
	Connected     bool `json:"connected"`
	UsingInMemory bool `json:"usingInMemory"`
}

// ConnectionStatus handles GET /api/connection-status. The value is for
// display only; nothing else in the service branches on it.
func ConnectionStatus(reporter Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connected := reporter.Connected()
		response.WriteJSON(w, http.StatusOK, Connection{
			Connected:     connected,
			UsingInMemory: !connected,
		})
	}
}
