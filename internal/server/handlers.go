// Package server exposes HTTP handlers, including the WebSocket upgrade,
// health check, and the built-in chat page.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// WebSocketHandler returns the handler that upgrades HTTP requests to
// WebSocket connections and attaches them to the hub. It validates that the
// request uses the GET method before upgrading.
func WebSocketHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.logger.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("websocket upgrade failed")
			return
		}

		if _, err := hub.Attach(conn, r.RemoteAddr); err != nil {
			hub.logger.Error().Err(err).Str("remote_addr", r.RemoteAddr).Msg("failed to attach client")
			_ = conn.Close()
		}
	}
}

// HealthResponse is the JSON body of the health check endpoint.
type HealthResponse struct {
	Status           string `json:"status"`
	Timestamp        string `json:"timestamp"`
	ConnectedClients int    `json:"connected_clients"`
}

// HealthHandler returns a health check handler reporting server status and
// the current number of connected clients.
func HealthHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		resp := HealthResponse{
			Status:           "healthy",
			Timestamp:        time.Now().UTC().Format(time.RFC3339),
			ConnectedClients: hub.registry.Len(),
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			hub.logger.Warn().Err(err).Msg("error writing health response")
		}
	}
}

// ChatPageHandler serves the embedded HTML chat client. It provides a simple
// web interface to log in, exchange chat and private messages, and observe
// presence updates.
func ChatPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(chatPageHTML))
}
