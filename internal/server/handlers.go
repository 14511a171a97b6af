package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// WebSocketHandler upgrades requests to WebSocket and attaches them to hub.
// Each binary message carries raw protocol bytes.
func WebSocketHandler(hub *Hub) http.HandlerFunc {
	cfg := hub.Config()
	policy := newOriginPolicy(cfg.AllowedOrigins, hub.logger)
	upgrader := websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.ReadBufferSize,
		CheckOrigin:     policy.checkOrigin,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.logger.Warn("WebSocket upgrade failed", "addr", r.RemoteAddr, "error", err)
			return
		}

		if err := hub.attach(newWebSocketTransport(conn, cfg)); err != nil {
			hub.logger.Warn("WebSocket connection refused", "addr", r.RemoteAddr, "error", err)
		}
	}
}

// HealthHandler reports that the server is up.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Relay chat server is running!")
}
