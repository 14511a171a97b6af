package server

import "net/http"

// SetupRoutes returns the gateway mux: the health check and the WebSocket endpoint.
func SetupRoutes(hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/ws", WebSocketHandler(hub))
	return mux
}
