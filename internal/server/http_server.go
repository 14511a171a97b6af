package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// CreateServer creates the gateway HTTP server with the given address and handler.
func CreateServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// StartServer serves HTTP until the server is shut down. A clean shutdown returns nil.
func StartServer(server *http.Server) error {
	slog.Info("WebSocket gateway listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ShutdownServer stops the HTTP server, waiting at most timeout for handlers to return.
func ShutdownServer(server *http.Server, timeout time.Duration) error {
	slog.Info("Shutting down WebSocket gateway")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("WebSocket gateway shutdown error", "error", err)
		return err
	}

	slog.Info("WebSocket gateway shutdown completed")
	return nil
}
