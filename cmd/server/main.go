package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Tyrowin/relaychat/internal/server"
)

func main() {
	cfg := server.NewConfigFromEnv()

	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "TCP address of the chat listener")
	flag.StringVar(&cfg.WebSocketAddr, "ws-addr", cfg.WebSocketAddr, "HTTP address of the WebSocket gateway (empty disables it)")
	flag.IntVar(&cfg.MaxConnections, "max-connections", cfg.MaxConnections, "maximum number of connections (0 for no limit)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn or error")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -log-level %q: %v\n", *logLevel, err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(*cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg server.Config, logger *slog.Logger) error {
	logger.Info("Starting relay chat server...")

	hub := server.NewHub(cfg, logger)

	ln, err := server.Listen(hub.Config().Addr)
	if err != nil {
		return err
	}

	var httpServer *http.Server
	if cfg.WebSocketAddr != "" {
		httpServer = server.CreateServer(cfg.WebSocketAddr, server.SetupRoutes(hub))
		go func() {
			if err := server.StartServer(httpServer); err != nil {
				logger.Error("WebSocket gateway failed", "error", err)
				hub.Shutdown()
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal", "signal", sig.String())
		hub.Shutdown()
	}()

	if err := hub.Serve(context.Background(), ln); err != nil {
		return err
	}

	if httpServer != nil {
		if err := server.ShutdownServer(httpServer, 5*time.Second); err != nil {
			return err
		}
	}

	logger.Info("Server shutdown complete")
	return nil
}
