package server

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Tyrowin/relaychat/internal/protocol"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
// A zero Burst disables the limit.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration settings.
type Config struct {
	// Addr is the TCP address of the chat listener.
	Addr string
	// WebSocketAddr is the HTTP address of the WebSocket gateway. Empty disables it.
	WebSocketAddr  string
	AllowedOrigins []string
	// MaxPayloadSize bounds payload_length of every client frame.
	MaxPayloadSize int64
	// MaxConnections bounds the connection table. Zero means no limit.
	MaxConnections int
	SendQueueSize  int
	ReadBufferSize int
	WriteTimeout   time.Duration
	// PollInterval bounds each wait of the event loop, so a shutdown request is
	// observed within one interval.
	PollInterval time.Duration
	RateLimit    RateLimitConfig
}

func defaultConfig() Config {
	return Config{
		Addr:          ":9999",
		WebSocketAddr: "",
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxPayloadSize: 4096,
		MaxConnections: 99,
		SendQueueSize:  256,
		ReadBufferSize: 1024,
		WriteTimeout:   10 * time.Second,
		PollInterval:   100 * time.Millisecond,
		RateLimit: RateLimitConfig{
			Burst:          0,
			RefillInterval: time.Second,
		},
	}
}

func sanitizeConfig(cfg Config) Config {
	def := defaultConfig()

	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}

	if cfg.MaxPayloadSize <= 0 {
		cfg.MaxPayloadSize = def.MaxPayloadSize
	}
	if cfg.MaxPayloadSize > int64(protocol.MaxClientPayload) {
		cfg.MaxPayloadSize = int64(protocol.MaxClientPayload)
	}

	if cfg.MaxConnections < 0 {
		cfg.MaxConnections = 0
	}

	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = def.SendQueueSize
	}

	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = def.ReadBufferSize
	}

	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}

	if cfg.RateLimit.Burst < 0 {
		cfg.RateLimit.Burst = 0
	}

	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}

	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if addr := os.Getenv("SERVER_ADDR"); addr != "" {
		cfg.Addr = addr
	}

	if addr := os.Getenv("WEBSOCKET_ADDR"); addr != "" {
		cfg.WebSocketAddr = addr
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if maxSize := os.Getenv("MAX_PAYLOAD_SIZE"); maxSize != "" {
		cfg.MaxPayloadSize = parseMaxPayloadSize(maxSize, cfg.MaxPayloadSize)
	}

	if maxConn := os.Getenv("MAX_CONNECTIONS"); maxConn != "" {
		cfg.MaxConnections = parseIntValue(maxConn, cfg.MaxConnections)
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}

	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseRefillInterval(interval, cfg.RateLimit.RefillInterval)
	}

	return &cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseMaxPayloadSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseRefillInterval(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
