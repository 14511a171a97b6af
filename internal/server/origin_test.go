package server

import (
	"log/slog"
	"net/http"
	"testing"
)

// TestOriginPolicy tests allow-list matching of the Origin header.
func TestOriginPolicy(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"Exact match", []string{"http://localhost:8080"}, "http://localhost:8080", true},
		{"Case insensitive", []string{"http://LocalHost:8080"}, "HTTP://localhost:8080", true},
		{"Different port", []string{"http://localhost:8080"}, "http://localhost:9090", false},
		{"Missing origin", []string{"http://localhost:8080"}, "", false},
		{"Wildcard", []string{"*"}, "https://anywhere.example", true},
		{"Wildcard still needs origin", []string{"*"}, "", false},
		{"Invalid configured origin ignored", []string{"not a url", "https://chat.example"}, "https://chat.example", true},
		{"Empty allow list", nil, "http://localhost:8080", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := newOriginPolicy(tt.allowed, logger)
			req, err := http.NewRequest(http.MethodGet, "/ws", http.NoBody)
			if err != nil {
				t.Fatal(err)
			}
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := policy.checkOrigin(req); got != tt.want {
				t.Errorf("Expected %v for origin %q, got %v", tt.want, tt.origin, got)
			}
		})
	}
}
