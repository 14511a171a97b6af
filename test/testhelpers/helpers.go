// Package testhelpers provides common utilities for end-to-end tests of the relay chat server.
//
// It starts a hub on an ephemeral TCP port, connects clients and asserts the
// frames they receive.
package testhelpers

import (
	"context"
	"errors"
	"io"
	"net"
	"reflect"
	"testing"
	"time"

	"github.com/Tyrowin/relaychat/internal/client"
	"github.com/Tyrowin/relaychat/internal/protocol"
	"github.com/Tyrowin/relaychat/internal/server"
)

// WaitTimeout bounds every wait in the helpers.
const WaitTimeout = 2 * time.Second

// TestConfig returns the default configuration on a loopback ephemeral port with a short poll interval.
func TestConfig() server.Config {
	cfg := *server.NewConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.PollInterval = 10 * time.Millisecond
	return cfg
}

// Env is a running server with an observer connection that never enters.
// Every join is confirmed through the observer, so joins happen in order.
type Env struct {
	t        *testing.T
	Hub      *server.Hub
	Addr     string
	Observer *client.Client
}

// StartServer starts a hub on cfg.Addr and stops it when the test ends.
func StartServer(t *testing.T, cfg server.Config) *Env {
	t.Helper()

	ln, err := server.Listen(cfg.Addr)
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	hub := server.NewHub(cfg, nil)
	errCh := make(chan error, 1)
	go func() { errCh <- hub.Serve(context.Background(), ln) }()

	t.Cleanup(func() {
		hub.Shutdown()
		select {
		case <-hub.Done():
		case <-time.After(WaitTimeout):
			t.Error("Server did not stop in time")
		}
		if err := <-errCh; err != nil {
			t.Errorf("Serve returned error: %v", err)
		}
	})

	env := &Env{t: t, Hub: hub, Addr: ln.Addr().String()}
	env.Observer = env.Connect()
	WaitForConnections(t, hub, 1)
	return env
}

// Connect opens a client connection that is closed when the test ends.
func (e *Env) Connect() *client.Client {
	e.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), WaitTimeout)
	defer cancel()

	c, err := client.Dial(ctx, e.Addr)
	if err != nil {
		e.t.Fatalf("Failed to connect: %v", err)
	}
	e.t.Cleanup(func() { _ = c.Close() })
	return c
}

// Join connects a client, enters as name and waits until the server has accepted it.
func (e *Env) Join(name string) *client.Client {
	e.t.Helper()

	c := e.Connect()
	if err := c.Enter(name); err != nil {
		e.t.Fatalf("Enter(%q) failed: %v", name, err)
	}
	ExpectPayload(e.t, e.Observer, protocol.Notice{Content: server.JoinNotice(name)})
	return c
}

// ExpectPayload fails the test unless the next frame c receives equals want.
func ExpectPayload(t *testing.T, c *client.Client, want protocol.Payload) {
	t.Helper()

	if err := c.SetReadDeadline(time.Now().Add(WaitTimeout)); err != nil {
		t.Fatalf("SetReadDeadline failed: %v", err)
	}
	got, err := c.Next()
	if err != nil {
		t.Fatalf("Expected %#v, got error: %v", want, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Expected %#v, got %#v", want, got)
	}
}

// ExpectNoPayload fails the test if c receives a frame within a short window.
func ExpectNoPayload(t *testing.T, c *client.Client) {
	t.Helper()

	if err := c.SetReadDeadline(time.Now().Add(100 * time.Millisecond)); err != nil {
		t.Fatalf("SetReadDeadline failed: %v", err)
	}
	got, err := c.Next()
	if err == nil {
		t.Fatalf("Expected no frame, got %#v", got)
	}
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("Expected read timeout, got %v", err)
	}
}

// ExpectClosed fails the test unless the server closes c.
func ExpectClosed(t *testing.T, c *client.Client) {
	t.Helper()

	if err := c.SetReadDeadline(time.Now().Add(WaitTimeout)); err != nil {
		t.Fatalf("SetReadDeadline failed: %v", err)
	}
	for {
		p, err := c.Next()
		if err == nil {
			t.Logf("Ignoring frame before close: %#v", p)
			continue
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || isReset(err) {
			return
		}
		t.Fatalf("Expected connection to be closed, got %v", err)
	}
}

func isReset(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && !opErr.Timeout()
}

// WaitForConnections waits until the hub's table holds want connections.
func WaitForConnections(t *testing.T, hub *server.Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(WaitTimeout)
	for hub.ConnectionCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d connections, got %d", want, hub.ConnectionCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
