package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// TestWebSocketCloseDoesNotWaitForWriter tests that closing a WebSocket whose
// peer has stopped reading returns at once, and the stuck write ends soon after.
func TestWebSocketCloseDoesNotWaitForWriter(t *testing.T) {
	conns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade failed: %v", err)
			return
		}
		conns <- conn
	}))
	defer srv.Close()

	peer, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	if resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer peer.Close()

	var serverConn *websocket.Conn
	select {
	case serverConn = <-conns:
	case <-time.After(waitTimeout):
		t.Fatal("Server side of the WebSocket never arrived")
	}

	cfg := testConfig()
	cfg.WriteTimeout = 30 * time.Second
	tr := newWebSocketTransport(serverConn, sanitizeConfig(cfg))

	// The peer never reads, so this write fills the socket buffers and blocks.
	writeDone := make(chan error, 1)
	go func() { writeDone <- tr.write(make([]byte, 64<<20)) }()
	time.Sleep(200 * time.Millisecond)

	start := time.Now()
	if err := tr.close(); err != nil {
		t.Errorf("close returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("close blocked for %s", elapsed)
	}

	select {
	case err := <-writeDone:
		if err == nil {
			t.Error("Expected the stuck write to fail once the socket closed")
		}
	case <-time.After(wsCloseGrace + waitTimeout):
		t.Fatal("Stuck write did not end after close")
	}

	if err := tr.close(); err != nil {
		t.Errorf("Second close returned error: %v", err)
	}
}
