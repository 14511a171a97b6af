package server

import (
	"errors"
	"io"
	"net"
	"strings"

	"github.com/gorilla/websocket"
)

var (
	// ErrNameTaken is the reason for disconnecting a client that enters with a name in use.
	ErrNameTaken = errors.New("server: display name already in use")

	// ErrSendQueueFull is the reason for disconnecting a recipient that cannot keep up.
	ErrSendQueueFull = errors.New("server: send queue full")

	// ErrServerStopped is returned by attach once the hub has stopped.
	ErrServerStopped = errors.New("server: stopped")

	// ErrServerAlreadyStarted is returned when Serve is called twice.
	ErrServerAlreadyStarted = errors.New("server: already started")

	// ErrMaxConnectionsReached is the reason for refusing an accepted connection.
	ErrMaxConnectionsReached = errors.New("server: maximum connections reached")

	// errPeerClosed is the reason recorded for a clean end of stream.
	errPeerClosed = errors.New("server: peer closed connection")
)

// readEvent is posted by a reader goroutine for every chunk or error.
type readEvent struct {
	id   uint64
	data []byte
	err  error
}

// writeEvent is posted by a writer goroutine when a frame could not be sent.
type writeEvent struct {
	id  uint64
	err error
}

// isPeerClosed reports whether err is a clean end of stream.
func isPeerClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

// isTransientReadError reports whether a read error leaves the connection usable.
func isTransientReadError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, websocket.ErrCloseSent) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "broken pipe")
}
