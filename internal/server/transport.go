package server

import (
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// transport moves raw protocol bytes for one connection. read is only called
// by the reader goroutine and write only by the writer goroutine; close may be
// called from anywhere.
type transport interface {
	// setup applies socket options before the connection is registered.
	setup() error
	// read returns the next chunk of received bytes.
	read() ([]byte, error)
	// write sends one complete encoded frame.
	write(frame []byte) error
	close() error
	remoteAddr() string
	kind() string
}

type tcpTransport struct {
	conn         net.Conn
	buf          []byte
	writeTimeout time.Duration
}

func newTCPTransport(conn net.Conn, cfg Config) *tcpTransport {
	return &tcpTransport{
		conn:         conn,
		buf:          make([]byte, cfg.ReadBufferSize),
		writeTimeout: cfg.WriteTimeout,
	}
}

func (t *tcpTransport) setup() error {
	tc, ok := t.conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	if err := tc.SetNoDelay(true); err != nil {
		return err
	}
	return tc.SetKeepAlive(true)
}

func (t *tcpTransport) read() ([]byte, error) {
	n, err := t.conn.Read(t.buf)
	if n == 0 {
		return nil, err
	}
	chunk := make([]byte, n)
	copy(chunk, t.buf[:n])
	return chunk, err
}

func (t *tcpTransport) write(frame []byte) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return err
	}
	_, err := t.conn.Write(frame)
	return err
}

func (t *tcpTransport) close() error      { return t.conn.Close() }
func (t *tcpTransport) remoteAddr() string { return t.conn.RemoteAddr().String() }
func (t *tcpTransport) kind() string       { return "tcp" }

// wsTransport carries protocol frames inside binary WebSocket messages. One
// message may hold any number of frames, or part of one.
type wsTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	closeOnce    sync.Once
}

// wsCloseGrace bounds how long the close handshake may wait for a busy writer.
const wsCloseGrace = time.Second

func newWebSocketTransport(conn *websocket.Conn, cfg Config) *wsTransport {
	conn.SetReadLimit(int64(cfg.ReadBufferSize) + cfg.MaxPayloadSize)
	return &wsTransport{conn: conn, writeTimeout: cfg.WriteTimeout}
}

func (t *wsTransport) setup() error { return nil }

func (t *wsTransport) read() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *wsTransport) write(frame []byte) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.BinaryMessage, frame)
}

// close returns at once. The close frame is sent and the socket closed in the
// background, since WriteControl waits for any write in progress.
func (t *wsTransport) close() error {
	t.closeOnce.Do(func() {
		go func() {
			_ = t.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsCloseGrace))
			_ = t.conn.Close()
		}()
	})
	return nil
}

func (t *wsTransport) remoteAddr() string { return t.conn.RemoteAddr().String() }
func (t *wsTransport) kind() string       { return "websocket" }
