// Package client is a small library for talking to a relay chat server over TCP.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Tyrowin/relaychat/internal/protocol"
)

// ErrInvalidText is returned for names or messages that are not valid UTF-8.
var ErrInvalidText = errors.New("client: text is not valid UTF-8")

// Client is one chat connection. Enter and Send may be called concurrently
// with Next.
type Client struct {
	conn    net.Conn
	reader  *bufio.Reader
	decoder protocol.Decoder

	writeMu sync.Mutex
}

// Dial connects to the server at addr.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return New(conn), nil
}

// New wraps an established connection.
func New(conn net.Conn) *Client {
	return &Client{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
}

// Enter announces name. The server closes the connection if the name is taken.
func (c *Client) Enter(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", protocol.ErrMalformedPayload)
	}
	if !utf8.ValidString(name) {
		return ErrInvalidText
	}
	return c.write(protocol.Enter{Name: name})
}

// Send posts a chat message. It must follow Enter.
func (c *Client) Send(content string) error {
	if !utf8.ValidString(content) {
		return ErrInvalidText
	}
	return c.write(protocol.Message{Content: content})
}

func (c *Client) write(p protocol.Payload) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return protocol.WriteFrame(c.conn, p)
}

// Next blocks until the server sends a frame. It returns io.EOF once the
// server has closed the connection.
func (c *Client) Next() (protocol.Payload, error) {
	frame, err := c.decoder.ReadFrame(c.reader)
	if err != nil {
		return nil, err
	}
	return frame.Payload, nil
}

// SetReadDeadline bounds the wait of the next call to Next.
func (c *Client) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// Close closes the connection and unblocks Next.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Format renders a server frame as a display line.
func Format(p protocol.Payload) string {
	switch p := p.(type) {
	case protocol.RelayedMessage:
		return p.SenderName + " : " + p.Content
	case protocol.Notice:
		return "NOTICE : " + p.Content
	default:
		return fmt.Sprintf("? : %s frame", p.Type())
	}
}
