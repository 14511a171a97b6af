// Package session turns the byte stream of one client into protocol actions.
//
// A Connection never touches a socket or another Connection. It buffers bytes,
// decodes frames, applies the entry rules and returns Actions for the server
// to execute.
package session

import (
	"errors"
	"fmt"

	"github.com/Tyrowin/relaychat/internal/protocol"
)

var (
	// ErrAlreadyEntered is the reason for disconnecting a client that sends ENTER twice.
	ErrAlreadyEntered = errors.New("session: already entered")

	// ErrNotEntered is the reason for disconnecting a client that speaks before entering.
	ErrNotEntered = errors.New("session: message before enter")

	// ErrUnexpectedType is the reason for disconnecting a client that sends a server-only frame.
	ErrUnexpectedType = errors.New("session: unexpected frame type from client")
)

// State is the entry state of a Connection.
type State int

const (
	// Unentered is the state of a freshly accepted connection.
	Unentered State = iota
	// Entered is reached exactly once, when the server accepts the ENTER name.
	Entered
	// Closed is terminal.
	Closed
)

func (s State) String() string {
	switch s {
	case Unentered:
		return "unentered"
	case Entered:
		return "entered"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connection holds one client's identity, entry state and receive buffer.
type Connection struct {
	name    string
	state   State
	pending bool // RequestEnter emitted, server has not answered yet
	buf     []byte
	decoder protocol.Decoder
}

// New returns an Unentered Connection whose frames may carry at most maxPayload bytes.
// A zero maxPayload uses protocol.DefaultMaxPayload.
func New(maxPayload uint32) *Connection {
	return &Connection{
		state:   Unentered,
		decoder: protocol.Decoder{MaxPayload: maxPayload},
	}
}

// Name returns the display name, empty until the server accepts the entry.
func (c *Connection) Name() string {
	return c.name
}

// State returns the current entry state.
func (c *Connection) State() State {
	return c.state
}

// Buffered returns the number of bytes held for a partially received frame.
func (c *Connection) Buffered() int {
	return len(c.buf)
}

// OnBytes appends p to the receive buffer and decodes every complete frame in it.
// A partial frame is kept for the next call. Each frame yields at most one
// Action; after a Disconnect nothing further is decoded.
func (c *Connection) OnBytes(p []byte) []Action {
	if c.state == Closed {
		return nil
	}
	c.buf = append(c.buf, p...)

	var actions []Action
	off := 0
	for off < len(c.buf) {
		frame, n, err := c.decoder.Decode(c.buf[off:])
		if protocol.IsIncomplete(err) {
			break
		}
		if err != nil {
			return append(actions, c.fail(err))
		}
		off += n

		action := c.apply(frame.Payload)
		actions = append(actions, action)
		if _, ok := action.(Disconnect); ok {
			c.buf = nil
			return actions
		}
	}

	// Move the partial frame to the front of the buffer.
	if off > 0 {
		c.buf = append(c.buf[:0], c.buf[off:]...)
	}
	return actions
}

func (c *Connection) apply(p protocol.Payload) Action {
	switch p := p.(type) {
	case protocol.Enter:
		if c.state != Unentered || c.pending {
			return c.fail(ErrAlreadyEntered)
		}
		c.pending = true
		return RequestEnter{Name: p.Name}
	case protocol.Message:
		if c.state != Entered && !c.pending {
			return c.fail(ErrNotEntered)
		}
		return RequestBroadcast{Content: p.Content}
	case protocol.RelayedMessage, protocol.Notice:
		return c.fail(fmt.Errorf("%w: %s", ErrUnexpectedType, p.Type()))
	default:
		return c.fail(fmt.Errorf("%w: %T", ErrUnexpectedType, p))
	}
}

func (c *Connection) fail(err error) Action {
	c.state = Closed
	c.pending = false
	c.buf = nil
	return Disconnect{Reason: err}
}

// Enter records name and moves the connection to Entered. The server calls it
// after checking that name is unique.
func (c *Connection) Enter(name string) error {
	if c.state != Unentered {
		return fmt.Errorf("%w: state %s", ErrAlreadyEntered, c.state)
	}
	c.name = name
	c.state = Entered
	c.pending = false
	return nil
}

// Close moves the connection to Closed. The name is kept so the server can
// announce the departure.
func (c *Connection) Close() {
	c.state = Closed
	c.pending = false
	c.buf = nil
}
