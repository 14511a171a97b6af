// Package protocol defines the relay chat wire format and a stateless codec for it.
//
// Every frame is a fixed 12-byte header followed by payload_length payload bytes:
//
//	[version uint32][type uint32][payload_length uint32][payload]
//
// All numeric fields are big-endian. Text is never null-terminated, so any
// valid UTF-8 (control characters included) is legal content.
package protocol

import "fmt"

// Version is the only protocol version accepted on the wire.
const Version uint32 = 1

// HeaderSize is the encoded size of a Header in bytes.
const HeaderSize = 12

// DefaultMaxPayload bounds payload_length when no explicit limit is configured.
const DefaultMaxPayload uint32 = 1 << 20

// MaxClientPayload is the largest limit a server may put on client payloads.
// A RELAYED_MESSAGE carries a 4-byte name length, the sender's name and the
// content, each of which came from a client frame, so with both at this size
// the relayed payload still fits DefaultMaxPayload.
const MaxClientPayload = (DefaultMaxPayload - 4) / 2

// Type identifies the payload carried by a frame.
type Type uint32

const (
	// TypeEnter is sent once by a client to claim a display name.
	TypeEnter Type = iota
	// TypeMessage carries chat text from a client.
	TypeMessage
	// TypeRelayedMessage carries chat text from the server with the sender's name.
	TypeRelayedMessage
	// TypeNotice carries server generated text such as join and leave announcements.
	TypeNotice
)

// Valid reports whether t is a known frame type.
func (t Type) Valid() bool {
	switch t {
	case TypeEnter, TypeMessage, TypeRelayedMessage, TypeNotice:
		return true
	default:
		return false
	}
}

func (t Type) String() string {
	switch t {
	case TypeEnter:
		return "ENTER"
	case TypeMessage:
		return "MESSAGE"
	case TypeRelayedMessage:
		return "RELAYED_MESSAGE"
	case TypeNotice:
		return "NOTICE"
	default:
		return fmt.Sprintf("Type(%d)", uint32(t))
	}
}

// Header is the fixed-size prefix of every frame.
type Header struct {
	Version       uint32
	Type          Type
	PayloadLength uint32
}

// FrameSize returns the total encoded size of the frame described by h.
func (h Header) FrameSize() int {
	return HeaderSize + int(h.PayloadLength)
}

// Payload is one of Enter, Message, RelayedMessage or Notice.
// The set is closed: only this package implements it.
type Payload interface {
	Type() Type
	encodedLen() int
	appendTo(b []byte) []byte
}

// Enter is the client's one-time handshake carrying its display name.
type Enter struct {
	Name string
}

// Message is chat text sent by an entered client.
type Message struct {
	Content string
}

// RelayedMessage is chat text fanned out by the server. The sender's name is
// embedded so recipients need no lookup.
type RelayedMessage struct {
	SenderName string
	Content    string
}

// Notice is server generated informational text.
type Notice struct {
	Content string
}

func (Enter) Type() Type          { return TypeEnter }
func (Message) Type() Type        { return TypeMessage }
func (RelayedMessage) Type() Type { return TypeRelayedMessage }
func (Notice) Type() Type         { return TypeNotice }

// Frame is one decoded header and its typed payload.
type Frame struct {
	Header  Header
	Payload Payload
}
