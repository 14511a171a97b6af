package protocol

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// Decoder decodes frames with a bound on payload_length.
// The zero value uses DefaultMaxPayload.
type Decoder struct {
	MaxPayload uint32
}

func (d Decoder) maxPayload() uint32 {
	if d.MaxPayload == 0 {
		return DefaultMaxPayload
	}
	return d.MaxPayload
}

// DecodeHeader reads the fixed-size prefix of b. It only fails with
// ErrTruncatedHeader; the fields are validated by CheckHeader.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, ErrTruncatedHeader
	}
	return Header{
		Version:       binary.BigEndian.Uint32(b[0:4]),
		Type:          Type(binary.BigEndian.Uint32(b[4:8])),
		PayloadLength: binary.BigEndian.Uint32(b[8:12]),
	}, nil
}

// CheckHeader validates version, type and the payload length limit. It lets
// callers reject a bad frame before waiting for its payload.
func (d Decoder) CheckHeader(h Header) error {
	if h.Version != Version {
		return fmt.Errorf("%w: %d", ErrBadVersion, h.Version)
	}
	if !h.Type.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownType, uint32(h.Type))
	}
	if h.PayloadLength > d.maxPayload() {
		return fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, h.PayloadLength, d.maxPayload())
	}
	return nil
}

// DecodePayload decodes the payload described by h from b, which must start
// at the first payload byte. Bytes past h.PayloadLength are ignored.
func (d Decoder) DecodePayload(b []byte, h Header) (Payload, error) {
	if err := d.CheckHeader(h); err != nil {
		return nil, err
	}
	if uint64(len(b)) < uint64(h.PayloadLength) {
		return nil, ErrTruncatedPayload
	}
	body := b[:h.PayloadLength]

	switch h.Type {
	case TypeEnter:
		if len(body) == 0 {
			return nil, fmt.Errorf("%w: empty display name", ErrMalformedPayload)
		}
		name, err := text(body)
		if err != nil {
			return nil, err
		}
		return Enter{Name: name}, nil
	case TypeMessage:
		content, err := text(body)
		if err != nil {
			return nil, err
		}
		return Message{Content: content}, nil
	case TypeRelayedMessage:
		return decodeRelayed(body)
	case TypeNotice:
		content, err := text(body)
		if err != nil {
			return nil, err
		}
		return Notice{Content: content}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, uint32(h.Type))
	}
}

// Decode decodes one frame from the start of b and returns the number of bytes
// it consumed. Trailing bytes are left untouched, so on ErrTruncatedHeader or
// ErrTruncatedPayload the caller keeps b and retries once more bytes arrive.
func (d Decoder) Decode(b []byte) (Frame, int, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return Frame{}, 0, err
	}
	p, err := d.DecodePayload(b[HeaderSize:], h)
	if err != nil {
		return Frame{}, 0, err
	}
	return Frame{Header: h, Payload: p}, h.FrameSize(), nil
}

// DecodePayload decodes with the default limit.
func DecodePayload(b []byte, h Header) (Payload, error) {
	return Decoder{}.DecodePayload(b, h)
}

// Decode decodes one frame with the default limit.
func Decode(b []byte) (Frame, int, error) {
	return Decoder{}.Decode(b)
}

// Encode returns the complete frame for p. Decoding the result yields p again.
func Encode(p Payload) []byte {
	return Append(make([]byte, 0, HeaderSize+p.encodedLen()), p)
}

// Append appends the encoded frame for p to dst.
func Append(dst []byte, p Payload) []byte {
	dst = binary.BigEndian.AppendUint32(dst, Version)
	dst = binary.BigEndian.AppendUint32(dst, uint32(p.Type()))
	dst = binary.BigEndian.AppendUint32(dst, uint32(p.encodedLen()))
	return p.appendTo(dst)
}

func decodeRelayed(body []byte) (Payload, error) {
	if len(body) < 4 {
		return nil, fmt.Errorf("%w: missing sender name length", ErrMalformedPayload)
	}
	n := binary.BigEndian.Uint32(body[:4])
	rest := body[4:]
	if n == 0 || uint64(n) > uint64(len(rest)) {
		return nil, fmt.Errorf("%w: sender name length %d with %d bytes left", ErrMalformedPayload, n, len(rest))
	}
	name, err := text(rest[:n])
	if err != nil {
		return nil, err
	}
	content, err := text(rest[n:])
	if err != nil {
		return nil, err
	}
	return RelayedMessage{SenderName: name, Content: content}, nil
}

func text(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: invalid UTF-8", ErrMalformedPayload)
	}
	return string(b), nil
}

func (p Enter) encodedLen() int   { return len(p.Name) }
func (p Message) encodedLen() int { return len(p.Content) }
func (p Notice) encodedLen() int  { return len(p.Content) }

func (p RelayedMessage) encodedLen() int {
	return 4 + len(p.SenderName) + len(p.Content)
}

func (p Enter) appendTo(b []byte) []byte   { return append(b, p.Name...) }
func (p Message) appendTo(b []byte) []byte { return append(b, p.Content...) }
func (p Notice) appendTo(b []byte) []byte  { return append(b, p.Content...) }

func (p RelayedMessage) appendTo(b []byte) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(len(p.SenderName)))
	b = append(b, p.SenderName...)
	return append(b, p.Content...)
}
