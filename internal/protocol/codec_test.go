package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

func samplePayloads() []Payload {
	return []Payload{
		Enter{Name: "alice"},
		Enter{Name: "世界"},
		Message{Content: "hi"},
		Message{Content: ""},
		Message{Content: "line\nwith\x00control\x07bytes"},
		RelayedMessage{SenderName: "bob", Content: "hello there"},
		RelayedMessage{SenderName: "b", Content: ""},
		Notice{Content: "User bob entered. Please say hello."},
		Notice{Content: ""},
	}
}

func rawFrame(version, typ uint32, payload []byte) []byte {
	b := make([]byte, HeaderSize, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(b[0:4], version)
	binary.BigEndian.PutUint32(b[4:8], typ)
	binary.BigEndian.PutUint32(b[8:12], uint32(len(payload)))
	return append(b, payload...)
}

// TestRoundTrip verifies that decoding an encoded payload reproduces it exactly.
func TestRoundTrip(t *testing.T) {
	for _, p := range samplePayloads() {
		t.Run(p.Type().String(), func(t *testing.T) {
			encoded := Encode(p)

			frame, n, err := Decode(encoded)
			if err != nil {
				t.Fatalf("Decode(%#v) returned error: %v", p, err)
			}
			if n != len(encoded) {
				t.Errorf("Expected %d bytes consumed, got %d", len(encoded), n)
			}
			if !reflect.DeepEqual(frame.Payload, p) {
				t.Errorf("Expected payload %#v, got %#v", p, frame.Payload)
			}
			want := Header{Version: Version, Type: p.Type(), PayloadLength: uint32(len(encoded) - HeaderSize)}
			if frame.Header != want {
				t.Errorf("Expected header %+v, got %+v", want, frame.Header)
			}
		})
	}
}

// TestEncodeLayout pins the byte layout of a relayed message.
func TestEncodeLayout(t *testing.T) {
	got := Encode(RelayedMessage{SenderName: "bob", Content: "hi"})
	want := []byte{
		0, 0, 0, 1, // version
		0, 0, 0, 2, // type
		0, 0, 0, 9, // payload length
		0, 0, 0, 3, 'b', 'o', 'b', 'h', 'i',
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

// TestTruncation verifies that every strict prefix of a frame asks for more bytes.
func TestTruncation(t *testing.T) {
	for _, p := range samplePayloads() {
		encoded := Encode(p)
		for i := 0; i < len(encoded); i++ {
			_, n, err := Decode(encoded[:i])
			if !IsIncomplete(err) {
				t.Fatalf("%s prefix %d/%d: expected incomplete error, got %v", p.Type(), i, len(encoded), err)
			}
			if n != 0 {
				t.Errorf("%s prefix %d: expected 0 bytes consumed, got %d", p.Type(), i, n)
			}
			wantErr := ErrTruncatedPayload
			if i < HeaderSize {
				wantErr = ErrTruncatedHeader
			}
			if !errors.Is(err, wantErr) {
				t.Errorf("%s prefix %d: expected %v, got %v", p.Type(), i, wantErr, err)
			}
		}
	}
}

// TestDecodeLeavesTrailingBytes verifies that concatenated frames decode one at a time.
func TestDecodeLeavesTrailingBytes(t *testing.T) {
	first := Encode(Message{Content: "one"})
	second := Encode(Message{Content: "two"})
	stream := append(append([]byte{}, first...), second...)
	original := append([]byte{}, stream...)

	frame, n, err := Decode(stream)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if n != len(first) {
		t.Errorf("Expected %d bytes consumed, got %d", len(first), n)
	}
	if got := frame.Payload.(Message).Content; got != "one" {
		t.Errorf("Expected first content %q, got %q", "one", got)
	}

	frame, _, err = Decode(stream[n:])
	if err != nil {
		t.Fatalf("Unexpected error on second frame: %v", err)
	}
	if got := frame.Payload.(Message).Content; got != "two" {
		t.Errorf("Expected second content %q, got %q", "two", got)
	}
	if !bytes.Equal(stream, original) {
		t.Error("Decode mutated its input")
	}
}

// TestDecodeErrors covers every protocol error class.
func TestDecodeErrors(t *testing.T) {
	relayed := func(nameLen uint32, rest string) []byte {
		b := binary.BigEndian.AppendUint32(nil, nameLen)
		return append(b, rest...)
	}

	tests := []struct {
		name    string
		input   []byte
		wantErr error
	}{
		{"Version zero", rawFrame(0, uint32(TypeMessage), []byte("x")), ErrBadVersion},
		{"Version two", rawFrame(2, uint32(TypeMessage), nil), ErrBadVersion},
		{"Unknown type", rawFrame(Version, 42, []byte("x")), ErrUnknownType},
		{"Empty name", rawFrame(Version, uint32(TypeEnter), nil), ErrMalformedPayload},
		{"Invalid UTF-8 name", rawFrame(Version, uint32(TypeEnter), []byte{0xff, 0xfe}), ErrMalformedPayload},
		{"Invalid UTF-8 message", rawFrame(Version, uint32(TypeMessage), []byte{'a', 0xc3}), ErrMalformedPayload},
		{"Relayed without length", rawFrame(Version, uint32(TypeRelayedMessage), []byte{0, 1}), ErrMalformedPayload},
		{"Relayed zero name", rawFrame(Version, uint32(TypeRelayedMessage), relayed(0, "hi")), ErrMalformedPayload},
		{"Relayed name overflow", rawFrame(Version, uint32(TypeRelayedMessage), relayed(10, "bob")), ErrMalformedPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, n, err := Decode(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
			if IsIncomplete(err) {
				t.Errorf("Error %v must not be reported as incomplete", err)
			}
			if n != 0 {
				t.Errorf("Expected 0 bytes consumed, got %d", n)
			}
		})
	}
}

// TestHeaderRejectedBeforePayload verifies that a bad header fails without its payload.
func TestHeaderRejectedBeforePayload(t *testing.T) {
	header := rawFrame(7, uint32(TypeMessage), make([]byte, 100))[:HeaderSize]
	if _, _, err := Decode(header); !errors.Is(err, ErrBadVersion) {
		t.Errorf("Expected %v, got %v", ErrBadVersion, err)
	}
}

// TestPayloadLimit verifies that an oversized payload_length is rejected early.
func TestPayloadLimit(t *testing.T) {
	d := Decoder{MaxPayload: 8}

	if _, _, err := d.Decode(Encode(Message{Content: "12345678"})); err != nil {
		t.Errorf("Payload at the limit should decode, got %v", err)
	}

	oversized := Encode(Message{Content: "123456789"})
	if _, _, err := d.Decode(oversized[:HeaderSize]); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("Expected %v, got %v", ErrPayloadTooLarge, err)
	}
}

// TestDecodeHeader verifies the fixed-size prefix parsing.
func TestDecodeHeader(t *testing.T) {
	if _, err := DecodeHeader(make([]byte, HeaderSize-1)); !errors.Is(err, ErrTruncatedHeader) {
		t.Errorf("Expected %v, got %v", ErrTruncatedHeader, err)
	}

	h, err := DecodeHeader(rawFrame(Version, uint32(TypeNotice), []byte("abc")))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := Header{Version: Version, Type: TypeNotice, PayloadLength: 3}
	if h != want {
		t.Errorf("Expected %+v, got %+v", want, h)
	}
}

// TestDecodePayloadIgnoresExtraBytes verifies the payload slice may run past the frame.
func TestDecodePayloadIgnoresExtraBytes(t *testing.T) {
	h := Header{Version: Version, Type: TypeMessage, PayloadLength: 2}
	p, err := DecodePayload([]byte("hiTRAILING"), h)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if p != (Message{Content: "hi"}) {
		t.Errorf("Expected hi, got %#v", p)
	}
}

// TestReadFrame verifies blocking reads over a byte stream.
func TestReadFrame(t *testing.T) {
	var stream bytes.Buffer
	for _, p := range samplePayloads() {
		if err := WriteFrame(&stream, p); err != nil {
			t.Fatalf("WriteFrame failed: %v", err)
		}
	}

	d := Decoder{}
	for _, want := range samplePayloads() {
		frame, err := d.ReadFrame(&stream)
		if err != nil {
			t.Fatalf("ReadFrame failed: %v", err)
		}
		if !reflect.DeepEqual(frame.Payload, want) {
			t.Errorf("Expected %#v, got %#v", want, frame.Payload)
		}
	}

	if _, err := d.ReadFrame(&stream); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF at end of stream, got %v", err)
	}

	partial := Encode(Message{Content: "cut short"})
	_, err := d.ReadFrame(bytes.NewReader(partial[:len(partial)-2]))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Expected io.ErrUnexpectedEOF, got %v", err)
	}
}

// TestTypeString covers the names used in logs.
func TestTypeString(t *testing.T) {
	tests := map[Type]string{
		TypeEnter:          "ENTER",
		TypeMessage:        "MESSAGE",
		TypeRelayedMessage: "RELAYED_MESSAGE",
		TypeNotice:         "NOTICE",
		Type(9):            "Type(9)",
	}
	for typ, want := range tests {
		if got := typ.String(); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	}
}

// TestRelayedFitsDefaultLimit tests that relaying the largest client name and
// content yields a frame the default decoder accepts.
func TestRelayedFitsDefaultLimit(t *testing.T) {
	name := strings.Repeat("n", int(MaxClientPayload))
	content := strings.Repeat("c", int(MaxClientPayload))

	if _, _, err := (Decoder{MaxPayload: MaxClientPayload}).Decode(Encode(Message{Content: content})); err != nil {
		t.Fatalf("Message at the client limit should decode, got %v", err)
	}

	encoded := Encode(RelayedMessage{SenderName: name, Content: content})
	if got := len(encoded) - HeaderSize; got > int(DefaultMaxPayload) {
		t.Fatalf("Relayed payload is %d bytes, over %d", got, DefaultMaxPayload)
	}
	frame, _, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Relayed frame at the limit should decode, got %v", err)
	}
	if got := frame.Payload.(RelayedMessage); got.SenderName != name || got.Content != content {
		t.Error("Relayed frame at the limit did not round-trip")
	}
}
