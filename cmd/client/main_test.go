package main

import (
	"bytes"
	"io"
	"net"
	"reflect"
	"testing"

	"github.com/Tyrowin/relaychat/internal/client"
	"github.com/Tyrowin/relaychat/internal/protocol"
)

// TestRunLines tests that input lines are sent and server frames are printed.
func TestRunLines(t *testing.T) {
	local, remote := net.Pipe()
	c := client.New(local)
	defer c.Close()

	in, inWriter := io.Pipe()
	defer inWriter.Close()

	serverErr := make(chan error, 1)
	go func() {
		var d protocol.Decoder
		frame, err := d.ReadFrame(remote)
		if err != nil {
			serverErr <- err
			return
		}
		if want := (protocol.Message{Content: "hello"}); !reflect.DeepEqual(frame.Payload, want) {
			t.Errorf("Expected %#v, got %#v", want, frame.Payload)
		}
		if err := protocol.WriteFrame(remote, protocol.RelayedMessage{SenderName: "bob", Content: "hi alice"}); err != nil {
			serverErr <- err
			return
		}
		serverErr <- remote.Close()
	}()

	go func() { _, _ = io.WriteString(inWriter, "hello\n") }()

	var out bytes.Buffer
	if err := runLines(c, in, &out); err != nil {
		t.Fatalf("runLines failed: %v", err)
	}
	if err := <-serverErr; err != nil {
		t.Fatalf("Fake server failed: %v", err)
	}

	want := "bob : hi alice\nconnection closed by server\n"
	if out.String() != want {
		t.Errorf("Expected output %q, got %q", want, out.String())
	}
}
