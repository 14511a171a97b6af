// Package integration runs the relay chat server over real TCP sockets.
package integration

import (
	"fmt"
	"testing"

	"github.com/Tyrowin/relaychat/internal/client"
	"github.com/Tyrowin/relaychat/internal/protocol"
	"github.com/Tyrowin/relaychat/internal/server"
	"github.com/Tyrowin/relaychat/test/testhelpers"
)

// TestChatSession tests a full session: two clients enter, talk and one leaves.
func TestChatSession(t *testing.T) {
	env := testhelpers.StartServer(t, testhelpers.TestConfig())

	alice := env.Join("alice")
	bob := env.Join("bob")
	testhelpers.ExpectPayload(t, alice, protocol.Notice{Content: "User bob entered. Please say hello."})

	if err := bob.Send("hi"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	testhelpers.ExpectPayload(t, alice, protocol.RelayedMessage{SenderName: "bob", Content: "hi"})
	testhelpers.ExpectNoPayload(t, bob)

	if err := bob.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	testhelpers.ExpectPayload(t, alice, protocol.Notice{Content: "User bob get out."})
	testhelpers.WaitForConnections(t, env.Hub, 2)
}

// TestMultipleClientsBroadcast tests that each message reaches every other entered client.
func TestMultipleClientsBroadcast(t *testing.T) {
	env := testhelpers.StartServer(t, testhelpers.TestConfig())

	names := []string{"ann", "ben", "cat", "dan"}
	members := make(map[string]*client.Client, len(names))
	for i, name := range names {
		members[name] = env.Join(name)
		for _, earlier := range names[:i] {
			testhelpers.ExpectPayload(t, members[earlier], protocol.Notice{Content: server.JoinNotice(name)})
		}
	}

	for _, sender := range names {
		content := fmt.Sprintf("hello from %s", sender)
		if err := members[sender].Send(content); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		for _, receiver := range names {
			if receiver == sender {
				continue
			}
			testhelpers.ExpectPayload(t, members[receiver], protocol.RelayedMessage{SenderName: sender, Content: content})
		}
	}

	for _, name := range names {
		testhelpers.ExpectNoPayload(t, members[name])
	}
}

// TestDuplicateNameOverTCP tests that a second client using a taken name is disconnected.
func TestDuplicateNameOverTCP(t *testing.T) {
	env := testhelpers.StartServer(t, testhelpers.TestConfig())
	alice := env.Join("alice")

	impostor := env.Connect()
	if err := impostor.Enter("alice"); err != nil {
		t.Fatalf("Enter failed: %v", err)
	}

	testhelpers.ExpectClosed(t, impostor)
	testhelpers.ExpectNoPayload(t, alice)
	testhelpers.WaitForConnections(t, env.Hub, 2)
}

// TestMessageBeforeEnterOverTCP tests that speaking before entering closes the connection.
func TestMessageBeforeEnterOverTCP(t *testing.T) {
	env := testhelpers.StartServer(t, testhelpers.TestConfig())
	alice := env.Join("alice")

	rude := env.Connect()
	if err := rude.Send("hello?"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	testhelpers.ExpectClosed(t, rude)
	testhelpers.ExpectNoPayload(t, alice)
}

// TestOversizedFrameOverTCP tests that a payload_length above the limit closes the connection.
func TestOversizedFrameOverTCP(t *testing.T) {
	cfg := testhelpers.TestConfig()
	cfg.MaxPayloadSize = 16
	env := testhelpers.StartServer(t, cfg)
	alice := env.Join("alice")
	bob := env.Join("bob")
	testhelpers.ExpectPayload(t, alice, protocol.Notice{Content: server.JoinNotice("bob")})

	if err := bob.Send("this message is far too long"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	testhelpers.ExpectClosed(t, bob)
	testhelpers.ExpectPayload(t, alice, protocol.Notice{Content: server.LeaveNotice("bob")})
}

// TestMaxConnectionsOverTCP tests that connections over the limit are closed on accept.
func TestMaxConnectionsOverTCP(t *testing.T) {
	cfg := testhelpers.TestConfig()
	cfg.MaxConnections = 2
	env := testhelpers.StartServer(t, cfg)
	env.Join("alice")

	extra := env.Connect()
	testhelpers.ExpectClosed(t, extra)
	testhelpers.WaitForConnections(t, env.Hub, 2)
}
