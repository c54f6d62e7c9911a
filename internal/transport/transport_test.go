package transport

import (
	"net"
	"testing"

	"github.com/swapbytes/swapbytes/internal/identity"
	"github.com/swapbytes/swapbytes/internal/wire"
)

func handshakePair(t *testing.T) (*peerConn, *peerConn, identity.Keypair, identity.Keypair) {
	t.Helper()

	alice, err := identity.Generate()
	if err != nil {
		t.Fatalf("generate alice: %v", err)
	}
	bob, err := identity.Generate()
	if err != nil {
		t.Fatalf("generate bob: %v", err)
	}

	connA, connB := net.Pipe()

	type result struct {
		sess session
		err  error
	}
	outboundCh := make(chan result, 1)
	inboundCh := make(chan result, 1)

	go func() {
		sess, err := handshakeOutbound(connA, alice)
		outboundCh <- result{sess, err}
	}()
	go func() {
		sess, err := handshakeInbound(connB, bob)
		inboundCh <- result{sess, err}
	}()

	out := <-outboundCh
	in := <-inboundCh

	if out.err != nil {
		t.Fatalf("outbound handshake: %v", out.err)
	}
	if in.err != nil {
		t.Fatalf("inbound handshake: %v", in.err)
	}

	if out.sess.peer != bob.Public {
		t.Fatalf("outbound did not learn bob's identity: got %s want %s", out.sess.peer, bob.Public)
	}
	if in.sess.peer != alice.Public {
		t.Fatalf("inbound did not learn alice's identity: got %s want %s", in.sess.peer, alice.Public)
	}

	return newPeerConn(connA, out.sess), newPeerConn(connB, in.sess), alice, bob
}

func TestHandshakeEstablishesIdentities(t *testing.T) {
	pcA, pcB, alice, bob := handshakePair(t)
	defer pcA.close()
	defer pcB.close()

	if pcA.id != bob.Public {
		t.Fatalf("alice's conn should be tagged with bob's id")
	}
	if pcB.id != alice.Public {
		t.Fatalf("bob's conn should be tagged with alice's id")
	}
}

func TestFrameRoundTripOverEncryptedConn(t *testing.T) {
	pcA, pcB, _, _ := handshakePair(t)
	defer pcA.close()
	defer pcB.close()

	sent := wire.GlobalChatMessage{Content: "hello", TimestampMs: 1234, Nickname: "alice"}

	resultCh := make(chan error, 1)
	go func() {
		resultCh <- pcA.writeFrame(channelGossip, sent)
	}()

	ch, msg, err := pcB.readFrame()
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if err := <-resultCh; err != nil {
		t.Fatalf("writeFrame: %v", err)
	}

	if ch != channelGossip {
		t.Fatalf("expected channelGossip, got %v", ch)
	}
	got, ok := msg.(*wire.GlobalChatMessage)
	if !ok {
		t.Fatalf("unexpected message type %T", msg)
	}
	if got.Content != sent.Content || got.Nickname != sent.Nickname || got.TimestampMs != sent.TimestampMs {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, sent)
	}
}

func TestSendRequestReturnsMatchingResponse(t *testing.T) {
	pcA, pcB, _, _ := handshakePair(t)
	defer pcA.close()
	defer pcB.close()

	// bob's side: read the request, answer with an Ack.
	go func() {
		ch, _, err := pcB.readFrame()
		if err != nil || ch != channelPrivateRequest {
			return
		}
		_ = pcB.writeFrame(channelPrivateResponse, wire.Ack{})
	}()

	// alice's side: the swarm read loop normally demuxes responses into
	// pc.pending; emulate that here for just this one frame.
	go func() {
		ch, msg, err := pcA.readFrame()
		if err != nil || ch != channelPrivateResponse {
			return
		}
		pcA.pending <- msg
	}()

	resp, err := pcA.sendRequest(wire.ChatMessage{Text: "hi"})
	if err != nil {
		t.Fatalf("sendRequest: %v", err)
	}
	if _, ok := resp.(*wire.Ack); !ok {
		t.Fatalf("expected Ack response, got %T", resp)
	}
}
