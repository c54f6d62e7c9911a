package transport

import (
	"github.com/swapbytes/swapbytes/internal/identity"
	"github.com/swapbytes/swapbytes/internal/wire"
)

// Event is the transport's own, narrower vocabulary of occurrences the
// network task folds into the richer events.Event stream it emits to
// the UI. Keeping this separate from events.Event avoids a dependency
// from the transport (a leaf, replaceable black box per the spec) onto
// the UI-facing event types.
type Event interface{ isTransportEvent() }

type baseEvent struct{}

func (baseEvent) isTransportEvent() {}

// PeerConnected fires once a Noise handshake completes, inbound or
// outbound.
type PeerConnected struct {
	baseEvent
	Peer identity.ID
}

// PeerDisconnected fires when a peer connection's read loop exits.
type PeerDisconnected struct {
	baseEvent
	Peer identity.ID
	Err  error
}

// PeerDiscovered fires for every service instance the mDNS browser
// observes on each query; it is not filtered against connected peers
// or against earlier results.
type PeerDiscovered struct {
	baseEvent
	Addr string
}

// GossipReceived carries a decoded gossip-topic message from peer.
type GossipReceived struct {
	baseEvent
	Peer identity.ID
	Msg  wire.Message
}

// PrivateRequestReceived carries an inbound private request from Peer.
// Respond must be called exactly once with the response message;
// calling it off the network task's own goroutine is safe since it
// only ever touches the originating connection's write path, never
// shared dispatch state.
type PrivateRequestReceived struct {
	baseEvent
	Peer    identity.ID
	Req     wire.Message
	Respond func(wire.Message)
}
