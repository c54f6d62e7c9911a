// Package dispatch routes inbound private requests to their handlers
// and produces the required response, per §4.4's dispatch table. The
// transport calls Dispatcher.Handle once per inbound request, passing
// the origin peer identity; Handle always returns exactly one response
// message, satisfying the "exactly one response per request" contract.
package dispatch

import (
	"time"

	"github.com/swapbytes/swapbytes/internal/directory"
	"github.com/swapbytes/swapbytes/internal/events"
	"github.com/swapbytes/swapbytes/internal/identity"
	"github.com/swapbytes/swapbytes/internal/transfer"
	"github.com/swapbytes/swapbytes/internal/wire"
)

// Dispatcher holds the state private-request handlers mutate: the peer
// directory, the outgoing-transfer registry, and the pending-offer
// registry. It also holds the incoming-download registry and a
// download-directory accessor, which no handler reads. It is owned
// exclusively by the network task, like every state it touches.
type Dispatcher struct {
	dir         *directory.Directory
	outgoing    *transfer.OutgoingRegistry
	incoming    *transfer.IncomingRegistry
	pending     *transfer.PendingOffers
	downloadDir func() string
	now         func() time.Time
}

func New(dir *directory.Directory, outgoing *transfer.OutgoingRegistry, incoming *transfer.IncomingRegistry, pending *transfer.PendingOffers, downloadDir func() string) *Dispatcher {
	return &Dispatcher{dir: dir, outgoing: outgoing, incoming: incoming, pending: pending, downloadDir: downloadDir, now: time.Now}
}

// Handle processes one inbound private request from peer and returns
// the response to send back plus any UI events the side effect
// produced. Every branch of the §4.4 table is represented.
func (d *Dispatcher) Handle(req wire.Message, peer identity.ID) (wire.Message, []events.Event) {
	d.dir.Touch(peer, d.now())

	switch m := req.(type) {
	case *wire.ChatMessage:
		return wire.Ack{}, []events.Event{
			events.PrivateMessageReceived{Peer: peer, Content: m.Text, TimestampMs: d.now().UnixMilli()},
		}

	case *wire.Offer:
		d.pending.Put(peer, m.Filename, m.SizeBytes)
		return wire.Ack{}, []events.Event{
			events.FileOfferReceived{Peer: peer, Filename: m.Filename, Size: m.SizeBytes},
		}

	case *wire.DeclineOffer:
		d.outgoing.Delete(peer, m.Filename)
		return wire.Ack{}, []events.Event{
			events.FileOfferDeclined{Peer: peer, Filename: m.Filename},
		}

	case *wire.AcceptOffer:
		return wire.Ack{}, []events.Event{
			events.FileOfferAccepted{Peer: peer, Filename: m.Filename},
		}

	case *wire.RequestChunk:
		return d.handleRequestChunk(peer, m)

	default:
		return wire.TransferError{Error: "unrecognized request"}, nil
	}
}

// handleRequestChunk implements the sender-side of §4.6 via the
// transfer package's chunk service.
func (d *Dispatcher) handleRequestChunk(peer identity.ID, req *wire.RequestChunk) (wire.Message, []events.Event) {
	chunk, err := transfer.ServeChunk(d.outgoing, peer, *req)
	if err != nil {
		return wire.TransferError{Filename: req.Filename, Error: err.Error()}, []events.Event{
			events.LogLine{Level: events.LevelWarn, Message: "serve chunk failed: " + err.Error()},
		}
	}

	if chunk.IsLast {
		d.outgoing.Delete(peer, req.Filename)
	}
	return chunk, nil
}
