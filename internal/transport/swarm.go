// Package transport is the concrete networking black box behind the
// presence, dispatch, and transfer packages: TCP dial/listen, Noise XX
// authenticated encryption, mDNS discovery, and the gossip/request
// multiplexing described in SPEC_FULL.md. It is built directly on the
// teacher's peer-connection and scheduler idioms (see
// prxssh-rabbit/internal/peer and internal/scheduler) generalized from
// a single BitTorrent wire protocol to swapbytes's gossip and private
// request/response vocabularies.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/swapbytes/swapbytes/internal/identity"
	"github.com/swapbytes/swapbytes/internal/presence"
	"github.com/swapbytes/swapbytes/internal/wire"
)

// Swarm owns every established connection to other peers and the
// listener accepting new inbound ones. It is intended to be driven
// entirely from the network task's single select loop via Events().
//
// Inbound private requests are never dispatched from the connection's
// own read-loop goroutine: that would hand multiple goroutines a path
// into dispatch.Dispatcher's state, which the spec makes the network
// task's exclusive, lock-free property (§5). Instead a
// PrivateRequestReceived event carries the request and a Respond
// closure back through Events(), so the single select loop stays the
// only caller of Dispatcher.Handle.
type Swarm struct {
	local identity.Keypair
	log   *slog.Logger

	mu    sync.Mutex
	peers map[identity.ID]*peerConn

	events   chan Event
	listener net.Listener
}

// New constructs a Swarm authenticating as local. Call Listen to begin
// accepting inbound connections.
func New(local identity.Keypair, log *slog.Logger) *Swarm {
	return &Swarm{
		local:  local,
		log:    log,
		peers:  make(map[identity.ID]*peerConn),
		events: make(chan Event, 64),
	}
}

// Events returns the channel the network task should drain for
// connection lifecycle, gossip, and inbound-request notifications.
func (s *Swarm) Events() <-chan Event { return s.events }

// Listen starts accepting inbound connections on addr (host:port, port
// may be "0" to pick any free port) until ctx is cancelled.
func (s *Swarm) Listen(ctx context.Context, addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("transport: listen: %w", err)
	}
	s.listener = ln

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	go s.acceptLoop(ctx, ln)

	return ln.Addr().String(), nil
}

func (s *Swarm) acceptLoop(ctx context.Context, ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("accept failed", "error", err)
			continue
		}
		go s.handleInbound(ctx, conn)
	}
}

func (s *Swarm) handleInbound(ctx context.Context, conn net.Conn) {
	sess, err := handshakeInbound(conn, s.local)
	if err != nil {
		s.log.Warn("inbound handshake failed", "remote", conn.RemoteAddr(), "error", err)
		conn.Close()
		return
	}
	s.adopt(ctx, conn, sess)
}

// Dial opens an outbound connection to addr and performs the Noise
// handshake, registering the resulting peer connection.
func (s *Swarm) Dial(ctx context.Context, addr string) (identity.ID, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return identity.ID{}, fmt.Errorf("transport: dial: %w", err)
	}

	sess, err := handshakeOutbound(conn, s.local)
	if err != nil {
		conn.Close()
		return identity.ID{}, fmt.Errorf("transport: handshake: %w", err)
	}

	s.adopt(ctx, conn, sess)
	return sess.peer, nil
}

func (s *Swarm) adopt(ctx context.Context, conn net.Conn, sess session) {
	pc := newPeerConn(conn, sess)

	s.mu.Lock()
	if existing, ok := s.peers[pc.id]; ok {
		// A duplicate connection to an already-connected peer (both
		// sides dialed at once); keep the existing one and drop this.
		s.mu.Unlock()
		_ = existing
		conn.Close()
		return
	}
	s.peers[pc.id] = pc
	s.mu.Unlock()

	s.emit(PeerConnected{Peer: pc.id})
	go s.readLoop(ctx, pc)
}

func (s *Swarm) readLoop(ctx context.Context, pc *peerConn) {
	var loopErr error
	for {
		ch, msg, err := pc.readFrame()
		if err != nil {
			loopErr = err
			break
		}

		switch ch {
		case channelGossip:
			s.emit(GossipReceived{Peer: pc.id, Msg: msg})

		case channelPrivateRequest:
			conn := pc
			s.emit(PrivateRequestReceived{Peer: conn.id, Req: msg, Respond: func(resp wire.Message) {
				if err := conn.writeFrame(channelPrivateResponse, resp); err != nil {
					s.log.Warn("failed to send response", "peer", conn.id.Short(), "error", err)
				}
			}})

		case channelPrivateResponse:
			select {
			case pc.pending <- msg:
			default:
				// No SendRequest is awaiting a response; a misbehaving
				// or confused peer sent one unsolicited. Drop it.
			}
		}
	}

	s.mu.Lock()
	delete(s.peers, pc.id)
	s.mu.Unlock()
	close(pc.pending)
	pc.close()
	s.emit(PeerDisconnected{Peer: pc.id, Err: loopErr})
}

func (s *Swarm) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.log.Warn("transport event channel full, dropping event", "event", fmt.Sprintf("%T", ev))
	}
}

// PublishGossip broadcasts msg on the gossip channel to every connected
// peer, implementing presence.Publisher. It returns
// presence.ErrInsufficientPeers when no peer connections are
// established, which presence.Beacon.Tick silently ignores rather than
// logging (§3).
func (s *Swarm) PublishGossip(msg wire.Message) error {
	s.mu.Lock()
	peers := make([]*peerConn, 0, len(s.peers))
	for _, pc := range s.peers {
		peers = append(peers, pc)
	}
	s.mu.Unlock()

	if len(peers) == 0 {
		return presence.ErrInsufficientPeers
	}

	var firstErr error
	for _, pc := range peers {
		if err := pc.writeFrame(channelGossip, msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ presence.Publisher = (*Swarm)(nil)

// SendRequest performs a private request/response round trip with
// peer, serialized against any other outstanding request to that same
// peer (§4.4).
func (s *Swarm) SendRequest(peer identity.ID, req wire.Message) (wire.Message, error) {
	s.mu.Lock()
	pc, ok := s.peers[peer]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("transport: no connection to %s", peer.Short())
	}
	return pc.sendRequest(req)
}

// ConnectedPeers returns the identities of every currently connected
// peer.
func (s *Swarm) ConnectedPeers() []identity.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]identity.ID, 0, len(s.peers))
	for id := range s.peers {
		out = append(out, id)
	}
	return out
}
