// Package network implements the network task: the single goroutine
// that exclusively owns the swarm handle, the peer directory, and both
// transfer registries (§2, §5). It consumes commands from the UI task
// and events from the transport, and is the only caller of
// dispatch.Dispatcher and the transfer state machines — every other
// goroutine this package spawns (for blocking dials and request/
// response round trips) reports its result back through a completion
// channel instead of touching that state directly.
package network

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/swapbytes/swapbytes/internal/directory"
	"github.com/swapbytes/swapbytes/internal/dispatch"
	"github.com/swapbytes/swapbytes/internal/events"
	"github.com/swapbytes/swapbytes/internal/identity"
	"github.com/swapbytes/swapbytes/internal/presence"
	"github.com/swapbytes/swapbytes/internal/transfer"
	"github.com/swapbytes/swapbytes/internal/transport"
	"github.com/swapbytes/swapbytes/internal/wire"
)

// staleSweepInterval is how often the network task checks the
// directory for peers that have gone quiet, independent of the
// HEARTBEAT_INTERVAL at which we publish our own presence.
const staleSweepInterval = time.Second

// swarmHandle is the slice of *transport.Swarm the network task
// actually drives. Depending on this narrow interface rather than the
// concrete type keeps the transport the replaceable black box the
// spec describes it as (§1) and lets tests substitute a fake without a
// real socket.
type swarmHandle interface {
	Events() <-chan transport.Event
	PublishGossip(msg wire.Message) error
	SendRequest(peer identity.ID, req wire.Message) (wire.Message, error)
	Dial(ctx context.Context, addr string) (identity.ID, error)
}

// Task is the network task's exclusive state. Construct with New and
// drive it with Run from a single goroutine.
type Task struct {
	self  identity.Keypair
	swarm swarmHandle
	log   *slog.Logger

	beacon     *presence.Beacon
	dir        *directory.Directory
	dispatcher *dispatch.Dispatcher
	outgoing   *transfer.OutgoingRegistry
	incoming   *transfer.IncomingRegistry
	pending    *transfer.PendingOffers

	commands <-chan events.Command
	out      chan<- events.Event

	// completions carries continuations from goroutines doing blocking
	// transport I/O back onto the single loop goroutine, so every
	// mutation of dir/outgoing/incoming/pending happens from exactly
	// one place.
	completions chan func()

	nickname    string
	downloadDir string
}

// Config carries the task's initial operator-facing settings.
type Config struct {
	Nickname    string
	DownloadDir string
	Visible     bool
}

// New wires a Task around an already-listening swarm. commands is
// drained for UI->network traffic; out is the UI-facing event sink.
func New(self identity.Keypair, swarm *transport.Swarm, cfg Config, commands <-chan events.Command, out chan<- events.Event, log *slog.Logger) *Task {
	return newTask(self, swarm, cfg, commands, out, log)
}

func newTask(self identity.Keypair, swarm swarmHandle, cfg Config, commands <-chan events.Command, out chan<- events.Event, log *slog.Logger) *Task {
	t := &Task{
		self:        self,
		swarm:       swarm,
		log:         log.With("component", "network"),
		dir:         directory.New(self.Public, presence.PeerTimeout),
		outgoing:    transfer.NewOutgoingRegistry(),
		incoming:    transfer.NewIncomingRegistry(),
		pending:     transfer.NewPendingOffers(),
		commands:    commands,
		out:         out,
		completions: make(chan func(), 64),
		nickname:    cfg.Nickname,
		downloadDir: cfg.DownloadDir,
	}
	t.beacon = presence.NewBeacon(swarm, log, func() string { return t.nickname })
	t.beacon.SetVisible(cfg.Visible)
	t.dispatcher = dispatch.New(t.dir, t.outgoing, t.incoming, t.pending, func() string { return t.downloadDir })
	return t
}

func (t *Task) emit(ev events.Event) { t.out <- ev }

// Run drives the select loop described in §5 until ctx is cancelled or
// a Shutdown command is processed. It carries no goroutine of its own
// beyond the ones it explicitly spawns for blocking I/O.
func (t *Task) Run(ctx context.Context) {
	heartbeat := time.NewTicker(presence.HeartbeatInterval)
	defer heartbeat.Stop()
	sweep := time.NewTicker(staleSweepInterval)
	defer sweep.Stop()

	dialed := make(map[string]struct{})
	transportEvents := t.swarm.Events()

	for {
		select {
		case <-ctx.Done():
			return

		case now := <-heartbeat.C:
			t.beacon.Tick(now)

		case now := <-sweep.C:
			t.dir.SweepStale(now)
			t.emitDirectorySnapshot()

		case cmd, ok := <-t.commands:
			if !ok {
				return
			}
			if t.handleCommand(ctx, cmd) {
				return
			}

		case ev, ok := <-transportEvents:
			if !ok {
				return
			}
			t.handleTransportEvent(ctx, ev, dialed)

		case fn := <-t.completions:
			fn()
		}
	}
}

// handleCommand applies one UI->network command. It returns true if
// the task should exit its loop (Shutdown).
func (t *Task) handleCommand(ctx context.Context, cmd events.Command) bool {
	switch c := cmd.(type) {
	case events.SendGlobalMessage:
		t.handleSendGlobalMessage(c)

	case events.SendPrivateMessage:
		t.handleSendPrivateMessage(c)

	case events.OfferFile:
		t.handleOfferFile(c)

	case events.AcceptOffer:
		t.handleAcceptOffer(c)

	case events.DeclineOffer:
		t.handleDeclineOffer(c)

	case events.SetNickname:
		t.nickname = c.Nickname
		t.beacon.Tick(time.Now())

	case events.SetDownloadDir:
		t.downloadDir = c.Path

	case events.SetVisible:
		t.beacon.SetVisible(c.Visible)

	case events.Ping:
		t.handlePing(ctx, c)

	case events.Shutdown:
		return true
	}
	return false
}

func (t *Task) handleSendGlobalMessage(c events.SendGlobalMessage) {
	now := time.Now()
	msg := wire.GlobalChatMessage{Content: c.Content, TimestampMs: now.UnixMilli(), Nickname: t.nickname}

	if err := t.swarm.PublishGossip(msg); err != nil {
		if err == presence.ErrInsufficientPeers {
			t.log.Debug("global message published with no subscribers")
		} else {
			t.log.Warn("global message publish failed", "error", err)
		}
	}

	// The gossip channel never echoes our own publish back to us, so the
	// network task emits the local copy directly.
	t.emit(events.GlobalMessageReceived{
		Sender:      t.self.Public,
		Nickname:    t.nickname,
		Content:     c.Content,
		TimestampMs: now.UnixMilli(),
	})
}

func (t *Task) handleSendPrivateMessage(c events.SendPrivateMessage) {
	peer, content := c.Peer, c.Content
	go func() {
		resp, err := t.swarm.SendRequest(peer, wire.ChatMessage{Text: content})
		t.completions <- func() {
			if err != nil {
				t.emit(events.LogLine{Level: events.LevelWarn, Message: fmt.Sprintf("message to %s failed: %v", peer.Short(), err)})
				return
			}
			if te, ok := resp.(*wire.TransferError); ok {
				t.emit(events.LogLine{Level: events.LevelWarn, Message: fmt.Sprintf("message to %s rejected: %s", peer.Short(), te.Error)})
				return
			}
			t.emit(events.PrivateMessageSent{Peer: peer, Content: content, TimestampMs: time.Now().UnixMilli()})
		}
	}()
}

// handleOfferFile implements §4.5's sender-side steps 2-3. The
// registry insert happens inline, before the request is even
// dispatched to a goroutine, preserving the insertion-before-send
// ordering the spec calls essential.
func (t *Task) handleOfferFile(c events.OfferFile) {
	t.outgoing.Put(c.Peer, c.Filename, c.Path)

	peer, filename, size, path := c.Peer, c.Filename, c.Size, c.Path
	go func() {
		_, err := t.swarm.SendRequest(peer, wire.Offer{Filename: filename, SizeBytes: size})
		t.completions <- func() {
			if err != nil {
				t.outgoing.Delete(peer, filename)
				t.emit(events.LogLine{Level: events.LevelWarn, Message: fmt.Sprintf("offer to %s failed: %v", peer.Short(), err)})
				return
			}
			t.emit(events.FileOfferSent{Peer: peer, Filename: filename, Size: size, LocalPath: path})
		}
	}()
}

// handleAcceptOffer implements §4.5's receiver-side steps 1-5.
func (t *Task) handleAcceptOffer(c events.AcceptOffer) {
	if t.downloadDir == "" {
		t.emit(events.LogLine{Level: events.LevelError, Message: "no download directory set; use /setdir first"})
		return
	}

	size, ok := t.pending.Get(c.Peer, c.Filename)
	if !ok {
		t.emit(events.LogLine{Level: events.LevelError, Message: fmt.Sprintf("no pending offer for %q from %s", c.Filename, c.Peer.Short())})
		return
	}

	if _, err := t.incoming.Start(c.Peer, c.Filename, size, t.downloadDir); err != nil {
		t.emit(events.LogLine{Level: events.LevelError, Message: fmt.Sprintf("accept %q failed: %v", c.Filename, err)})
		return
	}
	t.pending.Delete(c.Peer, c.Filename)

	peer, filename := c.Peer, c.Filename
	go func() {
		_, err := t.swarm.SendRequest(peer, wire.AcceptOffer{Filename: filename})
		t.completions <- func() {
			if err != nil {
				t.incoming.Abort(peer, filename)
				t.emit(events.FileTransferFailed{Peer: peer, Filename: filename, Direction: events.Download, Error: err.Error()})
				return
			}
			t.emit(events.FileOfferAccepted{Peer: peer, Filename: filename})
			t.requestNextChunk(peer, filename, 0)
		}
	}()
}

func (t *Task) handleDeclineOffer(c events.DeclineOffer) {
	t.pending.Delete(c.Peer, c.Filename)
	t.emit(events.FileOfferDeclined{Peer: c.Peer, Filename: c.Filename})

	peer, filename := c.Peer, c.Filename
	go func() {
		if _, err := t.swarm.SendRequest(peer, wire.DeclineOffer{Filename: filename}); err != nil {
			t.completions <- func() {
				t.emit(events.LogLine{Level: events.LevelWarn, Message: fmt.Sprintf("decline notice to %s failed: %v", peer.Short(), err)})
			}
		}
	}()
}

func (t *Task) handlePing(ctx context.Context, c events.Ping) {
	addr := c.Addr
	go func() {
		start := time.Now()
		_, err := t.swarm.Dial(ctx, addr)
		rtt := time.Since(start)
		t.completions <- func() {
			t.emit(events.PingResult{Target: addr, RTT: rtt, Err: err})
		}
	}()
}

// requestNextChunk drives the receiver-side chunk loop (§4.6). It
// sends exactly one RequestChunk and, when the response arrives,
// either requests the next index or finalizes/fails the transfer —
// never more than one request in flight per transfer, satisfying §8
// invariant 1.
func (t *Task) requestNextChunk(peer identity.ID, filename string, idx uint32) {
	go func() {
		resp, err := t.swarm.SendRequest(peer, wire.RequestChunk{Filename: filename, ChunkIndex: idx})
		t.completions <- func() { t.onChunkResponse(peer, filename, resp, err) }
	}()
}

func (t *Task) onChunkResponse(peer identity.ID, filename string, resp wire.Message, err error) {
	if err != nil {
		t.incoming.Abort(peer, filename)
		t.emit(events.FileTransferFailed{Peer: peer, Filename: filename, Direction: events.Download, Error: err.Error()})
		return
	}

	switch m := resp.(type) {
	case *wire.TransferError:
		t.incoming.Abort(peer, filename)
		t.emit(events.FileTransferFailed{Peer: peer, Filename: filename, Direction: events.Download, Error: m.Error})

	case *wire.FileChunk:
		result := t.incoming.ProcessChunk(peer, *m, t.downloadDir)
		switch result.Outcome {
		case transfer.OutcomeDropped:
			t.log.Warn("dropped chunk", "peer", peer.Short(), "file", filename, "chunk", m.ChunkIndex)

		case transfer.OutcomeWritten:
			t.requestNextChunk(peer, filename, m.ChunkIndex+1)

		case transfer.OutcomeProgress:
			t.emit(events.FileTransferProgress{Peer: peer, Filename: filename, Direction: events.Download, Received: result.Received, Total: result.Total})
			t.requestNextChunk(peer, filename, m.ChunkIndex+1)

		case transfer.OutcomeComplete:
			if result.Progress {
				t.emit(events.FileTransferProgress{Peer: peer, Filename: filename, Direction: events.Download, Received: result.Received, Total: result.Total})
			}
			t.emit(events.FileTransferComplete{Peer: peer, Filename: filename, Direction: events.Download, FinalPath: result.FinalPath, Size: result.Received})

		case transfer.OutcomeFailed:
			t.emit(events.FileTransferFailed{Peer: peer, Filename: filename, Direction: events.Download, Error: result.Err.Error()})
		}

	default:
		t.incoming.Abort(peer, filename)
		t.emit(events.FileTransferFailed{Peer: peer, Filename: filename, Direction: events.Download, Error: "unexpected response to chunk request"})
	}
}

// handleTransportEvent folds one transport.Event into directory
// mutations and, where relevant, UI-facing events. This is the only
// place transport.PrivateRequestReceived is answered, keeping
// dispatch.Dispatcher's state single-owner.
func (t *Task) handleTransportEvent(ctx context.Context, ev transport.Event, dialed map[string]struct{}) {
	switch e := ev.(type) {
	case transport.PeerConnected:
		t.dir.Touch(e.Peer, time.Now())
		t.emit(events.PeerDiscovered{Peer: e.Peer})
		t.emitDirectorySnapshot()

	case transport.PeerDisconnected:
		if e.Err != nil {
			t.log.Debug("peer connection closed", "peer", e.Peer.Short(), "error", e.Err)
		}

	case transport.PeerDiscovered:
		if _, tried := dialed[e.Addr]; tried {
			return
		}
		dialed[e.Addr] = struct{}{}
		addr := e.Addr
		go func() {
			if _, err := t.swarm.Dial(ctx, addr); err != nil {
				t.log.Debug("dial discovered peer failed", "addr", addr, "error", err)
			}
		}()

	case transport.GossipReceived:
		t.handleGossip(e)

	case transport.PrivateRequestReceived:
		resp, evs := t.dispatcher.Handle(e.Req, e.Peer)
		for _, ev := range evs {
			t.emit(ev)
		}
		e.Respond(resp)
		t.emitDirectorySnapshot()
	}
}

func (t *Task) handleGossip(e transport.GossipReceived) {
	switch m := e.Msg.(type) {
	case *wire.Heartbeat:
		change, changed := t.dir.UpdateNickname(e.Peer, m.Nickname, time.Now())
		if changed {
			t.log.Info("peer renamed", "peer", e.Peer.Short(), "from", change.OldName, "to", change.NewName)
			t.emit(events.PeerNicknameChanged{Peer: e.Peer, OldName: change.OldName, NewName: change.NewName})
		}
		t.emitDirectorySnapshot()

	case *wire.GlobalChatMessage:
		t.dir.Touch(e.Peer, time.Now())
		t.emit(events.GlobalMessageReceived{Sender: e.Peer, Nickname: m.Nickname, Content: m.Content, TimestampMs: m.TimestampMs})
		t.emitDirectorySnapshot()
	}
}

func (t *Task) emitDirectorySnapshot() {
	snap := t.dir.Snapshot()
	view := make(map[identity.ID]events.PeerView, len(snap))
	for id, r := range snap {
		view[id] = events.PeerView{Nickname: r.Nickname, Online: r.Status == directory.Online, LastSeen: r.LastSeen}
	}
	t.emit(events.PeerDirectoryUpdated{Snapshot: view})
}
