// Package events defines the closed set of typed variants that bridge
// the UI task and the network task: Events flow network -> UI, Commands
// flow UI -> network. Both are plain data, carried over buffered Go
// channels; neither task reaches into the other's state directly.
package events

import (
	"time"

	"github.com/swapbytes/swapbytes/internal/identity"
)

// Event is implemented by every network -> UI variant.
type Event interface{ isEvent() }

type base struct{}

func (base) isEvent() {}

// GlobalMessageReceived is a gossip chat line, ready to append to the
// global log.
type GlobalMessageReceived struct {
	base
	Sender      identity.ID
	Nickname    string
	Content     string
	TimestampMs int64
}

// PeerDiscovered fires each time the transport reports an established
// connection to a peer, including a reconnect of a peer seen before.
type PeerDiscovered struct {
	base
	Peer identity.ID
}

// PeerNicknameChanged fires only when a remote peer's nickname changes
// from a previously known non-empty name (§4.3).
type PeerNicknameChanged struct {
	base
	Peer    identity.ID
	OldName string
	NewName string
}

// PeerDirectoryUpdated carries a full directory snapshot, sent after
// any mutation the UI should reflect (new peer, status sweep, nickname
// change).
type PeerDirectoryUpdated struct {
	base
	Snapshot map[identity.ID]PeerView
}

// PeerView is the UI-facing projection of a directory record.
type PeerView struct {
	Nickname string
	Online   bool
	LastSeen time.Time
}

// PrivateMessageReceived is an inbound private ChatMessage.
type PrivateMessageReceived struct {
	base
	Peer        identity.ID
	Content     string
	TimestampMs int64
}

// PrivateMessageSent confirms a local SendPrivateMessage command was
// delivered and acknowledged, so the UI can append it to its own
// timeline for that peer.
type PrivateMessageSent struct {
	base
	Peer        identity.ID
	Content     string
	TimestampMs int64
}

// FileOfferReceived is an inbound Offer awaiting local accept/decline.
type FileOfferReceived struct {
	base
	Peer     identity.ID
	Filename string
	Size     int64
}

// FileOfferSent confirms a local Offer was dispatched.
type FileOfferSent struct {
	base
	Peer      identity.ID
	Filename  string
	Size      int64
	LocalPath string
}

// FileOfferDeclined mirrors a decline, whichever side originated it.
type FileOfferDeclined struct {
	base
	Peer     identity.ID
	Filename string
}

// FileOfferAccepted mirrors an accept, whichever side originated it.
type FileOfferAccepted struct {
	base
	Peer     identity.ID
	Filename string
}

// FileTransferProgress is a coalesced progress update: the UI mutates
// the tail item for (direction, filename) in place rather than
// appending.
type FileTransferProgress struct {
	base
	Peer      identity.ID
	Filename  string
	Direction Direction
	Received  int64
	Total     int64
}

// Direction distinguishes an upload (we are the sender) from a
// download (we are the receiver) for progress-item coalescing.
type Direction int

const (
	Upload Direction = iota
	Download
)

// FileTransferComplete reports the final on-disk path actually used.
type FileTransferComplete struct {
	base
	Peer      identity.ID
	Filename  string
	Direction Direction
	FinalPath string
	Size      int64
}

// FileTransferFailed reports any transfer-stage failure (§7).
type FileTransferFailed struct {
	base
	Peer      identity.ID
	Filename  string
	Direction Direction
	Error     string
}

// PingResult answers a /ping command with the measured round trip.
type PingResult struct {
	base
	Target string
	RTT    time.Duration
	Err    error
}

// LogLine is a user-visible informational or error line not tied to
// any other structured event (user errors, protocol-error log lines,
// transient-network-error log lines per §7's taxonomy).
type LogLine struct {
	base
	Level   Level
	Message string
}

type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)
