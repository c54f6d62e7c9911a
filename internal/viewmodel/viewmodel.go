// Package viewmodel owns the UI task's exclusive state: the global and
// per-peer chat logs, pending offers, and the scroll-sticky policy
// applied uniformly at every append site (§4.7, §9).
package viewmodel

import (
	"github.com/swapbytes/swapbytes/internal/identity"
)

// ChatMessage is an immutable record in a chat log.
type ChatMessage struct {
	SenderIdentity         identity.ID
	SenderNicknameSnapshot string
	Content                string
	TimestampMs            int64
}

// ItemKind tags a PrivateChatItem variant.
type ItemKind int

const (
	ItemMessage ItemKind = iota
	ItemOfferReceived
	ItemOfferSent
	ItemOfferAcceptedByRemote
	ItemOfferDeclinedByRemote
	ItemTransferProgress
	ItemTransferComplete
	ItemTransferFailed
)

// Direction distinguishes an upload from a download for progress-item
// coalescing, mirroring events.Direction without importing it (the
// view model is a leaf package).
type Direction int

const (
	Upload Direction = iota
	Download
)

// PrivateChatItem is the closed tagged-variant union described in §3.
// Only the fields relevant to Kind are populated; Go has no sum types,
// so this mirrors the teacher's own style of a discriminated struct
// (see protocol.Message's ID+Payload shape) rather than an interface
// per variant, since most fields here are scalar and shared.
type PrivateChatItem struct {
	Kind      ItemKind
	Message   ChatMessage
	Filename  string
	Size      int64
	Received  int64
	Direction Direction
	FinalPath string
	LocalPath string
	Error     string
}

// pendingKey indexes PendingOffer by (peer, filename).
type pendingKey struct {
	Peer     identity.ID
	Filename string
}

// PendingOffer is an incoming offer awaiting local accept/decline.
type PendingOffer struct {
	Filename string
	Size     int64
}

// ViewModel is the UI task's single root of state. It is never touched
// by the network task; every mutation here is driven by an Event
// received over the network->UI channel or by direct user input.
type ViewModel struct {
	Global       []ChatMessage
	Private      map[identity.ID][]PrivateChatItem
	PendingOffer map[pendingKey]PendingOffer
	Scroll       ScrollState
}

func New() *ViewModel {
	return &ViewModel{
		Private:      make(map[identity.ID][]PrivateChatItem),
		PendingOffer: make(map[pendingKey]PendingOffer),
		Scroll:       NewScrollState(),
	}
}

// AppendGlobal appends a global chat message and applies the
// scroll-sticky policy.
func (v *ViewModel) AppendGlobal(msg ChatMessage) {
	v.Global = append(v.Global, msg)
	v.Scroll.OnAppend(len(v.Global))
}

// AppendPrivate appends a private-timeline item for peer, applying
// scroll-sticky and, for TransferProgress items, coalescing into the
// existing tail item for the same (direction, filename) rather than
// growing the log per chunk.
func (v *ViewModel) AppendPrivate(peer identity.ID, item PrivateChatItem) {
	log := v.Private[peer]

	if item.Kind == ItemTransferProgress && len(log) > 0 {
		tail := &log[len(log)-1]
		if tail.Kind == ItemTransferProgress && tail.Filename == item.Filename && tail.Direction == item.Direction {
			tail.Received = item.Received
			tail.Size = item.Size
			v.Private[peer] = log
			v.Scroll.OnAppend(v.totalLen())
			return
		}
	}

	log = append(log, item)
	v.Private[peer] = log
	v.Scroll.OnAppend(v.totalLen())
}

func (v *ViewModel) totalLen() int {
	n := len(v.Global)
	for _, l := range v.Private {
		n += len(l)
	}
	return n
}

// SetPendingOffer records an incoming offer awaiting local
// accept/decline.
func (v *ViewModel) SetPendingOffer(peer identity.ID, filename string, size int64) {
	v.PendingOffer[pendingKey{peer, filename}] = PendingOffer{Filename: filename, Size: size}
}

// ClearPendingOffer removes a pending offer entry, on accept or
// decline.
func (v *ViewModel) ClearPendingOffer(peer identity.ID, filename string) {
	delete(v.PendingOffer, pendingKey{peer, filename})
}

// RewriteNickname rewrites sender_nickname_snapshot on every existing
// message from peer, in both the global log and peer's private log,
// per §4.3's rule that a nickname change must be reflected on past
// messages so the view stays consistent. Message items are the only
// items mutated; this does not violate the append-only invariant on
// message *content*, only the display-name snapshot (§8 invariant 5).
func (v *ViewModel) RewriteNickname(peer identity.ID, newName string) {
	for i := range v.Global {
		if v.Global[i].SenderIdentity == peer {
			v.Global[i].SenderNicknameSnapshot = newName
		}
	}
	for i := range v.Private[peer] {
		item := &v.Private[peer][i]
		if item.Kind == ItemMessage && item.Message.SenderIdentity == peer {
			item.Message.SenderNicknameSnapshot = newName
		}
	}
}
