package events

import "github.com/swapbytes/swapbytes/internal/identity"

// Command is implemented by every UI -> network variant.
type Command interface{ isCommand() }

type baseCmd struct{}

func (baseCmd) isCommand() {}

// SendGlobalMessage publishes text to the gossip chat topic.
type SendGlobalMessage struct {
	baseCmd
	Content string
}

// SendPrivateMessage sends a ChatMessage request to peer.
type SendPrivateMessage struct {
	baseCmd
	Peer    identity.ID
	Content string
}

// OfferFile begins the sender side of the file-offer workflow for a
// validated local path.
type OfferFile struct {
	baseCmd
	Peer     identity.ID
	Filename string
	Size     int64
	Path     string
}

// AcceptOffer begins the receiver side of the file-offer workflow.
type AcceptOffer struct {
	baseCmd
	Peer     identity.ID
	Filename string
}

// DeclineOffer rejects a pending offer.
type DeclineOffer struct {
	baseCmd
	Peer     identity.ID
	Filename string
}

// SetNickname changes the local nickname; the network task publishes a
// Heartbeat carrying the new name right away (when visible).
type SetNickname struct {
	baseCmd
	Nickname string
}

// SetDownloadDir changes the directory incoming files are written to.
// Validation (existence, directory-ness, writability) happens before
// this command is issued, in the command-parser boundary.
type SetDownloadDir struct {
	baseCmd
	Path string
}

// SetVisible toggles whether heartbeats are published.
type SetVisible struct {
	baseCmd
	Visible bool
}

// Ping dials addr and times a round trip.
type Ping struct {
	baseCmd
	Addr string
}

// Shutdown asks the network task to exit its select loop.
type Shutdown struct{ baseCmd }
