// Package presence implements the heartbeat subsystem: periodic
// publication of liveness to the gossip topic, and the policy for
// turning publish failures into log events rather than user-visible
// errors.
package presence

import (
	"errors"
	"log/slog"
	"time"

	"github.com/swapbytes/swapbytes/internal/wire"
)

// HeartbeatInterval and PeerTimeout are the presence subsystem's two
// fixed constants (§4.2).
const (
	HeartbeatInterval = 2 * time.Second
	PeerTimeout       = 8 * time.Second
)

// ErrInsufficientPeers is returned by a Publisher when nobody is
// currently subscribed to the gossip topic. It is expected during
// startup and is silently ignored rather than logged.
var ErrInsufficientPeers = errors.New("presence: insufficient peers")

// Publisher broadcasts a gossip message to the well-known topic. The
// transport's real implementation returns ErrInsufficientPeers when no
// peer is subscribed yet.
type Publisher interface {
	PublishGossip(msg wire.Message) error
}

// Beacon drives the heartbeat cadence. It is ticked by the network
// task's select loop; it carries no goroutine of its own, matching the
// cooperative single-event-loop model.
type Beacon struct {
	pub      Publisher
	log      *slog.Logger
	nickname func() string

	visible bool
}

// NewBeacon constructs a Beacon that starts visible. nickname is called
// at publish time so a live nickname change is reflected on the very
// next heartbeat.
func NewBeacon(pub Publisher, log *slog.Logger, nickname func() string) *Beacon {
	return &Beacon{pub: pub, log: log.With("component", "presence"), nickname: nickname, visible: true}
}

// SetVisible toggles whether Tick publishes. Hiding does not tear down
// connections or unsubscribe; it only stops the outbound heartbeat.
func (b *Beacon) SetVisible(v bool) { b.visible = v }

// Visible reports the current visibility toggle.
func (b *Beacon) Visible() bool { return b.visible }

// Tick is called once per HEARTBEAT_INTERVAL by the network task. It
// publishes a Heartbeat if visible, and applies the failure policy from
// §4.2: InsufficientPeers is silently ignored; any other publish or
// serialization failure is logged, never surfaced to the user, and
// never stops the cadence.
func (b *Beacon) Tick(now time.Time) {
	if !b.visible {
		return
	}

	hb := wire.Heartbeat{TimestampMs: now.UnixMilli(), Nickname: b.nickname()}

	if err := b.pub.PublishGossip(hb); err != nil {
		if errors.Is(err, ErrInsufficientPeers) {
			return
		}
		b.log.Warn("heartbeat publish failed", "error", err)
	}
}
