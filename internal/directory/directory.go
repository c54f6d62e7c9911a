// Package directory maintains the live view of the peer set: nickname,
// presence status, and last-seen timestamp per remote peer identity.
package directory

import (
	"time"

	"github.com/swapbytes/swapbytes/internal/identity"
)

// Status is a peer's presence state as seen by the local directory.
type Status int

const (
	Online Status = iota
	HiddenOrStale
)

func (s Status) String() string {
	if s == Online {
		return "online"
	}
	return "hidden-or-stale"
}

// Record is a directory entry for one remote peer.
type Record struct {
	Nickname string
	Status   Status
	LastSeen time.Time
}

// NicknameChange describes a nickname transition worth logging: the
// directory only reports changes *from* a previously known non-empty
// name, per the silent-first-assignment rule.
type NicknameChange struct {
	Peer    identity.ID
	OldName string
	NewName string
}

// Directory is the peer-identity -> Record map. It has exactly one
// owner, the network task's event loop, and is therefore never locked:
// the UI task only ever sees a Snapshot handed to it over the event
// channel, never a live reference.
type Directory struct {
	self    identity.ID
	records map[identity.ID]*Record
	timeout time.Duration
}

// New creates an empty directory. self is never inserted into its own
// map, per the spec's data-model invariant. timeout is the peer
// liveness window (PEER_TIMEOUT).
func New(self identity.ID, timeout time.Duration) *Directory {
	return &Directory{
		self:    self,
		records: make(map[identity.ID]*Record),
		timeout: timeout,
	}
}

// Touch refreshes last_seen for peer, inserting a fresh Online record
// if this is the first signal seen from it. Writers: discovery events,
// heartbeats, connection-established, and any inbound message.
func (d *Directory) Touch(peer identity.ID, now time.Time) {
	if peer == d.self {
		return
	}

	r, ok := d.records[peer]
	if !ok {
		r = &Record{}
		d.records[peer] = r
	}
	r.LastSeen = now
	r.Status = Online
}

// UpdateNickname applies a nickname update distinct from a heartbeat's
// implicit touch, returning a NicknameChange to log when the change is
// from a previously known non-empty name. First-time assignment
// returns ok=false (silent, per §4.3).
func (d *Directory) UpdateNickname(peer identity.ID, nickname string, now time.Time) (change NicknameChange, ok bool) {
	if peer == d.self {
		return NicknameChange{}, false
	}

	r, exists := d.records[peer]
	if !exists {
		r = &Record{}
		d.records[peer] = r
	}
	r.LastSeen = now
	r.Status = Online

	old := r.Nickname
	if old == nickname {
		return NicknameChange{}, false
	}
	// An empty nickname never clobbers a known one; it still counts as
	// a liveness signal above, just not a name change.
	if nickname == "" && old != "" {
		return NicknameChange{}, false
	}

	r.Nickname = nickname

	if old == "" {
		return NicknameChange{}, false
	}
	return NicknameChange{Peer: peer, OldName: old, NewName: nickname}, true
}

// SweepStale marks every record whose last_seen predates now-timeout as
// Hidden-or-Stale. It never deletes a record and never rewinds
// last_seen, preserving the monotonic last_seen invariant.
func (d *Directory) SweepStale(now time.Time) {
	for _, r := range d.records {
		if now.Sub(r.LastSeen) > d.timeout {
			r.Status = HiddenOrStale
		}
	}
}

// Get returns a copy of the record for peer, if known.
func (d *Directory) Get(peer identity.ID) (Record, bool) {
	r, ok := d.records[peer]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Snapshot returns a point-in-time copy of the whole directory, safe to
// hand to the UI task over the event channel.
func (d *Directory) Snapshot() map[identity.ID]Record {
	out := make(map[identity.ID]Record, len(d.records))
	for id, r := range d.records {
		out[id] = *r
	}
	return out
}

// CountByStatus reports how many known peers are Online versus
// Hidden-or-Stale.
func (d *Directory) CountByStatus() (online, stale int) {
	for _, r := range d.records {
		if r.Status == Online {
			online++
		} else {
			stale++
		}
	}
	return
}
