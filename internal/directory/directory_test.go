package directory

import (
	"testing"
	"time"

	"github.com/swapbytes/swapbytes/internal/identity"
)

func id(b byte) identity.ID {
	var i identity.ID
	i[0] = b
	return i
}

func TestTouchInsertsAndRefreshes(t *testing.T) {
	d := New(id(0), 8*time.Second)
	t0 := time.Now()

	d.Touch(id(1), t0)
	r, ok := d.Get(id(1))
	if !ok || r.Status != Online || !r.LastSeen.Equal(t0) {
		t.Fatalf("unexpected record after first touch: %+v", r)
	}

	t1 := t0.Add(time.Second)
	d.Touch(id(1), t1)
	r, _ = d.Get(id(1))
	if !r.LastSeen.Equal(t1) {
		t.Fatalf("last_seen not refreshed: %v", r.LastSeen)
	}
}

func TestSelfNeverInserted(t *testing.T) {
	self := id(0)
	d := New(self, 8*time.Second)
	d.Touch(self, time.Now())
	if _, ok := d.Get(self); ok {
		t.Fatal("self should never appear in its own directory")
	}
}

func TestNicknameFirstAssignmentIsSilent(t *testing.T) {
	d := New(id(0), 8*time.Second)
	_, ok := d.UpdateNickname(id(1), "alice", time.Now())
	if ok {
		t.Fatal("first-time nickname assignment must be silent")
	}
	r, _ := d.Get(id(1))
	if r.Nickname != "alice" {
		t.Fatalf("nickname not recorded: %+v", r)
	}
}

func TestNicknameChangeFromExistingNameLogs(t *testing.T) {
	d := New(id(0), 8*time.Second)
	d.UpdateNickname(id(1), "alice", time.Now())

	change, ok := d.UpdateNickname(id(1), "alicia", time.Now())
	if !ok {
		t.Fatal("change from a non-empty name must report a NicknameChange")
	}
	if change.OldName != "alice" || change.NewName != "alicia" {
		t.Fatalf("unexpected change: %+v", change)
	}
}

func TestSameNameUpdateIsSilent(t *testing.T) {
	d := New(id(0), 8*time.Second)
	d.UpdateNickname(id(1), "alice", time.Now())
	_, ok := d.UpdateNickname(id(1), "alice", time.Now())
	if ok {
		t.Fatal("setting the same name twice must not report a change")
	}
}

func TestSweepStaleDoesNotDeleteOrRewindLastSeen(t *testing.T) {
	d := New(id(0), 8*time.Second)
	t0 := time.Now()
	d.Touch(id(1), t0)

	d.SweepStale(t0.Add(10 * time.Second))

	r, ok := d.Get(id(1))
	if !ok {
		t.Fatal("stale peer must not be deleted")
	}
	if r.Status != HiddenOrStale {
		t.Fatalf("status = %v, want HiddenOrStale", r.Status)
	}
	if !r.LastSeen.Equal(t0) {
		t.Fatalf("last_seen rewound: %v", r.LastSeen)
	}
}

func TestSweepStaleWithinTimeoutStaysOnline(t *testing.T) {
	d := New(id(0), 8*time.Second)
	t0 := time.Now()
	d.Touch(id(1), t0)

	d.SweepStale(t0.Add(5 * time.Second))

	r, _ := d.Get(id(1))
	if r.Status != Online {
		t.Fatalf("status = %v, want Online", r.Status)
	}
}
