package presence

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/swapbytes/swapbytes/internal/wire"
)

type fakePublisher struct {
	published []wire.Message
	err       error
}

func (f *fakePublisher) PublishGossip(msg wire.Message) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTickPublishesWhenVisible(t *testing.T) {
	pub := &fakePublisher{}
	b := NewBeacon(pub, testLogger(), func() string { return "alice" })

	b.Tick(time.Now())

	if len(pub.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.published))
	}
	hb, ok := pub.published[0].(wire.Heartbeat)
	if !ok || hb.Nickname != "alice" {
		t.Fatalf("unexpected heartbeat: %+v", pub.published[0])
	}
}

func TestHiddenSuppressesPublish(t *testing.T) {
	pub := &fakePublisher{}
	b := NewBeacon(pub, testLogger(), func() string { return "alice" })

	b.SetVisible(false)
	b.Tick(time.Now())

	if len(pub.published) != 0 {
		t.Fatalf("published while hidden: %d messages", len(pub.published))
	}
}

func TestInsufficientPeersIsSwallowed(t *testing.T) {
	pub := &fakePublisher{err: ErrInsufficientPeers}
	b := NewBeacon(pub, testLogger(), func() string { return "" })

	// Must not panic and must leave the beacon visible/ticking.
	b.Tick(time.Now())
	if !b.Visible() {
		t.Fatal("insufficient-peers failure should not change visibility")
	}
}

func TestOtherPublishErrorDoesNotStopCadence(t *testing.T) {
	pub := &fakePublisher{err: errors.New("boom")}
	b := NewBeacon(pub, testLogger(), func() string { return "" })

	b.Tick(time.Now())
	if !b.Visible() {
		t.Fatal("publish error should not disable visibility")
	}
}
