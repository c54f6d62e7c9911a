package dispatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/swapbytes/swapbytes/internal/directory"
	"github.com/swapbytes/swapbytes/internal/events"
	"github.com/swapbytes/swapbytes/internal/identity"
	"github.com/swapbytes/swapbytes/internal/transfer"
	"github.com/swapbytes/swapbytes/internal/wire"
)

func peerID(b byte) identity.ID {
	var id identity.ID
	id[0] = b
	return id
}

func newTestDispatcher(dir string) *Dispatcher {
	d := directory.New(identity.ID{}, 8*time.Second)
	out := transfer.NewOutgoingRegistry()
	in := transfer.NewIncomingRegistry()
	pending := transfer.NewPendingOffers()
	return New(d, out, in, pending, func() string { return dir })
}

func TestHandleChatMessage(t *testing.T) {
	d := newTestDispatcher(t.TempDir())
	resp, evs := d.Handle(&wire.ChatMessage{Text: "hi"}, peerID(1))

	if _, ok := resp.(wire.Ack); !ok {
		t.Fatalf("expected Ack, got %T", resp)
	}
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	pm, ok := evs[0].(events.PrivateMessageReceived)
	if !ok || pm.Content != "hi" {
		t.Fatalf("unexpected event: %+v", evs[0])
	}
}

func TestHandleOffer(t *testing.T) {
	d := newTestDispatcher(t.TempDir())
	resp, evs := d.Handle(&wire.Offer{Filename: "a.bin", SizeBytes: 10}, peerID(1))

	if _, ok := resp.(wire.Ack); !ok {
		t.Fatalf("expected Ack, got %T", resp)
	}
	if size, ok := d.pending.Get(peerID(1), "a.bin"); !ok || size != 10 {
		t.Fatalf("expected pending offer recorded with size 10, got %d ok=%v", size, ok)
	}
	if _, ok := evs[0].(events.FileOfferReceived); !ok {
		t.Fatalf("unexpected event: %+v", evs[0])
	}
}

func TestHandleDeclineOfferRemovesOutgoingEntry(t *testing.T) {
	dirPath := t.TempDir()
	d := newTestDispatcher(dirPath)

	path := filepath.Join(dirPath, "x.dat")
	os.WriteFile(path, []byte("data"), 0o644)
	d.outgoing.Put(peerID(1), "x.dat", path)

	d.Handle(&wire.DeclineOffer{Filename: "x.dat"}, peerID(1))

	if _, ok := d.outgoing.Get(peerID(1), "x.dat"); ok {
		t.Fatal("outgoing registry entry should be removed on decline")
	}
}

func TestHandleRequestChunkNoActiveTransfer(t *testing.T) {
	d := newTestDispatcher(t.TempDir())
	resp, _ := d.Handle(&wire.RequestChunk{Filename: "missing.bin", ChunkIndex: 0}, peerID(1))

	if _, ok := resp.(wire.TransferError); !ok {
		t.Fatalf("expected TransferError, got %T", resp)
	}
}

func TestHandleRequestChunkServesAndRemovesOnLastChunk(t *testing.T) {
	dirPath := t.TempDir()
	d := newTestDispatcher(dirPath)

	path := filepath.Join(dirPath, "small.bin")
	os.WriteFile(path, []byte("hello"), 0o644)
	d.outgoing.Put(peerID(1), "small.bin", path)

	resp, _ := d.Handle(&wire.RequestChunk{Filename: "small.bin", ChunkIndex: 0}, peerID(1))

	chunk, ok := resp.(wire.FileChunk)
	if !ok || !chunk.IsLast || string(chunk.Data) != "hello" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	if _, ok := d.outgoing.Get(peerID(1), "small.bin"); ok {
		t.Fatal("outgoing registry entry should be removed after final chunk")
	}
}

func TestHandleTouchesDirectory(t *testing.T) {
	d := newTestDispatcher(t.TempDir())
	d.Handle(&wire.ChatMessage{Text: "hi"}, peerID(7))

	if _, ok := d.dir.Get(peerID(7)); !ok {
		t.Fatal("dispatcher must touch the directory for the origin peer")
	}
}
