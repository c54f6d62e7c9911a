package transfer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/swapbytes/swapbytes/internal/identity"
	"github.com/swapbytes/swapbytes/internal/wire"
)

func peerID(b byte) identity.ID {
	var id identity.ID
	id[0] = b
	return id
}

func TestServeChunkNoActiveTransfer(t *testing.T) {
	reg := NewOutgoingRegistry()
	_, err := ServeChunk(reg, peerID(1), wire.RequestChunk{Filename: "x.dat", ChunkIndex: 0})
	if err == nil {
		t.Fatal("expected ErrNoActiveTransfer")
	}
}

func TestServeChunkReadsExpectedBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.bin")
	data := make([]byte, ChunkSize+100)
	for i := range data {
		data[i] = byte(i)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	reg := NewOutgoingRegistry()
	reg.Put(peerID(1), "a.bin", path)

	chunk0, err := ServeChunk(reg, peerID(1), wire.RequestChunk{Filename: "a.bin", ChunkIndex: 0})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunk0.Data) != ChunkSize || chunk0.IsLast {
		t.Fatalf("chunk0: len=%d isLast=%v", len(chunk0.Data), chunk0.IsLast)
	}

	chunk1, err := ServeChunk(reg, peerID(1), wire.RequestChunk{Filename: "a.bin", ChunkIndex: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunk1.Data) != 100 || !chunk1.IsLast {
		t.Fatalf("chunk1: len=%d isLast=%v", len(chunk1.Data), chunk1.IsLast)
	}
}

func TestServeChunkZeroByteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.dat")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	reg := NewOutgoingRegistry()
	reg.Put(peerID(1), "empty.dat", path)

	chunk, err := ServeChunk(reg, peerID(1), wire.RequestChunk{Filename: "empty.dat", ChunkIndex: 0})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunk.Data) != 0 || !chunk.IsLast {
		t.Fatalf("zero-byte chunk: len=%d isLast=%v", len(chunk.Data), chunk.IsLast)
	}
}

func TestServeChunkOutOfBounds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.bin")
	os.WriteFile(path, make([]byte, 10), 0o644)

	reg := NewOutgoingRegistry()
	reg.Put(peerID(1), "a.bin", path)

	_, err := ServeChunk(reg, peerID(1), wire.RequestChunk{Filename: "a.bin", ChunkIndex: 5})
	if err == nil {
		t.Fatal("expected ErrChunkOutOfBounds")
	}
}

func TestIncomingFullTransferLifecycle(t *testing.T) {
	dir := t.TempDir()
	reg := NewIncomingRegistry()
	peer := peerID(2)

	total := int64(ChunkSize + 50)
	if _, err := reg.Start(peer, "f.bin", total, dir); err != nil {
		t.Fatal(err)
	}

	r1 := reg.ProcessChunk(peer, wire.FileChunk{Filename: "f.bin", ChunkIndex: 0, Data: make([]byte, ChunkSize), IsLast: false}, dir)
	if r1.Outcome != OutcomeWritten && r1.Outcome != OutcomeProgress {
		t.Fatalf("unexpected outcome for chunk 0: %v", r1.Outcome)
	}

	r2 := reg.ProcessChunk(peer, wire.FileChunk{Filename: "f.bin", ChunkIndex: 1, Data: make([]byte, 50), IsLast: true}, dir)
	if r2.Outcome != OutcomeComplete {
		t.Fatalf("expected OutcomeComplete, got %v", r2.Outcome)
	}
	if r2.Received != total {
		t.Fatalf("received = %d, want %d", r2.Received, total)
	}

	info, err := os.Stat(r2.FinalPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != total {
		t.Fatalf("final file size = %d, want %d", info.Size(), total)
	}

	if _, ok := reg.Get(peer, "f.bin"); ok {
		t.Fatal("state should be removed after completion")
	}
}

func TestIncomingOutOfOrderChunkDropped(t *testing.T) {
	dir := t.TempDir()
	reg := NewIncomingRegistry()
	peer := peerID(3)
	reg.Start(peer, "g.bin", 100, dir)

	r := reg.ProcessChunk(peer, wire.FileChunk{Filename: "g.bin", ChunkIndex: 1, Data: []byte("x"), IsLast: false}, dir)
	if r.Outcome != OutcomeDropped {
		t.Fatalf("expected OutcomeDropped for out-of-order chunk, got %v", r.Outcome)
	}

	st, _ := reg.Get(peer, "g.bin")
	if st.Received != 0 || st.NextChunkIndex != 0 {
		t.Fatalf("state mutated on dropped chunk: %+v", st)
	}
}

func TestIncomingUnknownTransferDropped(t *testing.T) {
	dir := t.TempDir()
	reg := NewIncomingRegistry()
	r := reg.ProcessChunk(peerID(4), wire.FileChunk{Filename: "missing.bin"}, dir)
	if r.Outcome != OutcomeDropped {
		t.Fatalf("expected OutcomeDropped, got %v", r.Outcome)
	}
}

func TestIncomingZeroByteFile(t *testing.T) {
	dir := t.TempDir()
	reg := NewIncomingRegistry()
	peer := peerID(5)
	reg.Start(peer, "empty.dat", 0, dir)

	r := reg.ProcessChunk(peer, wire.FileChunk{Filename: "empty.dat", ChunkIndex: 0, Data: nil, IsLast: true}, dir)
	if r.Outcome != OutcomeComplete {
		t.Fatalf("expected OutcomeComplete for zero-byte file, got %v", r.Outcome)
	}
	info, err := os.Stat(r.FinalPath)
	if err != nil || info.Size() != 0 {
		t.Fatalf("final empty file: err=%v size=%v", err, info)
	}
}

func TestCollisionSafeRenameDoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(existing, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}

	temp := filepath.Join(dir, "report.pdf.tmp")
	if err := os.WriteFile(temp, []byte("incoming"), 0o644); err != nil {
		t.Fatal(err)
	}

	finalPath, err := CollisionSafeRename(temp, existing)
	if err != nil {
		t.Fatal(err)
	}
	if finalPath == existing {
		t.Fatal("collision-safe rename must not reuse the colliding name")
	}

	orig, err := os.ReadFile(existing)
	if err != nil || string(orig) != "original" {
		t.Fatalf("original file was modified: %q, err=%v", orig, err)
	}

	renamed, err := os.ReadFile(finalPath)
	if err != nil || string(renamed) != "incoming" {
		t.Fatalf("renamed file content wrong: %q, err=%v", renamed, err)
	}
}

func TestCollisionSafeRenameNoCollision(t *testing.T) {
	dir := t.TempDir()
	temp := filepath.Join(dir, "x.dat.tmp")
	os.WriteFile(temp, []byte("data"), 0o644)

	target := filepath.Join(dir, "x.dat")
	finalPath, err := CollisionSafeRename(temp, target)
	if err != nil {
		t.Fatal(err)
	}
	if finalPath != target {
		t.Fatalf("finalPath = %s, want %s", finalPath, target)
	}
}
