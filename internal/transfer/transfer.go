// Package transfer implements the chunked file-transfer engine: the
// sender-side chunk service reading straight off disk per request, and
// the receiver-side download state machine that turns a stream of
// FileChunk responses into a completed file.
package transfer

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/swapbytes/swapbytes/internal/identity"
	"github.com/swapbytes/swapbytes/internal/wire"
)

// Constants fixed by §4.6.
const (
	ChunkSize           = 64 * 1024
	ProgressUpdateBytes = 512 * 1024
)

// Key identifies one transfer direction: a (remote peer, filename) pair.
// The same Key type indexes both OutgoingRegistry (sender side) and the
// incoming download map (receiver side); the two registries are never
// confused because they live in different maps.
type Key struct {
	Peer     identity.ID
	Filename string
}

var (
	ErrNoActiveTransfer = errors.New("no active transfer for this file")
	ErrChunkOutOfBounds = errors.New("chunk index out of bounds")
)

// OutgoingRegistry maps (peer, filename) to the absolute local path of a
// file we have offered. It is populated before the Offer request is
// sent (§4.5 step 2) so a fast AcceptOffer+RequestChunk race can never
// find it empty, and removed on decline, completion, or failure.
type OutgoingRegistry struct {
	paths map[Key]string
}

func NewOutgoingRegistry() *OutgoingRegistry {
	return &OutgoingRegistry{paths: make(map[Key]string)}
}

func (r *OutgoingRegistry) Put(peer identity.ID, filename, path string) {
	r.paths[Key{peer, filename}] = path
}

func (r *OutgoingRegistry) Get(peer identity.ID, filename string) (string, bool) {
	p, ok := r.paths[Key{peer, filename}]
	return p, ok
}

func (r *OutgoingRegistry) Delete(peer identity.ID, filename string) {
	delete(r.paths, Key{peer, filename})
}

// ServeChunk implements the sender-side chunk service (§4.6). It opens
// and closes the file on every call — no persistent handle is kept on
// the sender side, per spec — reads up to ChunkSize bytes at the
// requested offset, and reports whether this is the file's final
// chunk.
func ServeChunk(registry *OutgoingRegistry, peer identity.ID, req wire.RequestChunk) (wire.FileChunk, error) {
	path, ok := registry.Get(peer, req.Filename)
	if !ok {
		return wire.FileChunk{}, fmt.Errorf("%s: %w", req.Filename, ErrNoActiveTransfer)
	}

	f, err := os.Open(path)
	if err != nil {
		return wire.FileChunk{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return wire.FileChunk{}, fmt.Errorf("stat %s: %w", path, err)
	}
	size := info.Size()

	offset := int64(req.ChunkIndex) * ChunkSize
	if offset >= size && size > 0 {
		return wire.FileChunk{}, fmt.Errorf("%s: %w", req.Filename, ErrChunkOutOfBounds)
	}
	// A zero-byte file's only valid request is chunk 0, which must
	// succeed with an empty, final chunk (§8 boundary behavior 10).
	if size == 0 && req.ChunkIndex != 0 {
		return wire.FileChunk{}, fmt.Errorf("%s: %w", req.Filename, ErrChunkOutOfBounds)
	}

	buf := make([]byte, ChunkSize)
	n, err := f.ReadAt(buf, offset)
	// io.EOF here means the read stopped at end-of-file, which is the
	// expected outcome for the final (possibly empty, for a zero-byte
	// file) chunk, not a failure.
	if err != nil && err != io.EOF {
		return wire.FileChunk{}, fmt.Errorf("read %s at %d: %w", path, offset, err)
	}
	buf = buf[:n]

	isLast := offset+int64(n) >= size

	return wire.FileChunk{
		Filename:   req.Filename,
		ChunkIndex: req.ChunkIndex,
		Data:       buf,
		IsLast:     isLast,
	}, nil
}
