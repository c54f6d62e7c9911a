package transfer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/swapbytes/swapbytes/internal/identity"
	"github.com/swapbytes/swapbytes/internal/wire"
)

// IncomingState is the receiver-side download state for one (peer,
// filename) transfer, per §3.
type IncomingState struct {
	TempPath       string
	TotalSize      int64
	Received       int64
	NextChunkIndex uint32
	writer         *os.File
}

// IncomingRegistry tracks in-flight downloads, keyed by (peer,
// filename). Exactly one state exists per pair at a time (§3 invariant).
type IncomingRegistry struct {
	states map[Key]*IncomingState
}

func NewIncomingRegistry() *IncomingRegistry {
	return &IncomingRegistry{states: make(map[Key]*IncomingState)}
}

// Start opens the temp file and inserts a fresh IncomingState, per §4.5
// receiver-side steps 2-3. downloadDir must already be validated
// writable by the caller (the /setdir command path).
func (r *IncomingRegistry) Start(peer identity.ID, filename string, totalSize int64, downloadDir string) (*IncomingState, error) {
	tempPath := filepath.Join(downloadDir, filename+".tmp")

	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", tempPath, err)
	}

	st := &IncomingState{TempPath: tempPath, TotalSize: totalSize, writer: f}
	r.states[Key{peer, filename}] = st
	return st, nil
}

func (r *IncomingRegistry) Get(peer identity.ID, filename string) (*IncomingState, bool) {
	st, ok := r.states[Key{peer, filename}]
	return st, ok
}

func (r *IncomingRegistry) delete(peer identity.ID, filename string) {
	delete(r.states, Key{peer, filename})
}

// Outcome classifies the result of processing one inbound FileChunk,
// for the network task to turn into the appropriate UI event.
type Outcome int

const (
	OutcomeDropped  Outcome = iota // unknown transfer or out-of-order chunk; no state change
	OutcomeWritten                 // chunk appended; transfer continues
	OutcomeProgress                // chunk appended and a progress update should be emitted
	OutcomeComplete                // final chunk written, renamed, and state removed
	OutcomeFailed                  // write or finalize error; state removed, temp unlinked
)

// Result carries the information the network task needs to build the
// right event variant after ProcessChunk.
type Result struct {
	Outcome   Outcome
	Received  int64
	Total     int64
	FinalPath string
	Err       error

	// Progress is set alongside OutcomeComplete when the final chunk
	// also crosses a PROGRESS_UPDATE_BYTES boundary (or simply because
	// it is final, per §4.6 step 5's "OR is_last" clause): the network
	// task emits a FileTransferProgress immediately before the
	// FileTransferComplete it builds from this Result.
	Progress bool
}

// ProcessChunk implements the receiver-side chunk processing state
// machine (§4.6 steps 1-6). filename+peer select the IncomingState;
// chunk is the just-received FileChunk from that peer.
func (r *IncomingRegistry) ProcessChunk(peer identity.ID, chunk wire.FileChunk, downloadDir string) Result {
	st, ok := r.Get(peer, chunk.Filename)
	if !ok {
		return Result{Outcome: OutcomeDropped}
	}

	if chunk.ChunkIndex != st.NextChunkIndex {
		return Result{Outcome: OutcomeDropped}
	}

	prevReceived := st.Received

	if _, err := st.writer.Write(chunk.Data); err != nil {
		r.fail(peer, chunk.Filename)
		return Result{Outcome: OutcomeFailed, Err: fmt.Errorf("write %s: %w", st.TempPath, err)}
	}

	st.Received += int64(len(chunk.Data))
	if st.Received > st.TotalSize {
		st.Received = st.TotalSize
	}
	st.NextChunkIndex++

	progress := prevReceived/ProgressUpdateBytes < st.Received/ProgressUpdateBytes

	if chunk.IsLast {
		// §4.6 step 5 fires on crossing a PROGRESS_UPDATE_BYTES boundary
		// OR on the final chunk, so every transfer ends with at least
		// one FileTransferProgress before its FileTransferComplete.
		result := r.finalize(peer, chunk.Filename, st, downloadDir)
		if result.Outcome == OutcomeComplete {
			result.Progress = true
		}
		return result
	}

	if progress {
		return Result{Outcome: OutcomeProgress, Received: st.Received, Total: st.TotalSize}
	}
	return Result{Outcome: OutcomeWritten, Received: st.Received, Total: st.TotalSize}
}

func (r *IncomingRegistry) finalize(peer identity.ID, filename string, st *IncomingState, downloadDir string) Result {
	if err := st.writer.Sync(); err != nil {
		r.fail(peer, filename)
		return Result{Outcome: OutcomeFailed, Err: fmt.Errorf("fsync %s: %w", st.TempPath, err)}
	}
	if err := st.writer.Close(); err != nil {
		r.fail(peer, filename)
		return Result{Outcome: OutcomeFailed, Err: fmt.Errorf("close %s: %w", st.TempPath, err)}
	}

	finalPath, err := CollisionSafeRename(st.TempPath, filepath.Join(downloadDir, filename))
	if err != nil {
		r.delete(peer, filename)
		os.Remove(st.TempPath)
		return Result{Outcome: OutcomeFailed, Err: err}
	}

	r.delete(peer, filename)
	return Result{Outcome: OutcomeComplete, Received: st.Received, Total: st.TotalSize, FinalPath: finalPath}
}

// fail removes the state and unlinks the temp file, the cleanup shared
// by every failure path in §4.6/§7.
func (r *IncomingRegistry) fail(peer identity.ID, filename string) {
	if st, ok := r.Get(peer, filename); ok {
		st.writer.Close()
		os.Remove(st.TempPath)
	}
	r.delete(peer, filename)
}

// Abort cancels an in-flight download without a FileChunk failure being
// the trigger — used when a TransferError response or a transport-level
// send failure is observed for the single in-flight RequestChunk.
func (r *IncomingRegistry) Abort(peer identity.ID, filename string) {
	r.fail(peer, filename)
}
