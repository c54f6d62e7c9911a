package ui

import (
	"sync"

	"github.com/rcrowley/go-metrics"

	"github.com/swapbytes/swapbytes/internal/events"
	"github.com/swapbytes/swapbytes/internal/identity"
)

// transferKey identifies one direction of one (peer, filename)
// transfer, for throughput tracking and for forgetting a tracker once
// a transfer finishes.
type transferKey struct {
	Peer      identity.ID
	Filename  string
	Direction events.Direction
}

type rateEntry struct {
	ewma metrics.EWMA
	last int64
}

// throughputTracker smooths per-transfer byte rates with go-metrics'
// EWMA, generalizing cenkalti/rain's torrent.go download/upload speed
// fields (themselves backed by rcrowley/go-metrics) from per-torrent
// to per-file-transfer granularity.
type throughputTracker struct {
	mu      sync.Mutex
	entries map[transferKey]*rateEntry
}

func newThroughputTracker() *throughputTracker {
	return &throughputTracker{entries: make(map[transferKey]*rateEntry)}
}

// update folds a new cumulative received-bytes count into the EWMA
// for key and returns the current smoothed rate in bytes/sec.
func (t *throughputTracker) update(key transferKey, cumulative int64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		e = &rateEntry{ewma: metrics.NewEWMA1()}
		t.entries[key] = e
	}
	if delta := cumulative - e.last; delta > 0 {
		e.ewma.Update(delta)
	}
	e.last = cumulative
	return e.ewma.Rate()
}

// tick advances every tracked EWMA by one decay interval. Must be
// called every ewmaTickInterval for Rate() to mean bytes/sec.
func (t *throughputTracker) tick() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		e.ewma.Tick()
	}
}

func (t *throughputTracker) clear(key transferKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}
