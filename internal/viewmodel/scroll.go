package viewmodel

// ScrollState factors out the "if at bottom, re-pin to bottom"
// computation the spec's design notes call out as duplicated at every
// append site in the source. Every log append funnels through OnAppend
// instead of recomputing this logic inline.
type ScrollState struct {
	// Offset is the first visible item index.
	Offset int
	// ViewportHeight is the number of items visible at once. Zero means
	// "unknown/not yet laid out", in which case OnAppend always pins to
	// the tail (there is nothing else sensible to do before a viewport
	// size is known).
	ViewportHeight int
	// pinnedToTail is true when the user was scrolled to the bottom
	// before the last append.
	pinnedToTail bool
}

// NewScrollState returns a ScrollState that starts pinned to the tail,
// the natural state for an empty log.
func NewScrollState() ScrollState {
	return ScrollState{pinnedToTail: true}
}

// AtBottom reports whether offset+viewportHeight reaches the end of a
// log of the given length.
func AtBottom(logLength, viewportHeight, offset int) bool {
	if viewportHeight <= 0 {
		return true
	}
	return offset+viewportHeight >= logLength
}

// OnAppend updates scroll state after a new item was appended, given
// the log's new total length. If the viewport was pinned to the tail,
// it stays pinned (auto-scrolling to include the new item); otherwise
// the current offset is preserved untouched.
func (s *ScrollState) OnAppend(newLogLength int) {
	if s.pinnedToTail {
		s.Offset = max(0, newLogLength-s.ViewportHeight)
	}
}

// UserScrolled records a user-driven scroll to offset within a log of
// logLength, updating whether the view is now pinned to the tail.
func (s *ScrollState) UserScrolled(offset, logLength int) {
	s.Offset = offset
	s.pinnedToTail = AtBottom(logLength, s.ViewportHeight, offset)
}

// PinnedToTail reports the current stickiness, for tests and rendering.
func (s *ScrollState) PinnedToTail() bool { return s.pinnedToTail }
