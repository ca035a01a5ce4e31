// Package lz77 implements the sliding-window match finder DEFLATE's
// compressor uses: a hash-chained dictionary over a window of up to 32KiB,
// searched according to one of three strategies (store, fast greedy, slow
// lazy) depending on the configured effort level.
package lz77

const (
	// MinMatchLength and MaxMatchLength bound every (length, distance)
	// pair the engine can emit.
	MinMatchLength = 3
	MaxMatchLength = 258

	// minLookahead is the smallest number of buffered bytes the match
	// finder needs to guarantee it can always find the longest possible
	// match without running off the end of the window.
	minLookahead = MaxMatchLength + MinMatchLength + 1

	hashBits = 15
	hashSize = 1 << hashBits
	hashMask = hashSize - 1
	hashShift = (hashBits + MinMatchLength - 1) / MinMatchLength
)

// Window is the sliding dictionary plus hash-chain index the match finder
// searches. A byte buffer of length 2*W (W = 2^windowBits) holds the most
// recently seen bytes; once the write cursor approaches the top of the
// buffer the upper half is copied down and all indices rebased, per
// spec.md §4.1.
type Window struct {
	bits int
	w    int // W = 2^bits
	buf  []byte

	strstart  int // write cursor: next byte to be matched/inserted
	lookahead int // valid bytes available at/after strstart

	head []int32 // hashSize entries: most recent position for each hash
	prev []int32 // one entry per window position: previous position with same hash

	insH int // rolling hash of the MinMatchLength bytes starting at strstart
}

// NewWindow allocates a window sized for the given window_bits (RFC 1951
// range [9,15]).
func NewWindow(windowBits int) *Window {
	w := 1 << windowBits
	win := &Window{
		bits: windowBits,
		w:    w,
		buf:  make([]byte, 2*w),
		head: make([]int32, hashSize),
		prev: make([]int32, w),
	}
	win.Reset()
	return win
}

// Reset clears all window and hash-chain state without releasing memory.
func (win *Window) Reset() {
	win.strstart = 0
	win.lookahead = 0
	win.insH = 0
	for i := range win.head {
		win.head[i] = -1
	}
	for i := range win.prev {
		win.prev[i] = -1
	}
}

// MaxDist is the largest distance a match may reference, W - minLookahead
// per spec.md §4.5.
func (win *Window) MaxDist() int {
	d := win.w - minLookahead
	if d < 0 {
		d = 0
	}
	return d
}

// Fill appends as much of src as fits before the window needs a slide,
// returning the number of bytes consumed. The caller is expected to call
// Fill repeatedly (interleaved with matching) as more input arrives.
func (win *Window) Fill(src []byte) int {
	win.maybeSlide()
	room := len(win.buf) - (win.strstart + win.lookahead)
	n := len(src)
	if n > room {
		n = room
	}
	copy(win.buf[win.strstart+win.lookahead:], src[:n])
	win.lookahead += n
	return n
}

// maybeSlide rebases the window down by W bytes once the write cursor
// approaches the top of the double-length buffer, per spec.md §4.1's
// invariant strstart+lookahead <= 2*W. It only triggers once strstart has
// moved past the first half (so the slide is always valid) and once
// remaining headroom has dropped below one full window's worth.
func (win *Window) maybeSlide() {
	if win.strstart < win.w {
		return
	}
	if len(win.buf)-(win.strstart+win.lookahead) >= win.w {
		return
	}
	copy(win.buf[0:win.w], win.buf[win.w:win.w+win.w])
	win.strstart -= win.w
	for i := range win.head {
		if win.head[i] >= int32(win.w) {
			win.head[i] -= int32(win.w)
		} else {
			win.head[i] = -1
		}
	}
	for i := range win.prev {
		if win.prev[i] >= int32(win.w) {
			win.prev[i] -= int32(win.w)
		} else {
			win.prev[i] = -1
		}
	}
}

// updateHash rolls the MinMatchLength-byte hash forward by one byte.
func (win *Window) updateHash(b byte) {
	win.insH = ((win.insH << hashShift) ^ int(b)) & hashMask
}

// InsertString computes the hash of the MinMatchLength bytes at pos and
// inserts pos into that hash's chain, returning the previous head of the
// chain (-1 if the chain is empty, or if fewer than MinMatchLength bytes
// are buffered at pos).
func (win *Window) InsertString(pos int) int {
	if pos+MinMatchLength > win.strstart+win.lookahead {
		return -1
	}
	win.insH = 0
	for i := 0; i < MinMatchLength-1; i++ {
		win.insH = ((win.insH << hashShift) ^ int(win.buf[pos+i])) & hashMask
	}
	win.updateHash(win.buf[pos+MinMatchLength-1])
	prevHead := win.head[win.insH]
	win.prev[pos&(win.w-1)] = prevHead
	win.head[win.insH] = int32(pos)
	return int(prevHead)
}

// Advance moves the write cursor forward by n bytes (the bytes at
// [strstart, strstart+n) have been consumed into the literal/match
// stream) without touching the hash chains; callers insert hashes
// explicitly via InsertString for whichever positions their strategy
// requires.
func (win *Window) Advance(n int) {
	win.strstart += n
	win.lookahead -= n
}

// Bytes returns the full backing buffer; positions are valid in
// [0, strstart+lookahead).
func (win *Window) Bytes() []byte { return win.buf }

// Pos returns the current write cursor.
func (win *Window) Pos() int { return win.strstart }

// Lookahead returns the number of valid, not-yet-matched bytes buffered
// at and after the write cursor.
func (win *Window) Lookahead() int { return win.lookahead }

// HeadAt returns the hash-chain head for the hash of the MinMatchLength
// bytes starting at pos, without inserting pos into the chain (used to
// look up a candidate chain without mutating it).
func (win *Window) HeadAt(pos int) int {
	if pos+MinMatchLength > win.strstart+win.lookahead {
		return -1
	}
	h := 0
	for i := 0; i < MinMatchLength; i++ {
		h = ((h << hashShift) ^ int(win.buf[pos+i])) & hashMask
	}
	return int(win.head[h])
}

// PrevAt returns the previous position in a hash chain before pos.
func (win *Window) PrevAt(pos int) int {
	return int(win.prev[pos&(win.w-1)])
}
