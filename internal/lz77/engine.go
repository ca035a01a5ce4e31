package lz77

import "github.com/cosnicolaou/goflate/internal/huffman"

// Flavor selects which of the three match-finding strategies a level uses.
type Flavor int

const (
	FlavorStore Flavor = iota
	FlavorFast
	FlavorSlow
)

// Strategy is a caller-selectable modifier layered on top of a level's
// Flavor, per spec.md §6.
type Strategy int

const (
	StrategyDefault Strategy = iota
	StrategyFiltered
	StrategyHuffmanOnly
)

// Config holds one row of the DeflaterConfig table (spec.md §6).
type Config struct {
	GoodLength      int
	MaxLazy         int
	NiceLength      int
	MaxChainLength  int
	Flavor          Flavor
}

// DeflaterConfig is the ten-entry table indexed by compression level 0-9.
var DeflaterConfig = [10]Config{
	{0, 0, 0, 0, FlavorStore},
	{4, 4, 8, 4, FlavorFast},
	{4, 5, 16, 8, FlavorFast},
	{4, 6, 32, 32, FlavorFast},
	{4, 4, 16, 16, FlavorSlow},
	{8, 16, 32, 32, FlavorSlow},
	{8, 16, 128, 128, FlavorSlow},
	{8, 32, 128, 256, FlavorSlow},
	{32, 128, 258, 1024, FlavorSlow},
	{32, 258, 258, 4096, FlavorSlow},
}

// Token is one emitted literal or (length, distance) match.
type Token struct {
	Distance uint16 // 0 means Literal is valid; nonzero means Length/Distance are
	Literal  byte
	Length   uint16
}

// filteredMaxDistanceForShortMatch is the distance threshold spec.md §4.5's
// Filtered modifier applies to length-3 matches.
const filteredMaxDistanceForShortMatch = 4096

// blockCheckInterval is the number of tokens a block must hold before
// the engine evaluates the block-termination heuristic; past it, every
// ShouldTerminateBlock call evaluates it.
const blockCheckInterval = 8192 / 12 // roughly ~8K bytes of input, assuming ~12 bytes/token average

// Engine drives LZ77 match-finding over a Window according to a Config and
// Strategy, producing a token stream and the symbol-frequency tallies the
// deflate driver needs both to build Huffman trees and to decide whether a
// block should close early.
type Engine struct {
	win      *Window
	cfg      Config
	strategy Strategy

	litLenFreq [huffman.MaxLitLenSymbols]uint32
	distFreq   [huffman.MaxDistSymbols]uint32

	lastLit int // tokens emitted since the last ResetTallies
	matches int // of those, how many were length/distance matches

	// Slow-flavor lazy-match state, mirroring the classic deflate_slow
	// loop: a match found at the previous position is held back one byte
	// to see whether the next position beats it.
	slowMatchAvailable bool
	slowPrevLength     int
	slowPrevMatchStart int
}

// NewEngine constructs an engine over win using cfg and strategy.
func NewEngine(win *Window, cfg Config, strategy Strategy) *Engine {
	return &Engine{win: win, cfg: cfg, strategy: strategy}
}

// ResetTallies clears the symbol-frequency and token counters a block
// boundary starts fresh with, without touching the window.
func (e *Engine) ResetTallies() {
	for i := range e.litLenFreq {
		e.litLenFreq[i] = 0
	}
	for i := range e.distFreq {
		e.distFreq[i] = 0
	}
	e.lastLit = 0
	e.matches = 0
}

// LitLenFreq and DistFreq expose the tallies accumulated since the last
// ResetTallies, for the Huffman builder.
func (e *Engine) LitLenFreq() []uint32 { return e.litLenFreq[:] }
func (e *Engine) DistFreq() []uint32   { return e.distFreq[:] }

// Next produces the next token, if the window currently has enough
// lookahead to decide one. It returns ok=false when lookahead is
// exhausted (the caller should Fill the window with more input, or flush
// out any final pending literal with Flush if no more input is coming).
func (e *Engine) Next() (tok Token, ok bool) {
	switch e.cfg.Flavor {
	case FlavorStore:
		return e.nextStore()
	case FlavorFast:
		return e.nextFast()
	default:
		return e.nextSlow()
	}
}

// Flush resolves the Slow-flavor lazy evaluator's held-back candidate, for
// use when no more input is coming (Finish flush) and a decision can no
// longer be deferred. Per the classic algorithm this always degrades to a
// literal for the deferred position: with no further lookahead the
// candidate match (if any) can no longer be confirmed against a
// potentially better one at the next position, and emitting it as a
// literal is always safe. Returns ok=false if nothing was pending.
func (e *Engine) Flush() (tok Token, ok bool) {
	if !e.slowMatchAvailable {
		return Token{}, false
	}
	b := e.win.Bytes()[e.win.Pos()-1]
	e.slowMatchAvailable = false
	e.slowPrevLength = MinMatchLength - 1
	return e.emitLiteral(b), true
}

func (e *Engine) nextStore() (Token, bool) {
	if e.win.Lookahead() == 0 {
		return Token{}, false
	}
	pos := e.win.Pos()
	b := e.win.Bytes()[pos]
	e.win.Advance(1)
	return e.emitLiteral(b), true
}

func (e *Engine) nextFast() (Token, bool) {
	if e.win.Lookahead() < MinMatchLength {
		if e.win.Lookahead() == 0 {
			return Token{}, false
		}
		pos := e.win.Pos()
		b := e.win.Bytes()[pos]
		e.win.InsertString(pos)
		e.win.Advance(1)
		return e.emitLiteral(b), true
	}

	pos := e.win.Pos()
	hashHead := e.win.InsertString(pos)
	length, distance := 0, 0
	if hashHead >= 0 {
		length, distance = longestMatch(e.win, hashHead, MinMatchLength-1, e.cfg.NiceLength, e.cfg.MaxChainLength, e.cfg.GoodLength)
	}
	if length >= MinMatchLength && e.acceptMatch(length, distance) {
		tok := e.emitMatch(length, pos-distance, pos)
		inserted := 0
		for i := 1; i < length && inserted < e.cfg.MaxLazy; i++ {
			e.win.InsertString(pos + i)
			inserted++
		}
		e.win.Advance(length)
		return tok, true
	}

	b := e.win.Bytes()[pos]
	e.win.Advance(1)
	return e.emitLiteral(b), true
}

// nextSlow implements lazy matching: the classic deflate_slow algorithm,
// which defers every candidate match by one byte to see whether the next
// position yields something longer before committing to emit it.
func (e *Engine) nextSlow() (Token, bool) {
	for {
		if e.win.Lookahead() == 0 {
			return Token{}, false
		}
		pos := e.win.Pos()

		matchLength := MinMatchLength - 1
		matchStart := pos
		if e.win.Lookahead() >= MinMatchLength {
			hashHead := e.win.InsertString(pos)
			if hashHead >= 0 && e.slowPrevLength < e.cfg.MaxLazy && pos-hashHead <= e.win.MaxDist() {
				ml, md := longestMatch(e.win, hashHead, e.slowPrevLength, e.cfg.NiceLength, e.cfg.MaxChainLength, e.cfg.GoodLength)
				if ml >= MinMatchLength && e.acceptMatch(ml, md) {
					matchLength = ml
					matchStart = pos - md
				}
			}
		}

		if e.slowPrevLength >= MinMatchLength && matchLength <= e.slowPrevLength {
			tok := e.emitMatch(e.slowPrevLength, e.slowPrevMatchStart, pos-1)
			n := e.slowPrevLength - 1
			for i := 0; i < n; i++ {
				if e.win.Lookahead() >= MinMatchLength {
					e.win.InsertString(e.win.Pos())
				}
				e.win.Advance(1)
			}
			e.slowMatchAvailable = false
			e.slowPrevLength = MinMatchLength - 1
			return tok, true
		}

		if e.slowMatchAvailable {
			b := e.win.Bytes()[pos-1]
			e.slowPrevLength = matchLength
			e.slowPrevMatchStart = matchStart
			e.win.Advance(1)
			return e.emitLiteral(b), true
		}

		e.slowMatchAvailable = true
		e.slowPrevLength = matchLength
		e.slowPrevMatchStart = matchStart
		e.win.Advance(1)
		// No token is emitted for the very first position of a lazy
		// run: zlib's own deflate_slow defers its first decision the
		// same way.
	}
}

// acceptMatch applies the Filtered/HuffmanOnly strategy modifiers on top
// of the raw match-finder result.
func (e *Engine) acceptMatch(length, distance int) bool {
	if e.strategy == StrategyHuffmanOnly {
		return false
	}
	if e.strategy == StrategyFiltered && length == MinMatchLength && distance > filteredMaxDistanceForShortMatch {
		return false
	}
	return true
}

func (e *Engine) emitLiteral(b byte) Token {
	e.litLenFreq[b]++
	e.lastLit++
	return Token{Distance: 0, Literal: b}
}

// emitMatch tallies a (length, distance) match and returns its Token.
// Window advancement is the caller's responsibility: callers still need
// the pre-advance window contents to insert intermediate hash-chain
// entries for the skipped positions.
func (e *Engine) emitMatch(length, startPos, endPos int) Token {
	distance := endPos - startPos

	lc := lengthCode(length)
	e.litLenFreq[257+lc]++
	dc := distCode(distance)
	e.distFreq[dc]++
	e.lastLit++
	e.matches++

	return Token{Distance: uint16(distance), Length: uint16(length)}
}

func lengthCode(length int) int {
	for i := len(huffman.LengthBase) - 1; i >= 0; i-- {
		if length >= int(huffman.LengthBase[i]) {
			return i
		}
	}
	return 0
}

func distCode(distance int) int {
	for i := len(huffman.DistBase) - 1; i >= 0; i-- {
		if distance >= int(huffman.DistBase[i]) {
			return i
		}
	}
	return 0
}

// ShouldTerminateBlock implements spec.md §4.5's early block-close
// heuristic: once roughly blockCheckInterval tokens have accumulated,
// estimate the bit cost of the distance codes seen so far and compare it
// against how much input those tokens represent; if matches are sparse
// and the estimated output is small relative to input, a fresh tree is
// likely to do better than continuing this one.
func (e *Engine) ShouldTerminateBlock(inLength int) bool {
	if e.lastLit < blockCheckInterval || e.lastLit == 0 {
		return false
	}
	var outLength uint64
	for i, f := range e.distFreq {
		if f == 0 {
			continue
		}
		outLength += uint64(f) * uint64(5+int(huffman.DistExtraBits[i]))
	}
	return e.matches < e.lastLit/2 && outLength < uint64(inLength)/2
}
