// Package deflate implements the block-formation driver (spec.md §4.6)
// that sits between the LZ77 token stream and the bit-packed DEFLATE
// output: for each completed block it picks stored, fixed-Huffman, or
// dynamic-Huffman encoding, whichever is cheapest, and writes it through a
// bitio.Writer.
package deflate

import (
	"github.com/cosnicolaou/goflate/internal/bitio"
	"github.com/cosnicolaou/goflate/internal/huffman"
	"github.com/cosnicolaou/goflate/internal/lz77"
)

// FlushMode mirrors spec.md §4.6's recognized flush modes.
type FlushMode int

const (
	FlushNone FlushMode = iota
	FlushPartial
	FlushSync
	FlushFull
	FlushFinish
)

var (
	fixedLitLenCodes = huffman.AssignCodes(huffman.FixedLitLenLengths[:])
	fixedDistCodes   = huffman.AssignCodes(huffman.FixedDistLengths[:])
)

// Driver drives the LZ77 engine over a sliding window, accumulates a
// block's worth of tokens, and writes the chosen block encoding to its
// internal bit writer. The caller drains compressed bytes with Output().
type Driver struct {
	win      *lz77.Window
	engine   *lz77.Engine
	cfg      lz77.Config
	bw       bitio.Writer
	litBufSize int

	tokens    []lz77.Token
	blockRaw  []byte
	finished  bool
}

// NewDriver constructs a driver. windowBits and memoryLevel follow
// spec.md §6 (window_bits in [9,15], memory_level in [1,9]); level
// selects a row of lz77.DeflaterConfig.
func NewDriver(windowBits, memoryLevel, level int, strategy lz77.Strategy) *Driver {
	win := lz77.NewWindow(windowBits)
	cfg := lz77.DeflaterConfig[level]
	return &Driver{
		win:        win,
		engine:     lz77.NewEngine(win, cfg, strategy),
		cfg:        cfg,
		litBufSize: 1 << uint(memoryLevel+6),
	}
}

// Output returns the internal bit writer so the facade can drain
// compressed bytes from it.
func (d *Driver) Output() *bitio.Writer { return &d.bw }

// SetDictionary primes the match-finding window with a preset
// dictionary's bytes (RFC 1950's preset-dictionary facility) before any
// real input arrives: the bytes are inserted into the window and its
// hash chains so later input can reference them as back-references, but
// they themselves are never tokenized or emitted. Must be called on a
// freshly constructed (or just-Reset) Driver, before the first Process
// call.
func (d *Driver) SetDictionary(dict []byte) {
	max := d.win.MaxDist()
	if len(dict) > max {
		dict = dict[len(dict)-max:]
	}
	n := d.win.Fill(dict)
	for pos := 0; pos+lz77.MinMatchLength <= n; pos++ {
		d.win.InsertString(pos)
	}
	d.win.Advance(n)
}

// Finished reports whether a Finish-flushed final block has been emitted.
func (d *Driver) Finished() bool { return d.finished }

// Reset restores the driver to its initial state (used by the facade's
// reset(); Full flush resets only the window).
func (d *Driver) Reset() {
	d.win.Reset()
	d.engine.ResetTallies()
	d.tokens = d.tokens[:0]
	d.blockRaw = d.blockRaw[:0]
	d.bw.Reset()
	d.finished = false
}

// Process consumes as much of input as the window has room for, forms
// and emits DEFLATE blocks as the literal buffer fills or the
// block-termination heuristic fires, and honors flush. It returns the
// number of input bytes consumed. Process is re-entrant: the caller may
// call it again with more input (and FlushNone) to continue the same
// block, or with FlushFinish once no more input is coming.
func (d *Driver) Process(flush FlushMode, input []byte) (consumed int) {
	if d.finished {
		return 0
	}
	remaining := input

	for {
		filled := 0
		if len(remaining) > 0 {
			filled = d.win.Fill(remaining)
			d.blockRaw = append(d.blockRaw, remaining[:filled]...)
			remaining = remaining[filled:]
			consumed += filled
		}

		drained := 0
		for len(d.tokens) < d.litBufSize {
			tok, ok := d.engine.Next()
			if !ok {
				break
			}
			d.tokens = append(d.tokens, tok)
			drained++
		}

		if len(d.tokens) >= d.litBufSize || d.engine.ShouldTerminateBlock(len(d.blockRaw)) {
			d.emitBlock(false)
			continue
		}

		if len(remaining) > 0 {
			if filled == 0 && drained == 0 {
				// Neither Fill nor the engine could make progress this
				// round: the window has no room and nothing left to
				// tokenize, which should never happen given the window's
				// own slide invariant. Surface it as no further progress
				// this call rather than spin.
				return consumed
			}
			// The drain loop above stopped because Next() ran out of
			// buffered lookahead (not because litBufSize was hit), which
			// means the window has room again: loop back to Fill more
			// of remaining before trying flush/return handling below.
			continue
		}

		if flush == FlushFinish && len(remaining) == 0 {
			if tok, ok := d.engine.Flush(); ok {
				d.tokens = append(d.tokens, tok)
				continue
			}
			d.emitBlock(true)
			d.bw.AlignToByte()
			d.finished = true
			return consumed
		}

		if len(remaining) == 0 {
			switch flush {
			case FlushSync:
				d.emitBlock(false)
				d.emitEmptyStoredBlock()
			case FlushFull:
				d.emitBlock(false)
				d.emitEmptyStoredBlock()
				d.win.Reset()
			case FlushPartial:
				d.emitBlock(false)
				d.emitEmptyFixedBlock()
			}
			return consumed
		}
	}
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// emitBlock picks the cheapest of stored/fixed/dynamic encodings for the
// tokens and raw bytes accumulated since the last block boundary, per
// spec.md §4.6, writes it, and resets per-block state.
func (d *Driver) emitBlock(last bool) {
	litLenFreq := d.engine.LitLenFreq()
	distFreq := d.engine.DistFreq()

	dyn := buildDynamicTrees(litLenFreq, distFreq)
	optLen := dynamicTreeOverhead(dyn.hblen, dyn.blRuns, dyn.blLengths) +
		treeCost(litLenFreq, distFreq, dyn.litLenLengths, dyn.distLengths)
	statLen := staticLen(litLenFreq, distFreq)
	storedLen := uint64(len(d.blockRaw)) * 8

	var lastBit uint16
	if last {
		lastBit = 1
	}

	switch {
	case d.cfg.Flavor == lz77.FlavorStore || storedLen+5*8 <= minU64(optLen, statLen):
		d.bw.PutBits(lastBit, 1)
		d.bw.PutBits(0, 2)
		d.bw.AlignToByte()
		d.writeStoredBody(d.blockRaw)
	case statLen <= optLen:
		d.bw.PutBits(lastBit, 1)
		d.bw.PutBits(1, 2)
		d.emitTokens(huffman.FixedLitLenLengths[:], fixedLitLenCodes, huffman.FixedDistLengths[:], fixedDistCodes)
	default:
		d.bw.PutBits(lastBit, 1)
		d.bw.PutBits(2, 2)
		d.emitDynamicHeader(dyn)
		d.emitTokens(dyn.litLenLengths, dyn.litLenCodes, dyn.distLengths, dyn.distCodes)
	}

	d.tokens = d.tokens[:0]
	d.blockRaw = d.blockRaw[:0]
	d.engine.ResetTallies()
}

// writeStoredBody writes a type-00 block's LEN/NLEN header and raw bytes.
// The caller must already be byte-aligned. litBufSize is bounded well
// under 65535 for every (memory_level, window_bits) combination spec.md
// §6 allows, so a single stored block always suffices.
func (d *Driver) writeStoredBody(data []byte) {
	n := uint16(len(data))
	d.bw.PutBits(n, 16)
	d.bw.PutBits(^n, 16)
	d.bw.PutBytes(data)
}

func (d *Driver) emitDynamicHeader(dyn *dynamicTrees) {
	d.bw.PutBits(uint16(dyn.hlit-257), 5)
	d.bw.PutBits(uint16(dyn.hdist-1), 5)
	d.bw.PutBits(uint16(dyn.hblen-4), 4)
	for i := 0; i < dyn.hblen; i++ {
		sym := huffman.BitLenCodeOrder[i]
		d.bw.PutBits(uint16(dyn.blLengths[sym]), 3)
	}
	for _, r := range dyn.blRuns {
		d.bw.PutBits(dyn.blCodes[r.Symbol], uint(dyn.blLengths[r.Symbol]))
		if r.ExtraBits > 0 {
			d.bw.PutBits(r.ExtraValue, uint(r.ExtraBits))
		}
	}
}

// emitTokens writes the block's literal buffer using the given
// literal/length and distance tables, followed by the end-of-block code.
func (d *Driver) emitTokens(litLenLengths []uint8, litLenCodes []uint16, distLengths []uint8, distCodes []uint16) {
	for _, tok := range d.tokens {
		if tok.Distance == 0 {
			sym := int(tok.Literal)
			d.bw.PutBits(litLenCodes[sym], uint(litLenLengths[sym]))
			continue
		}
		lc, extra, extraBits := tokenExtraLengthBits(tok.Length)
		sym := 257 + lc
		d.bw.PutBits(litLenCodes[sym], uint(litLenLengths[sym]))
		if extraBits > 0 {
			d.bw.PutBits(extra, uint(extraBits))
		}
		dc, dextra, dextraBits := tokenExtraDistBits(tok.Distance)
		d.bw.PutBits(distCodes[dc], uint(distLengths[dc]))
		if dextraBits > 0 {
			d.bw.PutBits(dextra, uint(dextraBits))
		}
	}
	eob := huffman.EndOfBlockSymbol
	d.bw.PutBits(litLenCodes[eob], uint(litLenLengths[eob]))
}

// emitEmptyStoredBlock writes the canonical Sync/Full flush marker: a
// non-last, zero-length stored block (bytes 00 00 FF FF once
// byte-aligned), which guarantees a decoder reading up to this point can
// resynchronize on a byte boundary.
func (d *Driver) emitEmptyStoredBlock() {
	d.bw.PutBits(0, 1)
	d.bw.PutBits(0, 2)
	d.bw.AlignToByte()
	d.bw.PutBits(0, 16)
	d.bw.PutBits(0xFFFF, 16)
}

// emitEmptyFixedBlock writes a non-last fixed-Huffman block containing
// only the end-of-block code, for Partial flush: it guarantees a decoder
// can decode everything emitted so far without forcing a byte-aligned
// stored block the way Sync does.
func (d *Driver) emitEmptyFixedBlock() {
	d.bw.PutBits(0, 1)
	d.bw.PutBits(1, 2)
	eob := huffman.EndOfBlockSymbol
	d.bw.PutBits(fixedLitLenCodes[eob], uint(huffman.FixedLitLenLengths[eob]))
}
