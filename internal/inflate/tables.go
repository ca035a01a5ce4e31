// Package inflate implements the DEFLATE block decoder: the block-header
// state machine of spec.md §4.7, canonical Huffman decode tables built
// from a code-length vector, and the sliding output window matches copy
// into.
package inflate

import (
	"errors"

	"github.com/cosnicolaou/goflate/internal/bitio"
)

// ErrOverSubscribed is a DataError-class failure: more codes were implied
// by the length histogram than the alphabet has room for at each depth.
var ErrOverSubscribed = errors.New("inflate: over-subscribed Huffman code lengths")

// ErrIncomplete is a DataError-class failure: the code tree has unused
// leaves. This is tolerated in exactly one case (spec.md §4.7, matching
// zlib's inftrees.c): a literal/length or distance alphabet whose longest
// code is a single bit, which happens when only one symbol in the
// alphabet is used at all. The bit-length alphabet itself is never
// allowed to be incomplete.
var ErrIncomplete = errors.New("inflate: incomplete Huffman code")

// ErrNoCodes is a DataError-class failure: a decode was attempted
// against a table built from an all-zero length vector (an alphabet with
// no codes at all, maxLen 0). Every real DEFLATE symbol stream decodes
// at least one code from its literal/length and bit-length tables, so
// reaching this can only mean the bitstream declared a distance alphabet
// with nothing in it and then emitted a length/distance match anyway
// (RFC 1951 permits hdist==1 with a single zero-length entry exactly to
// allow "no distance codes used", not to allow a match to reference it).
var ErrNoCodes = errors.New("inflate: decode attempted against an empty Huffman table")

// Table is a canonical Huffman decode table. Rather than the indexed
// root+subtable array spec.md §4.7 describes (an op/bits/value array
// sized for O(1) lookup), this builds the symbol-count/sorted-symbol
// arrays of Mark Adler's puff.c reference decoder and decodes by
// incrementally comparing a growing code against per-length boundaries.
// It is asymptotically slower (O(code length) per symbol rather than
// O(1)) but is far simpler to get right without ever running it, which
// given this codec is built and reviewed without a compiler or test run
// available, is the trade this package takes deliberately; see
// DESIGN.md.
type Table struct {
	counts  []int // counts[n] = number of codes of length n, for n in [1,maxLen]
	symbols []int // symbols sorted by (length, symbol)
	maxLen  int
}

// Build constructs a canonical Huffman decode table from a code-length
// vector (0 meaning "symbol unused"). allowIncomplete permits a tree with
// one unused leaf when its longest code is a single bit (the "only one
// symbol in this alphabet was used" case); any other incomplete or
// over-subscribed tree is an error.
func Build(lengths []uint8, allowIncomplete bool) (*Table, error) {
	var counts [16]int
	maxLen := 0
	nonZero := 0
	for _, l := range lengths {
		if l == 0 {
			continue
		}
		counts[l]++
		nonZero++
		if int(l) > maxLen {
			maxLen = int(l)
		}
	}
	if maxLen == 0 {
		return &Table{maxLen: 0}, nil
	}

	left := 1
	for length := 1; length <= maxLen; length++ {
		left <<= 1
		left -= counts[length]
		if left < 0 {
			return nil, ErrOverSubscribed
		}
	}
	if left > 0 && (!allowIncomplete || maxLen != 1) {
		return nil, ErrIncomplete
	}

	var offsets [16]int
	for length := 1; length < maxLen; length++ {
		offsets[length+1] = offsets[length] + counts[length]
	}

	symbols := make([]int, nonZero)
	for sym, l := range lengths {
		if l == 0 {
			continue
		}
		symbols[offsets[l]] = sym
		offsets[l]++
	}

	t := &Table{maxLen: maxLen, symbols: symbols}
	t.counts = append([]int(nil), counts[:maxLen+1]...)
	return t, nil
}

// MaxLen returns the longest code length this table holds, or 0 for an
// empty table. The caller must have at least this many bits buffered in
// br before calling Decode, since Decode consumes bits one at a time and
// cannot be unwound partway through a code.
func (t *Table) MaxLen() int { return t.maxLen }

// Decode reads one symbol from br. The caller must already have confirmed
// br.NeedBits(t.MaxLen()) (or that no further input is coming and this is
// the stream's final, necessarily short, code); Decode does not itself
// retry across a Fill, since consuming bits one at a time from a
// canonical code can't be undone if it turns out not enough were
// buffered.
//
// A table built from an all-zero length vector (maxLen 0, allowed by
// Build only as the "no distance codes used" case) can never yield a
// symbol: every call against it returns ErrNoCodes rather than the
// ok=false "not enough bits yet, call me again" sentinel every other
// failure path here uses, so callers don't mistake a structurally empty
// table for a transient buffering shortfall and spin on it forever.
func (t *Table) Decode(br *bitio.Reader) (sym int, ok bool, err error) {
	if t.maxLen == 0 {
		return 0, false, ErrNoCodes
	}
	code, first, index := 0, 0, 0
	for length := 1; length <= t.maxLen; length++ {
		if !br.NeedBits(1) {
			return 0, false, nil
		}
		code |= int(br.PeekDrop(1))
		count := t.counts[length]
		if code-first < count {
			return t.symbols[index+(code-first)], true, nil
		}
		index += count
		first += count
		first <<= 1
		code <<= 1
	}
	return 0, false, nil
}
