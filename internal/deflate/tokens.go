package deflate

import "github.com/cosnicolaou/goflate/internal/huffman"

// blHeaderBits is the fixed part of a dynamic block's tree-description
// overhead: HLIT (5 bits), HDIST (5 bits), HBLEN (4 bits), per spec.md
// §4.6 step 2.
const blHeaderBits = 5 + 5 + 4

// treeCost computes, in bits, the cost of emitting a block's literal
// buffer using the given literal/length and distance code lengths (no
// tree-transmission overhead included). The end-of-block code is always
// emitted once regardless of what the raw frequency tally recorded for
// it, so its cost is added unconditionally.
func treeCost(litLenFreq, distFreq []uint32, litLenLengths, distLengths []uint8) uint64 {
	bits := uint64(litLenLengths[huffman.EndOfBlockSymbol])
	for sym, f := range litLenFreq {
		if sym == huffman.EndOfBlockSymbol {
			continue
		}
		if f == 0 {
			continue
		}
		bits += uint64(f) * uint64(litLenLengths[sym])
		if sym >= 257 {
			bits += uint64(f) * uint64(huffman.LengthExtraBits[sym-257])
		}
	}
	for sym, f := range distFreq {
		if f == 0 {
			continue
		}
		bits += uint64(f) * uint64(distLengths[sym])
		bits += uint64(f) * uint64(huffman.DistExtraBits[sym])
	}
	return bits
}

// dynamicTreeOverhead computes spec.md §4.6's dynamic tree overhead:
// 3*(blcodes)+5+5+4 plus the bit cost of transmitting the run-length
// encoded code-length vector itself using the bit-length alphabet's own
// Huffman code.
func dynamicTreeOverhead(blCodes int, blRuns []huffman.LengthRun, blLengths []uint8) uint64 {
	bits := uint64(blHeaderBits) + uint64(3*blCodes)
	for _, r := range blRuns {
		bits += uint64(blLengths[r.Symbol]) + uint64(r.ExtraBits)
	}
	return bits
}

// buildDynamicTrees constructs canonical Huffman trees for the
// literal/length and distance alphabets from this block's tallies, the
// run-length encoding of their concatenated lengths, a third tree over
// the bit-length alphabet for transmitting that encoding, and reports how
// many trailing all-zero bit-length codes can be dropped from HBLEN
// (RFC 1951 permits omitting a trailing run of unused bit-length codes in
// BitLenCodeOrder).
type dynamicTrees struct {
	litLenLengths []uint8
	litLenCodes   []uint16
	distLengths   []uint8
	distCodes     []uint16
	blLengths     []uint8
	blCodes       []uint16
	blRuns        []huffman.LengthRun
	hlit          int
	hdist         int
	hblen         int
}

func buildDynamicTrees(litLenFreq, distFreq []uint32) *dynamicTrees {
	hlit := huffman.MaxLitLenSymbols
	for hlit > 257 && litLenFreq[hlit-1] == 0 {
		hlit--
	}
	hdist := huffman.MaxDistSymbols
	for hdist > 1 && distFreq[hdist-1] == 0 {
		hdist--
	}

	// The end-of-block code is always emitted once per block, whether or
	// not the engine's own tallying ever saw it as a token; make sure it
	// always gets a real code regardless of the caller's raw frequency
	// table.
	withEOB := append([]uint32(nil), litLenFreq[:hlit]...)
	if withEOB[huffman.EndOfBlockSymbol] == 0 {
		withEOB[huffman.EndOfBlockSymbol] = 1
	}

	litLenLengths := huffman.BuildLengths(withEOB, huffman.MaxCodeLength)
	litLenLengths = append(litLenLengths, make([]uint8, huffman.MaxLitLenSymbols-hlit)...)
	distLengthsShort := huffman.BuildLengths(distFreq[:hdist], huffman.MaxCodeLength)
	ensureNonEmptyDistTree(distLengthsShort)
	distLengths := append(distLengthsShort, make([]uint8, huffman.MaxDistSymbols-hdist)...)

	combined := append(append([]uint8(nil), litLenLengths[:hlit]...), distLengths[:hdist]...)
	blRuns := huffman.EncodeLengths(combined)

	blFreq := make([]uint32, huffman.MaxBitLenSymbols)
	for _, r := range blRuns {
		blFreq[r.Symbol]++
	}
	blLengths := huffman.BuildLengths(blFreq, huffman.MaxBitLenCodeBits)

	hblen := huffman.MaxBitLenSymbols
	for hblen > 4 && blLengths[huffman.BitLenCodeOrder[hblen-1]] == 0 {
		hblen--
	}

	return &dynamicTrees{
		litLenLengths: litLenLengths,
		litLenCodes:   huffman.AssignCodes(litLenLengths),
		distLengths:   distLengths,
		distCodes:     huffman.AssignCodes(distLengths),
		blLengths:     blLengths,
		blCodes:       huffman.AssignCodes(blLengths),
		blRuns:        blRuns,
		hlit:          hlit,
		hdist:         hdist,
		hblen:         hblen,
	}
}

// ensureNonEmptyDistTree guards against the degenerate case of a block
// with no matches at all (every distance frequency zero), which would
// otherwise hand BuildLengths an empty alphabet; RFC 1951 still requires
// a one-entry distance tree with a single, arbitrary 1-bit code in that
// case so decoders that expect a tree to be present (even if unused) stay
// happy.
func ensureNonEmptyDistTree(lengths []uint8) {
	for _, l := range lengths {
		if l != 0 {
			return
		}
	}
	if len(lengths) > 0 {
		lengths[0] = 1
	}
}

// staticLen computes the bit cost of emitting this block's tokens with
// the fixed Huffman tables (no tree overhead, since the fixed tables are
// a compile-time constant both sides already know).
func staticLen(litLenFreq, distFreq []uint32) uint64 {
	return treeCost(litLenFreq, distFreq, huffman.FixedLitLenLengths[:], huffman.FixedDistLengths[:])
}

// tokenExtraLengthBits returns the extra length bits value and count to
// emit after a length code for a match of the given length.
func tokenExtraLengthBits(length uint16) (code int, extra uint16, extraBits uint8) {
	l := int(length)
	for i := len(huffman.LengthBase) - 1; i >= 0; i-- {
		if l >= int(huffman.LengthBase[i]) {
			return i, uint16(l - int(huffman.LengthBase[i])), huffman.LengthExtraBits[i]
		}
	}
	return 0, 0, 0
}

func tokenExtraDistBits(distance uint16) (code int, extra uint16, extraBits uint8) {
	d := int(distance)
	for i := len(huffman.DistBase) - 1; i >= 0; i-- {
		if d >= int(huffman.DistBase[i]) {
			return i, uint16(d - int(huffman.DistBase[i])), huffman.DistExtraBits[i]
		}
	}
	return 0, 0, 0
}
