package inflate

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/cosnicolaou/goflate/internal/bitio"
	"github.com/cosnicolaou/goflate/internal/deflate"
	"github.com/cosnicolaou/goflate/internal/huffman"
	"github.com/cosnicolaou/goflate/internal/lz77"
)

// compressAll drives a deflate.Driver to completion over data, in small
// chunks, to exercise the same re-entrant feeding path a real caller
// would use.
func compressAll(t *testing.T, data []byte, windowBits, memoryLevel, level int, strategy lz77.Strategy) []byte {
	t.Helper()
	d := deflate.NewDriver(windowBits, memoryLevel, level, strategy)
	remaining := data
	for len(remaining) > 0 {
		chunk := remaining
		if len(chunk) > 37 {
			chunk = chunk[:37]
		}
		n := d.Process(deflate.FlushNone, chunk)
		remaining = remaining[n:]
	}
	d.Process(deflate.FlushFinish, nil)
	return d.Output().Bytes()
}

// decompressAll drives a Decoder to completion over compressed, feeding
// both input and output in small chunks to exercise pausing on both
// sides of Decode.
func decompressAll(t *testing.T, compressed []byte, windowBits int) []byte {
	t.Helper()
	dec := NewDecoder(windowBits)
	var out bytes.Buffer
	inPos := 0
	scratch := make([]byte, 23)
	for !dec.Done() {
		inChunk := compressed[inPos:]
		if len(inChunk) > 19 {
			inChunk = inChunk[:19]
		}
		consumedIn, producedOut, err := dec.Decode(inChunk, scratch)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		inPos += consumedIn
		out.Write(scratch[:producedOut])
		if consumedIn == 0 && producedOut == 0 {
			if inPos >= len(compressed) {
				t.Fatalf("decoder stalled with no more input and not done")
			}
		}
	}
	return out.Bytes()
}

func roundTrip(t *testing.T, data []byte, windowBits, memoryLevel, level int, strategy lz77.Strategy) {
	t.Helper()
	compressed := compressAll(t, data, windowBits, memoryLevel, level, strategy)
	got := decompressAll(t, compressed, windowBits)
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(data))
	}
}

func TestRoundTripStoreLevel(t *testing.T) {
	roundTrip(t, []byte("hello, hello, world, this is a test"), 15, 8, 0, lz77.StrategyDefault)
}

func TestRoundTripFastLevel(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog. the quick brown fox jumps again.")
	roundTrip(t, data, 15, 8, 1, lz77.StrategyDefault)
}

func TestRoundTripBestLevel(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog. the quick brown fox jumps again and again and again and again.")
	roundTrip(t, data, 15, 8, 9, lz77.StrategyDefault)
}

func TestRoundTripEmptyInput(t *testing.T) {
	roundTrip(t, nil, 15, 8, 6, lz77.StrategyDefault)
}

func TestRoundTripHighlyRepetitive(t *testing.T) {
	data := bytes.Repeat([]byte("abcdefghijklmnop"), 500)
	roundTrip(t, data, 15, 8, 9, lz77.StrategyDefault)
}

func TestRoundTripRandomBytes(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	data := make([]byte, 20000)
	r.Read(data)
	roundTrip(t, data, 15, 8, 9, lz77.StrategyDefault)
}

func TestRoundTripForcesWindowSlide(t *testing.T) {
	data := make([]byte, 3000)
	for i := range data {
		data[i] = byte(i*31 + i/53)
	}
	roundTrip(t, data, 9, 8, 6, lz77.StrategyDefault)
}

func TestRoundTripMultipleBlocksSmallLiteralBuffer(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 400)
	// memoryLevel=1 gives litBufSize = 1<<7 = 128, forcing many block
	// boundaries across the input.
	roundTrip(t, data, 15, 1, 6, lz77.StrategyDefault)
}

func TestRoundTripHuffmanOnlyStrategy(t *testing.T) {
	data := []byte("abcabcabcabcabcabcabcabcabcabcabcabcabc")
	roundTrip(t, data, 15, 8, 6, lz77.StrategyHuffmanOnly)
}

func TestDecodeRejectsBadBlockType(t *testing.T) {
	dec := NewDecoder(15)
	// Last-block bit set, type 11 (3): invalid.
	data := []byte{0x07}
	out := make([]byte, 16)
	_, _, err := dec.Decode(data, out)
	if err == nil {
		t.Fatalf("expected an error for invalid block type")
	}
	if _, ok := err.(StructuralError); !ok {
		t.Fatalf("got error type %T, want StructuralError", err)
	}
}

func TestDecodeRejectsBadStoredComplement(t *testing.T) {
	dec := NewDecoder(15)
	// Last block, type 00 (stored), then byte-aligned LEN/NLEN that don't
	// complement each other.
	data := []byte{0x01, 0x05, 0x00, 0x00, 0x00}
	out := make([]byte, 16)
	_, _, err := dec.Decode(data, out)
	if err == nil {
		t.Fatalf("expected an error for bad stored-block complement")
	}
}

// TestDecodeEmptyDistTableIsDataError reproduces a dynamic block that
// declares a distance alphabet whose code lengths are all zero (RFC
// 1951's valid "no distance codes used" encoding) and then emits a
// length/distance match anyway: there is no distance symbol that
// match could possibly reference, which must surface as a
// StructuralError rather than stall forever waiting for bits that will
// never resolve a symbol out of an empty table.
func TestDecodeEmptyDistTableIsDataError(t *testing.T) {
	dec := NewDecoder(15)

	litLengths := make([]uint8, 288)
	litLengths[257] = 1 // length code for base length 3, no extra bits
	litTable, err := Build(litLengths, true)
	if err != nil {
		t.Fatalf("Build litTable: %v", err)
	}
	distTable, err := Build(make([]uint8, 30), false)
	if err != nil {
		t.Fatalf("Build distTable: %v", err)
	}
	dec.litTable, dec.distTable = litTable, distTable
	dec.st = stateCodes
	dec.lastBlock = true

	codes := huffman.AssignCodes(litLengths)
	var bw bitio.Writer
	bw.PutBits(codes[257], uint(litLengths[257]))
	bw.AlignToByte()

	out := make([]byte, 16)
	_, _, err = dec.Decode(bw.Bytes(), out)
	if err == nil {
		t.Fatalf("expected a DataError for a match against an empty distance table")
	}
	if _, ok := err.(StructuralError); !ok {
		t.Fatalf("got error type %T, want StructuralError", err)
	}
}

func TestSetDictionaryAllowsEarlyBackReference(t *testing.T) {
	dict := []byte("previously seen context data")
	data := []byte("previously seen context data, plus more")

	comp := deflate.NewDriver(15, 8, 6, lz77.StrategyDefault)
	comp.SetDictionary(dict)
	comp.Process(deflate.FlushNone, data)
	comp.Process(deflate.FlushFinish, nil)
	compressed := comp.Output().Bytes()

	dec := NewDecoder(15)
	dec.SetDictionary(dict)
	var out bytes.Buffer
	scratch := make([]byte, 64)
	inPos := 0
	for !dec.Done() {
		n, produced, err := dec.Decode(compressed[inPos:], scratch)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		inPos += n
		out.Write(scratch[:produced])
	}
	// The compressor above was primed with the same dictionary, so the
	// stream's first match reaches back into the window SetDictionary
	// seeded before any byte of the stream was decoded.
	if !bytes.Equal(out.Bytes(), data) {
		t.Fatalf("got %q, want %q", out.Bytes(), data)
	}
}
