package goflate

import (
	"bytes"
	"math/rand"
	"testing"
)

// drainCompress feeds data through a freshly constructed compressing
// Codec in small chunks, exercising the same re-entrant path any real
// caller would use, and returns the complete compressed output.
func drainCompress(t *testing.T, c *Codec, data []byte) []byte {
	t.Helper()
	var out bytes.Buffer
	scratch := make([]byte, 17)
	remaining := data
	for {
		chunk := remaining
		if len(chunk) > 13 {
			chunk = chunk[:13]
		}
		code, n, m, err := c.Process(FlushNone, chunk, scratch)
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
		_ = code
		out.Write(scratch[:m])
		remaining = remaining[n:]
		if n == 0 && m == 0 && len(remaining) == 0 {
			break
		}
	}
	for {
		code, m, err := c.Finish(scratch)
		if err != nil {
			t.Fatalf("Finish: %v", err)
		}
		out.Write(scratch[:m])
		if code == StreamEnd {
			break
		}
	}
	return out.Bytes()
}

// drainDecompress feeds compressed through a freshly constructed
// decompressing Codec in small chunks and returns the recovered bytes.
func drainDecompress(t *testing.T, c *Codec, compressed []byte) []byte {
	t.Helper()
	var out bytes.Buffer
	scratch := make([]byte, 19)
	inPos := 0
	for {
		chunk := compressed[inPos:]
		if len(chunk) > 11 {
			chunk = chunk[:11]
		}
		code, n, m, err := c.Process(FlushNone, chunk, scratch)
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
		inPos += n
		out.Write(scratch[:m])
		if code == StreamEnd {
			break
		}
		if n == 0 && m == 0 && inPos >= len(compressed) {
			t.Fatalf("decoder stalled with no more input and not done")
		}
	}
	return out.Bytes()
}

func roundTripFraming(t *testing.T, framing Framing, level Level, data []byte) {
	t.Helper()
	comp, err := New(Compress, WithFraming(framing), WithLevel(level))
	if err != nil {
		t.Fatalf("New(Compress): %v", err)
	}
	compressed := drainCompress(t, comp, data)

	dec, err := New(Decompress, WithFraming(framing))
	if err != nil {
		t.Fatalf("New(Decompress): %v", err)
	}
	got := drainDecompress(t, dec, compressed)
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch for framing %d level %d: got %d bytes, want %d", framing, level, len(got), len(data))
	}
}

func TestRoundTripRawAllLevels(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog, repeatedly, the quick brown fox jumps again")
	for level := Level(0); level <= 9; level++ {
		roundTripFraming(t, Raw, level, data)
	}
}

func TestRoundTripZlib(t *testing.T) {
	roundTripFraming(t, Zlib, Default, []byte("Hello, World!\n"))
}

func TestRoundTripGzip(t *testing.T) {
	roundTripFraming(t, Gzip, Default, []byte("Hello, World!\n"))
}

func TestRoundTripEmptyInputAllFramings(t *testing.T) {
	for _, f := range []Framing{Raw, Zlib, Gzip} {
		roundTripFraming(t, f, Default, nil)
	}
}

func TestRoundTripRandomBytesGzip(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	data := make([]byte, 8000)
	r.Read(data)
	roundTripFraming(t, Gzip, Best, data)
}

func TestZlibHeaderMinimalEmptyStream(t *testing.T) {
	comp, err := New(Compress, WithFraming(Zlib), WithLevel(Default))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out := drainCompress(t, comp, nil)
	// 2-byte header + empty deflate body + 4-byte trailer: the empty body
	// is at least a 3-bit block header plus a 7-bit end-of-block code,
	// 2 bytes once byte-aligned, so the minimum is 2+2+4 = 8 bytes, and it
	// must round-trip to zero bytes.
	if len(out) < 8 {
		t.Fatalf("zlib empty stream too short: %d bytes", len(out))
	}
	dec, err := New(Decompress, WithFraming(Zlib))
	if err != nil {
		t.Fatalf("New(Decompress): %v", err)
	}
	got := drainDecompress(t, dec, out)
	if len(got) != 0 {
		t.Fatalf("expected zero decompressed bytes, got %d", len(got))
	}
}

func TestGzipMinimalEmptyStreamLiteral(t *testing.T) {
	// spec.md §8 scenario 4: the canonical 20-byte minimal gzip stream.
	data := []byte{
		0x1f, 0x8b, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff,
		0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	dec, err := New(Decompress, WithFraming(Gzip))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var out bytes.Buffer
	scratch := make([]byte, 16)
	code, _, m, err := dec.Process(FlushNone, data, scratch)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	out.Write(scratch[:m])
	if code != StreamEnd {
		t.Fatalf("code = %v, want StreamEnd", code)
	}
	if out.Len() != 0 {
		t.Fatalf("expected zero decompressed bytes, got %d", out.Len())
	}
}

func TestGzipCorruptedCRCIsDataError(t *testing.T) {
	comp, err := New(Compress, WithFraming(Gzip), WithLevel(Default))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	compressed := drainCompress(t, comp, []byte("some data to compress and then corrupt"))
	// Flip every bit of one byte in the CRC-32 trailer (the last 8 bytes are the
	// trailer; corrupt a byte inside the CRC portion).
	compressed[len(compressed)-5] ^= 0xff

	dec, err := New(Decompress, WithFraming(Gzip))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var lastErr error
	var lastCode Code
	scratch := make([]byte, 64)
	inPos := 0
	for inPos < len(compressed) {
		code, n, _, perr := dec.Process(FlushNone, compressed[inPos:], scratch)
		inPos += n
		lastCode, lastErr = code, perr
		if perr != nil || code == StreamEnd {
			break
		}
	}
	if lastErr == nil {
		t.Fatalf("expected a DataError for corrupted CRC, got nil (code=%v)", lastCode)
	}
	if lastCode != DataError {
		t.Fatalf("code = %v, want DataError", lastCode)
	}
}

func TestStoredBlockBadComplementIsDataError(t *testing.T) {
	dec, err := New(Decompress, WithFraming(Raw))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data := []byte{0x01, 0x05, 0x00, 0x00, 0x00}
	out := make([]byte, 16)
	code, _, _, perr := dec.Process(FlushNone, data, out)
	if perr == nil {
		t.Fatalf("expected an error for a bad stored-block complement")
	}
	if code != DataError {
		t.Fatalf("code = %v, want DataError", code)
	}
}

func TestPresetDictionaryCompressShortensOutput(t *testing.T) {
	dict := []byte("the quick brown fox ")
	data := []byte("the quick brown fox jumps")

	withDict, err := New(Compress, WithFraming(Raw), WithLevel(Best))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := withDict.SetDictionary(dict, true); err != nil {
		t.Fatalf("SetDictionary: %v", err)
	}
	compressedWithDict := drainCompress(t, withDict, data)

	withoutDict, err := New(Compress, WithFraming(Raw), WithLevel(Best))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	compressedWithoutDict := drainCompress(t, withoutDict, data)

	if len(compressedWithDict) >= len(compressedWithoutDict) {
		t.Fatalf("dictionary-primed compression was not shorter: %d >= %d", len(compressedWithDict), len(compressedWithoutDict))
	}
}

func TestZlibPresetDictionaryNeedDictFlow(t *testing.T) {
	dict := []byte("shared context data for the dictionary")
	data := []byte("shared context data for the dictionary, plus a bit more")

	comp, err := New(Compress, WithFraming(Zlib), WithLevel(Default))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := comp.SetDictionary(dict, true); err != nil {
		t.Fatalf("SetDictionary: %v", err)
	}
	compressed := drainCompress(t, comp, data)

	dec, err := New(Decompress, WithFraming(Zlib))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	scratch := make([]byte, 4)
	code, n, _, perr := dec.Process(FlushNone, compressed, scratch)
	if perr != nil {
		t.Fatalf("Process: %v", perr)
	}
	if code != NeedDict {
		t.Fatalf("code = %v, want NeedDict", code)
	}
	if err := dec.SetDictionary(dict, false); err != nil {
		t.Fatalf("SetDictionary: %v", err)
	}

	var out bytes.Buffer
	inPos := n
	for {
		code, n, m, perr := dec.Process(FlushNone, compressed[inPos:], scratch)
		if perr != nil {
			t.Fatalf("Process: %v", perr)
		}
		inPos += n
		out.Write(scratch[:m])
		if code == StreamEnd {
			break
		}
	}
	if !bytes.Equal(out.Bytes(), data) {
		t.Fatalf("got %q, want %q", out.Bytes(), data)
	}
}

func TestSyncFlushTailMarker(t *testing.T) {
	comp, err := New(Compress, WithFraming(Raw), WithLevel(Default))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	payload := bytes.Repeat([]byte("x"), 1000)
	var out bytes.Buffer
	scratch := make([]byte, 2048)
	_, n, m, perr := comp.Process(FlushSync, payload, scratch)
	if perr != nil {
		t.Fatalf("Process: %v", perr)
	}
	if n != len(payload) {
		t.Fatalf("consumed %d, want %d", n, len(payload))
	}
	out.Write(scratch[:m])
	tail := out.Bytes()
	if len(tail) < 4 || !bytes.Equal(tail[len(tail)-4:], []byte{0x00, 0x00, 0xff, 0xff}) {
		t.Fatalf("sync flush tail = % x, want trailing 00 00 ff ff", tail)
	}
}

func TestStreamErrorAfterFinish(t *testing.T) {
	comp, err := New(Compress, WithFraming(Raw), WithLevel(Default))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	scratch := make([]byte, 64)
	for {
		code, _, err := comp.Finish(scratch)
		if err != nil {
			t.Fatalf("Finish: %v", err)
		}
		if code == StreamEnd {
			break
		}
	}
	_, _, _, perr := comp.Process(FlushNone, []byte("more"), scratch)
	if perr == nil {
		t.Fatalf("expected a StreamError for input offered after Finish")
	}
	e, ok := perr.(*Error)
	if !ok || e.Code != StreamError {
		t.Fatalf("got %v, want a StreamError", perr)
	}
}

func TestResetAllowsReuse(t *testing.T) {
	comp, err := New(Compress, WithFraming(Gzip), WithLevel(Default))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	first := drainCompress(t, comp, []byte("first payload"))
	comp.Reset()
	second := drainCompress(t, comp, []byte("second payload, different"))

	dec, err := New(Decompress, WithFraming(Gzip))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := drainDecompress(t, dec, second)
	if string(got) != "second payload, different" {
		t.Fatalf("got %q", got)
	}
	_ = first
}

func TestNewRejectsBadParameters(t *testing.T) {
	if _, err := New(Compress, WithWindowBits(3)); err == nil {
		t.Fatalf("expected an error for an out-of-range window_bits")
	}
	if _, err := New(Compress, WithMemoryLevel(0)); err == nil {
		t.Fatalf("expected an error for an out-of-range memory_level")
	}
}

func TestGzipNameNormalization(t *testing.T) {
	comp, err := New(Compress, WithFraming(Gzip), WithName("some/dir/archive.txt"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if comp.opts.name != "archive.txt" {
		t.Fatalf("name = %q, want %q", comp.opts.name, "archive.txt")
	}
}
