package deflate

import (
	"testing"

	"github.com/cosnicolaou/goflate/internal/lz77"
)

func TestProcessFinishSetsLastBlockBit(t *testing.T) {
	d := NewDriver(15, 8, 6, lz77.StrategyDefault)
	data := []byte("hello, hello, hello, world")
	d.Process(FlushNone, data)
	d.Process(FlushFinish, nil)
	if !d.Finished() {
		t.Fatalf("expected driver to report finished after FlushFinish")
	}
	out := d.Output().Bytes()
	if len(out) == 0 {
		t.Fatalf("expected non-empty compressed output")
	}
	// The first bit of the stream is the last-block bit of the first
	// (and here, only) block; since everything fit in one block, it
	// must be set.
	if out[0]&0x1 == 0 {
		t.Fatalf("expected last-block bit set in first output byte %08b", out[0])
	}
}

func TestProcessStoreLevelEmitsStoredBlock(t *testing.T) {
	d := NewDriver(15, 8, 0, lz77.StrategyDefault)
	data := []byte("abcdefgh")
	d.Process(FlushNone, data)
	d.Process(FlushFinish, nil)
	out := d.Output().Bytes()
	// Block type bits (bits 1-2 of byte 0, after the last-block bit) must
	// be 00 for a stored block.
	btype := (out[0] >> 1) & 0x3
	if btype != 0 {
		t.Fatalf("got block type %d, want 0 (stored) for level 0", btype)
	}
}

func TestProcessConsumesAllInputAcrossCalls(t *testing.T) {
	d := NewDriver(15, 8, 6, lz77.StrategyDefault)
	data := []byte("repeated data repeated data repeated data repeated data")
	total := 0
	for i := 0; i < len(data); i += 7 {
		end := i + 7
		if end > len(data) {
			end = len(data)
		}
		total += d.Process(FlushNone, data[i:end])
	}
	total += d.Process(FlushFinish, nil)
	if total != len(data) {
		t.Fatalf("got %d bytes consumed, want %d", total, len(data))
	}
	if !d.Finished() {
		t.Fatalf("expected finished after FlushFinish")
	}
}

func TestSyncFlushProducesByteAlignedEmptyStoredBlock(t *testing.T) {
	d := NewDriver(15, 8, 6, lz77.StrategyDefault)
	d.Process(FlushNone, []byte("abc"))
	before := d.Output().Len()
	d.Process(FlushSync, nil)
	after := d.Output().Len()
	if after <= before {
		t.Fatalf("expected Sync flush to emit additional bytes")
	}
	if d.Output().PendingBits() != 0 {
		t.Fatalf("expected Sync flush to leave the writer byte-aligned")
	}
}

func TestResetClearsState(t *testing.T) {
	d := NewDriver(15, 8, 6, lz77.StrategyDefault)
	d.Process(FlushNone, []byte("some data"))
	d.Process(FlushFinish, nil)
	d.Reset()
	if d.Finished() {
		t.Fatalf("expected Reset to clear finished state")
	}
	if d.Output().Len() != 0 {
		t.Fatalf("expected Reset to clear buffered output")
	}
}
