package inflate

import (
	"testing"

	"github.com/cosnicolaou/goflate/internal/bitio"
	"github.com/cosnicolaou/goflate/internal/huffman"
)

// encodeForTable packs a sequence of symbols using the canonical codes
// AssignCodes derives from lengths, so Table.Decode can be exercised
// without depending on any other package's bit-writing path.
func encodeForTable(t *testing.T, lengths []uint8, symbols []int) []byte {
	t.Helper()
	codes := huffman.AssignCodes(lengths)
	var bw bitio.Writer
	for _, s := range symbols {
		bw.PutBits(codes[s], uint(lengths[s]))
	}
	bw.AlignToByte()
	return bw.Bytes()
}

func TestBuildAndDecodeFixedLitLenTable(t *testing.T) {
	table, err := Build(huffman.FixedLitLenLengths[:], false)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	symbols := []int{'h', 'e', 'l', 'l', 'o', huffman.EndOfBlockSymbol}
	data := encodeForTable(t, huffman.FixedLitLenLengths[:], symbols)

	var br bitio.Reader
	br.Fill(data)
	for _, want := range symbols {
		got, ok, err := table.Decode(&br)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if !ok {
			t.Fatalf("Decode failed, want symbol %d", want)
		}
		if got != want {
			t.Fatalf("got symbol %d, want %d", got, want)
		}
	}
}

func TestBuildRejectsOverSubscribedLengths(t *testing.T) {
	// Three symbols all claiming the single 1-bit code.
	_, err := Build([]uint8{1, 1, 1}, false)
	if err != ErrOverSubscribed {
		t.Fatalf("got err %v, want ErrOverSubscribed", err)
	}
}

func TestBuildRejectsIncompleteUnlessSingleCode(t *testing.T) {
	// Two codes of length 2 out of an alphabet that could hold four:
	// incomplete, more than one code, must fail even with allowIncomplete.
	_, err := Build([]uint8{2, 2, 0, 0}, true)
	if err != ErrIncomplete {
		t.Fatalf("got err %v, want ErrIncomplete", err)
	}

	// A single code is the distance alphabet's permitted special case.
	table, err := Build([]uint8{1}, true)
	if err != nil {
		t.Fatalf("Build single code: %v", err)
	}
	if table.MaxLen() != 1 {
		t.Fatalf("got maxLen %d, want 1", table.MaxLen())
	}
}

func TestBuildRejectsIncompleteByDefault(t *testing.T) {
	_, err := Build([]uint8{1}, false)
	if err != ErrIncomplete {
		t.Fatalf("got err %v, want ErrIncomplete", err)
	}
}

func TestBuildEmptyLengthsProducesEmptyTable(t *testing.T) {
	table, err := Build(make([]uint8, 10), false)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if table.MaxLen() != 0 {
		t.Fatalf("got maxLen %d, want 0", table.MaxLen())
	}
}

func TestDecodeVariableLengthCodes(t *testing.T) {
	// A small, complete prefix code over 4 symbols: lengths 1,2,3,3.
	lengths := []uint8{1, 2, 3, 3}
	table, err := Build(lengths, false)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	symbols := []int{0, 1, 2, 3, 0, 3, 1, 2, 0}
	data := encodeForTable(t, lengths, symbols)

	var br bitio.Reader
	br.Fill(data)
	for _, want := range symbols {
		got, ok, err := table.Decode(&br)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if !ok || got != want {
			t.Fatalf("got (%d,%v), want %d", got, ok, want)
		}
	}
}

func TestDecodeEmptyTableFailsFast(t *testing.T) {
	table, err := Build(make([]uint8, 10), false)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var br bitio.Reader
	br.Fill([]byte{0xff, 0xff})
	_, ok, decErr := table.Decode(&br)
	if decErr != ErrNoCodes {
		t.Fatalf("got err %v, want ErrNoCodes", decErr)
	}
	if ok {
		t.Fatalf("got ok=true decoding an empty table")
	}
}
