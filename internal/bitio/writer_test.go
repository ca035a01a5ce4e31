package bitio

import (
	"bytes"
	"testing"
)

func TestWriterPutBitsSimple(t *testing.T) {
	var w Writer
	w.PutBits(0x1, 1) // 1
	w.PutBits(0x2, 2) // 10
	w.PutBits(0x0, 1) // 0
	w.AlignToByte()
	// bits written LSB-first: 1, then 0,1 (value 2 = 0b10 -> bit0=0,bit1=1), then 0
	// byte bit0..3 = 1,0,1,0 -> byte = 0b0101 = 0x05
	got := w.Bytes()
	if len(got) != 1 || got[0] != 0x05 {
		t.Fatalf("got %v, want [0x05]", got)
	}
}

func TestWriterSpillsAcrossBytes(t *testing.T) {
	var w Writer
	for i := 0; i < 20; i++ {
		w.PutBits(uint16(i&1), 1)
	}
	w.AlignToByte()
	if got, want := w.Len(), 3; got != want {
		t.Fatalf("got %d bytes, want %d", got, want)
	}
}

func TestWriterPutBits16(t *testing.T) {
	var w Writer
	w.PutBits(1, 1)
	w.PutBits(0xFFFF, 16)
	w.AlignToByte()
	got := w.Bytes()
	if len(got) != 3 {
		t.Fatalf("got %d bytes, want 3", got)
	}
}

func TestWriterTakeDrains(t *testing.T) {
	var w Writer
	w.PutBytes([]byte("hello world"))
	dst := make([]byte, 5)
	n := w.Take(dst)
	if n != 5 || !bytes.Equal(dst, []byte("hello")) {
		t.Fatalf("got %q (%d), want %q", dst[:n], n, "hello")
	}
	rest := make([]byte, 100)
	n = w.Take(rest)
	if n != 6 || !bytes.Equal(rest[:n], []byte(" world")) {
		t.Fatalf("got %q (%d), want %q", rest[:n], n, " world")
	}
	if w.Len() != 0 {
		t.Fatalf("expected writer drained, got %d bytes left", w.Len())
	}
}

func TestWriterPendingBitsAndReset(t *testing.T) {
	var w Writer
	w.PutBits(0x3, 3)
	if w.PendingBits() != 3 {
		t.Fatalf("got %d pending bits, want 3", w.PendingBits())
	}
	w.Reset()
	if w.PendingBits() != 0 || w.Len() != 0 {
		t.Fatalf("expected reset writer to be empty")
	}
}

func TestWriterRoundTripsWithReader(t *testing.T) {
	var w Writer
	values := []struct {
		v uint16
		n uint
	}{
		{0x1, 1}, {0x3, 2}, {0x5, 3}, {0xF, 4}, {0x1F, 5},
		{0x3F, 6}, {0x7F, 7}, {0xFF, 8}, {0x1FF, 9}, {0x7FFF, 15},
	}
	for _, tc := range values {
		w.PutBits(tc.v, tc.n)
	}
	w.AlignToByte()

	var r Reader
	input := w.Bytes()
	for len(input) > 0 {
		input = input[r.Fill(input):]
	}
	for _, tc := range values {
		if !r.NeedBits(tc.n) {
			t.Fatalf("ran out of bits reading %d-bit field", tc.n)
		}
		got := r.PeekDrop(tc.n)
		want := uint32(tc.v) & ((1 << tc.n) - 1)
		if got != want {
			t.Fatalf("got %#x, want %#x (n=%d)", got, want, tc.n)
		}
	}
}
