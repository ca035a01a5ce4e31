package bitio

// Reader unpacks bit-level values from a byte stream, LSB-first, into a
// wide accumulator. Unlike Writer it does not own its input: the caller
// (the inflate engine) hands it successive byte slices via Fill, since the
// engine itself tracks how much of the caller's input buffer has been
// consumed across re-entrant Process calls. The zero value is ready to
// use.
type Reader struct {
	acc   uint64
	nbits uint
}

// maxFillBits is the accumulator occupancy below which Fill will still pull
// in another byte; it leaves enough headroom that peeking the widest
// value this package supports (32 bits, for the 3-byte EXTRA/stored-length
// cases callers build up incrementally) can never be short by more than a
// single byte at a time.
const maxFillBits = 56

// Fill pulls bytes from the front of src into the accumulator until either
// src is exhausted or the accumulator holds at least maxFillBits bits, and
// returns the number of bytes consumed. The caller must remove the
// returned count from its own pending-input slice.
func (r *Reader) Fill(src []byte) int {
	n := 0
	for n < len(src) && r.nbits <= maxFillBits {
		r.acc |= uint64(src[n]) << r.nbits
		r.nbits += 8
		n++
	}
	return n
}

// NeedBits reports whether at least n bits are currently buffered. n must
// be at most 57 (maxFillBits+1), which covers every field this codec reads
// as a unit (Huffman codes are at most 15 bits, extra-bits fields at most
// 13, length/distance pairs are read as two separate calls).
func (r *Reader) NeedBits(n uint) bool {
	return r.nbits >= n
}

// Peek returns the low n bits of the accumulator without consuming them.
// The caller must have already confirmed NeedBits(n).
func (r *Reader) Peek(n uint) uint32 {
	return uint32(r.acc) & ((1 << n) - 1)
}

// Drop consumes the low n bits of the accumulator. The caller must have
// already confirmed NeedBits(n).
func (r *Reader) Drop(n uint) {
	r.acc >>= n
	r.nbits -= n
}

// PeekDrop is Peek followed by Drop, for the common case of reading a
// field and immediately consuming it.
func (r *Reader) PeekDrop(n uint) uint32 {
	v := r.Peek(n)
	r.Drop(n)
	return v
}

// BitsBuffered reports how many bits are currently held in the
// accumulator.
func (r *Reader) BitsBuffered() uint {
	return r.nbits
}

// AlignToByte discards the partial byte remaining in the accumulator, as
// required before reading a stored block's LEN/NLEN header or a trailing
// checksum/length field that follows a final bit-packed block.
func (r *Reader) AlignToByte() {
	r.Drop(r.nbits % 8)
}

// PendingBytes returns the whole bytes currently buffered in the
// accumulator, without consuming them; it is only valid immediately after
// AlignToByte, when nbits is a multiple of 8. It is used to read a stored
// block's header and literal bytes directly out of the bit accumulator
// before falling back to raw input.
func (r *Reader) PendingBytes(n int) ([]byte, bool) {
	if uint(n*8) > r.nbits {
		return nil, false
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(r.acc)
		r.acc >>= 8
	}
	r.nbits -= uint(n * 8)
	return out, true
}

// Reset discards all buffered state.
func (r *Reader) Reset() {
	r.acc = 0
	r.nbits = 0
}
