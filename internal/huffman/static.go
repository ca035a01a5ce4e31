// Package huffman builds and represents the canonical Huffman codes DEFLATE
// uses for its three alphabets (literal/length, distance, and the
// bit-length alphabet used only to transmit dynamic code lengths), plus the
// fixed-code tables RFC 1951 defines for static blocks.
package huffman

// Alphabet sizes, per RFC 1951 §3.2.5/§3.2.7.
const (
	MaxLitLenSymbols  = 286 // 0-255 literals, 256 end-of-block, 257-285 lengths
	MaxDistSymbols    = 30
	MaxBitLenSymbols  = 19
	EndOfBlockSymbol  = 256
	MaxMatchLength    = 258
	MinMatchLength    = 3
	MaxCodeLength     = 15 // literal/length and distance alphabets
	MaxBitLenCodeBits = 7  // bit-length alphabet
)

// FixedLitLenLengths are the RFC 1951 §3.2.6 fixed code lengths for the
// literal/length alphabet: 144 symbols (0-143) at 8 bits, 112 (144-255) at
// 9 bits, 24 (256-279) at 7 bits, and 8 (280-287) at 8 bits. Symbols 286
// and 287 never occur but are included so that the lengths form a
// complete prefix code for the canonical assignment.
var FixedLitLenLengths = func() [288]uint8 {
	var l [288]uint8
	for i := 0; i <= 143; i++ {
		l[i] = 8
	}
	for i := 144; i <= 255; i++ {
		l[i] = 9
	}
	for i := 256; i <= 279; i++ {
		l[i] = 7
	}
	for i := 280; i <= 287; i++ {
		l[i] = 8
	}
	return l
}()

// FixedDistLengths are the fixed code lengths for the distance alphabet:
// all 5 bits, per RFC 1951 §3.2.6. The alphabet is padded to 32 symbols
// although only the first 30 are ever used.
var FixedDistLengths = func() [32]uint8 {
	var l [32]uint8
	for i := range l {
		l[i] = 5
	}
	return l
}()

// LengthBase and LengthExtraBits give, for literal/length codes 257-285
// (index 0-28), the smallest match length the code represents and the
// count of extra bits that follow it in the bitstream to select the exact
// length within the code's range.
var LengthBase = [29]uint16{
	3, 4, 5, 6, 7, 8, 9, 10, 11, 13,
	15, 17, 19, 23, 27, 31, 35, 43, 51, 59,
	67, 83, 99, 115, 131, 163, 195, 227, 258,
}

var LengthExtraBits = [29]uint8{
	0, 0, 0, 0, 0, 0, 0, 0, 1, 1,
	1, 1, 2, 2, 2, 2, 3, 3, 3, 3,
	4, 4, 4, 4, 5, 5, 5, 5, 0,
}

// DistBase and DistExtraBits give, for distance codes 0-29, the smallest
// distance the code represents and the count of extra bits that follow.
var DistBase = [30]uint16{
	1, 2, 3, 4, 5, 7, 9, 13, 17, 25,
	33, 49, 65, 97, 129, 193, 257, 385, 513, 769,
	1025, 1537, 2049, 3073, 4097, 6145, 8193, 12289, 16385, 24577,
}

var DistExtraBits = [30]uint8{
	0, 0, 0, 0, 1, 1, 2, 2, 3, 3,
	4, 4, 5, 5, 6, 6, 7, 7, 8, 8,
	9, 9, 10, 10, 11, 11, 12, 12, 13, 13,
}

// BitLenCodeOrder gives the order in which bit-length-alphabet code
// lengths are transmitted for a dynamic block header, per RFC 1951
// §3.2.7: the permutation puts the codes an encoder is statistically
// likeliest to need (16/17/18, the run-length symbols) first, so that
// HBLEN can often be small.
var BitLenCodeOrder = [19]uint8{
	16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15,
}

// Bit-length alphabet run-length symbols, per RFC 1951 §3.2.7.
const (
	BitLenRepeatPrev  = 16 // repeat previous code length 3-6 times (2 extra bits)
	BitLenRepeatZero3 = 17 // repeat a zero length 3-10 times (3 extra bits)
	BitLenRepeatZero7 = 18 // repeat a zero length 11-138 times (7 extra bits)
)

// InflateMask holds (1<<n)-1 for n in [0,16], used throughout the decoder
// to mask off the low n bits of a peeked bit-accumulator value.
var InflateMask = func() [17]uint16 {
	var m [17]uint16
	for n := range m {
		m[n] = uint16(1<<uint(n)) - 1
	}
	return m
}()
