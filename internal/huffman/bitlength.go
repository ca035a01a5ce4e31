package huffman

import "errors"

// LengthRun is one symbol of the run-length encoding dynamic blocks use to
// transmit a vector of code lengths over the bit-length alphabet (spec.md
// §4.4, RFC 1951 §3.2.7): Symbol is 0-18, and for the three repeat symbols
// ExtraValue/ExtraBits give the extra bits that follow it in the
// bitstream.
type LengthRun struct {
	Symbol     uint8
	ExtraValue uint16
	ExtraBits  uint8
}

// EncodeLengths run-length encodes a vector of code lengths (the
// concatenation of the literal/length and distance length arrays for a
// dynamic block) into bit-length-alphabet symbols: literal lengths 0-15
// stand for themselves, 16 repeats the previous length 3-6 times, 17
// repeats a zero length 3-10 times, and 18 repeats a zero length 11-138
// times.
func EncodeLengths(lengths []uint8) []LengthRun {
	var out []LengthRun
	n := len(lengths)
	i := 0
	for i < n {
		cur := lengths[i]
		j := i + 1
		for j < n && lengths[j] == cur {
			j++
		}
		count := j - i

		if cur == 0 {
			for count > 0 {
				c := count
				if c > 138 {
					c = 138
				}
				switch {
				case c < 3:
					for k := 0; k < c; k++ {
						out = append(out, LengthRun{Symbol: 0})
					}
				case c <= 10:
					out = append(out, LengthRun{Symbol: BitLenRepeatZero3, ExtraValue: uint16(c - 3), ExtraBits: 3})
				default:
					out = append(out, LengthRun{Symbol: BitLenRepeatZero7, ExtraValue: uint16(c - 11), ExtraBits: 7})
				}
				count -= c
			}
		} else {
			out = append(out, LengthRun{Symbol: cur})
			count--
			for count > 0 {
				c := count
				if c > 6 {
					c = 6
				}
				if c < 3 {
					for k := 0; k < c; k++ {
						out = append(out, LengthRun{Symbol: cur})
					}
				} else {
					out = append(out, LengthRun{Symbol: BitLenRepeatPrev, ExtraValue: uint16(c - 3), ExtraBits: 2})
				}
				count -= c
			}
		}
		i = j
	}
	return out
}

// ErrNoPreviousLength is returned when a 16 (repeat previous) symbol is the
// first length symbol decoded, which RFC 1951 prohibits.
var ErrNoPreviousLength = errors.New("huffman: repeat-previous code length symbol with no previous length")

// ErrLengthOverrun is returned when a run-length expansion would write past
// the declared HLIT+HDIST total.
var ErrLengthOverrun = errors.New("huffman: code length run-length overruns declared symbol count")

// LengthExpander rebuilds a code-length vector from a stream of decoded
// bit-length-alphabet symbols, applying the same run-length semantics
// EncodeLengths used to produce them. The inflate engine owns reading the
// symbol and any extra bits off the wire; this type owns only the
// resulting array-building logic, so the two directions can't drift apart.
type LengthExpander struct {
	out     []uint8
	total   int
	n       int
	prev    uint8
	hasPrev bool
}

// NewLengthExpander prepares an expander for exactly total code lengths.
func NewLengthExpander(total int) *LengthExpander {
	return &LengthExpander{out: make([]uint8, total), total: total}
}

// Literal appends a single literal code length (symbols 0-15).
func (e *LengthExpander) Literal(length uint8) error {
	if e.n >= e.total {
		return ErrLengthOverrun
	}
	e.out[e.n] = length
	e.n++
	e.prev, e.hasPrev = length, true
	return nil
}

// RepeatPrev repeats the previously emitted length count times (symbol 16,
// count in [3,6]).
func (e *LengthExpander) RepeatPrev(count int) error {
	if !e.hasPrev {
		return ErrNoPreviousLength
	}
	if e.n+count > e.total {
		return ErrLengthOverrun
	}
	for k := 0; k < count; k++ {
		e.out[e.n] = e.prev
		e.n++
	}
	return nil
}

// RepeatZero repeats a zero length count times (symbols 17 and 18, count
// in [3,10] or [11,138] respectively). Afterwards zero is the previously
// emitted length, so a following symbol 16 repeats zero.
func (e *LengthExpander) RepeatZero(count int) error {
	if e.n+count > e.total {
		return ErrLengthOverrun
	}
	for k := 0; k < count; k++ {
		e.out[e.n] = 0
		e.n++
	}
	e.prev, e.hasPrev = 0, true
	return nil
}

// Done returns the completed length vector, or ok=false if fewer than
// total lengths were emitted.
func (e *LengthExpander) Done() (lengths []uint8, ok bool) {
	return e.out, e.n == e.total
}
