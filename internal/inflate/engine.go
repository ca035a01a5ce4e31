package inflate

import (
	"github.com/cosnicolaou/goflate/internal/bitio"
	"github.com/cosnicolaou/goflate/internal/huffman"
)

// A StructuralError is returned when a compressed stream cannot possibly
// be valid DEFLATE: a bad block type, an over/under-subscribed Huffman
// tree, a stored-block length whose complement doesn't check out, a
// distance or length code that decodes no matching base, or a
// back-reference distance that reaches further than any byte this stream
// has produced. It is the DataError class of spec.md §7.
type StructuralError string

func (s StructuralError) Error() string { return string(s) }

var (
	fixedLitLenTable, _ = Build(huffman.FixedLitLenLengths[:], false)
	fixedDistTable, _   = Build(huffman.FixedDistLengths[:], false)
)

// blockState names the state machine's current position within a DEFLATE
// bitstream, matching the decomposition spec.md §4.7 lays out: a TYPE
// dispatch, one sub-machine per block encoding, a CODES loop shared by
// fixed and dynamic blocks, and a terminal state once the last block's
// end-of-block code has been seen.
type blockState int

const (
	stateType blockState = iota
	stateStoredLen
	stateStoredCopy
	stateDynamicHeader
	stateDynamicBLLengths
	stateDynamicCodeLengths
	stateCodes
	stateCodesLengthExtra
	stateCodesDistSymbol
	stateCodesDistExtra
	stateMatchCopy
	stateDone
)

// Decoder is a resumable DEFLATE block decoder. It owns a circular
// history window sized to windowBits (spec.md §4.2's decompression-side
// sliding window) and decodes one block at a time across as many Decode
// calls as the caller's input and output buffers require; no goroutine,
// lock, or blocking I/O is ever used; see spec.md §5.
type Decoder struct {
	br bitio.Reader

	win      []byte
	wpos     int
	total    int64 // total bytes ever produced (or seeded via dictionary)
	fullSize int   // len(win); distances beyond this are always invalid

	st        blockState
	lastBlock bool

	storedRemaining int

	hlit, hdist, hblen int
	blRawLengths       [19]uint8
	blRawIndex         int
	blTable            *Table
	blLengths          [19]uint8
	expander           *huffman.LengthExpander
	blPendingSymbol    int // -1 when no bit-length symbol awaits its extra bits

	litTable  *Table
	distTable *Table

	pendingLengthCode int // index into huffman.LengthBase while awaiting its extra bits
	pendingLength     int // resolved match length while awaiting a distance symbol
	pendingDistSym    int // resolved distance symbol while awaiting its extra bits

	matchLength   int
	matchDistance int

	err error
}

// NewDecoder constructs a decoder whose history window holds up to
// 1<<windowBits bytes, matching the window_bits the stream was
// compressed with (RFC 1951 leaves this out-of-band; ZLIB framing
// recovers it from CMF, GZIP and raw DEFLATE require the caller to know
// it by convention).
func NewDecoder(windowBits int) *Decoder {
	size := 1 << uint(windowBits)
	return &Decoder{
		win:      make([]byte, size),
		fullSize: size,
		st:       stateType,
	}
}

// Reset restores the decoder to its initial state, discarding any
// buffered bits and history, ready to decode a new stream.
func (d *Decoder) Reset() {
	d.br.Reset()
	for i := range d.win {
		d.win[i] = 0
	}
	d.wpos = 0
	d.total = 0
	d.st = stateType
	d.lastBlock = false
	d.err = nil
}

// SetDictionary seeds the history window with a preset dictionary's
// trailing bytes (RFC 1950's preset-dictionary facility, spec.md §6
// scenario 5), so that the stream's first matches can reference it. It
// must be called before any Decode call, on a freshly constructed or
// Reset decoder.
func (d *Decoder) SetDictionary(dict []byte) {
	if len(dict) > d.fullSize {
		dict = dict[len(dict)-d.fullSize:]
	}
	copy(d.win, dict)
	d.wpos = len(dict) % d.fullSize
	d.total = int64(len(dict))
}

// Err returns the first StructuralError encountered, sticky across
// subsequent Decode calls.
func (d *Decoder) Err() error { return d.err }

// Done reports whether the final block's end-of-block code has been
// fully consumed.
func (d *Decoder) Done() bool { return d.st == stateDone }

// TakeBuffered aligns the bit reader to the next byte boundary (the
// EOB code never ends a stream mid-byte in a way that loses real data;
// any partial byte beyond it is padding) and returns whatever whole
// bytes are now sitting unconsumed in its accumulator. Decode's own
// look-ahead (bitio.Reader.Fill pulls bytes greedily) means some of a
// container's trailer may already have been read into the accumulator
// by the time Done becomes true; callers that need those raw bytes
// back (to verify a checksum trailer, for instance) call this once,
// immediately after Done reports true, before consulting consumedIn.
func (d *Decoder) TakeBuffered() []byte {
	d.br.AlignToByte()
	n := int(d.br.BitsBuffered() / 8)
	b, _ := d.br.PendingBytes(n)
	return b
}

// Decode consumes bytes of in and produces decompressed bytes into out,
// returning how much of each it used. It is re-entrant: call it again
// with more input (and/or a fresh output buffer) to continue. It stops
// making progress, without error, when out is full, when in is exhausted
// mid-block, or when the stream's final block has been fully decoded.
func (d *Decoder) Decode(in []byte, out []byte) (consumedIn, producedOut int, err error) {
	if d.err != nil {
		return 0, 0, d.err
	}
	inPos := 0
	outPos := 0

	for {
		inPos += d.br.Fill(in[inPos:])

		switch d.st {
		case stateDone:
			return inPos, outPos, nil

		case stateType:
			if !d.br.NeedBits(3) {
				return inPos, outPos, nil
			}
			last := d.br.PeekDrop(1)
			btype := d.br.PeekDrop(2)
			d.lastBlock = last == 1
			switch btype {
			case 0:
				d.st = stateStoredLen
			case 1:
				d.litTable, d.distTable = fixedLitLenTable, fixedDistTable
				d.st = stateCodes
			case 2:
				d.st = stateDynamicHeader
			default:
				return inPos, outPos, d.fail("invalid block type 3")
			}

		case stateStoredLen:
			d.br.AlignToByte()
			bytes, ok := d.br.PendingBytes(4)
			if !ok {
				return inPos, outPos, nil
			}
			length := uint16(bytes[0]) | uint16(bytes[1])<<8
			nlength := uint16(bytes[2]) | uint16(bytes[3])<<8
			if length != ^nlength {
				return inPos, outPos, d.fail("stored block length complement mismatch")
			}
			d.storedRemaining = int(length)
			d.st = stateStoredCopy

		case stateStoredCopy:
			for d.storedRemaining > 0 {
				if outPos >= len(out) {
					return inPos, outPos, nil
				}
				b, ok := d.br.PendingBytes(1)
				if !ok {
					return inPos, outPos, nil
				}
				d.emit(b[0], out, &outPos)
				d.storedRemaining--
			}
			d.st = d.afterBlock()

		case stateDynamicHeader:
			if !d.br.NeedBits(14) {
				return inPos, outPos, nil
			}
			d.hlit = int(d.br.PeekDrop(5)) + 257
			d.hdist = int(d.br.PeekDrop(5)) + 1
			d.hblen = int(d.br.PeekDrop(4)) + 4
			d.blRawIndex = 0
			for i := range d.blRawLengths {
				d.blRawLengths[i] = 0
			}
			d.st = stateDynamicBLLengths

		case stateDynamicBLLengths:
			for d.blRawIndex < d.hblen {
				if !d.br.NeedBits(3) {
					return inPos, outPos, nil
				}
				d.blRawLengths[d.blRawIndex] = uint8(d.br.PeekDrop(3))
				d.blRawIndex++
			}
			for i := range d.blLengths {
				d.blLengths[i] = 0
			}
			for i := 0; i < d.hblen; i++ {
				d.blLengths[huffman.BitLenCodeOrder[i]] = d.blRawLengths[i]
			}
			table, buildErr := Build(d.blLengths[:], false)
			if buildErr != nil {
				return inPos, outPos, d.fail(buildErr.Error())
			}
			d.blTable = table
			d.expander = huffman.NewLengthExpander(d.hlit + d.hdist)
			d.blPendingSymbol = -1
			d.st = stateDynamicCodeLengths

		case stateDynamicCodeLengths:
			if doneReading, needMore, stepErr := d.stepCodeLengths(); stepErr != nil {
				return inPos, outPos, d.fail(stepErr.Error())
			} else if needMore {
				return inPos, outPos, nil
			} else if doneReading {
				lengths, ok := d.expander.Done()
				if !ok {
					return inPos, outPos, d.fail("code length run overran declared count")
				}
				litLenLengths := lengths[:d.hlit]
				distLengths := lengths[d.hlit:]
				litTable, buildErr := Build(litLenLengths, true)
				if buildErr != nil {
					return inPos, outPos, d.fail(buildErr.Error())
				}
				distTable, buildErr := Build(distLengths, true)
				if buildErr != nil {
					return inPos, outPos, d.fail(buildErr.Error())
				}
				d.litTable, d.distTable = litTable, distTable
				d.st = stateCodes
			}

		case stateCodes:
			if outPos >= len(out) {
				// A literal symbol would need to write a byte we have
				// nowhere to put; since decoding consumes bits that can't
				// be put back, don't attempt it until the caller hands us
				// more room.
				return inPos, outPos, nil
			}
			if !d.br.NeedBits(uint(d.litTable.MaxLen())) {
				return inPos, outPos, nil
			}
			sym, ok, decErr := d.litTable.Decode(&d.br)
			if decErr != nil {
				return inPos, outPos, d.fail(decErr.Error())
			}
			if !ok {
				return inPos, outPos, nil
			}
			switch {
			case sym < 256:
				d.emit(byte(sym), out, &outPos)
			case sym == huffman.EndOfBlockSymbol:
				d.st = d.afterBlock()
			case sym <= 285:
				d.pendingLengthCode = sym - 257
				d.st = stateCodesLengthExtra
			default:
				return inPos, outPos, d.fail("invalid literal/length code")
			}

		case stateCodesLengthExtra:
			extraBits := huffman.LengthExtraBits[d.pendingLengthCode]
			if !d.br.NeedBits(uint(extraBits)) {
				return inPos, outPos, nil
			}
			extra := uint16(0)
			if extraBits > 0 {
				extra = uint16(d.br.PeekDrop(uint(extraBits)))
			}
			d.pendingLength = int(huffman.LengthBase[d.pendingLengthCode]) + int(extra)
			d.st = stateCodesDistSymbol

		case stateCodesDistSymbol:
			if !d.br.NeedBits(uint(d.distTable.MaxLen())) {
				return inPos, outPos, nil
			}
			dsym, ok, decErr := d.distTable.Decode(&d.br)
			if decErr != nil {
				return inPos, outPos, d.fail(decErr.Error())
			}
			if !ok {
				return inPos, outPos, nil
			}
			if dsym >= len(huffman.DistBase) {
				return inPos, outPos, d.fail("invalid distance code")
			}
			d.pendingDistSym = dsym
			d.st = stateCodesDistExtra

		case stateCodesDistExtra:
			extraBits := huffman.DistExtraBits[d.pendingDistSym]
			if !d.br.NeedBits(uint(extraBits)) {
				return inPos, outPos, nil
			}
			extra := uint16(0)
			if extraBits > 0 {
				extra = uint16(d.br.PeekDrop(uint(extraBits)))
			}
			distance := int(huffman.DistBase[d.pendingDistSym]) + int(extra)
			if distance <= 0 || int64(distance) > d.total || distance > d.fullSize {
				return inPos, outPos, d.fail("distance too far back")
			}
			d.matchLength = d.pendingLength
			d.matchDistance = distance
			d.st = stateMatchCopy

		case stateMatchCopy:
			for d.matchLength > 0 {
				if outPos >= len(out) {
					return inPos, outPos, nil
				}
				b := d.historyByte(d.matchDistance)
				d.emit(b, out, &outPos)
				d.matchLength--
			}
			d.st = stateCodes
		}
	}
}

// afterBlock returns the state to resume in once a block's body is fully
// consumed: another block header, or terminal if this was the last one.
func (d *Decoder) afterBlock() blockState {
	if d.lastBlock {
		return stateDone
	}
	return stateType
}

// bitLenExtraBits gives the extra-bit count and count bias for each of the
// three bit-length run-length symbols (spec.md §4.4); literal symbols
// (0-15) need no extra bits.
func bitLenExtraBits(sym int) (extraBits uint, bias int) {
	switch sym {
	case huffman.BitLenRepeatPrev:
		return 2, 3
	case huffman.BitLenRepeatZero3:
		return 3, 3
	case huffman.BitLenRepeatZero7:
		return 7, 11
	default:
		return 0, 0
	}
}

// stepCodeLengths decodes exactly one bit-length-alphabet symbol (plus
// any extra bits and run expansion it implies) per call, so a short read
// mid-run leaves resumable state behind. Because the symbol's own code
// and its extra bits are two separate NeedBits checks, the decoded symbol
// is held in blPendingSymbol between them: if extra bits aren't yet
// buffered, the next call resumes waiting on them instead of decoding a
// fresh symbol (which would silently drop the one already consumed from
// the bitstream). doneReading is true once exactly hlit+hdist lengths
// have been produced.
func (d *Decoder) stepCodeLengths() (doneReading, needMore bool, err error) {
	if d.blPendingSymbol < 0 {
		if !d.br.NeedBits(uint(d.blTable.MaxLen())) {
			return false, true, nil
		}
		sym, ok, decErr := d.blTable.Decode(&d.br)
		if decErr != nil {
			return false, false, decErr
		}
		if !ok {
			return false, true, nil
		}
		d.blPendingSymbol = sym
	}

	sym := d.blPendingSymbol
	extraBits, bias := bitLenExtraBits(sym)
	if extraBits > 0 && !d.br.NeedBits(extraBits) {
		return false, true, nil
	}
	count := bias
	if extraBits > 0 {
		count += int(d.br.PeekDrop(extraBits))
	}

	switch {
	case sym <= 15:
		err = d.expander.Literal(uint8(sym))
	case sym == huffman.BitLenRepeatPrev:
		err = d.expander.RepeatPrev(count)
	case sym == huffman.BitLenRepeatZero3, sym == huffman.BitLenRepeatZero7:
		err = d.expander.RepeatZero(count)
	default:
		err = StructuralError("invalid bit-length code")
	}
	d.blPendingSymbol = -1
	if err != nil {
		return false, false, err
	}
	if _, ok := d.expander.Done(); ok {
		return true, false, nil
	}
	return false, false, nil
}

// historyByte reads the byte distance positions behind the current write
// cursor out of the circular window.
func (d *Decoder) historyByte(distance int) byte {
	idx := d.wpos - distance
	if idx < 0 {
		idx += d.fullSize
	}
	return d.win[idx]
}

// emit writes one decoded byte into both the circular history window and
// the caller's output buffer, and advances all the bookkeeping that
// tracks the stream's overall position.
func (d *Decoder) emit(b byte, out []byte, outPos *int) {
	d.win[d.wpos] = b
	d.wpos++
	if d.wpos == d.fullSize {
		d.wpos = 0
	}
	d.total++
	out[*outPos] = b
	*outPos++
}

func (d *Decoder) fail(msg string) error {
	d.err = StructuralError(msg)
	return d.err
}
