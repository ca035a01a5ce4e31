package framing

import (
	"strings"

	"github.com/cosnicolaou/goflate/internal/checksum"
)

// GZIP implements RFC 1952 framing: a 10-byte fixed header, optional
// FEXTRA/FNAME/FCOMMENT/FHCRC fields, the wrapped DEFLATE stream, and an
// 8-byte trailer of CRC-32 and ISIZE (both little-endian).
const (
	gzipID1   = 0x1f
	gzipID2   = 0x8b
	gzipCM    = 8
	gzipOSUnk = 0xff

	flagFTEXT    = 1 << 0
	flagFHCRC    = 1 << 1
	flagFEXTRA   = 1 << 2
	flagFNAME    = 1 << 3
	flagFCOMMENT = 1 << 4
)

// Header carries the optional metadata fields RFC 1952 allows a gzip
// member to attach: a filename, a comment, a modification time, and an
// arbitrary extra-field payload. All string fields are ISO-8859-1 text
// and must not contain an embedded NUL, since NUL is the field
// terminator on the wire.
type Header struct {
	Name    string
	Comment string
	ModTime uint32 // seconds since the Unix epoch, or 0 if unknown
	Extra   []byte
	OS      byte
}

// XFLForLevel returns the XFL byte gzip conventionally sets to hint at
// how hard the compressor worked: 2 for the slowest/best level, 4 for
// the fastest, 0 otherwise.
func XFLForLevel(level int) byte {
	switch {
	case level == 9:
		return 2
	case level == 1:
		return 4
	default:
		return 0
	}
}

// EncodeHeader builds a complete gzip member header: the 10-byte fixed
// portion plus any of FEXTRA, FNAME, FCOMMENT, FHCRC that apply.
// headerCRCFn computes the CRC-32 (IEEE polynomial) of everything written
// before the FHCRC field itself, and is required when FHCRC is requested.
func EncodeHeader(h Header, level int, withHCRC bool, headerCRCFn func([]byte) uint32) ([]byte, error) {
	if strings.IndexByte(h.Name, 0) >= 0 {
		return nil, StructuralError("gzip file name contains an embedded NUL")
	}
	if strings.IndexByte(h.Comment, 0) >= 0 {
		return nil, StructuralError("gzip comment contains an embedded NUL")
	}

	var flg byte
	if h.Extra != nil {
		flg |= flagFEXTRA
	}
	if h.Name != "" {
		flg |= flagFNAME
	}
	if h.Comment != "" {
		flg |= flagFCOMMENT
	}
	if withHCRC {
		flg |= flagFHCRC
	}

	os := h.OS
	if os == 0 {
		os = gzipOSUnk
	}

	buf := make([]byte, 10)
	buf[0] = gzipID1
	buf[1] = gzipID2
	buf[2] = gzipCM
	buf[3] = flg
	buf[4] = byte(h.ModTime)
	buf[5] = byte(h.ModTime >> 8)
	buf[6] = byte(h.ModTime >> 16)
	buf[7] = byte(h.ModTime >> 24)
	buf[8] = XFLForLevel(level)
	buf[9] = os

	if h.Extra != nil {
		if len(h.Extra) > 0xffff {
			return nil, StructuralError("gzip extra field too large")
		}
		xlen := len(h.Extra)
		buf = append(buf, byte(xlen), byte(xlen>>8))
		buf = append(buf, h.Extra...)
	}
	if h.Name != "" {
		buf = append(buf, []byte(h.Name)...)
		buf = append(buf, 0)
	}
	if h.Comment != "" {
		buf = append(buf, []byte(h.Comment)...)
		buf = append(buf, 0)
	}
	if withHCRC {
		crc := headerCRCFn(buf) & 0xffff
		buf = append(buf, byte(crc), byte(crc>>8))
	}
	return buf, nil
}

// EncodeTrailer builds the 8-byte CRC-32/ISIZE trailer. size is the
// uncompressed length, truncated mod 2^32 per RFC 1952.
func EncodeTrailer(crc uint32, size uint64) []byte {
	isize := uint32(size)
	return []byte{
		byte(crc), byte(crc >> 8), byte(crc >> 16), byte(crc >> 24),
		byte(isize), byte(isize >> 8), byte(isize >> 16), byte(isize >> 24),
	}
}

// DecodeTrailer parses the 8-byte CRC-32/ISIZE trailer.
func DecodeTrailer(data []byte) (crc uint32, isize uint32, ok bool) {
	if len(data) < 8 {
		return 0, 0, false
	}
	crc = uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
	isize = uint32(data[4]) | uint32(data[5])<<8 | uint32(data[6])<<16 | uint32(data[7])<<24
	return crc, isize, true
}

// HeaderReader incrementally parses a gzip member header from a stream
// of byte chunks that may each be arbitrarily short, since the
// streaming facade cannot assume a whole header arrives in one call.
type HeaderReader struct {
	buf          []byte // header bytes consumed so far, for FHCRC verification
	pending      []byte // start of a fixed-size field awaiting more bytes
	done         bool
	flg          byte
	xlen         int
	haveXlen     bool
	extraWant    int
	header       Header
	needName     bool
	needComment  bool
	needHCRC     bool
	fixedParsed  bool
	modTimeBytes [4]byte
}

// NewHeaderReader returns a HeaderReader ready to accept header bytes.
func NewHeaderReader() *HeaderReader { return &HeaderReader{} }

// Feed appends data to the reader's internal buffer and attempts to make
// progress parsing the header. It returns the number of bytes consumed
// from data; call Feed repeatedly (with fresh data appended after the
// previous consumed count) until Done reports true.
func (r *HeaderReader) Feed(data []byte) (consumed int, err error) {
	in := len(data)
	if len(r.pending) > 0 {
		data = append(r.pending, data...)
		r.pending = nil
	}
	for !r.done {
		n, progressed, perr := r.step(data)
		if perr != nil {
			return in, perr
		}
		data = data[n:]
		if !progressed || (n == 0 && len(data) == 0) {
			break
		}
	}
	if r.done {
		return in - len(data), nil
	}
	// Keep the bytes of a fixed-size field that is not yet complete until
	// the next Feed supplies the rest.
	r.pending = append([]byte(nil), data...)
	return in, nil
}

func (r *HeaderReader) step(data []byte) (consumed int, progressed bool, err error) {
	if !r.fixedParsed {
		if len(data) < 10 {
			return 0, false, nil
		}
		if data[0] != gzipID1 || data[1] != gzipID2 {
			return 0, false, StructuralError("invalid gzip magic bytes")
		}
		if data[2] != gzipCM {
			return 0, false, StructuralError("unsupported gzip compression method")
		}
		r.flg = data[3]
		r.header.ModTime = uint32(data[4]) | uint32(data[5])<<8 | uint32(data[6])<<16 | uint32(data[7])<<24
		r.header.OS = data[9]
		r.fixedParsed = true
		if r.flg&flagFEXTRA != 0 {
			r.extraWant = -1 // sentinel: still need the 2-byte XLEN
		}
		r.needName = r.flg&flagFNAME != 0
		r.needComment = r.flg&flagFCOMMENT != 0
		r.needHCRC = r.flg&flagFHCRC != 0
		r.buf = append(r.buf, data[:10]...)
		return 10, true, nil
	}
	if r.flg&flagFEXTRA != 0 && !r.haveXlen {
		if len(data) < 2 {
			return 0, false, nil
		}
		r.xlen = int(data[0]) | int(data[1])<<8
		r.haveXlen = true
		r.extraWant = r.xlen
		r.header.Extra = make([]byte, 0, r.xlen)
		r.buf = append(r.buf, data[:2]...)
		return 2, true, nil
	}
	if r.flg&flagFEXTRA != 0 && r.extraWant > 0 {
		n := r.extraWant
		if n > len(data) {
			n = len(data)
		}
		r.header.Extra = append(r.header.Extra, data[:n]...)
		r.extraWant -= n
		r.buf = append(r.buf, data[:n]...)
		return n, true, nil
	}
	r.flg &^= flagFEXTRA // extra field fully consumed (or absent)

	if r.needName {
		i := indexByte(data, 0)
		if i < 0 {
			r.header.Name += string(data)
			r.buf = append(r.buf, data...)
			return len(data), true, nil
		}
		r.header.Name += string(data[:i])
		r.needName = false
		r.buf = append(r.buf, data[:i+1]...)
		return i + 1, true, nil
	}
	if r.needComment {
		i := indexByte(data, 0)
		if i < 0 {
			r.header.Comment += string(data)
			r.buf = append(r.buf, data...)
			return len(data), true, nil
		}
		r.header.Comment += string(data[:i])
		r.needComment = false
		r.buf = append(r.buf, data[:i+1]...)
		return i + 1, true, nil
	}
	if r.needHCRC {
		if len(data) < 2 {
			return 0, false, nil
		}
		want := uint32(data[0]) | uint32(data[1])<<8
		c := checksum.New(checksum.IEEETable)
		c.Update(r.buf)
		if got := c.Sum32() & 0xffff; got != want {
			return 0, false, StructuralError("gzip header checksum mismatch")
		}
		r.needHCRC = false
		r.done = true
		return 2, true, nil
	}
	r.done = true
	return 0, false, nil
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

// Done reports whether the full header has been parsed.
func (r *HeaderReader) Done() bool { return r.done }

// Header returns the parsed metadata. Valid only once Done reports true.
func (r *HeaderReader) Header() Header { return r.header }
