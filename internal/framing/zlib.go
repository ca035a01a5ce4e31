package framing

// ZLIB implements RFC 1950 framing: a 2-byte header (CMF/FLG), an
// optional 4-byte big-endian Adler-32 of a preset dictionary, and a
// trailing 4-byte big-endian Adler-32 of the uncompressed stream.
const (
	zlibCM = 8 // CM=8 means "deflate", the only method RFC 1950 defines.
)

// ZLevelFlag maps a DeflaterConfig level (0-9) onto the 2-bit FLEVEL
// field RFC 1950 defines, mirroring zlib's own deflate.c: level 0-1 are
// "fastest", 2-5 "fast", 6 "default", 7-9 "maximum compression". FLEVEL
// is purely advisory to a reader and is never checked by a decoder.
func ZLevelFlag(level int) uint8 {
	switch {
	case level < 2:
		return 0
	case level < 6:
		return 1
	case level == 6:
		return 2
	default:
		return 3
	}
}

// EncodeZlibHeader builds the 2-byte CMF/FLG header for windowBits
// (9-15) and level, setting FDICT when a preset dictionary will follow.
// The FCHECK field is chosen so the big-endian uint16 of the two bytes
// together is a multiple of 31, per RFC 1950 §2.2.
func EncodeZlibHeader(windowBits, level int, fdict bool) []byte {
	cinfo := uint8(windowBits - 8)
	cmf := cinfo<<4 | zlibCM

	var flg uint8
	if fdict {
		flg |= 1 << 5
	}
	flg |= ZLevelFlag(level) << 6

	check := (31 - (int(cmf)*256+int(flg))%31) % 31
	flg |= uint8(check)

	return []byte{cmf, flg}
}

// DecodeZlibHeader parses a 2-byte CMF/FLG header, returning the
// recovered window size (in bits) and whether a preset-dictionary
// Adler-32 follows. It requires at least 2 bytes of data.
func DecodeZlibHeader(data []byte) (windowBits int, fdict bool, err error) {
	if len(data) < 2 {
		return 0, false, StructuralError("zlib header truncated")
	}
	cmf, flg := data[0], data[1]
	if (int(cmf)*256+int(flg))%31 != 0 {
		return 0, false, StructuralError("zlib header checksum (FCHECK) mismatch")
	}
	if cmf&0x0f != zlibCM {
		return 0, false, StructuralError("unsupported zlib compression method")
	}
	cinfo := cmf >> 4
	if cinfo > 7 {
		return 0, false, StructuralError("zlib window size too large")
	}
	windowBits = int(cinfo) + 8
	fdict = flg&(1<<5) != 0
	return windowBits, fdict, nil
}

// EncodeAdler32BE encodes an Adler-32 checksum as 4 big-endian bytes, the
// wire form RFC 1950 uses both for the optional preset-dictionary
// checksum and the stream trailer.
func EncodeAdler32BE(adler uint32) []byte {
	return []byte{byte(adler >> 24), byte(adler >> 16), byte(adler >> 8), byte(adler)}
}

// DecodeAdler32BE parses a 4-byte big-endian Adler-32 checksum.
func DecodeAdler32BE(data []byte) (adler uint32, ok bool) {
	if len(data) < 4 {
		return 0, false
	}
	return uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3]), true
}
