package checksum

// gf2Dim is the dimension of the GF(2) matrices used by Combine: one bit of
// CRC state per matrix row/column.
const gf2Dim = 32

// Table is a table-driven CRC-32 instance for a particular polynomial and
// bit order. Build one with MakeTable (or use IEEETable/BZIP2Table) and
// reuse it across any number of CRC32 accumulators.
type Table struct {
	entries   [256]uint32
	poly      uint32
	reflected bool
}

// MakeTable builds the 256-entry lookup table for the given polynomial.
// When reflected is true, poly must already be in reversed-bit form (as
// with the standard gzip/zlib polynomial 0xEDB88320) and bytes are
// processed least-significant-bit first. When reflected is false, poly is
// used in its normal (non-reversed) form and bytes are processed
// most-significant-bit first, matching the variant bzip2 uses.
func MakeTable(poly uint32, reflected bool) *Table {
	t := &Table{poly: poly, reflected: reflected}
	for i := 0; i < 256; i++ {
		var crc uint32
		if reflected {
			crc = uint32(i)
			for j := 0; j < 8; j++ {
				if crc&1 != 0 {
					crc = (crc >> 1) ^ poly
				} else {
					crc >>= 1
				}
			}
		} else {
			crc = uint32(i) << 24
			for j := 0; j < 8; j++ {
				if crc&0x80000000 != 0 {
					crc = (crc << 1) ^ poly
				} else {
					crc <<= 1
				}
			}
		}
		t.entries[i] = crc
	}
	return t
}

// IEEETable is the standard reflected CRC-32 table used by GZIP and ZLIB
// (polynomial 0xEDB88320 in reversed form, a.k.a. CRC-32/ISO-HDLC).
var IEEETable = MakeTable(0xedb88320, true)

// BZIP2Table is the non-reflected, MSB-first CRC-32 variant bzip2 uses
// (polynomial 0x04C11DB7 in normal form, a.k.a. CRC-32/BZIP2).
var BZIP2Table = MakeTable(0x04c11db7, false)

// CRC32 is a resumable CRC-32 accumulator over a particular Table. The zero
// value is not ready for use; construct one with New.
type CRC32 struct {
	table *Table
	val   uint32
}

// New returns a CRC32 accumulator using table, initialized to the checksum
// of the empty string.
func New(table *Table) CRC32 {
	return CRC32{table: table, val: 0xffffffff}
}

// Reset restores the accumulator to its initial state.
func (c *CRC32) Reset() {
	c.val = 0xffffffff
}

// UpdateByte folds a single byte into the running checksum.
func (c *CRC32) UpdateByte(b byte) {
	if c.table.reflected {
		c.val = c.table.entries[byte(c.val)^b] ^ (c.val >> 8)
	} else {
		c.val = c.table.entries[byte(c.val>>24)^b] ^ (c.val << 8)
	}
}

// Update folds p into the running checksum.
func (c *CRC32) Update(p []byte) {
	for _, b := range p {
		c.UpdateByte(b)
	}
}

// UpdateRun folds n repetitions of b into the running checksum. On the
// reflected (IEEE) table it does so in O(log n) table operations by
// repeated doubling via Combine rather than an O(n) byte loop: it is the
// fast path for the long same-byte runs RLE-style encoders commonly
// produce. The non-reflected (bzip2) variant falls back to a direct loop,
// since the matrix-combine construction below is specific to the reflected
// convention.
func (c *CRC32) UpdateRun(b byte, n int) {
	if n <= 0 {
		return
	}
	if !c.table.reflected {
		for i := 0; i < n; i++ {
			c.UpdateByte(b)
		}
		return
	}

	// doubling holds the *completed* (finalized) checksum of 2^k copies of
	// b computed standalone; Combine composes completed checksums, so both
	// the running total and the doubling segment are tracked in finalized
	// form and converted back to register form only once at the end.
	total := c.Sum32()
	var seg CRC32
	seg.table = c.table
	seg.val = 0xffffffff
	seg.UpdateByte(b)
	segDone := seg.Sum32()
	segLen := int64(1)

	remaining := n
	for remaining > 0 {
		if remaining&1 != 0 {
			total = CombineCRC32(total, segDone, segLen)
		}
		remaining >>= 1
		if remaining == 0 {
			break
		}
		segDone = CombineCRC32(segDone, segDone, segLen)
		segLen *= 2
	}
	c.val = total ^ 0xffffffff
}

// Sum32 returns the current checksum value.
func (c *CRC32) Sum32() uint32 {
	return c.val ^ 0xffffffff
}

// CombineCRC32 computes the CRC-32 (over IEEETable) of the concatenation of
// two byte sequences given only the finished checksum of each half and the
// length of the second, without touching either sequence's bytes:
//
//	crc32(a || b) == CombineCRC32(crc32(a), crc32(b), len(b))
//
// It implements the GF(2) matrix-squaring operator described in spec.md
// §4.1/§9: build the "apply one zero bit" operator from the polynomial,
// square it repeatedly to get "apply 2^k zero bits/bytes", and multiply
// those operators together according to the binary expansion of len2*8.
func CombineCRC32(crc1, crc2 uint32, len2 int64) uint32 {
	return combineWithTable(IEEETable, crc1, crc2, len2)
}

// combineWithTable implements the matrix-combine operator using t's
// polynomial; the one-zero-bit operator it builds assumes the reflected
// (LSB-first) convention. crc1, crc2 and the result are finished public
// CRC values, both for CombineCRC32 and for the doubling in UpdateRun.
func combineWithTable(t *Table, crc1, crc2 uint32, lenBytes int64) uint32 {
	if lenBytes == 0 {
		return crc1
	}
	var even, odd [gf2Dim]uint32

	// Operator for one zero bit.
	odd[0] = t.poly
	row := uint32(1)
	for n := 1; n < gf2Dim; n++ {
		odd[n] = row
		row <<= 1
	}

	gf2MatrixSquare(&even, &odd) // two zero bits
	gf2MatrixSquare(&odd, &even) // four zero bits

	lenBits := lenBytes
	for {
		gf2MatrixSquare(&even, &odd)
		if lenBits&1 != 0 {
			crc1 = gf2MatrixTimes(&even, crc1)
		}
		lenBits >>= 1
		if lenBits == 0 {
			break
		}
		gf2MatrixSquare(&odd, &even)
		if lenBits&1 != 0 {
			crc1 = gf2MatrixTimes(&odd, crc1)
		}
		lenBits >>= 1
		if lenBits == 0 {
			break
		}
	}
	return crc1 ^ crc2
}

func gf2MatrixTimes(mat *[gf2Dim]uint32, vec uint32) uint32 {
	var sum uint32
	for n := 0; vec != 0; n++ {
		if vec&1 != 0 {
			sum ^= mat[n]
		}
		vec >>= 1
	}
	return sum
}

func gf2MatrixSquare(square, mat *[gf2Dim]uint32) {
	for n := 0; n < gf2Dim; n++ {
		square[n] = gf2MatrixTimes(mat, mat[n])
	}
}
