package huffman

import "container/heap"

// node is either a leaf (sym >= 0) or an internal node (sym == -1) of the
// tree built while assigning canonical code lengths from frequencies.
type node struct {
	freq  uint32
	depth int
	sym   int
	left  *node
	right *node
}

// nodeHeap is a container/heap min-heap over *node, ordered by ascending
// frequency with ties broken by shallower subtree depth first: combining
// the shallowest candidates first keeps the resulting tree balanced, which
// keeps code lengths down before the length-limit fixup even has to run.
type nodeHeap []*node

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].freq != h[j].freq {
		return h[i].freq < h[j].freq
	}
	return h[i].depth < h[j].depth
}
func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x interface{}) {
	*h = append(*h, x.(*node))
}
func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// BuildLengths assigns canonical Huffman code lengths to every symbol with
// a non-zero frequency, bounded by maxLen, per spec.md §4.4:
//
//  1. build a min-heap over non-zero-frequency symbols, combine the two
//     smallest repeatedly into internal nodes until one tree remains;
//  2. walk the tree to read off each leaf's depth as its code length;
//  3. if any length exceeds maxLen, redistribute bit budget from the
//     longest codes to shorter ones until every length is within bounds.
//
// Symbols with zero frequency get length 0 (unused, not transmitted).
func BuildLengths(freq []uint32, maxLen int) []uint8 {
	lengths := make([]uint8, len(freq))

	var leaves []int
	for sym, f := range freq {
		if f > 0 {
			leaves = append(leaves, sym)
		}
	}
	switch len(leaves) {
	case 0:
		return lengths
	case 1:
		lengths[leaves[0]] = 1
		return lengths
	}

	h := make(nodeHeap, 0, len(leaves))
	for _, sym := range leaves {
		h = append(h, &node{freq: freq[sym], sym: sym})
	}
	heap.Init(&h)

	for h.Len() > 1 {
		a := heap.Pop(&h).(*node)
		b := heap.Pop(&h).(*node)
		parentDepth := a.depth
		if b.depth > parentDepth {
			parentDepth = b.depth
		}
		heap.Push(&h, &node{
			freq:  a.freq + b.freq,
			depth: parentDepth + 1,
			sym:   -1,
			left:  a,
			right: b,
		})
	}
	root := heap.Pop(&h).(*node)
	assignDepths(root, 0, lengths)

	limitLengths(lengths, leaves, maxLen)
	return lengths
}

func assignDepths(n *node, depth int, lengths []uint8) {
	if n.sym >= 0 {
		lengths[n.sym] = uint8(depth)
		return
	}
	assignDepths(n.left, depth+1, lengths)
	assignDepths(n.right, depth+1, lengths)
}

// limitLengths applies the classic package-merge-style overlong-code
// fixup: it first tallies how many leaves landed at each length and clips
// every overlong leaf to maxLen, then, while the code is over-full, moves
// one leaf from the longest non-empty length below maxLen down one level
// and pairs it with one leaf taken from maxLen, shrinking the Kraft excess
// by one unit of 2^-maxLen each iteration. Finally it reassigns the adjusted per-length
// counts back onto the leaves in the same ascending-length order they
// originally occupied, so ties resolve the same way canonical code
// assignment will later rely on.
func limitLengths(lengths []uint8, leaves []int, maxLen int) {
	maxFound := 0
	for _, sym := range leaves {
		if int(lengths[sym]) > maxFound {
			maxFound = int(lengths[sym])
		}
	}
	if maxFound <= maxLen {
		return
	}

	blCount := make([]int, maxFound+1)
	for _, sym := range leaves {
		blCount[lengths[sym]]++
	}

	overflow := 0
	for bits := maxFound; bits > maxLen; bits-- {
		overflow += blCount[bits]
		blCount[bits] = 0
	}
	blCount[maxLen] += overflow

	// Kraft sum in units of 2^-maxLen; a complete code sums to 1<<maxLen.
	kraft := 0
	for bits := 1; bits <= maxLen; bits++ {
		kraft += blCount[bits] << uint(maxLen-bits)
	}
	for kraft > 1<<uint(maxLen) {
		bits := maxLen - 1
		for bits > 0 && blCount[bits] == 0 {
			bits--
		}
		if bits == 0 {
			break // unreachable for any real frequency distribution
		}
		blCount[bits]--
		blCount[bits+1] += 2
		blCount[maxLen]--
		kraft--
	}

	// Reassign lengths to leaves in ascending-original-length order,
	// consuming blCount[1..maxLen] in turn.
	ordered := append([]int(nil), leaves...)
	sortByLength(ordered, lengths)
	i := 0
	for bits := 1; bits <= maxLen; bits++ {
		for c := blCount[bits]; c > 0; c-- {
			lengths[ordered[i]] = uint8(bits)
			i++
		}
	}
}

// sortByLength is a small insertion sort (the symbol counts here are at
// most a few hundred) ordering syms by ascending lengths[sym], stable on
// ties so symbol order still breaks them as the canonical rule requires.
func sortByLength(syms []int, lengths []uint8) {
	for i := 1; i < len(syms); i++ {
		v := syms[i]
		j := i - 1
		for j >= 0 && lengths[syms[j]] > lengths[v] {
			syms[j+1] = syms[j]
			j--
		}
		syms[j+1] = v
	}
}

// AssignCodes converts a canonical length assignment into bitstream-ready
// codes: RFC 1951 §3.2.2's algorithm produces codes MSB-first (shorter
// codes numerically smaller, ties broken by symbol order), but this
// package's bit writer always emits LSB-first, so each code is bit-reversed
// before being returned. The result can be passed straight to
// bitio.Writer.PutBits(code, length).
func AssignCodes(lengths []uint8) []uint16 {
	maxBits := 0
	for _, l := range lengths {
		if int(l) > maxBits {
			maxBits = int(l)
		}
	}
	blCount := make([]int, maxBits+1)
	for _, l := range lengths {
		if l > 0 {
			blCount[l]++
		}
	}
	nextCode := make([]int, maxBits+1)
	code := 0
	for bits := 1; bits <= maxBits; bits++ {
		code = (code + blCount[bits-1]) << 1
		nextCode[bits] = code
	}

	codes := make([]uint16, len(lengths))
	for sym, l := range lengths {
		if l == 0 {
			continue
		}
		codes[sym] = reverseBits(uint16(nextCode[l]), l)
		nextCode[l]++
	}
	return codes
}

func reverseBits(v uint16, n uint8) uint16 {
	var r uint16
	for i := uint8(0); i < n; i++ {
		r = (r << 1) | (v & 1)
		v >>= 1
	}
	return r
}
