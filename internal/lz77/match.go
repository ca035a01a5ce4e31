package lz77

// longestMatch walks the hash chain starting at curMatch looking for the
// longest run of bytes matching the MinMatchLength+ bytes at win.strstart,
// applying the early-exit ladder from spec.md §4.5: chain exhausted,
// distance out of range, chain depth budget spent, or a match already
// "nice enough" found. It returns the best length found (0 if no match is longer
// than both prevLength and MinMatchLength-1) and the distance to it.
func longestMatch(win *Window, curMatch, prevLength, niceLength, maxChain, goodLength int) (length, distance int) {
	strstart := win.strstart
	buf := win.buf
	limit := strstart - win.MaxDist()
	if limit < 0 {
		limit = 0
	}

	chainLength := maxChain
	if prevLength >= goodLength {
		chainLength >>= 2
		if chainLength < 1 {
			chainLength = 1
		}
	}

	nice := niceLength
	if avail := win.lookahead; nice > avail {
		nice = avail
	}

	bestLen := prevLength
	if bestLen < MinMatchLength-1 {
		bestLen = MinMatchLength - 1
	}
	bestStart := -1

	maxLen := MaxMatchLength
	if avail := win.lookahead; maxLen > avail {
		maxLen = avail
	}
	if maxLen < MinMatchLength {
		return 0, 0
	}

	for curMatch >= limit && curMatch >= 0 && chainLength > 0 {
		chainLength--

		if bestLen > 0 {
			// Cheaply reject candidates whose last two bytes of the
			// current best-length window don't match before doing a
			// full byte-by-byte extension.
			if strstart+bestLen+1 <= len(buf) && curMatch+bestLen+1 <= len(buf) {
				if buf[curMatch+bestLen-1] != buf[strstart+bestLen-1] ||
					buf[curMatch+bestLen] != buf[strstart+bestLen] {
					curMatch = win.PrevAt(curMatch)
					continue
				}
			}
		}

		if buf[curMatch] != buf[strstart] || buf[curMatch+1] != buf[strstart+1] {
			curMatch = win.PrevAt(curMatch)
			continue
		}

		matchLen := 2
		for matchLen < maxLen && buf[curMatch+matchLen] == buf[strstart+matchLen] {
			matchLen++
		}

		if matchLen > bestLen {
			bestStart = curMatch
			bestLen = matchLen
			if matchLen >= nice {
				break
			}
		}

		curMatch = win.PrevAt(curMatch)
	}

	if bestStart < 0 || bestLen < MinMatchLength {
		return 0, 0
	}
	return bestLen, strstart - bestStart
}
