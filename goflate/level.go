package goflate

import "github.com/cosnicolaou/goflate/internal/lz77"

// Mode selects whether a Codec compresses or decompresses.
type Mode int

const (
	Compress Mode = iota
	Decompress
)

// Framing selects which container format (spec.md §4.8) wraps the raw
// DEFLATE bitstream.
type Framing int

const (
	Raw Framing = iota
	Zlib
	Gzip
)

// Level names the ten DeflaterConfig rows spec.md §6 defines. The
// numeric value doubles as the index into internal/lz77.DeflaterConfig
// and as ZLIB's FLEVEL/GZIP's XFL source.
type Level int

const (
	Store     Level = 0
	BestSpeed Level = 1
	Default   Level = 6
	Best      Level = 9
)

// Strategy mirrors internal/lz77.Strategy, re-exported so callers never
// need to import an internal package to configure a Codec.
type Strategy = lz77.Strategy

const (
	StrategyDefault    = lz77.StrategyDefault
	StrategyFiltered   = lz77.StrategyFiltered
	StrategyHuffmanOnly = lz77.StrategyHuffmanOnly
)
