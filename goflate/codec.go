// Package goflate is the public streaming facade (spec.md §4.9/§6): a
// single-threaded, no-I/O, no-lock codec that compresses or decompresses
// DEFLATE data wrapped in any of the three container formats. Every
// operation is re-entrant: callers may supply arbitrarily small input or
// output slices across as many calls as they like, the same contract
// internal/inflate's Decoder and internal/deflate's Driver already honor
// one layer down.
package goflate

import (
	"github.com/cosnicolaou/goflate/internal/checksum"
	"github.com/cosnicolaou/goflate/internal/deflate"
	"github.com/cosnicolaou/goflate/internal/framing"
	"github.com/cosnicolaou/goflate/internal/inflate"
)

// FlushMode mirrors spec.md §4.6's recognized flush modes, re-exported
// at the facade so callers never need to reach into internal/deflate.
type FlushMode int

const (
	FlushNone FlushMode = iota
	FlushPartial
	FlushSync
	FlushFull
	FlushFinish
)

func toDeflateFlush(f FlushMode) deflate.FlushMode {
	switch f {
	case FlushPartial:
		return deflate.FlushPartial
	case FlushSync:
		return deflate.FlushSync
	case FlushFull:
		return deflate.FlushFull
	case FlushFinish:
		return deflate.FlushFinish
	default:
		return deflate.FlushNone
	}
}

// decodeState names the facade's position within a decompression stream,
// layered above internal/inflate.Decoder's own block-level state
// machine: a container header must be parsed (and, for ZLIB, a preset
// dictionary possibly supplied) before the DEFLATE body even starts, and
// a trailer checksum verified after it ends.
type decodeState int

const (
	decodeHeader decodeState = iota
	decodeDictWait
	decodeBody
	decodeTrailer
	decodeDone
)

// Codec implements spec.md §4.9's streaming facade: new/set_dictionary/
// process/reset/finish over Compress or Decompress mode, any of the
// three framings, at any DeflaterConfig level.
type Codec struct {
	mode Mode
	opts codecOpts

	err *Error

	// Compress-side state.
	driver         *deflate.Driver
	headerEmitted  bool
	trailerEmitted bool
	dictSet        bool
	dictionary     []byte
	firstProcessed bool
	finishCalled   bool
	streamEnded    bool

	// Decompress-side state.
	dec           *inflate.Decoder
	dstate        decodeState
	zlibHeaderBuf []byte
	zlibWindowBits int
	zlibFDICT     bool
	zlibDictAdler uint32
	zlibDictAdlerBuf []byte
	gzipReader    *framing.HeaderReader
	gzipHeader    framing.Header
	trailerWant   int
	trailerBuf    []byte
	leftover      []byte

	// Shared checksum/size accounting (over the uncompressed bytes, in
	// whichever direction this instance moves them).
	adler checksum.Adler32
	crc   checksum.CRC32
	size  uint64
}

// New constructs a Codec in the given mode with the supplied options.
func New(mode Mode, options ...CodecOption) (*Codec, error) {
	o := codecOpts{
		windowBits:  15,
		memoryLevel: 8,
		level:       Default,
		strategy:    StrategyDefault,
		framing:     Raw,
	}
	for _, fn := range options {
		fn(&o)
	}
	if o.windowBits < 9 || o.windowBits > 15 {
		return nil, streamError("window_bits out of range [9,15]")
	}
	if o.memoryLevel < 1 || o.memoryLevel > 9 {
		return nil, streamError("memory_level out of range [1,9]")
	}
	if o.level < 0 || o.level > 9 {
		return nil, streamError("level out of range [0,9]")
	}

	c := &Codec{
		mode:  mode,
		opts:  o,
		adler: checksum.NewAdler32(),
		crc:   checksum.New(checksum.IEEETable),
	}
	c.initForMode()
	return c, nil
}

func (c *Codec) initForMode() {
	switch c.mode {
	case Compress:
		c.driver = deflate.NewDriver(c.opts.windowBits, c.opts.memoryLevel, int(c.opts.level), c.opts.strategy)
	case Decompress:
		c.dstate = decodeHeader
		switch c.opts.framing {
		case Raw:
			c.dec = inflate.NewDecoder(c.opts.windowBits)
			c.dstate = decodeBody
		case Gzip:
			c.dec = inflate.NewDecoder(c.opts.windowBits)
			c.gzipReader = framing.NewHeaderReader()
		case Zlib:
			// c.dec is constructed once the 2-byte header reveals the
			// real window size (and, if FDICT, once the dictionary is
			// supplied and verified).
		}
	}
}

// Reset restores the Codec to its just-constructed state, discarding all
// buffered input/output/checksum progress, per spec.md §4.9's reset().
func (c *Codec) Reset() {
	c.err = nil
	c.headerEmitted = false
	c.trailerEmitted = false
	c.dictSet = false
	c.dictionary = nil
	c.firstProcessed = false
	c.finishCalled = false
	c.streamEnded = false
	c.zlibHeaderBuf = nil
	c.zlibFDICT = false
	c.zlibDictAdler = 0
	c.zlibDictAdlerBuf = nil
	c.gzipHeader = framing.Header{}
	c.trailerWant = 0
	c.trailerBuf = nil
	c.leftover = nil
	c.size = 0
	c.adler.Reset()
	c.crc.Reset()
	if c.driver != nil {
		c.driver.Reset()
	}
	c.dec = nil
	c.gzipReader = nil
	c.initForMode()
}

// GzipHeader returns the metadata a GZIP stream's header carried (Name,
// Comment, ModTime), valid once decompressProcess has moved past
// decodeHeader. Zero value otherwise, or for any other framing.
func (c *Codec) GzipHeader() framing.Header { return c.gzipHeader }

// Size returns the number of uncompressed bytes processed so far in
// this direction (consumed on compress, produced on decompress).
func (c *Codec) Size() uint64 { return c.size }

// SetDictionary supplies a preset dictionary (RFC 1950). In Compress
// mode it must be called before the first Process call. In Decompress
// mode it must be called only after Process has returned NeedDict;
// unless unconditional is true, the dictionary's Adler-32 is checked
// against the one the ZLIB header declared and a mismatch is reported as
// a DataError.
func (c *Codec) SetDictionary(dict []byte, unconditional bool) error {
	switch c.mode {
	case Compress:
		if c.firstProcessed {
			e := streamError("SetDictionary called after the first Process call")
			c.err = e
			return e
		}
		c.dictSet = true
		c.dictionary = dict
		c.driver.SetDictionary(dict)
		return nil
	case Decompress:
		if c.dstate != decodeDictWait {
			e := streamError("SetDictionary called without a pending NeedDict")
			c.err = e
			return e
		}
		if !unconditional {
			a := checksum.NewAdler32()
			a.Write(dict)
			if a.Sum32() != c.zlibDictAdler {
				e := newError(DataError, errDictMismatch)
				c.err = e
				return e
			}
		}
		c.dec = inflate.NewDecoder(c.zlibWindowBits)
		c.dec.SetDictionary(dict)
		c.dstate = decodeBody
		return nil
	}
	return nil
}

// Process is spec.md §4.9's process(): re-entrant, makes forward
// progress whenever either side has room, and reports BufError rather
// than blocking when it cannot.
func (c *Codec) Process(flush FlushMode, input, output []byte) (code Code, consumedIn, producedOut int, err error) {
	if c.err != nil {
		return c.err.Code, 0, 0, c.err
	}
	if c.streamEnded && c.mode != Compress {
		return StreamEnd, 0, 0, nil
	}
	switch c.mode {
	case Compress:
		return c.compressProcess(flush, input, output)
	default:
		return c.decompressProcess(flush, input, output)
	}
}

// Finish is sugar for one call of Process(FlushFinish, nil, output);
// callers repeat it until it returns StreamEnd or an error.
func (c *Codec) Finish(output []byte) (code Code, producedOut int, err error) {
	code, _, producedOut, err = c.Process(FlushFinish, nil, output)
	return code, producedOut, err
}

func (c *Codec) compressProcess(flush FlushMode, input, output []byte) (Code, int, int, error) {
	if c.finishCalled && (len(input) > 0 || flush != FlushFinish) {
		e := streamError("input offered after Finish")
		c.err = e
		return StreamError, 0, 0, e
	}
	c.firstProcessed = true
	c.ensureHeaderEmitted()

	consumedIn := c.driver.Process(toDeflateFlush(flush), input)
	if consumedIn > 0 {
		c.updateChecksum(input[:consumedIn])
		c.size += uint64(consumedIn)
	}
	if flush == FlushFinish {
		c.finishCalled = true
		if c.driver.Finished() {
			c.ensureTrailerEmitted()
		}
	}

	producedOut := c.driver.Output().Take(output)

	if c.finishCalled && c.driver.Finished() && c.trailerEmitted && c.driver.Output().Len() == 0 {
		c.streamEnded = true
		return StreamEnd, consumedIn, producedOut, nil
	}
	return progressResult(consumedIn, producedOut, input, output)
}

func (c *Codec) ensureHeaderEmitted() {
	if c.headerEmitted {
		return
	}
	c.headerEmitted = true
	switch c.opts.framing {
	case Raw:
	case Zlib:
		hdr := framing.EncodeZlibHeader(c.opts.windowBits, int(c.opts.level), c.dictSet)
		c.driver.Output().PutBytes(hdr)
		if c.dictSet {
			a := checksum.NewAdler32()
			a.Write(c.dictionary)
			c.driver.Output().PutBytes(framing.EncodeAdler32BE(a.Sum32()))
		}
	case Gzip:
		hdr, err := framing.EncodeHeader(framing.Header{
			Name:    c.opts.name,
			Comment: c.opts.comment,
			ModTime: c.opts.mtime,
		}, int(c.opts.level), false, nil)
		if err != nil {
			c.err = newError(StreamError, err)
			return
		}
		c.driver.Output().PutBytes(hdr)
	}
}

func (c *Codec) ensureTrailerEmitted() {
	if c.trailerEmitted {
		return
	}
	c.trailerEmitted = true
	switch c.opts.framing {
	case Raw:
	case Zlib:
		c.driver.Output().PutBytes(framing.EncodeAdler32BE(c.adler.Sum32()))
	case Gzip:
		c.driver.Output().PutBytes(framing.EncodeTrailer(c.crc.Sum32(), c.size))
	}
}

func (c *Codec) updateChecksum(p []byte) {
	switch c.opts.framing {
	case Zlib:
		c.adler.Write(p)
	case Gzip:
		c.crc.Update(p)
	}
}

// decompressProcess drives the header/body/trailer state machine. Each
// state either advances (possibly falling through to the next state
// within the same call, the "coroutine-like" control flow spec.md §9
// calls for) or returns immediately once it cannot make further progress
// with what the caller has supplied.
func (c *Codec) decompressProcess(flush FlushMode, input, output []byte) (Code, int, int, error) {
	consumedIn := 0
	producedOut := 0

	for {
		switch c.dstate {
		case decodeHeader:
			switch c.opts.framing {
			case Zlib:
				n, done := accumulate(&c.zlibHeaderBuf, 2, input[consumedIn:])
				consumedIn += n
				if !done {
					return progressResult(consumedIn, producedOut, input, output)
				}
				windowBits, fdict, err := framing.DecodeZlibHeader(c.zlibHeaderBuf)
				if err != nil {
					c.err = newError(DataError, err)
					return DataError, consumedIn, producedOut, c.err
				}
				c.zlibWindowBits = windowBits
				c.zlibFDICT = fdict
				if fdict {
					n2, done2 := accumulate(&c.zlibDictAdlerBuf, 4, input[consumedIn:])
					consumedIn += n2
					if !done2 {
						return progressResult(consumedIn, producedOut, input, output)
					}
					adler, _ := framing.DecodeAdler32BE(c.zlibDictAdlerBuf)
					c.zlibDictAdler = adler
					c.dstate = decodeDictWait
					continue
				}
				c.dec = inflate.NewDecoder(windowBits)
				c.dstate = decodeBody
				continue
			case Gzip:
				n, ferr := c.gzipReader.Feed(input[consumedIn:])
				consumedIn += n
				if ferr != nil {
					c.err = newError(DataError, ferr)
					return DataError, consumedIn, producedOut, c.err
				}
				if !c.gzipReader.Done() {
					return progressResult(consumedIn, producedOut, input, output)
				}
				c.gzipHeader = c.gzipReader.Header()
				c.dstate = decodeBody
				continue
			default: // Raw
				c.dstate = decodeBody
				continue
			}

		case decodeDictWait:
			return NeedDict, consumedIn, producedOut, nil

		case decodeBody:
			n, m, err := c.dec.Decode(input[consumedIn:], output[producedOut:])
			consumedIn += n
			if m > 0 {
				c.updateChecksum(output[producedOut : producedOut+m])
				c.size += uint64(m)
			}
			producedOut += m
			if err != nil {
				c.err = newError(DataError, err)
				return DataError, consumedIn, producedOut, c.err
			}
			if c.dec.Done() {
				c.leftover = c.dec.TakeBuffered()
				switch c.opts.framing {
				case Raw:
					c.dstate = decodeDone
				case Zlib:
					c.trailerWant = 4
					c.dstate = decodeTrailer
				case Gzip:
					c.trailerWant = 8
					c.dstate = decodeTrailer
				}
				continue
			}
			return progressResult(consumedIn, producedOut, input, output)

		case decodeTrailer:
			if len(c.leftover) > 0 {
				need := c.trailerWant - len(c.trailerBuf)
				take := len(c.leftover)
				if take > need {
					take = need
				}
				c.trailerBuf = append(c.trailerBuf, c.leftover[:take]...)
				c.leftover = c.leftover[take:]
			}
			if len(c.trailerBuf) < c.trailerWant {
				n, done := accumulate(&c.trailerBuf, c.trailerWant, input[consumedIn:])
				consumedIn += n
				if !done {
					return progressResult(consumedIn, producedOut, input, output)
				}
			}
			if err := c.verifyTrailer(); err != nil {
				c.err = newError(DataError, err)
				return DataError, consumedIn, producedOut, c.err
			}
			c.dstate = decodeDone
			continue

		case decodeDone:
			c.streamEnded = true
			return StreamEnd, consumedIn, producedOut, nil
		}
	}
}

func (c *Codec) verifyTrailer() error {
	switch c.opts.framing {
	case Zlib:
		want, _ := framing.DecodeAdler32BE(c.trailerBuf)
		if want != c.adler.Sum32() {
			return errAdlerMismatch
		}
	case Gzip:
		wantCRC, wantISize, _ := framing.DecodeTrailer(c.trailerBuf)
		if wantCRC != c.crc.Sum32() {
			return errCRCMismatch
		}
		if uint64(wantISize) != c.size&0xffffffff {
			return errSizeMismatch
		}
	}
	return nil
}

// accumulate appends bytes from src into *buf until it holds want bytes
// total, returning how many bytes of src it consumed and whether want
// has now been reached. It is the building block every header/trailer
// field in this package gathers itself with, since any of them may
// arrive split across arbitrarily many Process calls.
func accumulate(buf *[]byte, want int, src []byte) (consumed int, done bool) {
	need := want - len(*buf)
	if need <= 0 {
		return 0, true
	}
	n := len(src)
	if n > need {
		n = need
	}
	*buf = append(*buf, src[:n]...)
	return n, len(*buf) == want
}

// progressResult implements spec.md §4.9's BufError rule: it is reported
// only when this call consumed no input, produced no output, the caller
// supplied no more input, and gave no output room either.
func progressResult(consumedIn, producedOut int, input, output []byte) (Code, int, int, error) {
	if consumedIn == 0 && producedOut == 0 && len(input) == 0 && len(output) == 0 {
		return BufError, 0, 0, nil
	}
	return Ok, consumedIn, producedOut, nil
}
