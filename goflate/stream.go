package goflate

import "io"

// Reader adapts a Codec in Decompress mode to the io.Reader interface,
// the way callers actually want to consume a stream most of the time.
// Unlike the teacher's reader.go, there is no background goroutine or
// channel here: spec.md rules out parallel compression strategies, so
// decoding happens synchronously inside Read.
type Reader struct {
	c      *Codec
	src    io.Reader
	buf    []byte
	bufPos int
	bufLen int
	srcErr error
	done   bool
}

// NewReader wraps src, decompressing according to options (WithFraming
// selects the container; default Raw).
func NewReader(src io.Reader, options ...CodecOption) (*Reader, error) {
	c, err := New(Decompress, options...)
	if err != nil {
		return nil, err
	}
	return &Reader{c: c, src: src, buf: make([]byte, 32*1024)}, nil
}

// Codec exposes the underlying Codec, for callers that want header
// metadata (GzipHeader) or accounting (Size) once reading is done.
func (r *Reader) Codec() *Codec { return r.c }

func (r *Reader) fill() {
	if r.bufPos < r.bufLen || r.srcErr != nil {
		return
	}
	n, err := r.src.Read(r.buf[:cap(r.buf)])
	r.bufLen = n
	r.bufPos = 0
	if err != nil {
		r.srcErr = err
	}
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	if r.done {
		return 0, io.EOF
	}
	for {
		r.fill()
		code, n, m, err := r.c.Process(FlushNone, r.buf[r.bufPos:r.bufLen], p)
		r.bufPos += n
		if err != nil {
			return m, err
		}
		if code == NeedDict {
			return m, newError(NeedDict, nil)
		}
		if code == StreamEnd {
			r.done = true
			if m > 0 {
				return m, nil
			}
			return 0, io.EOF
		}
		if m > 0 {
			return m, nil
		}
		if code == BufError || n == 0 {
			if r.srcErr != nil && r.bufPos == r.bufLen {
				if r.srcErr == io.EOF {
					return 0, io.ErrUnexpectedEOF
				}
				return 0, r.srcErr
			}
		}
	}
}

// Writer adapts a Codec in Compress mode to the io.WriteCloser
// interface. Close flushes the final block and any container trailer;
// callers must call it before discarding the Writer.
type Writer struct {
	c      *Codec
	dst    io.Writer
	out    []byte
	closed bool
}

// NewWriter wraps dst, compressing according to options (WithFraming,
// WithLevel, and so on; default Raw at Default level).
func NewWriter(dst io.Writer, options ...CodecOption) (*Writer, error) {
	c, err := New(Compress, options...)
	if err != nil {
		return nil, err
	}
	return &Writer{c: c, dst: dst, out: make([]byte, 32*1024)}, nil
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		_, n, m, err := w.c.Process(FlushNone, p, w.out)
		if err != nil {
			return total, err
		}
		if m > 0 {
			if _, werr := w.dst.Write(w.out[:m]); werr != nil {
				return total, werr
			}
		}
		total += n
		p = p[n:]
		if n == 0 && m == 0 {
			break
		}
	}
	return total, nil
}

// Close flushes and finalizes the stream, writing any container
// trailer, and implements io.Closer. It is idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	for {
		code, m, err := w.c.Finish(w.out)
		if err != nil {
			return err
		}
		if m > 0 {
			if _, werr := w.dst.Write(w.out[:m]); werr != nil {
				return werr
			}
		}
		if code == StreamEnd {
			return nil
		}
	}
}
