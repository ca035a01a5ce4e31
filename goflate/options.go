package goflate

// codecOpts holds a Codec's construction-time configuration, built up by
// CodecOption functions before New derives its internal buffer sizes
// from it, mirroring the teacher's decompressorOpts/readerOpts shape.
type codecOpts struct {
	windowBits  int
	memoryLevel int
	level       Level
	strategy    Strategy
	framing     Framing
	name        string
	comment     string
	mtime       uint32
}

// CodecOption configures a Codec at construction time.
type CodecOption func(*codecOpts)

// WithWindowBits sets window_bits (spec.md §6, in [9,15]). Default 15.
func WithWindowBits(bits int) CodecOption {
	return func(o *codecOpts) { o.windowBits = bits }
}

// WithMemoryLevel sets memory_level (spec.md §6, in [1,9]). Default 8.
func WithMemoryLevel(level int) CodecOption {
	return func(o *codecOpts) { o.memoryLevel = level }
}

// WithLevel sets the compression level (0-9). Default Default (6).
// Ignored in Decompress mode.
func WithLevel(level Level) CodecOption {
	return func(o *codecOpts) { o.level = level }
}

// WithStrategy sets the LZ77 match-finding strategy. Default
// StrategyDefault. Ignored in Decompress mode.
func WithStrategy(s Strategy) CodecOption {
	return func(o *codecOpts) { o.strategy = s }
}

// WithFraming selects the container format. Default Raw.
func WithFraming(f Framing) CodecOption {
	return func(o *codecOpts) { o.framing = f }
}

// WithName sets the GZIP FNAME metadata property (spec.md §6). Only
// meaningful with WithFraming(Gzip) in Compress mode, and must be set
// before the first compressed byte is produced. Forward slashes are
// normalized to backslashes and any leading path components are
// stripped, per spec.md §6's GZIP metadata properties.
func WithName(name string) CodecOption {
	return func(o *codecOpts) { o.name = normalizeGzipPathComponent(name) }
}

// WithComment sets the GZIP FCOMMENT metadata property.
func WithComment(comment string) CodecOption {
	return func(o *codecOpts) { o.comment = comment }
}

// WithModTime sets the GZIP MTIME field (seconds since the Unix epoch).
func WithModTime(mtime uint32) CodecOption {
	return func(o *codecOpts) { o.mtime = mtime }
}

// normalizeGzipPathComponent implements spec.md §6's GZIP file_name
// rule: forward slashes become backslashes, and any leading directory
// components are stripped, leaving only the final path element.
func normalizeGzipPathComponent(name string) string {
	out := make([]byte, len(name))
	lastSep := -1
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '/' {
			c = '\\'
		}
		out[i] = c
		if c == '\\' {
			lastSep = i
		}
	}
	return string(out[lastSep+1:])
}
