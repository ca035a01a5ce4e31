// Package framing implements the three container formats the codec can
// wrap a raw DEFLATE bitstream in (spec.md §4.8, C8): no framing at all,
// ZLIB (RFC 1950), and GZIP (RFC 1952). Each format's header/trailer
// logic operates purely on byte slices, with no I/O of its own, so the
// streaming facade can feed it exactly the bytes it has on hand a few at
// a time.
package framing

// A StructuralError is returned for any framing-level corruption: a bad
// magic byte, a failed header checksum, an FCHECK that doesn't satisfy
// the mod-31 rule, or a trailer checksum/length mismatch. It is the
// DataError class of spec.md §7.
type StructuralError string

func (s StructuralError) Error() string { return string(s) }

// Raw framing has no header and no trailer: the wrapped DEFLATE
// bitstream is the entire container. It exists as a named type mainly so
// the facade can treat all three framings uniformly through a common
// shape, even though there is nothing for Raw to actually do.
type Raw struct{}

// HeaderBytes returns Raw's (empty) header.
func (Raw) HeaderBytes() []byte { return nil }

// TrailerBytes returns Raw's (empty) trailer.
func (Raw) TrailerBytes() []byte { return nil }
