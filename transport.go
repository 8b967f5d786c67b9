package nio

// Decoder and Encoder are the minimal shapes this core needs from the wire
// parser/encoder named out of scope in §1. The reactor hands a Decoder to
// input_ready and an Encoder to output_ready; this core never parses or
// encodes HTTP itself.
type Decoder interface {
	// Read copies whatever bytes the decoder currently has available into
	// p, non-blocking: it returns (0, nil) rather than blocking when
	// nothing is available right now.
	Read(p []byte) (n int, err error)

	// IsCompleted reports wire-level completion: the declared content
	// length has been reached, or the chunked terminator was seen.
	IsCompleted() bool
}

// Encoder is the symmetric outbound shape.
type Encoder interface {
	// Write accepts bytes to encode onto the wire, non-blocking.
	Write(p []byte) (n int, err error)

	// IsCompleted reports whether the encoder has already finished (e.g.
	// a zero-length entity that completes without ever being written to).
	IsCompleted() bool

	// Complete finalizes the encoder once the shared output buffer has
	// seen end-of-stream (e.g. writing a chunked terminator).
	Complete() error
}
