package nio

import (
	"bufio"
	"fmt"
	"io"
	"net"

	singbufio "github.com/sagernet/sing/common/bufio"
)

// The types in this file are reference implementations of the Decoder/
// Encoder collaborators §1 explicitly marks as external and out of the
// core's scope (the HTTP wire parser/encoder). They exist so this module is
// exercisable end-to-end against a real net.Conn and so tests have
// something concrete to drive; swapping them for a different wire codec
// never touches C1-C7. Unlike the non-blocking Decoder/Encoder contract,
// their Read/Write calls block on the underlying net.Conn (bounded only by
// any deadline set on it) instead of returning (0, nil) when nothing is ready.

// FixedLengthEncoder writes exactly ContentLength bytes to the underlying
// connection, matching a Content-Length-framed request/response body.
type FixedLengthEncoder struct {
	conn      net.Conn
	remaining int64
}

func NewFixedLengthEncoder(conn net.Conn, contentLength int64) *FixedLengthEncoder {
	return &FixedLengthEncoder{conn: conn, remaining: contentLength}
}

func (e *FixedLengthEncoder) Write(p []byte) (int, error) {
	if int64(len(p)) > e.remaining {
		p = p[:e.remaining]
	}
	if len(p) == 0 {
		return 0, nil
	}
	n, err := e.conn.Write(p)
	e.remaining -= int64(n)
	return n, err
}

func (e *FixedLengthEncoder) IsCompleted() bool { return e.remaining <= 0 }
func (e *FixedLengthEncoder) Complete() error   { return nil }

// ChunkedEncoder writes chunked-transfer-encoded frames to the underlying
// connection. Grounded on the teacher's own use of
// github.com/sagernet/sing/common/bufio's vectorised writer in sendLoop
// (scatter-gather the frame header and payload in one syscall when the
// underlying writer supports it); here the three buffers are the chunk-size
// line, the chunk payload, and the trailing CRLF.
type ChunkedEncoder struct {
	conn   net.Conn
	vw     io.Writer
	isVec  bool
	done   bool
}

func NewChunkedEncoder(conn net.Conn) *ChunkedEncoder {
	bw, ok := singbufio.CreateVectorisedWriter(conn)
	return &ChunkedEncoder{conn: conn, vw: bw, isVec: ok}
}

func (e *ChunkedEncoder) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	header := []byte(fmt.Sprintf("%x\r\n", len(p)))
	trailer := []byte("\r\n")

	if e.isVec {
		vec := [][]byte{header, p, trailer}
		n, err := singbufio.WriteVectorised(e.vw, vec)
		written := n - len(header) - len(trailer)
		if written < 0 {
			written = 0
		}
		if written > len(p) {
			written = len(p)
		}
		return written, err
	}

	if _, err := e.conn.Write(header); err != nil {
		return 0, err
	}
	n, err := e.conn.Write(p)
	if err != nil {
		return n, err
	}
	if _, err := e.conn.Write(trailer); err != nil {
		return n, err
	}
	return n, nil
}

func (e *ChunkedEncoder) IsCompleted() bool { return e.done }

func (e *ChunkedEncoder) Complete() error {
	if e.done {
		return nil
	}
	e.done = true
	_, err := e.conn.Write([]byte("0\r\n\r\n"))
	return err
}

// FixedLengthDecoder reads exactly ContentLength bytes from the underlying
// connection.
type FixedLengthDecoder struct {
	r         *bufio.Reader
	remaining int64
}

func NewFixedLengthDecoder(conn net.Conn, contentLength int64) *FixedLengthDecoder {
	return &FixedLengthDecoder{r: bufio.NewReader(conn), remaining: contentLength}
}

func (d *FixedLengthDecoder) Read(p []byte) (int, error) {
	if d.remaining <= 0 {
		return 0, nil
	}
	if int64(len(p)) > d.remaining {
		p = p[:d.remaining]
	}
	n, err := d.r.Read(p)
	d.remaining -= int64(n)
	if err == io.EOF && d.remaining > 0 {
		return n, err
	}
	return n, nil
}

func (d *FixedLengthDecoder) IsCompleted() bool { return d.remaining <= 0 }
