package nio

import "sync"

// SharedOutputBuffer is C2: a bounded ring byte store with one producer (a
// worker, via Write/CloseSink) and one consumer (the I/O thread, via
// UpdateOutput). Symmetric to SharedInputBuffer (§4.2).
//
// Grounded on smux session.go's sendLoop (drain-and-request-output-when-
// non-empty) and stream.go's writeV2 backpressure-by-blocking pattern,
// adapted to this spec's fill(worker)/drain(I/O thread) split.
type SharedOutputBuffer struct {
	mu   sync.Mutex
	cond *sync.Cond

	buf  []byte
	r, w int
	n    int

	closed   bool // worker closed the sink: end-of-stream
	shutdown bool

	ioctrl IOControl
}

func NewSharedOutputBuffer(size int, ioctrl IOControl) *SharedOutputBuffer {
	if ioctrl == nil {
		ioctrl = noopIOControl{}
	}
	b := &SharedOutputBuffer{
		buf:    make([]byte, size),
		ioctrl: ioctrl,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *SharedOutputBuffer) readableSlice(avail int) []byte {
	size := len(b.buf)
	end := size - b.r
	if avail < end {
		end = avail
	}
	return b.buf[b.r : b.r+end]
}

func (b *SharedOutputBuffer) writableSlice(free int) []byte {
	size := len(b.buf)
	end := size - b.w
	if free < end {
		end = free
	}
	return b.buf[b.w : b.w+end]
}

// Write is the producer role (a worker only, §4.2): a blocking byte sink.
// It blocks while full, waking when the I/O thread drains bytes or
// shutdown is set.
func (b *SharedOutputBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := 0
	for total < len(p) {
		for b.n == len(b.buf) && !b.shutdown {
			b.cond.Wait()
		}
		if b.shutdown {
			return total, ErrShutdown
		}

		free := len(b.buf) - b.n
		chunk := b.writableSlice(free)
		nc := copy(chunk, p[total:])
		b.w = (b.w + nc) % len(b.buf)
		b.n += nc
		total += nc

		b.ioctrl.RequestOutput()
	}
	return total, nil
}

// CloseSink marks end-of-stream: the worker has finished writing the
// entity. The I/O thread finalizes the encoder once the buffer drains to
// empty (§4.2 "Closing the sink on the worker side marks end-of-stream").
func (b *SharedOutputBuffer) CloseSink() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.ioctrl.RequestOutput()
}

// UpdateOutput is the consumer role (the I/O thread only, §4.2): drains
// resident bytes into the encoder and reports whether the encoder has now
// completed (end-of-stream seen and fully flushed).
func (b *SharedOutputBuffer) UpdateOutput(encoder Encoder) (done bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.n > 0 {
		wasFull := b.n == len(b.buf)

		chunk := b.readableSlice(b.n)
		nw, werr := encoder.Write(chunk)
		if nw > 0 {
			b.r = (b.r + nw) % len(b.buf)
			b.n -= nw
			if wasFull && b.n < len(b.buf) {
				b.cond.Broadcast()
			}
		}
		if werr != nil {
			return false, wrapIO(werr, "update_output")
		}
	}

	if b.n == 0 {
		if b.closed || encoder.IsCompleted() {
			if cerr := encoder.Complete(); cerr != nil {
				return false, wrapIO(cerr, "complete_output")
			}
			return true, nil
		}
		b.ioctrl.SuspendOutput()
		return false, nil
	}

	b.ioctrl.RequestOutput()
	return false, nil
}

// Reset discards residual bytes and clears end-of-stream, for reuse on a
// kept-alive connection (§3 lifecycle).
func (b *SharedOutputBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.r, b.w, b.n = 0, 0, 0
	b.closed = false
}

// Shutdown causes a pending Write to return ErrShutdown (§4.2, §5).
func (b *SharedOutputBuffer) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shutdown = true
	b.cond.Broadcast()
}

func (b *SharedOutputBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}
