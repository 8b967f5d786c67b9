package nio

import (
	"io"
	"sync"
)

// SharedInputBuffer is C1: a bounded ring byte store with one producer (the
// I/O thread, via ConsumeFrom) and one consumer (a worker, via Read). No
// byte is lost, reordered, or duplicated (§4.1 guarantee); memory use stays
// at the configured size plus O(1), satisfying P1.
//
// Grounded on smux stream.go's tryReadV1/waitRead/pushBytes pattern
// (bufferLock-guarded slice, wake channel, return-tokens-on-read), adapted
// from a list of discrete chunks (smux shards by frame) to a single ring
// sized by Config.ContentBufferSize, since this core has no framing of its
// own to shard by.
type SharedInputBuffer struct {
	mu   sync.Mutex
	cond *sync.Cond

	buf  []byte
	r, w int // read/write cursors, mod len(buf)
	n    int // bytes currently stored

	eof      bool
	shutdown bool

	ioctrl IOControl
}

// NewSharedInputBuffer allocates a ring of the given size, owned by the
// given flow-control port (§9 "capability handle held by the buffer").
func NewSharedInputBuffer(size int, ioctrl IOControl) *SharedInputBuffer {
	if ioctrl == nil {
		ioctrl = noopIOControl{}
	}
	b := &SharedInputBuffer{
		buf:    make([]byte, size),
		ioctrl: ioctrl,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// writableSlice returns the largest contiguous free region starting at the
// write cursor, bounded by free space and by the ring wrap point.
func (b *SharedInputBuffer) writableSlice(free int) []byte {
	size := len(b.buf)
	end := size - b.w
	if free < end {
		end = free
	}
	return b.buf[b.w : b.w+end]
}

// ConsumeFrom is the producer role (I/O thread only, §4.1): it reads
// whatever the decoder currently has available into the buffer. If the
// buffer fills, it asks the flow-control port to suspend input and
// returns; when the consumer frees space, RequestInput is asked for again
// on the next Read. If the decoder reports completion, end-of-stream is
// recorded.
func (b *SharedInputBuffer) ConsumeFrom(decoder Decoder) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.shutdown {
		return ErrShutdown
	}

	for {
		free := len(b.buf) - b.n
		if free == 0 {
			b.ioctrl.SuspendInput()
			return nil
		}

		chunk := b.writableSlice(free)
		nr, err := decoder.Read(chunk)
		if nr > 0 {
			b.w = (b.w + nr) % len(b.buf)
			b.n += nr
			b.cond.Broadcast()
		}

		if decoder.IsCompleted() {
			b.eof = true
			b.cond.Broadcast()
			return nil
		}

		if err != nil {
			if err == io.EOF {
				b.eof = true
				b.cond.Broadcast()
				return nil
			}
			return wrapIO(err, "consume_from")
		}

		if nr == 0 {
			// decoder has nothing more ready right now
			return nil
		}
	}
}

// Read is the consumer role (a worker only, §4.1): a blocking byte source.
// It blocks when empty and not at end-of-stream, waking when the producer
// appends bytes, end-of-stream is set, or shutdown is set.
func (b *SharedInputBuffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.n == 0 && !b.eof && !b.shutdown {
		b.cond.Wait()
	}

	if b.shutdown {
		return 0, ErrShutdown
	}
	if b.n == 0 && b.eof {
		return 0, io.EOF
	}

	wasFull := b.n == len(b.buf)

	toCopy := len(p)
	if toCopy > b.n {
		toCopy = b.n
	}
	total := 0
	for total < toCopy {
		contig := len(b.buf) - b.r
		chunk := toCopy - total
		if chunk > contig {
			chunk = contig
		}
		copy(p[total:total+chunk], b.buf[b.r:b.r+chunk])
		b.r = (b.r + chunk) % len(b.buf)
		total += chunk
	}
	b.n -= total

	if wasFull && b.n < len(b.buf) {
		b.ioctrl.RequestInput()
	}

	return total, nil
}

// Reset discards any residual bytes and clears end-of-stream, for reuse on
// a kept-alive connection (§3 lifecycle).
func (b *SharedInputBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.r, b.w, b.n = 0, 0, 0
	b.eof = false
}

// Shutdown causes all blocked reads to return ErrShutdown (§4.1, §5).
func (b *SharedInputBuffer) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shutdown = true
	b.cond.Broadcast()
}

// Len reports bytes currently resident, for P5 (post-reset zero bytes) and
// P1 (bounded memory) assertions in tests.
func (b *SharedInputBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}
