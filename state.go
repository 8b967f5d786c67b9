package nio

import "sync"

// ConnectionState is C3: one instance per live connection, holding the
// buffers, the in-flight request/response, the two phase variables, and
// the saved socket timeout (§3). Every mutation of input_phase,
// output_phase, request, response, or saved_timeout happens under this
// state's monitor, and every mutation signals all waiters (§5 "Monitor
// discipline").
//
// Grounded on smux Session's field layout (streamLock sync.Mutex guarding
// cross-thread-mutable fields) generalized to a full monitor: a sync.Cond
// is added because this core needs repeated broadcast-on-any-mutation and
// waits on specific phase values, not just a single one-shot die channel
// the way smux's shutdown signaling works.
type ConnectionState struct {
	mu   sync.Mutex
	cond *sync.Cond

	InBuffer  *SharedInputBuffer
	OutBuffer *SharedOutputBuffer

	outputPhase OutputPhase
	inputPhase  InputPhase

	request  *HttpRequest
	response *HttpResponse

	savedTimeoutMS int
	hasSavedTimeout bool
}

// NewConnectionState allocates fresh buffers sized by bufSize, bound to the
// given flow-control port, per §4.3 event 1 ("Allocate the connection state
// with the configured buffer size").
func NewConnectionState(bufSize int, ioctrl IOControl) *ConnectionState {
	s := &ConnectionState{
		InBuffer:  NewSharedInputBuffer(bufSize, ioctrl),
		OutBuffer: NewSharedOutputBuffer(bufSize, ioctrl),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// OutputPhase returns the current output phase (invariant 1: read under
// the monitor).
func (s *ConnectionState) OutputPhase() OutputPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputPhase
}

// SetOutputPhase mutates the output phase and wakes every waiter.
func (s *ConnectionState) SetOutputPhase(p OutputPhase) {
	s.mu.Lock()
	s.outputPhase = p
	s.cond.Broadcast()
	s.mu.Unlock()
}

// InputPhase returns the current input phase.
func (s *ConnectionState) InputPhase() InputPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputPhase
}

// SetInputPhase mutates the input phase and wakes every waiter.
func (s *ConnectionState) SetInputPhase(p InputPhase) {
	s.mu.Lock()
	s.inputPhase = p
	s.cond.Broadcast()
	s.mu.Unlock()
}

// Request returns the in-flight request, or nil (invariant 4).
func (s *ConnectionState) Request() *HttpRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.request
}

// SetRequest installs the in-flight request.
func (s *ConnectionState) SetRequest(req *HttpRequest) {
	s.mu.Lock()
	s.request = req
	s.cond.Broadcast()
	s.mu.Unlock()
}

// Response returns the in-flight response, or nil (invariant 4).
func (s *ConnectionState) Response() *HttpResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.response
}

// SetResponse installs the in-flight response.
func (s *ConnectionState) SetResponse(resp *HttpResponse) {
	s.mu.Lock()
	s.response = resp
	s.cond.Broadcast()
	s.mu.Unlock()
}

// SaveTimeout remembers the socket timeout in effect before an
// EXPECT_CONTINUE wait override (§4.3 request_ready).
func (s *ConnectionState) SaveTimeout(ms int) {
	s.mu.Lock()
	s.savedTimeoutMS = ms
	s.hasSavedTimeout = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

// RestoreTimeout returns the previously saved timeout and clears it, or
// ok=false if none was saved.
func (s *ConnectionState) RestoreTimeout() (ms int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ms, ok = s.savedTimeoutMS, s.hasSavedTimeout
	s.hasSavedTimeout = false
	s.cond.Broadcast()
	return ms, ok
}

// ResetInput clears the input side for reuse on a kept-alive connection
// (§4.4): the input buffer is reset, the response is cleared, and the
// input phase returns to READY.
func (s *ConnectionState) ResetInput() {
	s.InBuffer.Reset()
	s.mu.Lock()
	s.response = nil
	s.inputPhase = InputReady
	s.cond.Broadcast()
	s.mu.Unlock()
}

// ResetOutput clears the output side for reuse on a kept-alive connection
// (§4.4): the output buffer is reset, the request is cleared, and the
// output phase returns to READY.
func (s *ConnectionState) ResetOutput() {
	s.OutBuffer.Reset()
	s.mu.Lock()
	s.request = nil
	s.outputPhase = OutputReady
	s.cond.Broadcast()
	s.mu.Unlock()
}

// Shutdown marks both phases SHUTDOWN and shuts down both buffers, so
// every blocked producer/consumer unblocks with ErrShutdown (§3 invariant
// 3, §5 "Cancellation and shutdown").
func (s *ConnectionState) Shutdown() {
	s.mu.Lock()
	s.outputPhase = OutputShutdown
	s.inputPhase = InputShutdown
	s.cond.Broadcast()
	s.mu.Unlock()

	s.InBuffer.Shutdown()
	s.OutBuffer.Shutdown()
}

// IsShutdown reports whether this connection has been torn down.
func (s *ConnectionState) IsShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputPhase == InputShutdown || s.outputPhase == OutputShutdown
}

// WaitForInputBodyDoneOrShutdown blocks until the I/O thread itself signals
// RESPONSE_BODY_DONE (input_ready observing decoder.IsCompleted(), §4.3
// event 5) or SHUTDOWN, returning ErrShutdown in the latter case. The
// response-handling worker must wait for this signal — not merely set its
// own RESPONSE_DONE and check that — because the I/O thread may still be
// draining the wire into the shared input buffer after HandleResponse
// returns (a handler may legally abandon a partial read); resetting the
// buffers before the I/O thread reaches RESPONSE_BODY_DONE would race it.
// Interrupting this wait (e.g. by the caller's own cancellation) must invoke
// the handler's shutdownConnection per §5 "Monitor-wait interrupted"; that call is the
// caller's responsibility, not this method's, since Go has no distinguished
// interrupt signal for a blocked mutex/cond wait.
func (s *ConnectionState) WaitForInputBodyDoneOrShutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.inputPhase != InputResponseBodyDone && s.inputPhase != InputShutdown {
		s.cond.Wait()
	}
	if s.inputPhase == InputShutdown {
		return ErrShutdown
	}
	return nil
}
