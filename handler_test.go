package nio

import (
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeExecHandler is a fixture RequestExecutionHandler that hands back a
// fixed request once and records whatever response it is asked to handle.
type fakeExecHandler struct {
	mu          sync.Mutex
	req         *HttpRequest
	onResponse  func(resp *HttpResponse, ctx *HttpContext) error
	abandonBody bool // simulate a handler that returns without reading the entity
	handled     int
	bodies      [][]byte
}

func (h *fakeExecHandler) InitializeContext(*HttpContext, interface{}) {}

func (h *fakeExecHandler) SubmitRequest(*HttpContext) (*HttpRequest, error) {
	return h.req, nil
}

func (h *fakeExecHandler) HandleResponse(resp *HttpResponse, ctx *HttpContext) error {
	h.mu.Lock()
	h.handled++
	h.mu.Unlock()

	if resp.Entity != nil && !h.abandonBody {
		body, _ := io.ReadAll(resp.Entity.(*ReaderEntity).Source)
		h.mu.Lock()
		h.bodies = append(h.bodies, body)
		h.mu.Unlock()
	}
	if h.onResponse != nil {
		return h.onResponse(resp, ctx)
	}
	return nil
}

func (h *fakeExecHandler) timesHandled() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.handled
}

// recordingListener is a fixture EventListener counting each event kind.
type recordingListener struct {
	mu                         sync.Mutex
	opens, closes, timeouts    int
	ioExceptions, protoExcepts int
}

func (l *recordingListener) ConnectionOpen(NonBlockingConnection)    { l.bump(&l.opens) }
func (l *recordingListener) ConnectionClosed(NonBlockingConnection)  { l.bump(&l.closes) }
func (l *recordingListener) ConnectionTimeout(NonBlockingConnection) { l.bump(&l.timeouts) }
func (l *recordingListener) FatalIOException(NonBlockingConnection, error) {
	l.bump(&l.ioExceptions)
}
func (l *recordingListener) FatalProtocolException(NonBlockingConnection, error) {
	l.bump(&l.protoExcepts)
}

func (l *recordingListener) bump(counter *int) {
	l.mu.Lock()
	*counter++
	l.mu.Unlock()
}

type fakeAddr string

func (a fakeAddr) Network() string { return "tcp" }
func (a fakeAddr) String() string  { return string(a) }

// drainOutput pumps OutputReady until the testEncoder has received want
// bytes (failing the test after 2s), returning the encoder's bytes.
// Used by scenarios that push a request body through C2.
func drainOutput(t *testing.T, h *ClientConnectionHandler, conn NonBlockingConnection, want int) []byte {
	t.Helper()
	enc := &testEncoder{}
	ctx := conn.Context()
	deadline := time.Now().Add(2 * time.Second)
	for enc.buf.Len() < want {
		h.OutputReady(conn, enc)
		if stateOf(ctx).OutputPhase() == OutputRequestBodyDone && enc.buf.Len() >= want {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("drainOutput: only got %d/%d bytes before deadline", enc.buf.Len(), want)
		}
		time.Sleep(time.Millisecond)
	}
	return enc.buf.Bytes()
}

func TestClientConnectionHandler_SimpleGetNoBody(t *testing.T) {
	listener := &recordingListener{}
	exec := &fakeExecHandler{req: &HttpRequest{Method: "GET", Target: "/", Proto: "HTTP/1.1"}}
	dispatcher := &GoroutineDispatcher{}
	cfg := DefaultConfig()
	cfg.Dispatcher = dispatcher
	cfg.Listener = listener

	h, err := NewClientConnectionHandler(cfg, nil, exec, nil)
	require.NoError(t, err)

	conn := NewSimpleConnection(fakeAddr("10.0.0.1:80"))
	h.Connected(conn, nil)

	ctx := conn.Context()
	require.Equal(t, OutputRequestSent, stateOf(ctx).OutputPhase())
	require.Equal(t, 1, listener.opens)

	conn.SetResponse(&HttpResponse{
		StatusCode: 200,
		Proto:      "HTTP/1.1",
		Header:     http.Header{"Content-Length": {"5"}},
	})
	h.ResponseReceived(conn)

	h.InputReady(conn, newTestDecoder("hello"))
	dispatcher.Wait()

	require.Equal(t, 1, exec.timesHandled())
	require.Equal(t, [][]byte{[]byte("hello")}, exec.bodies)
	require.Equal(t, 0, listener.ioExceptions)
	require.Equal(t, 0, listener.protoExcepts)
	require.Equal(t, OutputReady, stateOf(ctx).OutputPhase())
	require.True(t, conn.IsOpen())
}

func TestClientConnectionHandler_PostWithoutExpectContinue(t *testing.T) {
	listener := &recordingListener{}
	body := strings.Repeat("A", 65536)
	req := &HttpRequest{
		Method: "POST", Target: "/", Proto: "HTTP/1.1",
		Entity: &ReaderEntity{Length: int64(len(body)), Source: strings.NewReader(body)},
	}
	exec := &fakeExecHandler{req: req}
	dispatcher := &GoroutineDispatcher{}
	cfg := DefaultConfig() // 20480-byte buffer, far smaller than the 65536-byte body
	cfg.Dispatcher = dispatcher
	cfg.Listener = listener

	h, err := NewClientConnectionHandler(cfg, nil, exec, nil)
	require.NoError(t, err)

	conn := NewSimpleConnection(fakeAddr("10.0.0.1:80"))
	h.Connected(conn, nil)

	got := drainOutput(t, h, conn, len(body))
	require.Equal(t, body, string(got))

	dispatcher.Wait() // the request-body worker must have returned by now
}

func TestClientConnectionHandler_ExpectContinueServerSends100(t *testing.T) {
	listener := &recordingListener{}
	bodyText := "payload"
	req := &HttpRequest{
		Method: "POST", Target: "/", Proto: "HTTP/1.1", ExpectContinue: true,
		Entity: &ReaderEntity{Length: int64(len(bodyText)), Source: strings.NewReader(bodyText)},
	}
	exec := &fakeExecHandler{req: req}
	dispatcher := &GoroutineDispatcher{}
	cfg := DefaultConfig()
	cfg.Dispatcher = dispatcher
	cfg.Listener = listener
	cfg.WaitForContinue = 3000 * time.Millisecond

	h, err := NewClientConnectionHandler(cfg, nil, exec, nil)
	require.NoError(t, err)

	conn := NewSimpleConnection(fakeAddr("10.0.0.1:80"))
	h.Connected(conn, nil)

	ctx := conn.Context()
	require.Equal(t, OutputExpectContinue, stateOf(ctx).OutputPhase())
	require.Equal(t, 3000, conn.GetSocketTimeout())

	conn.SetResponse(&HttpResponse{StatusCode: http.StatusContinue, Proto: "HTTP/1.1"})
	h.ResponseReceived(conn)

	require.Equal(t, OutputRequestSent, stateOf(ctx).OutputPhase())
	require.Equal(t, 0, conn.GetSocketTimeout()) // restored to the pre-override value

	got := drainOutput(t, h, conn, len(bodyText))
	require.Equal(t, bodyText, string(got))

	conn.SetResponse(&HttpResponse{
		StatusCode: 200, Proto: "HTTP/1.1",
		Header: http.Header{"Content-Length": {"0"}},
	})
	h.ResponseReceived(conn)
	h.InputReady(conn, newTestDecoder(""))
	dispatcher.Wait()

	require.Equal(t, 1, exec.timesHandled())
	require.Equal(t, 0, listener.ioExceptions)
	require.Equal(t, 0, listener.protoExcepts)
}

func TestClientConnectionHandler_ExpectContinueServerSilentTimesOut(t *testing.T) {
	listener := &recordingListener{}
	req := &HttpRequest{
		Method: "POST", Target: "/", Proto: "HTTP/1.1", ExpectContinue: true,
		Entity: &ReaderEntity{Length: 1, Source: strings.NewReader("x")},
	}
	exec := &fakeExecHandler{req: req}
	dispatcher := &GoroutineDispatcher{}
	cfg := DefaultConfig()
	cfg.Dispatcher = dispatcher
	cfg.Listener = listener

	h, err := NewClientConnectionHandler(cfg, nil, exec, nil)
	require.NoError(t, err)

	conn := NewSimpleConnection(fakeAddr("10.0.0.1:80"))
	h.Connected(conn, nil)

	ctx := conn.Context()
	require.Equal(t, OutputExpectContinue, stateOf(ctx).OutputPhase())

	h.Timeout(conn)

	require.Equal(t, OutputRequestSent, stateOf(ctx).OutputPhase())
	require.Equal(t, 1, listener.timeouts)
	require.Equal(t, 0, listener.ioExceptions)
	require.False(t, conn.IsOpen())

	got := drainOutput(t, h, conn, 1)
	require.Equal(t, "x", string(got))
	dispatcher.Wait()
}

func TestClientConnectionHandler_HeadResponseHasNoBody(t *testing.T) {
	listener := &recordingListener{}
	req := &HttpRequest{Method: http.MethodHead, Target: "/", Proto: "HTTP/1.1"}
	exec := &fakeExecHandler{req: req}
	dispatcher := &GoroutineDispatcher{}
	cfg := DefaultConfig()
	cfg.Dispatcher = dispatcher
	cfg.Listener = listener

	h, err := NewClientConnectionHandler(cfg, nil, exec, nil)
	require.NoError(t, err)

	conn := NewSimpleConnection(fakeAddr("10.0.0.1:80"))
	h.Connected(conn, nil)

	resp := &HttpResponse{StatusCode: 200, Proto: "HTTP/1.1", Header: http.Header{"Content-Length": {"100"}}}
	conn.SetResponse(resp)
	h.ResponseReceived(conn)

	ctx := conn.Context()
	require.Nil(t, resp.Entity)
	require.Equal(t, InputResponseDone, stateOf(ctx).InputPhase())
	require.Equal(t, 0, exec.timesHandled()) // no body means no response-handler worker
	require.True(t, conn.IsOpen())
}

func TestClientConnectionHandler_ConnectionCloseEndsKeepAlive(t *testing.T) {
	listener := &recordingListener{}
	req := &HttpRequest{Method: "GET", Target: "/", Proto: "HTTP/1.1"}
	exec := &fakeExecHandler{req: req}
	dispatcher := &GoroutineDispatcher{}
	cfg := DefaultConfig()
	cfg.Dispatcher = dispatcher
	cfg.Listener = listener

	h, err := NewClientConnectionHandler(cfg, nil, exec, nil)
	require.NoError(t, err)

	conn := NewSimpleConnection(fakeAddr("10.0.0.1:80"))
	h.Connected(conn, nil)

	conn.SetResponse(&HttpResponse{
		StatusCode: 200, Proto: "HTTP/1.1",
		Header: http.Header{"Content-Length": {"5"}, "Connection": {"close"}},
	})
	h.ResponseReceived(conn)

	requestOutputBefore := conn.RequestOutputCount
	h.InputReady(conn, newTestDecoder("hello"))

	// the I/O thread closes proactively the moment the body is fully
	// received, before the worker has even read it.
	require.False(t, conn.IsOpen())
	require.Equal(t, 1, conn.CloseCount)

	dispatcher.Wait()

	require.Equal(t, 1, exec.timesHandled())
	// closed connections never get asked for more output: no pipelined
	// request_ready is honored after a non-keep-alive exchange.
	require.Equal(t, requestOutputBefore, conn.RequestOutputCount)
}

// TestClientConnectionHandler_ResponseHandlerWaitsForIOThreadBeforeReset is a
// regression test: a HandleResponse that returns without reading the entity
// (a legal abandon) must not let the worker reset the connection state
// before the I/O thread itself has finished draining the body off the wire.
func TestClientConnectionHandler_ResponseHandlerWaitsForIOThreadBeforeReset(t *testing.T) {
	listener := &recordingListener{}
	req := &HttpRequest{Method: "GET", Target: "/", Proto: "HTTP/1.1"}
	exec := &fakeExecHandler{req: req, abandonBody: true}
	dispatcher := &GoroutineDispatcher{}
	cfg := DefaultConfig()
	cfg.Dispatcher = dispatcher
	cfg.Listener = listener

	h, err := NewClientConnectionHandler(cfg, nil, exec, nil)
	require.NoError(t, err)

	conn := NewSimpleConnection(fakeAddr("10.0.0.1:80"))
	h.Connected(conn, nil)

	conn.SetResponse(&HttpResponse{
		StatusCode: 200, Proto: "HTTP/1.1",
		Header: http.Header{"Content-Length": {"5"}},
	})
	h.ResponseReceived(conn)

	// give the worker a chance to run HandleResponse (which abandons the
	// body immediately) and reach the wait for the I/O thread's signal.
	time.Sleep(20 * time.Millisecond)

	ctx := conn.Context()
	st := stateOf(ctx)
	require.Equal(t, 1, exec.timesHandled())
	// the worker must still be blocked: RESPONSE_DONE must not have been
	// declared, and the buffers must not have been reset, until the I/O
	// thread reports RESPONSE_BODY_DONE.
	require.Equal(t, InputResponseReceived, st.InputPhase())

	h.InputReady(conn, newTestDecoder("hello"))
	dispatcher.Wait()

	require.Equal(t, OutputReady, st.OutputPhase())
	require.Equal(t, InputReady, st.InputPhase())
}

var _ net.Addr = fakeAddr("")
