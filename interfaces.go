package nio

import (
	"net"
	"strings"
)

// NonBlockingConnection is the non-blocking connection port of §6: the
// operations the core calls on the socket-facing side, owned by the
// reactor/transport layer this core treats as an external collaborator.
type NonBlockingConnection interface {
	Context() *HttpContext
	Response() *HttpResponse

	// SubmitRequest hands the outgoing request to the connection so the
	// reactor can begin encoding it.
	SubmitRequest(req *HttpRequest)

	// RequestInput/SuspendInput/RequestOutput/SuspendOutput together give
	// NonBlockingConnection the exact method set of IOControl (C7): the
	// connection itself is the flow-control port, which is how the spec's
	// "capability handle held by the buffer" (§9) is realized here without
	// a separate object per connection.
	SuspendInput()
	RequestInput()
	RequestOutput()
	SuspendOutput()
	ResetOutput()
	ResetInput()

	SetSocketTimeout(ms int)
	GetSocketTimeout() int

	IsOpen() bool
	Close() error

	RemoteAddr() net.Addr
}

// HttpProcessor is the HTTP processor port of §6: invoked once on each
// outgoing request before submission, and once on each incoming response
// after headers are received but before handler dispatch. It is where a
// real pipeline would add/interpret headers (§1, out of scope for the
// core itself).
type HttpProcessor interface {
	Process(isRequest bool, ctx *HttpContext) error
}

// NopHttpProcessor leaves messages untouched.
type NopHttpProcessor struct{}

func (NopHttpProcessor) Process(bool, *HttpContext) error { return nil }

// RequestExecutionHandler is the request execution handler port of §6: the
// application-facing collaborator that produces requests and consumes
// responses.
type RequestExecutionHandler interface {
	// InitializeContext seeds a freshly-populated context (target host and
	// connection already set by the core) with whatever the application
	// attached when it queued the exchange.
	InitializeContext(ctx *HttpContext, attachment interface{})

	// SubmitRequest returns the next request to send on this connection, or
	// nil if none is ready yet (the handler will later call RequestOutput
	// on the connection to wake request_ready again, §4.3 event 2).
	SubmitRequest(ctx *HttpContext) (*HttpRequest, error)

	// HandleResponse is invoked on a worker with a response whose entity
	// (if any) is a streaming view backed by the shared input buffer.
	HandleResponse(resp *HttpResponse, ctx *HttpContext) error
}

// ConnectionReuseStrategy is the connection-reuse decision port of §6.
type ConnectionReuseStrategy interface {
	KeepAlive(resp *HttpResponse, ctx *HttpContext) bool
}

// ConnectionCloseReuseStrategy implements the common HTTP/1.1 default:
// keep-alive unless the response carries "Connection: close", or the
// response is HTTP/1.0 without an explicit "Connection: keep-alive".
type ConnectionCloseReuseStrategy struct{}

func (ConnectionCloseReuseStrategy) KeepAlive(resp *HttpResponse, _ *HttpContext) bool {
	if resp == nil {
		return false
	}
	conn := resp.Header.Get("Connection")
	switch resp.Proto {
	case "HTTP/1.0":
		return strings.EqualFold(conn, "keep-alive")
	default:
		return !strings.EqualFold(conn, "close")
	}
}
