package nio

import "net"

// SimpleConnection is a reference NonBlockingConnection (§6) suitable for
// driving the handler in tests and in small single-connection programs that
// do not need a full reactor. It tracks suspend/request calls so tests can
// assert on flow-control behavior (P1), and it has no goroutine of its own:
// like the teacher's Session, all concurrency is pushed to callers.
type SimpleConnection struct {
	ctx    *HttpContext
	remote net.Addr

	timeoutMS int
	open      bool

	// Counters, for assertions in tests (not part of the external
	// interface, purely observability on the reference implementation).
	SuspendInputCount  int
	RequestInputCount  int
	RequestOutputCount int
	SuspendOutputCount int
	CloseCount         int

	response *HttpResponse

	onRequestOutput func() // hook fired by RequestOutput, e.g. to drive a test's I/O loop
}

// NewSimpleConnection returns an open connection with a fresh context.
func NewSimpleConnection(remote net.Addr) *SimpleConnection {
	return &SimpleConnection{
		ctx:    NewHttpContext(),
		remote: remote,
		open:   true,
	}
}

func (c *SimpleConnection) Context() *HttpContext   { return c.ctx }
func (c *SimpleConnection) Response() *HttpResponse { return c.response }

func (c *SimpleConnection) SubmitRequest(req *HttpRequest) {
	// The reference connection has nothing to hand the request to; a real
	// reactor-backed implementation would start encoding req here.
}

func (c *SimpleConnection) SuspendInput()  { c.SuspendInputCount++ }
func (c *SimpleConnection) RequestInput()  { c.RequestInputCount++ }
func (c *SimpleConnection) SuspendOutput() { c.SuspendOutputCount++ }

func (c *SimpleConnection) RequestOutput() {
	c.RequestOutputCount++
	if c.onRequestOutput != nil {
		c.onRequestOutput()
	}
}

func (c *SimpleConnection) ResetOutput() {}
func (c *SimpleConnection) ResetInput()  {}

func (c *SimpleConnection) SetSocketTimeout(ms int) { c.timeoutMS = ms }
func (c *SimpleConnection) GetSocketTimeout() int   { return c.timeoutMS }

func (c *SimpleConnection) IsOpen() bool { return c.open }

func (c *SimpleConnection) Close() error {
	c.CloseCount++
	c.open = false
	return nil
}

func (c *SimpleConnection) RemoteAddr() net.Addr { return c.remote }

// SetOnRequestOutput installs a hook fired synchronously from RequestOutput,
// letting a test drive its own fake I/O thread loop without a real reactor.
func (c *SimpleConnection) SetOnRequestOutput(fn func()) { c.onRequestOutput = fn }

// SetResponse is used by tests to stage the response conn.Response() should
// return, mirroring a reactor's get_http_response().
func (c *SimpleConnection) SetResponse(resp *HttpResponse) { c.response = resp }

var _ NonBlockingConnection = (*SimpleConnection)(nil)
var _ IOControl = (*SimpleConnection)(nil)
