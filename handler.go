package nio

// ClientConnectionHandler is C4: the event entry points driven by the I/O
// thread, implementing the state machine of §4.3. Every method here is
// invoked by the I/O thread and acquires the relevant connection's monitor
// only briefly, per §5 ("I/O thread holds the monitor for the duration of
// each event handler; workers hold it only around phase reads/waits" — in
// this Go rendition, "holds the monitor" means the short critical sections
// inside ConnectionState's own methods, not one coarse lock for the whole
// handler call).
//
// Grounded on smux session.go's recvLoop per-command dispatch switch
// (cmdSYN/cmdFIN/cmdPSH/cmdUPD) as the shape for this per-event dispatch,
// and on shaperLoop/keepalive's timeout-driven phase change for the
// EXPECT_CONTINUE-to-REQUEST_SENT timeout transition.
type ClientConnectionHandler struct {
	config        *Config
	processor     HttpProcessor
	execHandler   RequestExecutionHandler
	reuseStrategy ConnectionReuseStrategy
}

// NewClientConnectionHandler validates config and wires the three
// collaborator ports. A nil execHandler is a construction-time error
// (§7.5): without it nothing can ever produce a request.
func NewClientConnectionHandler(
	config *Config,
	processor HttpProcessor,
	execHandler RequestExecutionHandler,
	reuseStrategy ConnectionReuseStrategy,
) (*ClientConnectionHandler, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	if execHandler == nil {
		return nil, ErrNoExecHandler
	}
	if processor == nil {
		processor = NopHttpProcessor{}
	}
	if reuseStrategy == nil {
		reuseStrategy = ConnectionCloseReuseStrategy{}
	}
	return &ClientConnectionHandler{
		config:        config,
		processor:     processor,
		execHandler:   execHandler,
		reuseStrategy: reuseStrategy,
	}, nil
}

func stateOf(ctx *HttpContext) *ConnectionState {
	v, ok := ctx.Get(attrConnState)
	if !ok {
		return nil
	}
	s, _ := v.(*ConnectionState)
	return s
}

// Connected is event 1 of §4.3.
func (h *ClientConnectionHandler) Connected(conn NonBlockingConnection, attachment interface{}) {
	ctx := conn.Context()

	// §9 open question #2, resolved: only synthesize a target host from the
	// remote address if the caller did not already configure one.
	if _, has := ctx.Get(AttrTargetHost); !has {
		if addr := conn.RemoteAddr(); addr != nil {
			ctx.Set(AttrTargetHost, addr.String())
		}
	}
	ctx.Set(AttrConnection, conn)

	h.execHandler.InitializeContext(ctx, attachment)

	state := NewConnectionState(h.config.ContentBufferSize, conn)
	ctx.Set(attrConnState, state)

	h.config.Listener.ConnectionOpen(conn)

	h.RequestReady(conn)
}

// RequestReady is event 2 of §4.3.
func (h *ClientConnectionHandler) RequestReady(conn NonBlockingConnection) {
	ctx := conn.Context()
	state := stateOf(ctx)
	if state == nil || state.OutputPhase() != OutputReady {
		return
	}

	req, err := h.execHandler.SubmitRequest(ctx)
	if err != nil {
		h.closeConnection(conn, state, err)
		return
	}
	if req == nil {
		// the handler will call RequestOutput on the connection later to
		// wake request_ready again, once it has a request to send.
		return
	}

	ctx.Set(AttrRequest, req)
	if err := h.processor.Process(true, ctx); err != nil {
		h.closeConnection(conn, state, err)
		return
	}

	state.SetRequest(req)
	conn.SubmitRequest(req)
	state.SetOutputPhase(OutputRequestSent)
	conn.RequestInput()

	if !req.EnclosesEntity() {
		return
	}

	if req.ExpectContinue {
		state.SaveTimeout(conn.GetSocketTimeout())
		conn.SetSocketTimeout(int(h.config.WaitForContinue.Milliseconds()))
		state.SetOutputPhase(OutputExpectContinue)
		return
	}

	h.dispatchRequestBodyTask(conn, state, req)
}

// OutputReady is event 3 of §4.3.
func (h *ClientConnectionHandler) OutputReady(conn NonBlockingConnection, encoder Encoder) {
	ctx := conn.Context()
	state := stateOf(ctx)
	if state == nil {
		return
	}

	if state.OutputPhase() == OutputExpectContinue {
		conn.SuspendOutput()
		return
	}

	done, err := state.OutBuffer.UpdateOutput(encoder)
	if err != nil {
		h.shutdownConnection(conn, state, err)
		return
	}

	// §9 open question #1, resolved: request-body-encoding progress lives
	// entirely in OutputPhase, never in InputPhase.
	if done {
		state.SetOutputPhase(OutputRequestBodyDone)
	} else {
		state.SetOutputPhase(OutputRequestBodyStream)
	}
}

// ResponseReceived is event 4 of §4.3.
func (h *ClientConnectionHandler) ResponseReceived(conn NonBlockingConnection) {
	ctx := conn.Context()
	state := stateOf(ctx)
	if state == nil {
		return
	}

	resp := conn.Response()
	ctx.Set(AttrResponse, resp)
	if err := h.processor.Process(false, ctx); err != nil {
		h.closeConnection(conn, state, err)
		return
	}

	if resp.IsInformational() {
		if resp.Is100Continue() && state.OutputPhase() == OutputExpectContinue {
			state.SetOutputPhase(OutputRequestSent)
			h.continueSendBody(conn, state)
		}
		// other 1xx responses are ignored, per §4.3.
		return
	}

	if state.OutputPhase() == OutputExpectContinue {
		if ms, ok := state.RestoreTimeout(); ok {
			conn.SetSocketTimeout(ms)
		}
		conn.ResetOutput()
	}

	state.SetResponse(resp)
	state.SetInputPhase(InputResponseReceived)

	req := state.Request()
	if !CanHaveBody(req, resp) {
		resp.Entity = nil
		state.ResetInput()
		state.SetInputPhase(InputResponseDone)
		if !h.reuseStrategy.KeepAlive(resp, ctx) {
			conn.Close()
		}
		return
	}

	resp.Entity = &ReaderEntity{Length: resp.ContentLengthOrUnknown(), Source: state.InBuffer}

	h.dispatchResponseHandlerTask(conn, state, resp, ctx)
}

// InputReady is event 5 of §4.3.
func (h *ClientConnectionHandler) InputReady(conn NonBlockingConnection, decoder Decoder) {
	ctx := conn.Context()
	state := stateOf(ctx)
	if state == nil {
		return
	}

	if err := state.InBuffer.ConsumeFrom(decoder); err != nil {
		h.shutdownConnection(conn, state, err)
		return
	}

	if decoder.IsCompleted() {
		state.SetInputPhase(InputResponseBodyDone)
		resp := state.Response()
		if resp != nil && !h.reuseStrategy.KeepAlive(resp, ctx) {
			conn.Close()
		}
		return
	}

	state.SetInputPhase(InputResponseBodyStream)
}

// Timeout is event 6 of §4.3.
func (h *ClientConnectionHandler) Timeout(conn NonBlockingConnection) {
	ctx := conn.Context()
	state := stateOf(ctx)
	if state != nil && state.OutputPhase() == OutputExpectContinue {
		state.SetOutputPhase(OutputRequestSent)
		h.continueSendBody(conn, state)
	}

	conn.Close()
	h.config.Listener.ConnectionTimeout(conn)
}

// Closed is event 7 of §4.3.
func (h *ClientConnectionHandler) Closed(conn NonBlockingConnection) {
	h.config.Listener.ConnectionClosed(conn)
}

// continueSendBody is the "continue helper" named in §4.3 response_received
// and timeout: restore the saved socket timeout and dispatch the
// entity-writing worker task.
func (h *ClientConnectionHandler) continueSendBody(conn NonBlockingConnection, state *ConnectionState) {
	if ms, ok := state.RestoreTimeout(); ok {
		conn.SetSocketTimeout(ms)
	}
	req := state.Request()
	if req != nil && req.EnclosesEntity() {
		h.dispatchRequestBodyTask(conn, state, req)
	}
}

// dispatchRequestBodyTask is the "Worker: request-body task" of §4.3: it
// wraps the output buffer as a byte sink, asks the entity to write itself,
// then flushes and closes the sink.
func (h *ClientConnectionHandler) dispatchRequestBodyTask(conn NonBlockingConnection, state *ConnectionState, req *HttpRequest) {
	h.config.Dispatcher.Execute(func() {
		err := req.Entity.WriteTo(state.OutBuffer)
		state.OutBuffer.CloseSink()
		if err != nil {
			h.shutdownConnection(conn, state, err)
		}
	})
}

// dispatchResponseHandlerTask is the "Worker: response-handling task" of
// §4.3: runs the user response handler, then waits for the I/O thread's own
// RESPONSE_BODY_DONE signal (or SHUTDOWN) before declaring RESPONSE_DONE and
// resetting state, since HandleResponse may return having read only part of
// the entity (a legal abandon/partial read) while input_ready is still
// draining the wire into the shared buffer.
func (h *ClientConnectionHandler) dispatchResponseHandlerTask(
	conn NonBlockingConnection,
	state *ConnectionState,
	resp *HttpResponse,
	ctx *HttpContext,
) {
	h.config.Dispatcher.Execute(func() {
		herr := h.execHandler.HandleResponse(resp, ctx)

		if err := state.WaitForInputBodyDoneOrShutdown(); err != nil {
			h.shutdownConnection(conn, state, err)
			return
		}

		state.SetInputPhase(InputResponseDone)

		if herr != nil {
			h.closeConnection(conn, state, herr)
			return
		}

		state.ResetInput()
		state.ResetOutput()

		if conn.IsOpen() {
			conn.RequestOutput()
		}
	})
}

// shutdownConnection is the §7.1 fatal-I/O path: hard close, buffers shut
// down, workers unblock with ErrShutdown, listener notified.
func (h *ClientConnectionHandler) shutdownConnection(conn NonBlockingConnection, state *ConnectionState, cause error) {
	if state != nil {
		state.Shutdown()
	}
	conn.Close()
	h.config.Listener.FatalIOException(conn, cause)
}

// closeConnection is the §7.2 protocol-failure path: graceful close,
// listener notified of a protocol exception rather than an I/O one.
func (h *ClientConnectionHandler) closeConnection(conn NonBlockingConnection, state *ConnectionState, cause error) {
	if state != nil {
		state.Shutdown()
	}
	conn.Close()
	h.config.Listener.FatalProtocolException(conn, cause)
}

