package nio

// OutputPhase and InputPhase are deliberately distinct types (not two names
// sharing one integer space) to resolve the §9 design note: the source this
// spec distills numerically overlaps RESPONSE_DONE with RESPONSE_BODY_DONE
// and reuses the input-phase variable for request-body-encoding progress.
// Keeping them as separate Go types makes that class of mistake a compile
// error instead of a numeric coincidence.

// OutputPhase tracks progress of the outbound side of one exchange:
// submitting the request and, if it has a body, streaming it out.
type OutputPhase int

const (
	// OutputReady means no request is in flight; request_ready may act.
	OutputReady OutputPhase = iota
	// OutputRequestSent means headers have been submitted to the connection.
	OutputRequestSent
	// OutputExpectContinue means the request demanded 100-Continue and the
	// handler is waiting (bounded by WaitForContinue) for an interim response.
	OutputExpectContinue
	// OutputRequestBodyStream means the entity is being drained into the
	// encoder by output_ready.
	OutputRequestBodyStream
	// OutputRequestBodyDone means the encoder has finished the entity.
	OutputRequestBodyDone
	// OutputShutdown is terminal: the connection has been torn down.
	OutputShutdown
)

func (p OutputPhase) String() string {
	switch p {
	case OutputReady:
		return "READY"
	case OutputRequestSent:
		return "REQUEST_SENT"
	case OutputExpectContinue:
		return "EXPECT_CONTINUE"
	case OutputRequestBodyStream:
		return "REQUEST_BODY_STREAM"
	case OutputRequestBodyDone:
		return "REQUEST_BODY_DONE"
	case OutputShutdown:
		return "SHUTDOWN"
	default:
		return "OUTPUT_UNKNOWN"
	}
}

// InputPhase tracks progress of the inbound side of one exchange: waiting
// for response headers and, once they arrive, streaming the response body.
type InputPhase int

const (
	// InputReady means no response is in flight yet.
	InputReady InputPhase = iota
	// InputResponseReceived means headers arrived (status >= 200).
	InputResponseReceived
	// InputResponseBodyStream means bytes are being decoded into the shared
	// input buffer by input_ready.
	InputResponseBodyStream
	// InputResponseBodyDone means the decoder finished the response body.
	InputResponseBodyDone
	// InputResponseDone means the input side of the exchange is finished:
	// either the response-handling worker saw RESPONSE_BODY_DONE after
	// HandleResponse returned (whether or not the handler read the whole
	// entity), or response_received found the response cannot carry a body
	// (§4.3 "Worker: response-handling task").
	InputResponseDone
	// InputShutdown is terminal: the connection has been torn down.
	InputShutdown
)

func (p InputPhase) String() string {
	switch p {
	case InputReady:
		return "READY"
	case InputResponseReceived:
		return "RESPONSE_RECEIVED"
	case InputResponseBodyStream:
		return "RESPONSE_BODY_STREAM"
	case InputResponseBodyDone:
		return "RESPONSE_BODY_DONE"
	case InputResponseDone:
		return "RESPONSE_DONE"
	case InputShutdown:
		return "SHUTDOWN"
	default:
		return "INPUT_UNKNOWN"
	}
}
