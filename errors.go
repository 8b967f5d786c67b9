package nio

import (
	"net"

	"github.com/pkg/errors"
)

// timeoutError satisfies net.Error so callers relying on the standard
// net.Conn timeout contract keep working when a wait-for-continue or
// socket-level timeout fires.
type timeoutError struct{}

func (timeoutError) Error() string   { return "timeout" }
func (timeoutError) Temporary() bool { return true }
func (timeoutError) Timeout() bool   { return true }

var (
	// ErrTimeout is a net.Error value (Timeout() true) for socket-level or
	// wait-for-continue timeouts. The handler itself does not return it: it
	// reports timeouts through EventListener.ConnectionTimeout.
	ErrTimeout net.Error = &timeoutError{}

	// ErrShutdown is returned to any producer/consumer blocked on a buffer
	// whose connection has been shut down (hard close, §7.1).
	ErrShutdown = errors.New("interrupted I/O: connection shut down")

	// ErrClosed is the sentinel for an operation on a buffer or connection
	// that has already completed its lifecycle. The buffers and
	// SimpleConnection in this package do not return it.
	ErrClosed = errors.New("buffer closed")

	// ErrInvalidState is the sentinel for a phase transition outside the
	// legal sequence of §4.3. ConnectionState does not check transitions and
	// never returns it.
	ErrInvalidState = errors.New("illegal connection phase transition")

	// ErrNoDispatcher is a construction-time configuration error (§7.5).
	ErrNoDispatcher = errors.New("worker dispatcher is required")

	// ErrNoExecHandler is a construction-time error: NewClientConnectionHandler
	// was given a nil RequestExecutionHandler.
	ErrNoExecHandler = errors.New("request execution handler is required")

	// ErrBadBufferSize is a construction-time configuration error (§7.5).
	ErrBadBufferSize = errors.New("content buffer size must be positive")
)

// wrapIO tags an I/O failure with the operation that observed it, for the
// fatal_io_exception path of §7.1.
func wrapIO(err error, op string) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "nio: %s", op)
}
