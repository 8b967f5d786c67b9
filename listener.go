package nio

import "go.uber.org/zap"

// EventListener is the injected observer for connection lifecycle and fatal
// errors (C6, §6). The core never decides what to do with these events
// beyond invoking the listener, the way smux pushes socketReadError/
// socketWriteError/protoError to whoever is waiting rather than acting on
// them itself.
type EventListener interface {
	ConnectionOpen(conn NonBlockingConnection)
	ConnectionClosed(conn NonBlockingConnection)
	ConnectionTimeout(conn NonBlockingConnection)
	FatalIOException(conn NonBlockingConnection, cause error)
	FatalProtocolException(conn NonBlockingConnection, cause error)
}

// NopEventListener discards every event. Used when Config.Listener is left
// unset (§7.5 construction defaults).
type NopEventListener struct{}

func (NopEventListener) ConnectionOpen(NonBlockingConnection)               {}
func (NopEventListener) ConnectionClosed(NonBlockingConnection)             {}
func (NopEventListener) ConnectionTimeout(NonBlockingConnection)            {}
func (NopEventListener) FatalIOException(NonBlockingConnection, error)      {}
func (NopEventListener) FatalProtocolException(NonBlockingConnection, error) {}

// ZapEventListener is a production listener, logging each event as a
// structured record. It is used only when set as Config.Listener; an unset
// listener falls back to NopEventListener. Grounded on the retrieval pack's prevailing choice of
// go.uber.org/zap for network-service logging (SPEC_FULL.md §2.2).
type ZapEventListener struct {
	Log *zap.Logger
}

// NewZapEventListener wraps a *zap.Logger, falling back to zap.NewNop() if
// log is nil so callers never need their own nil check.
func NewZapEventListener(log *zap.Logger) *ZapEventListener {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapEventListener{Log: log}
}

func (l *ZapEventListener) ConnectionOpen(conn NonBlockingConnection) {
	l.Log.Debug("connection opened", zap.String("remote", remoteAddrString(conn)))
}

func (l *ZapEventListener) ConnectionClosed(conn NonBlockingConnection) {
	l.Log.Debug("connection closed", zap.String("remote", remoteAddrString(conn)))
}

func (l *ZapEventListener) ConnectionTimeout(conn NonBlockingConnection) {
	l.Log.Warn("connection timed out", zap.String("remote", remoteAddrString(conn)))
}

func (l *ZapEventListener) FatalIOException(conn NonBlockingConnection, cause error) {
	l.Log.Error("fatal I/O exception", zap.String("remote", remoteAddrString(conn)), zap.Error(cause))
}

func (l *ZapEventListener) FatalProtocolException(conn NonBlockingConnection, cause error) {
	l.Log.Error("fatal protocol exception", zap.String("remote", remoteAddrString(conn)), zap.Error(cause))
}

func remoteAddrString(conn NonBlockingConnection) string {
	if conn == nil {
		return "<nil>"
	}
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "<unknown>"
}
