package nio

import "time"

// defaults from §6 Configuration.
const (
	DefaultContentBufferSize = 20480
	DefaultWaitForContinue   = 3000 * time.Millisecond
)

// Config is the parameter store named in §6. Only the two options this core
// recognizes are modeled; a larger pipeline would extend this store with its
// own keys, the way smux's own Config carries fields this core never reads
// (MaxFrameSize, Version, ...).
type Config struct {
	// ContentBufferSize bounds both the shared input buffer (C1) and the
	// shared output buffer (C2), in bytes. Default 20480 (§3 invariant 5).
	ContentBufferSize int

	// WaitForContinue overrides the socket timeout while a connection is in
	// EXPECT_CONTINUE (§4.3 request_ready). Default 3000ms.
	WaitForContinue time.Duration

	// Dispatcher executes worker tasks (C5). Required.
	Dispatcher WorkerDispatcher

	// Listener observes connection lifecycle and fatal errors (C6).
	// Optional; defaults to a no-op listener if nil.
	Listener EventListener
}

// DefaultConfig returns a Config with the spec's defaults applied, mirroring
// the teacher's own DefaultConfig() constructor style.
func DefaultConfig() *Config {
	return &Config{
		ContentBufferSize: DefaultContentBufferSize,
		WaitForContinue:   DefaultWaitForContinue,
	}
}

// validate enforces §7.5: configuration errors are rejected at construction.
func (c *Config) validate() error {
	if c.ContentBufferSize <= 0 {
		return ErrBadBufferSize
	}
	if c.Dispatcher == nil {
		return ErrNoDispatcher
	}
	if c.Listener == nil {
		c.Listener = NopEventListener{}
	}
	return nil
}
