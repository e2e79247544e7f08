package server

import "errors"

// Sentinel errors for server lifecycle operations.
var (
	// ErrServerClosed is returned by the accept path once the listener is
	// closed or hits a non-retryable error. It terminates the accept loop
	// into the shutdown path; Start reports it as a clean exit.
	ErrServerClosed = errors.New("server closed")

	// ErrAlreadyStarted is returned by Start on a server whose accept
	// loop is already running.
	ErrAlreadyStarted = errors.New("server already started")

	// ErrProcessDispatchUnsupported is returned at construction when
	// isolated-process dispatch is requested on a platform without
	// process isolation support.
	ErrProcessDispatchUnsupported = errors.New("process dispatch not supported on this platform")
)
