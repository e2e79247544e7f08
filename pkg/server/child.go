package server

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"

	"github.com/google/uuid"

	"github.com/getlinkd/linkd/pkg/auth"
	"github.com/getlinkd/linkd/pkg/logging"
)

// ChildSession is the entrypoint executed inside a worker process spawned by
// process dispatch. It picks up the connection the parent transferred on
// ConnFD, runs authenticate-serve-teardown synchronously, and returns; the
// worker process should exit immediately afterwards regardless of outcome.
type ChildSession struct {
	// Runner serves the authenticated connection. Required.
	Runner SessionRunner

	// Authenticator gates the connection; authentication re-runs in the
	// child, which owns the only active copy of the socket. Optional.
	Authenticator auth.Authenticator

	// Protocol options merged into the session's config. Optional.
	Protocol map[string]any

	// Logger defaults to a no-op logger.
	Logger *slog.Logger
}

// Run serves the inherited connection to completion. Session failures are
// logged and contained; only a missing or unusable inherited descriptor is
// reported as an error.
func (c *ChildSession) Run() error {
	if c.Runner == nil {
		return fmt.Errorf("session runner is required")
	}
	log := c.Logger
	if log == nil {
		log = logging.Nop()
	}

	// The parent treats interrupts as a shutdown trigger; a session
	// worker keeps the default disposition.
	signal.Reset(os.Interrupt)

	file := os.NewFile(ConnFD, "session")
	if file == nil {
		return fmt.Errorf("no inherited connection on fd %d", ConnFD)
	}
	conn, err := net.FileConn(file)
	file.Close()
	if err != nil {
		return fmt.Errorf("inherited connection: %w", err)
	}

	sess := &session{
		id:            uuid.NewString(),
		authenticator: c.Authenticator,
		runner:        c.Runner,
		protocol:      c.Protocol,
		log:           log,
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("session process panicked", "panic", r)
			_ = conn.Close()
		}
	}()
	sess.run(conn)
	return nil
}
