package server

import "net"

// dispatcher decides how a session runs concurrently with the accept loop.
// dispatch must return promptly; the session's authenticate-serve-teardown
// runs elsewhere, exactly once per connection.
type dispatcher interface {
	dispatch(conn net.Conn, id string)
	close() error
}

// workerDispatcher runs each session on its own detached goroutine. A
// session failure never reaches the accept loop: errors are handled inside
// the session and panics are caught at the goroutine boundary.
type workerDispatcher struct {
	s *Server
}

func (d *workerDispatcher) dispatch(conn net.Conn, id string) {
	sess := d.s.newSession(id)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.s.log.Error("session worker panicked", "session", id, "panic", r)
				_ = conn.Close()
				d.s.removeClient(conn)
			}
		}()
		sess.run(conn)
	}()
}

func (d *workerDispatcher) close() error { return nil }

// ProcessCommand names the worker executable spawned per connection by
// process dispatch. An empty Path means the current executable; Args should
// select its session-serving entrypoint. The accepted connection is
// inherited by the child as file descriptor ConnFD.
type ProcessCommand struct {
	Path string
	Args []string

	// Env entries are appended to the parent's environment for the
	// worker process.
	Env []string
}

// ConnFD is the file descriptor number at which a session worker process
// finds its inherited connection (the first ExtraFiles slot).
const ConnFD = 3
