//go:build unix

package server

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/signal"

	"golang.org/x/sys/unix"
)

const processDispatchSupported = true

// processDispatcher spawns an isolated worker process per connection. Go has
// no fork primitive, so isolation is emulated by re-executing a worker
// command with the accepted connection transferred as an inherited
// descriptor; the child authenticates and serves it synchronously.
//
// Children are never waited on inline. A SIGCHLD-driven reaper collects all
// exited children in a non-blocking drain loop, because exit notifications
// coalesce under bursts.
type processDispatcher struct {
	s    *Server
	cmd  ProcessCommand
	sig  chan os.Signal
	done chan struct{}
}

func newProcessDispatcher(s *Server, cmd ProcessCommand) (*processDispatcher, error) {
	if cmd.Path == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve worker executable: %w", err)
		}
		cmd.Path = exe
	}

	d := &processDispatcher{
		s:    s,
		cmd:  cmd,
		sig:  make(chan os.Signal, 1),
		done: make(chan struct{}),
	}
	signal.Notify(d.sig, unix.SIGCHLD)
	go d.reap()
	return d, nil
}

// reap drains every currently-exited child on each SIGCHLD, then re-arms by
// returning to the channel receive.
func (d *processDispatcher) reap() {
	for {
		select {
		case <-d.done:
			return
		case <-d.sig:
			for {
				var status unix.WaitStatus
				pid, err := unix.Wait4(-1, &status, unix.WNOHANG, nil)
				if pid <= 0 || err != nil {
					break
				}
				d.s.log.Debug("session process reaped", "pid", pid)
			}
		}
	}
}

func (d *processDispatcher) dispatch(conn net.Conn, id string) {
	// The parent's copy of the socket is closed on every path out; the
	// child owns the only active copy after a successful spawn.
	defer func() {
		_ = conn.Close()
		d.s.removeClient(conn)
	}()

	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		d.s.log.Error("process dispatch requires a TCP connection",
			"session", id, "type", fmt.Sprintf("%T", conn))
		return
	}
	file, err := tcp.File()
	if err != nil {
		d.s.log.Error("duplicating connection descriptor failed",
			"session", id, "error", err)
		return
	}
	defer file.Close()

	cmd := exec.Command(d.cmd.Path, d.cmd.Args...)
	if len(d.cmd.Env) > 0 {
		cmd.Env = append(os.Environ(), d.cmd.Env...)
	}
	cmd.ExtraFiles = []*os.File{file} // ConnFD in the child
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		d.s.log.Error("spawning session process failed",
			"session", id, "error", err)
		return
	}

	d.s.log.Debug("session process started", "session", id, "pid", cmd.Process.Pid)
	// The reaper collects the exit status; drop our handle so nothing
	// blocks on it.
	_ = cmd.Process.Release()
}

// close releases the SIGCHLD subscription installed at construction.
func (d *processDispatcher) close() error {
	signal.Stop(d.sig)
	close(d.done)
	return nil
}
