//go:build unix

package server

import (
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// processTestServer builds a server whose session workers are this test
// binary re-executed in child mode (see TestMain).
func processTestServer(t *testing.T) *Server {
	t.Helper()
	exe, err := os.Executable()
	require.NoError(t, err)
	return newTestServer(t, EchoRunner(), WithProcessDispatch(ProcessCommand{
		Path: exe,
		Env:  []string{"LINKD_TEST_SESSION_CHILD=1"},
	}))
}

func TestProcessDispatchServesThroughChild(t *testing.T) {
	t.Parallel()
	srv := processTestServer(t)
	startServer(t, srv)

	conn := dial(t, srv)
	require.NoError(t, conn.SetDeadline(time.Now().Add(10*time.Second)))

	_, err := conn.Write([]byte("ping"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	n, err := conn.Read(buf)
	require.NoError(t, err, "child process did not serve the connection")
	assert.Equal(t, "ping", string(buf[:n]))

	// The parent handed its copy off: the registry does not track child
	// sessions.
	assert.Eventually(t, func() bool { return srv.ClientCount() == 0 },
		5*time.Second, 10*time.Millisecond)
}

func TestProcessDispatchIsolatesSessions(t *testing.T) {
	t.Parallel()
	srv := processTestServer(t)
	startServer(t, srv)

	first := dial(t, srv)
	second := dial(t, srv)
	for _, conn := range []net.Conn{first, second} {
		require.NoError(t, conn.SetDeadline(time.Now().Add(10*time.Second)))
	}

	// Abort the first session mid-stream; the second keeps working.
	_, err := first.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	_, err = second.Write([]byte("pong"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	n, err := second.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(buf[:n]))
}

func TestProcessDispatchSurvivesSpawnFailure(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, EchoRunner(), WithProcessDispatch(ProcessCommand{
		Path: "/nonexistent/linkd-session-worker",
	}))
	startServer(t, srv)

	// Spawn fails; the connection is closed and dropped, and the server
	// keeps accepting.
	conn := dial(t, srv)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	buf := make([]byte, 1)
	_, err := conn.Read(buf)
	assert.Error(t, err, "connection should be closed after spawn failure")

	assert.Eventually(t, func() bool { return srv.ClientCount() == 0 },
		5*time.Second, 10*time.Millisecond)
	assert.True(t, srv.Active())
}

func TestChildSessionRequiresRunner(t *testing.T) {
	t.Parallel()
	cs := &ChildSession{}
	err := cs.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "runner")
}
