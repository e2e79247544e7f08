//go:build unix

package registry

import (
	"net"

	"golang.org/x/sys/unix"
)

// enableBroadcast allows the socket to send to broadcast addresses, which the
// default registry address is.
func enableBroadcast(conn net.Conn) error {
	udp, ok := conn.(*net.UDPConn)
	if !ok {
		return nil
	}
	raw, err := udp.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	if err := raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	}); err != nil {
		return err
	}
	return sockErr
}
