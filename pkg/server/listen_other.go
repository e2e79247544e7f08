//go:build !unix

package server

import "syscall"

// SO_REUSEADDR has surprising semantics on non-unix platforms; leave the
// default in place there.
func reuseAddrControl(network, address string, c syscall.RawConn) error {
	return nil
}
