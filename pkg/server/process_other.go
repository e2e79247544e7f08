//go:build !unix

package server

const processDispatchSupported = false

func newProcessDispatcher(s *Server, cmd ProcessCommand) (dispatcher, error) {
	return nil, ErrProcessDispatchUnsupported
}
