// Package server implements the connection lifecycle of an RPC service: a
// TCP accept loop, an authentication gate, pluggable dispatch of each
// authenticated connection to its session runner, a background registry
// heartbeat, and an idempotent shutdown that leaves no dangling sockets,
// goroutines, processes, or registry entries.
//
// The RPC protocol itself is out of scope: a SessionRunner is handed the
// authenticated connection and runs it to completion. Two dispatch strategies
// are available: a goroutine per connection (the default), and an isolated
// child process per connection on platforms that support it.
//
// # Usage
//
//	srv, err := server.New(service.NewInfo("calculator"), runner,
//	    server.WithAddress("0.0.0.0", 18812),
//	    server.WithAuthenticator(auth.NewTokenAuthenticator(key)),
//	)
//	if err != nil {
//	    return err
//	}
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	return srv.Start(ctx) // blocks; interrupt shuts down cleanly
package server
