// Package registry provides the discovery-registry boundary: registering a
// served service's aliases and port so clients can find it, and the default
// UDP broadcast client used when no registrar is supplied.
//
// The registry's wire protocol is deliberately thin; everything here is
// best-effort and non-fatal to the server using it.
package registry

import "time"

// DefaultPort is the UDP port registry servers conventionally listen on.
const DefaultPort = 18811

// DefaultReregisterInterval is how often a server should re-advertise itself.
// Registry servers prune entries that miss a few intervals.
const DefaultReregisterInterval = 60 * time.Second

// Registrar advertises a service to a discovery registry. Both operations are
// independently fallible; callers treat failures as non-fatal.
type Registrar interface {
	// Register advertises the given aliases as reachable on port.
	Register(aliases []string, port int) error

	// Unregister withdraws the advertisement for port.
	Unregister(port int) error

	// ReregisterInterval returns the cadence at which Register should be
	// re-invoked to keep the advertisement alive.
	ReregisterInterval() time.Duration
}
