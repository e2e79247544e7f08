// Package service defines the identity of an RPC service as seen by the
// connection server and the discovery registry.
package service

import "strings"

// Identity describes a served RPC service. The server uses it for logging
// and for registrar calls; it is immutable for the server's lifetime.
type Identity interface {
	// Name returns the primary service name.
	Name() string

	// Aliases returns all names the service is advertised under,
	// including the primary name.
	Aliases() []string
}

// Info is a ready-made Identity backed by static values.
type Info struct {
	name    string
	aliases []string
}

// NewInfo creates an Info for the given service name. The name is always the
// first alias; extra aliases are advertised in addition to it. Names are
// normalized to upper case, matching discovery registry conventions.
func NewInfo(name string, aliases ...string) *Info {
	all := make([]string, 0, len(aliases)+1)
	all = append(all, strings.ToUpper(name))
	for _, a := range aliases {
		a = strings.ToUpper(a)
		if a != all[0] {
			all = append(all, a)
		}
	}
	return &Info{name: all[0], aliases: all}
}

// Name returns the primary service name.
func (i *Info) Name() string { return i.name }

// Aliases returns a copy of the advertised names.
func (i *Info) Aliases() []string {
	out := make([]string, len(i.aliases))
	copy(out, i.aliases)
	return out
}
