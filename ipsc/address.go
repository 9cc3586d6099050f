// Package ipsc implements the local-socket transport: AF_UNIX stream
// endpoints rendezvousing on a filesystem path derived from a port tag,
// plus an edge-triggered event loop built over them.
package ipsc

import "fmt"

// MaxQueue is the hard ceiling a listener's backlog is clamped to.
const MaxQueue = 128

// DefaultQueue is substituted when a caller-supplied backlog falls
// outside [1, MaxQueue].
const DefaultQueue = 16

// socketPattern is the compile-time format shared by server and client;
// both must render it identically for the two sides to rendezvous.
const socketPattern = "/tmp/ipsc.%d.sock"

// Address returns the filesystem path a port tag binds to. Client and
// server derive the same path from the same port.
func Address(port uint16) string {
	return fmt.Sprintf(socketPattern, port)
}
