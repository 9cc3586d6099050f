package ipsc

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Client is the caller side of one connect/send/recv/close cycle: each
// call opens a fresh connection rather than reusing one across calls.
// It never owns a socket file and never unlinks on Close.
type Client struct {
	rawSocket
}

// Connect constructs an endpoint and connects it to the address derived
// from port. A failed connect releases the descriptor before reporting
// failure.
func Connect(port uint16) (*Client, error) {
	fd, err := newStreamSocket()
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}

	c := &Client{rawSocket: rawSocket{fd: fd}}
	if err := unix.Connect(fd, sockaddr(Address(port))); err != nil {
		c.Close()
		return nil, fmt.Errorf("connect: %w", err)
	}
	return c, nil
}

// Close shuts down and releases the client descriptor. Idempotent, and
// safe on a nil receiver.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.closeFd()
}
