package ipsc

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Listener is a server-role endpoint: it owns the on-disk socket file
// for its entire life and unlinks it on Close.
type Listener struct {
	rawSocket
	addr string
	maxq int
}

// Listen constructs, binds (probing a stale-vs-live path on
// EADDRINUSE), clamps the backlog, and enters the listening state.
func Listen(port uint16, maxq int) (*Listener, error) {
	addr := Address(port)

	fd, err := newStreamSocket()
	if err != nil {
		return nil, fmt.Errorf("%w: socket: %v", ErrListenSetup, err)
	}
	l := &Listener{rawSocket: rawSocket{fd: fd}, addr: addr}

	if err := bindOrReclaim(l, addr); err != nil {
		// Not bound, so the path is not ours: release the descriptor
		// without unlinking.
		l.closeFd()
		return nil, err
	}

	if maxq < 1 || maxq > MaxQueue {
		maxq = DefaultQueue
	}
	l.maxq = maxq

	if err := unix.Listen(fd, maxq); err != nil {
		l.Close()
		return nil, fmt.Errorf("%w: listen: %v", ErrListenSetup, err)
	}

	return l, nil
}

// bindOrReclaim tries bind; on EADDRINUSE it probes the path with
// connect to tell a live owner from a stale socket file.
func bindOrReclaim(l *Listener, addr string) error {
	err := unix.Bind(l.fd, sockaddr(addr))
	if err == nil {
		return nil
	}
	if err != unix.EADDRINUSE {
		return fmt.Errorf("%w: bind: %v", ErrListenSetup, err)
	}

	probeErr := unix.Connect(l.fd, sockaddr(addr))
	if probeErr == nil {
		// Somebody is alive and listening; this fd is now connected to
		// them, which leaves it useless for binding. Give up cleanly.
		return ErrInUse
	}

	// Stale: nobody home. Remove the orphaned path and retry once.
	unix.Unlink(addr)
	if err := unix.Bind(l.fd, sockaddr(addr)); err != nil {
		return fmt.Errorf("%w: bind retry: %v", ErrListenSetup, err)
	}
	return nil
}

// MaxQueue reports the clamped backlog this listener was bound with.
func (l *Listener) MaxQueue() int { return l.maxq }

// Addr returns the filesystem path this listener is bound to.
func (l *Listener) Addr() string { return l.addr }

// Accept drains one pending connection. On a non-blocking listener, a
// would-block result is reported as ErrWouldBlock so the event loop can
// treat it as "acceptance queue drained" rather than an error.
func (l *Listener) Accept() (*Connection, error) {
	connFd, _, err := unix.Accept(l.fd)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return nil, ErrWouldBlock
		}
		return nil, err
	}
	return &Connection{rawSocket: rawSocket{fd: connFd}}, nil
}

// Close shuts down and releases the listening descriptor, then unlinks
// the bound socket file. Idempotent, and safe on a nil receiver.
func (l *Listener) Close() error {
	if l == nil {
		return nil
	}
	err := l.closeFd()
	unix.Unlink(l.addr)
	return err
}
