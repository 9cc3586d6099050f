//go:build linux

package ipsc

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"
)

// pollInterval bounds how long a single EpollWait call blocks, so Loop.Run
// can notice context cancellation without a dedicated wakeup pipe.
const pollInterval = 200 * time.Millisecond

// Handler processes one readable connection. A non-nil error closes the
// connection.
type Handler func(*Connection) error

// Loop is the edge-triggered multiplexer: one listening endpoint plus
// the connections it has accepted, watched through epoll(7) in EPOLLET
// mode. Each ready connection is fully drained by a single Handler
// invocation (the codec already reads to idle before returning), so the
// loop carries no mandatory inter-iteration sleep — InterPollSleep is an
// opt-in debug knob, not a default behavior.
type Loop struct {
	epfd     int
	listener *Listener
	conns    map[int32]*Connection
	limiter  *rate.Limiter

	// InterPollSleep, if non-zero, is slept after every Iteration. A
	// fixed sleep here bounds CPU use against an oscillating
	// edge-triggered set, but it's a hazard-mitigation rather than a
	// cure, so it's kept as a configurable debug knob instead of a
	// default behavior. Defaults to zero (disabled).
	InterPollSleep time.Duration
}

// NewLoop constructs the multiplexer over an already-listening endpoint,
// putting it in non-blocking mode and registering it so its readiness
// events are distinguishable from accepted-connection events.
func NewLoop(listener *Listener, limiter *rate.Limiter) (*Loop, error) {
	if err := listener.SetNonBlock(true); err != nil {
		return nil, fmt.Errorf("ipsc: set listener non-blocking: %w", err)
	}

	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, fmt.Errorf("ipsc: epoll_create1: %w", err)
	}

	l := &Loop{
		epfd:     epfd,
		listener: listener,
		conns:    make(map[int32]*Connection),
		limiter:  limiter,
	}

	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLET, Fd: int32(listener.Fd())}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, listener.Fd(), &ev); err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("ipsc: register listener: %w", err)
	}

	return l, nil
}

// Close tears down the epoll instance and every still-open accepted
// connection. It does not close the listener, which the caller owns.
func (l *Loop) Close() error {
	for fd, c := range l.conns {
		c.Close()
		delete(l.conns, fd)
	}
	return unix.Close(l.epfd)
}

// Run repeatedly iterates the multiplexer until ctx is done. The caller
// supplies the execution context this runs on; spawning a goroutine for
// it is the embedder's responsibility, not this library's.
func (l *Loop) Run(ctx context.Context, onData Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := l.Iteration(ctx, onData, int(pollInterval/time.Millisecond)); err != nil {
			return err
		}

		if l.InterPollSleep > 0 {
			time.Sleep(l.InterPollSleep)
		}
	}
}

// Iteration waits up to timeoutMs for readiness events (maxq of them at
// most) and dispatches each: acceptance events are drained in a loop,
// hangup/error events close their connection, and readable events invoke
// onData.
func (l *Loop) Iteration(ctx context.Context, onData Handler, timeoutMs int) error {
	events := make([]unix.EpollEvent, l.listener.MaxQueue())

	n, err := unix.EpollWait(l.epfd, events, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return fmt.Errorf("ipsc: epoll_wait: %w", err)
	}

	for i := 0; i < n; i++ {
		ev := events[i]

		if ev.Fd == int32(l.listener.Fd()) {
			l.drainAccepts(ctx)
			continue
		}

		conn, ok := l.conns[ev.Fd]
		if !ok {
			continue
		}

		if ev.Events&(unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			l.closeConn(ev.Fd, conn)
			continue
		}

		if ev.Events&unix.EPOLLIN != 0 {
			if err := onData(conn); err != nil {
				l.closeConn(ev.Fd, conn)
			}
		}
	}

	return nil
}

// drainAccepts calls Accept until the queue is empty, registering every
// successfully accepted connection with the epoll set. A rate limiter,
// when configured, caps how many connections are admitted per drain
// pass; excess pending connections are left for the next readiness
// event.
func (l *Loop) drainAccepts(ctx context.Context) {
	for {
		if l.limiter != nil && !l.limiter.Allow() {
			return
		}

		conn, err := l.listener.Accept()
		if err != nil {
			return
		}

		if err := conn.SetNonBlock(true); err != nil {
			conn.Close()
			continue
		}

		ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLET, Fd: int32(conn.Fd())}
		if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_ADD, conn.Fd(), &ev); err != nil {
			conn.Close()
			continue
		}

		l.conns[int32(conn.Fd())] = conn
	}
}

func (l *Loop) closeConn(fd int32, conn *Connection) {
	delete(l.conns, fd)
	conn.Close()
}
