package ipsc

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// rawSocket wraps a single AF_UNIX stream descriptor and the primitives
// every endpoint flavor shares: non-blocking toggle, receive-timeout
// socket option, send-all, recv-with-timeout, and descriptor release.
// Listener, Connection, and Client each embed rawSocket instead of
// sharing one struct with a role flag, so nothing downstream ever has
// to branch on "am I a server-side or client-side descriptor."
type rawSocket struct {
	fd     int
	closed bool
}

func (r *rawSocket) Fd() int { return r.fd }

// SetNonBlock toggles O_NONBLOCK on the descriptor.
func (r *rawSocket) SetNonBlock(nonblock bool) error {
	return unix.SetNonblock(r.fd, nonblock)
}

// SetRecvTimeout installs SO_RCVTIMEO in milliseconds. A zero timeout
// means "block" under the usual socket semantics; RecvTimeout treats the
// resulting EAGAIN as a retry rather than a terminal failure in that case.
func (r *rawSocket) SetRecvTimeout(timeoutMs int) error {
	tv := unix.NsecToTimeval(int64(timeoutMs) * int64(time.Millisecond))
	return unix.SetsockoptTimeval(r.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
}

// SendAll writes buf in full, looping past EAGAIN/EWOULDBLOCK/EINTR.
// MSG_NOSIGNAL keeps a peer-closed write from raising SIGPIPE; the
// failure surfaces to the caller as an ordinary error instead.
func (r *rawSocket) SendAll(buf []byte) error {
	sent := 0
	for sent < len(buf) {
		n, err := unix.Sendto(r.fd, buf[sent:], unix.MSG_NOSIGNAL, nil)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
				continue
			}
			return fmt.Errorf("%w: %v", ErrSendFailed, err)
		}
		if n == 0 {
			return ErrSendFailed
		}
		sent += n
	}
	return nil
}

// RecvTimeout sets the receive timeout to timeoutMs then reads into buf,
// retrying would-block (only when timeoutMs == 0, i.e. "block forever")
// and interrupted calls, until at least one byte has arrived. Any other
// error, or a zero-byte read meaning orderly shutdown by the peer, is
// terminal and returned to the caller.
func (r *rawSocket) RecvTimeout(buf []byte, timeoutMs int) (int, error) {
	if err := r.SetRecvTimeout(timeoutMs); err != nil {
		return 0, err
	}

	for {
		n, err := unix.Read(r.fd, buf)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if (err == unix.EAGAIN || err == unix.EWOULDBLOCK) && timeoutMs == 0 {
				continue
			}
			return 0, fmt.Errorf("%w: %v", ErrRecvFailed, err)
		}
		return n, nil
	}
}

func (r *rawSocket) closeFd() error {
	if r.closed || r.fd < 0 {
		return nil
	}
	r.closed = true
	unix.Shutdown(r.fd, unix.SHUT_RDWR)
	return unix.Close(r.fd)
}

func newStreamSocket() (int, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}
	return fd, nil
}

func sockaddr(path string) *unix.SockaddrUnix {
	return &unix.SockaddrUnix{Name: path}
}
