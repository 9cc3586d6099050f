package jrpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Receiver is the read half a codec needs: recv-with-timeout over a
// stream, satisfied by both *ipsc.Connection and *ipsc.Client.
type Receiver interface {
	RecvTimeout(buf []byte, timeoutMs int) (int, error)
}

// Sender is the write half: send-all over a stream.
type Sender interface {
	SendAll(buf []byte) error
}

var (
	// ErrEmptyRead means fewer than two bytes ever arrived, too little
	// for any JSON document; the whole read is treated as empty.
	ErrEmptyRead = errors.New("jrpc: empty read")
	// ErrDecode means the accumulated buffer did not parse as a single
	// JSON document.
	ErrDecode = errors.New("jrpc: decode error")
	// ErrTooLarge means the inbound document exceeded MaxMessageSize
	// before a full message ever parsed.
	ErrTooLarge = errors.New("jrpc: message too large")
	// ErrEncodeEmpty means json.Marshal produced zero bytes, which the
	// original treats as a generic send failure rather than sending
	// nothing.
	ErrEncodeEmpty = errors.New("jrpc: empty serialization")
)

// Decode frames one JSON document off r: read until the peer goes idle
// within the current timeout window, growing the buffer geometrically,
// then parse the accumulated bytes as a single JSON value. The
// effective timeout drops to IdleTimeoutMillis after the first byte
// arrives, so the read loop ends on short idle rather than peer close.
func Decode(r Receiver, timeoutMs int) (json.RawMessage, error) {
	buf := make([]byte, DefaultRecvBuf)
	rb := 0
	timeout := timeoutMs

	for {
		n, err := r.RecvTimeout(buf[rb:], timeout)
		if err != nil {
			// A terminal recv error after some bytes have already
			// arrived is treated as "done reading" by the original;
			// only report it if nothing at all came through.
			if rb == 0 {
				return nil, fmt.Errorf("%w: %v", ErrRecvFailed, err)
			}
			break
		}
		if n == 0 {
			break
		}

		timeout = IdleTimeoutMillis
		rb += n
		if rb > MaxMessageSize {
			return nil, ErrTooLarge
		}

		if rb > len(buf)-2 {
			size := len(buf) * 2
			if size > MaxMessageSize+2 {
				size = MaxMessageSize + 2
			}
			grown := make([]byte, size)
			copy(grown, buf)
			buf = grown
		}
	}

	if rb < 2 {
		return nil, ErrEmptyRead
	}

	buf = buf[:rb]
	if !json.Valid(buf) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrDecode)
	}
	return json.RawMessage(buf), nil
}

// ErrRecvFailed wraps a terminal transport error seen before any bytes
// arrived. Defined here (not in ipsc) because the codec is the layer
// that decides a partial read is not itself a failure.
var ErrRecvFailed = errors.New("jrpc: recv failed")

// Encode serializes v and writes it through s in full.
func Encode(s Sender, v interface{}) error {
	content, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("jrpc: marshal: %w", err)
	}
	if len(content) == 0 {
		return ErrEncodeEmpty
	}
	return s.SendAll(content)
}
