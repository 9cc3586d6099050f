package ipsc

import "errors"

// Transport-level failures. These never carry JSON-RPC semantics; they
// are plain socket-lifecycle errors.
var (
	ErrInUse       = errors.New("ipsc: address in use by a live server")
	ErrClosed      = errors.New("ipsc: endpoint closed")
	ErrWouldBlock  = errors.New("ipsc: accept would block")
	ErrBadAddress  = errors.New("ipsc: empty peer address")
	ErrSendFailed  = errors.New("ipsc: send failed")
	ErrRecvFailed  = errors.New("ipsc: recv failed")
	ErrListenSetup = errors.New("ipsc: listen setup failed")
)
