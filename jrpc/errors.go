package jrpc

// Standard JSON-RPC 2.0 error codes as defined in the specification,
// plus a library extension for a matched-but-unimplemented method.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	// CodeNotImplemented is library-defined, chosen outside the
	// JSON-RPC-reserved range.
	CodeNotImplemented = -32000
)

const (
	msgParseError     = "Parse error"
	msgInvalidRequest = "Invalid Request"
	msgMethodNotFound = "Method not found"
	msgInvalidParams  = "Invalid params"
	msgInternalError  = "Internal error"
	msgNotImplemented = "Not implemented"
)

// MaxMessageSize caps the inbound document buffer. A decode that would
// exceed this is reported as CodeInvalidRequest rather than allowed to
// grow without bound.
const MaxMessageSize = 10 * 1024 * 1024

// DefaultRecvBuf is the initial receive buffer size, doubled whenever
// fewer than two bytes of headroom remain (the last growth stops at
// MaxMessageSize plus that headroom).
const DefaultRecvBuf = 4096

// IdleTimeoutMillis is the timeout substituted after the first byte of
// a message has arrived, so the codec ends the read loop on short idle
// instead of waiting for the peer to close.
const IdleTimeoutMillis = 10
