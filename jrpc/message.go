// Package jrpc implements the JSON-RPC 2.0 framing, dispatch, and
// client-call layer: a message codec over an ipsc.Connection/ipsc.Client,
// a method-table dispatcher, and a one-shot client request primitive.
package jrpc

import "encoding/json"

// Version is the wire value of the "jsonrpc" field in strict mode.
const Version = "2.0"

// Mode selects the protocol dialect a Server or Call speaks.
type Mode int

const (
	// Strict is full JSON-RPC 2.0: every document carries "jsonrpc":"2.0".
	Strict Mode = iota
	// Lite omits the version field entirely, for minimal-overhead
	// internal use between trusted endpoints.
	Lite
)

// Request is the wire shape of a request document. ID is kept as raw
// JSON so it can be echoed back byte-for-byte regardless of its JSON
// type (integer, string, null, object), and so its *absence* (nil) is
// distinguishable from an explicit JSON null (non-nil RawMessage
// containing the four bytes "null").
type Request struct {
	Jsonrpc string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// HasMethod reports whether "method" decoded as a non-empty string.
// json.RawMessage round-tripping can't tell "missing" from "empty
// string" once collapsed to a Go string, so callers needing that
// distinction should inspect the raw "method" member of the decoded
// document instead; Dispatch does exactly that.
func (r *Request) HasMethod() bool { return r.Method != "" }

// Reply is the wire shape of a reply document. Exactly one of Result or
// Error is set by construction (NewResult / NewError below); ID is
// always emitted, even when the originating request had none, as a
// JSON null.
type Reply struct {
	Jsonrpc string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *WireError      `json:"error,omitempty"`
}

// WireError is the JSON-RPC error object: integer code, string message.
type WireError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

var nullID = json.RawMessage("null")

// echoID returns id verbatim, or a JSON null when id is absent/empty.
func echoID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return nullID
	}
	return id
}

func newReply(mode Mode, id json.RawMessage) Reply {
	rep := Reply{ID: echoID(id)}
	if mode == Strict {
		rep.Jsonrpc = Version
	}
	return rep
}

// NewResult builds a success reply carrying result as the wire "result"
// value. result must already be valid JSON (typically json.RawMessage
// produced by a handler, or json.Marshal'd by the caller).
func NewResult(mode Mode, id json.RawMessage, result json.RawMessage) Reply {
	rep := newReply(mode, id)
	if result == nil {
		result = json.RawMessage("null")
	}
	rep.Result = result
	return rep
}

// NewError builds an error reply with the given code and message.
func NewError(mode Mode, id json.RawMessage, code int, message string) Reply {
	rep := newReply(mode, id)
	rep.Error = &WireError{Code: code, Message: message}
	return rep
}
