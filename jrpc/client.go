package jrpc

import (
	"encoding/json"
	"fmt"

	"github.com/advem/ipsc-go/ipsc"
)

// CallRequest pairs one outgoing request with the expectation of
// exactly one reply on the same connection.
type CallRequest struct {
	Port          uint16
	Method        string
	Params        json.RawMessage // optional; nil means absent
	ID            json.RawMessage // caller's id; nil is a JSON null
	RecvTimeoutMs int
	Mode          Mode
}

// ClientOutcome classifies a successfully-decoded reply. A
// transport/decode failure never produces an Outcome — it surfaces as
// an error from Call instead.
type ClientOutcome int

const (
	// Success means the reply carried a "result" (possibly JSON null,
	// which is itself a valid result).
	Success ClientOutcome = iota
	// NoResult means "result" was absent but "error" was present; Reply
	// holds the error object's raw bytes so the caller can inspect it.
	NoResult
	// UserError means neither "result" nor "error" was present.
	UserError
)

// CallResult is what Call hands back: the classified outcome and the
// corresponding payload (the result value, or the error object's raw
// bytes for NoResult, or nil for UserError).
type CallResult struct {
	Outcome ClientOutcome
	Reply   json.RawMessage
}

// Call opens a client endpoint, builds and sends a request document,
// reads exactly one reply, classifies it, and closes. Every resource
// acquired is released regardless of outcome; resources never acquired
// are simply left nil, so there's never a release call on a handle that
// was never assigned.
func Call(req CallRequest) (CallResult, error) {
	conn, err := ipsc.Connect(req.Port)
	if err != nil {
		return CallResult{}, fmt.Errorf("jrpc: connect: %w", err)
	}
	defer conn.Close()

	wire := Request{
		ID:     echoID(req.ID),
		Method: req.Method,
		Params: req.Params,
	}
	if req.Mode == Strict {
		wire.Jsonrpc = Version
	}

	if err := Encode(conn, wire); err != nil {
		return CallResult{}, fmt.Errorf("jrpc: send: %w", err)
	}

	raw, err := Decode(conn, req.RecvTimeoutMs)
	if err != nil {
		return CallResult{}, fmt.Errorf("jrpc: recv: %w", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return CallResult{}, fmt.Errorf("jrpc: reply is not a JSON object: %w", err)
	}

	if result, ok := doc["result"]; ok {
		return CallResult{Outcome: Success, Reply: result}, nil
	}
	if errObj, ok := doc["error"]; ok {
		return CallResult{Outcome: NoResult, Reply: errObj}, nil
	}
	return CallResult{Outcome: UserError}, nil
}
