package jrpc

import (
	"encoding/json"

	"github.com/advem/ipsc-go/ipsc"
)

// ParamsMode is a method-table entry's parameter requirement.
type ParamsMode int

const (
	// ParamsRequired rejects the call with CodeInvalidParams when
	// "params" is absent.
	ParamsRequired ParamsMode = iota
	// ParamsOptional accepts the call with or without "params".
	ParamsOptional
	// ParamsNone ignores any "params" present.
	ParamsNone
)

// Outcome is a handler's verdict: an explicit enum in place of a
// zero/positive/negative int return.
type Outcome int

const (
	// Continue means "no opinion, try the next handler in the chain."
	Continue Outcome = iota
	// Replied means the handler already wrote a reply on the
	// connection; the dispatcher stops the chain without touching it.
	Replied
	// InternalError means the handler failed; the dispatcher emits
	// CodeInternalError on its behalf and stops the chain.
	InternalError
)

// Handler is one link of a method's handler chain. It receives the
// connection (to write its own reply when it returns Replied), the
// params value (nil when absent), and the request id (for building a
// reply if the handler does so itself).
type Handler func(conn *ipsc.Connection, params json.RawMessage, id json.RawMessage) Outcome

// Method is one method-table entry: a name matched by exact equality, a
// params mode, and an ordered non-empty handler chain. A method with an
// empty chain reports CodeNotImplemented.
type Method struct {
	Name     string
	Params   ParamsMode
	Handlers []Handler
}

// Table is the embedder-supplied ordered list of methods. Lookup is
// first-match, in declaration order.
type Table []Method

// Lookup returns the first entry whose Name matches name exactly, and
// whether one was found.
func (t Table) Lookup(name string) (Method, bool) {
	for _, m := range t {
		if m.Name == name {
			return m, true
		}
	}
	return Method{}, false
}
