package jrpc

import (
	"encoding/json"
	"errors"

	"github.com/advem/ipsc-go/ipsc"
	"github.com/advem/ipsc-go/internal/logging"
	"github.com/google/uuid"
)

// Dispatch decodes one request off conn, validates protocol fields,
// routes to the matching method's handler chain, and writes back a
// reply. It never returns a transport-killing error for a
// protocol-level problem — those are converted into a reply and
// logged; the returned error is only set when the connection itself
// could not be written to.
func Dispatch(conn *ipsc.Connection, mode Mode, table Table, timeoutMs int, log logging.Logger) error {
	if log == nil {
		log = logging.Nop{}
	}
	corrID := uuid.NewString()

	raw, err := Decode(conn, timeoutMs)
	if err != nil {
		log.Warnf("jrpc[%s]: decode: %v", corrID, err)
		if errors.Is(err, ErrTooLarge) {
			return writeReply(conn, NewError(mode, nil, CodeInvalidRequest, msgInvalidRequest))
		}
		return writeReply(conn, NewError(mode, nil, CodeParseError, msgParseError))
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		log.Warnf("jrpc[%s]: request is not a JSON object: %v", corrID, err)
		return writeReply(conn, NewError(mode, nil, CodeParseError, msgParseError))
	}

	id := doc["id"] // nil when absent, []byte("null") when explicit null

	if mode == Strict {
		if !isStrictVersion(doc["jsonrpc"]) {
			log.Warnf("jrpc[%s]: bad or missing jsonrpc version", corrID)
			return writeReply(conn, NewError(mode, id, CodeInvalidRequest, msgInvalidRequest))
		}
	}

	method, ok := unpackString(doc["method"])
	if !ok || method == "" {
		log.Warnf("jrpc[%s]: missing or non-string method", corrID)
		return writeReply(conn, NewError(mode, id, CodeInvalidRequest, msgInvalidRequest))
	}

	entry, found := table.Lookup(method)
	if !found {
		log.Debugf("jrpc[%s]: method not found: %s", corrID, method)
		return writeReply(conn, NewError(mode, id, CodeMethodNotFound, msgMethodNotFound))
	}

	params, hasParams := doc["params"]

	switch entry.Params {
	case ParamsRequired:
		if !hasParams {
			log.Warnf("jrpc[%s]: %s: missing required params", corrID, method)
			return writeReply(conn, NewError(mode, id, CodeInvalidParams, msgInvalidParams))
		}
	case ParamsNone:
		params = nil
	case ParamsOptional:
		// present or absent, either is fine
	}

	if len(entry.Handlers) == 0 || entry.Handlers[0] == nil {
		log.Warnf("jrpc[%s]: %s: empty handler chain", corrID, method)
		return writeReply(conn, NewError(mode, id, CodeNotImplemented, msgNotImplemented))
	}

	for _, h := range entry.Handlers {
		switch h(conn, params, id) {
		case Replied:
			return nil
		case InternalError:
			log.Errorf("jrpc[%s]: %s: handler reported internal error", corrID, method)
			return writeReply(conn, NewError(mode, id, CodeInternalError, msgInternalError))
		case Continue:
			continue
		}
	}

	// Every handler in the chain returned Continue without replying:
	// treat the method as unimplemented rather than leaving the caller
	// hanging (mirrors the original's "first handler is NULL" check,
	// generalized to "nobody in the chain actually answered").
	log.Warnf("jrpc[%s]: %s: handler chain exhausted without a reply", corrID, method)
	return writeReply(conn, NewError(mode, id, CodeNotImplemented, msgNotImplemented))
}

func writeReply(conn *ipsc.Connection, reply Reply) error {
	return Encode(conn, reply)
}

func isStrictVersion(raw json.RawMessage) bool {
	v, ok := unpackString(raw)
	return ok && v == Version
}

func unpackString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
