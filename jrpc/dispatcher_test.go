package jrpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/advem/ipsc-go/internal/logging"
	"github.com/advem/ipsc-go/ipsc"
)

// dialedPair binds a real listener on an ephemeral-ish test port, dials
// it once, and accepts the resulting connection, giving a test a real
// *ipsc.Connection/*ipsc.Client pair to run Dispatch/Call over. Using
// the actual socket layer here (rather than a fake Receiver/Sender)
// keeps these tests exercising the same Decode/Dispatch path a real
// server does.
func dialedPair(t *testing.T, port uint16) (*ipsc.Connection, *ipsc.Client) {
	t.Helper()

	l, err := ipsc.Listen(port, 4)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	client, err := ipsc.Connect(port)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	server, err := l.Accept()
	require.NoError(t, err)
	t.Cleanup(func() { server.Close() })

	return server, client
}

func readReply(t *testing.T, client *ipsc.Client) map[string]json.RawMessage {
	t.Helper()
	raw, err := Decode(client, 1000)
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	return doc
}

func TestDispatch_PingRoundTrip(t *testing.T) {
	server, client := dialedPair(t, 47001)

	table := Table{
		{Name: "ping", Params: ParamsNone, Handlers: []Handler{
			func(conn *ipsc.Connection, params json.RawMessage, id json.RawMessage) Outcome {
				if err := Encode(conn, NewResult(Strict, id, json.RawMessage(`"pong"`))); err != nil {
					return InternalError
				}
				return Replied
			},
		}},
	}

	require.NoError(t, client.SendAll([]byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)))
	require.NoError(t, Dispatch(server, Strict, table, 1000, logging.Nop{}))

	doc := readReply(t, client)
	require.JSONEq(t, `"pong"`, string(doc["result"]))
	require.JSONEq(t, "1", string(doc["id"]))
}

func TestDispatch_UnknownMethod(t *testing.T) {
	server, client := dialedPair(t, 47002)

	require.NoError(t, client.SendAll([]byte(`{"jsonrpc":"2.0","id":2,"method":"nope"}`)))
	require.NoError(t, Dispatch(server, Strict, Table{}, 1000, logging.Nop{}))

	doc := readReply(t, client)
	var wireErr WireError
	require.NoError(t, json.Unmarshal(doc["error"], &wireErr))
	require.Equal(t, CodeMethodNotFound, wireErr.Code)
}

func TestDispatch_BadVersionInStrictMode(t *testing.T) {
	server, client := dialedPair(t, 47003)

	require.NoError(t, client.SendAll([]byte(`{"jsonrpc":"1.0","id":3,"method":"ping"}`)))
	require.NoError(t, Dispatch(server, Strict, Table{}, 1000, logging.Nop{}))

	doc := readReply(t, client)
	var wireErr WireError
	require.NoError(t, json.Unmarshal(doc["error"], &wireErr))
	require.Equal(t, CodeInvalidRequest, wireErr.Code)
}

func TestDispatch_MissingRequiredParams(t *testing.T) {
	server, client := dialedPair(t, 47004)

	table := Table{
		{Name: "add", Params: ParamsRequired, Handlers: []Handler{
			func(conn *ipsc.Connection, params json.RawMessage, id json.RawMessage) Outcome { return Replied },
		}},
	}

	require.NoError(t, client.SendAll([]byte(`{"jsonrpc":"2.0","id":4,"method":"add"}`)))
	require.NoError(t, Dispatch(server, Strict, table, 1000, logging.Nop{}))

	doc := readReply(t, client)
	var wireErr WireError
	require.NoError(t, json.Unmarshal(doc["error"], &wireErr))
	require.Equal(t, CodeInvalidParams, wireErr.Code)
}

func TestDispatch_MalformedJSONGetsNullID(t *testing.T) {
	server, client := dialedPair(t, 47005)

	require.NoError(t, client.SendAll([]byte(`not json`)))
	require.NoError(t, Dispatch(server, Strict, Table{}, 1000, logging.Nop{}))

	doc := readReply(t, client)
	require.JSONEq(t, "null", string(doc["id"]))
	var wireErr WireError
	require.NoError(t, json.Unmarshal(doc["error"], &wireErr))
	require.Equal(t, CodeParseError, wireErr.Code)
}

func TestDispatch_OversizeMessageIsInvalidRequestNotParseError(t *testing.T) {
	server, client := dialedPair(t, 47011)

	oversize := make([]byte, MaxMessageSize+1)
	for i := range oversize {
		oversize[i] = ' '
	}
	oversize[0] = '{'
	oversize[len(oversize)-1] = '}'

	// The payload is far larger than the socket buffer, so it is sent
	// from a goroutine while Dispatch reads it.
	sendErr := make(chan error, 1)
	go func() { sendErr <- client.SendAll(oversize) }()
	require.NoError(t, Dispatch(server, Strict, Table{}, 1000, logging.Nop{}))
	require.NoError(t, <-sendErr)

	doc := readReply(t, client)
	var wireErr WireError
	require.NoError(t, json.Unmarshal(doc["error"], &wireErr))
	require.Equal(t, CodeInvalidRequest, wireErr.Code)
}

func TestDispatch_EmptyHandlerChainIsNotImplemented(t *testing.T) {
	server, client := dialedPair(t, 47006)

	table := Table{{Name: "todo", Params: ParamsNone, Handlers: nil}}
	require.NoError(t, client.SendAll([]byte(`{"jsonrpc":"2.0","id":5,"method":"todo"}`)))
	require.NoError(t, Dispatch(server, Strict, table, 1000, logging.Nop{}))

	doc := readReply(t, client)
	var wireErr WireError
	require.NoError(t, json.Unmarshal(doc["error"], &wireErr))
	require.Equal(t, CodeNotImplemented, wireErr.Code)
}

func TestDispatch_LiteModeOmitsVersionField(t *testing.T) {
	server, client := dialedPair(t, 47007)

	table := Table{
		{Name: "ping", Params: ParamsNone, Handlers: []Handler{
			func(conn *ipsc.Connection, params json.RawMessage, id json.RawMessage) Outcome {
				if err := Encode(conn, NewResult(Lite, id, json.RawMessage(`"pong"`))); err != nil {
					return InternalError
				}
				return Replied
			},
		}},
	}

	require.NoError(t, client.SendAll([]byte(`{"id":6,"method":"ping"}`)))
	require.NoError(t, Dispatch(server, Lite, table, 1000, logging.Nop{}))

	doc := readReply(t, client)
	_, hasVersion := doc["jsonrpc"]
	require.False(t, hasVersion)
	require.JSONEq(t, `"pong"`, string(doc["result"]))
}
