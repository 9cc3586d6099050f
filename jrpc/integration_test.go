package jrpc

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/advem/ipsc-go/ipsc"
)

// runServer starts a full jrpc.Server over the real event loop and
// registers a cleanup func; it exercises these scenarios end to end
// through the same path cmd/ipscd drives in production.
func runServer(t *testing.T, port uint16, mode Mode, table Table) {
	t.Helper()

	server, err := Listen(Config{
		Port:          port,
		MaxQueue:      8,
		RecvTimeoutMs: 1000,
		Mode:          mode,
		Table:         table,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		server.Run(ctx)
		close(done)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		server.Close()
	})

	time.Sleep(50 * time.Millisecond)
}

func echoTable() Table {
	return Table{
		{Name: "ping", Params: ParamsNone, Handlers: []Handler{
			func(conn *ipsc.Connection, params json.RawMessage, id json.RawMessage) Outcome {
				Encode(conn, NewResult(Strict, id, json.RawMessage(`"pong"`)))
				return Replied
			},
		}},
		{Name: "echo", Params: ParamsRequired, Handlers: []Handler{
			func(conn *ipsc.Connection, params json.RawMessage, id json.RawMessage) Outcome {
				Encode(conn, NewResult(Strict, id, params))
				return Replied
			},
		}},
		{Name: "add", Params: ParamsRequired, Handlers: []Handler{
			func(conn *ipsc.Connection, params json.RawMessage, id json.RawMessage) Outcome {
				Encode(conn, NewResult(Strict, id, json.RawMessage(`0`)))
				return Replied
			},
		}},
	}
}

// Scenario 1: valid call.
func TestScenario_ValidCall(t *testing.T) {
	runServer(t, 47401, Strict, echoTable())

	res, err := Call(CallRequest{Port: 47401, Method: "ping", ID: json.RawMessage("1"), RecvTimeoutMs: 1000, Mode: Strict})
	require.NoError(t, err)
	require.Equal(t, Success, res.Outcome)
	require.JSONEq(t, `"pong"`, string(res.Reply))
}

// Scenario 2: unknown method.
func TestScenario_UnknownMethod(t *testing.T) {
	runServer(t, 47402, Strict, echoTable())

	res, err := Call(CallRequest{Port: 47402, Method: "nope", ID: json.RawMessage("7"), RecvTimeoutMs: 1000, Mode: Strict})
	require.NoError(t, err)
	require.Equal(t, NoResult, res.Outcome)
	var wireErr WireError
	require.NoError(t, json.Unmarshal(res.Reply, &wireErr))
	require.Equal(t, CodeMethodNotFound, wireErr.Code)
}

// Scenario 4: missing required params.
func TestScenario_MissingRequiredParams(t *testing.T) {
	runServer(t, 47404, Strict, echoTable())

	res, err := Call(CallRequest{Port: 47404, Method: "add", ID: json.RawMessage("2"), RecvTimeoutMs: 1000, Mode: Strict})
	require.NoError(t, err)
	require.Equal(t, NoResult, res.Outcome)
	var wireErr WireError
	require.NoError(t, json.Unmarshal(res.Reply, &wireErr))
	require.Equal(t, CodeInvalidParams, wireErr.Code)
}

// Scenario 6: stale socket reclaim followed by a working server. The
// stale file is simulated the way a SIGKILL'd daemon would leave one
// behind: bind a raw socket to the path, then drop the descriptor
// without unlinking or ever calling listen/accept on it.
func TestScenario_StaleSocketThenAccepts(t *testing.T) {
	port := uint16(47406)
	addr := ipsc.Address(port)

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	require.NoError(t, unix.Bind(fd, &unix.SockaddrUnix{Name: addr}))
	require.NoError(t, unix.Close(fd))

	_, statErr := os.Stat(addr)
	require.NoError(t, statErr, "the stale file must exist before the server starts")

	runServer(t, port, Strict, echoTable())

	res, err := Call(CallRequest{Port: port, Method: "ping", ID: json.RawMessage("1"), RecvTimeoutMs: 1000, Mode: Strict})
	require.NoError(t, err)
	require.Equal(t, Success, res.Outcome)
}

// Property: echo round-trips an arbitrary JSON value byte-equivalently.
func TestProperty_EchoRoundTrip(t *testing.T) {
	runServer(t, 47410, Strict, echoTable())

	values := []string{`42`, `"a string"`, `null`, `{"nested":[1,2,3]}`, `true`, `[1,"two",3.0]`}
	for _, v := range values {
		res, err := Call(CallRequest{
			Port: 47410, Method: "echo", Params: json.RawMessage(v),
			ID: json.RawMessage("1"), RecvTimeoutMs: 1000, Mode: Strict,
		})
		require.NoError(t, err)
		require.Equal(t, Success, res.Outcome)
		require.JSONEq(t, v, string(res.Reply))
	}
}

// Property: a reply with "result":null is Success, a reply lacking
// "result" entirely is NoResult.
func TestProperty_ReplyClassificationIdempotence(t *testing.T) {
	table := Table{
		{Name: "nullresult", Params: ParamsNone, Handlers: []Handler{
			func(conn *ipsc.Connection, params json.RawMessage, id json.RawMessage) Outcome {
				Encode(conn, NewResult(Strict, id, nil))
				return Replied
			},
		}},
		{Name: "usererror", Params: ParamsNone, Handlers: []Handler{
			func(conn *ipsc.Connection, params json.RawMessage, id json.RawMessage) Outcome {
				Encode(conn, Reply{Jsonrpc: Version, ID: id})
				return Replied
			},
		}},
	}
	runServer(t, 47411, Strict, table)

	res, err := Call(CallRequest{Port: 47411, Method: "nullresult", ID: json.RawMessage("1"), RecvTimeoutMs: 1000, Mode: Strict})
	require.NoError(t, err)
	require.Equal(t, Success, res.Outcome)
	require.JSONEq(t, "null", string(res.Reply))

	res, err = Call(CallRequest{Port: 47411, Method: "usererror", ID: json.RawMessage("2"), RecvTimeoutMs: 1000, Mode: Strict})
	require.NoError(t, err)
	require.Equal(t, UserError, res.Outcome)
}
