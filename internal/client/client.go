// Package client is the ergonomic wrapper cmd/ipscctl calls into: it
// turns one jrpc.Call into a single Go error, unmarshalling a successful
// result into a caller-supplied value and folding ClientOutcome
// classification into ordinary error handling. The
// transport, framing, and one-shot connect/send/recv/close already
// live in ipsc/jrpc, so this package is purely call ergonomics plus a
// handful of typed wrappers for the built-in daemon methods.
package client

import (
	"encoding/json"
	"fmt"

	"github.com/advem/ipsc-go/internal/socketfile"
	"github.com/advem/ipsc-go/jrpc"
)

// Config is what cmd/ipscctl needs to issue one call against a daemon.
type Config struct {
	Port          uint16
	Lite          bool
	RecvTimeoutMs int
}

// RPCError wraps a JSON-RPC error object surfaced by NoResult so callers
// can branch on Code instead of parsing an error string.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Call issues method(params) against cfg.Port and unmarshals a
// successful result into out (pass nil to discard it). A server-side
// JSON-RPC error object comes back as *RPCError; a reply carrying
// neither result nor error comes back as a plain error.
func Call(cfg Config, method string, params interface{}, out interface{}) error {
	mode := jrpc.Strict
	if cfg.Lite {
		mode = jrpc.Lite
	}

	var paramsRaw json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("client: marshal params: %w", err)
		}
		paramsRaw = encoded
	}

	res, err := jrpc.Call(jrpc.CallRequest{
		Port:          cfg.Port,
		Method:        method,
		Params:        paramsRaw,
		ID:            json.RawMessage(`1`),
		RecvTimeoutMs: cfg.RecvTimeoutMs,
		Mode:          mode,
	})
	if err != nil {
		return err
	}

	switch res.Outcome {
	case jrpc.Success:
		if out == nil || len(res.Reply) == 0 {
			return nil
		}
		return json.Unmarshal(res.Reply, out)
	case jrpc.NoResult:
		var wireErr jrpc.WireError
		if err := json.Unmarshal(res.Reply, &wireErr); err != nil {
			return fmt.Errorf("client: malformed error object: %w", err)
		}
		return &RPCError{Code: wireErr.Code, Message: wireErr.Message}
	default:
		return fmt.Errorf("client: reply carried neither result nor error")
	}
}

// StatusInfo mirrors the object returned by the built-in "status" method.
type StatusInfo struct {
	PID           int    `json:"pid"`
	Port          uint16 `json:"port"`
	Uptime        string `json:"uptime"`
	TotalRequests int64  `json:"totalRequests"`
}

// Status calls the built-in "status" method.
func Status(cfg Config) (StatusInfo, error) {
	var status StatusInfo
	err := Call(cfg, "status", nil, &status)
	return status, err
}

// Logs calls the built-in "logs" method, requesting entries at or above
// level ("debug"|"warn"|"error").
func Logs(cfg Config, level string) (string, error) {
	var out struct {
		Logs string `json:"logs"`
	}
	err := Call(cfg, "logs", map[string]string{"level": level}, &out)
	return out.Logs, err
}

// Shutdown calls the built-in "shutdown" method.
func Shutdown(cfg Config) error {
	return Call(cfg, "shutdown", nil, nil)
}

// CheckStale reads the lock file for cfg.Port, if any, and reports
// whether it names a process that is no longer alive. A nil LockInfo
// return means no lock file was found at all. Callers use this to warn
// before dialing a port whose recorded owner has died without cleaning
// up after itself.
func CheckStale(cfg Config) (stale bool, info *socketfile.LockInfo, err error) {
	info, err = socketfile.ReadLock(cfg.Port)
	if err != nil || info == nil {
		return false, info, err
	}
	return !socketfile.IsProcessAlive(info.PID), info, nil
}
