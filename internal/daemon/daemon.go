// Package daemon wires a jrpc.Server into a long-lived background
// process: idle-timeout shutdown, signal handling, and the built-in
// status/logs/shutdown methods every embedder of this kind expects.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/advem/ipsc-go/internal/logging"
	"github.com/advem/ipsc-go/internal/socketfile"
	"github.com/advem/ipsc-go/ipsc"
	"github.com/advem/ipsc-go/jrpc"
)

// Daemon tracks the bookkeeping around one jrpc.Server: start time,
// a request counter for the status method, and an idle timer
// that shuts the process down after a period with no activity.
type Daemon struct {
	Port        uint16
	IdleTimeout time.Duration
	Mode        jrpc.Mode
	Log         logging.Logger
	Buffered    *logging.Buffered // backs the "logs" method, if set

	mu            sync.Mutex
	startedAt     time.Time
	totalRequests int64
	idleTimer     *time.Timer
	cancel        context.CancelFunc
}

// BeforeRequest bumps the total-requests counter and resets the idle
// timer. Every registered method's handler chain starts with this as
// its first link (it always returns Continue, so the real handler
// always runs next).
func (d *Daemon) BeforeRequest() jrpc.Handler {
	return func(conn *ipsc.Connection, params json.RawMessage, id json.RawMessage) jrpc.Outcome {
		d.mu.Lock()
		d.totalRequests++
		d.mu.Unlock()
		d.resetIdleTimer()
		return jrpc.Continue
	}
}

func (d *Daemon) resetIdleTimer() {
	if d.IdleTimeout <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(d.IdleTimeout, func() {
		d.Log.Warnf("daemon: idle timeout reached, shutting down")
		if d.cancel != nil {
			d.cancel()
		}
	})
}

// Run starts startedAt bookkeeping, installs SIGTERM/SIGINT handling,
// writes the lock file, and blocks on server.Run(ctx) until a signal,
// idle timeout, or explicit shutdown cancels ctx.
func (d *Daemon) Run(server *jrpc.Server) error {
	d.startedAt = time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		d.Log.Warnf("daemon: received signal %v", sig)
		cancel()
	}()

	if err := socketfile.WriteLock(d.Port, os.Getpid()); err != nil {
		return fmt.Errorf("daemon: write lock: %w", err)
	}
	defer socketfile.RemoveLock(d.Port)

	d.resetIdleTimer()

	return server.Run(ctx)
}

// Shutdown cancels the running server's context from within a handler
// (the built-in "shutdown" method uses this).
func (d *Daemon) Shutdown() {
	if d.cancel != nil {
		d.cancel()
	}
}

// StatusHandler is the built-in "status" method: reports pid, port,
// uptime, and the total request count. Connections are not counted.
func (d *Daemon) StatusHandler() jrpc.Handler {
	return func(conn *ipsc.Connection, params json.RawMessage, id json.RawMessage) jrpc.Outcome {
		d.mu.Lock()
		status := map[string]interface{}{
			"pid":           os.Getpid(),
			"port":          d.Port,
			"uptime":        time.Since(d.startedAt).String(),
			"totalRequests": d.totalRequests,
		}
		d.mu.Unlock()

		result, err := json.Marshal(status)
		if err != nil {
			return jrpc.InternalError
		}
		reply := jrpc.NewResult(d.Mode, id, result)
		if err := jrpc.Encode(conn, reply); err != nil {
			return jrpc.InternalError
		}
		return jrpc.Replied
	}
}

// LogsHandler is the built-in "logs" method: returns buffered log lines
// at or above the requested level ("debug"|"warn"|"error", default
// "warn").
func (d *Daemon) LogsHandler() jrpc.Handler {
	return func(conn *ipsc.Connection, params json.RawMessage, id json.RawMessage) jrpc.Outcome {
		if d.Buffered == nil {
			reply := jrpc.NewResult(d.Mode, id, json.RawMessage(`{"logs":""}`))
			if err := jrpc.Encode(conn, reply); err != nil {
				return jrpc.InternalError
			}
			return jrpc.Replied
		}

		var req struct {
			Level string `json:"level"`
		}
		if len(params) > 0 {
			json.Unmarshal(params, &req)
		}

		level := logging.LevelWarn
		switch req.Level {
		case "debug":
			level = logging.LevelDebug
		case "error":
			level = logging.LevelError
		}

		result, err := json.Marshal(map[string]string{"logs": d.Buffered.GetLogs(level)})
		if err != nil {
			return jrpc.InternalError
		}
		reply := jrpc.NewResult(d.Mode, id, result)
		if err := jrpc.Encode(conn, reply); err != nil {
			return jrpc.InternalError
		}
		return jrpc.Replied
	}
}

// ShutdownHandler is the built-in "shutdown" method: replies, then
// cancels the server's run context shortly after.
func (d *Daemon) ShutdownHandler() jrpc.Handler {
	return func(conn *ipsc.Connection, params json.RawMessage, id json.RawMessage) jrpc.Outcome {
		reply := jrpc.NewResult(d.Mode, id, json.RawMessage(`{"status":"shutting down"}`))
		if err := jrpc.Encode(conn, reply); err != nil {
			return jrpc.InternalError
		}
		go func() {
			time.Sleep(100 * time.Millisecond)
			d.Shutdown()
		}()
		return jrpc.Replied
	}
}
