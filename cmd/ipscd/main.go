// Command ipscd is the demo server binary: it wires jrpc.Server to the
// ambient stack (config, logging, metrics, socket-file bookkeeping, and
// socket-removal watching) around a small method table exercising the
// built-in daemon methods plus a couple of demonstration application
// methods. Flag parsing goes through cobra, matching the rest of the
// pack's CLI surface.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	charm "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/advem/ipsc-go/internal/config"
	"github.com/advem/ipsc-go/internal/daemon"
	"github.com/advem/ipsc-go/internal/logging"
	"github.com/advem/ipsc-go/internal/metrics"
	"github.com/advem/ipsc-go/internal/socketfile"
	"github.com/advem/ipsc-go/internal/watch"
	"github.com/advem/ipsc-go/ipsc"
	"github.com/advem/ipsc-go/jrpc"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "ipscd",
		Short: "local JSON-RPC IPC daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ipscd:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}

	level := charm.InfoLevel
	switch settings.LogLevel {
	case "debug":
		level = charm.DebugLevel
	case "warn":
		level = charm.WarnLevel
	case "error":
		level = charm.ErrorLevel
	}
	charmLog := logging.NewCharm(os.Stderr, level)
	buffered := logging.NewBuffered(1000, charmLog)

	mode := jrpc.Strict
	if settings.Lite {
		mode = jrpc.Lite
	}

	d := &daemon.Daemon{
		Port:        settings.Port,
		IdleTimeout: settings.IdleTimeout,
		Mode:        mode,
		Log:         buffered,
		Buffered:    buffered,
	}

	met := metrics.New("ipscd")
	if settings.MetricsAddr != "" {
		go func() {
			if err := http.ListenAndServe(settings.MetricsAddr, met.Handler()); err != nil {
				buffered.Errorf("metrics: listen on %s: %v", settings.MetricsAddr, err)
			}
		}()
	}

	chain := func(h jrpc.Handler) []jrpc.Handler {
		return []jrpc.Handler{d.BeforeRequest(), h}
	}

	table := jrpc.Table{
		{Name: "status", Params: jrpc.ParamsNone, Handlers: chain(met.Wrap("status", d.StatusHandler()))},
		{Name: "logs", Params: jrpc.ParamsOptional, Handlers: chain(met.Wrap("logs", d.LogsHandler()))},
		{Name: "shutdown", Params: jrpc.ParamsNone, Handlers: chain(met.Wrap("shutdown", d.ShutdownHandler()))},
		{Name: "ping", Params: jrpc.ParamsNone, Handlers: chain(met.Wrap("ping", pingHandler(mode)))},
		{Name: "echo", Params: jrpc.ParamsRequired, Handlers: chain(met.Wrap("echo", echoHandler(mode)))},
		{Name: "add", Params: jrpc.ParamsRequired, Handlers: chain(met.Wrap("add", addHandler(mode)))},
	}

	var sw *watch.SocketWatcher
	server, err := jrpc.Listen(jrpc.Config{
		Port:          settings.Port,
		MaxQueue:      settings.MaxQueue,
		RecvTimeoutMs: settings.RecvTimeoutMs,
		Mode:          mode,
		Table:         table,
		Logger:        buffered,
		AcceptLimiter: rate.NewLimiter(rate.Limit(500), 50),
		RegisterHook: func(l *ipsc.Listener) {
			watcher, werr := watch.NewSocketWatcher(l.Addr(), buffered, func() {
				buffered.Errorf("ipscd: bound socket disappeared, shutting down")
				d.Shutdown()
			})
			if werr != nil {
				buffered.Warnf("ipscd: socket watch disabled: %v", werr)
				return
			}
			sw = watcher
		},
	})
	if err != nil {
		return fmt.Errorf("ipscd: listen: %w", err)
	}
	defer func() {
		if sw != nil {
			sw.Stop()
		}
	}()
	defer server.Close()

	buffered.Warnf("ipscd: listening on %s", server.Addr())
	if err := d.Run(server); err != nil {
		return fmt.Errorf("ipscd: %w", err)
	}

	if err := socketfile.TruncateLog(settings.Port, 10*1024*1024); err != nil {
		buffered.Warnf("ipscd: log truncation: %v", err)
	}
	return nil
}

// pingHandler answers with the literal string "pong", the simplest
// possible round trip for exercising the transport end to end.
func pingHandler(mode jrpc.Mode) jrpc.Handler {
	return func(conn *ipsc.Connection, params json.RawMessage, id json.RawMessage) jrpc.Outcome {
		reply := jrpc.NewResult(mode, id, json.RawMessage(`"pong"`))
		if err := jrpc.Encode(conn, reply); err != nil {
			return jrpc.InternalError
		}
		return jrpc.Replied
	}
}

// echoHandler returns params verbatim as the result.
func echoHandler(mode jrpc.Mode) jrpc.Handler {
	return func(conn *ipsc.Connection, params json.RawMessage, id json.RawMessage) jrpc.Outcome {
		reply := jrpc.NewResult(mode, id, params)
		if err := jrpc.Encode(conn, reply); err != nil {
			return jrpc.InternalError
		}
		return jrpc.Replied
	}
}

// addHandler sums the two numbers in params.a and params.b.
func addHandler(mode jrpc.Mode) jrpc.Handler {
	return func(conn *ipsc.Connection, params json.RawMessage, id json.RawMessage) jrpc.Outcome {
		var req struct {
			A float64 `json:"a"`
			B float64 `json:"b"`
		}
		if err := json.Unmarshal(params, &req); err != nil {
			reply := jrpc.NewError(mode, id, jrpc.CodeInvalidParams, "Invalid params")
			if err := jrpc.Encode(conn, reply); err != nil {
				return jrpc.InternalError
			}
			return jrpc.Replied
		}

		result, err := json.Marshal(req.A + req.B)
		if err != nil {
			return jrpc.InternalError
		}
		reply := jrpc.NewResult(mode, id, result)
		if err := jrpc.Encode(conn, reply); err != nil {
			return jrpc.InternalError
		}
		return jrpc.Replied
	}
}
