// Command ipscctl is the demo client binary: it issues one call against
// a running ipscd and prints the result, built on cobra subcommands and
// delegating the actual RPC to internal/client.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/advem/ipsc-go/internal/client"
)

func main() {
	var port uint16
	var lite bool
	var timeoutMs int

	root := &cobra.Command{
		Use:   "ipscctl",
		Short: "client for a running ipscd",
	}
	root.PersistentFlags().Uint16Var(&port, "port", 7700, "daemon port")
	root.PersistentFlags().BoolVar(&lite, "lite", false, "speak the lite dialect (no jsonrpc field)")
	root.PersistentFlags().IntVar(&timeoutMs, "timeout-ms", 5000, "reply receive timeout in milliseconds")

	cfg := func() client.Config {
		return client.Config{Port: port, Lite: lite, RecvTimeoutMs: timeoutMs}
	}

	warnIfStale := func(cfg client.Config) {
		stale, info, err := client.CheckStale(cfg)
		if err != nil || info == nil {
			return
		}
		if stale {
			fmt.Fprintf(os.Stderr, "ipscctl: warning: lock file for port %d names dead pid %d; the daemon may have crashed without cleaning up\n", info.Port, info.PID)
		}
	}

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "report daemon uptime and request count",
		RunE: func(cmd *cobra.Command, args []string) error {
			warnIfStale(cfg())
			status, err := client.Status(cfg())
			if err != nil {
				return err
			}
			fmt.Printf("pid: %d\nport: %d\nuptime: %s\ntotalRequests: %d\n",
				status.PID, status.Port, status.Uptime, status.TotalRequests)
			return nil
		},
	})

	var logLevel string
	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "fetch buffered daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			logs, err := client.Logs(cfg(), logLevel)
			if err != nil {
				return err
			}
			fmt.Println(logs)
			return nil
		},
	}
	logsCmd.Flags().StringVar(&logLevel, "level", "warn", "minimum level: debug|warn|error")
	root.AddCommand(logsCmd)

	root.AddCommand(&cobra.Command{
		Use:   "shutdown",
		Short: "ask the daemon to exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Shutdown(cfg()); err != nil {
				return err
			}
			fmt.Println("shutdown requested")
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "ping",
		Short: "round-trip the built-in ping method",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result string
			if err := client.Call(cfg(), "ping", nil, &result); err != nil {
				return err
			}
			fmt.Println(result)
			return nil
		},
	})

	var a, b float64
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "call the demo add(a, b) method",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result float64
			if err := client.Call(cfg(), "add", map[string]float64{"a": a, "b": b}, &result); err != nil {
				return err
			}
			fmt.Println(result)
			return nil
		},
	}
	addCmd.Flags().Float64Var(&a, "a", 0, "first operand")
	addCmd.Flags().Float64Var(&b, "b", 0, "second operand")
	root.AddCommand(addCmd)

	callCmd := &cobra.Command{
		Use:   "call <method> [json-params]",
		Short: "call an arbitrary method with raw JSON params",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			warnIfStale(cfg())
			var params interface{}
			if len(args) == 2 {
				params = json.RawMessage(args[1])
			}
			var result json.RawMessage
			if err := client.Call(cfg(), args[0], params, &result); err != nil {
				return err
			}
			fmt.Println(string(result))
			return nil
		},
	}
	root.AddCommand(callCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ipscctl:", err)
		os.Exit(1)
	}
}
