package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
)

const version = "0.0.1"

var rootCmd = &cobra.Command{
	Use:   "xferctl",
	Short: "Framed file transfer over TCP with optional TLS",
	Long: `xferctl moves single files over a length-prefixed TCP protocol and
records per-transfer duration and throughput to an append-only CSV store.

Send a file:     xferctl send 192.168.0.10 5000 files/report.pdf
Run a receiver:  xferctl serve 5000

Secure variants upgrade the connection with TLS: the server presents a
fixed certificate/key pair and the client validates it against one trust
anchor file (host-name verification is intentionally skipped for
self-signed deployments).`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the xferctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the CLI. Any unhandled transfer error surfaces as exit
// status 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext cancels on SIGINT/SIGTERM so the receiver's accept loop
// shuts down between connections.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func parsePort(raw string) (int, error) {
	port, err := strconv.Atoi(raw)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q", raw)
	}
	return port, nil
}
