package main

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/danmuck/xferctl/internal/config"
	"github.com/danmuck/xferctl/internal/observability"
	"github.com/danmuck/xferctl/internal/transfer"
	"github.com/danmuck/xferctl/internal/transport"
)

type sendFlags struct {
	ConfigFile  string
	Repeat      int
	ChunkSize   int
	Secure      bool
	TrustAnchor string
}

var sendOpts sendFlags

var sendCmd = &cobra.Command{
	Use:   "send <host> <port> <file>",
	Short: "Send a file to a receiver",
	Long: `Send one file to a receiver. Each repetition opens an independent
connection; the first failure aborts the whole run with exit status 1.`,
	Args: cobra.ExactArgs(3),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVar(&sendOpts.ConfigFile, "config", "", "TOML config file (flags win over file values)")
	sendCmd.Flags().IntVarP(&sendOpts.Repeat, "repeat", "r", 1, "number of times to send the file")
	sendCmd.Flags().IntVar(&sendOpts.ChunkSize, "chunk-size", 0, "payload chunk size in bytes")
	sendCmd.Flags().BoolVar(&sendOpts.Secure, "secure", false, "upgrade the connection with TLS")
	sendCmd.Flags().StringVar(&sendOpts.TrustAnchor, "ca", "", "trust anchor file used to validate the server certificate")
}

func runSend(cmd *cobra.Command, args []string) error {
	logger := observability.InitLogger("xferctl-send")

	cfg := config.DefaultClientConfig()
	if sendOpts.ConfigFile != "" {
		loaded, err := config.LoadClientConfig(sendOpts.ConfigFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	port, err := parsePort(args[1])
	if err != nil {
		return err
	}
	cfg.Addr = args[0]
	cfg.Port = port
	filePath := args[2]

	if cmd.Flags().Changed("repeat") {
		cfg.Repeat = sendOpts.Repeat
	}
	if cmd.Flags().Changed("chunk-size") {
		cfg.ChunkSize = sendOpts.ChunkSize
	}
	if sendOpts.Secure {
		cfg.TLS.Enabled = true
	}
	if sendOpts.TrustAnchor != "" {
		cfg.TLS.TrustAnchor = sendOpts.TrustAnchor
	}
	if err := config.ValidateClientConfig(cfg); err != nil {
		return err
	}

	sender, err := transfer.NewSender(transfer.SenderConfig{
		Address:   net.JoinHostPort(cfg.Addr, strconv.Itoa(cfg.Port)),
		ChunkSize: cfg.ChunkSize,
		Security: transport.SecurityConfig{
			Enabled:         cfg.TLS.Enabled,
			TrustAnchorFile: cfg.TLS.TrustAnchor,
		},
	})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	for i := 1; i <= cfg.Repeat; i++ {
		res, err := sender.Send(ctx, filePath)
		if err != nil {
			return fmt.Errorf("send %d/%d: %w", i, cfg.Repeat, err)
		}
		logger.Info().
			Int("attempt", i).
			Int("of", cfg.Repeat).
			Str("filename", res.Filename).
			Uint64("bytes", res.BytesSent).
			Dur("duration", res.Duration).
			Float64("throughput_bps", res.Throughput()).
			Bool("secure", cfg.TLS.Enabled).
			Msg("send complete")
	}
	return nil
}
