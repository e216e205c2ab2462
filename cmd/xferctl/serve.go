package main

import (
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/danmuck/xferctl/internal/config"
	"github.com/danmuck/xferctl/internal/metrics"
	"github.com/danmuck/xferctl/internal/observability"
	"github.com/danmuck/xferctl/internal/transfer"
	"github.com/danmuck/xferctl/internal/transport"
)

type serveFlags struct {
	ConfigFile  string
	BindAddr    string
	ReceiveDir  string
	MetricsFile string
	AdminAddr   string
	ChunkSize   int
	Secure      bool
	CertFile    string
	KeyFile     string
}

var serveOpts serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve <port>",
	Short: "Receive files on a sequential accept loop",
	Long: `Run the receiver: one blocking accept loop, one transfer at a time.
Each completed transfer appends one record to the CSV metrics store. A
failing connection is logged and the loop moves on to the next accept.`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveOpts.ConfigFile, "config", "", "TOML config file (flags win over file values)")
	serveCmd.Flags().StringVar(&serveOpts.BindAddr, "bind", "", "bind address (default: all interfaces)")
	serveCmd.Flags().StringVar(&serveOpts.ReceiveDir, "receive-dir", "", "directory for received files")
	serveCmd.Flags().StringVar(&serveOpts.MetricsFile, "metrics-file", "", "append-only CSV transfer store")
	serveCmd.Flags().StringVar(&serveOpts.AdminAddr, "admin-addr", "", "optional health/metrics endpoint address")
	serveCmd.Flags().IntVar(&serveOpts.ChunkSize, "chunk-size", 0, "payload chunk size in bytes")
	serveCmd.Flags().BoolVar(&serveOpts.Secure, "secure", false, "wrap accepted connections with TLS")
	serveCmd.Flags().StringVar(&serveOpts.CertFile, "cert", "", "server certificate file")
	serveCmd.Flags().StringVar(&serveOpts.KeyFile, "key", "", "server private key file")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := observability.InitLogger("xferctl-serve")

	cfg := config.DefaultServerConfig()
	if serveOpts.ConfigFile != "" {
		loaded, err := config.LoadServerConfig(serveOpts.ConfigFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	port, err := parsePort(args[0])
	if err != nil {
		return err
	}
	cfg.Port = port

	if serveOpts.BindAddr != "" {
		cfg.BindAddr = serveOpts.BindAddr
	}
	if serveOpts.ReceiveDir != "" {
		cfg.ReceiveDir = serveOpts.ReceiveDir
	}
	if serveOpts.MetricsFile != "" {
		cfg.MetricsFile = serveOpts.MetricsFile
	}
	if serveOpts.AdminAddr != "" {
		cfg.AdminAddr = serveOpts.AdminAddr
	}
	if cmd.Flags().Changed("chunk-size") {
		cfg.ChunkSize = serveOpts.ChunkSize
	}
	if serveOpts.Secure {
		cfg.TLS.Enabled = true
	}
	if serveOpts.CertFile != "" {
		cfg.TLS.CertFile = serveOpts.CertFile
	}
	if serveOpts.KeyFile != "" {
		cfg.TLS.KeyFile = serveOpts.KeyFile
	}
	// Mode-dependent defaults resolve after the secure flag is known.
	config.FillServerDefaults(&cfg)
	if err := config.ValidateServerConfig(cfg); err != nil {
		return err
	}

	security := transport.SecurityConfig{
		Enabled:  cfg.TLS.Enabled,
		CertFile: cfg.TLS.CertFile,
		KeyFile:  cfg.TLS.KeyFile,
	}
	if err := security.ValidateServer(); err != nil {
		return err
	}

	recorder := metrics.NewRecorder(cfg.MetricsFile)
	receiver, err := transfer.NewReceiver(transfer.ReceiverConfig{
		ReceiveDir: cfg.ReceiveDir,
		ChunkSize:  cfg.ChunkSize,
		Security:   security,
	}, recorder, logger)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(cfg.BindAddr, strconv.Itoa(cfg.Port)))
	if err != nil {
		return err
	}

	if cfg.AdminAddr != "" {
		router := observability.NewAdminRouter("xferctl", logger)
		go func() {
			if err := router.Run(cfg.AdminAddr); err != nil {
				logger.Error().Err(err).Str("addr", cfg.AdminAddr).Msg("admin endpoint stopped")
			}
		}()
	}

	ctx, cancel := signalContext()
	defer cancel()
	return receiver.Run(ctx, ln)
}
