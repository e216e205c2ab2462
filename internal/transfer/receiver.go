package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/xferctl/internal/config"
	"github.com/danmuck/xferctl/internal/metrics"
	"github.com/danmuck/xferctl/internal/observability"
	"github.com/danmuck/xferctl/internal/protocol"
	"github.com/danmuck/xferctl/internal/transport"
)

var ErrUnsafeFilename = errors.New("transfer: unusable filename")

// Per-connection stages. Any exact-read failure from a non-idle stage
// moves the connection to failed: closed, no record, loop continues.
const (
	stageHandshake = "handshake"
	stageHeader    = "header"
	stagePayload   = "payload"
	stageRecord    = "record"
)

type ReceiverConfig struct {
	ReceiveDir       string
	ChunkSize        int
	Security         transport.SecurityConfig
	HandshakeTimeout time.Duration
}

func (c ReceiverConfig) withDefaults() ReceiverConfig {
	if c.ChunkSize <= 0 {
		c.ChunkSize = config.DefaultChunkSize
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = 5 * time.Second
	}
	if c.ReceiveDir == "" {
		c.ReceiveDir = "received"
	}
	return c
}

// Receiver drains one transfer at a time from a sequential accept loop.
// TLS material is loaded once at construction; each accepted connection
// is wrapped and handshaken individually so one bad client never takes
// the server down.
type Receiver struct {
	cfg      ReceiverConfig
	security *transport.ServerSecurity
	recorder *metrics.Recorder
	logger   zerolog.Logger
}

func NewReceiver(cfg ReceiverConfig, recorder *metrics.Recorder, logger zerolog.Logger) (*Receiver, error) {
	cfg = cfg.withDefaults()
	security, err := transport.NewServerSecurity(cfg.Security, cfg.HandshakeTimeout)
	if err != nil {
		return nil, err
	}
	return &Receiver{
		cfg:      cfg,
		security: security,
		recorder: recorder,
		logger:   logger,
	}, nil
}

// Run accepts connections until the context is canceled or the listener
// fails. Strictly sequential: each connection is fully processed before
// the next Accept. Cancellation closes the listener and returns nil; an
// in-flight transfer still runs to completion first.
func (r *Receiver) Run(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	r.logger.Info().
		Str("addr", ln.Addr().String()).
		Bool("secure", r.cfg.Security.Enabled).
		Str("receive_dir", r.cfg.ReceiveDir).
		Str("metrics_file", r.recorder.Path()).
		Msg("receiver listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		r.handleConn(conn)
	}
}

func (r *Receiver) handleConn(conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()

	stream, err := r.security.Wrap(conn)
	if err != nil {
		r.failConn(remote, stageHandshake, err)
		return
	}

	start := time.Now()
	timestamp := start

	header, err := protocol.DecodeHeader(stream)
	if err != nil {
		r.failConn(remote, stageHeader, err)
		return
	}

	filename, err := sanitizeFilename(header.Filename)
	if err != nil {
		r.failConn(remote, stageHeader, err)
		return
	}

	if err := os.MkdirAll(r.cfg.ReceiveDir, 0o755); err != nil {
		r.failConn(remote, stagePayload, err)
		return
	}
	dstPath := filepath.Join(r.cfg.ReceiveDir, filename)

	if err := r.drainPayload(stream, dstPath, header.FileSize); err != nil {
		// A truncated destination file stays on disk, there is no rollback.
		r.failConn(remote, stagePayload, err)
		return
	}
	duration := time.Since(start)

	host, port := splitRemote(remote)
	record := metrics.NewTransferRecord(timestamp, host, port, filename, header.FileSize, duration)
	if err := r.recorder.Append(record); err != nil {
		r.failConn(remote, stageRecord, err)
		return
	}

	observability.RecordTransferComplete(header.FileSize, duration)
	r.logger.Info().
		Str("remote", remote).
		Str("filename", filename).
		Uint64("bytes", header.FileSize).
		Dur("duration", duration).
		Float64("throughput_bps", record.ThroughputBytesPerSecond).
		Msg("transfer complete")
}

func (r *Receiver) failConn(remote, stage string, err error) {
	observability.RecordTransferFailed()
	r.logger.Warn().
		Str("remote", remote).
		Str("stage", stage).
		Err(err).
		Msg("transfer failed")
}

// drainPayload consumes exactly size bytes in chunks bounded by
// min(chunkSize, bytesRemaining) and appends them to dstPath.
func (r *Receiver) drainPayload(src io.Reader, dstPath string, size uint64) error {
	f, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("transfer: create %s: %w", dstPath, err)
	}
	defer f.Close()

	buf := make([]byte, r.cfg.ChunkSize)
	remaining := size
	for remaining > 0 {
		n := uint64(len(buf))
		if remaining < n {
			n = remaining
		}
		if err := protocol.ReadExact(src, buf[:n]); err != nil {
			return err
		}
		if _, err := f.Write(buf[:n]); err != nil {
			return fmt.Errorf("transfer: write %s: %w", dstPath, err)
		}
		remaining -= n
	}
	return nil
}

// sanitizeFilename reduces the client-supplied name to its base component
// so a hostile peer cannot steer the destination outside the receive
// directory.
func sanitizeFilename(name string) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == ".." || base == string(filepath.Separator) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeFilename, name)
	}
	return base, nil
}

func splitRemote(remote string) (string, int) {
	host, portStr, err := net.SplitHostPort(remote)
	if err != nil {
		return remote, 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0
	}
	return host, port
}
