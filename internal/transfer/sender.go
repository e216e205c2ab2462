package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/danmuck/xferctl/internal/config"
	"github.com/danmuck/xferctl/internal/protocol"
	"github.com/danmuck/xferctl/internal/transport"
)

var (
	ErrFileNotFound    = errors.New("transfer: file not found")
	ErrAddressRequired = errors.New("transfer: target address required")
)

type SenderConfig struct {
	Address          string
	Security         transport.SecurityConfig
	ChunkSize        int
	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration
}

func (c SenderConfig) withDefaults() SenderConfig {
	if c.ChunkSize <= 0 {
		c.ChunkSize = config.DefaultChunkSize
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = 5 * time.Second
	}
	return c
}

// Sender pushes one file per connection: header first, then the payload
// in chunk-size writes. Fire-and-forget, no application-level ack.
type Sender struct {
	cfg SenderConfig
}

func NewSender(cfg SenderConfig) (*Sender, error) {
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, ErrAddressRequired
	}
	if err := cfg.Security.ValidateClient(); err != nil {
		return nil, err
	}
	return &Sender{cfg: cfg.withDefaults()}, nil
}

// Result describes one sender-complete transfer.
type Result struct {
	Filename  string
	BytesSent uint64
	Duration  time.Duration
}

func (r Result) Throughput() float64 {
	seconds := r.Duration.Seconds()
	if seconds <= 0 {
		return 0
	}
	return float64(r.BytesSent) / seconds
}

// Send transfers one file. The pre-flight stat and the header encode both
// happen before any connection is opened, so a missing file or an
// oversize name never produces wire traffic.
func (s *Sender) Send(ctx context.Context, filePath string) (Result, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, fmt.Errorf("%w: %s", ErrFileNotFound, filePath)
		}
		return Result{}, err
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("%w: %s is a directory", ErrFileNotFound, filePath)
	}

	filename := filepath.Base(filePath)
	header, err := protocol.EncodeHeader(protocol.TransferHeader{
		Filename: filename,
		FileSize: uint64(info.Size()),
	})
	if err != nil {
		return Result{}, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	dialer := transport.Dialer{
		Address:          s.cfg.Address,
		Security:         s.cfg.Security,
		ConnectTimeout:   s.cfg.ConnectTimeout,
		HandshakeTimeout: s.cfg.HandshakeTimeout,
	}
	conn, err := dialer.Dial(ctx)
	if err != nil {
		return Result{}, err
	}
	defer conn.Close()

	start := time.Now()
	if _, err := conn.Write(header); err != nil {
		return Result{}, fmt.Errorf("transfer: write header: %w", err)
	}

	var sent uint64
	buf := make([]byte, s.cfg.ChunkSize)
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			if _, err := conn.Write(buf[:n]); err != nil {
				return Result{}, fmt.Errorf("transfer: write payload: %w", err)
			}
			sent += uint64(n)
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return Result{}, fmt.Errorf("transfer: read %s: %w", filePath, readErr)
		}
	}

	return Result{
		Filename:  filename,
		BytesSent: sent,
		Duration:  time.Since(start),
	}, nil
}
