package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"
)

// Dialer opens one outbound connection per transfer, optionally upgraded
// to the secure channel.
type Dialer struct {
	Address          string
	Security         SecurityConfig
	ConnectTimeout   time.Duration
	HandshakeTimeout time.Duration
}

// Dial connects to the configured address and, when security is enabled,
// completes the client-side handshake before returning. The returned
// connection preserves exact-read/write stream semantics in both modes.
func (d Dialer) Dial(ctx context.Context) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.ConnectTimeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", d.Address)
	if err != nil {
		return nil, err
	}
	if !d.Security.Enabled {
		return rawConn, nil
	}

	tlsCfg, err := d.Security.ClientTLSConfig()
	if err != nil {
		_ = rawConn.Close()
		return nil, err
	}
	conn := tls.Client(rawConn, tlsCfg)
	handshakeCtx := ctx
	if d.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		handshakeCtx, cancel = context.WithTimeout(ctx, d.HandshakeTimeout)
		defer cancel()
	}
	if err := conn.HandshakeContext(handshakeCtx); err != nil {
		_ = rawConn.Close()
		return nil, wrapHandshake(err)
	}
	return conn, nil
}

func wrapHandshake(err error) error {
	if errors.Is(err, ErrHandshake) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrHandshake, err)
}
