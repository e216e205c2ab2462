package transport

import (
	"crypto/tls"
	"net"
	"time"
)

// ServerSecurity holds the server-side TLS material, loaded once at
// construction and reused for every accepted connection.
type ServerSecurity struct {
	cfg              *tls.Config
	handshakeTimeout time.Duration
}

// NewServerSecurity loads the certificate/key pair. Returns nil when
// security is disabled so callers can wrap unconditionally.
func NewServerSecurity(sec SecurityConfig, handshakeTimeout time.Duration) (*ServerSecurity, error) {
	if !sec.Enabled {
		return nil, nil
	}
	cfg, err := sec.ServerTLSConfig()
	if err != nil {
		return nil, err
	}
	return &ServerSecurity{cfg: cfg, handshakeTimeout: handshakeTimeout}, nil
}

// Wrap upgrades one accepted raw connection. The handshake runs under a
// deadline so a silent client cannot pin the sequential accept loop; the
// deadline is cleared afterwards because the transfer path itself has no
// read timeout.
func (s *ServerSecurity) Wrap(conn net.Conn) (net.Conn, error) {
	if s == nil {
		return conn, nil
	}
	tlsConn := tls.Server(conn, s.cfg)
	if s.handshakeTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.handshakeTimeout))
	}
	if err := tlsConn.Handshake(); err != nil {
		return nil, wrapHandshake(err)
	}
	_ = conn.SetDeadline(time.Time{})
	return tlsConn, nil
}
