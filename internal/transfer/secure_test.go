package transfer

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/xferctl/internal/metrics"
	"github.com/danmuck/xferctl/internal/testutil/tlstest"
	"github.com/danmuck/xferctl/internal/transport"
)

var loopbackIPs = []net.IP{net.ParseIP("127.0.0.1")}

func TestSecureTransferEndToEnd(t *testing.T) {
	dir := t.TempDir()
	authority := tlstest.NewAuthority(t, dir, "xferctl-test-ca")
	certPath, keyPath := authority.IssueServerCert(t, dir, "xferctl-server", loopbackIPs)

	receiveDir := filepath.Join(dir, "received_tls")
	storePath := filepath.Join(dir, "metrics_tls.csv")
	addr, stop := startReceiver(t, ReceiverConfig{
		ReceiveDir: receiveDir,
		Security:   transport.SecurityConfig{Enabled: true, CertFile: certPath, KeyFile: keyPath},
	}, metrics.NewRecorder(storePath))
	defer stop()

	data := patternBytes(4096)
	src := writeTempFile(t, "secret.bin", data)
	sender, err := NewSender(SenderConfig{
		Address:  addr,
		Security: transport.SecurityConfig{Enabled: true, TrustAnchorFile: authority.CAFile()},
	})
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	if _, err := sender.Send(context.Background(), src); err != nil {
		t.Fatalf("secure send: %v", err)
	}

	dst := filepath.Join(receiveDir, "secret.bin")
	waitFor(t, "secure destination file", func() bool {
		info, err := os.Stat(dst)
		return err == nil && info.Size() == 4096
	})
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("secure destination differs from source")
	}
}

func TestSecureSelfSignedCertAsOwnAnchor(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := tlstest.SelfSignedServer(t, dir, "xferctl-selfsigned", loopbackIPs)

	receiveDir := filepath.Join(dir, "received_tls")
	addr, stop := startReceiver(t, ReceiverConfig{
		ReceiveDir: receiveDir,
		Security:   transport.SecurityConfig{Enabled: true, CertFile: certPath, KeyFile: keyPath},
	}, metrics.NewRecorder(filepath.Join(dir, "metrics_tls.csv")))
	defer stop()

	src := writeTempFile(t, "pinned.bin", patternBytes(512))
	// The server certificate itself is the trust anchor.
	sender, err := NewSender(SenderConfig{
		Address:  addr,
		Security: transport.SecurityConfig{Enabled: true, TrustAnchorFile: certPath},
	})
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	if _, err := sender.Send(context.Background(), src); err != nil {
		t.Fatalf("self-signed send: %v", err)
	}
	waitFor(t, "pinned destination file", func() bool {
		info, err := os.Stat(filepath.Join(receiveDir, "pinned.bin"))
		return err == nil && info.Size() == 512
	})
}

func TestSecureWrongAnchorFailsHandshakeAndServerSurvives(t *testing.T) {
	dir := t.TempDir()
	serverAuthority := tlstest.NewAuthority(t, t.TempDir(), "server-ca")
	certPath, keyPath := serverAuthority.IssueServerCert(t, dir, "xferctl-server", loopbackIPs)
	strangerAuthority := tlstest.NewAuthority(t, t.TempDir(), "stranger-ca")

	receiveDir := filepath.Join(dir, "received_tls")
	storePath := filepath.Join(dir, "metrics_tls.csv")
	addr, stop := startReceiver(t, ReceiverConfig{
		ReceiveDir: receiveDir,
		Security:   transport.SecurityConfig{Enabled: true, CertFile: certPath, KeyFile: keyPath},
	}, metrics.NewRecorder(storePath))
	defer stop()

	src := writeTempFile(t, "secret.bin", patternBytes(1024))
	badSender, err := NewSender(SenderConfig{
		Address:  addr,
		Security: transport.SecurityConfig{Enabled: true, TrustAnchorFile: strangerAuthority.CAFile()},
	})
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	_, err = badSender.Send(context.Background(), src)
	if !errors.Is(err, transport.ErrHandshake) {
		t.Fatalf("expected ErrHandshake, got %v", err)
	}

	// The failed handshake transmitted neither header nor payload: no
	// destination file and no record may exist.
	if _, err := os.Stat(filepath.Join(receiveDir, "secret.bin")); !os.IsNotExist(err) {
		t.Fatalf("destination file should not exist after failed handshake")
	}
	if _, err := os.Stat(storePath); !os.IsNotExist(err) {
		t.Fatalf("metrics store should not exist after failed handshake")
	}

	// One bad client never terminates the server: a correctly anchored
	// sender succeeds on the same accept loop.
	goodSender, err := NewSender(SenderConfig{
		Address:  addr,
		Security: transport.SecurityConfig{Enabled: true, TrustAnchorFile: serverAuthority.CAFile()},
	})
	if err != nil {
		t.Fatalf("new good sender: %v", err)
	}
	if _, err := goodSender.Send(context.Background(), src); err != nil {
		t.Fatalf("send after rejected client: %v", err)
	}
	waitFor(t, "record after rejected client", func() bool {
		return countRows(storePath) == 2
	})
}
