package elevnetwork

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"math/big"
	"net"
	"time"

	quic "github.com/quic-go/quic-go"
)

const (
	QUIC_ALPN         = "elevsim-quic"
	openStreamTimeout = 2 * time.Second
	closeLinger       = time.Second
)

func NewQUICServerTLSConfig() (*tls.Config, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("rsa key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return nil, fmt.Errorf("serial: %w", err)
	}

	certTmpl := &x509.Certificate{
		SerialNumber: serial,
		NotBefore:    time.Now().Add(-1 * time.Hour),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),

		KeyUsage:    x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},

		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, certTmpl, certTmpl, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("create cert: %w", err)
	}

	cert := tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{QUIC_ALPN},
		MinVersion:   tls.VersionTLS13,
	}, nil
}

func NewQUICClientTLSConfig() *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{QUIC_ALPN},
		MinVersion:         tls.VersionTLS13,
	}
}

func DefaultQUICConfig() *quic.Config {
	// No idle timeout on sessions; keep-alives hold the connection open.
	return &quic.Config{
		KeepAlivePeriod:      2 * time.Second,
		HandshakeIdleTimeout: 3 * time.Second,
		MaxIdleTimeout:       6 * time.Second,
	}
}

// QUICSource accepts QUIC connections; each connection carries one
// bidirectional stream of fixed frames.
type QUICSource struct {
	ln *quic.Listener
}

func ListenQUIC(listenAddr string, quicConf *quic.Config) (*QUICSource, error) {
	tlsConf, err := NewQUICServerTLSConfig()
	if err != nil {
		return nil, fmt.Errorf("server tls config: %w", err)
	}
	if quicConf == nil {
		quicConf = DefaultQUICConfig()
	}

	ln, err := quic.ListenAddr(listenAddr, tlsConf, quicConf)
	if err != nil {
		return nil, fmt.Errorf("quic listen: %w", err)
	}
	return &QUICSource{ln: ln}, nil
}

func (s *QUICSource) Name() string { return "quic" }

func (s *QUICSource) Addr() net.Addr { return s.ln.Addr() }

func (s *QUICSource) Serve(ctx context.Context, handler Handler) error {
	defer s.ln.Close()

	for {
		conn, err := s.ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("quic accept: %w", err)
		}

		go func(conn *quic.Conn) {
			st, err := conn.AcceptStream(ctx)
			if err != nil {
				_ = conn.CloseWithError(0, "no stream")
				return
			}
			handler(ctx, newQUICConn(conn, st))
		}(conn)
	}
}

func newQUICConn(conn *quic.Conn, st *quic.Stream) *frameConn {
	return newFrameConn(st, conn.RemoteAddr(), func() error {
		return closeQUIC(conn, st, "bye")
	})
}

// closeQUIC finishes the stream and gives the peer a moment to read the
// last frame before the connection goes away.
func closeQUIC(conn *quic.Conn, st *quic.Stream, reason string) error {
	if st != nil {
		_ = st.Close()
	}
	if conn == nil {
		return nil
	}
	select {
	case <-conn.Context().Done():
	case <-time.After(closeLinger):
	}
	return conn.CloseWithError(0, reason)
}

// DialQUIC connects to a QUIC source and opens the message stream.
func DialQUIC(ctx context.Context, remoteAddr string, quicConf *quic.Config) (Conn, error) {
	if quicConf == nil {
		quicConf = DefaultQUICConfig()
	}
	conn, err := quic.DialAddr(ctx, remoteAddr, NewQUICClientTLSConfig(), quicConf)
	if err != nil {
		return nil, fmt.Errorf("quic dial: %w", err)
	}

	stCtx, cancel := context.WithTimeout(ctx, openStreamTimeout)
	defer cancel()

	st, err := conn.OpenStreamSync(stCtx)
	if err != nil {
		_ = conn.CloseWithError(0, "open stream failed")
		return nil, fmt.Errorf("open stream: %w", err)
	}
	return newQUICConn(conn, st), nil
}
