package elevnetwork

import (
	"context"
	"fmt"
	"net"

	kcp "github.com/xtaci/kcp-go/v5"
)

// KCPSource accepts reliable KCP sessions over UDP and speaks the same
// framed protocol as the QUIC source.
type KCPSource struct {
	ln *kcp.Listener
}

func ListenKCP(listenAddr string) (*KCPSource, error) {
	ln, err := kcp.ListenWithOptions(listenAddr, nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("kcp listen: %w", err)
	}
	return &KCPSource{ln: ln}, nil
}

func (s *KCPSource) Name() string { return "kcp" }

func (s *KCPSource) Addr() net.Addr { return s.ln.Addr() }

func (s *KCPSource) Serve(ctx context.Context, handler Handler) error {
	go func() {
		<-ctx.Done()
		_ = s.ln.Close()
	}()

	for {
		sess, err := s.ln.AcceptKCP()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kcp accept: %w", err)
		}
		go handler(ctx, newKCPConn(sess))
	}
}

func newKCPConn(sess *kcp.UDPSession) *frameConn {
	return newFrameConn(sess, sess.RemoteAddr(), sess.Close)
}

func DialKCP(remoteAddr string) (Conn, error) {
	sess, err := kcp.DialWithOptions(remoteAddr, nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("kcp dial: %w", err)
	}
	return newKCPConn(sess), nil
}
