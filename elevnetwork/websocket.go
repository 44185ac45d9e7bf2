package elevnetwork

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"elevsim/logger"
)

const (
	wsWriteWait       = 10 * time.Second
	wsShutdownTimeout = 3 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  FRAME_SIZE,
	WriteBufferSize: FRAME_SIZE,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// NewWebSocketHandler upgrades every request to a websocket and runs handler
// on it. Plain HTTP requests get 400 and the connection is closed.
func NewWebSocketHandler(ctx context.Context, handler Handler) http.Handler {
	log := logger.GetLogger()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !websocket.IsWebSocketUpgrade(r) {
			w.Header().Set("Connection", "close")
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
			return
		}
		handler(ctx, newWSConn(ws))
	})
}

// DialWebSocket connects to a websocket endpoint such as ws://localhost:9090/.
func DialWebSocket(ctx context.Context, url string) (Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return newWSConn(ws), nil
}

// WebSocketSource serves the websocket endpoint on a TCP listener.
type WebSocketSource struct {
	ln net.Listener
}

func ListenWebSocket(listenAddr string) (*WebSocketSource, error) {
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("websocket listen: %w", err)
	}
	return &WebSocketSource{ln: ln}, nil
}

func (s *WebSocketSource) Name() string { return "websocket" }

func (s *WebSocketSource) Addr() net.Addr { return s.ln.Addr() }

func (s *WebSocketSource) Serve(ctx context.Context, handler Handler) error {
	srv := &http.Server{
		Handler:           NewWebSocketHandler(ctx, handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(s.ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("websocket serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), wsShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	}
}

type wsConn struct {
	ws *websocket.Conn

	mu     sync.Mutex
	closed bool
}

func newWSConn(ws *websocket.Conn) *wsConn {
	// The close reply is sent by the session so it can echo the peer.
	ws.SetCloseHandler(func(code int, text string) error { return nil })
	return &wsConn{ws: ws}
}

func (c *wsConn) ReadMessage() (string, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		var ce *websocket.CloseError
		if errors.As(err, &ce) {
			return "", &CloseError{Code: ce.Code, Reason: ce.Text}
		}
		return "", fmt.Errorf("read websocket: %w", err)
	}
	return string(data), nil
}

func (c *wsConn) WriteMessage(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return net.ErrClosed
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.ws.WriteMessage(websocket.TextMessage, []byte(msg))
}

func (c *wsConn) SendClose(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	return c.sendCloseLocked(code, reason)
}

func (c *wsConn) sendCloseLocked(code int, reason string) error {
	payload := websocket.FormatCloseMessage(code, reason)
	err := c.ws.WriteControl(websocket.CloseMessage, payload, time.Now().Add(wsWriteWait))
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

func (c *wsConn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	werr := c.sendCloseLocked(code, reason)
	if err := c.ws.Close(); err != nil {
		return err
	}
	return werr
}

func (c *wsConn) RemoteAddr() net.Addr { return c.ws.RemoteAddr() }
