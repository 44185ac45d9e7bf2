// conn.go
// Purpose: Transport-neutral duplex text connection handed to elevator
// sessions, plus the close codes shared by every connection source.
package elevnetwork

import (
	"context"
	"fmt"
	"net"

	"github.com/gorilla/websocket"
)

const (
	CloseNormalClosure    = websocket.CloseNormalClosure
	CloseGoingAway        = websocket.CloseGoingAway
	CloseNoStatusReceived = websocket.CloseNoStatusReceived
)

// Conn is one client connection carrying UTF-8 text messages.
// ReadMessage returns a *CloseError when the peer starts the close handshake.
// SendClose starts the handshake but keeps the read side open so the peer's
// reply can still be read; Close sends the close (unless already sent) and
// releases the connection.
type Conn interface {
	ReadMessage() (string, error)
	WriteMessage(msg string) error
	SendClose(code int, reason string) error
	Close(code int, reason string) error
	RemoteAddr() net.Addr
}

type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("peer closed connection (code=%d reason=%q)", e.Code, e.Reason)
}

// Handler runs for every accepted connection, on its own goroutine.
type Handler func(ctx context.Context, conn Conn)

// ConnSource accepts connections until ctx is cancelled.
type ConnSource interface {
	Name() string
	Addr() net.Addr
	Serve(ctx context.Context, handler Handler) error
}
