// frame.go
// Purpose: Fixed-size frame codec for stream transports (QUIC, KCP). Every
// message is one zero-padded frame; a frame starting with the close magic
// carries the close handshake.
package elevnetwork

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"elevsim/common"
)

const (
	FRAME_SIZE          = 1024
	closeMagic   uint32 = 0xFF434C53 // 0xFF "CLS", never valid UTF-8
	closeHdrLen         = 8
	writeTimeout        = 5 * time.Second
)

func ReadFixedFrame(r io.Reader, frameSize int) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("reader is nil")
	}
	if frameSize <= 0 {
		frameSize = FRAME_SIZE
	}
	buf := make([]byte, frameSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	return buf, nil
}

func WriteFixedFrame(
	w io.Writer,
	payload []byte,
	frameSize int,
	timeout time.Duration,
) (int, error) {
	if w == nil {
		return 0, fmt.Errorf("writer is nil")
	}
	if frameSize <= 0 {
		frameSize = FRAME_SIZE
	}
	if len(payload) > frameSize {
		return 0, fmt.Errorf("payload too large: %d > %d", len(payload), frameSize)
	}

	frame := make([]byte, frameSize)
	copy(frame, payload) // zero-padding

	if d, ok := w.(interface{ SetWriteDeadline(time.Time) error }); ok && timeout > 0 {
		_ = d.SetWriteDeadline(time.Now().Add(timeout))
	}

	total := 0
	for total < frameSize {
		n, err := w.Write(frame[total:])
		total += n
		if err != nil {
			return total, fmt.Errorf("write frame: %w", err)
		}
		if n == 0 {
			return total, fmt.Errorf("write frame: wrote 0 bytes")
		}
	}
	return total, nil
}

func encodeCloseFrame(code int, reason string, frameSize int) []byte {
	limit := frameSize - closeHdrLen
	if len(reason) > limit {
		reason = reason[:limit]
	}
	b := make([]byte, closeHdrLen+len(reason))
	binary.BigEndian.PutUint32(b[0:4], closeMagic)
	binary.BigEndian.PutUint16(b[4:6], uint16(code))
	binary.BigEndian.PutUint16(b[6:8], uint16(len(reason)))
	copy(b[closeHdrLen:], reason)
	return b
}

func decodeCloseFrame(frame []byte) (code int, reason string, ok bool) {
	if len(frame) < closeHdrLen || binary.BigEndian.Uint32(frame[0:4]) != closeMagic {
		return 0, "", false
	}
	code = int(binary.BigEndian.Uint16(frame[4:6]))
	n := int(binary.BigEndian.Uint16(frame[6:8]))
	if closeHdrLen+n > len(frame) {
		return 0, "", false
	}
	return code, string(frame[closeHdrLen : closeHdrLen+n]), true
}

// frameConn adapts a framed byte stream to Conn.
type frameConn struct {
	rw        io.ReadWriter
	frameSize int
	remote    net.Addr
	release   func() error

	mu        sync.Mutex
	closeSent bool
	closed    bool
}

func newFrameConn(rw io.ReadWriter, remote net.Addr, release func() error) *frameConn {
	return &frameConn{
		rw:        rw,
		frameSize: FRAME_SIZE,
		remote:    remote,
		release:   release,
	}
}

func (c *frameConn) ReadMessage() (string, error) {
	frame, err := ReadFixedFrame(c.rw, c.frameSize)
	if err != nil {
		return "", fmt.Errorf("read frame: %w", err)
	}
	if code, reason, ok := decodeCloseFrame(frame); ok {
		return "", &CloseError{Code: code, Reason: reason}
	}
	return string(common.TrimZeros(frame)), nil
}

func (c *frameConn) WriteMessage(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.closeSent {
		return net.ErrClosed
	}
	_, err := WriteFixedFrame(c.rw, []byte(msg), c.frameSize, writeTimeout)
	return err
}

func (c *frameConn) SendClose(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendCloseLocked(code, reason)
}

func (c *frameConn) sendCloseLocked(code int, reason string) error {
	if c.closed || c.closeSent {
		return nil
	}
	c.closeSent = true
	_, err := WriteFixedFrame(c.rw, encodeCloseFrame(code, reason, c.frameSize), c.frameSize, writeTimeout)
	return err
}

// Close sends a close frame and releases the underlying stream. Safe to
// call more than once.
func (c *frameConn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	werr := c.sendCloseLocked(code, reason)
	c.closed = true

	if rerr := c.release(); rerr != nil {
		return rerr
	}
	return werr
}

func (c *frameConn) RemoteAddr() net.Addr { return c.remote }
