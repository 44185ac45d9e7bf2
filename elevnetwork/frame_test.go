package elevnetwork

import (
	"bytes"
	"errors"
	"net"
	"strings"
	"testing"
)

func TestCloseFrameRoundTrip(t *testing.T) {
	frame := make([]byte, FRAME_SIZE)
	copy(frame, encodeCloseFrame(4001, "fin del viaje", FRAME_SIZE))

	code, reason, ok := decodeCloseFrame(frame)
	if !ok || code != 4001 || reason != "fin del viaje" {
		t.Errorf("decode = %d %q %v", code, reason, ok)
	}

	if _, _, ok := decodeCloseFrame([]byte("CLOSE")); ok {
		t.Errorf("plain text must never decode as a close frame")
	}
}

func TestCloseFrameTruncatesLongReason(t *testing.T) {
	long := strings.Repeat("x", 2*FRAME_SIZE)
	frame := encodeCloseFrame(1000, long, FRAME_SIZE)
	if len(frame) != FRAME_SIZE {
		t.Errorf("frame length = %d, want %d", len(frame), FRAME_SIZE)
	}
}

func TestWriteFixedFramePadsAndRejectsOversize(t *testing.T) {
	var buf bytes.Buffer
	n, err := WriteFixedFrame(&buf, []byte("7"), 16, 0)
	if err != nil || n != 16 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	frame, err := ReadFixedFrame(&buf, 16)
	if err != nil {
		t.Fatal(err)
	}
	if frame[0] != '7' || frame[15] != 0 {
		t.Errorf("frame = %v", frame)
	}

	if _, err := WriteFixedFrame(&buf, make([]byte, 17), 16, 0); err == nil {
		t.Errorf("expected an error for an oversized payload")
	}
}

func TestFrameConnMessagesAndClose(t *testing.T) {
	c1, c2 := net.Pipe()
	client := newFrameConn(c1, c1.RemoteAddr(), c1.Close)
	server := newFrameConn(c2, c2.RemoteAddr(), c2.Close)
	defer server.release()

	go func() {
		_ = client.WriteMessage("7")
		_ = client.Close(4002, "bye")
	}()

	msg, err := server.ReadMessage()
	if err != nil || msg != "7" {
		t.Fatalf("ReadMessage = %q, %v", msg, err)
	}

	_, err = server.ReadMessage()
	var ce *CloseError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CloseError, got %v", err)
	}
	if ce.Code != 4002 || ce.Reason != "bye" {
		t.Errorf("close = %+v", ce)
	}
}

func TestFrameConnWriteAfterClose(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c2.Close()
	go func() { _, _ = ReadFixedFrame(c2, FRAME_SIZE) }()

	conn := newFrameConn(c1, nil, c1.Close)
	_ = conn.Close(CloseNormalClosure, "")
	if err := conn.WriteMessage("3"); !errors.Is(err, net.ErrClosed) {
		t.Errorf("expected net.ErrClosed, got %v", err)
	}
	if err := conn.Close(CloseNormalClosure, ""); err != nil {
		t.Errorf("second Close = %v", err)
	}
}
