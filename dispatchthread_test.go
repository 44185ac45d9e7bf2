package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"elevsim/common"
	"elevsim/elevfsm"
	"elevsim/elevnetwork"
	"elevsim/visitstats"
)

func startDispatcher(t *testing.T, cfg common.Config) (string, *visitstats.Store) {
	t.Helper()
	cfg.ListenAddr = "127.0.0.1:0"

	sources, err := openSources(cfg)
	if err != nil {
		t.Fatalf("openSources: %v", err)
	}

	store := visitstats.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		dispatchThread(ctx, cfg, store, sources)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return sources[0].Addr().String(), store
}

func dialWS(t *testing.T, addr string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return ws
}

func readText(t *testing.T, ws *websocket.Conn) string {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(data)
}

func TestDispatcherRejectsPlainHTTP(t *testing.T) {
	cfg := common.DefaultConfig()
	addr, _ := startDispatcher(t, cfg)

	resp, err := http.Get("http://" + addr + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDispatcherRunsSessionOverWebSocket(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.TravelDelay = 5 * time.Millisecond
	addr, store := startDispatcher(t, cfg)

	ws := dialWS(t, addr)
	defer ws.Close()

	for _, msg := range []string{"hola", "11", "5"} {
		if err := ws.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			t.Fatal(err)
		}
	}

	if got := readText(t, ws); got != elevfsm.MsgInvalidFloor {
		t.Errorf("first reply = %q", got)
	}
	for floor := 2; floor <= 5; floor++ {
		if got, want := readText(t, ws), elevfsm.StatusMessage(floor, 5); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}

	// close handshake echoes our code and reason
	closeMsg := websocket.FormatCloseMessage(4000, "adios")
	if err := ws.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := ws.ReadMessage()
	var ce *websocket.CloseError
	if !errors.As(err, &ce) {
		t.Fatalf("expected a close frame, got %v", err)
	}
	if ce.Code != 4000 || ce.Text != "adios" {
		t.Errorf("close = %d %q, want 4000 \"adios\"", ce.Code, ce.Text)
	}

	if store.TotalVisits() != 4 {
		t.Errorf("visits = %d, want 4", store.TotalVisits())
	}
}

func TestDispatcherSessionsAreIndependent(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.TravelDelay = 5 * time.Millisecond
	addr, store := startDispatcher(t, cfg)

	const clients = 4
	var wg sync.WaitGroup
	errs := make(chan error, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ws, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/", nil)
			if err != nil {
				errs <- err
				return
			}
			defer ws.Close()

			if err := ws.WriteMessage(websocket.TextMessage, []byte("3")); err != nil {
				errs <- err
				return
			}
			for floor := 2; floor <= 3; floor++ {
				_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
				_, data, err := ws.ReadMessage()
				if err != nil {
					errs <- err
					return
				}
				if want := elevfsm.StatusMessage(floor, 7); string(data) != want {
					errs <- fmt.Errorf("got %q, want %q", data, want)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	if store.TotalVisits() != clients*2 {
		t.Errorf("visits = %d, want %d", store.TotalVisits(), clients*2)
	}
}

func TestDispatcherServesQUIC(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.TravelDelay = 0
	cfg.QUICAddr = "127.0.0.1:0"
	cfg.ListenAddr = "127.0.0.1:0"

	sources, err := openSources(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 2 || sources[1].Name() != "quic" {
		t.Fatalf("expected websocket and quic sources, got %d", len(sources))
	}

	store := visitstats.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dispatchThread(ctx, cfg, store, sources)

	conn, err := elevnetwork.DialQUIC(ctx, sources[1].Addr().String(), nil)
	if err != nil {
		t.Fatalf("dial quic: %v", err)
	}
	if err := conn.WriteMessage("2"); err != nil {
		t.Fatal(err)
	}
	got, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if want := elevfsm.StatusMessage(2, 8); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	_ = conn.Close(elevnetwork.CloseNormalClosure, "")
}
