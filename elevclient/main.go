// main.go
// Purpose: Small interactive client for the elevator server. Sends each
// line of stdin as a floor request and prints every reply. Speaks the
// websocket, QUIC or KCP transport.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"elevsim/elevnetwork"
	"elevsim/logger"
)

func dial(ctx context.Context, transport, addr string) (elevnetwork.Conn, error) {
	switch transport {
	case "ws", "websocket":
		return elevnetwork.DialWebSocket(ctx, "ws://"+addr+"/")
	case "quic":
		return elevnetwork.DialQUIC(ctx, addr, nil)
	case "kcp":
		return elevnetwork.DialKCP(addr)
	}
	return nil, fmt.Errorf("unknown transport %q", transport)
}

// run forwards lines from in to conn and replies from conn to out. When in
// is exhausted it starts the close handshake and waits for the server's
// reply, so no status message still in flight is lost.
func run(conn elevnetwork.Conn, in io.Reader, out io.Writer) error {
	readDone := make(chan error, 1)
	go func() {
		for {
			msg, err := conn.ReadMessage()
			if err != nil {
				var ce *elevnetwork.CloseError
				if errors.As(err, &ce) {
					readDone <- nil
				} else {
					readDone <- err
				}
				return
			}
			fmt.Fprintln(out, msg)
		}
	}()

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if err := conn.WriteMessage(sc.Text()); err != nil {
			_ = conn.Close(elevnetwork.CloseGoingAway, "")
			return fmt.Errorf("send: %w", err)
		}
	}

	if err := conn.SendClose(elevnetwork.CloseNormalClosure, "bye"); err != nil {
		_ = conn.Close(elevnetwork.CloseNormalClosure, "bye")
		return fmt.Errorf("send close: %w", err)
	}
	err := <-readDone
	_ = conn.Close(elevnetwork.CloseNormalClosure, "bye")
	return err
}

func main() {
	transport := flag.String("transport", "ws", "ws, quic or kcp")
	addr := flag.String("addr", "localhost:9090", "server address ip:port")
	flag.Parse()

	log := logger.GetLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	conn, err := dial(ctx, *transport, *addr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", *addr).Msg("Dial failed")
	}
	log.Info().Str("transport", *transport).Str("addr", *addr).Msg("Connected, type a floor per line")

	go func() {
		<-ctx.Done()
		_ = conn.Close(elevnetwork.CloseGoingAway, "interrupted")
	}()

	if err := run(conn, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("Connection ended")
		os.Exit(1)
	}
}
