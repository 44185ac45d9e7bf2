package main

import (
	"context"
	"sync"

	"go.uber.org/atomic"

	"elevsim/common"
	"elevsim/elevfsm"
	"elevsim/elevnetwork"
	"elevsim/logger"
	"elevsim/visitstats"
)

type dispatcher struct {
	cfg   common.Config
	store *visitstats.Store

	active atomic.Int64 // sessions currently running
	served atomic.Int64 // sessions started since boot
}

func newDispatcher(cfg common.Config, store *visitstats.Store) *dispatcher {
	return &dispatcher{cfg: cfg, store: store}
}

// openSources binds the websocket listener and, when configured, the QUIC
// and KCP listeners. Only the websocket listener is mandatory.
func openSources(cfg common.Config) ([]elevnetwork.ConnSource, error) {
	log := logger.GetLogger()

	ws, err := elevnetwork.ListenWebSocket(cfg.ListenAddr)
	if err != nil {
		return nil, err
	}
	sources := []elevnetwork.ConnSource{ws}

	if cfg.QUICAddr != "" {
		src, err := elevnetwork.ListenQUIC(cfg.QUICAddr, elevnetwork.DefaultQUICConfig())
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.QUICAddr).Msg("quic listener disabled")
		} else {
			sources = append(sources, src)
		}
	}
	if cfg.KCPAddr != "" {
		src, err := elevnetwork.ListenKCP(cfg.KCPAddr)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.KCPAddr).Msg("kcp listener disabled")
		} else {
			sources = append(sources, src)
		}
	}
	return sources, nil
}

func dispatchThread(
	ctx context.Context,
	cfg common.Config,
	store *visitstats.Store,
	sources []elevnetwork.ConnSource,
) {
	d := newDispatcher(cfg, store)
	log := logger.GetLogger()

	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src elevnetwork.ConnSource) {
			defer wg.Done()
			if err := src.Serve(ctx, d.handle); err != nil {
				log.Error().Err(err).Str("transport", src.Name()).Msg("dispatchThread: listener stopped")
			}
		}(src)
	}
	wg.Wait()
}

// handle runs one session to completion. Every source calls it on a
// goroutine of its own, so accepting never waits for a session.
func (d *dispatcher) handle(ctx context.Context, conn elevnetwork.Conn) {
	s := elevfsm.NewSession(d.cfg, conn, d.store)
	log := logger.GetLogger().With().Str("session", s.ID).Str("remote", conn.RemoteAddr().String()).Logger()

	active := d.active.Inc()
	log.Info().Int64("active", active).Int64("served", d.served.Inc()).Msg("session started")

	err := s.Run(ctx)

	active = d.active.Dec()
	if err != nil {
		log.Warn().Err(err).Int64("active", active).Msg("session ended with error")
		return
	}
	log.Info().Int64("active", active).Msg("session ended")
}
