package main

import (
	"context"
	"errors"
	"time"

	"elevsim/common"
	"elevsim/logger"
	"elevsim/statsexport"
)

type snapshotter interface {
	Snapshot() common.VisitSnapshot
}

// exportThread hands a snapshot of the visit table to sink every interval.
// A failed cycle is logged and the next one runs as usual.
func exportThread(
	ctx context.Context,
	interval time.Duration,
	store snapshotter,
	sink statsexport.Sink,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = exportOnce(store, sink)
		}
	}
}

func exportOnce(store snapshotter, sink statsexport.Sink) error {
	log := logger.GetLogger()

	snap := store.Snapshot()
	err := sink.Write(snap)
	switch {
	case errors.Is(err, statsexport.ErrSinkLocked):
		log.Warn().Err(err).Msg("exportThread: export file in use, skipping this cycle")
	case err != nil:
		log.Error().Err(err).Msg("exportThread: export failed")
	default:
		log.Info().Int("floors", len(snap)).Int("visits", snap.TotalVisits()).Time("at", time.Now()).Msg("exportThread: data saved")
	}
	return err
}
