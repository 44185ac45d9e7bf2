// main.go
// Purpose: Application entry point. Loads configuration, opens the
// connection sources and starts the dispatcher and exporter goroutines.
// Handles shutdown on interrupt (Ctrl+C).
package main

import (
	"context"
	"os"
	"os/signal"

	"elevsim/common"
	"elevsim/logger"
	"elevsim/statsexport"
	"elevsim/visitstats"
)

func main() {
	cfg, cfgErr := common.LoadConfig(common.DEFAULT_CONFIG_FILE)
	log := logger.GetLoggerConfigured(logger.ParseLevel(cfg.LogLevel))
	if cfgErr != nil {
		log.Fatal().Err(cfgErr).Msg("Error loading config")
	}

	// ctrl + c handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		cancel()
	}()

	store := visitstats.NewStore()

	sources, err := openSources(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening listeners")
	}
	for _, src := range sources {
		log.Info().Str("transport", src.Name()).Str("addr", src.Addr().String()).Msg("Server started, waiting for connections")
	}

	go dispatchThread(ctx, cfg, store, sources)
	go exportThread(ctx, cfg.ExportInterval, store, statsexport.NewXLSXSink(cfg.ExportPath))

	<-ctx.Done()
	log.Info().Msg("Shutting down")
}
