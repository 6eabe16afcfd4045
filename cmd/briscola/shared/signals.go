package shared

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
)

// SignalContext returns a context cancelled on SIGINT or SIGTERM. When logger
// is not nil the signal is logged before cancelling.
func SignalContext(logger *zerolog.Logger) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		sig := <-sigChan
		if logger != nil {
			logger.Info().Str("signal", sig.String()).Msg("Received signal, shutting down gracefully")
		}
		cancel()
	}()

	return ctx
}
