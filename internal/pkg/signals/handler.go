// Package signals turns SIGINT, SIGTERM and SIGHUP into context cancellation
// so long scans and capture extraction stop cleanly.
package signals

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/endorses/lexicat/internal/pkg/constants"
	"github.com/endorses/lexicat/internal/pkg/logger"
)

var shutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP}

// SetupHandler cancels ctx through cancel when a shutdown signal arrives.
// The returned cleanup function stops signal delivery and waits for the
// watcher goroutine to exit.
func SetupHandler(ctx context.Context, cancel context.CancelFunc) (cleanup func()) {
	sigCh := make(chan os.Signal, constants.SignalChannelBuffer)
	signal.Notify(sigCh, shutdownSignals...)

	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case sig, ok := <-sigCh:
			if !ok {
				return
			}
			logger.Info("Received signal, stopping", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(sigCh)
		<-done
	}
}

// Context derives a context from parent that is cancelled on a shutdown
// signal. stop releases the handler and cancels the context.
func Context(parent context.Context) (ctx context.Context, stop func()) {
	ctx, cancel := context.WithCancel(parent)
	cleanup := SetupHandler(ctx, cancel)
	return ctx, func() {
		cancel()
		cleanup()
	}
}
