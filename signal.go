package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// exitInterrupted is the status for a forced quit (128 + SIGINT).
const exitInterrupted = 130

// interruptible derives a context for a long-running command such as the
// browser sign-in or the soil watcher. The first SIGINT or SIGTERM cancels
// the context so the command can finish its current step; a second one quits
// immediately. The returned stop func releases the signal handler.
func interruptible(parent context.Context, logger *slog.Logger, command string) (context.Context, func()) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ctx, stop := watchSignals(parent, sigCh, logger, command, func() { os.Exit(exitInterrupted) })

	return ctx, func() {
		signal.Stop(sigCh)
		stop()
	}
}

// watchSignals cancels the returned context on the first value from sigCh
// and calls forceExit on the second. stop ends the watch.
func watchSignals(
	parent context.Context, sigCh <-chan os.Signal, logger *slog.Logger,
	command string, forceExit func(),
) (ctx context.Context, stop func()) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("interrupted, stopping",
				slog.String("command", command),
				slog.String("signal", sig.String()),
			)
			cancel()
		case <-ctx.Done():
			return
		case <-done:
			return
		}

		select {
		case sig := <-sigCh:
			logger.Warn("interrupted again, exiting",
				slog.String("command", command),
				slog.String("signal", sig.String()),
			)
			forceExit()
		case <-done:
		}
	}()

	var once sync.Once

	return ctx, func() {
		once.Do(func() { close(done) })
		cancel()
	}
}
