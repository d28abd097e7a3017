package serviceutil

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext returns a context that is cancelled once SIGINT or SIGTERM is received, a
// second signal exits immediately.
func SignalContext(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		slog.Info("shutting down...", "signal", sig.String())
		cancel()
		<-sigs
		os.Exit(1)
	}()

	return ctx
}

func Fatal(message string, err error) {
	slog.Error(message, "err", err.Error())
	os.Exit(1)
}
