package serviceutil

import (
	"context"
	"errors"
	"kontomanager/internal/scrapers/kontomanager"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext returns a context that is cancelled on Ctrl+C or SIGTERM, `watch` runs until then
// and in-flight portal requests are abandoned with it.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	return ctx
}

// errorAttrs returns the slog attributes for `err`, portal errors also carry their kind
// (and status code) so a rejected login reads differently from a dropped connection.
func errorAttrs(err error) []any {
	attrs := []any{"err", err.Error()}
	var kerr *kontomanager.Error
	if errors.As(err, &kerr) {
		attrs = append(attrs, "kind", kerr.Kind.String())
		if kerr.StatusCode != 0 {
			attrs = append(attrs, "status", kerr.StatusCode)
		}
	}
	return attrs
}

// Fatal logs `message` with the error and exits the CLI with status 1.
func Fatal(message string, err error) {
	slog.Error(message, errorAttrs(err)...)
	os.Exit(1)
}
