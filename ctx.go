package sdc

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// WithSigHandler cancels ctx on SIGINT or SIGTERM.
func WithSigHandler(ctx context.Context, cancel func()) context.Context {
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(ch)

		select {
		case s := <-ch:
			GetLogger().Infof("signal %v received", s)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx
}
