package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// shutdownSignals are the signals that request a graceful stop of the
// charon process.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// SignalContext derives a context from parent that is canceled on the
// first shutdown signal. The returned stop function releases the signal
// registration; once it has run, a further signal falls through to the
// default handler and terminates the process.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, shutdownSignals...)
}

// ShutdownChannel registers for the shutdown signals and returns the
// delivery channel. The daemon path uses this rather than SignalContext
// because it reports which signal triggered the shutdown.
func ShutdownChannel() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, shutdownSignals...)
	return ch
}
