// FILE: signal.go
package relay

import (
	"os"
	"os/signal"
	"syscall"
	"time"
)

// ShutdownOnSignal registers a process-exit hook: when one of the given
// signals arrives (SIGINT and SIGTERM when none are named), the shipper
// is shut down with the bounded grace window and the notification is
// released. The returned channel closes once shutdown has completed, so
// a main goroutine can block on it.
func (s *Shipper) ShutdownOnSignal(timeout time.Duration, signals ...os.Signal) <-chan struct{} {
	if len(signals) == 0 {
		signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, signals...)

	done := make(chan struct{})
	go func() {
		<-sigCh
		signal.Stop(sigCh)
		if timeout > 0 {
			_ = s.Shutdown(timeout)
		} else {
			_ = s.Shutdown()
		}
		close(done)
	}()

	return done
}
