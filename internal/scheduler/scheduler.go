// Package scheduler runs periodic jobs without overlap.
package scheduler

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-chat-intake/internal/observability"
)

// Every calls fn each interval until ctx is done, then waits for the run in
// progress and returns nil. A tick that fires while fn is still running is
// dropped and counted in intake_ticks_skipped_total{job=name}. A panic in fn
// is logged and does not stop the schedule.
func Every(ctx context.Context, name string, interval time.Duration, fn func(context.Context)) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	var (
		running atomic.Bool
		wg      sync.WaitGroup
	)
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if !running.CompareAndSwap(false, true) {
				observability.TicksSkipped.WithLabelValues(name).Inc()
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer running.Store(false)
				defer func() {
					if r := recover(); r != nil {
						log.Error().Str("job", name).Interface("panic", r).Bytes("stack", debug.Stack()).Msg("scheduled job panicked")
					}
				}()
				fn(ctx)
			}()
		}
	}
}
