package game

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// StartRoundWatcher periodically ticks the engine so time-based round closure
// is observed promptly even when no answers or polls arrive. The closure
// decision itself lives in the engine; this loop only provides the clock
// edge. Interval is tunable via QUIZ_WATCH_INTERVAL.
func StartRoundWatcher(ctx context.Context, e *Engine) {
	every := 250 * time.Millisecond
	if v := os.Getenv("QUIZ_WATCH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			every = d
		}
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	slog.Info("round watcher started", slog.Duration("interval", every))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick()
		}
	}
}
