package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"scribed/internal/logging"
	"scribed/internal/queue"
)

// heartbeatLoop refreshes a running job's heartbeat until the context is
// cancelled.
func heartbeatLoop(ctx context.Context, wg *sync.WaitGroup, store *queue.Store, logger *slog.Logger, jobID string, interval time.Duration) {
	defer wg.Done()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := store.UpdateHeartbeat(ctx, jobID); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				logger.Warn("heartbeat update failed",
					logging.String(logging.FieldJobID, jobID), logging.Error(err))
			}
		}
	}
}
