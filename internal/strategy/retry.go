package strategy

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esremap/internal/engine"
	"github.com/kailas-cloud/esremap/internal/logger"
	"github.com/kailas-cloud/esremap/internal/metrics"
)

// deleteWithRetry deletes index, retrying recoverable failures per the retry policy. It sleeps
// Delay between attempts while the accumulated wait is below MaxDelay.
func (a *Alias) deleteWithRetry(ctx context.Context, index string) error {
	var waited time.Duration
	for {
		err := a.client.DeleteIndex(ctx, index)
		if err == nil {
			return nil
		}
		if !engine.IsRecoverable(err) || !a.opts.retry.Allows(waited) {
			return err
		}
		logger.FromContext(ctx).Warn("delete_retry",
			zap.String("index", index),
			zap.Duration("waited", waited),
			zap.Duration("delay", a.opts.retry.Delay),
			zap.Error(err),
		)
		metrics.DeleteRetriesTotal.WithLabelValues(a.base).Inc()
		if sleepErr := a.opts.sleep(ctx, a.opts.retry.Delay); sleepErr != nil {
			return errors.Join(err, sleepErr)
		}
		waited += a.opts.retry.Delay
	}
}
