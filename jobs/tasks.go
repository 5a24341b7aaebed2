package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/atrium-console/atrium/internal/approvals"
	jobmetrics "github.com/atrium-console/atrium/internal/jobs"
	"github.com/atrium-console/atrium/internal/tenant"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
)

// ApprovalsRefreshHandler re-warms the approval caches whenever the
// interceptor stale-marks them. The task payload names the tenant scope of
// the intercepted dispatch; the re-warm reads upstream under that same
// scope so it lands on the partition that went stale. The handler is
// idempotent: re-running it only overwrites the cached collections with
// fresh upstream state.
func ApprovalsRefreshHandler(svc *approvals.Service, logger *slog.Logger) asynq.HandlerFunc {
	metrics := jobmetrics.NewMetrics(nil)
	return func(ctx context.Context, t *asynq.Task) error {
		scope, err := approvals.RefreshScope(t.Payload())
		if err != nil {
			logger.Warn("malformed approvals refresh payload", slog.Any("error", err))
			return asynq.SkipRetry
		}
		ctx = tenant.ContextWithScope(ctx, scope)
		tracker := metrics.Track(approvals.TaskApprovalsRefresh)
		if err := tracker.End(svc.WarmCaches(ctx)); err != nil {
			logger.Warn("approvals cache re-warm failed", slog.Any("error", err))
			return err
		}
		logger.Info("approvals caches re-warmed")
		return nil
	}
}
