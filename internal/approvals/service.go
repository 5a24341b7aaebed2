package approvals

import (
	"context"
	"errors"
	"log/slog"
	"net/url"

	"github.com/hibiken/asynq"

	"github.com/atrium-console/atrium/internal/authz"
	"github.com/atrium-console/atrium/internal/gateway"
	"github.com/atrium-console/atrium/internal/tenant"
)

// Upstream is the slice of the dispatcher the service reads collections
// through.
type Upstream interface {
	Get(ctx context.Context, path string, query url.Values, dest any) error
}

// Recorder persists the intercept audit trail.
type Recorder interface {
	Record(ctx context.Context, rec InterceptRecord) error
	List(ctx context.Context, limit int) ([]InterceptRecord, error)
}

// Enqueuer schedules background tasks. *asynq.Client satisfies it.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Service serves the approval collections and implements the gateway sink
// for intercepted deferrals.
type Service struct {
	upstream Upstream
	cache    *Cache
	recorder Recorder
	tasks    Enqueuer
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(upstream Upstream, cache *Cache, recorder Recorder, tasks Enqueuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{upstream: upstream, cache: cache, recorder: recorder, tasks: tasks, logger: logger}
}

// Pending returns the pending-approvals collection, cached until the
// interceptor invalidates it. The cache entry belongs to the caller's
// tenant scope: the upstream answers are tenant-scoped, so one tenant's
// collection must never be served to another.
func (s *Service) Pending(ctx context.Context) ([]Approval, error) {
	var out []Approval
	key := gateway.ScopedKey(CacheKeyPending, tenant.ScopeFromContext(ctx))
	err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.loadPending(ctx)
	})
	return out, err
}

// List returns the full approvals collection, cached per tenant scope
// until invalidated.
func (s *Service) List(ctx context.Context) ([]Approval, error) {
	var out []Approval
	key := gateway.ScopedKey(CacheKeyList, tenant.ScopeFromContext(ctx))
	err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.loadList(ctx)
	})
	return out, err
}

// History returns the locally audited interceptions.
func (s *Service) History(ctx context.Context, limit int) ([]InterceptRecord, error) {
	if s.recorder == nil {
		return nil, nil
	}
	return s.recorder.List(ctx, limit)
}

// WarmCaches refetches both collections from upstream, overwriting whatever
// is cached for the context's tenant scope. Run by the background worker
// after an invalidation; the worker carries the intercepted dispatch's
// scope in the task payload so the re-warm lands on the same partition the
// interceptor stale-marked.
func (s *Service) WarmCaches(ctx context.Context) error {
	scope := tenant.ScopeFromContext(ctx)
	if err := s.cache.Refresh(ctx, gateway.ScopedKey(CacheKeyPending, scope), nil, func(ctx context.Context) (any, error) {
		return s.loadPending(ctx)
	}); err != nil {
		return err
	}
	return s.cache.Refresh(ctx, gateway.ScopedKey(CacheKeyList, scope), nil, func(ctx context.Context) (any, error) {
		return s.loadList(ctx)
	})
}

// Intercepted implements gateway.Sink: audit the deferral exactly once and
// schedule a cache re-warm. Neither failure mode disturbs the caller's
// outcome; the signal has already been classified.
func (s *Service) Intercepted(ctx context.Context, pending gateway.PendingApproval) {
	if s.recorder != nil {
		rec := InterceptRecord{
			DispatchID: pending.DispatchID,
			Message:    pending.Message,
			Payload:    pending.Payload,
		}
		if p := authz.PrincipalFromContext(ctx); p != nil {
			rec.PrincipalID = p.ID
		}
		rec.TenantID = tenant.ScopeFromContext(ctx)
		if err := s.recorder.Record(ctx, rec); err != nil {
			if errors.Is(err, ErrAlreadyRecorded) {
				s.logger.Debug("intercept already audited", slog.String("dispatch_id", pending.DispatchID))
			} else {
				s.logger.Error("audit intercept", slog.Any("error", err))
			}
		}
	}
	if s.tasks != nil {
		task, err := NewRefreshTask(tenant.ScopeFromContext(ctx))
		if err != nil {
			s.logger.Error("build approvals refresh task", slog.Any("error", err))
			return
		}
		if _, err := s.tasks.Enqueue(task); err != nil {
			s.logger.Error("enqueue approvals refresh", slog.Any("error", err))
		}
	}
}

func (s *Service) loadPending(ctx context.Context) ([]Approval, error) {
	var out []Approval
	query := url.Values{"status": []string{"pending"}}
	if err := s.upstream.Get(ctx, "/approvals", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) loadList(ctx context.Context) ([]Approval, error) {
	var out []Approval
	if err := s.upstream.Get(ctx, "/approvals", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
