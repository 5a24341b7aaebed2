package approvals

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/atrium-console/atrium/internal/authz"
	"github.com/atrium-console/atrium/internal/gateway"
	"github.com/atrium-console/atrium/internal/tenant"
)

// stubUpstream answers like the platform API: scoped dispatches only see
// their own tenant's rows, unscoped dispatches see everything.
type stubUpstream struct {
	mu    sync.Mutex
	calls int
	items []Approval
}

func (u *stubUpstream) Get(ctx context.Context, path string, query url.Values, dest any) error {
	u.mu.Lock()
	u.calls++
	items := append([]Approval(nil), u.items...)
	u.mu.Unlock()
	if scope := tenant.ScopeFromContext(ctx); scope != nil {
		scoped := items[:0]
		for _, item := range items {
			if item.TenantID == *scope {
				scoped = append(scoped, item)
			}
		}
		items = scoped
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

type memoryRecorder struct {
	mu      sync.Mutex
	records []InterceptRecord
}

func (r *memoryRecorder) Record(ctx context.Context, rec InterceptRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.records {
		if existing.DispatchID == rec.DispatchID {
			return ErrAlreadyRecorded
		}
	}
	rec.ID = int64(len(r.records) + 1)
	r.records = append(r.records, rec)
	return nil
}

func (r *memoryRecorder) List(ctx context.Context, limit int) ([]InterceptRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]InterceptRecord(nil), r.records...)
	return out, nil
}

type memoryEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (e *memoryEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasks = append(e.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func newTestService(t *testing.T) (*Service, *stubUpstream, *memoryRecorder, *memoryEnqueuer, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	upstream := &stubUpstream{items: []Approval{{
		ID: 1, Module: "roles", Message: "Pending review", Status: "pending", CreatedAt: time.Now().UTC(),
	}}}
	recorder := &memoryRecorder{}
	enqueuer := &memoryEnqueuer{}
	svc := NewService(upstream, NewCache(client, time.Minute), recorder, enqueuer, slog.Default())
	return svc, upstream, recorder, enqueuer, client
}

func TestPendingIsServedFromCacheUntilInvalidated(t *testing.T) {
	svc, upstream, _, _, client := newTestService(t)
	ctx := context.Background()

	first, err := svc.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	_, err = svc.Pending(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, upstream.calls, "second read must hit the cache")

	// Invalidation (what the interceptor does) forces a refetch.
	require.NoError(t, client.Del(ctx, CacheKeyPending).Err())
	_, err = svc.Pending(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, upstream.calls)
}

func TestInterceptedAuditsOncePerDispatch(t *testing.T) {
	svc, _, recorder, enqueuer, _ := newTestService(t)

	five := int64(5)
	ctx := authz.ContextWithPrincipal(context.Background(), &authz.Principal{ID: 7, TenantID: 42, Role: authz.Role{Slug: "editor"}})
	ctx = tenant.ContextWithScope(ctx, &five)

	pending := gateway.PendingApproval{
		Message:    "Pending review",
		Payload:    json.RawMessage(`{"request_id":17}`),
		DispatchID: "d-1",
	}
	svc.Intercepted(ctx, pending)
	svc.Intercepted(ctx, pending) // replay must not double-count

	require.Len(t, recorder.records, 1)
	rec := recorder.records[0]
	require.Equal(t, "d-1", rec.DispatchID)
	require.EqualValues(t, 7, rec.PrincipalID)
	require.NotNil(t, rec.TenantID)
	require.EqualValues(t, 5, *rec.TenantID)

	require.Len(t, enqueuer.tasks, 2, "each interception schedules a re-warm")
	require.Equal(t, TaskApprovalsRefresh, enqueuer.tasks[0].Type())

	// The re-warm targets the intercepted dispatch's scope.
	scope, err := RefreshScope(enqueuer.tasks[0].Payload())
	require.NoError(t, err)
	require.NotNil(t, scope)
	require.EqualValues(t, 5, *scope)
}

func TestWarmCachesOverwritesStaleEntries(t *testing.T) {
	svc, upstream, _, _, client := newTestService(t)
	ctx := context.Background()

	_, err := svc.Pending(ctx)
	require.NoError(t, err)

	upstream.mu.Lock()
	upstream.items = append(upstream.items, Approval{ID: 2, Module: "users", Status: "pending"})
	upstream.mu.Unlock()

	require.NoError(t, svc.WarmCaches(ctx))

	// The cache now holds the fresh collection without another upstream hit.
	before := upstream.calls
	items, err := svc.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, before, upstream.calls)

	raw, err := client.Get(ctx, CacheKeyList).Bytes()
	require.NoError(t, err)
	var listed []Approval
	require.NoError(t, json.Unmarshal(raw, &listed))
	require.Len(t, listed, 2)
}

func TestPendingCacheIsPartitionedByTenantScope(t *testing.T) {
	svc, upstream, _, _, _ := newTestService(t)
	upstream.mu.Lock()
	upstream.items = []Approval{
		{ID: 1, Module: "roles", Status: "pending", TenantID: 5},
		{ID: 2, Module: "users", Status: "pending", TenantID: 42},
	}
	upstream.mu.Unlock()

	five, fortyTwo := int64(5), int64(42)
	ctxFive := tenant.ContextWithScope(context.Background(), &five)
	ctxFortyTwo := tenant.ContextWithScope(context.Background(), &fortyTwo)

	first, err := svc.Pending(ctxFive)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.EqualValues(t, 5, first[0].TenantID)

	// A different tenant must get its own collection, never the entry the
	// first tenant populated.
	second, err := svc.Pending(ctxFortyTwo)
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.EqualValues(t, 42, second[0].TenantID)

	// Both partitions are warm now: repeat reads stay cached.
	calls := upstream.calls
	_, err = svc.Pending(ctxFive)
	require.NoError(t, err)
	_, err = svc.Pending(ctxFortyTwo)
	require.NoError(t, err)
	require.Equal(t, calls, upstream.calls)
}

func TestUnscopedWarmCachesLeavesTenantPartitionsAlone(t *testing.T) {
	svc, upstream, _, _, _ := newTestService(t)
	upstream.mu.Lock()
	upstream.items = []Approval{
		{ID: 1, Module: "roles", Status: "pending", TenantID: 5},
		{ID: 2, Module: "users", Status: "pending", TenantID: 42},
	}
	upstream.mu.Unlock()

	five := int64(5)
	ctxFive := tenant.ContextWithScope(context.Background(), &five)
	_, err := svc.Pending(ctxFive)
	require.NoError(t, err)

	// A system-wide re-warm writes only the unscoped partition.
	require.NoError(t, svc.WarmCaches(context.Background()))

	items, err := svc.Pending(ctxFive)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.EqualValues(t, 5, items[0].TenantID)

	all, err := svc.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
}
