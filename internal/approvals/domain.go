// Package approvals tracks mutations the upstream deferred for manual
// review: the cached pending/list collections the console serves, and a
// local audit trail of every intercepted deferral.
package approvals

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Cache key prefixes for the two collections the interceptor stale-marks
// whenever a mutation is deferred. Entries are partitioned per tenant scope
// via gateway.ScopedKey; the bare prefix names the system-wide variant.
const (
	CacheKeyPending = "approvals:pending"
	CacheKeyList    = "approvals:list"
)

// TaskApprovalsRefresh re-warms the approval caches after an invalidation.
const TaskApprovalsRefresh = "approvals:refresh"

type refreshPayload struct {
	TenantID *int64 `json:"tenant_id"`
}

// NewRefreshTask constructs the cache re-warm task for one tenant scope.
// A nil scope re-warms the system-wide collections.
func NewRefreshTask(scope *int64) (*asynq.Task, error) {
	data, err := json.Marshal(refreshPayload{TenantID: scope})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskApprovalsRefresh, data), nil
}

// RefreshScope extracts the tenant scope from a refresh task payload.
func RefreshScope(payload []byte) (*int64, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	var p refreshPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	return p.TenantID, nil
}

// Approval is one upstream approval request as served to the console.
type Approval struct {
	ID          int64     `json:"id"`
	Module      string    `json:"module"`
	Message     string    `json:"message"`
	Status      string    `json:"status"`
	RequestedBy int64     `json:"requested_by"`
	TenantID    int64     `json:"tenant_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// InterceptRecord is one locally audited approval interception.
type InterceptRecord struct {
	ID          int64
	DispatchID  string
	Message     string
	Payload     []byte
	PrincipalID int64
	TenantID    *int64
	At          time.Time
}
