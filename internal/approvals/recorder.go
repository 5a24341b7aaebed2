package approvals

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAlreadyRecorded indicates the dispatch was audited before; interception
// side effects must not double-count a response.
var ErrAlreadyRecorded = errors.New("approvals: intercept already recorded")

// AuditRecorder persists the intercept audit trail in Postgres.
type AuditRecorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewAuditRecorder constructs an AuditRecorder.
func NewAuditRecorder(pool *pgxpool.Pool, logger *slog.Logger) *AuditRecorder {
	return &AuditRecorder{pool: pool, logger: logger}
}

// Record writes one intercept entry. The dispatch id is unique, so a replay
// of the same response surfaces as ErrAlreadyRecorded instead of a second
// row.
func (r *AuditRecorder) Record(ctx context.Context, rec InterceptRecord) error {
	if r == nil {
		return errors.New("approvals: recorder not initialised")
	}
	if rec.DispatchID == "" {
		return errors.New("approvals: dispatch id required")
	}
	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO approval_intercepts (dispatch_id, message, payload, principal_id, tenant_id, at)
VALUES ($1, $2, $3, $4, $5, $6)`, rec.DispatchID, rec.Message, rec.Payload, rec.PrincipalID, rec.TenantID, at)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyRecorded
		}
		if r.logger != nil {
			r.logger.Error("record intercept", slog.Any("error", err))
		}
		return err
	}
	return nil
}

// List returns the most recent intercepts, newest first.
func (r *AuditRecorder) List(ctx context.Context, limit int) ([]InterceptRecord, error) {
	if r == nil {
		return nil, errors.New("approvals: recorder not initialised")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT id, dispatch_id, message, payload, principal_id, tenant_id, at
FROM approval_intercepts ORDER BY at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []InterceptRecord
	for rows.Next() {
		var rec InterceptRecord
		if err := rows.Scan(&rec.ID, &rec.DispatchID, &rec.Message, &rec.Payload, &rec.PrincipalID, &rec.TenantID, &rec.At); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
