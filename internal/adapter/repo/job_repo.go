package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"dogemint/internal/domain"
	"dogemint/internal/infra"
	"dogemint/internal/sqlinline"
)

// StepJobRepositoryPG implements domain.StepJobRepository: a durable queue in
// Postgres drained by the worker with FOR UPDATE SKIP LOCKED.
type StepJobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewStepJobRepository creates the step job repository.
func NewStepJobRepository(sql infra.SQLExecutor) *StepJobRepositoryPG {
	return &StepJobRepositoryPG{sql: sql}
}

// Enqueue inserts a queued step job for the session.
func (r *StepJobRepositoryPG) Enqueue(ctx context.Context, sessionID string, typ domain.StepType) error {
	_, err := r.sql.Exec(ctx, sqlinline.QEnqueueStepJob, uuid.NewString(), sessionID, typ)
	return err
}

// Claim picks the oldest queued job and marks it RUNNING.
func (r *StepJobRepositoryPG) Claim(ctx context.Context) (*domain.StepJob, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QClaimStepJob)
	var j domain.StepJob
	if err := row.Scan(
		&j.ID,
		&j.SessionID,
		&j.Type,
		&j.Status,
		&j.Attempts,
		&j.LastError,
		&j.CreatedAt,
		&j.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &j, nil
}

// Finish records the job's terminal status.
func (r *StepJobRepositoryPG) Finish(ctx context.Context, id string, status domain.StepStatus, lastError string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QFinishStepJob, id, status, lastError)
	return err
}

// RequeueStale returns RUNNING jobs whose lease lapsed back to QUEUED.
func (r *StepJobRepositoryPG) RequeueStale(ctx context.Context, lease time.Duration) (int64, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QRequeueStaleJobs, time.Now().Add(-lease))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ domain.StepJobRepository = (*StepJobRepositoryPG)(nil)
