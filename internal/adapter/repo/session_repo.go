package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"dogemint/internal/domain"
	"dogemint/internal/infra"
	"dogemint/internal/sqlinline"
)

// pgUniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// SessionRepositoryPG implements domain.SessionRepository.
type SessionRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewSessionRepository creates a session repository backed by PostgreSQL.
func NewSessionRepository(sql infra.SQLExecutor) *SessionRepositoryPG {
	return &SessionRepositoryPG{sql: sql}
}

// Create inserts a new mint session record. A unique violation on the
// wallet's active-session index means a concurrent start won the race and
// surfaces as domain.ErrActiveSession.
func (r *SessionRepositoryPG) Create(ctx context.Context, s *domain.MintSession) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertSession,
		s.ID,
		s.WalletAddress,
		s.Status,
		s.Progress,
		s.StatusMessage,
		s.TokenID,
		s.AmountKoinu,
		s.ExpiresAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return domain.ErrActiveSession
	}
	return err
}

// GetByID fetches a session by its identifier.
func (r *SessionRepositoryPG) GetByID(ctx context.Context, id string) (*domain.MintSession, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectSession, id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// HasActive reports whether the wallet owns a non-terminal session.
func (r *SessionRepositoryPG) HasActive(ctx context.Context, walletAddress string) (bool, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QHasActiveSession, walletAddress)
	var active bool
	if err := row.Scan(&active); err != nil {
		return false, err
	}
	return active, nil
}

// UpdateIf applies the patch only when the stored status still equals expect.
func (r *SessionRepositoryPG) UpdateIf(ctx context.Context, id string, expect domain.SessionStatus, patch domain.SessionPatch) (*domain.MintSession, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QUpdateSessionIf,
		id,
		expect,
		patch.Status,
		patch.Progress,
		patch.StatusMessage,
		patch.ErrorCode,
		patch.ErrorMessage,
		patch.ArtifactID,
		patch.PaymentAddress,
		patch.AmountKoinu,
		patch.PaymentTxRef,
		patch.PaymentAt,
		patch.CompletedAt,
	)
	s, err := scanSession(row)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	// The guarded update matched nothing: either the session is gone or its
	// status moved underneath us.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, domain.ErrConflict
}

// ExpireOverdue sweeps non-terminal sessions past their deadline.
func (r *SessionRepositoryPG) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QExpireOverdueSessions, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*domain.MintSession, error) {
	var s domain.MintSession
	if err := row.Scan(
		&s.ID,
		&s.WalletAddress,
		&s.Status,
		&s.Progress,
		&s.StatusMessage,
		&s.ErrorCode,
		&s.ErrorMessage,
		&s.TokenID,
		&s.ArtifactID,
		&s.PaymentAddress,
		&s.AmountKoinu,
		&s.PaymentTxRef,
		&s.PaymentAt,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.ExpiresAt,
		&s.CompletedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

var _ domain.SessionRepository = (*SessionRepositoryPG)(nil)
