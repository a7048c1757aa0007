package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"dogemint/internal/domain"
	"dogemint/internal/infra"
	"dogemint/internal/sqlinline"
)

// ChallengeRepositoryPG implements domain.ChallengeRepository.
type ChallengeRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewChallengeRepository creates the auth challenge repository.
func NewChallengeRepository(sql infra.SQLExecutor) *ChallengeRepositoryPG {
	return &ChallengeRepositoryPG{sql: sql}
}

// Create inserts a fresh single-use challenge.
func (r *ChallengeRepositoryPG) Create(ctx context.Context, c *domain.AuthChallenge) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertChallenge, c.ID, c.WalletAddress, c.Nonce, c.ExpiresAt)
	return err
}

// Redeem marks the challenge used iff it is still valid at now.
func (r *ChallengeRepositoryPG) Redeem(ctx context.Context, id string, now time.Time) (*domain.AuthChallenge, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QRedeemChallenge, id, now)
	var c domain.AuthChallenge
	if err := row.Scan(&c.ID, &c.WalletAddress, &c.Nonce, &c.Used, &c.ExpiresAt, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChallengeInvalid
		}
		return nil, err
	}
	return &c, nil
}

var _ domain.ChallengeRepository = (*ChallengeRepositoryPG)(nil)
