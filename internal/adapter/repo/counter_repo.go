package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"dogemint/internal/domain"
	"dogemint/internal/infra"
	"dogemint/internal/sqlinline"
)

// TokenCounterRepositoryPG implements domain.TokenCounterRepository against
// the single counter row. The conditional UPDATE ... RETURNING is the
// compare-and-swap: Postgres serializes writers on the row lock, so no two
// callers ever see the same value and nothing past max_supply is issued.
type TokenCounterRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewTokenCounterRepository creates the token counter repository.
func NewTokenCounterRepository(sql infra.SQLExecutor) *TokenCounterRepositoryPG {
	return &TokenCounterRepositoryPG{sql: sql}
}

// Allocate hands out the next token id or ErrSoldOut.
func (r *TokenCounterRepositoryPG) Allocate(ctx context.Context) (int64, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QAllocateToken)
	var issued int64
	if err := row.Scan(&issued); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrSoldOut
		}
		return 0, err
	}
	return issued, nil
}

// Remaining returns how many token ids are still unissued.
func (r *TokenCounterRepositoryPG) Remaining(ctx context.Context) (int64, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QCounterRemaining)
	var remaining, maxSupply int64
	if err := row.Scan(&remaining, &maxSupply); err != nil {
		return 0, err
	}
	return remaining, nil
}

var _ domain.TokenCounterRepository = (*TokenCounterRepositoryPG)(nil)
