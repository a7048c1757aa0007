package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"dogemint/internal/domain"
	"dogemint/internal/infra"
	"dogemint/internal/sqlinline"
)

// ArtifactRepositoryPG implements domain.ArtifactRepository.
type ArtifactRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewArtifactRepository creates an artifact repository backed by PostgreSQL.
func NewArtifactRepository(sql infra.SQLExecutor) *ArtifactRepositoryPG {
	return &ArtifactRepositoryPG{sql: sql}
}

// Create inserts a new artifact record.
func (r *ArtifactRepositoryPG) Create(ctx context.Context, a *domain.Artifact) error {
	traits, err := json.Marshal(a.Traits)
	if err != nil {
		return err
	}
	_, err = r.sql.Exec(ctx, sqlinline.QInsertArtifact,
		a.ID,
		a.TokenID,
		a.OwnerAddress,
		a.Status,
		a.Rarity,
		traits,
		a.ContentRef,
		a.PromptUsed,
	)
	return err
}

// GetByID fetches an artifact by its identifier.
func (r *ArtifactRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Artifact, error) {
	return r.scanOne(r.sql.QueryRow(ctx, sqlinline.QSelectArtifactByID, id))
}

// GetByTokenID fetches an artifact by its permanent token id.
func (r *ArtifactRepositoryPG) GetByTokenID(ctx context.Context, tokenID int64) (*domain.Artifact, error) {
	return r.scanOne(r.sql.QueryRow(ctx, sqlinline.QSelectArtifactByToken, tokenID))
}

// Finalize sets the inscription reference and CONFIRMED status at most once.
func (r *ArtifactRepositoryPG) Finalize(ctx context.Context, id string, res domain.InscriptionResult, at time.Time) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QFinalizeArtifact, id, res.InscriptionID, res.TxHash, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

// CountConfirmedByRarity aggregates confirmed artifacts per rarity tier.
func (r *ArtifactRepositoryPG) CountConfirmedByRarity(ctx context.Context) (map[domain.RarityTier]int64, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QCountConfirmedByRarity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.RarityTier]int64)
	for rows.Next() {
		var tier domain.RarityTier
		var n int64
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, err
		}
		counts[tier] = n
	}
	return counts, rows.Err()
}

func (r *ArtifactRepositoryPG) scanOne(row pgx.Row) (*domain.Artifact, error) {
	var a domain.Artifact
	var traits []byte
	if err := row.Scan(
		&a.ID,
		&a.TokenID,
		&a.OwnerAddress,
		&a.Status,
		&a.Rarity,
		&traits,
		&a.ContentRef,
		&a.PromptUsed,
		&a.InscriptionID,
		&a.InscriptionTx,
		&a.InscribedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(traits) > 0 {
		if err := json.Unmarshal(traits, &a.Traits); err != nil {
			return nil, err
		}
	}
	return &a, nil
}

var _ domain.ArtifactRepository = (*ArtifactRepositoryPG)(nil)
