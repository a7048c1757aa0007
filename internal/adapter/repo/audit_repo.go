package repo

import (
	"context"

	"dogemint/internal/domain"
	"dogemint/internal/infra"
	"dogemint/internal/sqlinline"
)

// AuditRepositoryPG appends session transitions to the mint_events log.
type AuditRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewAuditRepository creates the audit log repository.
func NewAuditRepository(sql infra.SQLExecutor) *AuditRepositoryPG {
	return &AuditRepositoryPG{sql: sql}
}

// Record appends one transition. The log is advisory: correctness never
// depends on it, so callers may ignore the error after logging it.
func (r *AuditRepositoryPG) Record(ctx context.Context, sessionID string, from, to domain.SessionStatus, detail string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertMintEvent, sessionID, from, to, detail)
	return err
}

var _ domain.AuditRepository = (*AuditRepositoryPG)(nil)
