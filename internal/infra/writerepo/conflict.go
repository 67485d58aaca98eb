package writerepo

import (
	"context"

	"stayhub/internal/infra"
	"stayhub/internal/infra/db"
	"stayhub/internal/usecase/shared"
)

type ConflictRepository struct{}

func NewConflictRepository() *ConflictRepository {
	return &ConflictRepository{}
}

const recordConflictSQL = `
INSERT INTO reconciliation_conflicts (intent_id, event_id, source, reported_outcome, current_status, detail, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (r *ConflictRepository) Record(ctx context.Context, tx db.DBTX, c shared.ReconciliationConflict) error {
	_, err := tx.Exec(ctx, recordConflictSQL,
		c.IntentID,
		c.EventID,
		c.Source,
		string(c.ReportedOutcome),
		string(c.CurrentStatus),
		c.Detail,
		c.OccurredAt,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to record reconciliation conflict", err)
	}
	return nil
}
