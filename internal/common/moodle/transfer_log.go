package moodle

import (
	"context"
	"fmt"

	"ehealth-workers/internal/common/database"
	"ehealth-workers/internal/models"
)

// TransferLogRepository persists one row per successful transfer. There is no
// unique key on completionid: a completion transferred twice is logged twice.
type TransferLogRepository struct {
	pg *database.PostgresClient
}

func NewTransferLogRepository(pg *database.PostgresClient) *TransferLogRepository {
	return &TransferLogRepository{pg: pg}
}

// Insert writes entry and returns the new row id.
func (r *TransferLogRepository) Insert(ctx context.Context, entry *models.TransferLogEntry) (int64, error) {
	var id int64
	err := r.pg.DB.QueryRowContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (userid, timecreated, completionid) VALUES ($1, $2, $3) RETURNING id`,
			r.pg.Table(models.TransferLogTable)),
		entry.UserID, entry.TimeCreated, entry.CompletionID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transfer log: %w", err)
	}
	entry.ID = id
	return id, nil
}

func (r *TransferLogRepository) CountByCompletion(ctx context.Context, completionID int64) (int, error) {
	var n int
	err := r.pg.DB.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE completionid = $1`, r.pg.Table(models.TransferLogTable)),
		completionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count transfer log rows: %w", err)
	}
	return n, nil
}
