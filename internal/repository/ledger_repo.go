package repository

import (
	"context"

	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/store"
)

type LedgerRepo struct {
	db DBTX
}

func NewLedgerRepo(db DBTX) *LedgerRepo {
	return &LedgerRepo{db: db}
}

func (r *LedgerRepo) Create(ctx context.Context, e *models.LedgerEntry) error {
	return mapErr(r.db.QueryRow(ctx, `
		INSERT INTO ledger_entries (task_id, tasker_id, entry_type, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, e.TaskID, e.TaskerID, e.EntryType, e.Amount).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt))
}

func (r *LedgerRepo) Find(ctx context.Context, f store.LedgerFilter) ([]*models.LedgerEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, task_id, tasker_id, entry_type, amount, created_at, updated_at
		FROM ledger_entries
		WHERE ($1::bigint IS NULL OR task_id = $1) AND ($2::bigint IS NULL OR tasker_id = $2)
		ORDER BY id
	`, f.TaskID, f.TaskerID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	list := []*models.LedgerEntry{}
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.TaskID, &e.TaskerID, &e.EntryType, &e.Amount, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
