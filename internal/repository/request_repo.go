package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/store"
)

type RequestRepo struct {
	db DBTX
}

func NewRequestRepo(db DBTX) *RequestRepo {
	return &RequestRepo{db: db}
}

const requestColumns = `id, task_id, tasker_id, client_id, kind, status, created_at, updated_at`

func scanRequest(row pgx.Row) (*models.TaskRequest, error) {
	var r models.TaskRequest
	if err := row.Scan(&r.ID, &r.TaskID, &r.TaskerID, &r.ClientID, &r.Kind, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *RequestRepo) Create(ctx context.Context, req *models.TaskRequest) error {
	return mapErr(r.db.QueryRow(ctx, `
		INSERT INTO task_requests (task_id, tasker_id, client_id, kind, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, req.TaskID, req.TaskerID, req.ClientID, req.Kind, req.Status).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt))
}

func (r *RequestRepo) GetByID(ctx context.Context, id int64) (*models.TaskRequest, error) {
	req, err := scanRequest(r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM task_requests WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return req, nil
}

func (r *RequestRepo) Update(ctx context.Context, req *models.TaskRequest) error {
	return mapErr(r.db.QueryRow(ctx, `
		UPDATE task_requests SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, req.ID, req.Status).Scan(&req.UpdatedAt))
}

func (r *RequestRepo) Find(ctx context.Context, f store.RequestFilter) ([]*models.TaskRequest, error) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.TaskID != nil {
		add("task_id = $%d", *f.TaskID)
	}
	if f.TaskerID != nil {
		add("tasker_id = $%d", *f.TaskerID)
	}
	if f.Kind != "" {
		add("kind = $%d", string(f.Kind))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	q := `SELECT ` + requestColumns + ` FROM task_requests`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	rows, err := r.db.Query(ctx, q+" ORDER BY id", args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	list := []*models.TaskRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, req)
	}
	return list, rows.Err()
}
