package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/store"
)

type TaskRepo struct {
	db DBTX
}

func NewTaskRepo(db DBTX) *TaskRepo {
	return &TaskRepo{db: db}
}

const taskColumns = `id, client_id, tasker_id, service_type, description, lat, lon, address, city, requested_datetime, requires_license, agreed_amount, platform_fee_rate, state, application_response_window, work_started_at, work_completed_at, client_payment_confirmed_at, auto_confirmed, tasker_payment_received, tasker_payment_received_at, admin_approved, created_at, updated_at`

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.ClientID, &t.TaskerID, &t.ServiceType, &t.Description, &t.Location.Lat, &t.Location.Lon, &t.Location.Address, &t.Location.City, &t.RequestedAt, &t.RequiresLicense, &t.AgreedAmount, &t.PlatformFeeRate, &t.State, &t.ApplicationResponseWindow, &t.WorkStartedAt, &t.WorkCompletedAt, &t.ClientPaymentConfirmedAt, &t.AutoConfirmed, &t.TaskerPaymentReceived, &t.TaskerPaymentReceivedAt, &t.AdminApproved, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepo) Create(ctx context.Context, t *models.Task) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO tasks (client_id, tasker_id, service_type, description, lat, lon, address, city, requested_datetime, requires_license, agreed_amount, platform_fee_rate, state, application_response_window, admin_approved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`, t.ClientID, t.TaskerID, t.ServiceType, t.Description, t.Location.Lat, t.Location.Lon, t.Location.Address, t.Location.City, t.RequestedAt, t.RequiresLicense, t.AgreedAmount, t.PlatformFeeRate, t.State, t.ApplicationResponseWindow, t.AdminApproved).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	return mapErr(err)
}

func (r *TaskRepo) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	t, err := scanTask(r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return t, nil
}

func (r *TaskRepo) Update(ctx context.Context, t *models.Task) error {
	return mapErr(r.db.QueryRow(ctx, `
		UPDATE tasks SET tasker_id = $2, service_type = $3, description = $4, lat = $5, lon = $6, address = $7, city = $8, requested_datetime = $9, requires_license = $10, agreed_amount = $11, platform_fee_rate = $12, state = $13, application_response_window = $14, work_started_at = $15, work_completed_at = $16, client_payment_confirmed_at = $17, auto_confirmed = $18, tasker_payment_received = $19, tasker_payment_received_at = $20, admin_approved = $21, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, t.ID, t.TaskerID, t.ServiceType, t.Description, t.Location.Lat, t.Location.Lon, t.Location.Address, t.Location.City, t.RequestedAt, t.RequiresLicense, t.AgreedAmount, t.PlatformFeeRate, t.State, t.ApplicationResponseWindow, t.WorkStartedAt, t.WorkCompletedAt, t.ClientPaymentConfirmedAt, t.AutoConfirmed, t.TaskerPaymentReceived, t.TaskerPaymentReceivedAt, t.AdminApproved).Scan(&t.UpdatedAt))
}

func (r *TaskRepo) List(ctx context.Context, f store.TaskFilter) ([]*models.Task, int, error) {
	where, args := taskWhere(f)
	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM tasks`+where, args...).Scan(&total); err != nil {
		return nil, 0, mapErr(err)
	}
	q := `SELECT ` + taskColumns + ` FROM tasks` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	defer rows.Close()
	list := []*models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, t)
	}
	return list, total, rows.Err()
}

// taskWhere renders f as a WHERE clause with positional arguments.
func taskWhere(f store.TaskFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.ClientID != nil {
		add("client_id = $%d", *f.ClientID)
	}
	if f.TaskerID != nil {
		add("tasker_id = $%d", *f.TaskerID)
	}
	if f.ExcludeClientID != nil {
		add("client_id <> $%d", *f.ExcludeClientID)
	}
	if len(f.States) > 0 {
		states := make([]string, len(f.States))
		for i, s := range f.States {
			states[i] = string(s)
		}
		add("state = ANY($%d)", states)
	}
	if f.ServiceType != "" {
		add("service_type = $%d", string(f.ServiceType))
	}
	if f.MinAmount != nil {
		add("agreed_amount >= $%d", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		add("agreed_amount <= $%d", *f.MaxAmount)
	}
	if f.RequestedFrom != nil {
		add("requested_datetime >= $%d", *f.RequestedFrom)
	}
	if f.RequestedTo != nil {
		add("requested_datetime <= $%d", *f.RequestedTo)
	}
	if f.RequiresLicense != nil {
		add("requires_license = $%d", *f.RequiresLicense)
	}
	if f.City != "" {
		add("lower(trim(city)) = lower(trim($%d))", f.City)
	}
	if f.AdminApprovedOnly {
		conds = append(conds, "admin_approved")
	}
	if f.CompletedBefore != nil {
		add("work_completed_at <= $%d", *f.CompletedBefore)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
