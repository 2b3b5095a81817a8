package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/mandadito/backend/internal/models"
)

type ClientRepo struct {
	db DBTX
}

func NewClientRepo(db DBTX) *ClientRepo {
	return &ClientRepo{db: db}
}

const clientColumns = `id, name, email, phone, city, password_hash, created_at, updated_at`

func scanClient(row pgx.Row) (*models.Client, error) {
	var c models.Client
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.City, &c.PasswordHash, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (r *ClientRepo) Create(ctx context.Context, c *models.Client) error {
	return mapErr(r.db.QueryRow(ctx, `
		INSERT INTO clients (name, email, phone, city, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, c.Name, c.Email, c.Phone, c.City, c.PasswordHash).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt))
}

func (r *ClientRepo) GetByID(ctx context.Context, id int64) (*models.Client, error) {
	return scanClient(r.db.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
}

func (r *ClientRepo) GetByEmail(ctx context.Context, email string) (*models.Client, error) {
	return scanClient(r.db.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE lower(email) = lower(trim($1))`, email))
}

func (r *ClientRepo) Update(ctx context.Context, c *models.Client) error {
	return mapErr(r.db.QueryRow(ctx, `
		UPDATE clients SET name = $2, email = $3, phone = $4, city = $5, password_hash = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, c.ID, c.Name, c.Email, c.Phone, c.City, c.PasswordHash).Scan(&c.UpdatedAt))
}

type TaskerRepo struct {
	db DBTX
}

func NewTaskerRepo(db DBTX) *TaskerRepo {
	return &TaskerRepo{db: db}
}

const taskerColumns = `id, name, email, phone, city, bio, has_license, approved, approved_at, password_hash, created_at, updated_at`

func scanTasker(row pgx.Row) (*models.Tasker, error) {
	var t models.Tasker
	if err := row.Scan(&t.ID, &t.Name, &t.Email, &t.Phone, &t.City, &t.Bio, &t.HasLicense, &t.Approved, &t.ApprovedAt, &t.PasswordHash, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (r *TaskerRepo) Create(ctx context.Context, t *models.Tasker) error {
	return mapErr(r.db.QueryRow(ctx, `
		INSERT INTO taskers (name, email, phone, city, bio, has_license, approved, approved_at, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, t.Name, t.Email, t.Phone, t.City, t.Bio, t.HasLicense, t.Approved, t.ApprovedAt, t.PasswordHash).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt))
}

func (r *TaskerRepo) GetByID(ctx context.Context, id int64) (*models.Tasker, error) {
	return scanTasker(r.db.QueryRow(ctx, `SELECT `+taskerColumns+` FROM taskers WHERE id = $1`, id))
}

func (r *TaskerRepo) GetByEmail(ctx context.Context, email string) (*models.Tasker, error) {
	return scanTasker(r.db.QueryRow(ctx, `SELECT `+taskerColumns+` FROM taskers WHERE lower(email) = lower(trim($1))`, email))
}

func (r *TaskerRepo) Update(ctx context.Context, t *models.Tasker) error {
	return mapErr(r.db.QueryRow(ctx, `
		UPDATE taskers SET name = $2, email = $3, phone = $4, city = $5, bio = $6, has_license = $7, approved = $8, approved_at = $9, password_hash = $10, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, t.ID, t.Name, t.Email, t.Phone, t.City, t.Bio, t.HasLicense, t.Approved, t.ApprovedAt, t.PasswordHash).Scan(&t.UpdatedAt))
}

// List returns taskers ordered by id; a nil approved returns all of them.
func (r *TaskerRepo) List(ctx context.Context, approved *bool) ([]*models.Tasker, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+taskerColumns+` FROM taskers
		WHERE $1::boolean IS NULL OR approved = $1
		ORDER BY id
	`, approved)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	list := []*models.Tasker{}
	for rows.Next() {
		t, err := scanTasker(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

type AdminRepo struct {
	db DBTX
}

func NewAdminRepo(db DBTX) *AdminRepo {
	return &AdminRepo{db: db}
}

const adminColumns = `id, name, email, password_hash, created_at, updated_at`

func scanAdmin(row pgx.Row) (*models.Admin, error) {
	var a models.Admin
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (r *AdminRepo) Create(ctx context.Context, a *models.Admin) error {
	return mapErr(r.db.QueryRow(ctx, `
		INSERT INTO admins (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, a.Name, a.Email, a.PasswordHash).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt))
}

func (r *AdminRepo) GetByID(ctx context.Context, id int64) (*models.Admin, error) {
	return scanAdmin(r.db.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = $1`, id))
}

func (r *AdminRepo) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	return scanAdmin(r.db.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE lower(email) = lower(trim($1))`, email))
}

type ResetTokenRepo struct {
	db DBTX
}

func NewResetTokenRepo(db DBTX) *ResetTokenRepo {
	return &ResetTokenRepo{db: db}
}

func (r *ResetTokenRepo) Create(ctx context.Context, p *models.PasswordResetToken) error {
	return mapErr(r.db.QueryRow(ctx, `
		INSERT INTO password_reset_tokens (email, token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, p.Email, p.Token, p.ExpiresAt).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt))
}

func (r *ResetTokenRepo) GetByToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	var p models.PasswordResetToken
	err := r.db.QueryRow(ctx, `
		SELECT id, email, token, expires_at, used_at, created_at, updated_at
		FROM password_reset_tokens WHERE token = trim($1)
	`, token).Scan(&p.ID, &p.Email, &p.Token, &p.ExpiresAt, &p.UsedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *ResetTokenRepo) Update(ctx context.Context, p *models.PasswordResetToken) error {
	return mapErr(r.db.QueryRow(ctx, `
		UPDATE password_reset_tokens SET used_at = $2, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, p.ID, p.UsedAt).Scan(&p.UpdatedAt))
}
