package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/store"
)

type RatingRepo struct {
	db DBTX
}

func NewRatingRepo(db DBTX) *RatingRepo {
	return &RatingRepo{db: db}
}

const ratingColumns = `id, task_id, rater_id, rater_role, rated_id, rated_role, stars, punctuality, quality, communication, professionalism, comment, created_at, updated_at`

func scanRating(row pgx.Row) (*models.Rating, error) {
	var r models.Rating
	if err := row.Scan(&r.ID, &r.TaskID, &r.RaterID, &r.RaterRole, &r.RatedID, &r.RatedRole, &r.Stars, &r.Punctuality, &r.Quality, &r.Communication, &r.Professionalism, &r.Comment, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *RatingRepo) Create(ctx context.Context, rt *models.Rating) error {
	return mapErr(r.db.QueryRow(ctx, `
		INSERT INTO ratings (task_id, rater_id, rater_role, rated_id, rated_role, stars, punctuality, quality, communication, professionalism, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`, rt.TaskID, rt.RaterID, rt.RaterRole, rt.RatedID, rt.RatedRole, rt.Stars, rt.Punctuality, rt.Quality, rt.Communication, rt.Professionalism, rt.Comment).Scan(&rt.ID, &rt.CreatedAt, &rt.UpdatedAt))
}

// Update rewrites the scores and comment; who rated whom never changes.
func (r *RatingRepo) Update(ctx context.Context, rt *models.Rating) error {
	return mapErr(r.db.QueryRow(ctx, `
		UPDATE ratings SET stars = $2, punctuality = $3, quality = $4, communication = $5, professionalism = $6, comment = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, rt.ID, rt.Stars, rt.Punctuality, rt.Quality, rt.Communication, rt.Professionalism, rt.Comment).Scan(&rt.UpdatedAt))
}

func (r *RatingRepo) Find(ctx context.Context, f store.RatingFilter) ([]*models.Rating, error) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.TaskID != nil {
		add("task_id = $%d", *f.TaskID)
	}
	if f.RaterID != nil {
		add("rater_id = $%d", *f.RaterID)
	}
	if f.RaterRole != "" {
		add("rater_role = $%d", string(f.RaterRole))
	}
	if f.RatedID != nil {
		add("rated_id = $%d", *f.RatedID)
	}
	if f.RatedRole != "" {
		add("rated_role = $%d", string(f.RatedRole))
	}
	q := `SELECT ` + ratingColumns + ` FROM ratings`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	rows, err := r.db.Query(ctx, q+" ORDER BY id", args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	list := []*models.Rating{}
	for rows.Next() {
		rt, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, rt)
	}
	return list, rows.Err()
}
