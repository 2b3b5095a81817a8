package models

import "time"

type Role string

const (
	RoleClient Role = "client"
	RoleTasker Role = "tasker"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleClient || r == RoleTasker || r == RoleAdmin
}

// Rating is one participant's review of the other participant of a completed task.
// Sub-scores are optional; Stars is required.
type Rating struct {
	ID              int64     `json:"id"`
	TaskID          int64     `json:"task_id"`
	RaterID         int64     `json:"rater_id"`
	RaterRole       Role      `json:"rater_role"`
	RatedID         int64     `json:"rated_id"`
	RatedRole       Role      `json:"rated_role"`
	Stars           int       `json:"stars"`
	Punctuality     *int      `json:"punctuality,omitempty"`
	Quality         *int      `json:"quality,omitempty"`
	Communication   *int      `json:"communication,omitempty"`
	Professionalism *int      `json:"professionalism,omitempty"`
	Comment         *string   `json:"comment,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (r *Rating) GetID() int64              { return r.ID }
func (r *Rating) SetID(id int64)            { r.ID = id }
func (r *Rating) SetCreatedAt(at time.Time) { r.CreatedAt = at }
func (r *Rating) SetUpdatedAt(at time.Time) { r.UpdatedAt = at }

// RatingSummary aggregates the ratings received by one user in one role.
type RatingSummary struct {
	RatedID      int64   `json:"rated_id"`
	RatedRole    Role    `json:"rated_role"`
	Count        int     `json:"count"`
	AverageStars float64 `json:"average_stars"`
}
