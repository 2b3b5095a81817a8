package store

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mandadito/backend/internal/models"
)

// TaskFilter selects tasks. Zero-valued fields do not filter.
type TaskFilter struct {
	ClientID          *int64
	TaskerID          *int64
	ExcludeClientID   *int64
	States            []models.TaskState
	ServiceType       models.ServiceType
	MinAmount         *decimal.Decimal
	MaxAmount         *decimal.Decimal
	RequestedFrom     *time.Time
	RequestedTo       *time.Time
	RequiresLicense   *bool
	City              string
	AdminApprovedOnly bool
	// CompletedBefore keeps tasks whose work_completed_at is at or before the instant.
	CompletedBefore *time.Time
	Limit           int
	Offset          int
}

func (f TaskFilter) Match(t *models.Task) bool {
	if f.ClientID != nil && t.ClientID != *f.ClientID {
		return false
	}
	if f.TaskerID != nil && !t.IsAssignedTo(*f.TaskerID) {
		return false
	}
	if f.ExcludeClientID != nil && t.ClientID == *f.ExcludeClientID {
		return false
	}
	if len(f.States) > 0 && !containsState(f.States, t.State) {
		return false
	}
	if f.ServiceType != "" && t.ServiceType != f.ServiceType {
		return false
	}
	if f.MinAmount != nil && t.AgreedAmount.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && t.AgreedAmount.GreaterThan(*f.MaxAmount) {
		return false
	}
	if f.RequestedFrom != nil && t.RequestedAt.Before(*f.RequestedFrom) {
		return false
	}
	if f.RequestedTo != nil && t.RequestedAt.After(*f.RequestedTo) {
		return false
	}
	if f.RequiresLicense != nil && t.RequiresLicense != *f.RequiresLicense {
		return false
	}
	if f.City != "" && !strings.EqualFold(strings.TrimSpace(t.Location.City), strings.TrimSpace(f.City)) {
		return false
	}
	if f.AdminApprovedOnly && !t.AdminApproved {
		return false
	}
	if f.CompletedBefore != nil && (t.WorkCompletedAt == nil || t.WorkCompletedAt.After(*f.CompletedBefore)) {
		return false
	}
	return true
}

func containsState(states []models.TaskState, s models.TaskState) bool {
	for _, st := range states {
		if st == s {
			return true
		}
	}
	return false
}

type RequestFilter struct {
	TaskID   *int64
	TaskerID *int64
	Kind     models.RequestKind
	Status   models.RequestStatus
}

func (f RequestFilter) Match(r *models.TaskRequest) bool {
	if f.TaskID != nil && r.TaskID != *f.TaskID {
		return false
	}
	if f.TaskerID != nil && r.TaskerID != *f.TaskerID {
		return false
	}
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

type RatingFilter struct {
	TaskID    *int64
	RaterID   *int64
	RaterRole models.Role
	RatedID   *int64
	RatedRole models.Role
}

func (f RatingFilter) Match(r *models.Rating) bool {
	if f.TaskID != nil && r.TaskID != *f.TaskID {
		return false
	}
	if f.RaterID != nil && r.RaterID != *f.RaterID {
		return false
	}
	if f.RaterRole != "" && r.RaterRole != f.RaterRole {
		return false
	}
	if f.RatedID != nil && r.RatedID != *f.RatedID {
		return false
	}
	if f.RatedRole != "" && r.RatedRole != f.RatedRole {
		return false
	}
	return true
}

type LedgerFilter struct {
	TaskID   *int64
	TaskerID *int64
}

func (f LedgerFilter) Match(e *models.LedgerEntry) bool {
	if f.TaskID != nil && e.TaskID != *f.TaskID {
		return false
	}
	if f.TaskerID != nil && e.TaskerID != *f.TaskerID {
		return false
	}
	return true
}
