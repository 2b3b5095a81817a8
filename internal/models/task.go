package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TaskState string

// Task lifecycle states. PENDING is initial; COMPLETED and CANCELLED are terminal.
const (
	TaskStatePending                     TaskState = "PENDING"
	TaskStateAssigned                    TaskState = "ASSIGNED"
	TaskStateInProgress                  TaskState = "IN_PROGRESS"
	TaskStateAwaitingPaymentConfirmation TaskState = "AWAITING_PAYMENT_CONFIRMATION"
	TaskStateCompleted                   TaskState = "COMPLETED"
	TaskStateCancelled                   TaskState = "CANCELLED"
)

var taskStateOrder = map[TaskState]int{
	TaskStatePending:                     0,
	TaskStateAssigned:                    1,
	TaskStateInProgress:                  2,
	TaskStateAwaitingPaymentConfirmation: 3,
	TaskStateCompleted:                   4,
}

func (s TaskState) Valid() bool {
	if s == TaskStateCancelled {
		return true
	}
	_, ok := taskStateOrder[s]
	return ok
}

func (s TaskState) Terminal() bool {
	return s == TaskStateCompleted || s == TaskStateCancelled
}

// CanAdvanceTo reports whether moving from s to next keeps the lifecycle monotonic.
// CANCELLED is reachable from any non-terminal state.
func (s TaskState) CanAdvanceTo(next TaskState) bool {
	if s.Terminal() {
		return false
	}
	if next == TaskStateCancelled {
		return true
	}
	from, ok := taskStateOrder[s]
	if !ok {
		return false
	}
	to, ok := taskStateOrder[next]
	return ok && to == from+1
}

type ServiceType string

const (
	ServiceTypeExpress    ServiceType = "EXPRESS"
	ServiceTypeSpecialist ServiceType = "SPECIALIST"
)

func (t ServiceType) Valid() bool {
	return t == ServiceTypeExpress || t == ServiceTypeSpecialist
}

// DefaultPlatformFeeRate is fixed on every task at creation time.
var DefaultPlatformFeeRate = decimal.RequireFromString("0.05")

type Location struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Address string  `json:"address"`
	City    string  `json:"city"`
}

type Task struct {
	ID                        int64           `json:"id"`
	ClientID                  int64           `json:"client_id"`
	TaskerID                  *int64          `json:"tasker_id"`
	ServiceType               ServiceType     `json:"service_type"`
	Description               string          `json:"description"`
	Location                  Location        `json:"location"`
	RequestedAt               time.Time       `json:"requested_datetime"`
	RequiresLicense           bool            `json:"requires_license"`
	AgreedAmount              decimal.Decimal `json:"agreed_amount"`
	PlatformFeeRate           decimal.Decimal `json:"platform_fee_rate"`
	State                     TaskState       `json:"state"`
	ApplicationResponseWindow *time.Time      `json:"application_response_window,omitempty"`
	WorkStartedAt             *time.Time      `json:"work_started_at"`
	WorkCompletedAt           *time.Time      `json:"work_completed_at"`
	ClientPaymentConfirmedAt  *time.Time      `json:"client_payment_confirmed_at"`
	AutoConfirmed             bool            `json:"auto_confirmed"`
	TaskerPaymentReceived     bool            `json:"tasker_payment_received"`
	TaskerPaymentReceivedAt   *time.Time      `json:"tasker_payment_received_at"`
	AdminApproved             bool            `json:"admin_approved"`
	CreatedAt                 time.Time       `json:"created_at"`
	UpdatedAt                 time.Time       `json:"updated_at"`
}

// TaskerNetAmount is agreed_amount × (1 − platform_fee_rate). It is always derived, never stored.
func (t *Task) TaskerNetAmount() decimal.Decimal {
	return t.AgreedAmount.Sub(t.PlatformFeeAmount())
}

// PlatformFeeAmount is the platform's share of the agreed amount.
func (t *Task) PlatformFeeAmount() decimal.Decimal {
	return t.AgreedAmount.Mul(t.PlatformFeeRate)
}

func (t *Task) IsAssignedTo(taskerID int64) bool {
	return t.TaskerID != nil && *t.TaskerID == taskerID
}

// ClientConfirmed reports whether the client side of the payment handshake is done,
// either by the client or by auto-confirmation.
func (t *Task) ClientConfirmed() bool {
	return t.ClientPaymentConfirmedAt != nil
}

// BothConfirmed reports whether the task may move to COMPLETED.
func (t *Task) BothConfirmed() bool {
	return t.ClientConfirmed() && t.TaskerPaymentReceived
}

// Clone returns a copy that shares no pointers with t.
func (t *Task) Clone() *Task {
	cp := *t
	cp.TaskerID = cloneInt64(t.TaskerID)
	cp.ApplicationResponseWindow = cloneTime(t.ApplicationResponseWindow)
	cp.WorkStartedAt = cloneTime(t.WorkStartedAt)
	cp.WorkCompletedAt = cloneTime(t.WorkCompletedAt)
	cp.ClientPaymentConfirmedAt = cloneTime(t.ClientPaymentConfirmedAt)
	cp.TaskerPaymentReceivedAt = cloneTime(t.TaskerPaymentReceivedAt)
	return &cp
}

func (t *Task) GetID() int64              { return t.ID }
func (t *Task) SetID(id int64)            { t.ID = id }
func (t *Task) SetCreatedAt(at time.Time) { t.CreatedAt = at }
func (t *Task) SetUpdatedAt(at time.Time) { t.UpdatedAt = at }

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func Int64Ptr(v int64) *int64 { return &v }

func TimePtr(v time.Time) *time.Time { return &v }
