package models

import "time"

type RequestKind string

const (
	RequestKindApplication RequestKind = "APPLICATION"
	RequestKindInvitation  RequestKind = "INVITATION"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusAccepted RequestStatus = "ACCEPTED"
	RequestStatusRejected RequestStatus = "REJECTED"
	RequestStatusExpired  RequestStatus = "EXPIRED"
)

// TaskRequest links a tasker to a pending task: either the tasker applied
// (APPLICATION) or the client invited them (INVITATION).
type TaskRequest struct {
	ID        int64         `json:"id"`
	TaskID    int64         `json:"task_id"`
	TaskerID  int64         `json:"tasker_id"`
	ClientID  int64         `json:"client_id"`
	Kind      RequestKind   `json:"kind"`
	Status    RequestStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (r *TaskRequest) IsPending() bool { return r.Status == RequestStatusPending }

func (r *TaskRequest) GetID() int64              { return r.ID }
func (r *TaskRequest) SetID(id int64)            { r.ID = id }
func (r *TaskRequest) SetCreatedAt(at time.Time) { r.CreatedAt = at }
func (r *TaskRequest) SetUpdatedAt(at time.Time) { r.UpdatedAt = at }
