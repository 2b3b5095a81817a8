package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger entry types written when a task settles.
const (
	LedgerEntryTaskerEarning = "tasker_earning"
	LedgerEntryPlatformFee   = "platform_fee"
)

type LedgerEntry struct {
	ID        int64           `json:"id"`
	TaskID    int64           `json:"task_id"`
	TaskerID  int64           `json:"tasker_id"`
	EntryType string          `json:"entry_type"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (e *LedgerEntry) GetID() int64              { return e.ID }
func (e *LedgerEntry) SetID(id int64)            { e.ID = id }
func (e *LedgerEntry) SetCreatedAt(at time.Time) { e.CreatedAt = at }
func (e *LedgerEntry) SetUpdatedAt(at time.Time) { e.UpdatedAt = at }
