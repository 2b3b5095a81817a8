package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/store"
)

// ErrNotSettleable is returned when a task is not COMPLETED or has no tasker.
var ErrNotSettleable = errors.New("task is not settleable")

// SettlementService books the money split of a completed task into the ledger.
// No money moves through the platform; entries only record who earned what.
type SettlementService struct{}

func NewSettlementService() *SettlementService {
	return &SettlementService{}
}

// Split returns the tasker's net earning and the platform fee for t.
// They always add up to the agreed amount.
func Split(t *models.Task) (earning, fee decimal.Decimal) {
	fee = t.PlatformFeeAmount()
	return t.AgreedAmount.Sub(fee), fee
}

// SettleTask writes one tasker_earning and one platform_fee entry. Call it in
// the same unit of work that moves the task to COMPLETED. Entries already
// present for the task are left alone, so a retried settlement books nothing twice.
func (s *SettlementService) SettleTask(ctx context.Context, ledger store.LedgerStore, t *models.Task) error {
	if t.State != models.TaskStateCompleted || t.TaskerID == nil {
		return fmt.Errorf("%w: task %d is %s", ErrNotSettleable, t.ID, t.State)
	}
	existing, err := ledger.Find(ctx, store.LedgerFilter{TaskID: &t.ID})
	if err != nil {
		return err
	}
	booked := make(map[string]bool, len(existing))
	for _, e := range existing {
		booked[e.EntryType] = true
	}

	earning, fee := Split(t)
	entries := []*models.LedgerEntry{
		{TaskID: t.ID, TaskerID: *t.TaskerID, EntryType: models.LedgerEntryTaskerEarning, Amount: earning},
		{TaskID: t.ID, TaskerID: *t.TaskerID, EntryType: models.LedgerEntryPlatformFee, Amount: fee},
	}
	for _, e := range entries {
		if booked[e.EntryType] {
			continue
		}
		if err := ledger.Create(ctx, e); err != nil {
			return fmt.Errorf("book %s for task %d: %w", e.EntryType, t.ID, err)
		}
	}
	return nil
}
