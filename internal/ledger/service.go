package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/store"
)

// Earnings is a tasker's settled income.
type Earnings struct {
	TaskerID       int64                 `json:"tasker_id"`
	CompletedTasks int                   `json:"completed_tasks"`
	NetEarned      decimal.Decimal       `json:"net_earned"`
	FeesWithheld   decimal.Decimal       `json:"fees_withheld"`
	Entries        []*models.LedgerEntry `json:"entries"`
}

type Service interface {
	EarningsFor(ctx context.Context, taskerID int64) (*Earnings, error)
	PlatformRevenue(ctx context.Context) (decimal.Decimal, error)
}

type service struct {
	entries store.LedgerStore
}

func NewService(entries store.LedgerStore) Service {
	return &service{entries: entries}
}

var _ Service = (*service)(nil)

func (s *service) EarningsFor(ctx context.Context, taskerID int64) (*Earnings, error) {
	entries, err := s.entries.Find(ctx, store.LedgerFilter{TaskerID: &taskerID})
	if err != nil {
		return nil, err
	}
	out := &Earnings{TaskerID: taskerID, Entries: entries}
	tasks := make(map[int64]bool)
	for _, e := range entries {
		switch e.EntryType {
		case models.LedgerEntryTaskerEarning:
			out.NetEarned = out.NetEarned.Add(e.Amount)
			tasks[e.TaskID] = true
		case models.LedgerEntryPlatformFee:
			out.FeesWithheld = out.FeesWithheld.Add(e.Amount)
		}
	}
	out.CompletedTasks = len(tasks)
	if out.Entries == nil {
		out.Entries = []*models.LedgerEntry{}
	}
	return out, nil
}

// PlatformRevenue sums every platform_fee entry.
func (s *service) PlatformRevenue(ctx context.Context) (decimal.Decimal, error) {
	entries, err := s.entries.Find(ctx, store.LedgerFilter{})
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range entries {
		if e.EntryType == models.LedgerEntryPlatformFee {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}
