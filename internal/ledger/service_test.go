package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/store"
)

type memLedger []*models.LedgerEntry

func (m memLedger) Create(context.Context, *models.LedgerEntry) error { return nil }

func (m memLedger) Find(_ context.Context, f store.LedgerFilter) ([]*models.LedgerEntry, error) {
	var out []*models.LedgerEntry
	for _, e := range m {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func entry(task, tasker int64, kind, amount string) *models.LedgerEntry {
	return &models.LedgerEntry{TaskID: task, TaskerID: tasker, EntryType: kind, Amount: decimal.RequireFromString(amount)}
}

func TestEarningsFor(t *testing.T) {
	svc := NewService(memLedger{
		entry(1, 7, models.LedgerEntryTaskerEarning, "142.5"),
		entry(1, 7, models.LedgerEntryPlatformFee, "7.5"),
		entry(2, 7, models.LedgerEntryTaskerEarning, "95"),
		entry(2, 7, models.LedgerEntryPlatformFee, "5"),
		entry(3, 8, models.LedgerEntryTaskerEarning, "19"),
		entry(3, 8, models.LedgerEntryPlatformFee, "1"),
	})

	got, err := svc.EarningsFor(context.Background(), 7)
	if err != nil {
		t.Fatalf("EarningsFor: %v", err)
	}
	if got.CompletedTasks != 2 {
		t.Errorf("completed tasks: got %d, want 2", got.CompletedTasks)
	}
	if !got.NetEarned.Equal(decimal.RequireFromString("237.5")) {
		t.Errorf("net earned: got %s", got.NetEarned)
	}
	if !got.FeesWithheld.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("fees withheld: got %s", got.FeesWithheld)
	}
	if len(got.Entries) != 4 {
		t.Errorf("entries: got %d, want 4", len(got.Entries))
	}

	revenue, err := svc.PlatformRevenue(context.Background())
	if err != nil {
		t.Fatalf("PlatformRevenue: %v", err)
	}
	if !revenue.Equal(decimal.RequireFromString("13.5")) {
		t.Errorf("revenue: got %s", revenue)
	}
}

func TestEarningsFor_NoEntries(t *testing.T) {
	got, err := NewService(memLedger{}).EarningsFor(context.Background(), 7)
	if err != nil {
		t.Fatalf("EarningsFor: %v", err)
	}
	if got.Entries == nil || !got.NetEarned.IsZero() || got.CompletedTasks != 0 {
		t.Errorf("unexpected earnings: %+v", got)
	}
}
