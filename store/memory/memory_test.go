package memory

import (
	"context"
	"testing"
	"time"

	"github.com/warp/incentive-engine/commission"
	"github.com/warp/incentive-engine/contract"
	"github.com/warp/incentive-engine/money"
	"github.com/warp/incentive-engine/source"
)

func TestMemory_ReplaceAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()
	day := time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)

	if snap, err := s.GetSnapshot(ctx, "c-1"); err != nil || snap != nil {
		t.Fatalf("expected no snapshot, got %v, %v", snap, err)
	}

	c := contract.Contract{IDContrato: "c-1", DataPagamento: day, LiquidoLiberado: 100}
	if err := s.Replace(ctx, c, contract.Snapshot{Hash: "h1"}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := s.Get(ctx, "c-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LiquidoLiberado != 100 {
		t.Errorf("expected 100, got %d", got.LiquidoLiberado)
	}
	snap, _ := s.GetSnapshot(ctx, "c-1")
	if snap == nil || snap.Hash != "h1" || snap.IDContrato != "c-1" {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	if _, err := s.Get(ctx, "missing"); err != contract.ErrContractNotFound {
		t.Errorf("expected ErrContractNotFound, got %v", err)
	}
}

func TestMemory_ListOrdersByDateThenID(t *testing.T) {
	s := New()
	ctx := context.Background()
	d := func(n int) time.Time { return time.Date(2025, time.March, n, 0, 0, 0, 0, time.UTC) }

	for _, c := range []contract.Contract{
		{IDContrato: "z", DataPagamento: d(2)},
		{IDContrato: "b", DataPagamento: d(1)},
		{IDContrato: "a", DataPagamento: d(2)},
		{IDContrato: "x", DataPagamento: d(9)},
	} {
		s.Replace(ctx, c, contract.Snapshot{})
	}

	got, _ := s.List(ctx, contract.Filter{From: d(1), To: d(9)})
	want := []string{"b", "a", "z"}
	if len(got) != len(want) {
		t.Fatalf("expected %d contracts, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].IDContrato != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i].IDContrato)
		}
	}
}

func TestMemory_QuotasAreCopied(t *testing.T) {
	s := New()
	ctx := context.Background()

	sellers := map[string]money.Cents{"Ana": 1000}
	s.SetQuotas(ctx, commission.Quotas{Month: "2025-03", Global: 5000, Sellers: sellers})
	sellers["Ana"] = 1

	q, _ := s.Quotas(ctx, "2025-03")
	if q.Sellers["Ana"] != 1000 {
		t.Errorf("stored quotas changed through caller map: %d", q.Sellers["Ana"])
	}
	q.Sellers["Bia"] = 7
	again, _ := s.Quotas(ctx, "2025-03")
	if _, ok := again.Sellers["Bia"]; ok {
		t.Error("stored quotas changed through returned map")
	}

	empty, _ := s.Quotas(ctx, "2024-01")
	if empty.Global != 0 || empty.Sellers == nil {
		t.Errorf("unexpected empty month %+v", empty)
	}
}

func TestMemory_Runs(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	s.SaveRun(ctx, source.SyncRun{ID: "1", StartedAt: base})
	s.SaveRun(ctx, source.SyncRun{ID: "2", StartedAt: base.Add(time.Hour)})
	s.SaveRun(ctx, source.SyncRun{ID: "1", StartedAt: base, Created: 4})

	runs, _ := s.ListRuns(ctx, 0)
	if len(runs) != 2 || runs[0].ID != "2" || runs[1].Created != 4 {
		t.Errorf("unexpected runs %+v", runs)
	}
}
