package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dentara/dentara/internal/platform/audit"
	"github.com/dentara/dentara/internal/platform/store"
)

func newTestService() (*Service, *store.Memory) {
	st := store.NewMemory()
	return NewService(st, audit.Discard{}, zerolog.Nop()), st
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestCreateIncome_Validation(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.CreateIncome("", "", 100, 0, date(2024, 1, 1), "u1"); err == nil {
		t.Error("expected error for empty patient name")
	}
	if _, err := svc.CreateIncome("Ana", "", -1, 0, date(2024, 1, 1), "u1"); err == nil {
		t.Error("expected error for negative total")
	}
}

func TestCreateExpense_EmptyDescription(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.CreateExpense("", 500, "supplies", date(2024, 1, 1), nil, "u1"); err == nil {
		t.Error("expected error for empty description")
	}
	if _, err := svc.CreateExpense("gloves", 0, "supplies", date(2024, 1, 1), nil, "u1"); err == nil {
		t.Error("expected error for non-positive amount")
	}
}

func TestEffectivePaid_LegacyOnly(t *testing.T) {
	e := Entry{Total: 100000, Paid: 30000, Payments: []Payment{}}
	if got := e.EffectivePaid(); got != 30000 {
		t.Errorf("expected 30000, got %.0f", got)
	}
	if got := e.Pending(); got != 70000 {
		t.Errorf("expected pending 70000, got %.0f", got)
	}
}

func TestEffectivePaid_ListWinsOverScalar(t *testing.T) {
	// a stale scalar must never be added on top of the list
	e := Entry{Total: 100000, Paid: 30000, Payments: []Payment{{Amount: 50000}}}
	if got := e.EffectivePaid(); got != 50000 {
		t.Errorf("expected 50000, got %.0f", got)
	}
}

func TestRecordPayment_MaterializesLegacyPaid(t *testing.T) {
	svc, _ := newTestService()

	e, err := svc.CreateIncome("Luis Rojas", "Ortodoncia", 100000, 30000, date(2024, 3, 1), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := svc.RecordPayment(e.ID, 20000, "Efectivo", date(2024, 4, 2), "", "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(updated.Payments) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(updated.Payments))
	}
	hist := updated.Payments[0]
	if hist.Method != MethodHistorical || hist.Amount != 30000 {
		t.Errorf("expected historical payment of 30000, got %+v", hist)
	}
	if !hist.Date.Equal(e.Date) {
		t.Errorf("expected historical payment dated to entry, got %v", hist.Date)
	}
	if updated.Payments[1].Method != "Efectivo" || updated.Payments[1].Amount != 20000 {
		t.Errorf("unexpected second payment: %+v", updated.Payments[1])
	}
	if updated.Paid != 50000 {
		t.Errorf("expected paid recomputed to 50000, got %.0f", updated.Paid)
	}
	if updated.Pending() != 50000 {
		t.Errorf("expected pending 50000, got %.0f", updated.Pending())
	}
}

func TestRecordPayment_NoDoubleMaterialization(t *testing.T) {
	svc, _ := newTestService()

	e, _ := svc.CreateIncome("Luis Rojas", "Ortodoncia", 100000, 30000, date(2024, 3, 1), "u1")
	if _, err := svc.RecordPayment(e.ID, 20000, "Efectivo", date(2024, 4, 2), "", "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	updated, err := svc.RecordPayment(e.ID, 10000, "Tarjeta", date(2024, 5, 2), "R-9", "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(updated.Payments) != 3 {
		t.Fatalf("expected 3 payments, got %d", len(updated.Payments))
	}
	histCount := 0
	for _, p := range updated.Payments {
		if p.Method == MethodHistorical {
			histCount++
		}
	}
	if histCount != 1 {
		t.Errorf("expected exactly one historical payment, got %d", histCount)
	}
	if updated.Paid != 60000 {
		t.Errorf("expected paid 60000, got %.0f", updated.Paid)
	}
}

func TestRecordPayment_Validation(t *testing.T) {
	svc, _ := newTestService()
	e, _ := svc.CreateIncome("Ana", "", 1000, 0, date(2024, 1, 1), "u1")

	if _, err := svc.RecordPayment(e.ID, 0, "Efectivo", date(2024, 1, 2), "", "u1"); err == nil {
		t.Error("expected error for zero amount")
	}
	if _, err := svc.RecordPayment(e.ID, -50, "Efectivo", date(2024, 1, 2), "", "u1"); err == nil {
		t.Error("expected error for negative amount")
	}
	if _, err := svc.RecordPayment(e.ID, 100, "", date(2024, 1, 2), "", "u1"); err == nil {
		t.Error("expected error for empty method")
	}

	ex, _ := svc.CreateExpense("gloves", 500, "supplies", date(2024, 1, 1), nil, "u1")
	if _, err := svc.RecordPayment(ex.ID, 100, "Efectivo", date(2024, 1, 2), "", "u1"); err == nil {
		t.Error("expected error recording payment on an expense")
	}
}

func TestPendingDisplay_ClampsOverpayment(t *testing.T) {
	svc, _ := newTestService()

	e, _ := svc.CreateIncome("Ana", "", 1000, 0, date(2024, 1, 1), "u1")
	updated, err := svc.RecordPayment(e.ID, 1500, "Efectivo", date(2024, 1, 2), "", "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Pending() != -500 {
		t.Errorf("expected signed pending -500, got %.0f", updated.Pending())
	}
	if updated.PendingDisplay() != 0 {
		t.Errorf("expected display pending 0, got %.0f", updated.PendingDisplay())
	}

	sum := svc.Summary()
	if sum.TotalDebt != 0 {
		t.Errorf("expected clinic debt 0 with overpaid entry, got %.0f", sum.TotalDebt)
	}
}

func TestSummary(t *testing.T) {
	svc, _ := newTestService()

	a, _ := svc.CreateIncome("Ana", "", 100000, 0, date(2024, 1, 1), "u1")
	if _, err := svc.RecordPayment(a.ID, 100000, "Efectivo", date(2024, 1, 5), "", "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := svc.CreateIncome("Luis", "", 50000, 20000, date(2024, 1, 2), "u1")
	_ = b
	if _, err := svc.CreateIncome("Marta", "", 30000, 0, date(2024, 1, 3), "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.CreateExpense("supplies", 40000, "supplies", date(2024, 1, 4), nil, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sum := svc.Summary()
	if sum.TotalCollected != 120000 {
		t.Errorf("expected collected 120000, got %.0f", sum.TotalCollected)
	}
	if sum.TotalExpenses != 40000 {
		t.Errorf("expected expenses 40000, got %.0f", sum.TotalExpenses)
	}
	if sum.NetProfit != 80000 {
		t.Errorf("expected net profit 80000, got %.0f", sum.NetProfit)
	}
	if sum.TotalDebt != 60000 {
		t.Errorf("expected debt 60000, got %.0f", sum.TotalDebt)
	}
}

func TestDeleteExpense(t *testing.T) {
	svc, _ := newTestService()

	inc, _ := svc.CreateIncome("Ana", "", 1000, 0, date(2024, 1, 1), "u1")
	if err := svc.DeleteExpense(inc.ID, "u1"); err == nil {
		t.Error("expected error deleting an income entry")
	}

	ex, _ := svc.CreateExpense("gloves", 500, "supplies", date(2024, 1, 1), nil, "u1")
	if err := svc.DeleteExpense(ex.ID, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Get(ex.ID); err == nil {
		t.Error("expected deleted expense to be gone")
	}
}

func TestHydrate_RestoresEntries(t *testing.T) {
	svc, st := newTestService()

	e, _ := svc.CreateIncome("Ana", "Limpieza", 1000, 0, date(2024, 1, 1), "u1")

	deadline := time.Now().Add(time.Second)
	for {
		recs, _ := st.Load(context.Background(), store.CollectionFinancials)
		if len(recs) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("entry never persisted")
		}
		time.Sleep(5 * time.Millisecond)
	}

	fresh := NewService(st, audit.Discard{}, zerolog.Nop())
	if err := fresh.Hydrate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := fresh.Get(e.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PatientName != "Ana" || got.Total != 1000 {
		t.Errorf("unexpected hydrated entry: %+v", got)
	}
}

func TestList_FiltersAndSorts(t *testing.T) {
	svc, _ := newTestService()

	svc.CreateIncome("Ana", "", 1000, 0, date(2024, 1, 1), "u1")
	svc.CreateIncome("Luis", "", 2000, 0, date(2024, 3, 1), "u1")
	svc.CreateExpense("gloves", 500, "supplies", date(2024, 2, 1), nil, "u1")

	all := svc.List("")
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	if !all[0].Date.After(all[1].Date) {
		t.Error("expected newest first ordering")
	}

	incomes := svc.List(TypeIncome)
	if len(incomes) != 2 {
		t.Errorf("expected 2 income entries, got %d", len(incomes))
	}
}
