package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dentara/dentara/internal/platform/store"
)

func newTestService() (*Service, *store.Memory) {
	st := store.NewMemory()
	return NewService(st, zerolog.Nop(), 6), st
}

var now = time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.Create("", now, "Limpieza"); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := svc.Create("Ana", time.Time{}, "Limpieza"); err == nil {
		t.Error("expected error for zero date")
	}

	a, err := svc.Create("Ana", now, "Limpieza")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusScheduled {
		t.Errorf("expected scheduled status, got %s", a.Status)
	}
}

func TestRecallList_OverduePatient(t *testing.T) {
	svc, _ := newTestService()

	// last visit seven months ago, nothing booked
	if _, err := svc.Create("Luis", now.AddDate(0, -7, 0), "Limpieza"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := svc.RecallList(now)
	if len(entries) != 1 {
		t.Fatalf("expected 1 recall entry, got %d", len(entries))
	}
	if entries[0].Name != "Luis" || entries[0].Treatment != "Limpieza" {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
}

func TestRecallList_FutureAppointmentExcludes(t *testing.T) {
	svc, _ := newTestService()

	svc.Create("Luis", now.AddDate(0, -7, 0), "Limpieza")
	svc.Create("Luis", now.AddDate(0, 1, 0), "Control")

	if entries := svc.RecallList(now); len(entries) != 0 {
		t.Errorf("expected no recall entries, got %+v", entries)
	}
}

func TestRecallList_RecentVisitExcludes(t *testing.T) {
	svc, _ := newTestService()

	svc.Create("Ana", now.AddDate(0, -7, 0), "Limpieza")
	svc.Create("Ana", now.AddDate(0, -2, 0), "Control")

	if entries := svc.RecallList(now); len(entries) != 0 {
		t.Errorf("expected no recall entries after recent visit, got %+v", entries)
	}
}

func TestRecallList_KeepsMostRecentPast(t *testing.T) {
	svc, _ := newTestService()

	svc.Create("Ana", now.AddDate(0, -12, 0), "Extracción")
	svc.Create("Ana", now.AddDate(0, -8, 0), "Limpieza")

	entries := svc.RecallList(now)
	if len(entries) != 1 {
		t.Fatalf("expected 1 recall entry, got %d", len(entries))
	}
	if entries[0].Treatment != "Limpieza" {
		t.Errorf("expected most recent past visit kept, got %+v", entries[0])
	}
}

func TestRecallList_TieKeepsFirstStored(t *testing.T) {
	svc, _ := newTestService()

	d := now.AddDate(0, -8, 0)
	svc.Create("Ana", d, "Limpieza")
	svc.Create("Ana", d, "Control")

	entries := svc.RecallList(now)
	if len(entries) != 1 {
		t.Fatalf("expected 1 recall entry, got %d", len(entries))
	}
	if entries[0].Treatment != "Limpieza" {
		t.Errorf("expected first stored appointment on tie, got %+v", entries[0])
	}
}

func TestRecallList_CancelledIgnored(t *testing.T) {
	svc, _ := newTestService()

	a, _ := svc.Create("Ana", now.AddDate(0, -7, 0), "Limpieza")
	b, _ := svc.Create("Ana", now.AddDate(0, 1, 0), "Control")
	if _, err := svc.Update(b.ID, b.Name, b.Date, b.Treatment, StatusCancelled); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// the future booking is cancelled so the old visit makes her overdue
	entries := svc.RecallList(now)
	if len(entries) != 1 {
		t.Fatalf("expected 1 recall entry, got %d", len(entries))
	}
	if !entries[0].LastVisit.Equal(a.Date) {
		t.Errorf("unexpected last visit: %v", entries[0].LastVisit)
	}
}

func TestRecallList_BoundaryDates(t *testing.T) {
	svc, _ := newTestService()

	// exactly six months ago counts as overdue
	svc.Create("Ana", now.AddDate(0, -6, 0), "Limpieza")
	// exactly now counts as future
	svc.Create("Luis", now.AddDate(0, -7, 0), "Limpieza")
	svc.Create("Luis", now, "Control")

	entries := svc.RecallList(now)
	if len(entries) != 1 {
		t.Fatalf("expected 1 recall entry, got %+v", entries)
	}
	if entries[0].Name != "Ana" {
		t.Errorf("expected Ana overdue, got %s", entries[0].Name)
	}
}

func TestHydrate_RestoresAppointments(t *testing.T) {
	svc, st := newTestService()

	a, err := svc.Create("Ana", now, "Limpieza")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		recs, _ := st.Load(context.Background(), store.CollectionAppointments)
		if len(recs) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("appointment never persisted")
		}
		time.Sleep(5 * time.Millisecond)
	}

	fresh := NewService(st, zerolog.Nop(), 6)
	if err := fresh.Hydrate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := fresh.Get(a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Ana" {
		t.Errorf("unexpected hydrated appointment: %+v", got)
	}
}

func TestList_SortedByDate(t *testing.T) {
	svc, _ := newTestService()

	svc.Create("B", now.AddDate(0, 1, 0), "")
	svc.Create("A", now, "")

	appts := svc.List()
	if len(appts) != 2 {
		t.Fatalf("expected 2 appointments, got %d", len(appts))
	}
	if appts[0].Name != "A" {
		t.Errorf("expected date-ascending order, got %s first", appts[0].Name)
	}
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService()

	a, _ := svc.Create("Ana", now, "")
	if err := svc.Delete(a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Get(a.ID); err == nil {
		t.Error("expected deleted appointment to be gone")
	}
	if err := svc.Delete(a.ID); err == nil {
		t.Error("expected error deleting twice")
	}
}
