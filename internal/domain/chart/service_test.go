package chart

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

func TestGetTooth_DefaultsHealthy(t *testing.T) {
	svc, _ := newTestService()

	rec, err := svc.GetTooth("p1", 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Status != StatusNone {
		t.Errorf("expected none status, got %s", rec.Status)
	}
	if len(rec.Faces) != len(AllFaces) {
		t.Errorf("expected all %d faces populated, got %d", len(AllFaces), len(rec.Faces))
	}
}

func TestSetTooth_InvalidNumber(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.SetTooth("p1", 19, ToothRecord{}, "u1"); err == nil {
		t.Error("expected error for invalid tooth number")
	}
}

func TestSetTooth_OcclusalCaries(t *testing.T) {
	svc, _ := newTestService()

	saved, err := svc.SetTooth("p1", 16, ToothRecord{
		Faces: map[Face]FaceState{FaceOcclusal: FaceCaries},
	}, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.Display() != DisplayCaries {
		t.Errorf("expected carious display, got %s", saved.Display())
	}

	got, err := svc.GetTooth("p1", 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Faces[FaceOcclusal] != FaceCaries {
		t.Errorf("expected occlusal caries persisted, got %s", got.Faces[FaceOcclusal])
	}
	if got.Faces[FaceMesial] != FaceNone {
		t.Errorf("expected other faces healthy, got %s", got.Faces[FaceMesial])
	}
}

func TestSetTooth_MissingClearsFaces(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.SetTooth("p1", 11, ToothRecord{
		Faces: map[Face]FaceState{FaceOcclusal: FaceCaries},
	}, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	saved, err := svc.SetTooth("p1", 11, ToothRecord{Status: StatusMissing}, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.Display() != DisplayMissing {
		t.Errorf("expected missing display, got %s", saved.Display())
	}
	for f, s := range saved.Faces {
		if s != FaceNone {
			t.Errorf("expected face %s cleared, got %s", f, s)
		}
	}
}

func TestSetTooth_TreatmentValidation(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.SetTooth("p1", 16, ToothRecord{
		Treatment: &Treatment{Status: TreatmentPlanned},
	}, "u1"); err == nil {
		t.Error("expected error for empty treatment name")
	}
	if _, err := svc.SetTooth("p1", 16, ToothRecord{
		Treatment: &Treatment{Name: "Endodoncia", Status: "done"},
	}, "u1"); err == nil {
		t.Error("expected error for invalid treatment status")
	}
	saved, err := svc.SetTooth("p1", 16, ToothRecord{
		Treatment: &Treatment{Name: "Endodoncia", Status: TreatmentPlanned},
	}, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.Treatment == nil || saved.Treatment.Name != "Endodoncia" {
		t.Errorf("expected treatment kept, got %+v", saved.Treatment)
	}
}

func TestSetPerio_Validation(t *testing.T) {
	svc, _ := newTestService()

	bad := PerioRecord{Mobility: 4}
	if err := svc.SetPerio("p1", 16, bad, "u1"); err == nil {
		t.Error("expected error for mobility out of range")
	}
	bad = PerioRecord{Furcation: -1}
	if err := svc.SetPerio("p1", 16, bad, "u1"); err == nil {
		t.Error("expected error for furcation out of range")
	}

	good := PerioRecord{Depths: [NumSites]int{3, 2, 3, 4, 3, 2}, Mobility: 1, Furcation: 2}
	if err := svc.SetPerio("p1", 16, good, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBleedingIndex(t *testing.T) {
	svc, _ := newTestService()

	// two teeth recorded, 3 of 12 sites bleeding
	rec := PerioRecord{}
	rec.Bleeding[SiteBuccalDistal] = true
	rec.Bleeding[SiteLingualCenter] = true
	if err := svc.SetPerio("p1", 16, rec, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec2 := PerioRecord{}
	rec2.Bleeding[SiteBuccalMesial] = true
	if err := svc.SetPerio("p1", 26, rec2, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if idx := svc.BleedingIndex("p1"); idx != 25 {
		t.Errorf("expected bleeding index 25, got %d", idx)
	}
}

func TestBleedingIndex_ExcludesMissingTeeth(t *testing.T) {
	svc, _ := newTestService()

	rec := PerioRecord{}
	for i := range rec.Bleeding {
		rec.Bleeding[i] = true
	}
	if err := svc.SetPerio("p1", 11, rec, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.SetPerio("p1", 16, PerioRecord{}, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.SetTooth("p1", 11, ToothRecord{Status: StatusMissing}, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// tooth 11 is missing so only tooth 16's clean sites count
	if idx := svc.BleedingIndex("p1"); idx != 0 {
		t.Errorf("expected bleeding index 0 with missing tooth excluded, got %d", idx)
	}
}

func TestIndices_ZeroWhenNothingRecorded(t *testing.T) {
	svc, _ := newTestService()
	if idx := svc.BleedingIndex("nobody"); idx != 0 {
		t.Errorf("expected 0, got %d", idx)
	}
	if idx := svc.PlaqueIndex("nobody"); idx != 0 {
		t.Errorf("expected 0, got %d", idx)
	}
}

func TestPlaqueIndex(t *testing.T) {
	svc, _ := newTestService()

	if err := svc.SetHygiene("p1", 16, HygieneRecord{Vestibular: true, Lingual: true}, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.SetHygiene("p1", 26, HygieneRecord{}, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 2 positive of 8 faces
	if idx := svc.PlaqueIndex("p1"); idx != 25 {
		t.Errorf("expected plaque index 25, got %d", idx)
	}
}

func TestPlaqueIndex_Rounds(t *testing.T) {
	svc, _ := newTestService()

	if err := svc.SetHygiene("p1", 16, HygieneRecord{Vestibular: true}, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.SetHygiene("p1", 26, HygieneRecord{}, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.SetHygiene("p1", 36, HygieneRecord{}, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 1 of 12 faces = 8.33% rounds to 8
	if idx := svc.PlaqueIndex("p1"); idx != 8 {
		t.Errorf("expected plaque index 8, got %d", idx)
	}
}

func TestHydrate_RestoresState(t *testing.T) {
	svc, st := newTestService()

	if _, err := svc.SetTooth("p1", 16, ToothRecord{
		Faces: map[Face]FaceState{FaceOcclusal: FaceCaries},
	}, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// persist runs on a background goroutine
	deadline := time.Now().Add(time.Second)
	for {
		recs, _ := st.Load(context.Background(), store.CollectionCharts)
		if len(recs) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("chart snapshot never persisted")
		}
		time.Sleep(5 * time.Millisecond)
	}

	fresh := NewService(st, audit.Discard{}, zerolog.Nop())
	if err := fresh.Hydrate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec, err := fresh.GetTooth("p1", 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Faces[FaceOcclusal] != FaceCaries {
		t.Errorf("expected hydrated occlusal caries, got %s", rec.Faces[FaceOcclusal])
	}
}

func TestChart_ReturnsCopy(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.SetTooth("p1", 16, ToothRecord{Status: StatusFilled}, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := svc.Chart("p1")
	snap.Teeth[16] = ToothRecord{Status: StatusMissing}

	rec, _ := svc.GetTooth("p1", 16)
	if rec.Status != StatusFilled {
		t.Errorf("mutating a snapshot changed service state: %s", rec.Status)
	}
}
