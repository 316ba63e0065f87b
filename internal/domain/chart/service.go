package chart

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dentara/dentara/internal/platform/audit"
	"github.com/dentara/dentara/internal/platform/store"
)

const persistTimeout = 5 * time.Second

// Service owns the canonical clinical chart state for every patient. All
// reads and mutations are synchronous against the in-memory maps; the store
// receives best-effort snapshots in the background.
type Service struct {
	mu     sync.RWMutex
	charts map[string]*PatientChart

	st    store.Store
	trail audit.Recorder
	log   zerolog.Logger
}

func NewService(st store.Store, trail audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		charts: make(map[string]*PatientChart),
		st:     st,
		trail:  trail,
		log:    logger,
	}
}

// Hydrate loads every persisted chart into memory. Called once at startup,
// before the service is exposed to handlers.
func (s *Service) Hydrate(ctx context.Context) error {
	records, err := s.st.Load(ctx, store.CollectionCharts)
	if err != nil {
		return fmt.Errorf("load charts: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		var ch PatientChart
		if err := json.Unmarshal(rec.Data, &ch); err != nil {
			s.log.Error().Err(err).Str("chart_id", rec.ID).Msg("skipping corrupt chart record")
			continue
		}
		if ch.Teeth == nil {
			ch.Teeth = make(map[int]ToothRecord)
		}
		if ch.Perio == nil {
			ch.Perio = make(map[int]PerioRecord)
		}
		if ch.Hygiene == nil {
			ch.Hygiene = make(map[int]HygieneRecord)
		}
		for n, r := range ch.Teeth {
			ch.Teeth[n] = Canonicalize(r)
		}
		s.charts[ch.PatientID] = &ch
	}
	s.log.Info().Int("count", len(s.charts)).Msg("charts hydrated")
	return nil
}

// Chart returns a deep copy of the patient's chart. A patient with no
// recorded state gets an empty chart, not an error.
func (s *Service) Chart(patientID string) PatientChart {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.charts[patientID]
	if !ok {
		return *newPatientChart(patientID)
	}
	return copyChart(ch)
}

// GetTooth returns the canonical record for one tooth, defaulting to healthy
// when nothing was ever recorded.
func (s *Service) GetTooth(patientID string, tooth int) (ToothRecord, error) {
	if !ValidTooth(tooth) {
		return ToothRecord{}, fmt.Errorf("invalid tooth number %d", tooth)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if ch, ok := s.charts[patientID]; ok {
		if r, ok := ch.Teeth[tooth]; ok {
			return copyTooth(r), nil
		}
	}
	return DefaultTooth(), nil
}

// SetTooth replaces the diagnostic record of one tooth. The input is
// canonicalized before storage, so a missing tooth loses its face annotations
// here and not at render time.
func (s *Service) SetTooth(patientID string, tooth int, rec ToothRecord, actor string) (ToothRecord, error) {
	if !ValidTooth(tooth) {
		return ToothRecord{}, fmt.Errorf("invalid tooth number %d", tooth)
	}
	if !rec.Status.Valid() && rec.Status != "" {
		return ToothRecord{}, fmt.Errorf("invalid tooth status %q", rec.Status)
	}
	for f, st := range rec.Faces {
		if !f.Valid() {
			return ToothRecord{}, fmt.Errorf("invalid face %q", f)
		}
		if !st.Valid() && st != "" {
			return ToothRecord{}, fmt.Errorf("invalid face state %q", st)
		}
	}
	if rec.Treatment != nil {
		if rec.Treatment.Name == "" {
			return ToothRecord{}, fmt.Errorf("treatment name is required")
		}
		if !rec.Treatment.Status.Valid() {
			return ToothRecord{}, fmt.Errorf("invalid treatment status %q", rec.Treatment.Status)
		}
	}

	rec = Canonicalize(rec)

	s.mu.Lock()
	ch := s.chartLocked(patientID)
	ch.Teeth[tooth] = rec
	snapshot := copyChart(ch)
	s.mu.Unlock()

	s.persist(snapshot)
	s.trail.Record(audit.Event{
		ActorID:   actor,
		Action:    audit.ActionRecordUpdate,
		PatientID: patientID,
		Details:   fmt.Sprintf("tooth %d set to %s", tooth, rec.Display()),
	})
	return copyTooth(rec), nil
}

// SetPerio replaces one tooth's periodontal measurements.
func (s *Service) SetPerio(patientID string, tooth int, rec PerioRecord, actor string) error {
	if !ValidTooth(tooth) {
		return fmt.Errorf("invalid tooth number %d", tooth)
	}
	for i, d := range rec.Depths {
		if d < 0 || d > 20 {
			return fmt.Errorf("probing depth out of range at site %d: %d", i, d)
		}
	}
	if rec.Mobility < 0 || rec.Mobility > 3 {
		return fmt.Errorf("mobility out of range: %d", rec.Mobility)
	}
	if rec.Furcation < 0 || rec.Furcation > 3 {
		return fmt.Errorf("furcation out of range: %d", rec.Furcation)
	}

	s.mu.Lock()
	ch := s.chartLocked(patientID)
	ch.Perio[tooth] = rec
	snapshot := copyChart(ch)
	s.mu.Unlock()

	s.persist(snapshot)
	s.trail.Record(audit.Event{
		ActorID:   actor,
		Action:    audit.ActionRecordUpdate,
		PatientID: patientID,
		Details:   fmt.Sprintf("periodontal record for tooth %d", tooth),
	})
	return nil
}

// SetHygiene replaces one tooth's plaque flags.
func (s *Service) SetHygiene(patientID string, tooth int, rec HygieneRecord, actor string) error {
	if !ValidTooth(tooth) {
		return fmt.Errorf("invalid tooth number %d", tooth)
	}

	s.mu.Lock()
	ch := s.chartLocked(patientID)
	ch.Hygiene[tooth] = rec
	snapshot := copyChart(ch)
	s.mu.Unlock()

	s.persist(snapshot)
	s.trail.Record(audit.Event{
		ActorID:   actor,
		Action:    audit.ActionRecordUpdate,
		PatientID: patientID,
		Details:   fmt.Sprintf("hygiene record for tooth %d", tooth),
	})
	return nil
}

// DeleteChart drops all clinical state for a patient. Used when the patient
// record itself is removed.
func (s *Service) DeleteChart(patientID string) {
	s.mu.Lock()
	_, ok := s.charts[patientID]
	delete(s.charts, patientID)
	s.mu.Unlock()

	if !ok {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.st.Delete(ctx, store.CollectionCharts, patientID); err != nil {
			s.log.Error().Err(err).Str("patient_id", patientID).Msg("chart delete failed")
		}
	}()
}

// BleedingIndex computes the percentage of bleeding probing sites over all
// recorded, non-missing teeth. Teeth without a periodontal record do not
// enter the denominator. Returns 0 when nothing is eligible.
func (s *Service) BleedingIndex(patientID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.charts[patientID]
	if !ok {
		return 0
	}

	eligible, positive := 0, 0
	for tooth, rec := range ch.Perio {
		if s.missingLocked(ch, tooth) {
			continue
		}
		eligible++
		for _, b := range rec.Bleeding {
			if b {
				positive++
			}
		}
	}
	return indexPercent(positive, eligible*NumSites)
}

// PlaqueIndex computes the percentage of plaque-positive faces over all
// recorded, non-missing teeth. Returns 0 when nothing is eligible.
func (s *Service) PlaqueIndex(patientID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.charts[patientID]
	if !ok {
		return 0
	}

	eligible, positive := 0, 0
	for tooth, rec := range ch.Hygiene {
		if s.missingLocked(ch, tooth) {
			continue
		}
		eligible++
		positive += rec.plaqueCount()
	}
	return indexPercent(positive, eligible*NumHygieneFaces)
}

func indexPercent(positive, sites int) int {
	if sites == 0 {
		return 0
	}
	return int(math.Round(100 * float64(positive) / float64(sites)))
}

// chartLocked returns the chart for a patient, creating it if absent.
// Caller must hold the write lock.
func (s *Service) chartLocked(patientID string) *PatientChart {
	ch, ok := s.charts[patientID]
	if !ok {
		ch = newPatientChart(patientID)
		s.charts[patientID] = ch
	}
	return ch
}

func (s *Service) missingLocked(ch *PatientChart, tooth int) bool {
	r, ok := ch.Teeth[tooth]
	return ok && r.Status == StatusMissing
}

func (s *Service) persist(snapshot PatientChart) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.st.Upsert(ctx, store.CollectionCharts, snapshot.PatientID, snapshot); err != nil {
			s.log.Error().Err(err).Str("patient_id", snapshot.PatientID).Msg("chart persist failed")
		}
	}()
}

func copyChart(ch *PatientChart) PatientChart {
	out := PatientChart{
		PatientID: ch.PatientID,
		Teeth:     make(map[int]ToothRecord, len(ch.Teeth)),
		Perio:     make(map[int]PerioRecord, len(ch.Perio)),
		Hygiene:   make(map[int]HygieneRecord, len(ch.Hygiene)),
	}
	for n, r := range ch.Teeth {
		out.Teeth[n] = copyTooth(r)
	}
	for n, r := range ch.Perio {
		out.Perio[n] = r
	}
	for n, r := range ch.Hygiene {
		out.Hygiene[n] = r
	}
	return out
}

func copyTooth(r ToothRecord) ToothRecord {
	faces := make(map[Face]FaceState, len(r.Faces))
	for f, s := range r.Faces {
		faces[f] = s
	}
	r.Faces = faces
	if r.Treatment != nil {
		t := *r.Treatment
		r.Treatment = &t
	}
	return r
}
