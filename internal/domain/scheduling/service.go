package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dentara/dentara/internal/platform/store"
)

const persistTimeout = 5 * time.Second

// Service owns the appointment book in memory and derives the recall list
// from it.
type Service struct {
	mu           sync.RWMutex
	appointments map[uuid.UUID]*Appointment
	order        []uuid.UUID // insertion order, recall tie-breaks depend on it

	recallMonths int
	st           store.Store
	log          zerolog.Logger
}

// NewService builds the scheduling service. recallMonths is how long after a
// last visit a patient counts as overdue.
func NewService(st store.Store, logger zerolog.Logger, recallMonths int) *Service {
	if recallMonths <= 0 {
		recallMonths = 6
	}
	return &Service{
		appointments: make(map[uuid.UUID]*Appointment),
		recallMonths: recallMonths,
		st:           st,
		log:          logger,
	}
}

func (s *Service) Hydrate(ctx context.Context) error {
	records, err := s.st.Load(ctx, store.CollectionAppointments)
	if err != nil {
		return fmt.Errorf("load appointments: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		var a Appointment
		if err := json.Unmarshal(rec.Data, &a); err != nil {
			s.log.Error().Err(err).Str("appointment_id", rec.ID).Msg("skipping corrupt appointment")
			continue
		}
		s.appointments[a.ID] = &a
		s.order = append(s.order, a.ID)
	}
	s.log.Info().Int("count", len(s.appointments)).Msg("appointments hydrated")
	return nil
}

func (s *Service) Create(name string, date time.Time, treatment string) (*Appointment, error) {
	if name == "" {
		return nil, fmt.Errorf("patient name is required")
	}
	if date.IsZero() {
		return nil, fmt.Errorf("appointment date is required")
	}

	a := &Appointment{
		ID:        uuid.New(),
		Name:      name,
		Date:      date,
		Treatment: treatment,
		Status:    StatusScheduled,
	}

	s.mu.Lock()
	s.appointments[a.ID] = a
	s.order = append(s.order, a.ID)
	snapshot := *a
	s.mu.Unlock()

	s.persist(snapshot)
	return &snapshot, nil
}

func (s *Service) Update(id uuid.UUID, name string, date time.Time, treatment string, status Status) (*Appointment, error) {
	if name == "" {
		return nil, fmt.Errorf("patient name is required")
	}
	if date.IsZero() {
		return nil, fmt.Errorf("appointment date is required")
	}
	if !status.Valid() {
		return nil, fmt.Errorf("invalid status %q", status)
	}

	s.mu.Lock()
	a, ok := s.appointments[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("appointment %s not found", id)
	}
	a.Name = name
	a.Date = date
	a.Treatment = treatment
	a.Status = status
	snapshot := *a
	s.mu.Unlock()

	s.persist(snapshot)
	return &snapshot, nil
}

func (s *Service) Delete(id uuid.UUID) error {
	s.mu.Lock()
	if _, ok := s.appointments[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("appointment %s not found", id)
	}
	delete(s.appointments, id)
	for i, aid := range s.order {
		if aid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.st.Delete(ctx, store.CollectionAppointments, id.String()); err != nil {
			s.log.Error().Err(err).Str("appointment_id", id.String()).Msg("appointment delete failed")
		}
	}()
	return nil
}

func (s *Service) Get(id uuid.UUID) (*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, fmt.Errorf("appointment %s not found", id)
	}
	snapshot := *a
	return &snapshot, nil
}

// List returns appointments sorted by date ascending.
func (s *Service) List() []Appointment {
	s.mu.RLock()
	out := make([]Appointment, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.appointments[id])
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// RecallList selects patients overdue for a visit as of now: their latest
// appointment lies at least the recall window in the past and nothing is
// booked at or after now. Cancelled appointments never count. When a
// patient's past appointments share the latest date, the one stored first
// wins, so repeated calls produce identical output.
func (s *Service) RecallList(now time.Time) []RecallEntry {
	cutoff := now.AddDate(0, -s.recallMonths, 0)

	s.mu.RLock()
	defer s.mu.RUnlock()

	hasFuture := make(map[string]bool)
	latest := make(map[string]*Appointment)
	var names []string

	for _, id := range s.order {
		a := s.appointments[id]
		if a.Status == StatusCancelled {
			continue
		}
		if !a.Date.Before(now) {
			hasFuture[a.Name] = true
			continue
		}
		if a.Date.After(cutoff) {
			// recent past visit, not yet due
			if _, ok := latest[a.Name]; !ok {
				latest[a.Name] = nil
				names = append(names, a.Name)
			}
			latest[a.Name] = nil
			continue
		}
		cur, seen := latest[a.Name]
		if !seen {
			latest[a.Name] = a
			names = append(names, a.Name)
			continue
		}
		if cur != nil && a.Date.After(cur.Date) {
			latest[a.Name] = a
		}
	}

	out := make([]RecallEntry, 0, len(names))
	for _, name := range names {
		a := latest[name]
		if a == nil || hasFuture[name] {
			continue
		}
		out = append(out, RecallEntry{
			Name:      a.Name,
			LastVisit: a.Date,
			Treatment: a.Treatment,
		})
	}
	return out
}

func (s *Service) persist(snapshot Appointment) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.st.Upsert(ctx, store.CollectionAppointments, snapshot.ID.String(), snapshot); err != nil {
			s.log.Error().Err(err).Str("appointment_id", snapshot.ID.String()).Msg("appointment persist failed")
		}
	}()
}
