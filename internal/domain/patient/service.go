package patient

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dentara/dentara/internal/platform/audit"
	"github.com/dentara/dentara/internal/platform/messaging"
	"github.com/dentara/dentara/internal/platform/store"
)

const persistTimeout = 5 * time.Second

// Service owns the patient registry in memory. Phone numbers are normalized
// on write so recall links can be built without re-parsing.
type Service struct {
	mu       sync.RWMutex
	patients map[uuid.UUID]*Patient

	phoneRegion string
	st          store.Store
	trail       audit.Recorder
	log         zerolog.Logger
}

func NewService(st store.Store, trail audit.Recorder, logger zerolog.Logger, phoneRegion string) *Service {
	return &Service{
		patients:    make(map[uuid.UUID]*Patient),
		phoneRegion: phoneRegion,
		st:          st,
		trail:       trail,
		log:         logger,
	}
}

func (s *Service) Hydrate(ctx context.Context) error {
	records, err := s.st.Load(ctx, store.CollectionPatients)
	if err != nil {
		return fmt.Errorf("load patients: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		var p Patient
		if err := json.Unmarshal(rec.Data, &p); err != nil {
			s.log.Error().Err(err).Str("patient_id", rec.ID).Msg("skipping corrupt patient record")
			continue
		}
		if p.Evolution == nil {
			p.Evolution = []EvolutionEntry{}
		}
		s.patients[p.ID] = &p
	}
	s.log.Info().Int("count", len(s.patients)).Msg("patients hydrated")
	return nil
}

func (s *Service) Create(name, phone, email, notes, actor string) (*Patient, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("patient name is required")
	}
	normalized, err := s.normalizePhone(phone)
	if err != nil {
		return nil, err
	}

	p := &Patient{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		Phone:     normalized,
		Email:     email,
		Notes:     notes,
		Evolution: []EvolutionEntry{},
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.patients[p.ID] = p
	snapshot := copyPatient(p)
	s.mu.Unlock()

	s.persist(snapshot)
	s.trail.Record(audit.Event{
		ActorID:   actor,
		Action:    audit.ActionRecordUpdate,
		PatientID: p.ID.String(),
		Details:   "patient created",
	})
	return &snapshot, nil
}

func (s *Service) Update(id uuid.UUID, name, phone, email, notes, actor string) (*Patient, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("patient name is required")
	}
	normalized, err := s.normalizePhone(phone)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	p, ok := s.patients[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("patient %s not found", id)
	}
	p.Name = strings.TrimSpace(name)
	p.Phone = normalized
	p.Email = email
	p.Notes = notes
	snapshot := copyPatient(p)
	s.mu.Unlock()

	s.persist(snapshot)
	s.trail.Record(audit.Event{
		ActorID:   actor,
		Action:    audit.ActionRecordUpdate,
		PatientID: id.String(),
		Details:   "patient updated",
	})
	return &snapshot, nil
}

func (s *Service) Delete(id uuid.UUID, actor string) error {
	s.mu.Lock()
	if _, ok := s.patients[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("patient %s not found", id)
	}
	delete(s.patients, id)
	s.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.st.Delete(ctx, store.CollectionPatients, id.String()); err != nil {
			s.log.Error().Err(err).Str("patient_id", id.String()).Msg("patient delete failed")
		}
	}()
	s.trail.Record(audit.Event{
		ActorID:   actor,
		Action:    audit.ActionRecordUpdate,
		PatientID: id.String(),
		Details:   "patient deleted",
	})
	return nil
}

func (s *Service) Get(id uuid.UUID) (*Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.patients[id]
	if !ok {
		return nil, fmt.Errorf("patient %s not found", id)
	}
	snapshot := copyPatient(p)
	return &snapshot, nil
}

// List returns patients sorted by name. An optional query filters by
// case-insensitive substring match on the name.
func (s *Service) List(query string) []Patient {
	query = strings.ToLower(strings.TrimSpace(query))

	s.mu.RLock()
	out := make([]Patient, 0, len(s.patients))
	for _, p := range s.patients {
		if query != "" && !strings.Contains(strings.ToLower(p.Name), query) {
			continue
		}
		out = append(out, copyPatient(p))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AppendEvolution adds a dated clinical note. Notes are never edited or
// removed afterwards.
func (s *Service) AppendEvolution(id uuid.UUID, note string, date time.Time, actor string) (*Patient, error) {
	if strings.TrimSpace(note) == "" {
		return nil, fmt.Errorf("evolution note is required")
	}
	if date.IsZero() {
		date = time.Now().UTC()
	}

	s.mu.Lock()
	p, ok := s.patients[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("patient %s not found", id)
	}
	p.Evolution = append(p.Evolution, EvolutionEntry{
		ID:     uuid.New(),
		Date:   date,
		Note:   note,
		Author: actor,
	})
	snapshot := copyPatient(p)
	s.mu.Unlock()

	s.persist(snapshot)
	s.trail.Record(audit.Event{
		ActorID:   actor,
		Action:    audit.ActionEvolutionAppend,
		PatientID: id.String(),
		Details:   "evolution note added",
	})
	return &snapshot, nil
}

// PatientName resolves an id string to a display name for exports. Unknown
// ids resolve to the empty string.
func (s *Service) PatientName(id string) string {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.patients[uid]; ok {
		return p.Name
	}
	return ""
}

// PhoneByName resolves a display name to a normalized phone for recall
// links. The first match wins on duplicate names.
func (s *Service) PhoneByName(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.patients {
		if p.Name == name && p.Phone != "" {
			return p.Phone, true
		}
	}
	return "", false
}

func (s *Service) normalizePhone(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", nil
	}
	normalized, err := messaging.NormalizePhone(phone, s.phoneRegion)
	if err != nil {
		return "", fmt.Errorf("invalid phone number: %w", err)
	}
	return normalized, nil
}

func (s *Service) persist(snapshot Patient) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.st.Upsert(ctx, store.CollectionPatients, snapshot.ID.String(), snapshot); err != nil {
			s.log.Error().Err(err).Str("patient_id", snapshot.ID.String()).Msg("patient persist failed")
		}
	}()
}

func copyPatient(p *Patient) Patient {
	out := *p
	out.Evolution = make([]EvolutionEntry, len(p.Evolution))
	copy(out.Evolution, p.Evolution)
	return out
}
