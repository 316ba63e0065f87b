// Package team holds the clinic staff roster used for display and contact,
// separate from auth identities.
package team

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dentara/dentara/internal/platform/messaging"
	"github.com/dentara/dentara/internal/platform/store"
)

const persistTimeout = 5 * time.Second

type Member struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Role  string    `json:"role"`
	Phone string    `json:"phone,omitempty"`
}

type Service struct {
	mu      sync.RWMutex
	members map[uuid.UUID]*Member

	phoneRegion string
	st          store.Store
	log         zerolog.Logger
}

func NewService(st store.Store, logger zerolog.Logger, phoneRegion string) *Service {
	return &Service{
		members:     make(map[uuid.UUID]*Member),
		phoneRegion: phoneRegion,
		st:          st,
		log:         logger,
	}
}

func (s *Service) Hydrate(ctx context.Context) error {
	records, err := s.st.Load(ctx, store.CollectionTeam)
	if err != nil {
		return fmt.Errorf("load team: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		var m Member
		if err := json.Unmarshal(rec.Data, &m); err != nil {
			s.log.Error().Err(err).Str("member_id", rec.ID).Msg("skipping corrupt team record")
			continue
		}
		s.members[m.ID] = &m
	}
	s.log.Info().Int("count", len(s.members)).Msg("team hydrated")
	return nil
}

func (s *Service) Create(name, role, phone string) (*Member, error) {
	if name == "" {
		return nil, fmt.Errorf("member name is required")
	}
	if role == "" {
		return nil, fmt.Errorf("member role is required")
	}
	normalized, err := s.normalizePhone(phone)
	if err != nil {
		return nil, err
	}

	m := &Member{ID: uuid.New(), Name: name, Role: role, Phone: normalized}

	s.mu.Lock()
	s.members[m.ID] = m
	snapshot := *m
	s.mu.Unlock()

	s.persist(snapshot)
	return &snapshot, nil
}

func (s *Service) Update(id uuid.UUID, name, role, phone string) (*Member, error) {
	if name == "" {
		return nil, fmt.Errorf("member name is required")
	}
	if role == "" {
		return nil, fmt.Errorf("member role is required")
	}
	normalized, err := s.normalizePhone(phone)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	m, ok := s.members[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("member %s not found", id)
	}
	m.Name = name
	m.Role = role
	m.Phone = normalized
	snapshot := *m
	s.mu.Unlock()

	s.persist(snapshot)
	return &snapshot, nil
}

func (s *Service) Delete(id uuid.UUID) error {
	s.mu.Lock()
	if _, ok := s.members[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("member %s not found", id)
	}
	delete(s.members, id)
	s.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.st.Delete(ctx, store.CollectionTeam, id.String()); err != nil {
			s.log.Error().Err(err).Str("member_id", id.String()).Msg("team delete failed")
		}
	}()
	return nil
}

func (s *Service) Get(id uuid.UUID) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[id]
	if !ok {
		return nil, fmt.Errorf("member %s not found", id)
	}
	snapshot := *m
	return &snapshot, nil
}

func (s *Service) List() []Member {
	s.mu.RLock()
	out := make([]Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, *m)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Service) normalizePhone(phone string) (string, error) {
	if phone == "" {
		return "", nil
	}
	normalized, err := messaging.NormalizePhone(phone, s.phoneRegion)
	if err != nil {
		return "", fmt.Errorf("invalid phone number: %w", err)
	}
	return normalized, nil
}

func (s *Service) persist(snapshot Member) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.st.Upsert(ctx, store.CollectionTeam, snapshot.ID.String(), snapshot); err != nil {
			s.log.Error().Err(err).Str("member_id", snapshot.ID.String()).Msg("team persist failed")
		}
	}()
}
