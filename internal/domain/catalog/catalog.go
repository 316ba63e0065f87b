// Package catalog holds the clinic's treatment packs: named bundles of
// sessions sold at a fixed price, offered when quoting.
package catalog

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

type Pack struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Price    float64   `json:"price"`
	Sessions int       `json:"sessions"`
}

type Service struct {
	mu    sync.RWMutex
	packs map[uuid.UUID]*Pack

	st  store.Store
	log zerolog.Logger
}

func NewService(st store.Store, logger zerolog.Logger) *Service {
	return &Service{
		packs: make(map[uuid.UUID]*Pack),
		st:    st,
		log:   logger,
	}
}

func (s *Service) Hydrate(ctx context.Context) error {
	records, err := s.st.Load(ctx, store.CollectionPacks)
	if err != nil {
		return fmt.Errorf("load packs: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		var p Pack
		if err := json.Unmarshal(rec.Data, &p); err != nil {
			s.log.Error().Err(err).Str("pack_id", rec.ID).Msg("skipping corrupt pack record")
			continue
		}
		s.packs[p.ID] = &p
	}
	s.log.Info().Int("count", len(s.packs)).Msg("packs hydrated")
	return nil
}

func (s *Service) Create(name string, price float64, sessions int) (*Pack, error) {
	if name == "" {
		return nil, fmt.Errorf("pack name is required")
	}
	if price < 0 {
		return nil, fmt.Errorf("price must not be negative")
	}
	if sessions <= 0 {
		return nil, fmt.Errorf("sessions must be positive")
	}

	p := &Pack{ID: uuid.New(), Name: name, Price: price, Sessions: sessions}

	s.mu.Lock()
	s.packs[p.ID] = p
	snapshot := *p
	s.mu.Unlock()

	s.persist(snapshot)
	return &snapshot, nil
}

func (s *Service) Update(id uuid.UUID, name string, price float64, sessions int) (*Pack, error) {
	if name == "" {
		return nil, fmt.Errorf("pack name is required")
	}
	if price < 0 {
		return nil, fmt.Errorf("price must not be negative")
	}
	if sessions <= 0 {
		return nil, fmt.Errorf("sessions must be positive")
	}

	s.mu.Lock()
	p, ok := s.packs[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("pack %s not found", id)
	}
	p.Name = name
	p.Price = price
	p.Sessions = sessions
	snapshot := *p
	s.mu.Unlock()

	s.persist(snapshot)
	return &snapshot, nil
}

func (s *Service) Delete(id uuid.UUID) error {
	s.mu.Lock()
	if _, ok := s.packs[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("pack %s not found", id)
	}
	delete(s.packs, id)
	s.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.st.Delete(ctx, store.CollectionPacks, id.String()); err != nil {
			s.log.Error().Err(err).Str("pack_id", id.String()).Msg("pack delete failed")
		}
	}()
	return nil
}

func (s *Service) Get(id uuid.UUID) (*Pack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.packs[id]
	if !ok {
		return nil, fmt.Errorf("pack %s not found", id)
	}
	snapshot := *p
	return &snapshot, nil
}

func (s *Service) List() []Pack {
	s.mu.RLock()
	out := make([]Pack, 0, len(s.packs))
	for _, p := range s.packs {
		out = append(out, *p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Service) persist(snapshot Pack) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.st.Upsert(ctx, store.CollectionPacks, snapshot.ID.String(), snapshot); err != nil {
			s.log.Error().Err(err).Str("pack_id", snapshot.ID.String()).Msg("pack persist failed")
		}
	}()
}
