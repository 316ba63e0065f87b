package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dentara/dentara/internal/platform/audit"
	"github.com/dentara/dentara/internal/platform/store"
)

const persistTimeout = 5 * time.Second

// Service owns the financial ledger in memory. Entries are the canonical
// state; the store receives best-effort snapshots in the background.
type Service struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*Entry
	order   []uuid.UUID // insertion order, for stable listings

	st    store.Store
	trail audit.Recorder
	log   zerolog.Logger
}

func NewService(st store.Store, trail audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		entries: make(map[uuid.UUID]*Entry),
		st:      st,
		trail:   trail,
		log:     logger,
	}
}

func (s *Service) Hydrate(ctx context.Context) error {
	records, err := s.st.Load(ctx, store.CollectionFinancials)
	if err != nil {
		return fmt.Errorf("load financials: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		var e Entry
		if err := json.Unmarshal(rec.Data, &e); err != nil {
			s.log.Error().Err(err).Str("entry_id", rec.ID).Msg("skipping corrupt ledger entry")
			continue
		}
		s.entries[e.ID] = &e
		s.order = append(s.order, e.ID)
	}
	s.log.Info().Int("count", len(s.entries)).Msg("ledger hydrated")
	return nil
}

// CreateIncome records a new quote. Payments start empty; any historic paid
// amount may be carried in paid and is materialized on the first payment.
func (s *Service) CreateIncome(patientName, description string, total, paid float64, date time.Time, actor string) (*Entry, error) {
	if patientName == "" {
		return nil, fmt.Errorf("patient name is required")
	}
	if total < 0 {
		return nil, fmt.Errorf("total must not be negative")
	}
	if paid < 0 {
		return nil, fmt.Errorf("paid must not be negative")
	}
	if date.IsZero() {
		date = time.Now().UTC()
	}

	e := &Entry{
		ID:          uuid.New(),
		Type:        TypeIncome,
		PatientName: patientName,
		Description: description,
		Total:       total,
		Paid:        paid,
		Payments:    []Payment{},
		Date:        date,
	}

	s.mu.Lock()
	s.entries[e.ID] = e
	s.order = append(s.order, e.ID)
	snapshot := *e
	s.mu.Unlock()

	s.persist(snapshot)
	s.trail.Record(audit.Event{
		ActorID: actor,
		Action:  audit.ActionRecordUpdate,
		Details: fmt.Sprintf("income entry %s created for %s", e.ID, patientName),
	})
	return &snapshot, nil
}

// CreateExpense records an outgoing amount. Description is mandatory.
func (s *Service) CreateExpense(description string, amount float64, category string, date time.Time, patientRef *uuid.UUID, actor string) (*Entry, error) {
	if description == "" {
		return nil, fmt.Errorf("expense description is required")
	}
	if amount <= 0 {
		return nil, fmt.Errorf("expense amount must be positive")
	}
	if date.IsZero() {
		date = time.Now().UTC()
	}

	e := &Entry{
		ID:          uuid.New(),
		Type:        TypeExpense,
		Description: description,
		Category:    category,
		Total:       amount,
		Payments:    []Payment{},
		Date:        date,
		PatientRef:  patientRef,
	}

	s.mu.Lock()
	s.entries[e.ID] = e
	s.order = append(s.order, e.ID)
	snapshot := *e
	s.mu.Unlock()

	s.persist(snapshot)
	s.trail.Record(audit.Event{
		ActorID: actor,
		Action:  audit.ActionRecordUpdate,
		Details: fmt.Sprintf("expense entry %s created", e.ID),
	})
	return &snapshot, nil
}

// RecordPayment appends a payment to an income entry. A non-zero legacy paid
// scalar with no payment list is first materialized as a synthetic payment
// dated to the entry, so the history never double-counts it. Paid is kept
// equal to the sum of the list from here on.
func (s *Service) RecordPayment(entryID uuid.UUID, amount float64, method string, date time.Time, receipt string, actor string) (*Entry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("payment amount must be positive")
	}
	if method == "" {
		return nil, fmt.Errorf("payment method is required")
	}
	if date.IsZero() {
		date = time.Now().UTC()
	}

	s.mu.Lock()
	e, ok := s.entries[entryID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("entry %s not found", entryID)
	}
	if e.Type != TypeIncome {
		s.mu.Unlock()
		return nil, fmt.Errorf("payments apply to income entries only")
	}

	if len(e.Payments) == 0 && e.Paid != 0 {
		e.Payments = append(e.Payments, Payment{
			Amount: e.Paid,
			Method: MethodHistorical,
			Date:   e.Date,
		})
	}
	e.Payments = append(e.Payments, Payment{
		Amount:        amount,
		Method:        method,
		Date:          date,
		ReceiptNumber: receipt,
	})
	e.Paid = e.EffectivePaid()

	snapshot := copyEntry(e)
	s.mu.Unlock()

	s.persist(snapshot)
	s.trail.Record(audit.Event{
		ActorID: actor,
		Action:  audit.ActionRecordUpdate,
		Details: fmt.Sprintf("payment of %.2f on entry %s", amount, entryID),
	})
	return &snapshot, nil
}

// DeleteExpense hard-deletes an expense entry. Income entries are never
// deleted; their payment history is the financial record.
func (s *Service) DeleteExpense(entryID uuid.UUID, actor string) error {
	s.mu.Lock()
	e, ok := s.entries[entryID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("entry %s not found", entryID)
	}
	if e.Type != TypeExpense {
		s.mu.Unlock()
		return fmt.Errorf("only expense entries can be deleted")
	}
	delete(s.entries, entryID)
	for i, id := range s.order {
		if id == entryID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.st.Delete(ctx, store.CollectionFinancials, entryID.String()); err != nil {
			s.log.Error().Err(err).Str("entry_id", entryID.String()).Msg("expense delete failed")
		}
	}()
	s.trail.Record(audit.Event{
		ActorID: actor,
		Action:  audit.ActionRecordUpdate,
		Details: fmt.Sprintf("expense entry %s deleted", entryID),
	})
	return nil
}

func (s *Service) Get(entryID uuid.UUID) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[entryID]
	if !ok {
		return nil, fmt.Errorf("entry %s not found", entryID)
	}
	snapshot := copyEntry(e)
	return &snapshot, nil
}

// List returns entries newest first, optionally filtered by type.
func (s *Service) List(filter EntryType) []Entry {
	s.mu.RLock()
	out := make([]Entry, 0, len(s.order))
	for _, id := range s.order {
		e := s.entries[id]
		if filter != "" && e.Type != filter {
			continue
		}
		out = append(out, copyEntry(e))
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}

// Summary walks every entry once. Collected uses effective paid so legacy
// scalars and payment lists are never both counted; debt clamps overpaid
// entries at zero.
func (s *Service) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum Summary
	for _, e := range s.entries {
		switch e.Type {
		case TypeIncome:
			sum.TotalCollected += e.EffectivePaid()
			sum.TotalDebt += e.PendingDisplay()
		case TypeExpense:
			sum.TotalExpenses += e.Total
		}
	}
	sum.NetProfit = sum.TotalCollected - sum.TotalExpenses
	return sum
}

func (s *Service) persist(snapshot Entry) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.st.Upsert(ctx, store.CollectionFinancials, snapshot.ID.String(), snapshot); err != nil {
			s.log.Error().Err(err).Str("entry_id", snapshot.ID.String()).Msg("ledger persist failed")
		}
	}()
}

func copyEntry(e *Entry) Entry {
	out := *e
	out.Payments = make([]Payment, len(e.Payments))
	copy(out.Payments, e.Payments)
	if e.PatientRef != nil {
		ref := *e.PatientRef
		out.PatientRef = &ref
	}
	return out
}
