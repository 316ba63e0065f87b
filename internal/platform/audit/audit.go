// Package audit records who did what to which patient record. Events are
// fire-and-forget: emitting never blocks the triggering action, and a failed
// write is logged, not propagated.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dentara/dentara/internal/platform/store"
)

type Action string

const (
	ActionRecordUpdate    Action = "record.update"
	ActionImageUpload     Action = "image.upload"
	ActionPDFGenerate     Action = "pdf.generate"
	ActionEvolutionAppend Action = "evolution.append"
)

// Event is one audit trail entry.
type Event struct {
	ID        uuid.UUID `json:"id"`
	ActorID   string    `json:"actor_id"`
	Action    Action    `json:"action"`
	PatientID string    `json:"patient_id,omitempty"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Recorder is what domain services depend on. A nil-safe no-op implementation
// is available for tests via Discard.
type Recorder interface {
	Record(e Event)
}

// Trail buffers events on a channel and writes them to the store from a
// background goroutine. When the buffer is full the event is dropped with a
// warning; the audit trail is best-effort by contract.
type Trail struct {
	events chan Event
	st     store.Store
	log    zerolog.Logger
	done   chan struct{}
}

func NewTrail(st store.Store, logger zerolog.Logger, buffer int) *Trail {
	if buffer <= 0 {
		buffer = 256
	}
	t := &Trail{
		events: make(chan Event, buffer),
		st:     st,
		log:    logger,
		done:   make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *Trail) Record(e Event) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	select {
	case t.events <- e:
	default:
		t.log.Warn().
			Str("action", string(e.Action)).
			Str("actor_id", e.ActorID).
			Msg("audit buffer full, event dropped")
	}
}

func (t *Trail) run() {
	defer close(t.done)
	for e := range t.events {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := t.st.Upsert(ctx, store.CollectionAudit, e.ID.String(), e)
		cancel()
		if err != nil {
			t.log.Error().Err(err).
				Str("action", string(e.Action)).
				Str("actor_id", e.ActorID).
				Msg("audit write failed")
		}
	}
}

// Close drains pending events and stops the writer.
func (t *Trail) Close() {
	close(t.events)
	<-t.done
}

// Discard is a Recorder that drops every event. Used in tests.
type Discard struct{}

func (Discard) Record(Event) {}
