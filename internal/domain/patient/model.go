package patient

import (
	"time"

	"github.com/google/uuid"
)

// EvolutionEntry is one dated clinical note on a patient's history. Entries
// are append-only.
type EvolutionEntry struct {
	ID     uuid.UUID `json:"id"`
	Date   time.Time `json:"date"`
	Note   string    `json:"note"`
	Author string    `json:"author,omitempty"`
}

// Patient is the demographic record. Clinical chart state lives in its own
// collection keyed by the same id.
type Patient struct {
	ID        uuid.UUID        `json:"id"`
	Name      string           `json:"name"`
	Phone     string           `json:"phone,omitempty"` // normalized, country code prefixed
	Email     string           `json:"email,omitempty"`
	Notes     string           `json:"notes,omitempty"`
	Evolution []EvolutionEntry `json:"evolution"`
	CreatedAt time.Time        `json:"created_at"`
}
