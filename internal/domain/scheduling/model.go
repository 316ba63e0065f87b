package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Appointment is one calendar slot. Patients are referenced by display name;
// the recall selector groups by it.
type Appointment struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Date      time.Time `json:"date"`
	Treatment string    `json:"treatment"`
	Status    Status    `json:"status"`
}

// RecallEntry is one overdue patient: their most recent past appointment and
// an optional prefilled contact link.
type RecallEntry struct {
	Name        string    `json:"name"`
	LastVisit   time.Time `json:"last_visit"`
	Treatment   string    `json:"treatment"`
	ContactLink string    `json:"contact_link,omitempty"`
}
