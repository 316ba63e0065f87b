package ledger

import (
	"time"

	"github.com/google/uuid"
)

type EntryType string

const (
	TypeIncome  EntryType = "income"
	TypeExpense EntryType = "expense"
)

// MethodHistorical marks a synthetic payment materialized from the legacy
// paid scalar the first time a real payment is recorded against an entry.
const MethodHistorical = "historical"

// Payment is one received payment against an income entry. The list is
// append-only and never reordered.
type Payment struct {
	Amount        float64   `json:"amount"`
	Method        string    `json:"method"`
	Date          time.Time `json:"date"`
	ReceiptNumber string    `json:"receipt_number,omitempty"`
}

// Entry is one ledger line: an income quote with its payment history, or an
// expense. Paid is the legacy scalar kept for entries written before payment
// lists existed; once Payments is non-empty it is maintained as their sum
// and the list is the source of truth.
type Entry struct {
	ID          uuid.UUID  `json:"id"`
	Type        EntryType  `json:"type"`
	PatientName string     `json:"patient_name,omitempty"`
	Description string     `json:"description"`
	Category    string     `json:"category,omitempty"`
	Total       float64    `json:"total"`
	Paid        float64    `json:"paid"`
	Payments    []Payment  `json:"payments"`
	Date        time.Time  `json:"date"`
	PatientRef  *uuid.UUID `json:"patient_ref,omitempty"`
}

// EffectivePaid is the amount actually received: the payment list when one
// exists, the legacy scalar otherwise. Never both.
func (e *Entry) EffectivePaid() float64 {
	if len(e.Payments) > 0 {
		sum := 0.0
		for _, p := range e.Payments {
			sum += p.Amount
		}
		return sum
	}
	return e.Paid
}

// Pending is the signed outstanding balance. Negative means overpaid; the
// sign is preserved here and clamped only for display.
func (e *Entry) Pending() float64 {
	return e.Total - e.EffectivePaid()
}

// PendingDisplay is the outstanding balance as shown to users and summed
// into clinic debt, never negative.
func (e *Entry) PendingDisplay() float64 {
	if p := e.Pending(); p > 0 {
		return p
	}
	return 0
}

// Summary is the clinic-wide financial picture, recomputed on every read.
type Summary struct {
	TotalCollected float64 `json:"total_collected"`
	TotalExpenses  float64 `json:"total_expenses"`
	NetProfit      float64 `json:"net_profit"`
	TotalDebt      float64 `json:"total_debt"`
}
