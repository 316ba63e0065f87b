// Package export renders clinical and financial snapshots as CSV documents
// for printing and sharing. It depends on its own row types only; callers
// map their entities in.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

// ToothRow is one odontogram line: the tooth number, its derived display
// state, the per-face states in render order, and any attached plan.
type ToothRow struct {
	Number          int
	Display         string
	Vestibular      string
	Lingual         string
	Mesial          string
	Distal          string
	Occlusal        string
	TreatmentName   string
	TreatmentStatus string
	Notes           string
}

// ChartCSV writes a full odontogram snapshot, one row per tooth, preceded by
// the patient line and the two hygiene indices.
func ChartCSV(w io.Writer, patientName string, bleedingIndex, plaqueIndex int, rows []ToothRow) error {
	cw := csv.NewWriter(w)

	meta := [][]string{
		{"patient", patientName},
		{"bleeding_index", fmt.Sprintf("%d%%", bleedingIndex)},
		{"plaque_index", fmt.Sprintf("%d%%", plaqueIndex)},
		{},
		{"tooth", "state", "vestibular", "lingual", "mesial", "distal", "occlusal", "treatment", "treatment_status", "notes"},
	}
	for _, rec := range meta {
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write chart header: %w", err)
		}
	}

	for _, r := range rows {
		rec := []string{
			fmt.Sprintf("%d", r.Number),
			r.Display,
			r.Vestibular, r.Lingual, r.Mesial, r.Distal, r.Occlusal,
			r.TreatmentName, r.TreatmentStatus, r.Notes,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write tooth %d: %w", r.Number, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// PaymentRow is one payment line on a quote document.
type PaymentRow struct {
	Amount        float64
	Method        string
	Date          time.Time
	ReceiptNumber string
}

// QuoteSnapshot is everything a printable quote needs: the header fields
// plus the reconciled payment history.
type QuoteSnapshot struct {
	ClinicName  string
	PatientName string
	Description string
	Date        time.Time
	Total       float64
	Paid        float64
	Pending     float64
	Payments    []PaymentRow
}

// QuoteCSV writes a quote with its payment history. Pending is expected to
// be the display value, already clamped at zero.
func QuoteCSV(w io.Writer, q QuoteSnapshot) error {
	cw := csv.NewWriter(w)

	head := [][]string{
		{"clinic", q.ClinicName},
		{"patient", q.PatientName},
		{"description", q.Description},
		{"date", q.Date.Format("2006-01-02")},
		{"total", formatAmount(q.Total)},
		{"paid", formatAmount(q.Paid)},
		{"pending", formatAmount(q.Pending)},
		{},
		{"payment_date", "amount", "method", "receipt"},
	}
	for _, rec := range head {
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write quote header: %w", err)
		}
	}

	for _, p := range q.Payments {
		rec := []string{
			p.Date.Format("2006-01-02"),
			formatAmount(p.Amount),
			p.Method,
			p.ReceiptNumber,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write payment row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
