package export

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestChartCSV(t *testing.T) {
	var buf bytes.Buffer
	rows := []ToothRow{
		{Number: 16, Display: "caries", Occlusal: "caries", Vestibular: "none", Lingual: "none", Mesial: "none", Distal: "none"},
		{Number: 11, Display: "missing"},
	}
	if err := ChartCSV(&buf, "Ana Torres", 25, 50, rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Ana Torres", "25%", "50%", "16,caries", "11,missing"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q:\n%s", want, out)
		}
	}
}

func TestQuoteCSV(t *testing.T) {
	var buf bytes.Buffer
	q := QuoteSnapshot{
		ClinicName:  "Clinica Dental",
		PatientName: "Luis Rojas",
		Description: "Ortodoncia",
		Date:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Total:       100000,
		Paid:        50000,
		Pending:     50000,
		Payments: []PaymentRow{
			{Amount: 30000, Method: "historical", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
			{Amount: 20000, Method: "Efectivo", Date: time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC), ReceiptNumber: "R-17"},
		},
	}
	if err := QuoteCSV(&buf, q); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Luis Rojas", "100000.00", "50000.00", "Efectivo", "R-17", "2024-04-02"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q:\n%s", want, out)
		}
	}
}
