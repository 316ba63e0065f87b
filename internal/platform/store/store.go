// Package store is the persistence boundary of the clinic core. Domain
// services keep their canonical state in memory and push JSON snapshots of
// their own entities here; the store owns storage only, never the schema.
package store

import (
	"context"
	"encoding/json"
)

// Collection names used by the clinic core.
const (
	CollectionPatients     = "patients"
	CollectionCharts       = "charts"
	CollectionAppointments = "appointments"
	CollectionFinancials   = "financials"
	CollectionPacks        = "packs"
	CollectionTeam         = "team"
	CollectionAudit        = "audit"
)

// Record is one persisted document: an opaque snapshot keyed by id.
type Record struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// Store is the contract the persistence collaborator fulfils. Upsert and
// Delete are called fire-and-forget by the domain services; Load hydrates
// in-memory state at startup.
type Store interface {
	Load(ctx context.Context, collection string) ([]Record, error)
	Upsert(ctx context.Context, collection, id string, data any) error
	Delete(ctx context.Context, collection, id string) error
}
