// Package designstore provides crash-safe persistence for design.DesignRecord
// (spec §4.2).
package designstore

import (
	"context"

	"github.com/cadforge/pipeline/design"
)

// Store persists DesignRecords, keyed by DesignRecord.ID (§4.2).
//
// Load never raises on a missing or corrupt record; it returns (zero value,
// false, nil) in both cases (§4.2 "load returns empty on missing or corrupt;
// it never raises"). List returns records ordered by UpdatedAt descending.
type Store interface {
	Save(ctx context.Context, record design.DesignRecord) error
	Load(ctx context.Context, id string) (design.DesignRecord, bool, error)
	List(ctx context.Context) ([]design.DesignRecord, error)
}
