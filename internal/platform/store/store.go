// Package store persists the audit trail of fetch decisions: every URL
// the sidecar was asked to fetch, whether it was allowed, and why not.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned by driver operations after Close (or before
// Init opened the backend).
var ErrClosed = errors.New("store closed")

// FetchRecord is one audit entry for a guarded fetch.
type FetchRecord struct {
	ID         string `json:"id" gorm:"primaryKey"`
	URL        string `json:"url" gorm:"index"`
	Outcome    string `json:"outcome" gorm:"index"` // allowed, blocked, failed
	Reason     string `json:"reason"`               // validation reason for blocked fetches
	DurationMS int64  `json:"duration_ms"`
	CreatedAt  int64  `json:"created_at" gorm:"index"`
}

// Outcome values for FetchRecord.
const (
	OutcomeAllowed = "allowed"
	OutcomeBlocked = "blocked"
	OutcomeFailed  = "failed"
)

// Driver is a persistence backend for audit records. Implementations
// must be safe for concurrent use.
type Driver interface {
	// Init initializes the driver (create tables, open files).
	Init(ctx context.Context) error

	// Close releases resources held by the driver.
	Close() error

	// Name returns the driver name.
	Name() string

	// RecordFetch appends one audit entry.
	RecordFetch(ctx context.Context, rec *FetchRecord) error

	// ListFetches returns the most recent entries, newest first.
	ListFetches(ctx context.Context, limit int) ([]*FetchRecord, error)
}

// DriverConfig carries backend settings.
type DriverConfig struct {
	DataDir string
}

// Factory constructs a driver from its config.
type Factory func(cfg *DriverConfig) (Driver, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Factory)
)

// Register makes a driver available by name. Drivers register from their
// package init.
func Register(name string, factory Factory) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[name] = factory
}

// Open constructs the named driver.
func Open(name string, cfg *DriverConfig) (Driver, error) {
	driversMu.RLock()
	factory, ok := drivers[name]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown store driver %q", name)
	}
	return factory(cfg)
}
