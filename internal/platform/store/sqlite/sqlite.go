// Package sqlite implements the audit store on SQLite via GORM.
package sqlite

import (
	"context"
	"fmt"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fetchguard/fetchguard/internal/platform/store"
)

func init() {
	store.Register("sqlite", NewDriver)
}

// Driver implements store.Driver using SQLite via GORM.
type Driver struct {
	dataDir string
	db      *gorm.DB
}

// NewDriver creates a new SQLite driver instance.
func NewDriver(cfg *store.DriverConfig) (store.Driver, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data_dir is required for sqlite driver")
	}
	return &Driver{dataDir: cfg.DataDir}, nil
}

// Name returns the driver name.
func (d *Driver) Name() string {
	return "sqlite"
}

// Init opens the database and runs AutoMigrate.
func (d *Driver) Init(ctx context.Context) error {
	dbPath := filepath.Join(d.dataDir, "fetchguard.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	d.db = db

	if err := db.AutoMigrate(&store.FetchRecord{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close closes the database connection. Subsequent operations return
// store.ErrClosed.
func (d *Driver) Close() error {
	if d.db == nil {
		return nil
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	d.db = nil
	return sqlDB.Close()
}

// RecordFetch appends one audit entry.
func (d *Driver) RecordFetch(ctx context.Context, rec *store.FetchRecord) error {
	if d.db == nil {
		return store.ErrClosed
	}
	return d.db.WithContext(ctx).Create(rec).Error
}

// ListFetches returns the most recent entries, newest first.
func (d *Driver) ListFetches(ctx context.Context, limit int) ([]*store.FetchRecord, error) {
	if d.db == nil {
		return nil, store.ErrClosed
	}
	var recs []*store.FetchRecord
	q := d.db.WithContext(ctx).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}
