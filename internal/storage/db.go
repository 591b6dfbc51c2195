// Package storage wires the embedded badgerhold store used by every C12
// persistence adapter: jobs, findings, the domain graph, the dark-web URL
// database, and positive indicators.
package storage

import (
	"fmt"
	"os"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/sentrywatch/threatwatch/internal/common"
)

// DB manages the single badgerhold connection shared by every store.
type DB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// Open creates the data directory (if needed) and opens the store at
// cfg.BadgerPath, optionally wiping it first when ResetOnStartup is set —
// useful for integration tests and ephemeral demo environments.
func Open(cfg common.StorageConfig, logger arbor.ILogger) (*DB, error) {
	if cfg.ResetOnStartup {
		if _, err := os.Stat(cfg.BadgerPath); err == nil {
			logger.Debug().Str("path", cfg.BadgerPath).Msg("removing existing store (reset_on_startup=true)")
			if err := os.RemoveAll(cfg.BadgerPath); err != nil {
				logger.Warn().Err(err).Str("path", cfg.BadgerPath).Msg("failed to remove store directory")
			}
		}
	}

	if err := os.MkdirAll(cfg.BadgerPath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = cfg.BadgerPath
	options.ValueDir = cfg.BadgerPath
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger store at %s: %w", cfg.BadgerPath, err)
	}

	logger.Debug().Str("path", cfg.BadgerPath).Msg("opened persistent store")
	return &DB{store: store, logger: logger}, nil
}

// Store returns the underlying badgerhold handle for package-specific stores.
func (d *DB) Store() *badgerhold.Store {
	return d.store
}

// Close closes the underlying Badger database.
func (d *DB) Close() error {
	if d.store == nil {
		return nil
	}
	return d.store.Close()
}
