package config

import (
	"context"
	"fmt"
	"sync"

	gormlogger "gorm.io/gorm/logger"

	"p9e.in/energydesk/store"
)

// The store is a process-wide resource: opened once on first use, shared by
// every request, and released only when the process shuts down.
var (
	storeMu   sync.Mutex
	storeOnce sync.Once
	backend   store.Backend
	storeErr  error
)

// OpenStore returns the shared store, connecting (and migrating, for gorm
// backends) on the first call. Later calls return the same handle or the same
// error.
func OpenStore(ctx context.Context, cfg *Config) (store.Backend, error) {
	storeMu.Lock()
	defer storeMu.Unlock()

	storeOnce.Do(func() {
		b, err := store.Open(ctx, StoreOptions(cfg))
		if err != nil {
			storeErr = err
			return
		}
		if gs, ok := b.(*store.GormStore); ok && cfg.AutoMigrate {
			if err := Migrations(gs.DB()); err != nil {
				_ = b.Close(ctx)
				storeErr = fmt.Errorf("could not run migrations: %w", err)
				return
			}
		}
		backend = b
	})
	return backend, storeErr
}

// CloseStore releases the shared store. It is safe to call when no store was
// opened.
func CloseStore(ctx context.Context) error {
	storeMu.Lock()
	defer storeMu.Unlock()

	if backend == nil {
		return nil
	}
	err := backend.Close(ctx)
	backend = nil
	storeErr = fmt.Errorf("store closed")
	return err
}

// StoreOptions maps configuration onto store.Options.
func StoreOptions(cfg *Config) store.Options {
	level := gormlogger.Warn
	switch cfg.LogLevel {
	case "debug":
		level = gormlogger.Info
	case "error":
		level = gormlogger.Error
	}
	return store.Options{
		Driver:        cfg.DBDriver,
		DSN:           cfg.DBDSN,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDB,
		SQLLogLevel:   level,
	}
}
