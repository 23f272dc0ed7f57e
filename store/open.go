// Package store provides the persistence backends for client records: a
// gorm-backed table (postgres or sqlite) and a MongoDB collection.
package store

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"p9e.in/energydesk/pkg/records"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// Backend is a records.Store that can be health-checked and released.
type Backend interface {
	records.Store
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type Options struct {
	Driver string
	// DSN is the gorm connection string (postgres DSN or sqlite file).
	DSN string
	// MongoURI and MongoDatabase select the collection for the mongo driver.
	MongoURI      string
	MongoDatabase string
	// SQLLogLevel is passed to gorm's logger.
	SQLLogLevel gormlogger.LogLevel
}

// Open connects the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Driver {
	case DriverPostgres, DriverSQLite:
		db, err := OpenGorm(opts)
		if err != nil {
			return nil, err
		}
		return NewGormStore(db), nil
	case DriverMongo:
		return DialMongo(ctx, opts.MongoURI, opts.MongoDatabase)
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", opts.Driver)
}

func OpenGorm(opts Options) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case DriverPostgres:
		dialector = postgres.Open(opts.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("driver %q is not a gorm driver", opts.Driver)
	}
	level := opts.SQLLogLevel
	if level == 0 {
		level = gormlogger.Warn
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
