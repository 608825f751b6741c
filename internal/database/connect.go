package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	sqldblogger "github.com/simukti/sqldb-logger"
	"github.com/ytarchive/ytarchive/pkg/logger"
)

var dbLogger = logger.Get("DB")

type (
	SqlLogger struct {
		logger logger.Logger
	}

	// Engine is a ready-to-use persistence handle for a single database
	// on one of the supported backends.
	Engine struct {
		*sqlx.DB
		Dialect Dialect
		Name    string
		config  DatabaseConfig
	}

	// Opener is the connection factory: it returns an Engine connected
	// to the named database using externally supplied configuration.
	Opener func(name string) (*Engine, error)
)

// Open connects to the database named using the backend and connection
// parameters from the config provided.
func Open(config DatabaseConfig, name string) (*Engine, error) {
	dialect, err := NewDialect(config)
	if err != nil {
		return nil, err
	}

	dsn, err := dialect.DSN(name)
	if err != nil {
		return nil, err
	}

	driverName := string(dialect.Backend())
	rawDb, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driverName, err)
	}

	if config.LogQueries {
		rawDb = sqldblogger.OpenDriver(dsn, rawDb.Driver(), &SqlLogger{dbLogger})
	}

	attempts := max(config.ConnectAttempts, 1)
	for attempt := 1; ; attempt++ {
		err := rawDb.Ping()
		if err == nil {
			break
		}

		if attempt >= attempts {
			dbLogger.Emit(logger.ERROR, "Connection to %s database %s FAILED: %v\n", driverName, name, err)
			_ = rawDb.Close()
			return nil, err
		}

		dbLogger.Emit(logger.WARNING, "Attempt (%v/%v) failed... Retrying in 3s\n", attempt, attempts)
		time.Sleep(time.Second * 3)
	}

	if dialect.Backend() == SQLite {
		// A single connection serialises writers, avoiding SQLITE_BUSY
		// when items are persisted concurrently.
		rawDb.SetMaxOpenConns(1)
	}

	dbLogger.Emit(logger.SUCCESS, "Connected to %s database %s\n", driverName, name)
	return &Engine{
		DB:      sqlx.NewDb(rawDb, driverName),
		Dialect: dialect,
		Name:    name,
		config:  config,
	}, nil
}

// NewOpener returns an Opener bound to the config provided.
func NewOpener(config DatabaseConfig) Opener {
	return func(name string) (*Engine, error) { return Open(config, name) }
}

// Config returns the configuration this engine was opened with.
func (engine *Engine) Config() DatabaseConfig { return engine.config }

// WrapTx is a convinience method around the top-level WrapTx, which simply
// uses the engines DB instance as the first argument.
func (engine *Engine) WrapTx(ctx context.Context, f func(tx *sqlx.Tx) error) error {
	if engine == nil || engine.DB == nil {
		return errors.New("database engine has not been opened")
	}

	return WrapTx(ctx, engine.DB, f)
}

func (l *SqlLogger) Log(_ context.Context, level sqldblogger.Level, msg string, data map[string]any) {
	template := "%s - %v\n"
	switch level {
	case sqldblogger.LevelTrace:
		l.logger.Verbosef(template, msg, data)
	case sqldblogger.LevelDebug, sqldblogger.LevelInfo:
		duration := data["duration"]
		query, ok := data["query"]
		if ok {
			l.logger.Debugf("%s [%.2fms] -- %s\n", msg, duration, query)
		} else {
			l.logger.Debugf("%s [%.2fms]\n", msg, duration)
		}
	case sqldblogger.LevelError:
		l.logger.Errorf(template, msg, data)
	}
}

// WrapTx starts a transaction against the provided DB, and then calls the user
// provided function. If this function errors, the transaction is rolled back - otherwise
// the transaction is committed.
func WrapTx(ctx context.Context, db *sqlx.DB, f func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := f(tx); err != nil {
		dbLogger.Errorf("Transaction failed... rolling back. Error: %s\n", err.Error())
		return err
	}

	return tx.Commit()
}
