package database

import (
	"embed"
	"fmt"
	"path"
	"sync"

	"github.com/pressly/goose/v3"
	"github.com/ytarchive/ytarchive/pkg/logger"
)

var (
	//go:embed migrations
	migrations embed.FS

	// goose configuration is global, so migrations for engines on
	// different backends must not interleave.
	migrationLock sync.Mutex
)

// ExecuteMigrations uses the comp-time embedded SQL migrations (found in the 'migrations'
// dir in this package, one directory per backend) and runs them against this engine.
// The migrations own the internal bookkeeping tables only; media tables are created
// through the table store.
func (engine *Engine) ExecuteMigrations() error {
	if engine == nil || engine.DB == nil {
		return fmt.Errorf("cannot execute migrations when engine has not yet connected")
	}

	migrationLock.Lock()
	defer migrationLock.Unlock()

	backend := string(engine.Dialect.Backend())
	goose.SetBaseFS(migrations)
	goose.SetLogger(dbLogger)
	if err := goose.SetDialect(backend); err != nil {
		return fmt.Errorf("failed to set dialect for DB migration: %w", err)
	}

	dbLogger.Emit(logger.DEBUG, "Checking for pending DB migrations...\n")
	if err := goose.Up(engine.DB.DB, path.Join("migrations", backend)); err != nil {
		return fmt.Errorf("failed to migrate DB: %w", err)
	}

	dbLogger.Emit(logger.SUCCESS, "DB migration complete!\n")
	return nil
}
