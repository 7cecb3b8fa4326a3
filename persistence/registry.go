// Package persistence provides the gorm-backed tuple store, the gorm audit
// store and the redis decision cache. The driver registry mirrors how the
// service is deployed: sqlite for demos and tests, postgres or mysql for
// real installations.
package persistence

import (
	"fmt"
	"sync"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DialectorOpener returns a gorm.Dialector for a DSN.
type DialectorOpener = func(dsn string) gorm.Dialector

var (
	registryMu sync.RWMutex
	openers    = map[string]DialectorOpener{
		"sqlite":   sqlite.Open,
		"postgres": postgres.Open,
		"mysql":    mysql.Open,
	}
)

// Register adds a database driver to the registry, replacing any existing
// driver of the same name.
func Register(name string, opener DialectorOpener) {
	registryMu.Lock()
	defer registryMu.Unlock()
	openers[name] = opener
}

// Open connects to the database named by driver. A nil config uses gorm
// defaults.
func Open(driver, dsn string, config *gorm.Config) (*gorm.DB, error) {
	registryMu.RLock()
	opener, ok := openers[driver]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("persistence: unknown database driver %q", driver)
	}
	if config == nil {
		config = &gorm.Config{}
	}

	db, err := gorm.Open(opener(dsn), config)
	if err != nil {
		return nil, fmt.Errorf("persistence: open %s: %w", driver, err)
	}
	return db, nil
}

// NewTupleStore opens the database and returns a migrated tuple repository.
func NewTupleStore(driver, dsn string) (*TupleRepository, error) {
	db, err := Open(driver, dsn, nil)
	if err != nil {
		return nil, err
	}
	repo := NewTupleRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("persistence: migrate relation tuples: %w", err)
	}
	return repo, nil
}
