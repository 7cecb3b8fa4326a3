// Package relato bundles the relation-tuple store and resolution engine
// into ready-to-use services.
package relato

import (
	"github.com/relato/relato/engine"
	"github.com/relato/relato/namespace"
	"github.com/relato/relato/persistence"
	"github.com/relato/relato/tuple"
	"gorm.io/gorm"
)

// Service groups a tuple store with its resolution engines.
type Service struct {
	Store    tuple.Store
	Registry *namespace.Registry
	Checker  *engine.Checker
	Expander *engine.Expander
}

// NewMemoryService creates a service over an in-memory tuple store,
// suitable for tests and demos. A nil registry is treated as empty.
func NewMemoryService(registry *namespace.Registry, opts ...engine.CheckerOption) *Service {
	store := tuple.NewMemoryStore()
	return newService(store, registry, opts...)
}

// NewService creates a service over a gorm-backed tuple store using one of
// the registered database drivers (sqlite, postgres, mysql).
func NewService(driver, dsn string, registry *namespace.Registry, opts ...engine.CheckerOption) (*Service, error) {
	store, err := persistence.NewTupleStore(driver, dsn)
	if err != nil {
		return nil, err
	}
	return newService(store, registry, opts...), nil
}

// NewServiceWithDB creates a service over an already-open database.
func NewServiceWithDB(db *gorm.DB, registry *namespace.Registry, opts ...engine.CheckerOption) (*Service, error) {
	repo := persistence.NewTupleRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		return nil, err
	}
	return newService(repo, registry, opts...), nil
}

func newService(store tuple.Store, registry *namespace.Registry, opts ...engine.CheckerOption) *Service {
	if registry == nil {
		registry = namespace.NewRegistry()
	}
	resolver := engine.NewResolver(store, registry)
	return &Service{
		Store:    store,
		Registry: registry,
		Checker:  engine.NewChecker(resolver, opts...),
		Expander: engine.NewExpander(resolver),
	}
}
