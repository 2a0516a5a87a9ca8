package sync

import (
	"context"
	"database/sql"
	stdsync "sync"

	"partner-sync/internal/common/errors"
)

// Resolver maps an ack-file key back to an entity of one module type.
// Resolve reports whether the key names an existing entity; it never
// invents one.
type Resolver interface {
	Resolve(ctx context.Context, key string) (bool, error)
	// Label is the human-readable module name used in digest messages,
	// e.g. "Product".
	Label() string
}

// Registry maps module_type values to their Resolver. Lookups for an
// unregistered module type fail loudly rather than guessing.
type Registry struct {
	mu        stdsync.RWMutex
	resolvers map[string]Resolver
}

func NewRegistry() *Registry {
	return &Registry{resolvers: make(map[string]Resolver)}
}

func (r *Registry) Register(moduleType string, resolver Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[moduleType] = resolver
}

func (r *Registry) Lookup(moduleType string) (Resolver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	resolver, ok := r.resolvers[moduleType]
	if !ok {
		return nil, errors.NewUnknownModuleTypeError(moduleType)
	}
	return resolver, nil
}

func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers = make(map[string]Resolver)
}

// ProductResolver resolves ack keys against the product catalog by unique
// product code. It backs the default module type.
type ProductResolver struct {
	db *sql.DB
}

func NewProductResolver(db *sql.DB) *ProductResolver {
	return &ProductResolver{db: db}
}

func (r *ProductResolver) Resolve(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE unique_identifier = $1)`, key).Scan(&exists)
	if err != nil {
		return false, errors.NewQueryExecutionFailedError("resolve product", err)
	}
	return exists, nil
}

func (r *ProductResolver) Label() string {
	return "Product"
}

// EntryResolver resolves ack keys against customs entries by broker
// reference number.
type EntryResolver struct {
	db *sql.DB
}

func NewEntryResolver(db *sql.DB) *EntryResolver {
	return &EntryResolver{db: db}
}

func (r *EntryResolver) Resolve(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM entries WHERE broker_reference = $1)`, key).Scan(&exists)
	if err != nil {
		return false, errors.NewQueryExecutionFailedError("resolve entry", err)
	}
	return exists, nil
}

func (r *EntryResolver) Label() string {
	return "Entry"
}
