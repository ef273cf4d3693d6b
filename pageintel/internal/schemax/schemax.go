// Package schemax manages open-ended schema growth: canonical fields
// outside the fixed product schema land in an open side-map, and the
// registry of recognized canonical names grows append-only so re-running
// extraction never creates a second slot for an already-tracked field.
package schemax

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/1genadam/tileshop-rag-sub001/pageintel/internal/record"
	"github.com/1genadam/tileshop-rag-sub001/refdata"
)

// ErrConflict reports that two different registered canonical names refer
// to the same underlying concept. It is the only schema condition that
// needs operator attention (a reference-data correction); everything else
// resolves locally.
var ErrConflict = errors.New("schemax: canonical name conflict")

// Store persists registered canonical names across restarts. Nil means
// memory-only (tests).
type Store interface {
	AddCanonicalName(ctx context.Context, name string, pass record.Pass) error
	CanonicalNames(ctx context.Context) ([]string, error)
}

// Registry is the append-only canonical-name authority. Concurrent runs
// may race to register the same new name, so access is serialized; names
// are never removed or renamed.
type Registry struct {
	mu       sync.Mutex
	names    map[string]bool
	bySquash map[string]string // squashed spelling -> registered canonical
	store    Store
}

// NewRegistry builds a registry, seeding it from the store when one is
// given.
func NewRegistry(ctx context.Context, store Store) (*Registry, error) {
	r := &Registry{
		names:    make(map[string]bool),
		bySquash: make(map[string]string),
		store:    store,
	}
	if store == nil {
		return r, nil
	}
	names, err := store.CanonicalNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("schemax: load canonical names: %w", err)
	}
	for _, name := range names {
		r.names[name] = true
		r.bySquash[refdata.Squash(name)] = name
	}
	return r, nil
}

// Register records a canonical name. Registering an existing name is a
// no-op. If a different registered name squashes to the same spelling the
// registry has diverged: Register refuses the new name and returns
// ErrConflict for escalation.
func (r *Registry) Register(ctx context.Context, name string, pass record.Pass) (added bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.names[name] {
		return false, nil
	}
	squashed := refdata.Squash(name)
	if prior, ok := r.bySquash[squashed]; ok && prior != name {
		return false, fmt.Errorf("%w: %q collides with registered %q", ErrConflict, name, prior)
	}

	if r.store != nil {
		if err := r.store.AddCanonicalName(ctx, name, pass); err != nil {
			return false, fmt.Errorf("schemax: persist %q: %w", name, err)
		}
	}
	r.names[name] = true
	r.bySquash[squashed] = name
	return true, nil
}

// Names returns every registered canonical name in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.names))
	for name := range r.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the registered name count.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.names)
}

// Expander routes canonical fields outside the fixed schema into the open
// side-map, registering new names as it sees them.
type Expander struct {
	reg *Registry
}

func NewExpander(reg *Registry) *Expander {
	return &Expander{reg: reg}
}

// Expand splits fields into the open side-map. Fixed-schema fields are
// skipped (the assembler binds those). A field whose name conflicts with
// the registry is dropped from the map and reported; any other registry
// failure aborts with an error.
func (e *Expander) Expand(ctx context.Context, fields []record.CanonicalField) (open map[string]record.CanonicalField, conflicts []string, err error) {
	open = make(map[string]record.CanonicalField)
	for _, f := range fields {
		if record.FixedFields[f.Name] {
			continue
		}
		if _, rerr := e.reg.Register(ctx, f.Name, f.Pass); rerr != nil {
			if errors.Is(rerr, ErrConflict) {
				conflicts = append(conflicts, rerr.Error())
				continue
			}
			return nil, conflicts, rerr
		}
		open[f.Name] = f
	}
	return open, conflicts, nil
}
