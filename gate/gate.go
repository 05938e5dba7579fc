// Package gate is a small authorization registry. A Gate maps resource type
// names ("client", "sale", ...) to a Policy deciding whether a subject may
// perform an action on a given record.
//
// The subject type is generic; the dashboard uses Gate[uint] keyed by user id.
package gate

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Gate is the central authorization checkpoint. It is safe for concurrent use.
type Gate[U comparable] struct {
	mu       sync.RWMutex
	policies map[string]Policy[U]
}

// NewGate creates an empty Gate.
func NewGate[U comparable]() *Gate[U] {
	return &Gate[U]{policies: make(map[string]Policy[U])}
}

// Register adds (or replaces) the policy for a resource type.
func (g *Gate[U]) Register(resourceType string, p Policy[U]) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.policies[resourceType] = p
}

// Resources lists the registered resource types, sorted.
func (g *Gate[U]) Resources() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.policies))
	for k := range g.policies {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Authorize returns nil when user may perform action on resource.
// A zero-value user is always ErrUnauthorized; an unknown resource type is
// ErrNoPolicyDefined (wrapped with the type name).
func (g *Gate[U]) Authorize(ctx context.Context, user U, action Action, resourceType string, resource any) error {
	var zero U
	if user == zero {
		return ErrUnauthorized
	}
	g.mu.RLock()
	p, ok := g.policies[resourceType]
	g.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPolicyDefined, resourceType)
	}
	if !p.Can(ctx, user, action, resource) {
		return ErrUnauthorized
	}
	return nil
}

// Can is Authorize reduced to a bool.
func (g *Gate[U]) Can(ctx context.Context, user U, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, user, action, resourceType, resource) == nil
}
