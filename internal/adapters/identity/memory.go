package identity

import (
	"context"
	"fmt"
	"sync"
)

// MemoryResolver implements Resolver over an in-process map. Tests register
// users directly; the dev backend runs it in echo mode where every id
// resolves to itself.
type MemoryResolver struct {
	mu    sync.RWMutex
	names map[string]string
	echo  bool
}

// MemoryOption applies a configuration option to the MemoryResolver.
type MemoryOption func(*MemoryResolver)

// WithEcho makes unknown ids resolve to themselves instead of ErrNotFound.
func WithEcho() MemoryOption {
	return func(r *MemoryResolver) {
		r.echo = true
	}
}

// WithUsers seeds the resolver with known users.
func WithUsers(users map[string]string) MemoryOption {
	return func(r *MemoryResolver) {
		for id, name := range users {
			if id != "" {
				r.names[id] = name
			}
		}
	}
}

// NewMemoryResolver creates a resolver with configuration options.
func NewMemoryResolver(opts ...MemoryOption) *MemoryResolver {
	r := &MemoryResolver{names: make(map[string]string)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds or replaces one user record.
func (r *MemoryResolver) Register(userID, displayName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[userID] = displayName
}

// DisplayName returns the display name for userID, or ErrNotFound.
func (r *MemoryResolver) DisplayName(ctx context.Context, userID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name, ok := r.names[userID]; ok {
		return name, nil
	}
	if r.echo {
		return userID, nil
	}
	return "", fmt.Errorf("resolve %s: %w", userID, ErrNotFound)
}
