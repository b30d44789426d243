// Package discovery defines the local-network advertisement side-channel.
//
// The synchronization core never blocks on discovery and its correctness does
// not depend on it: announcements only help prospective participants map a
// human-chosen label and join code to a reachable address.
package discovery

import (
	"context"
	"strings"
	"sync"
)

// Announcement maps a joinable session to a reachable host address.
type Announcement struct {
	Label    string
	JoinCode string
	Addr     string
}

// Advertiser publishes a joinable session to nearby devices.
type Advertiser interface {
	// Announce publishes or refreshes an announcement.
	Announce(ctx context.Context, a Announcement) error
	// Withdraw removes the announcement for a join code.
	Withdraw(ctx context.Context, joinCode string) error
}

// Browser resolves a join code to a previously announced address.
type Browser interface {
	// Lookup returns the announcement for a join code, if present.
	Lookup(ctx context.Context, joinCode string) (Announcement, bool)
}

// Registry is an in-process Advertiser and Browser used by tests and by
// single-machine setups.
type Registry struct {
	mu      sync.Mutex
	entries map[string]Announcement
}

// NewRegistry creates an empty in-process registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Announcement)}
}

// Announce publishes or refreshes an announcement.
func (r *Registry) Announce(_ context.Context, a Announcement) error {
	code := strings.TrimSpace(a.JoinCode)
	if code == "" {
		return nil
	}
	r.mu.Lock()
	r.entries[code] = a
	r.mu.Unlock()
	return nil
}

// Withdraw removes the announcement for a join code.
func (r *Registry) Withdraw(_ context.Context, joinCode string) error {
	r.mu.Lock()
	delete(r.entries, strings.TrimSpace(joinCode))
	r.mu.Unlock()
	return nil
}

// Lookup returns the announcement for a join code, if present.
func (r *Registry) Lookup(_ context.Context, joinCode string) (Announcement, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.entries[strings.TrimSpace(joinCode)]
	return a, ok
}
