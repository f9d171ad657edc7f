// Package server tracks live connections and their display names via the
// Registry type, the single source of truth for who is connected.
package server

import (
	"errors"
	"sync"
)

// ErrAlreadyRegistered is returned when a connection is registered twice,
// which indicates a broken handler lifecycle.
var ErrAlreadyRegistered = errors.New("connection already registered")

// RegistryEntry is one point-in-time registry row. Name is empty while the
// connection has not logged in yet.
type RegistryEntry struct {
	Client *Client
	Name   string
}

// Registry maps live connections to their optional display names. All methods
// are safe for concurrent use; iteration always happens over a copied
// snapshot so no lock is ever held across send I/O.
type Registry struct {
	mu    sync.RWMutex
	names map[*Client]string
	order []*Client
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		names: make(map[*Client]string),
	}
}

// Register adds a connection with no display name. Registering a connection
// that is already present returns ErrAlreadyRegistered.
func (r *Registry) Register(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.names[c]; exists {
		return ErrAlreadyRegistered
	}

	r.names[c] = ""
	r.order = append(r.order, c)
	return nil
}

// SetName associates a display name with a registered connection and returns
// the name actually stored. An empty name gets a deterministic fallback
// derived from the connection id, so every logged-in connection has a
// non-empty name. A connection that already has a name keeps it; re-login
// never renames. Returns the empty string if the connection is not
// registered.
func (r *Registry) SetName(c *Client, name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.names[c]
	if !ok {
		return ""
	}
	if existing != "" {
		return existing
	}

	if name == "" {
		name = c.FallbackName()
	}
	r.names[c] = name
	return name
}

// Unregister removes a connection and returns its stored display name. The
// second return reports whether the connection was present and had logged
// in. Unregistering an absent connection is a no-op, which keeps cleanup
// races between the broadcaster and the connection's own handler harmless.
func (r *Registry) Unregister(c *Client) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, ok := r.names[c]
	if !ok {
		return "", false
	}

	delete(r.names, c)
	for i, other := range r.order {
		if other == c {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	return name, name != ""
}

// Name returns the display name of a connection and whether it has logged in.
func (r *Registry) Name(c *Client) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name := r.names[c]
	return name, name != ""
}

// Snapshot returns a point-in-time copy of all registry entries in
// registration order, safe to iterate while the registry keeps mutating.
func (r *Registry) Snapshot() []RegistryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]RegistryEntry, 0, len(r.order))
	for _, c := range r.order {
		entries = append(entries, RegistryEntry{Client: c, Name: r.names[c]})
	}
	return entries
}

// Names returns all currently-set display names in registration order,
// excluding connections that have not logged in.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.order))
	for _, c := range r.order {
		if name := r.names[c]; name != "" {
			names = append(names, name)
		}
	}
	return names
}

// FindByName returns the first connection, in registration order, whose
// display name equals name.
func (r *Registry) FindByName(name string) (*Client, bool) {
	if name == "" {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.order {
		if r.names[c] == name {
			return c, true
		}
	}
	return nil, false
}

// Len returns the number of registered connections, anonymous ones included.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}
