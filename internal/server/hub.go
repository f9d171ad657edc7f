// Package server coordinates connection lifecycle, registration, and graceful
// shutdown for the ChatRelay WebSocket system via the Hub type.
package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ErrHubClosed is returned by Attach once shutdown has begun.
var ErrHubClosed = errors.New("hub is shutting down")

// Hub owns the shared registry and the router/broadcaster pair built over it.
// It attaches upgraded connections, starts their pump goroutines, and closes
// every connection on shutdown. The registry is the only shared mutable
// state; the hub itself holds no per-message state.
type Hub struct {
	registry    *Registry
	router      *Router
	broadcaster *Broadcaster
	logger      zerolog.Logger

	mu           sync.Mutex
	shuttingDown bool
	wg           sync.WaitGroup
}

// NewHub creates a Hub with a fresh registry, router, and broadcaster.
func NewHub(logger zerolog.Logger) *Hub {
	registry := NewRegistry()
	return &Hub{
		registry:    registry,
		router:      NewRouter(registry, nil, logger),
		broadcaster: NewBroadcaster(registry, logger),
		logger:      logger,
	}
}

// Registry returns the hub's connection registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Broadcaster returns the hub's delivery primitive.
func (h *Hub) Broadcaster() *Broadcaster {
	return h.broadcaster
}

// Attach registers a newly upgraded connection with the hub and starts its
// read and write pumps. The connection enters the registry anonymous; it
// receives no broadcast traffic until it logs in.
func (h *Hub) Attach(conn *websocket.Conn, addr string) (*Client, error) {
	// Registration happens under the hub lock so it is atomic with
	// Shutdown's snapshot: a connection is either rejected here or included
	// in the set Shutdown closes.
	h.mu.Lock()
	if h.shuttingDown {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}

	client := newClient(conn, h, addr)
	if err := h.registry.Register(client); err != nil {
		h.mu.Unlock()
		return nil, err
	}
	h.wg.Add(2)
	h.mu.Unlock()

	connectionsActive.Inc()
	client.logger.Info().
		Int("total_clients", h.registry.Len()).
		Msg("client connected")

	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()

	return client, nil
}

// Shutdown closes every live connection and waits for all pump goroutines to
// finish, up to the given timeout. Each connection runs its normal cleanup
// path, so departures are announced to any peers still draining.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.mu.Lock()
	h.shuttingDown = true
	entries := h.registry.Snapshot()
	h.mu.Unlock()
	h.logger.Info().Int("connections", len(entries)).Msg("shutting down all client connections")

	for _, entry := range entries {
		if entry.Client.conn == nil {
			continue
		}
		if err := entry.Client.conn.Close(); err != nil && !isExpectedCloseError(err) {
			h.logger.Debug().Err(err).Str("client_id", entry.Client.ID()).Msg("error closing client connection")
		}
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info().Msg("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.logger.Warn().Msg("hub shutdown timeout reached; some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
