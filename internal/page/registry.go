// Package page connects browser page instances to redirect sessions over
// WebSocket.
package page

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// Registry tracks the open page connections so they can be closed together
// on shutdown.
type Registry struct {
	mu     sync.RWMutex
	active map[string]*websocket.Conn
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		active: make(map[string]*websocket.Conn),
	}
}

// Get returns the connection for a session.
func (m *Registry) Get(sessionID string) *websocket.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active[sessionID]
}

// Len returns the number of open pages.
func (m *Registry) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}

// Register adds a page connection.
func (m *Registry) Register(sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[sessionID] = conn
	slog.Debug("Page session registered", "session_id", sessionID)
}

// Unregister removes a page connection if it is still the registered one.
func (m *Registry) Unregister(sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.active[sessionID]; ok && current == conn {
		delete(m.active, sessionID)
		slog.Debug("Page session unregistered", "session_id", sessionID)
	}
}

// CloseAll closes every open page. Each page's handler then tears its
// session down, cancelling any pending redirect.
func (m *Registry) CloseAll(reason string) {
	m.mu.Lock()
	conns := make(map[string]*websocket.Conn, len(m.active))
	for id, c := range m.active {
		conns[id] = c
	}
	m.mu.Unlock()

	for id, conn := range conns {
		_ = conn.Close(websocket.StatusGoingAway, reason)
		slog.Info("Page session closed", "session_id", id, "reason", reason)
	}
}

// Wait blocks until every page handler has unregistered or ctx is done.
func (m *Registry) Wait(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for m.Len() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
