package signaling

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConnectionRegistry tracks which user currently owns which live connection.
// At most one entry exists per user id; a new connection for the same user
// replaces any prior one (last-connect-wins).
type ConnectionRegistry struct {
	mu     sync.RWMutex
	conns  map[uuid.UUID]Connection
	rooms  *RoomTracker
	logger *zap.Logger
}

func NewConnectionRegistry(rooms *RoomTracker, logger *zap.Logger) *ConnectionRegistry {
	return &ConnectionRegistry{
		conns:  make(map[uuid.UUID]Connection),
		rooms:  rooms,
		logger: logger.With(zap.String("component", "registry")),
	}
}

// Register stores the mapping, unconditionally overwriting any existing entry
// for the user. The replaced connection is closed.
func (r *ConnectionRegistry) Register(userID uuid.UUID, conn Connection) {
	r.mu.Lock()
	prev, ok := r.conns[userID]
	r.conns[userID] = conn
	r.mu.Unlock()

	if ok && prev != conn {
		_ = prev.Close()
		r.logger.Info("replaced existing connection", zap.String("user_id", userID.String()))
	}
}

// Unregister removes the mapping if present; no-op otherwise.
func (r *ConnectionRegistry) Unregister(userID uuid.UUID) {
	r.mu.Lock()
	delete(r.conns, userID)
	r.mu.Unlock()
}

// Get returns the live connection for a user, if any.
func (r *ConnectionRegistry) Get(userID uuid.UUID) (Connection, bool) {
	r.mu.RLock()
	conn, ok := r.conns[userID]
	r.mu.RUnlock()
	return conn, ok
}

// Send delivers payload to the user's connection and reports success. A
// transport error evicts the stale entry and removes the user from every call
// room, so a dead peer never lingers in the maps.
func (r *ConnectionRegistry) Send(userID uuid.UUID, payload []byte) bool {
	conn, ok := r.Get(userID)
	if !ok {
		return false
	}

	if err := conn.Send(payload); err != nil {
		r.logger.Warn("send failed, evicting connection",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		r.evict(userID, conn)
		return false
	}
	return true
}

// Count returns the number of registered connections.
func (r *ConnectionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// evict removes a stale entry after a failed send. Only the exact connection
// that failed is removed; a concurrent re-register wins.
func (r *ConnectionRegistry) evict(userID uuid.UUID, failed Connection) {
	r.mu.Lock()
	if current, ok := r.conns[userID]; ok && current == failed {
		delete(r.conns, userID)
	}
	r.mu.Unlock()

	_ = failed.Close()
	r.rooms.LeaveAll(userID)
}
