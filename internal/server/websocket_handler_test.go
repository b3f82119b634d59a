package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"echolink/internal/domain/user"
	"echolink/internal/signaling"
)

type stubConn struct {
	sendErr error
	closed  bool
}

func (s *stubConn) Send(payload []byte) error { return s.sendErr }

func (s *stubConn) Close() error {
	s.closed = true
	return nil
}

func newTestRegistry() *signaling.ConnectionRegistry {
	return signaling.NewConnectionRegistry(signaling.NewRoomTracker(), zap.NewNop())
}

func TestOwnsDisconnectWhileRegistered(t *testing.T) {
	registry := newTestRegistry()
	userID := uuid.New()
	conn := &stubConn{}
	registry.Register(userID, conn)

	assert.True(t, ownsDisconnect(registry, userID, conn))
}

func TestOwnsDisconnectAfterSendFailureEviction(t *testing.T) {
	registry := newTestRegistry()
	userID := uuid.New()
	conn := &stubConn{sendErr: errors.New("broken pipe")}
	registry.Register(userID, conn)

	assert.False(t, registry.Send(userID, []byte(`{}`)))
	_, ok := registry.Get(userID)
	assert.False(t, ok)

	// The evicted connection's exit must still run presence cleanup.
	assert.True(t, ownsDisconnect(registry, userID, conn))
}

func TestOwnsDisconnectSkipsReplacedConnection(t *testing.T) {
	registry := newTestRegistry()
	userID := uuid.New()
	old := &stubConn{}
	registry.Register(userID, old)
	newer := &stubConn{}
	registry.Register(userID, newer)

	assert.False(t, ownsDisconnect(registry, userID, old))
	assert.True(t, ownsDisconnect(registry, userID, newer))
}

type fakeUserRepo struct {
	lastSeen []uuid.UUID
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	return user.User{ID: id}, nil
}

func (f *fakeUserRepo) UpdateOnlineStatus(ctx context.Context, userID uuid.UUID, isOnline bool) error {
	return nil
}

func (f *fakeUserRepo) UpdateLastSeen(ctx context.Context, userID uuid.UUID, lastSeen time.Time) error {
	f.lastSeen = append(f.lastSeen, userID)
	return nil
}

func TestTouchLastSeen(t *testing.T) {
	users := &fakeUserRepo{}
	h := &WebSocketHandler{users: users, logger: NewWebSocketLogger(zap.NewNop())}
	userID := uuid.New()

	h.touchLastSeen(userID)

	require.Len(t, users.lastSeen, 1)
	assert.Equal(t, userID, users.lastSeen[0])
}
