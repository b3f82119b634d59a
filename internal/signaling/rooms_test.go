package signaling

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRoomJoinAndMembers(t *testing.T) {
	tracker := NewRoomTracker()
	callID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	tracker.Join(callID, alice)
	tracker.Join(callID, bob)

	members := tracker.Members(callID)
	assert.Len(t, members, 2)
	assert.Contains(t, members, alice)
	assert.Contains(t, members, bob)
	assert.True(t, tracker.Contains(callID, alice))
}

func TestRoomJoinIsIdempotent(t *testing.T) {
	tracker := NewRoomTracker()
	callID := uuid.New()
	alice := uuid.New()

	tracker.Join(callID, alice)
	tracker.Join(callID, alice)

	assert.Len(t, tracker.Members(callID), 1)
}

func TestRoomLeaveRemovesEmptyRoom(t *testing.T) {
	tracker := NewRoomTracker()
	callID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	tracker.Join(callID, alice)
	tracker.Join(callID, bob)
	assert.Equal(t, 1, tracker.RoomCount())

	tracker.Leave(callID, alice)
	assert.Equal(t, 1, tracker.RoomCount())
	assert.False(t, tracker.Contains(callID, alice))

	tracker.Leave(callID, bob)
	assert.Equal(t, 0, tracker.RoomCount())
}

func TestRoomLeaveUnknownIsNoop(t *testing.T) {
	tracker := NewRoomTracker()
	tracker.Leave(uuid.New(), uuid.New())
	assert.Equal(t, 0, tracker.RoomCount())
}

func TestRoomMembersUnknownCallIsEmpty(t *testing.T) {
	tracker := NewRoomTracker()
	assert.Empty(t, tracker.Members(uuid.New()))
}

func TestRoomLeaveAll(t *testing.T) {
	tracker := NewRoomTracker()
	callA := uuid.New()
	callB := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	tracker.Join(callA, alice)
	tracker.Join(callA, bob)
	tracker.Join(callB, alice)

	affected := tracker.LeaveAll(alice)
	assert.Len(t, affected, 2)
	assert.Contains(t, affected, callA)
	assert.Contains(t, affected, callB)

	assert.False(t, tracker.Contains(callA, alice))
	assert.True(t, tracker.Contains(callA, bob))
	assert.Equal(t, 1, tracker.RoomCount())
}
