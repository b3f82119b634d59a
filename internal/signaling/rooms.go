package signaling

import (
	"sync"

	"github.com/google/uuid"
)

// RoomTracker maps a call id to the set of user ids actively signaling within
// that call. An empty member set is removed entirely, so Members of an unknown
// call and of a fully-left call are indistinguishable.
type RoomTracker struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]map[uuid.UUID]struct{}
}

func NewRoomTracker() *RoomTracker {
	return &RoomTracker{
		rooms: make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

// Join adds userID to the call's member set, creating the set if needed.
// Joining twice has no additional effect.
func (t *RoomTracker) Join(callID, userID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.rooms[callID]
	if !ok {
		members = make(map[uuid.UUID]struct{})
		t.rooms[callID] = members
	}
	members[userID] = struct{}{}
}

// Leave removes userID from the call's member set. The room entry is deleted
// when its last member leaves.
func (t *RoomTracker) Leave(callID, userID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leaveLocked(callID, userID)
}

// Members returns the users currently in the call's room. Unknown call ids
// yield an empty slice.
func (t *RoomTracker) Members(callID uuid.UUID) []uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()

	members := make([]uuid.UUID, 0, len(t.rooms[callID]))
	for id := range t.rooms[callID] {
		members = append(members, id)
	}
	return members
}

// Contains reports whether userID is in the call's room.
func (t *RoomTracker) Contains(callID, userID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.rooms[callID][userID]
	return ok
}

// LeaveAll removes userID from every room it belongs to and returns the call
// ids that were affected. Used on disconnect and on send-failure eviction.
func (t *RoomTracker) LeaveAll(userID uuid.UUID) []uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()

	var affected []uuid.UUID
	for callID, members := range t.rooms {
		if _, ok := members[userID]; ok {
			affected = append(affected, callID)
			t.leaveLocked(callID, userID)
		}
	}
	return affected
}

// RoomCount returns the number of live rooms.
func (t *RoomTracker) RoomCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rooms)
}

func (t *RoomTracker) leaveLocked(callID, userID uuid.UUID) {
	members, ok := t.rooms[callID]
	if !ok {
		return
	}
	delete(members, userID)
	if len(members) == 0 {
		delete(t.rooms, callID)
	}
}
