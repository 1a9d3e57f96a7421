package registry

import (
	"sync"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

// RoomRegistry is the process-wide mapping from room id to room. Every
// mutation of a room goes through Update or UpdateExisting, which hold
// that room's lock for the whole closure, so concurrent operations on one
// room cannot interleave while distinct rooms proceed independently.
// Rooms are never deleted; they live for the process lifetime.
type RoomRegistry struct {
	mu    sync.Mutex
	rooms map[string]*roomEntry
}

type roomEntry struct {
	mu   sync.Mutex
	room *entity.Room
}

func New() *RoomRegistry {
	return &RoomRegistry{
		rooms: make(map[string]*roomEntry),
	}
}

// Update - runs fn with exclusive access to the room, creating a fresh
// room on first reference to an unseen id.
func (that *RoomRegistry) Update(id string, fn func(room *entity.Room) error) error {
	entry := that.getOrCreate(id)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	return fn(entry.room)
}

// UpdateExisting - like Update, but never creates: move and reset handlers
// must not bring rooms into existence for unjoined ids.
func (that *RoomRegistry) UpdateExisting(id string, fn func(room *entity.Room) error) error {
	that.mu.Lock()
	entry, ok := that.rooms[id]
	that.mu.Unlock()

	if !ok {
		return apperror.ErrRoomNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	return fn(entry.room)
}

func (that *RoomRegistry) getOrCreate(id string) *roomEntry {
	that.mu.Lock()
	defer that.mu.Unlock()

	entry, ok := that.rooms[id]
	if !ok {
		entry = &roomEntry{room: entity.NewRoom(id)}
		that.rooms[id] = entry
	}

	return entry
}
