package websocket

import (
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

// Broadcaster fans room snapshots out to every connection currently joined
// to a room. Membership is transport state, separate from seat occupancy.
type Broadcaster struct {
	logger *slog.Logger

	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		logger: logger,
		rooms:  make(map[string]map[*Client]struct{}),
	}
}

func (that *Broadcaster) Join(roomID string, client *Client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	members, ok := that.rooms[roomID]
	if !ok {
		members = make(map[*Client]struct{})
		that.rooms[roomID] = members
	}

	members[client] = struct{}{}
}

func (that *Broadcaster) Leave(roomID string, client *Client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	members, ok := that.rooms[roomID]
	if !ok {
		return
	}

	delete(members, client)

	if len(members) == 0 {
		delete(that.rooms, roomID)
	}
}

// BroadcastState - fire-and-forget push of the snapshot to all members.
// One undeliverable connection never blocks the rest.
func (that *Broadcaster) BroadcastState(roomID string, snapshot *entity.Snapshot) {
	raw, err := newRawMessage(ActionState, snapshot)
	if err != nil {
		that.logger.Error("failed to build state broadcast", "roomID", roomID, "error", err)
		return
	}

	that.mu.RLock()
	defer that.mu.RUnlock()

	for client := range that.rooms[roomID] {
		client.Send(raw)
	}
}
