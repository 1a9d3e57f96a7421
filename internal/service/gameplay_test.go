package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBroadcaster struct {
	mu     sync.Mutex
	states map[string][]*entity.Snapshot
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{states: make(map[string][]*entity.Snapshot)}
}

func (that *fakeBroadcaster) BroadcastState(roomID string, snapshot *entity.Snapshot) {
	that.mu.Lock()
	defer that.mu.Unlock()
	that.states[roomID] = append(that.states[roomID], snapshot)
}

func (that *fakeBroadcaster) last(roomID string) *entity.Snapshot {
	that.mu.Lock()
	defer that.mu.Unlock()

	states := that.states[roomID]
	if len(states) == 0 {
		return nil
	}
	return states[len(states)-1]
}

type fakeRoomRepo struct {
	mu      sync.Mutex
	saved   map[string]*entity.Snapshot
	saveErr error
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{saved: make(map[string]*entity.Snapshot)}
}

func (that *fakeRoomRepo) Save(_ context.Context, roomID string, snapshot *entity.Snapshot) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.saveErr != nil {
		return that.saveErr
	}

	that.saved[roomID] = snapshot
	return nil
}

func newTestService(t *testing.T) (GamePlayService, *fakeBroadcaster, *fakeRoomRepo) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	broadcaster := newFakeBroadcaster()
	roomRepo := newFakeRoomRepo()

	return NewGamePlayService(logger, registry.New(), roomRepo, broadcaster), broadcaster, roomRepo
}

func pvpJoin(roomID, name string) *JoinRequest {
	return &JoinRequest{
		RoomID:        roomID,
		Name:          name,
		Mode:          entity.ModePVP,
		Difficulty:    entity.DifficultyEasy,
		PreferredMark: entity.MarkX,
	}
}

func botJoin(roomID, name, difficulty, mark string) *JoinRequest {
	return &JoinRequest{
		RoomID:        roomID,
		Name:          name,
		Mode:          entity.ModeBot,
		Difficulty:    difficulty,
		PreferredMark: mark,
	}
}

func TestGamePlayService_Join(t *testing.T) {
	ctx := context.Background()

	t.Run("PvP seats fill X then O and fence off a third join", func(t *testing.T) {
		// Given: a fresh service
		gamePlay, _, _ := newTestService(t)

		// When: Alice, Bob and Carol join the lobby
		aliceResult, aliceSession, err := gamePlay.Join(ctx, "conn-a", pvpJoin(entity.LobbyRoomID, "Alice"))
		require.NoError(t, err)

		bobResult, _, err := gamePlay.Join(ctx, "conn-b", pvpJoin(entity.LobbyRoomID, "Bob"))
		require.NoError(t, err)

		_, _, err = gamePlay.Join(ctx, "conn-c", pvpJoin(entity.LobbyRoomID, "Carol"))

		// Then: Alice is X, Bob is O, Carol is rejected with room full
		assert.Equal(t, entity.MarkX, aliceResult.Mark)
		assert.Equal(t, entity.MarkO, bobResult.Mark)
		assert.ErrorIs(t, err, apperror.ErrRoomFull)

		// And: the session binds Alice to her seat
		assert.Equal(t, entity.LobbyRoomID, aliceSession.RoomID)
		assert.Equal(t, entity.MarkX, aliceSession.Mark)
	})

	t.Run("Missing display name is rejected without state change", func(t *testing.T) {
		// Given: a fresh service
		gamePlay, broadcaster, _ := newTestService(t)

		// When: a join arrives without a name
		_, _, err := gamePlay.Join(ctx, "conn-a", pvpJoin(entity.LobbyRoomID, ""))

		// Then: name required, nothing broadcast
		require.ErrorIs(t, err, apperror.ErrNameRequired)
		assert.Nil(t, broadcaster.last(entity.LobbyRoomID))
	})

	t.Run("Mode mismatch against an occupied room", func(t *testing.T) {
		// Given: room2 holds a human in a bot match
		gamePlay, broadcaster, _ := newTestService(t)
		_, _, err := gamePlay.Join(ctx, "conn-a", botJoin("room2", "Human", entity.DifficultyEasy, entity.MarkX))
		require.NoError(t, err)
		before := broadcaster.last("room2")

		// When: Dee asks for PvP in the same room
		_, _, err = gamePlay.Join(ctx, "conn-d", pvpJoin("room2", "Dee"))

		// Then: rejected with mode mismatch and no new broadcast
		require.ErrorIs(t, err, apperror.ErrModeMismatch)
		assert.Same(t, before, broadcaster.last("room2"))
	})

	t.Run("Bot match assigns the preferred mark and seats the bot opposite", func(t *testing.T) {
		// Given: a fresh service
		gamePlay, broadcaster, _ := newTestService(t)

		// When: Carl joins a hard bot match preferring X
		result, _, err := gamePlay.Join(ctx, "conn-a", botJoin("room1", "Carl", entity.DifficultyHard, entity.MarkX))

		// Then: Carl is X, the bot holds O with the hard label
		require.NoError(t, err)
		assert.Equal(t, entity.MarkX, result.Mark)
		assert.Equal(t, entity.ModeBot, result.Mode)
		assert.Equal(t, entity.DifficultyHard, result.Difficulty)

		snapshot := broadcaster.last("room1")
		require.NotNil(t, snapshot)
		require.NotNil(t, snapshot.Players.O)
		assert.Equal(t, "Computer (hard)", snapshot.Players.O.Name)
		assert.Equal(t, entity.MarkX, snapshot.Turn)
	})

	t.Run("Bot seated at X opens the game during the join", func(t *testing.T) {
		// Given: a fresh service
		gamePlay, broadcaster, _ := newTestService(t)

		// When: the requester prefers O, leaving X to the bot
		_, _, err := gamePlay.Join(ctx, "conn-a", botJoin("room1", "Dana", entity.DifficultyEasy, entity.MarkO))
		require.NoError(t, err)

		// Then: the join broadcast already contains the bot's first move
		snapshot := broadcaster.last("room1")
		require.NotNil(t, snapshot)

		botCells := 0
		for _, cell := range snapshot.Board {
			if cell != nil {
				assert.Equal(t, entity.MarkX, *cell)
				botCells++
			}
		}
		assert.Equal(t, 1, botCells)
		assert.Equal(t, entity.MarkO, snapshot.Turn)
	})

	t.Run("Bot room rejects a join for a human-occupied seat", func(t *testing.T) {
		// Given: a bot room with a human on X
		gamePlay, _, _ := newTestService(t)
		_, _, err := gamePlay.Join(ctx, "conn-a", botJoin("room1", "Carl", entity.DifficultyEasy, entity.MarkX))
		require.NoError(t, err)

		// When: another human asks for the same seat
		_, _, err = gamePlay.Join(ctx, "conn-b", botJoin("room1", "Eve", entity.DifficultyEasy, entity.MarkX))

		// Then: room full
		require.ErrorIs(t, err, apperror.ErrRoomFull)
	})

	t.Run("Humanless room is reconfigured by the next join", func(t *testing.T) {
		// Given: a bot room whose only human left
		gamePlay, broadcaster, _ := newTestService(t)
		_, session, err := gamePlay.Join(ctx, "conn-a", botJoin("room1", "Carl", entity.DifficultyHard, entity.MarkX))
		require.NoError(t, err)
		gamePlay.Disconnect(ctx, session)

		// When: a PvP join arrives
		result, _, err := gamePlay.Join(ctx, "conn-b", pvpJoin("room1", "Alice"))

		// Then: the room is PvP again with no bot seat
		require.NoError(t, err)
		assert.Equal(t, entity.ModePVP, result.Mode)

		snapshot := broadcaster.last("room1")
		require.NotNil(t, snapshot)
		assert.Equal(t, entity.ModePVP, snapshot.Mode)
		assert.Nil(t, snapshot.Players.O)
	})
}

func TestGamePlayService_MakeTurn(t *testing.T) {
	ctx := context.Background()

	t.Run("PvP moves alternate and collisions are rejected", func(t *testing.T) {
		// Given: Alice and Bob in the lobby
		gamePlay, broadcaster, _ := newTestService(t)
		_, alice, err := gamePlay.Join(ctx, "conn-a", pvpJoin(entity.LobbyRoomID, "Alice"))
		require.NoError(t, err)
		_, bob, err := gamePlay.Join(ctx, "conn-b", pvpJoin(entity.LobbyRoomID, "Bob"))
		require.NoError(t, err)

		// When: Alice plays cell 0
		require.NoError(t, gamePlay.MakeTurn(ctx, alice, 0))

		// Then: the broadcast shows X at 0 and the turn on O
		snapshot := broadcaster.last(entity.LobbyRoomID)
		require.NotNil(t, snapshot.Board[0])
		assert.Equal(t, entity.MarkX, *snapshot.Board[0])
		assert.Equal(t, entity.MarkO, snapshot.Turn)

		// When: Bob plays the same cell
		err = gamePlay.MakeTurn(ctx, bob, 0)

		// Then: rejected with cell taken and no new broadcast state
		require.ErrorIs(t, err, apperror.ErrCellOccupied)
		assert.Same(t, snapshot, broadcaster.last(entity.LobbyRoomID))
	})

	t.Run("Hard bot answers within the same update", func(t *testing.T) {
		// Given: Carl against the hard bot, Carl on X
		gamePlay, broadcaster, _ := newTestService(t)
		_, carl, err := gamePlay.Join(ctx, "conn-a", botJoin("room1", "Carl", entity.DifficultyHard, entity.MarkX))
		require.NoError(t, err)

		// When: Carl takes the center
		require.NoError(t, gamePlay.MakeTurn(ctx, carl, 4))

		// Then: one broadcast carries both moves and the turn is back on X
		snapshot := broadcaster.last("room1")
		require.NotNil(t, snapshot.Board[4])
		assert.Equal(t, entity.MarkX, *snapshot.Board[4])

		// The engine answers a center opening with the first corner.
		require.NotNil(t, snapshot.Board[0])
		assert.Equal(t, entity.MarkO, *snapshot.Board[0])
		assert.Equal(t, entity.MarkX, snapshot.Turn)
	})

	t.Run("Missing session is rejected", func(t *testing.T) {
		// Given: a fresh service
		gamePlay, _, _ := newTestService(t)

		// When: a move arrives without a session
		err := gamePlay.MakeTurn(ctx, nil, 0)

		// Then: not joined to a room
		assert.ErrorIs(t, err, apperror.ErrNoSession)
	})

	t.Run("Forged session against an unknown room is rejected", func(t *testing.T) {
		// Given: a fresh service
		gamePlay, _, _ := newTestService(t)

		// When: a move references a room that was never joined
		err := gamePlay.MakeTurn(ctx, &Session{ConnID: "x", RoomID: "ghost", Mark: entity.MarkX}, 0)

		// Then: room not found, and no room was created along the way
		assert.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Mirror failure never fails the move", func(t *testing.T) {
		// Given: a room whose redis mirror is down
		gamePlay, broadcaster, roomRepo := newTestService(t)
		_, alice, err := gamePlay.Join(ctx, "conn-a", pvpJoin(entity.LobbyRoomID, "Alice"))
		require.NoError(t, err)
		roomRepo.saveErr = errors.New("redis down")

		// When: Alice moves
		err = gamePlay.MakeTurn(ctx, alice, 0)

		// Then: the move succeeds and is still broadcast
		require.NoError(t, err)
		snapshot := broadcaster.last(entity.LobbyRoomID)
		require.NotNil(t, snapshot.Board[0])
	})
}

func TestGamePlayService_Reset(t *testing.T) {
	ctx := context.Background()

	t.Run("Reset clears the game but keeps mode and difficulty", func(t *testing.T) {
		// Given: a hard bot room with moves on the board
		gamePlay, broadcaster, _ := newTestService(t)
		_, carl, err := gamePlay.Join(ctx, "conn-a", botJoin("room1", "Carl", entity.DifficultyHard, entity.MarkX))
		require.NoError(t, err)
		require.NoError(t, gamePlay.MakeTurn(ctx, carl, 4))

		// When: Carl resets
		require.NoError(t, gamePlay.Reset(ctx, carl))

		// Then: the board is empty, turn X, and the room is still a hard
		// bot match
		snapshot := broadcaster.last("room1")
		for _, cell := range snapshot.Board {
			assert.Nil(t, cell)
		}
		assert.Equal(t, entity.MarkX, snapshot.Turn)
		assert.Equal(t, entity.ModeBot, snapshot.Mode)
		assert.Equal(t, entity.DifficultyHard, snapshot.Difficulty)
	})

	t.Run("Reset hands the opening back to a bot on X", func(t *testing.T) {
		// Given: a bot on X mid-game against Dana on O
		gamePlay, broadcaster, _ := newTestService(t)
		_, dana, err := gamePlay.Join(ctx, "conn-a", botJoin("room1", "Dana", entity.DifficultyHard, entity.MarkO))
		require.NoError(t, err)

		// When: Dana resets
		require.NoError(t, gamePlay.Reset(ctx, dana))

		// Then: the bot already made its opening move
		snapshot := broadcaster.last("room1")
		marks := 0
		for _, cell := range snapshot.Board {
			if cell != nil {
				assert.Equal(t, entity.MarkX, *cell)
				marks++
			}
		}
		assert.Equal(t, 1, marks)
		assert.Equal(t, entity.MarkO, snapshot.Turn)
	})

	t.Run("Missing session is rejected", func(t *testing.T) {
		gamePlay, _, _ := newTestService(t)

		err := gamePlay.Reset(ctx, nil)

		assert.ErrorIs(t, err, apperror.ErrNoSession)
	})
}

func TestGamePlayService_Disconnect(t *testing.T) {
	ctx := context.Background()

	t.Run("Last human leaving resets the room in place", func(t *testing.T) {
		// Given: Alice and Bob mid-game in a PvP room
		gamePlay, broadcaster, _ := newTestService(t)
		_, alice, err := gamePlay.Join(ctx, "conn-a", pvpJoin("d-room", "Alice"))
		require.NoError(t, err)
		_, bob, err := gamePlay.Join(ctx, "conn-b", pvpJoin("d-room", "Bob"))
		require.NoError(t, err)
		require.NoError(t, gamePlay.MakeTurn(ctx, alice, 0))

		// When: both disconnect
		gamePlay.Disconnect(ctx, alice)
		gamePlay.Disconnect(ctx, bob)

		// Then: the room is back to an empty board, turn X, undecided,
		// with the mode untouched
		snapshot := broadcaster.last("d-room")
		require.NotNil(t, snapshot)
		for _, cell := range snapshot.Board {
			assert.Nil(t, cell)
		}
		assert.Equal(t, entity.MarkX, snapshot.Turn)
		assert.Nil(t, snapshot.Winner)
		assert.False(t, snapshot.IsDraw)
		assert.Equal(t, entity.ModePVP, snapshot.Mode)
	})

	t.Run("Bot seat survives its human leaving", func(t *testing.T) {
		// Given: Carl alone against the bot
		gamePlay, broadcaster, _ := newTestService(t)
		_, carl, err := gamePlay.Join(ctx, "conn-a", botJoin("room1", "Carl", entity.DifficultyHard, entity.MarkX))
		require.NoError(t, err)

		// When: Carl disconnects
		gamePlay.Disconnect(ctx, carl)

		// Then: the reset room still has its automated occupant and
		// difficulty
		snapshot := broadcaster.last("room1")
		require.NotNil(t, snapshot)
		assert.Nil(t, snapshot.Players.X)
		require.NotNil(t, snapshot.Players.O)
		assert.Equal(t, "Computer (hard)", snapshot.Players.O.Name)
		assert.Equal(t, entity.DifficultyHard, snapshot.Difficulty)
	})

	t.Run("One human leaving a PvP game keeps the other seat", func(t *testing.T) {
		// Given: Alice and Bob in a PvP room
		gamePlay, broadcaster, _ := newTestService(t)
		_, alice, err := gamePlay.Join(ctx, "conn-a", pvpJoin("d-room", "Alice"))
		require.NoError(t, err)
		_, _, err = gamePlay.Join(ctx, "conn-b", pvpJoin("d-room", "Bob"))
		require.NoError(t, err)

		// When: only Alice disconnects
		gamePlay.Disconnect(ctx, alice)

		// Then: Bob still holds O and the board is not reset away from him
		snapshot := broadcaster.last("d-room")
		assert.Nil(t, snapshot.Players.X)
		require.NotNil(t, snapshot.Players.O)
		assert.Equal(t, "Bob", snapshot.Players.O.Name)
	})
}
