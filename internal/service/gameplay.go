package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/bot"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/registry"
)

// Session binds a connection to its room and seat. It is created on a
// successful join and is the sole authorization for later move and reset
// requests; caller-supplied room ids are never trusted instead of it.
type Session struct {
	ConnID string
	RoomID string
	Mark   string
	Name   string
}

// JoinRequest carries an already validated and defaulted join. The
// transport boundary guarantees the fields hold known values.
type JoinRequest struct {
	RoomID        string
	Name          string
	Mode          string
	Difficulty    string
	PreferredMark string
}

type JoinResult struct {
	RoomID     string
	Mark       string
	Mode       string
	Difficulty string
}

// Broadcaster pushes a room snapshot to every connection joined to the
// room. Delivery is fire-and-forget.
type Broadcaster interface {
	BroadcastState(roomID string, snapshot *entity.Snapshot)
}

type roomRepo interface {
	Save(ctx context.Context, roomID string, snapshot *entity.Snapshot) error
}

type GamePlayService interface {
	Join(ctx context.Context, connID string, req *JoinRequest) (*JoinResult, *Session, error)
	MakeTurn(ctx context.Context, session *Session, cell int) error
	Reset(ctx context.Context, session *Session) error
	Disconnect(ctx context.Context, session *Session)
}

type gamePlayService struct {
	logger *slog.Logger

	rooms       *registry.RoomRegistry
	roomRepo    roomRepo
	broadcaster Broadcaster
}

func NewGamePlayService(logger *slog.Logger, rooms *registry.RoomRegistry, roomRepo roomRepo, broadcaster Broadcaster) GamePlayService {
	return &gamePlayService{
		logger:      logger,
		rooms:       rooms,
		roomRepo:    roomRepo,
		broadcaster: broadcaster,
	}
}

// Join - resolves a join request against the room: a room with no human
// occupant is reset and reconfigured for the requested mode, an occupied
// room must match the requested mode. On success the seat is taken, the
// session is bound and the new snapshot goes out to the whole room.
func (that *gamePlayService) Join(ctx context.Context, connID string, req *JoinRequest) (*JoinResult, *Session, error) {
	if req.Name == "" {
		return nil, nil, apperror.ErrNameRequired
	}

	var (
		result   JoinResult
		snapshot *entity.Snapshot
	)

	err := that.rooms.Update(req.RoomID, func(room *entity.Room) error {
		if room.HumanCount() == 0 {
			room.Configure(req.Mode, req.Difficulty, req.PreferredMark)
		} else if room.Mode != req.Mode {
			return apperror.ErrModeMismatch
		}

		mark, err := assignSeat(room, req.PreferredMark)
		if err != nil {
			return err
		}

		room.Seats[mark] = &entity.Seat{ConnID: connID, Name: req.Name}

		// A bot seated at X moves before the first human turn.
		if err = that.playBotTurn(room); err != nil {
			return err
		}

		result = JoinResult{
			RoomID:     room.ID,
			Mark:       mark,
			Mode:       room.Mode,
			Difficulty: room.Difficulty,
		}
		snapshot = room.Snapshot()

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	session := &Session{
		ConnID: connID,
		RoomID: result.RoomID,
		Mark:   result.Mark,
		Name:   req.Name,
	}

	that.publish(ctx, result.RoomID, snapshot)

	return &result, session, nil
}

// MakeTurn - applies one human move and, in a bot room, chains the bot's
// reply into the same update before anything is broadcast.
func (that *gamePlayService) MakeTurn(ctx context.Context, session *Session, cell int) error {
	if session == nil {
		return apperror.ErrNoSession
	}

	var snapshot *entity.Snapshot

	err := that.rooms.UpdateExisting(session.RoomID, func(room *entity.Room) error {
		if err := room.ApplyMove(session.Mark, cell); err != nil {
			return err
		}

		if err := that.playBotTurn(room); err != nil {
			return err
		}

		snapshot = room.Snapshot()

		return nil
	})
	if err != nil {
		return err
	}

	that.publish(ctx, session.RoomID, snapshot)

	return nil
}

// Reset - clears board, turn and outcome; mode and difficulty stay as they
// are. If the fresh turn belongs to the bot it moves immediately.
func (that *gamePlayService) Reset(ctx context.Context, session *Session) error {
	if session == nil {
		return apperror.ErrNoSession
	}

	var snapshot *entity.Snapshot

	err := that.rooms.UpdateExisting(session.RoomID, func(room *entity.Room) error {
		room.ResetBoard()

		if err := that.playBotTurn(room); err != nil {
			return err
		}

		snapshot = room.Snapshot()

		return nil
	})
	if err != nil {
		return err
	}

	that.publish(ctx, session.RoomID, snapshot)

	return nil
}

// Disconnect - frees the session's seat (never a bot seat), resets the room
// once no human is left, and tells the remaining members.
func (that *gamePlayService) Disconnect(ctx context.Context, session *Session) {
	log := that.logger.With("method", "Disconnect", "roomID", session.RoomID)

	var snapshot *entity.Snapshot

	err := that.rooms.UpdateExisting(session.RoomID, func(room *entity.Room) error {
		for mark, seat := range room.Seats {
			if seat.IsHuman() && seat.ConnID == session.ConnID {
				delete(room.Seats, mark)
			}
		}

		if room.HumanCount() == 0 {
			room.ResetBoard()
		}

		snapshot = room.Snapshot()

		return nil
	})
	if err != nil {
		log.Error("failed to clean up after disconnect", "error", err)
		return
	}

	that.publish(ctx, session.RoomID, snapshot)
}

// assignSeat - bot rooms: the requester always gets the preferred mark
// unless a human already holds it. PvP rooms: first free seat, X before O.
func assignSeat(room *entity.Room, preferredMark string) (string, error) {
	if room.Mode == entity.ModeBot {
		if room.Seats[preferredMark].IsHuman() {
			return "", apperror.ErrRoomFull
		}
		return preferredMark, nil
	}

	for _, mark := range entity.Marks {
		if room.Seats[mark] == nil {
			return mark, nil
		}
	}

	return "", apperror.ErrRoomFull
}

func (that *gamePlayService) playBotTurn(room *entity.Room) error {
	if !botTurn(room) {
		return nil
	}

	cell, err := bot.ChooseCell(room)
	if err != nil {
		return fmt.Errorf("bot failed to choose a cell: %w", err)
	}

	if err = room.ApplyMove(room.BotMark, cell); err != nil {
		return fmt.Errorf("bot failed to make turn: %w", err)
	}

	return nil
}

func botTurn(room *entity.Room) bool {
	return room.Mode == entity.ModeBot &&
		!room.IsFinished() &&
		room.Turn == room.BotMark &&
		room.Seats[room.BotMark].IsBot()
}

// publish - mirrors the snapshot into redis and pushes it to the room.
// The mirror is best-effort; a failed write never fails the request.
func (that *gamePlayService) publish(ctx context.Context, roomID string, snapshot *entity.Snapshot) {
	if err := that.roomRepo.Save(ctx, roomID, snapshot); err != nil {
		that.logger.Error("failed to mirror room snapshot", "roomID", roomID, "error", err)
	}

	that.broadcaster.BroadcastState(roomID, snapshot)
}
