package websocket

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/service"
)

const (
	ActionJoin  = "game:join"
	ActionMove  = "game:move"
	ActionReset = "game:reset"

	ActionJoined = "game:joined"
	ActionState  = "game:state"
	ActionError  = "error"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinPayload is the loosely-typed inbound join. ToRequest validates and
// defaults every field, so the core never sees unvalidated values.
type JoinPayload struct {
	RoomID     string `json:"roomId"`
	Name       string `json:"name"`
	Mode       string `json:"mode"`
	Difficulty string `json:"difficulty"`
	Mark       string `json:"mark"`
}

// ToRequest - blank room id falls back to the lobby, the display name is
// required, everything else falls back to its default on an unknown value.
func (that *JoinPayload) ToRequest() (*service.JoinRequest, error) {
	name := strings.TrimSpace(that.Name)
	if name == "" {
		return nil, apperror.ErrNameRequired
	}

	req := &service.JoinRequest{
		RoomID:        strings.TrimSpace(that.RoomID),
		Name:          name,
		Mode:          entity.ModePVP,
		Difficulty:    entity.DifficultyEasy,
		PreferredMark: entity.MarkX,
	}

	if req.RoomID == "" {
		req.RoomID = entity.LobbyRoomID
	}

	if that.Mode == entity.ModeBot {
		req.Mode = entity.ModeBot
	}

	if that.Difficulty == entity.DifficultyHard {
		req.Difficulty = entity.DifficultyHard
	}

	if that.Mark == entity.MarkO {
		req.PreferredMark = entity.MarkO
	}

	return req, nil
}

type MovePayload struct {
	Cell int `json:"cell"`
}

type JoinedPayload struct {
	RoomID     string `json:"roomId,omitempty"`
	Mark       string `json:"mark,omitempty"`
	Mode       string `json:"mode,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Error      string `json:"error,omitempty"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

func newRawMessage(action string, payload any) ([]byte, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	raw, err := json.Marshal(Message{Action: action, Payload: payloadJSON})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	return raw, nil
}
