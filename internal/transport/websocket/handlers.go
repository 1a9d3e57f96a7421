package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
)

func (that *Server) handleJoin(ctx context.Context, client *Client, msg *Message) error {
	var payload JoinPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("failed to unmarshal join payload: %w", err)
		}
	}

	req, err := payload.ToRequest()
	if err != nil {
		that.ackJoinError(client, err)
		return nil
	}

	// A rebinding join releases the old seat first.
	if prev := client.session; prev != nil {
		client.session = nil
		that.broadcaster.Leave(prev.RoomID, client)
		that.gamePlay.Disconnect(ctx, prev)
	}

	// Membership comes first so the joiner sees its own join broadcast.
	that.broadcaster.Join(req.RoomID, client)

	result, session, err := that.gamePlay.Join(ctx, client.id, req)
	if err != nil {
		that.broadcaster.Leave(req.RoomID, client)
		that.ackJoinError(client, err)
		return nil
	}

	client.session = session

	that.sendMessage(client, ActionJoined, JoinedPayload{
		RoomID:     result.RoomID,
		Mark:       result.Mark,
		Mode:       result.Mode,
		Difficulty: result.Difficulty,
	})

	return nil
}

// ackJoinError - a rejected join answers with both the ack carrying the
// error and the private error event.
func (that *Server) ackJoinError(client *Client, err error) {
	that.sendError(client, err)
	that.sendMessage(client, ActionJoined, JoinedPayload{Error: errorText(err)})
}

func (that *Server) handleMove(ctx context.Context, client *Client, msg *Message) error {
	if client.session == nil {
		return apperror.ErrNoSession
	}

	var payload MovePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal move payload: %w", err)
	}

	if err := that.gamePlay.MakeTurn(ctx, client.session, payload.Cell); err != nil {
		return err
	}

	return nil
}

func (that *Server) handleReset(ctx context.Context, client *Client, _ *Message) error {
	if client.session == nil {
		return apperror.ErrNoSession
	}

	if err := that.gamePlay.Reset(ctx, client.session); err != nil {
		return err
	}

	return nil
}
