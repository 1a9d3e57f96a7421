package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/service"
)

var ErrUnknownAction = errors.New("unknown action")

type Server struct {
	logger      *slog.Logger
	gamePlay    service.GamePlayService
	broadcaster *Broadcaster
	upgrader    websocket.Upgrader

	handlers map[string]func(ctx context.Context, client *Client, message *Message) error
}

func NewServer(logger *slog.Logger, gamePlay service.GamePlayService, broadcaster *Broadcaster) *Server {
	server := &Server{
		logger:      logger,
		gamePlay:    gamePlay,
		broadcaster: broadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},

		handlers: make(map[string]func(context.Context, *Client, *Message) error),
	}

	server.handlers[ActionJoin] = server.handleJoin
	server.handlers[ActionMove] = server.handleMove
	server.handlers[ActionReset] = server.handleReset

	return server
}

// HandleWS - upgrades the connection and serves it until it drops.
func (that *Server) HandleWS(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "HandleWS")

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	client := newClient(conn)
	go client.writePump()

	log.Info("WebSocket connection established", "connID", client.id)

	that.readLoop(req.Context(), client)
}

// readLoop - processes messages from the client and tears the session
// down synchronously once the connection drops.
func (that *Server) readLoop(ctx context.Context, client *Client) {
	log := that.logger.With("method", "readLoop", "connID", client.id)

	defer func() {
		if session := client.session; session != nil {
			client.session = nil
			that.broadcaster.Leave(session.RoomID, client)
			that.gamePlay.Disconnect(ctx, session)
		}

		close(client.send)
		log.Info("WebSocket connection closed")
	}()

	client.conn.SetReadLimit(maxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("error reading message", "error", err)
			}
			return
		}

		that.dispatch(ctx, client, raw)
	}
}

// dispatch - routes one inbound message. Any fault stays contained to this
// request: the client gets a private error and the room state is untouched.
func (that *Server) dispatch(ctx context.Context, client *Client, raw []byte) {
	log := that.logger.With("method", "dispatch", "connID", client.id)

	defer func() {
		if r := recover(); r != nil {
			log.Error("recovered from panic while handling message", "panic", r)
			that.sendError(client, fmt.Errorf("internal failure: %v", r))
		}
	}()

	var message Message
	if err := json.Unmarshal(raw, &message); err != nil {
		log.Error("failed to unmarshal message", "error", err)
		that.sendError(client, err)
		return
	}

	handler, ok := that.handlers[message.Action]
	if !ok {
		log.Error("unknown action", "action", message.Action)
		that.sendError(client, ErrUnknownAction)
		return
	}

	if err := handler(ctx, client, &message); err != nil {
		log.Error("error processing message", "action", message.Action, "error", err)
		that.sendError(client, err)
	}
}

func (that *Server) sendMessage(client *Client, action string, payload any) {
	raw, err := newRawMessage(action, payload)
	if err != nil {
		that.logger.Error("failed to build message", "action", action, "error", err)
		return
	}

	client.Send(raw)
}

// sendError - private error event to the originating connection only.
// Unexpected internal faults are reported generically.
func (that *Server) sendError(client *Client, err error) {
	that.sendMessage(client, ActionError, ErrorPayload{Error: errorText(err)})
}

func errorText(err error) string {
	for _, known := range []error{
		apperror.ErrNameRequired,
		apperror.ErrNoSession,
		apperror.ErrNotYourTurn,
		apperror.ErrGameFinished,
		apperror.ErrCellOccupied,
		apperror.ErrInvalidCell,
		apperror.ErrRoomFull,
		apperror.ErrModeMismatch,
		apperror.ErrRoomNotFound,
		ErrUnknownAction,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}

	return "internal error"
}
