package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

type roomReader interface {
	GetByID(ctx context.Context, roomID string) (*entity.Snapshot, error)
}

// Handler serves the health check and a read-only view of the mirrored
// room snapshots. Gameplay never goes through HTTP.
type Handler struct {
	logger *slog.Logger
	rooms  roomReader
}

func NewHandler(logger *slog.Logger, rooms roomReader) *Handler {
	return &Handler{
		logger: logger,
		rooms:  rooms,
	}
}

func (that *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /ping", that.handlePing)
	mux.HandleFunc("GET /rooms/{id}", that.handleRoom)
}

func (that *Handler) handlePing(writer http.ResponseWriter, _ *http.Request) {
	writer.WriteHeader(http.StatusOK)
	_, _ = writer.Write([]byte("pong"))
}

func (that *Handler) handleRoom(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "handleRoom")

	roomID := req.PathValue("id")

	snapshot, err := that.rooms.GetByID(req.Context(), roomID)
	if errors.Is(err, apperror.ErrRoomNotFound) {
		http.Error(writer, "room not found", http.StatusNotFound)
		return
	}

	if err != nil {
		log.Error("failed to get room snapshot", "roomID", roomID, "error", err)
		http.Error(writer, "internal error", http.StatusInternalServerError)
		return
	}

	writer.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(writer).Encode(snapshot); err != nil {
		log.Error("failed to encode room snapshot", "roomID", roomID, "error", err)
	}
}
