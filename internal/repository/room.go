package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

const (
	roomKeyPrefix = "room:"

	// Mirrored snapshots only serve the debug read path, so they may lapse.
	roomExpiration = 2 * time.Hour
)

// RoomRepository mirrors room snapshots into redis. The registry stays the
// single source of truth for gameplay; this mirror feeds the REST read
// endpoint and is written best-effort after every accepted change.
type RoomRepository interface {
	Save(ctx context.Context, roomID string, snapshot *entity.Snapshot) error
	GetByID(ctx context.Context, roomID string) (*entity.Snapshot, error)
	DeleteByID(ctx context.Context, roomID string) error
}

type dbRoom struct {
	client *redis.Client
}

func NewRoomRepository(client *redis.Client) RoomRepository {
	return &dbRoom{
		client: client,
	}
}

func (that *dbRoom) Save(ctx context.Context, roomID string, snapshot *entity.Snapshot) error {
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("could not marshal snapshot: %w", err)
	}

	roomKey := roomKeyPrefix + roomID
	if err = that.client.Set(ctx, roomKey, snapshotJSON, roomExpiration).Err(); err != nil {
		return fmt.Errorf("failed to set snapshot: %w", err)
	}

	return nil
}

func (that *dbRoom) GetByID(ctx context.Context, roomID string) (*entity.Snapshot, error) {
	roomKey := roomKeyPrefix + roomID

	response, err := that.client.Get(ctx, roomKey).Result()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot by id: %w", err)
	}

	var snapshot entity.Snapshot
	if err = json.Unmarshal([]byte(response), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}

func (that *dbRoom) DeleteByID(ctx context.Context, roomID string) error {
	roomKey := roomKeyPrefix + roomID

	if err := that.client.Del(ctx, roomKey).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot by id: %w", err)
	}

	return nil
}
