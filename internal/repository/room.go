package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sync/internal/codec"
	"github.com/rocketscienceinc/tictactoe-sync/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sync/internal/repository/storage"
)

type RoomRepository interface {
	Insert(ctx context.Context, room *entity.Room) error
	FindByCode(ctx context.Context, code string) (*entity.Room, error)
	// Update - applies patch only if precondition accepts the stored room, and publishes the result.
	Update(ctx context.Context, code string, precondition func(*entity.Room) error, patch func(*entity.Room)) (*entity.Room, error)
	Delete(ctx context.Context, room *entity.Room) error
}

type dbRoom struct {
	client *redis.Client
	keys   storage.Keys
	ttl    time.Duration
}

func NewRoomRepository(client *redis.Client, keys storage.Keys, ttl time.Duration) RoomRepository {
	return &dbRoom{
		client: client,
		keys:   keys,
		ttl:    ttl,
	}
}

func (that *dbRoom) Insert(ctx context.Context, room *entity.Room) error {
	roomJSON, err := codec.MarshalRoom(room)
	if err != nil {
		return err
	}

	ok, err := that.client.SetNX(ctx, that.keys.Room(room.Code), roomJSON, that.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to insert room: %w", err)
	}

	if !ok {
		return fmt.Errorf("%w: %s", apperror.ErrCodeTaken, room.Code)
	}

	return nil
}

func (that *dbRoom) FindByCode(ctx context.Context, code string) (*entity.Room, error) {
	response, err := that.client.Get(ctx, that.keys.Room(code)).Bytes()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get room by code: %w", err)
	}

	return codec.UnmarshalRoom(response)
}

func (that *dbRoom) Update(
	ctx context.Context,
	code string,
	precondition func(*entity.Room) error,
	patch func(*entity.Room),
) (*entity.Room, error) {
	key := that.keys.Room(code)

	var updated *entity.Room
	err := watchUpdate(ctx, that.client, key, func(tx *redis.Tx) error {
		response, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return apperror.ErrRoomNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get room: %w", err)
		}

		room, err := codec.UnmarshalRoom(response)
		if err != nil {
			return err
		}

		if err = precondition(room); err != nil {
			return err
		}

		patch(room)

		roomJSON, err := codec.MarshalRoom(room)
		if err != nil {
			return err
		}

		event, err := codec.MarshalEvent(codec.RoomEvent(room))
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, roomJSON, redis.KeepTTL)
			pipe.Publish(ctx, that.keys.Topic(code), event)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to update room: %w", err)
		}

		updated = room
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (that *dbRoom) Delete(ctx context.Context, room *entity.Room) error {
	event, err := codec.MarshalEvent(codec.ClosedEvent(room.Code))
	if err != nil {
		return err
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, that.keys.Room(room.Code))
		pipe.Publish(ctx, that.keys.Topic(room.Code), event)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete room by code: %w", err)
	}

	return nil
}
