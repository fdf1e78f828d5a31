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

type SessionRepository interface {
	Insert(ctx context.Context, session *entity.Session) error
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	// Update - replaces the stored session with patch(stored) if precondition accepts it,
	// and publishes the new snapshot in the same transaction.
	Update(ctx context.Context, id string, precondition func(*entity.Session) error, patch func(*entity.Session) *entity.Session) (*entity.Session, error)
	Delete(ctx context.Context, id string) error
}

type dbSession struct {
	client *redis.Client
	keys   storage.Keys
	ttl    time.Duration
}

func NewSessionRepository(client *redis.Client, keys storage.Keys, ttl time.Duration) SessionRepository {
	return &dbSession{
		client: client,
		keys:   keys,
		ttl:    ttl,
	}
}

func (that *dbSession) Insert(ctx context.Context, session *entity.Session) error {
	sessionJSON, err := codec.MarshalSession(session)
	if err != nil {
		return err
	}

	ok, err := that.client.SetNX(ctx, that.keys.Session(session.ID), sessionJSON, that.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	if !ok {
		return fmt.Errorf("%w: session %s already exists", apperror.ErrConflict, session.ID)
	}

	return nil
}

func (that *dbSession) GetByID(ctx context.Context, id string) (*entity.Session, error) {
	response, err := that.client.Get(ctx, that.keys.Session(id)).Bytes()

	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session %s: %w", id, apperror.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get session by id: %w", err)
	}

	return codec.UnmarshalSession(response)
}

func (that *dbSession) Update(
	ctx context.Context,
	id string,
	precondition func(*entity.Session) error,
	patch func(*entity.Session) *entity.Session,
) (*entity.Session, error) {
	key := that.keys.Session(id)

	var updated *entity.Session
	err := watchUpdate(ctx, that.client, key, func(tx *redis.Tx) error {
		response, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("session %s: %w", id, apperror.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get session: %w", err)
		}

		stored, err := codec.UnmarshalSession(response)
		if err != nil {
			return err
		}

		if err = precondition(stored); err != nil {
			return err
		}

		next := patch(stored)

		sessionJSON, err := codec.MarshalSession(next)
		if err != nil {
			return err
		}

		event, err := codec.MarshalEvent(codec.SessionEvent(next))
		if err != nil {
			return err
		}

		// board, auxiliary record and turn go out as one document
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, sessionJSON, redis.KeepTTL)
			pipe.Publish(ctx, that.keys.Topic(next.RoomCode), event)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}

		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (that *dbSession) Delete(ctx context.Context, id string) error {
	if err := that.client.Del(ctx, that.keys.Session(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session by id: %w", err)
	}

	return nil
}
