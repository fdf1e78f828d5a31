package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sync/internal/entity"
)

type GamePlayService interface {
	// CommitMove - stores next only if the stored session still matches base.
	// Returns apperror.ErrConflict when someone else moved first.
	CommitMove(ctx context.Context, base, next *entity.Session) error
}

type gamePlayService struct {
	logger *slog.Logger

	roomRepo    roomRepo
	sessionRepo sessionRepo
}

func NewGamePlayService(logger *slog.Logger, roomRepo roomRepo, sessionRepo sessionRepo) GamePlayService {
	return &gamePlayService{
		logger:      logger,
		roomRepo:    roomRepo,
		sessionRepo: sessionRepo,
	}
}

func (that *gamePlayService) CommitMove(ctx context.Context, base, next *entity.Session) error {
	log := that.logger.With("method", "CommitMove", "session_id", base.ID)

	if next.ID != base.ID || next.MoveCount != base.MoveCount+1 {
		return fmt.Errorf("%w: snapshot does not follow its base", apperror.ErrIllegalMove)
	}

	room, err := that.roomRepo.FindByCode(ctx, base.RoomCode)
	if err != nil {
		return fmt.Errorf("failed to get room: %w", err)
	}

	if !room.IsPlaying() {
		return apperror.ErrGameIsNotStarted
	}

	_, err = that.sessionRepo.Update(ctx, base.ID, func(stored *entity.Session) error {
		if stored.IsFinished() {
			return apperror.ErrGameFinished
		}
		if !stored.SameTurn(base) {
			return apperror.ErrConflict
		}
		return nil
	}, func(*entity.Session) *entity.Session {
		return next
	})

	if errors.Is(err, apperror.ErrGameFinished) {
		// a finished stored game is newer than base as well
		return fmt.Errorf("%w: %w", apperror.ErrConflict, err)
	}

	if err != nil {
		return fmt.Errorf("failed to commit move: %w", err)
	}

	log.Debug("move committed", "move_count", next.MoveCount)

	if next.IsFinished() {
		that.finishRoom(ctx, room.Code, next.Winner)
	}

	return nil
}

func (that *gamePlayService) finishRoom(ctx context.Context, code string, winner entity.Result) {
	_, err := that.roomRepo.Update(ctx, code, func(stored *entity.Room) error {
		if !stored.IsPlaying() {
			return apperror.ErrGameIsNotStarted
		}
		return nil
	}, func(stored *entity.Room) {
		stored.Status = entity.StatusFinished
	})
	if err != nil {
		that.logger.Warn("failed to mark room finished", "code", code, "error", err)
		return
	}

	that.logger.Info("game finished", "code", code, "winner", winner)
}
