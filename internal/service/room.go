package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sync/internal/entity"
)

var errAlreadySeated = errors.New("player already seated")

type RoomService interface {
	CreateRoom(ctx context.Context, hostID, hostName string, variant entity.Variant) (*entity.Room, *entity.Session, error)
	JoinRoom(ctx context.Context, code, guestID, guestName string) (*entity.Room, *entity.Session, error)
	LeaveRoom(ctx context.Context, room *entity.Room, isHost bool) error

	// Snapshot - the authoritative room and session as currently stored.
	Snapshot(ctx context.Context, code string) (*entity.Room, *entity.Session, error)
}

type roomRepo interface {
	Insert(ctx context.Context, room *entity.Room) error
	FindByCode(ctx context.Context, code string) (*entity.Room, error)
	Update(ctx context.Context, code string, precondition func(*entity.Room) error, patch func(*entity.Room)) (*entity.Room, error)
	Delete(ctx context.Context, room *entity.Room) error
}

type sessionRepo interface {
	Insert(ctx context.Context, session *entity.Session) error
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	Update(ctx context.Context, id string, precondition func(*entity.Session) error, patch func(*entity.Session) *entity.Session) (*entity.Session, error)
	Delete(ctx context.Context, id string) error
}

type roomService struct {
	logger *slog.Logger

	roomRepo     roomRepo
	sessionRepo  sessionRepo
	codeAttempts int
}

func NewRoomService(logger *slog.Logger, roomRepo roomRepo, sessionRepo sessionRepo, codeAttempts int) RoomService {
	if codeAttempts < 1 {
		codeAttempts = 1
	}

	return &roomService{
		logger:       logger,
		roomRepo:     roomRepo,
		sessionRepo:  sessionRepo,
		codeAttempts: codeAttempts,
	}
}

func (that *roomService) CreateRoom(
	ctx context.Context,
	hostID, hostName string,
	variant entity.Variant,
) (*entity.Room, *entity.Session, error) {
	log := that.logger.With("method", "CreateRoom", "host_id", hostID)

	board, err := entity.NewBoard(variant)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", apperror.ErrCreateFailed, err)
	}

	for range that.codeAttempts {
		code, err := generateCode()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", apperror.ErrCreateFailed, err)
		}

		session := entity.NewSession(uuid.NewString(), code, board)
		if err = that.sessionRepo.Insert(ctx, session); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", apperror.ErrCreateFailed, err)
		}

		room := entity.NewRoom(code, hostID, hostName, session.ID, variant)
		err = that.roomRepo.Insert(ctx, room)
		if err == nil {
			log.Info("room created", "code", code, "variant", variant)
			return room, session, nil
		}

		that.dropSession(ctx, session.ID)

		if !errors.Is(err, apperror.ErrCodeTaken) {
			return nil, nil, fmt.Errorf("%w: %w", apperror.ErrCreateFailed, err)
		}

		log.Debug("code collision", "code", code)
	}

	return nil, nil, fmt.Errorf("%w: no free code after %d attempts", apperror.ErrCreateFailed, that.codeAttempts)
}

func (that *roomService) JoinRoom(ctx context.Context, code, guestID, guestName string) (*entity.Room, *entity.Session, error) {
	log := that.logger.With("method", "JoinRoom", "guest_id", guestID)

	if guestID == "" {
		return nil, nil, fmt.Errorf("%w: player id is required", apperror.ErrRoomNotJoinable)
	}

	code, err := NormalizeCode(code)
	if err != nil {
		return nil, nil, err
	}

	room, err := that.roomRepo.Update(ctx, code, func(stored *entity.Room) error {
		switch {
		case stored.HasGuest() && stored.GuestID == guestID:
			return errAlreadySeated
		case stored.HostID == guestID:
			return fmt.Errorf("%w: host cannot join own room", apperror.ErrRoomNotJoinable)
		case stored.HasGuest():
			return apperror.ErrRoomFull
		case !stored.IsWaiting():
			return apperror.ErrRoomNotJoinable
		}
		return nil
	}, func(stored *entity.Room) {
		stored.GuestID = guestID
		stored.GuestName = guestName
		stored.Status = entity.StatusPlaying
	})

	if errors.Is(err, errAlreadySeated) {
		log.Debug("rejoin", "code", code)
		return that.Snapshot(ctx, code)
	}

	if err != nil {
		return nil, nil, fmt.Errorf("failed to join room %s: %w", code, err)
	}

	session, err := that.sessionRepo.GetByID(ctx, room.SessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get session of room %s: %w", code, err)
	}

	log.Info("guest joined", "code", code)

	return room, session, nil
}

func (that *roomService) LeaveRoom(ctx context.Context, room *entity.Room, isHost bool) error {
	log := that.logger.With("method", "LeaveRoom", "code", room.Code)

	if isHost {
		if err := that.roomRepo.Delete(ctx, room); err != nil {
			return fmt.Errorf("failed to delete room: %w", err)
		}

		that.dropSession(ctx, room.SessionID)
		log.Info("room closed by host")

		return nil
	}

	guestID := room.GuestID
	_, err := that.roomRepo.Update(ctx, room.Code, func(stored *entity.Room) error {
		if guestID == "" || stored.GuestID != guestID {
			return apperror.ErrNotInRoom
		}
		return nil
	}, func(stored *entity.Room) {
		stored.GuestID = ""
		stored.GuestName = ""

		// a concluded game is never reopened
		if !stored.IsFinished() {
			stored.Status = entity.StatusWaiting
		}
	})
	if err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	log.Info("guest left")

	return nil
}

func (that *roomService) Snapshot(ctx context.Context, code string) (*entity.Room, *entity.Session, error) {
	room, err := that.roomRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get room by code: %w", err)
	}

	session, err := that.sessionRepo.GetByID(ctx, room.SessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get session by id: %w", err)
	}

	return room, session, nil
}

func (that *roomService) dropSession(ctx context.Context, id string) {
	if err := that.sessionRepo.Delete(ctx, id); err != nil {
		that.logger.Error("failed to delete session", "session_id", id, "error", err)
	}
}
