package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sync/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sync/internal/repository"
	"github.com/rocketscienceinc/tictactoe-sync/testing/suite"
)

var errRedisDown = errors.New("redis down")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRoomService_CreateRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates a waiting room with a fresh session", func(t *testing.T) {
		// Given: repositories that accept everything
		rooms := &mockRoomRepo{}
		sessions := &mockSessionRepo{}
		sessions.On("Insert", ctx, mock.AnythingOfType("*entity.Session")).Return(nil).Once()
		rooms.On("Insert", ctx, mock.AnythingOfType("*entity.Room")).Return(nil).Once()

		svc := NewRoomService(discardLogger(), rooms, sessions, 3)

		// When: creating an ultimate room
		room, session, err := svc.CreateRoom(ctx, "h1", "Alice", entity.VariantUltimate)

		// Then: the room waits for a guest and X moves first
		require.NoError(t, err)
		assert.True(t, room.IsWaiting())
		assert.Equal(t, session.ID, room.SessionID)
		assert.Equal(t, room.Code, session.RoomCode)
		assert.Equal(t, entity.PlayerX, session.CurrentPlayer)
		assert.Equal(t, entity.VariantUltimate, session.Variant())
		rooms.AssertExpectations(t)
		sessions.AssertExpectations(t)
	})

	t.Run("Regenerates the code on collision", func(t *testing.T) {
		// Given: the first code is already taken
		rooms := &mockRoomRepo{}
		sessions := &mockSessionRepo{}
		sessions.On("Insert", ctx, mock.Anything).Return(nil).Twice()
		sessions.On("Delete", ctx, mock.Anything).Return(nil).Once()
		rooms.On("Insert", ctx, mock.Anything).Return(apperror.ErrCodeTaken).Once()
		rooms.On("Insert", ctx, mock.Anything).Return(nil).Once()

		svc := NewRoomService(discardLogger(), rooms, sessions, 3)

		// When: creating a room
		room, _, err := svc.CreateRoom(ctx, "h1", "Alice", entity.VariantSimple)

		// Then: the second code is used and the orphan session is removed
		require.NoError(t, err)
		assert.NotNil(t, room)
		rooms.AssertExpectations(t)
		sessions.AssertExpectations(t)
	})

	t.Run("Gives up after the configured attempts", func(t *testing.T) {
		rooms := &mockRoomRepo{}
		sessions := &mockSessionRepo{}
		sessions.On("Insert", ctx, mock.Anything).Return(nil)
		sessions.On("Delete", ctx, mock.Anything).Return(nil)
		rooms.On("Insert", ctx, mock.Anything).Return(apperror.ErrCodeTaken).Times(2)

		svc := NewRoomService(discardLogger(), rooms, sessions, 2)

		_, _, err := svc.CreateRoom(ctx, "h1", "Alice", entity.VariantSimple)

		require.ErrorIs(t, err, apperror.ErrCreateFailed)
		rooms.AssertExpectations(t)
	})

	t.Run("Store failure is reported as create failed", func(t *testing.T) {
		rooms := &mockRoomRepo{}
		sessions := &mockSessionRepo{}
		sessions.On("Insert", ctx, mock.Anything).Return(errRedisDown).Once()

		svc := NewRoomService(discardLogger(), rooms, sessions, 3)

		_, _, err := svc.CreateRoom(ctx, "h1", "Alice", entity.VariantSimple)

		require.ErrorIs(t, err, apperror.ErrCreateFailed)
		require.ErrorIs(t, err, errRedisDown)
		rooms.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("Unknown variant never reaches the store", func(t *testing.T) {
		rooms := &mockRoomRepo{}
		sessions := &mockSessionRepo{}
		svc := NewRoomService(discardLogger(), rooms, sessions, 3)

		_, _, err := svc.CreateRoom(ctx, "h1", "Alice", entity.Variant("chess"))

		require.ErrorIs(t, err, apperror.ErrCreateFailed)
		sessions.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})
}

func TestRoomService_JoinRoom(t *testing.T) {
	ctx := context.Background()

	newWaitingRoom := func() *entity.Room {
		return entity.NewRoom("ABC234", "h1", "Alice", "s1", entity.VariantSimple)
	}

	t.Run("Seats the guest and starts the game", func(t *testing.T) {
		// Given: a waiting room
		rooms := &mockRoomRepo{}
		sessions := &mockSessionRepo{}
		rooms.On("Update", ctx, "ABC234").Return(newWaitingRoom(), nil).Once()
		sessions.On("GetByID", ctx, "s1").Return(entity.NewSession("s1", "ABC234", entity.SimpleBoard{}), nil).Once()

		svc := NewRoomService(discardLogger(), rooms, sessions, 3)

		// When: a guest joins with a lower-case code
		room, session, err := svc.JoinRoom(ctx, "abc234", "g1", "Bob")

		// Then: the guest is seated and the room is playing
		require.NoError(t, err)
		assert.Equal(t, "g1", room.GuestID)
		assert.Equal(t, "Bob", room.GuestName)
		assert.True(t, room.IsPlaying())
		assert.Equal(t, "s1", session.ID)
	})

	t.Run("Lobby errors", func(t *testing.T) {
		full := newWaitingRoom()
		full.GuestID = "g2"
		full.Status = entity.StatusPlaying

		finished := newWaitingRoom()
		finished.Status = entity.StatusFinished

		tests := []struct {
			name     string
			stored   *entity.Room
			storeErr error
			want     error
		}{
			{name: "not found", storeErr: apperror.ErrRoomNotFound, want: apperror.ErrRoomNotFound},
			{name: "full", stored: full, want: apperror.ErrRoomFull},
			{name: "not joinable", stored: finished, want: apperror.ErrRoomNotJoinable},
			{name: "host joins own room", stored: newWaitingRoom(), want: apperror.ErrRoomNotJoinable},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rooms := &mockRoomRepo{}
				sessions := &mockSessionRepo{}
				rooms.On("Update", ctx, "ABC234").Return(tt.stored, tt.storeErr).Once()

				svc := NewRoomService(discardLogger(), rooms, sessions, 3)

				guestID := "g1"
				if tt.name == "host joins own room" {
					guestID = "h1"
				}

				_, _, err := svc.JoinRoom(ctx, "ABC234", guestID, "Bob")

				require.ErrorIs(t, err, tt.want)
			})
		}
	})

	t.Run("Anonymous guest never reaches the store", func(t *testing.T) {
		// Given: an empty room the empty id would otherwise match
		rooms := &mockRoomRepo{}
		svc := NewRoomService(discardLogger(), rooms, &mockSessionRepo{}, 3)

		// When: joining without a player id
		_, _, err := svc.JoinRoom(ctx, "ABC234", "", "Bob")

		// Then: the join is refused up front
		require.ErrorIs(t, err, apperror.ErrRoomNotJoinable)
		rooms.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("Invalid code never reaches the store", func(t *testing.T) {
		rooms := &mockRoomRepo{}
		svc := NewRoomService(discardLogger(), rooms, &mockSessionRepo{}, 3)

		_, _, err := svc.JoinRoom(ctx, "O0I1", "g1", "Bob")

		require.ErrorIs(t, err, apperror.ErrInvalidCode)
		rooms.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("Rejoin by the seated guest returns the current snapshot", func(t *testing.T) {
		// Given: the guest already sits in the room
		seated := newWaitingRoom()
		seated.GuestID = "g1"
		seated.Status = entity.StatusPlaying

		rooms := &mockRoomRepo{}
		sessions := &mockSessionRepo{}
		rooms.On("Update", ctx, "ABC234").Return(seated, nil).Once()
		rooms.On("FindByCode", ctx, "ABC234").Return(seated, nil).Once()
		sessions.On("GetByID", ctx, "s1").Return(entity.NewSession("s1", "ABC234", entity.SimpleBoard{}), nil).Once()

		svc := NewRoomService(discardLogger(), rooms, sessions, 3)

		// When: joining again
		room, _, err := svc.JoinRoom(ctx, "ABC234", "g1", "Bob")

		// Then: no error and the same room
		require.NoError(t, err)
		assert.Equal(t, seated, room)
	})
}

func TestRoomService_LeaveRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("Host leave deletes room and session", func(t *testing.T) {
		room := entity.NewRoom("ABC234", "h1", "Alice", "s1", entity.VariantSimple)

		rooms := &mockRoomRepo{}
		sessions := &mockSessionRepo{}
		rooms.On("Delete", ctx, room).Return(nil).Once()
		sessions.On("Delete", ctx, "s1").Return(nil).Once()

		svc := NewRoomService(discardLogger(), rooms, sessions, 3)

		require.NoError(t, svc.LeaveRoom(ctx, room, true))
		rooms.AssertExpectations(t)
		sessions.AssertExpectations(t)
	})

	t.Run("Guest leave reopens the room", func(t *testing.T) {
		room := entity.NewRoom("ABC234", "h1", "Alice", "s1", entity.VariantSimple)
		room.GuestID = "g1"
		room.Status = entity.StatusPlaying

		rooms := &mockRoomRepo{}
		rooms.On("Update", ctx, "ABC234").Return(room, nil).Once()

		svc := NewRoomService(discardLogger(), rooms, &mockSessionRepo{}, 3)

		require.NoError(t, svc.LeaveRoom(ctx, room, false))
		rooms.AssertExpectations(t)
	})

	t.Run("Guest leave of a replaced guest is rejected", func(t *testing.T) {
		mine := entity.NewRoom("ABC234", "h1", "Alice", "s1", entity.VariantSimple)
		mine.GuestID = "g1"

		stored := *mine
		stored.GuestID = "g2"

		rooms := &mockRoomRepo{}
		rooms.On("Update", ctx, "ABC234").Return(&stored, nil).Once()

		svc := NewRoomService(discardLogger(), rooms, &mockSessionRepo{}, 3)

		require.ErrorIs(t, svc.LeaveRoom(ctx, mine, false), apperror.ErrNotInRoom)
	})
}

func TestRoomService_Redis(t *testing.T) {
	ctx, st := suite.New(t)

	rooms := repository.NewRoomRepository(st.Storage, st.Keys, 0)
	sessions := repository.NewSessionRepository(st.Storage, st.Keys, 0)
	svc := NewRoomService(st.Logger, rooms, sessions, 10)

	t.Run("Only one of two racing guests is seated", func(t *testing.T) {
		// Given: a freshly created room
		room, _, err := svc.CreateRoom(ctx, "h1", "Alice", entity.VariantSimple)
		require.NoError(t, err)

		// When: two guests join at once
		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, guest := range []string{"g1", "g2"} {
			wg.Add(1)
			go func(i int, guest string) {
				defer wg.Done()
				_, _, errs[i] = svc.JoinRoom(ctx, room.Code, guest, guest)
			}(i, guest)
		}
		wg.Wait()

		// Then: one is seated, the other sees a full room
		joined := 0
		for _, err := range errs {
			if err == nil {
				joined++
				continue
			}
			require.ErrorIs(t, err, apperror.ErrRoomFull)
		}
		assert.Equal(t, 1, joined)
	})

	t.Run("Host leave removes everything", func(t *testing.T) {
		room, session, err := svc.CreateRoom(ctx, "h1", "Alice", entity.VariantUltimate)
		require.NoError(t, err)

		require.NoError(t, svc.LeaveRoom(ctx, room, true))

		_, _, err = svc.Snapshot(ctx, room.Code)
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
		_, err = sessions.GetByID(ctx, session.ID)
		require.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("Guest leave makes the room joinable again", func(t *testing.T) {
		room, _, err := svc.CreateRoom(ctx, "h1", "Alice", entity.VariantSimple)
		require.NoError(t, err)
		joined, _, err := svc.JoinRoom(ctx, room.Code, "g1", "Bob")
		require.NoError(t, err)

		require.NoError(t, svc.LeaveRoom(ctx, joined, false))

		reopened, _, err := svc.JoinRoom(ctx, room.Code, "g2", "Carol")
		require.NoError(t, err)
		assert.Equal(t, "g2", reopened.GuestID)
	})

	t.Run("Guest leave of a finished game keeps it concluded", func(t *testing.T) {
		// Given: a game that has ended
		room, _, err := svc.CreateRoom(ctx, "h1", "Alice", entity.VariantSimple)
		require.NoError(t, err)
		joined, _, err := svc.JoinRoom(ctx, room.Code, "g1", "Bob")
		require.NoError(t, err)
		_, err = rooms.Update(ctx, room.Code, func(*entity.Room) error { return nil }, func(stored *entity.Room) {
			stored.Status = entity.StatusFinished
		})
		require.NoError(t, err)

		// When: the guest leaves
		require.NoError(t, svc.LeaveRoom(ctx, joined, false))

		// Then: the seat is free but the room stays finished and nobody can join
		stored, _, err := svc.Snapshot(ctx, room.Code)
		require.NoError(t, err)
		assert.True(t, stored.IsFinished())
		assert.False(t, stored.HasGuest())

		_, _, err = svc.JoinRoom(ctx, room.Code, "g2", "Carol")
		require.ErrorIs(t, err, apperror.ErrRoomNotJoinable)
	})
}
