package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rocketscienceinc/tictactoe-sync/internal/entity"
)

type mockRoomRepo struct {
	mock.Mock
}

func (m *mockRoomRepo) Insert(ctx context.Context, room *entity.Room) error {
	return m.Called(ctx, room).Error(0)
}

func (m *mockRoomRepo) FindByCode(ctx context.Context, code string) (*entity.Room, error) {
	args := m.Called(ctx, code)
	room, _ := args.Get(0).(*entity.Room)
	return room, args.Error(1)
}

// Update - runs precondition and patch against the room handed to On(...).Return.
func (m *mockRoomRepo) Update(
	ctx context.Context,
	code string,
	precondition func(*entity.Room) error,
	patch func(*entity.Room),
) (*entity.Room, error) {
	args := m.Called(ctx, code)
	if err := args.Error(1); err != nil {
		return nil, err
	}

	stored := *args.Get(0).(*entity.Room)
	if err := precondition(&stored); err != nil {
		return nil, err
	}
	patch(&stored)

	return &stored, nil
}

func (m *mockRoomRepo) Delete(ctx context.Context, room *entity.Room) error {
	return m.Called(ctx, room).Error(0)
}

type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) Insert(ctx context.Context, session *entity.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *mockSessionRepo) GetByID(ctx context.Context, id string) (*entity.Session, error) {
	args := m.Called(ctx, id)
	session, _ := args.Get(0).(*entity.Session)
	return session, args.Error(1)
}

func (m *mockSessionRepo) Update(
	ctx context.Context,
	id string,
	precondition func(*entity.Session) error,
	patch func(*entity.Session) *entity.Session,
) (*entity.Session, error) {
	args := m.Called(ctx, id)
	if err := args.Error(1); err != nil {
		return nil, err
	}

	stored := args.Get(0).(*entity.Session).Clone()
	if err := precondition(stored); err != nil {
		return nil, err
	}

	return patch(stored), nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
