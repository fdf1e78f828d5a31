package usecase

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/rocketscienceinc/tictactoe-sync/internal/codec"
	"github.com/rocketscienceinc/tictactoe-sync/internal/entity"
)

type fakeRooms struct {
	mu sync.Mutex

	room    *entity.Room
	session *entity.Session

	joinErr    error
	joinBlocks bool
	snapshots  int
	left       []bool
}

func (f *fakeRooms) CreateRoom(_ context.Context, hostID, hostName string, variant entity.Variant) (*entity.Room, *entity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	board, err := entity.NewBoard(variant)
	if err != nil {
		return nil, nil, err
	}

	f.session = entity.NewSession("s1", "ABC234", board)
	f.room = entity.NewRoom("ABC234", hostID, hostName, "s1", variant)

	return f.roomCopy(), f.session, nil
}

func (f *fakeRooms) JoinRoom(ctx context.Context, code, guestID, guestName string) (*entity.Room, *entity.Session, error) {
	if f.joinBlocks {
		<-ctx.Done()
		return nil, nil, ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.joinErr != nil {
		return nil, nil, f.joinErr
	}

	f.room.GuestID = guestID
	f.room.GuestName = guestName
	f.room.Status = entity.StatusPlaying

	return f.roomCopy(), f.session, nil
}

func (f *fakeRooms) LeaveRoom(_ context.Context, _ *entity.Room, isHost bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.left = append(f.left, isHost)
	return nil
}

func (f *fakeRooms) Snapshot(_ context.Context, _ string) (*entity.Room, *entity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.snapshots++
	return f.roomCopy(), f.session, nil
}

func (f *fakeRooms) setSession(session *entity.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.session = session
}

func (f *fakeRooms) snapshotCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.snapshots
}

func (f *fakeRooms) roomCopy() *entity.Room {
	room := *f.room
	return &room
}

type mockGame struct {
	mock.Mock
}

func (m *mockGame) CommitMove(ctx context.Context, base, next *entity.Session) error {
	return m.Called(ctx, base, next).Error(0)
}

type fakeChannel struct {
	mu       sync.Mutex
	streams  []chan codec.Event
	failures int
}

func (f *fakeChannel) Subscribe(_ context.Context, _ string) (<-chan codec.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failures > 0 {
		f.failures--
		return nil, errRedisDown
	}

	stream := make(chan codec.Event, 16)
	f.streams = append(f.streams, stream)

	return stream, nil
}

func (f *fakeChannel) subscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.streams)
}

func (f *fakeChannel) current() chan codec.Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.streams[len(f.streams)-1]
}

type recordingView struct {
	mu     sync.Mutex
	states []State
}

func (v *recordingView) Render(state State) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.states = append(v.states, state)
}

func (v *recordingView) last() State {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(v.states) == 0 {
		return State{}
	}

	return v.states[len(v.states)-1]
}
