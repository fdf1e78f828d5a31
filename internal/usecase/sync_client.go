package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cenkalti/backoff/v4"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sync/internal/codec"
	"github.com/rocketscienceinc/tictactoe-sync/internal/config"
	"github.com/rocketscienceinc/tictactoe-sync/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sync/internal/tictactoe"
)

type roomService interface {
	CreateRoom(ctx context.Context, hostID, hostName string, variant entity.Variant) (*entity.Room, *entity.Session, error)
	JoinRoom(ctx context.Context, code, guestID, guestName string) (*entity.Room, *entity.Session, error)
	LeaveRoom(ctx context.Context, room *entity.Room, isHost bool) error
	Snapshot(ctx context.Context, code string) (*entity.Room, *entity.Session, error)
}

type gamePlayService interface {
	CommitMove(ctx context.Context, base, next *entity.Session) error
}

type channel interface {
	Subscribe(ctx context.Context, code string) (<-chan codec.Event, error)
}

// SyncClient - one participant's view of a shared room.
// Local moves are shown at once and confirmed by the store; remote snapshots replace local state.
type SyncClient struct {
	logger   *slog.Logger
	conf     config.Sync
	playerID string

	rooms   roomService
	game    gamePlayService
	channel channel
	view    View

	mu        sync.Mutex
	room      *entity.Room
	local     *entity.Session
	confirmed *entity.Session
	isHost    bool
	connected bool
	cancel    context.CancelFunc
	done      chan struct{}

	// undelivered - the optimistic session whose write failed for good
	undelivered *entity.Session

	renderMu sync.Mutex
}

func NewSyncClient(
	logger *slog.Logger,
	conf config.Sync,
	playerID string,
	rooms roomService,
	game gamePlayService,
	channel channel,
	view View,
) *SyncClient {
	if view == nil {
		view = ViewFunc(func(State) {})
	}

	return &SyncClient{
		logger:   logger.With("component", "sync_client", "player_id", playerID),
		conf:     conf,
		playerID: playerID,
		rooms:    rooms,
		game:     game,
		channel:  channel,
		view:     view,
	}
}

func (that *SyncClient) PlayerID() string {
	return that.playerID
}

func (that *SyncClient) CreateRoom(ctx context.Context, name string, variant entity.Variant) (*entity.Room, error) {
	if err := that.ensureDetached(); err != nil {
		return nil, err
	}

	room, session, err := that.rooms.CreateRoom(ctx, that.playerID, name, variant)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	if err = that.attach(ctx, room, session, true); err != nil {
		return nil, err
	}

	return room, nil
}

// JoinRoom - joins as guest. Lobby errors are returned as is; anything else,
// including the join timeout, is reported as apperror.ErrConnectionLost.
func (that *SyncClient) JoinRoom(ctx context.Context, code, name string) (*entity.Room, error) {
	if err := that.ensureDetached(); err != nil {
		return nil, err
	}

	joinCtx, cancel := context.WithTimeout(ctx, that.conf.JoinTimeout)
	defer cancel()

	room, session, err := that.rooms.JoinRoom(joinCtx, code, that.playerID, name)
	if err != nil {
		if isLobbyError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", apperror.ErrConnectionLost, err)
	}

	if err = that.attach(ctx, room, session, false); err != nil {
		return nil, err
	}

	return room, nil
}

// SubmitMove - applies the move locally and commits it. Rejected input never reaches the store.
// A lost race is not an error: the optimistic state is dropped in favour of the stored one.
func (that *SyncClient) SubmitMove(ctx context.Context, move entity.Move) error {
	log := that.logger.With("method", "SubmitMove")

	// the stored state decides whether a lost write is retried or was applied after all
	if that.hasUndelivered() {
		that.refresh(ctx)

		if that.hasUndelivered() {
			return fmt.Errorf("%w: previous move is still unconfirmed", apperror.ErrConnectionLost)
		}
	}

	that.mu.Lock()
	if that.local == nil {
		that.mu.Unlock()
		return apperror.ErrNotInRoom
	}

	if that.room.IsWaiting() {
		that.mu.Unlock()
		return apperror.ErrGameIsNotStarted
	}

	base := that.local
	next, err := tictactoe.ApplyMove(base, that.seat(), move)
	if err != nil {
		that.mu.Unlock()
		return err
	}

	that.local = next
	that.mu.Unlock()

	that.render()

	err = that.commit(ctx, base, next)
	switch {
	case err == nil:
		that.reconcile(next)
		return nil

	case errors.Is(err, apperror.ErrConflict):
		log.Debug("move lost the race", "move_count", next.MoveCount)
		that.discard(next)
		that.refresh(ctx)
		return nil

	case isRejection(err):
		that.discard(next)
		return err

	default:
		log.Warn("move not delivered", "error", err)
		that.markUndelivered(next)
		that.setConnected(false)
		return fmt.Errorf("%w: %w", apperror.ErrConnectionLost, err)
	}
}

// OnRemoteUpdate - applies one notification. Safe to call with duplicates and stale events.
func (that *SyncClient) OnRemoteUpdate(event codec.Event) {
	switch event.Kind {
	case codec.EventSession:
		if event.Session == nil {
			return
		}

		session, err := codec.DecodeSession(*event.Session)
		if err != nil {
			that.logger.Warn("ignoring undecodable session", "error", err)
			return
		}

		that.reconcile(session)

	case codec.EventRoom:
		if event.Room == nil {
			return
		}

		that.replaceRoom(codec.DecodeRoom(*event.Room))

	case codec.EventClosed:
		if that.code() != event.Code {
			return
		}

		that.logger.Info("room closed", "code", event.Code)
		that.detach()
		that.render()

	case codec.EventResync:
		that.refresh(context.Background())
	}
}

func (that *SyncClient) Seat() entity.Mark {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.seat()
}

func (that *SyncClient) IsMyTurn() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.isMyTurn()
}

func (that *SyncClient) State() State {
	that.mu.Lock()
	defer that.mu.Unlock()

	state := State{
		Seat:      that.seat(),
		IsMyTurn:  that.isMyTurn(),
		Connected: that.connected,
	}

	if that.room != nil {
		room := *that.room
		state.Room = &room
	}

	if that.local != nil {
		state.Session = that.local.Clone()
		state.Result = that.local.Winner

		if board, ok := that.local.Board.(entity.UltimateBoard); ok && state.IsMyTurn {
			state.Playable = board.Playable()
		}
	}

	return state
}

// Leave - leaves the current room. The host's leave closes it for both players.
func (that *SyncClient) Leave(ctx context.Context) error {
	that.mu.Lock()
	room, isHost := that.room, that.isHost
	that.mu.Unlock()

	if room == nil {
		return apperror.ErrNotInRoom
	}

	err := that.rooms.LeaveRoom(ctx, room, isHost)
	if err != nil && !errors.Is(err, apperror.ErrRoomNotFound) && !errors.Is(err, apperror.ErrNotInRoom) {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	that.detach()
	that.render()

	return nil
}

// Close - stops the subscription without touching the room and waits for the listener to exit.
func (that *SyncClient) Close() {
	that.mu.Lock()
	done := that.done
	that.mu.Unlock()

	that.detach()

	if done != nil {
		<-done
	}
}

func (that *SyncClient) attach(ctx context.Context, room *entity.Room, session *entity.Session, isHost bool) error {
	subCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	that.mu.Lock()
	that.room = room
	that.local = session
	that.confirmed = session
	that.undelivered = nil
	that.isHost = isHost
	that.connected = true
	that.cancel = cancel
	that.done = done
	that.mu.Unlock()

	that.logger.Info("attached to room", "code", room.Code, "seat", entity.SeatFor(isHost))

	events, err := that.subscribe(subCtx, room.Code)
	if err != nil {
		close(done)
		that.detach()
		that.render()

		// a seat nobody listens on is given back
		if leaveErr := that.rooms.LeaveRoom(ctx, room, isHost); leaveErr != nil {
			that.logger.Warn("failed to release room", "code", room.Code, "error", leaveErr)
		}

		return err
	}

	go that.listen(subCtx, room.Code, events, done)

	// changes made between the store call and the subscription are only visible in the store
	that.refresh(ctx)

	return nil
}

func (that *SyncClient) listen(ctx context.Context, code string, events <-chan codec.Event, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if ok {
				that.OnRemoteUpdate(event)
				if event.Kind == codec.EventClosed {
					return
				}
				continue
			}

			if ctx.Err() != nil {
				return
			}

			that.logger.Warn("subscription dropped", "code", code)

			resubscribed, err := that.subscribe(ctx, code)
			if err != nil {
				that.setConnected(false)
				return
			}

			events = resubscribed
			that.refresh(ctx)
		}
	}
}

func (that *SyncClient) subscribe(ctx context.Context, code string) (<-chan codec.Event, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(that.conf.RetryInterval), retries(that.conf.ResubscribeAttempts)),
		ctx,
	)

	events, err := backoff.RetryWithData[<-chan codec.Event](func() (<-chan codec.Event, error) {
		return that.channel.Subscribe(ctx, code)
	}, policy)
	if err != nil {
		that.logger.Error("failed to subscribe", "code", code, "error", err)
		return nil, fmt.Errorf("%w: %w", apperror.ErrConnectionLost, err)
	}

	return events, nil
}

func (that *SyncClient) commit(ctx context.Context, base, next *entity.Session) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(that.conf.RetryInterval), retries(that.conf.WriteAttempts)),
		ctx,
	)

	return backoff.Retry(func() error {
		err := that.game.CommitMove(ctx, base, next)
		if err != nil && (errors.Is(err, apperror.ErrConflict) || isRejection(err)) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

// refresh - re-reads the authoritative room and session.
func (that *SyncClient) refresh(ctx context.Context) {
	code := that.code()
	if code == "" {
		return
	}

	readCtx, cancel := context.WithTimeout(ctx, that.conf.JoinTimeout)
	defer cancel()

	room, session, err := that.rooms.Snapshot(readCtx, code)
	if errors.Is(err, apperror.ErrRoomNotFound) {
		that.detach()
		that.render()
		return
	}

	if err != nil {
		that.logger.Warn("failed to refresh snapshot", "code", code, "error", err)
		return
	}

	that.replaceRoom(room)
	that.reconcile(session)
}

// reconcile - the only place authoritative sessions enter local state,
// whether they come from a successful commit, a notification or a re-read.
func (that *SyncClient) reconcile(incoming *entity.Session) {
	that.mu.Lock()

	if that.confirmed == nil || incoming.ID != that.confirmed.ID {
		that.mu.Unlock()
		return
	}

	if incoming.MoveCount <= that.confirmed.MoveCount {
		// duplicate or stale; still proof the connection works
		changed := !that.connected
		that.connected = true

		// the store never got the undelivered move, its turn is back with us
		if that.undelivered != nil && that.local == that.undelivered && incoming.MoveCount == that.confirmed.MoveCount {
			that.confirmed = incoming
			that.local = incoming
			that.undelivered = nil
			changed = true
		}
		that.mu.Unlock()

		if changed {
			that.render()
		}
		return
	}

	that.confirmed = incoming
	that.local = incoming
	that.undelivered = nil
	that.connected = true
	that.mu.Unlock()

	that.render()
}

func (that *SyncClient) replaceRoom(room *entity.Room) {
	that.mu.Lock()
	if that.room == nil || that.room.Code != room.Code {
		that.mu.Unlock()
		return
	}

	that.room = room
	that.mu.Unlock()

	that.render()
}

// discard - drops an optimistic session if nothing newer replaced it meanwhile.
func (that *SyncClient) discard(optimistic *entity.Session) {
	that.mu.Lock()
	if that.local != optimistic {
		that.mu.Unlock()
		return
	}

	that.local = that.confirmed
	that.mu.Unlock()

	that.render()
}

func (that *SyncClient) markUndelivered(optimistic *entity.Session) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.local == optimistic {
		that.undelivered = optimistic
	}
}

func (that *SyncClient) hasUndelivered() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.undelivered != nil
}

func (that *SyncClient) detach() {
	that.mu.Lock()
	cancel := that.cancel

	that.room = nil
	that.local = nil
	that.confirmed = nil
	that.undelivered = nil
	that.isHost = false
	that.connected = false
	that.cancel = nil
	that.done = nil
	that.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (that *SyncClient) ensureDetached() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.room != nil {
		return fmt.Errorf("%w: already in room %s", apperror.ErrRoomNotJoinable, that.room.Code)
	}

	return nil
}

func (that *SyncClient) setConnected(connected bool) {
	that.mu.Lock()
	changed := that.connected != connected
	that.connected = connected
	that.mu.Unlock()

	if changed {
		that.render()
	}
}

func (that *SyncClient) render() {
	that.renderMu.Lock()
	defer that.renderMu.Unlock()

	that.view.Render(that.State())
}

func (that *SyncClient) code() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.room == nil {
		return ""
	}

	return that.room.Code
}

func (that *SyncClient) seat() entity.Mark {
	if that.room == nil {
		return entity.EmptyCell
	}

	return that.room.SeatOf(that.playerID)
}

func (that *SyncClient) isMyTurn() bool {
	if that.room == nil || that.local == nil || !that.room.IsPlaying() {
		return false
	}

	return that.local.CurrentPlayer == that.seat() && that.local.Winner == entity.ResultNone
}

func isLobbyError(err error) bool {
	return errors.Is(err, apperror.ErrRoomNotFound) ||
		errors.Is(err, apperror.ErrRoomFull) ||
		errors.Is(err, apperror.ErrRoomNotJoinable) ||
		errors.Is(err, apperror.ErrInvalidCode)
}

// isRejection - errors that retrying the same write cannot fix.
func isRejection(err error) bool {
	return errors.Is(err, apperror.ErrGameIsNotStarted) ||
		errors.Is(err, apperror.ErrGameFinished) ||
		errors.Is(err, apperror.ErrIllegalMove) ||
		errors.Is(err, apperror.ErrNotYourTurn) ||
		errors.Is(err, apperror.ErrRoomNotFound) ||
		errors.Is(err, apperror.ErrNotFound) ||
		errors.Is(err, context.Canceled)
}

func retries(attempts uint64) uint64 {
	if attempts == 0 {
		return 0
	}

	return attempts - 1
}
