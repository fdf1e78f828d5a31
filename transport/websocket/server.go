package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-sync/internal/codec"
	"github.com/rocketscienceinc/tictactoe-sync/internal/config"
	"github.com/rocketscienceinc/tictactoe-sync/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sync/internal/usecase"
)

const (
	sessionCookie = "user_session"
	cookieTTL     = 24 * time.Hour

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 4096
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

type handlerFunc func(ctx context.Context, conn *connection, payload *RequestPayload) error

// Server - bridges browser sockets to sync clients, one client per socket.
type Server struct {
	logger *slog.Logger
	conf   config.Sync

	rooms   roomService
	game    gamePlayService
	channel channel

	upgrader websocket.Upgrader
	handlers map[string]handlerFunc
}

func New(logger *slog.Logger, conf config.Sync, rooms roomService, game gamePlayService, channel channel) *Server {
	server := &Server{
		logger:  logger.With("component", "websocket"),
		conf:    conf,
		rooms:   rooms,
		game:    game,
		channel: channel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		handlers: make(map[string]handlerFunc),
	}

	server.handlers[actionRoomCreate] = server.handleCreateRoom
	server.handlers[actionRoomJoin] = server.handleJoinRoom
	server.handlers[actionRoomLeave] = server.handleLeaveRoom
	server.handlers[actionGameTurn] = server.handleGameTurn

	return server
}

// Handler - upgrades requests to sockets that live until ctx is done or the peer goes away.
func (that *Server) Handler(ctx context.Context) http.HandlerFunc {
	return func(writer http.ResponseWriter, req *http.Request) {
		that.serve(ctx, writer, req)
	}
}

func (that *Server) serve(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "serve")

	playerID, header := that.playerSession(req)

	ws, err := that.upgrader.Upgrade(writer, req, header)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn := &connection{ws: ws, logger: log.With("player_id", playerID)}
	conn.client = usecase.NewSyncClient(that.logger, that.conf, playerID, that.rooms, that.game, that.channel, conn)

	defer func() {
		conn.client.Close()
		_ = ws.Close()
	}()

	go conn.keepAlive(connCtx)

	log.Info("WebSocket connection established", "player_id", playerID)

	if err = that.handleMessages(connCtx, conn); err != nil {
		log.Error("error handling messages", "error", err)
	}

	log.Info("WebSocket connection closed", "player_id", playerID)
}

// handleMessages - processes messages from the client until the socket fails.
func (that *Server) handleMessages(ctx context.Context, conn *connection) error {
	log := conn.logger.With("method", "handleMessages")

	conn.ws.SetReadLimit(maxMessage)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var message Message
		if err := conn.ws.ReadJSON(&message); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				log.Warn("failed to unmarshal message", "error", err)
				conn.sendError("", err)
				continue
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read message: %w", err)
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)
			conn.sendError(message.Action, fmt.Errorf("unknown action %q", message.Action))
			continue
		}

		var payload RequestPayload
		if len(message.Payload) > 0 {
			if err := json.Unmarshal(message.Payload, &payload); err != nil {
				conn.sendError(message.Action, fmt.Errorf("failed to unmarshal payload: %w", err))
				continue
			}
		}

		if err := handler(ctx, conn, &payload); err != nil {
			log.Info("action rejected", "action", message.Action, "error", err)
			conn.sendError(message.Action, err)
		}
	}
}

// playerSession - reads the player id from the session cookie or issues a new one.
func (that *Server) playerSession(req *http.Request) (string, http.Header) {
	if cookie, err := req.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	playerID := uuid.NewString()
	cookie := &http.Cookie{
		Name:    sessionCookie,
		Value:   playerID,
		Expires: time.Now().Add(cookieTTL),
		Path:    "/ws",
	}

	header := http.Header{}
	header.Add("Set-Cookie", cookie.String())

	return playerID, header
}

type connection struct {
	ws     *websocket.Conn
	client *usecase.SyncClient
	logger *slog.Logger

	// gorilla allows one concurrent writer
	writeMu sync.Mutex
}

// Render - pushes every state change of the sync client to the browser.
func (that *connection) Render(state usecase.State) {
	if err := that.send(actionGameState, newStatePayload(that.client.PlayerID(), state)); err != nil {
		that.logger.Warn("failed to push state", "error", err)
	}
}

func (that *connection) send(action string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	_ = that.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err = that.ws.WriteJSON(Message{Action: action, Payload: body}); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (that *connection) sendError(action string, cause error) {
	if err := that.send(actionError, newErrorPayload(action, cause)); err != nil {
		that.logger.Warn("failed to send error", "error", err)
	}
}

func (that *connection) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			that.writeMu.Lock()
			_ = that.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"), time.Now().Add(writeWait))
			that.writeMu.Unlock()
			_ = that.ws.Close()
			return
		case <-ticker.C:
			that.writeMu.Lock()
			err := that.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			that.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
