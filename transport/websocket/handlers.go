package websocket

import (
	"context"
	"errors"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sync/internal/entity"
)

var errMoveRequired = errors.New("move is required")

func (that *Server) handleCreateRoom(ctx context.Context, conn *connection, payload *RequestPayload) error {
	variant := payload.Variant
	if variant == "" {
		variant = entity.VariantSimple
	}

	if !variant.IsValid() {
		return apperror.ErrCreateFailed
	}

	if _, err := conn.client.CreateRoom(ctx, payload.Name, variant); err != nil {
		return err
	}

	return conn.send(actionRoomCreate, newStatePayload(conn.client.PlayerID(), conn.client.State()))
}

func (that *Server) handleJoinRoom(ctx context.Context, conn *connection, payload *RequestPayload) error {
	if _, err := conn.client.JoinRoom(ctx, payload.Code, payload.Name); err != nil {
		return err
	}

	return conn.send(actionRoomJoin, newStatePayload(conn.client.PlayerID(), conn.client.State()))
}

func (that *Server) handleLeaveRoom(ctx context.Context, conn *connection, _ *RequestPayload) error {
	if err := conn.client.Leave(ctx); err != nil {
		return err
	}

	return conn.send(actionRoomLeave, newStatePayload(conn.client.PlayerID(), conn.client.State()))
}

func (that *Server) handleGameTurn(ctx context.Context, conn *connection, payload *RequestPayload) error {
	if payload.Move == nil {
		return errMoveRequired
	}

	return conn.client.SubmitMove(ctx, *payload.Move)
}
