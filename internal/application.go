package application

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/tictactoe-sync/internal/config"
	"github.com/rocketscienceinc/tictactoe-sync/internal/repository"
	"github.com/rocketscienceinc/tictactoe-sync/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-sync/internal/service"
	"github.com/rocketscienceinc/tictactoe-sync/internal/transport/redis"
	"github.com/rocketscienceinc/tictactoe-sync/transport/rest"
	"github.com/rocketscienceinc/tictactoe-sync/transport/websocket"
)

// RunApp - runs the application until SIGINT or SIGTERM.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisStorage, err := storage.NewRedisStorage(ctx, conf.Redis)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	keys := storage.NewKeys(conf.Redis.KeyPrefix)

	roomRepo := repository.NewRoomRepository(redisStorage.Connection, keys, conf.Redis.RoomTTL)
	sessionRepo := repository.NewSessionRepository(redisStorage.Connection, keys, conf.Redis.RoomTTL)

	roomService := service.NewRoomService(logger, roomRepo, sessionRepo, conf.Sync.CodeAttempts)
	gamePlayService := service.NewGamePlayService(logger, roomRepo, sessionRepo)
	channel := redis.New(logger, redisStorage.Connection, keys)

	group, groupCtx := errgroup.WithContext(ctx)

	wsServer := websocket.New(logger, conf.Sync, roomService, gamePlayService, channel)
	router := rest.NewRouter(wsServer.Handler(groupCtx))

	group.Go(func() error {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		return rest.Start(groupCtx, conf.HTTPPort, router)
	})

	if err = group.Wait(); err != nil {
		return fmt.Errorf("HTTP server error: %w", err)
	}

	log.Info("Application context canceled, shutting down")

	return nil
}
