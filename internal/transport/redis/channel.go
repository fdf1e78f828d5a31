package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sync/internal/codec"
	"github.com/rocketscienceinc/tictactoe-sync/internal/repository/storage"
)

const eventBuffer = 16

// Channel - room change notifications over redis pub/sub.
type Channel struct {
	logger *slog.Logger
	client *redis.Client
	keys   storage.Keys
}

func New(logger *slog.Logger, client *redis.Client, keys storage.Keys) *Channel {
	return &Channel{
		logger: logger.With("component", "channel"),
		client: client,
		keys:   keys,
	}
}

// Subscribe - streams events of the room until ctx is done. The returned channel is closed on exit.
// Delivery is at-most-once: after a reconnect a resync event is emitted in place of what was missed.
func (that *Channel) Subscribe(ctx context.Context, code string) (<-chan codec.Event, error) {
	log := that.logger.With("method", "Subscribe", "code", code)

	pubsub := that.client.Subscribe(ctx, that.keys.Topic(code))

	// wait for the confirmation, so nothing published after return is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("%w: failed to subscribe: %w", apperror.ErrConnectionLost, err)
	}

	events := make(chan codec.Event, eventBuffer)

	go func() {
		defer close(events)
		defer pubsub.Close()

		messages := pubsub.ChannelWithSubscriptions()
		for {
			var event codec.Event

			select {
			case <-ctx.Done():
				return
			case received, ok := <-messages:
				if !ok {
					log.Info("subscription closed")
					return
				}

				switch msg := received.(type) {
				case *redis.Subscription:
					if msg.Kind != "subscribe" {
						continue
					}
					event = codec.ResyncEvent(code)
				case *redis.Message:
					decoded, err := codec.UnmarshalEvent([]byte(msg.Payload))
					if err != nil {
						log.Warn("dropping malformed event", "error", err)
						continue
					}
					event = decoded
				default:
					continue
				}
			}

			select {
			case <-ctx.Done():
				return
			case events <- event:
			}
		}
	}()

	return events, nil
}
