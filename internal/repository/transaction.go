package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
)

// maxTxAttempts - how many times an optimistic transaction is re-run after a concurrent write.
// Each run re-reads the record, so a changed precondition surfaces as its own error.
const maxTxAttempts = 5

// watchUpdate - runs fn inside WATCH key until it commits or its precondition fails.
func watchUpdate(ctx context.Context, client *redis.Client, key string, fn func(tx *redis.Tx) error) error {
	for range maxTxAttempts {
		err := client.Watch(ctx, fn, key)
		if err == nil {
			return nil
		}

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		return err
	}

	return fmt.Errorf("%w: key %s", apperror.ErrConflict, key)
}
