package repo

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	errs "weiqi_room/internal/errors"
)

// RedisSnapshotStore keeps the latest snapshot of a room under its key and
// announces every write on a channel of the same name.
type RedisSnapshotStore struct {
	client *redis.Client
	log    *zap.SugaredLogger
}

func NewRedisSnapshotStore(client *redis.Client, log *zap.SugaredLogger) *RedisSnapshotStore {
	return &RedisSnapshotStore{
		client: client,
		log:    log,
	}
}

func (r *RedisSnapshotStore) Put(ctx context.Context, key string, payload []byte) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, payload, 0)
	pipe.Publish(ctx, key, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to put snapshot %s: %w", key, err)
	}
	return nil
}

func (r *RedisSnapshotStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errs.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot %s: %w", key, err)
	}
	return v, nil
}

func (r *RedisSnapshotStore) Subscribe(ctx context.Context, key string, handler func(payload []byte)) (io.Closer, error) {
	pubsub := r.client.Subscribe(ctx, key)

	// ждём подтверждения подписки, иначе первые сообщения могут потеряться
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", key, err)
	}

	ch := pubsub.Channel()
	go func() {
		for msg := range ch {
			handler([]byte(msg.Payload))
		}
		r.log.Debugf("subscription to %s closed", key)
	}()

	return pubsub, nil
}
