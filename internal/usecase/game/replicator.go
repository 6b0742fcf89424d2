package game

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"weiqi_room/internal/domain/game"
	errs "weiqi_room/internal/errors"
)

// SnapshotStore is the external key-addressed publish/subscribe store.
// Writes are last-writer-wins per key.
type SnapshotStore interface {
	Put(ctx context.Context, key string, payload []byte) error
	// Get returns errs.ErrSnapshotNotFound when nothing was written yet.
	Get(ctx context.Context, key string) ([]byte, error)
	// Subscribe delivers every later Put on key to handler, in publish order,
	// on a goroutine owned by the store.
	Subscribe(ctx context.Context, key string, handler func(payload []byte)) (io.Closer, error)
}

// Replicator publishes full snapshots of one room and feeds incoming ones
// back into the session. There is no merge: every well-formed snapshot,
// including this peer's own echo, overwrites the session, so all peers end
// at the store's last write.
type Replicator struct {
	store   SnapshotStore
	key     string
	timeout time.Duration
	log     *zap.SugaredLogger

	received atomic.Bool
	sub      io.Closer
}

func NewReplicator(store SnapshotStore, key string, timeout time.Duration, log *zap.SugaredLogger) *Replicator {
	return &Replicator{
		store:   store,
		key:     key,
		timeout: timeout,
		log:     log,
	}
}

func (r *Replicator) Key() string {
	return r.key
}

func (r *Replicator) Publish(ctx context.Context, state game.GameState) error {
	payload, err := game.EncodeSnapshot(state)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPublishFailed, err)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if err = r.store.Put(ctx, r.key, payload); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPublishFailed, err)
	}
	return nil
}

// Attach subscribes to the room key and then loads whatever is stored there,
// so a peer joining a running room starts from the live position. The stored
// value is skipped if a pushed update already arrived.
func (r *Replicator) Attach(ctx context.Context, apply func(game.GameState)) error {
	sub, err := r.store.Subscribe(ctx, r.key, func(payload []byte) {
		state, ok := r.decode(payload)
		if !ok {
			return
		}
		r.received.Store(true)
		apply(state)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrSubscribeFailed, err)
	}
	r.sub = sub

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	payload, err := r.store.Get(ctx, r.key)
	if errors.Is(err, errs.ErrSnapshotNotFound) {
		return nil
	}
	if err != nil {
		r.log.Warnf("initial snapshot for %s unavailable: %v", r.key, err)
		return nil
	}

	state, ok := r.decode(payload)
	if ok && !r.received.Load() {
		apply(state)
	}
	return nil
}

func (r *Replicator) decode(payload []byte) (game.GameState, bool) {
	state, err := game.DecodeSnapshot(payload)
	if err != nil {
		r.log.Warnf("dropping snapshot for %s: %v", r.key, err)
		return game.GameState{}, false
	}
	return state, true
}

func (r *Replicator) Detach() error {
	if r.sub == nil {
		return nil
	}
	err := r.sub.Close()
	r.sub = nil
	return err
}
