package game

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"weiqi_room/internal/domain/game"
	errs "weiqi_room/internal/errors"
	repo "weiqi_room/internal/repository"
)

// heldStore keeps the last write per key but only delivers published
// payloads when flush is called, in publish order.
type heldStore struct {
	mu      sync.Mutex
	values  map[string][]byte
	subs    map[string][]*heldSub
	pending []heldMessage
}

type heldMessage struct {
	key     string
	payload []byte
}

type heldSub struct {
	handler func([]byte)
	closed  atomic.Bool
}

func (h *heldSub) Close() error {
	h.closed.Store(true)
	return nil
}

func newHeldStore() *heldStore {
	return &heldStore{
		values: make(map[string][]byte),
		subs:   make(map[string][]*heldSub),
	}
}

func (h *heldStore) Put(_ context.Context, key string, payload []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	data := append([]byte(nil), payload...)
	h.values[key] = data
	h.pending = append(h.pending, heldMessage{key: key, payload: data})
	return nil
}

func (h *heldStore) Get(_ context.Context, key string) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.values[key]
	if !ok {
		return nil, errs.ErrSnapshotNotFound
	}
	return v, nil
}

func (h *heldStore) Subscribe(_ context.Context, key string, handler func([]byte)) (io.Closer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub := &heldSub{handler: handler}
	h.subs[key] = append(h.subs[key], sub)
	return sub, nil
}

func (h *heldStore) flush() {
	h.mu.Lock()
	batch := h.pending
	h.pending = nil
	subs := make(map[string][]*heldSub, len(h.subs))
	for k, v := range h.subs {
		subs[k] = append([]*heldSub(nil), v...)
	}
	h.mu.Unlock()

	for _, msg := range batch {
		for _, sub := range subs[msg.key] {
			if !sub.closed.Load() {
				sub.handler(msg.payload)
			}
		}
	}
}

func (h *heldStore) last(t *testing.T, key string) game.GameState {
	t.Helper()
	payload, err := h.Get(context.Background(), key)
	require.NoError(t, err)
	state, err := game.DecodeSnapshot(payload)
	require.NoError(t, err)
	return state
}

func TestReplication_ConcurrentMovesConverge(t *testing.T) {
	store := newHeldStore()
	ctx := context.Background()
	alice := newRooms(t, store, nil)
	bob := newRooms(t, store, nil)

	a, err := alice.Create(ctx)
	require.NoError(t, err)
	b, err := bob.Open(ctx, a.ID())
	require.NoError(t, err)
	key := testCfg.RoomKeyPrefix + a.ID()

	// Given: both seats taken, black to move on both peers
	a.ClaimSeat(ctx)
	store.flush()
	b.ClaimSeat(ctx)
	store.flush()
	require.True(t, a.State().Equal(b.State()))
	require.Equal(t, game.Black, a.State().CurrentPlayer)

	// When: both peers play before either hears from the other
	_, ok := a.AttemptMove(ctx, 3, 3)
	require.True(t, ok)
	_, ok = b.AttemptMove(ctx, 15, 15)
	require.True(t, ok)
	store.flush()

	// Then: the first move is lost but nobody is left on a private game
	last := store.last(t, key)
	require.Equal(t, game.Black, last.Board.Get(15, 15))
	require.Equal(t, game.Empty, last.Board.Get(3, 3))
	require.True(t, last.Equal(a.State()), "alice differs from the store")
	require.True(t, last.Equal(b.State()), "bob differs from the store")
}

func TestReplication_OwnEchoApplied(t *testing.T) {
	store := newHeldStore()
	ctx := context.Background()
	rooms := newRooms(t, store, nil)

	s, err := rooms.Create(ctx)
	require.NoError(t, err)

	// Given: two local changes whose echoes are still in flight
	s.ClaimSeat(ctx)
	s.ClaimSeat(ctx)

	// When: the echoes arrive
	var views []game.View
	s.Subscribe(func(v game.View) { views = append(views, v) })
	store.flush()

	// Then: the stale first echo is applied, then the second restores the latest write
	require.Len(t, views, 2)
	require.Equal(t, game.Players{Black: true}, views[0].Players)
	require.Equal(t, game.Players{Black: true, White: true}, views[1].Players)
	require.True(t, store.last(t, testCfg.RoomKeyPrefix+s.ID()).Equal(s.State()))
	require.True(t, s.State().Players.Full())
}

// slowStore blocks Subscribe for one key until released.
type slowStore struct {
	*repo.MemorySnapshotStore
	key     string
	waiting atomic.Bool
	release chan struct{}
}

func (s *slowStore) Subscribe(ctx context.Context, key string, handler func([]byte)) (io.Closer, error) {
	if key == s.key {
		s.waiting.Store(true)
		<-s.release
	}
	return s.MemorySnapshotStore.Subscribe(ctx, key, handler)
}

func TestRooms_SlowAttachDoesNotBlockOtherRooms(t *testing.T) {
	slowID := uuid.NewString()
	store := &slowStore{
		MemorySnapshotStore: repo.NewMemorySnapshotStore(),
		key:                 testCfg.RoomKeyPrefix + slowID,
		release:             make(chan struct{}),
	}
	rooms := newRooms(t, store, nil)
	ctx := context.Background()

	existing, err := rooms.Create(ctx)
	require.NoError(t, err)

	// Given: one room is stuck attaching
	opened := make(chan *Session, 1)
	go func() {
		s, err := rooms.Open(ctx, slowID)
		if err != nil {
			s = nil
		}
		opened <- s
	}()
	require.Eventually(t, store.waiting.Load, waitFor, tick)

	// When: other rooms are looked up and created meanwhile
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = rooms.Create(ctx)
		_, _ = rooms.Get(existing.ID())
	}()

	// Then: they are not held up
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("registry blocked by a slow attach")
	}

	close(store.release)
	select {
	case s := <-opened:
		require.NotNil(t, s)
		got, ok := rooms.Get(slowID)
		require.True(t, ok)
		require.Same(t, s, got)
	case <-time.After(waitFor):
		t.Fatal("slow room never opened")
	}
}
