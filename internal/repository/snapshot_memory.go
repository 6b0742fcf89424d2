package repo

import (
	"context"
	"io"
	"sync"

	errs "weiqi_room/internal/errors"
)

// MemorySnapshotStore is an in-process store for a single peer or tests.
// Each subscriber gets its own queue and goroutine, so Put never runs a
// handler on the caller's goroutine.
type MemorySnapshotStore struct {
	mu     sync.Mutex
	values map[string][]byte
	subs   map[string]map[*memorySubscription]struct{}
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{
		values: make(map[string][]byte),
		subs:   make(map[string]map[*memorySubscription]struct{}),
	}
}

func (m *MemorySnapshotStore) Put(ctx context.Context, key string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data := append([]byte(nil), payload...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = data
	for sub := range m.subs[key] {
		sub.push(data)
	}
	return nil
}

func (m *MemorySnapshotStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return nil, errs.ErrSnapshotNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemorySnapshotStore) Subscribe(ctx context.Context, key string, handler func(payload []byte)) (io.Closer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub := &memorySubscription{
		store:   m,
		key:     key,
		handler: handler,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	m.mu.Lock()
	if m.subs[key] == nil {
		m.subs[key] = make(map[*memorySubscription]struct{})
	}
	m.subs[key][sub] = struct{}{}
	m.mu.Unlock()

	go sub.run()
	return sub, nil
}

type memorySubscription struct {
	store   *MemorySnapshotStore
	key     string
	handler func([]byte)

	mu      sync.Mutex
	pending [][]byte
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func (s *memorySubscription) push(payload []byte) {
	s.mu.Lock()
	s.pending = append(s.pending, payload)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *memorySubscription) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		s.mu.Lock()
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()

		for _, payload := range batch {
			select {
			case <-s.done:
				return
			default:
			}
			s.handler(payload)
		}
	}
}

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.store.mu.Lock()
		delete(s.store.subs[s.key], s)
		s.store.mu.Unlock()
		close(s.done)
	})
	return nil
}
