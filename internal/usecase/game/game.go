package game

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"weiqi_room/internal/bootstrap"
	"weiqi_room/internal/domain/game"
	errs "weiqi_room/internal/errors"
)

// Rooms keeps the sessions this peer has opened. Other peers sharing the
// same store and room id replicate into them.
type Rooms struct {
	cfg     bootstrap.Config
	log     *zap.SugaredLogger
	store   SnapshotStore
	archive ArchiveStore
	peerID  string

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRooms: archive может быть nil, тогда архив партий отключён.
func NewRooms(cfg bootstrap.Config, log *zap.SugaredLogger, store SnapshotStore, archive ArchiveStore) *Rooms {
	return &Rooms{
		cfg:      cfg,
		log:      log,
		store:    store,
		archive:  archive,
		peerID:   uuid.NewString(),
		sessions: make(map[string]*Session),
	}
}

func (r *Rooms) PeerID() string {
	return r.peerID
}

// Create starts a room under a freshly generated id.
func (r *Rooms) Create(ctx context.Context) (*Session, error) {
	return r.Open(ctx, uuid.NewString())
}

// Open returns the local session for roomID, attaching to the store the
// first time the id is seen on this peer.
func (r *Rooms) Open(ctx context.Context, roomID string) (*Session, error) {
	if _, err := uuid.Parse(roomID); err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrRoomNotFound, roomID)
	}

	if s, ok := r.Get(roomID); ok {
		return s, nil
	}

	// attach идёт без блокировки реестра: медленное хранилище не должно
	// задерживать остальные комнаты
	replicator := NewReplicator(r.store, r.cfg.RoomKeyPrefix+roomID, r.cfg.PublishTimeout, r.log)
	session := NewSession(roomID, replicator, r.archive, r.log)
	if err := replicator.Attach(ctx, session.ApplyRemote); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if existing, ok := r.sessions[roomID]; ok {
		r.mu.Unlock()
		if err := session.Close(); err != nil {
			r.log.Warnf("room %s: closing duplicate session: %v", roomID, err)
		}
		return existing, nil
	}
	r.sessions[roomID] = session
	r.mu.Unlock()

	r.log.Infof("room %s opened on peer %s", roomID, r.peerID)
	return session, nil
}

func (r *Rooms) Get(roomID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[roomID]
	return s, ok
}

func (r *Rooms) FinishedGames(ctx context.Context, roomID string) ([]game.FinishedGame, error) {
	if r.archive == nil {
		return nil, errs.ErrArchiveUnavailable
	}
	return r.archive.GetFinishedGames(ctx, roomID)
}

// Close detaches every session from the store.
func (r *Rooms) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for id, s := range r.sessions {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(r.sessions, id)
	}
	return firstErr
}
