package game

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"weiqi_room/internal/domain/game"
	errs "weiqi_room/internal/errors"
	"weiqi_room/internal/usecase/rules"
)

// Listener receives a fresh View after every state change. It runs with the
// session locked: it must not block or call back into the session.
type Listener func(game.View)

// ArchiveStore keeps finished games.
type ArchiveStore interface {
	SaveFinishedGame(ctx context.Context, finished game.FinishedGame) error
	GetFinishedGames(ctx context.Context, roomID string) ([]game.FinishedGame, error)
}

// Session owns the state of one room. Every mutation, local or replicated,
// goes through it under mu.
type Session struct {
	mu         sync.Mutex
	id         string
	state      game.GameState
	notice     string
	replicator *Replicator
	archive    ArchiveStore
	log        *zap.SugaredLogger

	listeners    map[int]Listener
	nextListener int
	now          func() time.Time
}

func NewSession(id string, replicator *Replicator, archive ArchiveStore, log *zap.SugaredLogger) *Session {
	return &Session{
		id:         id,
		state:      game.NewGameState(),
		replicator: replicator,
		archive:    archive,
		log:        log,
		listeners:  make(map[int]Listener),
		now:        time.Now,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() game.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Session) View() game.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() game.View {
	st := s.state.Clone()
	return game.View{
		RoomID:        s.id,
		Board:         st.Board,
		CurrentPlayer: st.CurrentPlayer,
		Players:       st.Players,
		LastMove:      st.LastMove,
		PassCount:     st.PassCount,
		Phase:         st.Phase(),
		Score:         rules.Score(&st.Board),
		Notice:        s.notice,
	}
}

// Subscribe registers l and returns a func that removes it.
func (s *Session) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Session) notifyLocked() {
	if len(s.listeners) == 0 {
		return
	}
	v := s.viewLocked()
	for _, l := range s.listeners {
		l(v)
	}
}

// commitLocked publishes the current state and refreshes listeners.
// A failed publish keeps the local change and raises the connection notice.
func (s *Session) commitLocked(ctx context.Context) {
	if s.replicator != nil {
		if err := s.replicator.Publish(ctx, s.state); err != nil {
			s.log.Errorf("room %s: %v", s.id, err)
			s.notice = errs.ConnectionNotice
		} else {
			s.notice = ""
		}
	}
	s.notifyLocked()
}

// ClaimSeat gives the caller the first free seat: black, then white.
// It returns game.Empty when both seats are taken.
func (s *Session) ClaimSeat(ctx context.Context) (game.Stone, game.View) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var color game.Stone
	switch {
	case !s.state.Players.Black:
		s.state.Players.Black = true
		s.state.CurrentPlayer = game.Black
		color = game.Black
	case !s.state.Players.White:
		s.state.Players.White = true
		color = game.White
	default:
		return game.Empty, s.viewLocked()
	}

	s.log.Infof("room %s: %s seat claimed", s.id, color)
	s.commitLocked(ctx)
	return color, s.viewLocked()
}

// AttemptMove plays for the side to move. It is a silent no-op when that
// side's seat is unclaimed or the move is illegal.
func (s *Session) AttemptMove(ctx context.Context, row, col int) (game.View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player := s.state.CurrentPlayer
	if !s.state.Players.Claimed(player) {
		return s.viewLocked(), false
	}
	if !rules.IsLegal(&s.state.Board, row, col, player) {
		return s.viewLocked(), false
	}

	captured := rules.Play(&s.state.Board, row, col, player)
	s.state.PassCount = 0
	s.state.LastMove = &game.Point{Row: row, Col: col}
	s.state.CurrentPlayer = player.Opponent()

	if len(captured) > 0 {
		s.log.Infof("room %s: %s (%d,%d) captured %d", s.id, player, row, col, len(captured))
	}
	s.commitLocked(ctx)
	return s.viewLocked(), true
}

// Pass hands the turn over. From the second consecutive pass on it returns
// a GameOver with the current score. Nothing is locked out afterwards; the
// finished game is archived only once, when the second pass lands.
func (s *Session) Pass(ctx context.Context) (game.View, *game.GameOver) {
	s.mu.Lock()

	if !s.state.Players.Claimed(s.state.CurrentPlayer) {
		v := s.viewLocked()
		s.mu.Unlock()
		return v, nil
	}

	s.state.PassCount++
	s.state.CurrentPlayer = s.state.CurrentPlayer.Opponent()
	s.commitLocked(ctx)

	v := s.viewLocked()
	if s.state.PassCount < 2 {
		s.mu.Unlock()
		return v, nil
	}

	// в архив партия попадает один раз, на втором пасе подряд
	archive := s.archive != nil && s.state.PassCount == 2
	tally := rules.Tally(&s.state.Board)
	over := &game.GameOver{Score: tally.Score(), Tally: tally}
	finished := game.FinishedGame{
		RoomID:     s.id,
		Board:      s.state.Board.Rows(),
		Tally:      tally,
		Score:      over.Score,
		LastMove:   s.state.Clone().LastMove,
		FinishedAt: s.now().UTC(),
	}
	s.mu.Unlock()

	s.log.Infof("room %s: game over, black %d white %d", s.id, over.Score.Black, over.Score.White)
	if archive {
		if err := s.archive.SaveFinishedGame(ctx, finished); err != nil {
			s.log.Errorf("room %s: %v", s.id, err)
		}
	}
	return v, over
}

func (s *Session) Reset(ctx context.Context) game.View {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = game.NewGameState()
	s.log.Infof("room %s: reset", s.id)
	s.commitLocked(ctx)
	return s.viewLocked()
}

// ApplyRemote overwrites every field with a replicated snapshot. A delivered
// snapshot means the store is reachable again, so the notice is cleared.
// An echo equal to the current state changes nothing and is not rendered.
func (s *Session) ApplyRemote(state game.GameState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Equal(state) && s.notice == "" {
		return
	}
	s.state = state.Clone()
	s.notice = ""
	s.notifyLocked()
}

func (s *Session) Close() error {
	if s.replicator == nil {
		return nil
	}
	return s.replicator.Detach()
}
