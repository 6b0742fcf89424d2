package game

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	errs "weiqi_room/internal/errors"
)

type Players struct {
	Black bool `json:"black" bson:"black"`
	White bool `json:"white" bson:"white"`
}

func (p Players) Claimed(color Stone) bool {
	switch color {
	case Black:
		return p.Black
	case White:
		return p.White
	default:
		return false
	}
}

func (p Players) Full() bool {
	return p.Black && p.White
}

// GameState: реплицируемый снимок партии.
type GameState struct {
	Board         Board   `json:"board"`
	CurrentPlayer Stone   `json:"currentPlayer"`
	Players       Players `json:"players"`
	LastMove      *Point  `json:"lastMove"`
	PassCount     int     `json:"passCount"`
}

func NewGameState() GameState {
	return GameState{
		Board:         NewBoard(),
		CurrentPlayer: Black,
	}
}

// Clone returns a deep copy; LastMove is not shared.
func (s GameState) Clone() GameState {
	c := s
	if s.LastMove != nil {
		lm := *s.LastMove
		c.LastMove = &lm
	}
	return c
}

// Equal compares field by field, LastMove by value.
func (s GameState) Equal(o GameState) bool {
	if s.Board != o.Board || s.CurrentPlayer != o.CurrentPlayer || s.Players != o.Players || s.PassCount != o.PassCount {
		return false
	}
	if s.LastMove == nil || o.LastMove == nil {
		return s.LastMove == o.LastMove
	}
	return *s.LastMove == *o.LastMove
}

func (s GameState) Phase() Phase {
	switch {
	case !s.Players.Full():
		return PhaseWaiting
	case s.PassCount >= 2:
		return PhaseEnded
	default:
		return PhaseInProgress
	}
}

type Phase string

const (
	PhaseWaiting    Phase = "waiting-for-players"
	PhaseInProgress Phase = "in-progress"
	PhaseEnded      Phase = "ended"
)

type snapshotWire struct {
	Board         json.RawMessage `json:"board"`
	CurrentPlayer string          `json:"currentPlayer"`
	Players       Players         `json:"players"`
	LastMove      *Point          `json:"lastMove"`
	PassCount     int             `json:"passCount"`
}

// DecodeSnapshot parses a replicated snapshot. Anything that would leave a partially applied state is rejected with
// ErrMalformedSnapshot.
func DecodeSnapshot(data []byte) (GameState, error) {
	var wire snapshotWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return GameState{}, fmt.Errorf("%w: %v", errs.ErrMalformedSnapshot, err)
	}
	if len(wire.Board) == 0 || bytes.Equal(wire.Board, []byte("null")) {
		return GameState{}, fmt.Errorf("%w: missing board", errs.ErrMalformedSnapshot)
	}

	var state GameState
	if err := json.Unmarshal(wire.Board, &state.Board); err != nil {
		return GameState{}, fmt.Errorf("%w: %v", errs.ErrMalformedSnapshot, err)
	}
	color, ok := ParseColor(wire.CurrentPlayer)
	if !ok {
		return GameState{}, fmt.Errorf("%w: current player %q", errs.ErrMalformedSnapshot, wire.CurrentPlayer)
	}
	if wire.LastMove != nil && !InBounds(wire.LastMove.Row, wire.LastMove.Col) {
		return GameState{}, fmt.Errorf("%w: last move out of range", errs.ErrMalformedSnapshot)
	}
	if wire.PassCount < 0 {
		return GameState{}, fmt.Errorf("%w: negative pass count", errs.ErrMalformedSnapshot)
	}

	state.CurrentPlayer = color
	state.Players = wire.Players
	state.LastMove = wire.LastMove
	state.PassCount = wire.PassCount
	return state, nil
}

func EncodeSnapshot(s GameState) ([]byte, error) {
	return json.Marshal(s)
}

type Score struct {
	Black int `json:"black"`
	White int `json:"white"`
}

// Tally splits the board into stones, territory and neutral points.
type Tally struct {
	BlackStones    int `json:"black_stones" bson:"black_stones"`
	WhiteStones    int `json:"white_stones" bson:"white_stones"`
	BlackTerritory int `json:"black_territory" bson:"black_territory"`
	WhiteTerritory int `json:"white_territory" bson:"white_territory"`
	Neutral        int `json:"neutral" bson:"neutral"`
}

func (t Tally) Score() Score {
	return Score{
		Black: t.BlackStones + t.BlackTerritory,
		White: t.WhiteStones + t.WhiteTerritory,
	}
}

// View содержит всё, что нужно отрисовке после каждого изменения.
type View struct {
	RoomID        string  `json:"room_id"`
	Board         Board   `json:"board"`
	CurrentPlayer Stone   `json:"currentPlayer"`
	Players       Players `json:"players"`
	LastMove      *Point  `json:"lastMove"`
	PassCount     int     `json:"passCount"`
	Phase         Phase   `json:"phase"`
	Score         Score   `json:"score"`
	Notice        string  `json:"notice,omitempty"`
}

type GameOver struct {
	Score Score `json:"score"`
	Tally Tally `json:"tally"`
}

// FinishedGame is an archived game: the final snapshot plus its tally.
type FinishedGame struct {
	RoomID     string    `json:"room_id" bson:"room_id"`
	Board      [][]Stone `json:"board" bson:"board"`
	Tally      Tally     `json:"tally" bson:"tally"`
	Score      Score     `json:"score" bson:"score"`
	LastMove   *Point    `json:"last_move,omitempty" bson:"last_move,omitempty"`
	FinishedAt time.Time `json:"finished_at" bson:"finished_at"`
}

type RoomCreateResponse struct {
	RoomID string `json:"room_id"`
}

type MoveRequest struct {
	Row *int `json:"row"`
	Col *int `json:"col"`
}

type ClaimResponse struct {
	Color Stone `json:"color"`
	View  View  `json:"view"`
}

type PassResponse struct {
	View     View      `json:"view"`
	GameOver *GameOver `json:"game_over,omitempty"`
}

type MoveResponse struct {
	Accepted bool `json:"accepted"`
	View     View `json:"view"`
}
