package game

import (
	"testing"

	"github.com/stretchr/testify/require"

	errs "weiqi_room/internal/errors"
)

func TestNewGameState(t *testing.T) {
	s := NewGameState()

	require.Equal(t, Black, s.CurrentPlayer)
	require.Equal(t, Players{}, s.Players)
	require.Nil(t, s.LastMove)
	require.Zero(t, s.PassCount)
	require.Equal(t, PhaseWaiting, s.Phase())
}

func TestGameState_Phase(t *testing.T) {
	s := NewGameState()
	s.Players = Players{Black: true, White: true}
	require.Equal(t, PhaseInProgress, s.Phase())

	s.PassCount = 2
	require.Equal(t, PhaseEnded, s.Phase())
}

func TestGameState_Equal(t *testing.T) {
	a := NewGameState()
	a.LastMove = &Point{Row: 2, Col: 3}
	b := a.Clone()

	require.True(t, a.Equal(b))

	b.LastMove = &Point{Row: 3, Col: 2}
	require.False(t, a.Equal(b))

	b = a.Clone()
	b.LastMove = nil
	require.False(t, a.Equal(b))
	require.False(t, b.Equal(a))

	b = a.Clone()
	b.Board.Set(0, 0, White)
	require.False(t, a.Equal(b))
}

func TestSnapshot_RoundTrip(t *testing.T) {
	// Given: a game in progress
	s := NewGameState()
	s.Board.Set(9, 9, Black)
	s.Board.Set(9, 10, White)
	s.CurrentPlayer = Black
	s.Players = Players{Black: true, White: true}
	s.LastMove = &Point{Row: 9, Col: 10}
	s.PassCount = 1

	// When: it is encoded and decoded
	data, err := EncodeSnapshot(s)
	require.NoError(t, err)
	decoded, err := DecodeSnapshot(data)

	// Then: every field survives
	require.NoError(t, err)
	require.Equal(t, s, decoded)
}

func TestSnapshot_BrowserShape(t *testing.T) {
	// Given: the nested shape a browser peer writes, null seats included
	empty := NewBoard()
	rows := empty.Rows()
	rows[3][3] = White
	b, err := BoardFromRows(rows)
	require.NoError(t, err)
	boardJSON, err := b.MarshalJSON()
	require.NoError(t, err)

	payload := `{"board":` + string(boardJSON) + `,"currentPlayer":"white","players":{"black":true,"white":null},"lastMove":{"row":3,"col":3},"passCount":0}`

	// When: it is decoded
	s, err := DecodeSnapshot([]byte(payload))

	// Then: it maps onto the game state
	require.NoError(t, err)
	require.Equal(t, White, s.Board.Get(3, 3))
	require.Equal(t, White, s.CurrentPlayer)
	require.Equal(t, Players{Black: true}, s.Players)
	require.Equal(t, &Point{Row: 3, Col: 3}, s.LastMove)
}

func TestSnapshot_Malformed(t *testing.T) {
	boardJSON, err := NewBoard().MarshalJSON()
	require.NoError(t, err)
	board := string(boardJSON)

	cases := []struct {
		name    string
		payload string
	}{
		{"not json", `{"board":`},
		{"missing board", `{"currentPlayer":"black","players":{"black":true,"white":true},"passCount":0}`},
		{"null board", `{"board":null,"currentPlayer":"black"}`},
		{"short board", `{"board":[[null]],"currentPlayer":"black"}`},
		{"unknown color", `{"board":` + board + `,"currentPlayer":"red"}`},
		{"last move off board", `{"board":` + board + `,"currentPlayer":"black","lastMove":{"row":19,"col":0}}`},
		{"negative passes", `{"board":` + board + `,"currentPlayer":"black","passCount":-1}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeSnapshot([]byte(tc.payload))
			require.ErrorIs(t, err, errs.ErrMalformedSnapshot)
		})
	}
}

func TestTally_Score(t *testing.T) {
	tally := Tally{BlackStones: 10, WhiteStones: 8, BlackTerritory: 20, WhiteTerritory: 5, Neutral: 318}
	require.Equal(t, Score{Black: 30, White: 13}, tally.Score())
}
