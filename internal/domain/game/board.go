package game

import (
	"encoding/json"
	"fmt"
)

// BoardSize: сторона доски, не меняется после создания.
const BoardSize = 19

type Stone int8

const (
	Empty Stone = iota
	Black
	White
)

func (s Stone) Opponent() Stone {
	switch s {
	case Black:
		return White
	case White:
		return Black
	default:
		return Empty
	}
}

func (s Stone) String() string {
	switch s {
	case Black:
		return "black"
	case White:
		return "white"
	default:
		return "empty"
	}
}

// ParseColor accepts only "black" and "white".
func ParseColor(s string) (Stone, bool) {
	switch s {
	case "black":
		return Black, true
	case "white":
		return White, true
	default:
		return Empty, false
	}
}

// MarshalJSON encodes an empty cell as null, the way browsers store it.
func (s Stone) MarshalJSON() ([]byte, error) {
	if s == Empty {
		return []byte("null"), nil
	}
	return json.Marshal(s.String())
}

func (s *Stone) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Empty
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("stone: %w", err)
	}
	if name == "" {
		*s = Empty
		return nil
	}
	color, ok := ParseColor(name)
	if !ok {
		return fmt.Errorf("stone: unknown color %q", name)
	}
	*s = color
	return nil
}

type Point struct {
	Row int `json:"row" bson:"row"`
	Col int `json:"col" bson:"col"`
}

// Board хранит сетку 19x19 по значению и копируется присваиванием.
type Board struct {
	cells [BoardSize][BoardSize]Stone
}

func NewBoard() Board {
	return Board{}
}

func InBounds(row, col int) bool {
	return row >= 0 && row < BoardSize && col >= 0 && col < BoardSize
}

func mustInBounds(row, col int) {
	if !InBounds(row, col) {
		panic(fmt.Sprintf("board: point (%d,%d) out of range [0,%d)", row, col, BoardSize))
	}
}

func (b *Board) Get(row, col int) Stone {
	mustInBounds(row, col)
	return b.cells[row][col]
}

func (b *Board) Set(row, col int, s Stone) {
	mustInBounds(row, col)
	b.cells[row][col] = s
}

func (b *Board) At(p Point) Stone {
	return b.Get(p.Row, p.Col)
}

func (b *Board) Reset() {
	b.cells = [BoardSize][BoardSize]Stone{}
}

func (b *Board) Clone() Board {
	return *b
}

var directions = [4]Point{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// Neighbors returns the orthogonal neighbours of p that lie on the board.
func Neighbors(p Point) []Point {
	res := make([]Point, 0, 4)
	for _, d := range directions {
		n := Point{Row: p.Row + d.Row, Col: p.Col + d.Col}
		if InBounds(n.Row, n.Col) {
			res = append(res, n)
		}
	}
	return res
}

// Rows returns the board as nested slices, row-major.
func (b *Board) Rows() [][]Stone {
	rows := make([][]Stone, BoardSize)
	for r := range rows {
		rows[r] = make([]Stone, BoardSize)
		copy(rows[r], b.cells[r][:])
	}
	return rows
}

func BoardFromRows(rows [][]Stone) (Board, error) {
	var b Board
	if len(rows) != BoardSize {
		return b, fmt.Errorf("board: expected %d rows, got %d", BoardSize, len(rows))
	}
	for r, row := range rows {
		if len(row) != BoardSize {
			return b, fmt.Errorf("board: row %d has %d cells, expected %d", r, len(row), BoardSize)
		}
		copy(b.cells[r][:], row)
	}
	return b, nil
}

func (b Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Rows())
}

func (b *Board) UnmarshalJSON(data []byte) error {
	var rows [][]Stone
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("board: %w", err)
	}
	parsed, err := BoardFromRows(rows)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

func (b *Board) Count(s Stone) int {
	n := 0
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if b.cells[r][c] == s {
				n++
			}
		}
	}
	return n
}
