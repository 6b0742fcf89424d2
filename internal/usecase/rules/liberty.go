// Package rules holds the Go rules engine: group and liberty analysis,
// move legality, capture and area scoring. All functions are pure over a
// game.Board except RemoveDead, which clears captured stones in place.
package rules

import "weiqi_room/internal/domain/game"

// Group returns every stone connected to (row, col) with the same color.
// An empty point has no group.
func Group(b *game.Board, row, col int) []game.Point {
	stones, _ := walkGroup(b, game.Point{Row: row, Col: col})
	return stones
}

// LibertyCount counts the distinct empty points adjacent to the group at
// (row, col). An empty point yields 0.
func LibertyCount(b *game.Board, row, col int) int {
	_, liberties := walkGroup(b, game.Point{Row: row, Col: col})
	return len(liberties)
}

func HasLiberty(b *game.Board, row, col int) bool {
	return LibertyCount(b, row, col) > 0
}

// walkGroup обходит группу через явный стек, без рекурсии.
func walkGroup(b *game.Board, start game.Point) ([]game.Point, map[game.Point]struct{}) {
	color := b.At(start)
	if color == game.Empty {
		return nil, nil
	}

	visited := map[game.Point]struct{}{start: {}}
	liberties := make(map[game.Point]struct{})
	stones := make([]game.Point, 0, 8)
	stack := []game.Point{start}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stones = append(stones, p)

		for _, n := range game.Neighbors(p) {
			switch b.At(n) {
			case game.Empty:
				liberties[n] = struct{}{}
			case color:
				if _, seen := visited[n]; !seen {
					visited[n] = struct{}{}
					stack = append(stack, n)
				}
			}
		}
	}
	return stones, liberties
}
