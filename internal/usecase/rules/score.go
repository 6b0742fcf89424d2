package rules

import "weiqi_room/internal/domain/game"

// Tally counts stones and flood-fills every maximal empty region. A region
// counts as territory only when all of its bordering stones share one
// color; regions touching both colors, or none, are neutral.
func Tally(b *game.Board) game.Tally {
	var t game.Tally
	var visited [game.BoardSize][game.BoardSize]bool

	for r := 0; r < game.BoardSize; r++ {
		for c := 0; c < game.BoardSize; c++ {
			switch b.Get(r, c) {
			case game.Black:
				t.BlackStones++
				continue
			case game.White:
				t.WhiteStones++
				continue
			}
			if visited[r][c] {
				continue
			}

			size, owner := fillRegion(b, game.Point{Row: r, Col: c}, &visited)
			switch owner {
			case game.Black:
				t.BlackTerritory += size
			case game.White:
				t.WhiteTerritory += size
			default:
				t.Neutral += size
			}
		}
	}
	return t
}

func Score(b *game.Board) game.Score {
	return Tally(b).Score()
}

// fillRegion returns the region size and its owner, or game.Empty when the
// region is neutral.
func fillRegion(b *game.Board, start game.Point, visited *[game.BoardSize][game.BoardSize]bool) (int, game.Stone) {
	queue := []game.Point{start}
	visited[start.Row][start.Col] = true
	size := 0
	sawBlack, sawWhite := false, false

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		size++

		for _, n := range game.Neighbors(p) {
			switch b.At(n) {
			case game.Black:
				sawBlack = true
			case game.White:
				sawWhite = true
			default:
				if !visited[n.Row][n.Col] {
					visited[n.Row][n.Col] = true
					queue = append(queue, n)
				}
			}
		}
	}

	switch {
	case sawBlack && !sawWhite:
		return size, game.Black
	case sawWhite && !sawBlack:
		return size, game.White
	default:
		return size, game.Empty
	}
}
