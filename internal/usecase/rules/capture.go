package rules

import "weiqi_room/internal/domain/game"

// RemoveDead clears every stone not of capturingColor whose group has no
// liberties. Candidates are collected against the board as it was before
// any removal, then cleared in one go, so the sweep order never matters.
// It returns the removed points; an empty result means nothing was captured.
func RemoveDead(b *game.Board, capturingColor game.Stone) []game.Point {
	checked := make(map[game.Point]struct{})
	var dead []game.Point

	for r := 0; r < game.BoardSize; r++ {
		for c := 0; c < game.BoardSize; c++ {
			p := game.Point{Row: r, Col: c}
			s := b.At(p)
			if s == game.Empty || s == capturingColor {
				continue
			}
			if _, ok := checked[p]; ok {
				continue
			}

			stones, liberties := walkGroup(b, p)
			for _, st := range stones {
				checked[st] = struct{}{}
			}
			if len(liberties) == 0 {
				dead = append(dead, stones...)
			}
		}
	}

	for _, p := range dead {
		b.Set(p.Row, p.Col, game.Empty)
	}
	return dead
}
