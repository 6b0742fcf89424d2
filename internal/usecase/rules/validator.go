package rules

import "weiqi_room/internal/domain/game"

// IsLegal reports whether player may place a stone at (row, col).
// The check runs on a copy of the board, so the caller's board is never
// touched. Capturing moves are always legal; otherwise the placed stone's
// group needs a liberty. There is no ko rule.
func IsLegal(b *game.Board, row, col int, player game.Stone) bool {
	if player != game.Black && player != game.White {
		return false
	}
	if !game.InBounds(row, col) || b.Get(row, col) != game.Empty {
		return false
	}

	sim := b.Clone()
	sim.Set(row, col, player)

	if captured := RemoveDead(&sim, player); len(captured) > 0 {
		return true
	}
	return HasLiberty(&sim, row, col)
}

// Play places player's stone and removes the captured opponent stones.
// The caller must have checked IsLegal first.
func Play(b *game.Board, row, col int, player game.Stone) []game.Point {
	b.Set(row, col, player)
	return RemoveDead(b, player)
}
