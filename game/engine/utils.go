package engine

import "strings"

// GenerateLocalView renders the 3x3 neighbourhood of the player, north row
// first. Out-of-bounds cells are drawn as '#'.
func (gs *GameState) GenerateLocalView() []string {
	rows := make([]string, 0, 3)
	for dr := -1; dr <= 1; dr++ {
		var b strings.Builder
		for dc := -1; dc <= 1; dc++ {
			p := Position{R: gs.Player.R + dr, C: gs.Player.C + dc}
			if !gs.Grid.InBounds(p) {
				b.WriteString("#")
				continue
			}
			b.WriteString(gs.Grid.At(p).Char())
		}
		rows = append(rows, b.String())
	}
	return rows
}

// Ahead returns the position in front of the player and its cell. ok is false
// when that position is off the board.
func (gs *GameState) Ahead() (Position, Cell, bool) {
	p := gs.Player.Step(gs.Facing)
	if !gs.Grid.InBounds(p) {
		return p, Cell{}, false
	}
	return p, gs.Grid.At(p), true
}

// RemainingCollectibles returns how many leaves are still on the board
func (gs *GameState) RemainingCollectibles() int {
	return gs.CollectibleTotal - gs.Collected
}

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	dr := from.R - to.R
	if dr < 0 {
		dr = -dr
	}
	dc := from.C - to.C
	if dc < 0 {
		dc = -dc
	}
	return dr + dc
}

// FindNearestCollectible finds the closest remaining leaf
func FindNearestCollectible(gs *GameState) (Position, int, bool) {
	best := -1
	var nearest Position
	for r, row := range gs.Grid {
		for c, cell := range row {
			if cell.Kind != Collectible {
				continue
			}
			p := Position{R: r, C: c}
			if d := ManhattanDistance(gs.Player, p); best == -1 || d < best {
				best, nearest = d, p
			}
		}
	}
	return nearest, best, best != -1
}

// RenderGrid draws the grid one string per row
func RenderGrid(g Grid) []string {
	out := make([]string, len(g))
	for r, row := range g {
		var b strings.Builder
		for _, cell := range row {
			b.WriteString(cell.Char())
		}
		out[r] = b.String()
	}
	return out
}
