package engine

// BuildGrids converts a level into its movement grid and decoration
// eligibility grid in one row-major pass. The level must have passed
// ValidateLevel.
func BuildGrids(level *Level) (Grid, EligibilityGrid, error) {
	if err := ValidateLevel(level); err != nil {
		return nil, nil, err
	}

	byCell := make(map[Position]Tile, len(level.Tiles))
	for _, t := range level.Tiles {
		byCell[t.Position()] = t
	}

	grid := NewGrid(level.Rows, level.Columns)
	elig := NewEligibilityGrid(level.Rows, level.Columns)

	for r := 0; r < level.Rows; r++ {
		for c := 0; c < level.Columns; c++ {
			t, ok := byCell[Position{R: r, C: c}]
			if !ok {
				grid[r][c] = EmptyCell
				elig[r][c] = true
				continue
			}
			cell, err := CellFromCode(int(t.TID))
			if err != nil {
				return nil, nil, err
			}
			grid[r][c] = cell
			// Forest stays eligible so its footprint can later host a structure
			elig[r][c] = t.TID == TileForest
		}
	}
	return grid, elig, nil
}

// NewGameState builds the initial state for a level
func NewGameState(level *Level) (*GameState, EligibilityGrid, error) {
	grid, elig, err := BuildGrids(level)
	if err != nil {
		return nil, nil, err
	}
	spawn, _ := level.Spawn()

	pushables := make(Pushables)
	nextID := 1
	for r := range grid {
		for c := range grid[r] {
			if grid[r][c].Kind == Pushable {
				pushables[Position{R: r, C: c}] = nextID
				nextID++
			}
		}
	}

	state := &GameState{
		LevelID:          level.ID,
		Grid:             grid,
		Player:           spawn.Position(),
		Facing:           spawn.D,
		Alive:            true,
		CollectibleTotal: grid.Count(Collectible),
		Pushables:        pushables,
		Message:          "Collect every leaf. Avoid water, forest and ghosts.",
		History:          []CommandHistoryEntry{},
		CurrentMoves:     []CommandHistoryEntry{},
	}
	return state, elig, nil
}

// IsBoundaryCell reports whether p lies on the outer ring of the grid
func IsBoundaryCell(rows, columns int, p Position) bool {
	return p.R == 0 || p.C == 0 || p.R == rows-1 || p.C == columns-1
}
