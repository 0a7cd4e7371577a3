package engine

import (
	"encoding/json"
	"fmt"
	"sort"
)

// TileID identifies the semantics of a tile in a level definition
type TileID int

const (
	TileForest      TileID = 1
	TileWater       TileID = 2
	TileSpawn       TileID = 4
	TileLeaf        TileID = 5
	TileMushroom    TileID = 6
	TileGhost       TileID = 7
	TileGhostWall   TileID = 8
	TileGhostHealer TileID = 9
	TileHome        TileID = 10
	TileDot         TileID = 11
	TileEarth       TileID = 12
	TileGold        TileID = 13
	TileBrokenGold  TileID = 14
	TilePheromone   TileID = 15

	// Validation constants
	MaxBoardSize     = 64
	MaxBulkCommands  = 50
	WorldTileSpacing = 2.1
)

// IsReserved reports whether the tile kind exists in level files but has no
// gameplay rules yet.
func (t TileID) IsReserved() bool {
	return t >= TileGhostWall && t <= TilePheromone
}

// Valid reports whether the tile id is one a level may contain.
func (t TileID) Valid() bool {
	switch {
	case t == TileForest, t == TileWater:
		return true
	case t >= TileSpawn && t <= TilePheromone:
		return true
	}
	return false
}

// String returns the tile's name
func (t TileID) String() string {
	switch t {
	case TileForest:
		return "forest"
	case TileWater:
		return "water"
	case TileSpawn:
		return "spawn"
	case TileLeaf:
		return "leaf"
	case TileMushroom:
		return "mushroom"
	case TileGhost:
		return "ghost"
	case TileGhostWall:
		return "ghost_wall"
	case TileGhostHealer:
		return "ghost_healer"
	case TileHome:
		return "home"
	case TileDot:
		return "dot"
	case TileEarth:
		return "earth"
	case TileGold:
		return "gold"
	case TileBrokenGold:
		return "broken_gold"
	case TilePheromone:
		return "pheromone"
	}
	return fmt.Sprintf("tile_%d", int(t))
}

// CellKind is the occupancy class of a movement grid cell
type CellKind uint8

const (
	Empty CellKind = iota
	Obstacle
	Hazard
	Player
	Collectible
	Pushable
	HazardEntity
	Reserved
)

// String returns the kind's name
func (k CellKind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Obstacle:
		return "obstacle"
	case Hazard:
		return "hazard"
	case Player:
		return "player"
	case Collectible:
		return "collectible"
	case Pushable:
		return "pushable"
	case HazardEntity:
		return "hazard_entity"
	case Reserved:
		return "reserved"
	}
	return "unknown"
}

// Cell is one movement grid entry. Tile is only meaningful for Reserved cells.
type Cell struct {
	Kind CellKind
	Tile TileID
}

// Cell values used throughout the engine
var (
	EmptyCell        = Cell{Kind: Empty}
	ObstacleCell     = Cell{Kind: Obstacle}
	HazardCell       = Cell{Kind: Hazard}
	PlayerCell       = Cell{Kind: Player}
	CollectibleCell  = Cell{Kind: Collectible}
	PushableCell     = Cell{Kind: Pushable}
	HazardEntityCell = Cell{Kind: HazardEntity}
)

// ReservedCell returns the cell for a tile kind without gameplay rules
func ReservedCell(t TileID) Cell {
	return Cell{Kind: Reserved, Tile: t}
}

// Code returns the legacy integer code of the cell (0 for empty, otherwise
// the tile id it mirrors).
func (c Cell) Code() int {
	switch c.Kind {
	case Empty:
		return 0
	case Obstacle:
		return int(TileForest)
	case Hazard:
		return int(TileWater)
	case Player:
		return int(TileSpawn)
	case Collectible:
		return int(TileLeaf)
	case Pushable:
		return int(TileMushroom)
	case HazardEntity:
		return int(TileGhost)
	case Reserved:
		return int(c.Tile)
	}
	return -1
}

// CellFromCode converts a legacy integer code back into a cell
func CellFromCode(code int) (Cell, error) {
	switch TileID(code) {
	case 0:
		return EmptyCell, nil
	case TileForest:
		return ObstacleCell, nil
	case TileWater:
		return HazardCell, nil
	case TileSpawn:
		return PlayerCell, nil
	case TileLeaf:
		return CollectibleCell, nil
	case TileMushroom:
		return PushableCell, nil
	case TileGhost:
		return HazardEntityCell, nil
	}
	if TileID(code).IsReserved() {
		return ReservedCell(TileID(code)), nil
	}
	return Cell{}, fmt.Errorf("unknown cell code %d", code)
}

// MarshalJSON encodes the cell as its legacy code
func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Code())
}

// UnmarshalJSON decodes a legacy code
func (c *Cell) UnmarshalJSON(data []byte) error {
	var code int
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}
	cell, err := CellFromCode(code)
	if err != nil {
		return err
	}
	*c = cell
	return nil
}

// Char returns a single character used in textual views
func (c Cell) Char() string {
	switch c.Kind {
	case Empty:
		return "."
	case Obstacle:
		return "F"
	case Hazard:
		return "W"
	case Player:
		return "C"
	case Collectible:
		return "L"
	case Pushable:
		return "M"
	case HazardEntity:
		return "G"
	case Reserved:
		return "?"
	}
	return " "
}

// Grid is a dense rows x columns movement grid indexed [row][col]
type Grid [][]Cell

// NewGrid allocates an empty grid
func NewGrid(rows, columns int) Grid {
	g := make(Grid, rows)
	for r := range g {
		g[r] = make([]Cell, columns)
	}
	return g
}

// Rows returns the number of rows
func (g Grid) Rows() int { return len(g) }

// Columns returns the number of columns
func (g Grid) Columns() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// InBounds reports whether p lies on the grid
func (g Grid) InBounds(p Position) bool {
	return p.R >= 0 && p.R < g.Rows() && p.C >= 0 && p.C < g.Columns()
}

// At returns the cell at p. p must be in bounds.
func (g Grid) At(p Position) Cell {
	return g[p.R][p.C]
}

// Set writes the cell at p. p must be in bounds.
func (g Grid) Set(p Position, c Cell) {
	g[p.R][p.C] = c
}

// Clone returns a deep copy of the grid
func (g Grid) Clone() Grid {
	out := make(Grid, len(g))
	for r := range g {
		out[r] = append([]Cell(nil), g[r]...)
	}
	return out
}

// Count returns the number of cells of the given kind
func (g Grid) Count(kind CellKind) int {
	n := 0
	for _, row := range g {
		for _, cell := range row {
			if cell.Kind == kind {
				n++
			}
		}
	}
	return n
}

// EligibilityGrid marks cells that may still receive decoration
type EligibilityGrid [][]bool

// NewEligibilityGrid allocates an all-ineligible grid
func NewEligibilityGrid(rows, columns int) EligibilityGrid {
	g := make(EligibilityGrid, rows)
	for r := range g {
		g[r] = make([]bool, columns)
	}
	return g
}

// Eligible reports whether p is on the grid and still eligible
func (g EligibilityGrid) Eligible(p Position) bool {
	if p.R < 0 || p.R >= len(g) || p.C < 0 || p.C >= len(g[p.R]) {
		return false
	}
	return g[p.R][p.C]
}

// Clear marks p as consumed
func (g EligibilityGrid) Clear(p Position) {
	g[p.R][p.C] = false
}

// Clone returns a deep copy of the grid
func (g EligibilityGrid) Clone() EligibilityGrid {
	out := make(EligibilityGrid, len(g))
	for r := range g {
		out[r] = append([]bool(nil), g[r]...)
	}
	return out
}

// Direction is the player's facing, encoded 0..3 like the level's d field
type Direction int

const (
	North Direction = iota
	East
	South
	West
)

// Next returns the direction after a right turn (N→E→S→W→N)
func (d Direction) Next() Direction {
	return (d + 1) % 4
}

// Delta returns the row/column step for one move along d
func (d Direction) Delta() (dr, dc int) {
	switch d {
	case North:
		return -1, 0
	case East:
		return 0, 1
	case South:
		return 1, 0
	case West:
		return 0, -1
	}
	return 0, 0
}

// Valid reports whether d is one of the four facings
func (d Direction) Valid() bool {
	return d >= North && d <= West
}

// String returns the direction's name
func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	}
	return "unknown"
}

// Position is a grid coordinate (row, column)
type Position struct {
	R int
	C int
}

// Step returns the position one cell along d
func (p Position) Step(d Direction) Position {
	dr, dc := d.Delta()
	return Position{R: p.R + dr, C: p.C + dc}
}

// String formats the position as "(r,c)"
func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.R, p.C)
}

type positionJSON struct {
	R int `json:"r"`
	C int `json:"c"`
}

// MarshalJSON encodes the position as {"r":..,"c":..}
func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal(positionJSON{R: p.R, C: p.C})
}

// UnmarshalJSON decodes {"r":..,"c":..}
func (p *Position) UnmarshalJSON(data []byte) error {
	var v positionJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	p.R, p.C = v.R, v.C
	return nil
}

// Pushables maps each pushable block's cell to its stable id. JSON
// object keys must be strings, so the map encodes as a list of
// {"r","c","id"} entries ordered by row then column.
type Pushables map[Position]int

type pushableJSON struct {
	R  int `json:"r"`
	C  int `json:"c"`
	ID int `json:"id"`
}

// MarshalJSON encodes the blocks as [{"r":..,"c":..,"id":..}]
func (ps Pushables) MarshalJSON() ([]byte, error) {
	list := make([]pushableJSON, 0, len(ps))
	for p, id := range ps {
		list = append(list, pushableJSON{R: p.R, C: p.C, ID: id})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].R != list[j].R {
			return list[i].R < list[j].R
		}
		return list[i].C < list[j].C
	})
	return json.Marshal(list)
}

// UnmarshalJSON decodes the list form written by MarshalJSON
func (ps *Pushables) UnmarshalJSON(data []byte) error {
	var list []pushableJSON
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("invalid pushables: %w", err)
	}
	out := make(Pushables, len(list))
	for _, e := range list {
		p := Position{R: e.R, C: e.C}
		if _, dup := out[p]; dup {
			return fmt.Errorf("duplicate pushable at %s", p)
		}
		out[p] = e.ID
	}
	*ps = out
	return nil
}

// GameState is the complete mutable state of one loaded level
type GameState struct {
	LevelID          string    `json:"level_id"`
	Grid             Grid      `json:"grid"`
	Player           Position  `json:"player"`
	Facing           Direction `json:"facing"`
	Alive            bool      `json:"alive"`
	Won              bool      `json:"won"`
	Collected        int       `json:"collected"`
	CollectibleTotal int       `json:"collectible_total"`
	Pushables        Pushables `json:"pushables"`
	Message          string    `json:"message"`

	History      []CommandHistoryEntry `json:"history"`
	TotalMoves   int                   `json:"total_commands"`
	CurrentMoves []CommandHistoryEntry `json:"current_commands"`

	// Computed helper views (not required for core game logic)
	LocalView3x3 []string `json:"local_view_3x3,omitempty"`
	Phase        Phase    `json:"phase,omitempty"`
}

// Terminal reports whether the level has ended
func (gs *GameState) Terminal() bool {
	return !gs.Alive || gs.Won
}

// Clone returns a deep copy of the state
func (gs *GameState) Clone() *GameState {
	out := *gs
	out.Grid = gs.Grid.Clone()
	out.Pushables = make(Pushables, len(gs.Pushables))
	for p, id := range gs.Pushables {
		out.Pushables[p] = id
	}
	out.History = append([]CommandHistoryEntry(nil), gs.History...)
	out.CurrentMoves = append([]CommandHistoryEntry(nil), gs.CurrentMoves...)
	out.LocalView3x3 = append([]string(nil), gs.LocalView3x3...)
	return &out
}

// CommandHistoryEntry represents a single command in the game history
type CommandHistoryEntry struct {
	Command       Command   `json:"command"`
	Outcome       Outcome   `json:"outcome"`
	Cause         Cause     `json:"cause,omitempty"`
	FromPosition  Position  `json:"from_position"`
	ToPosition    Position  `json:"to_position"`
	Facing        Direction `json:"facing"`
	Collected     int       `json:"collected"`
	Timestamp     int64     `json:"timestamp"`
	Success       bool      `json:"success"`
	CommandNumber int       `json:"command_number"`
}
