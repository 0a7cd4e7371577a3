package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrInvalidLevel is returned when a level definition breaks a structural rule
	ErrInvalidLevel = errors.New("invalid level")
	// ErrMissingSpawn is returned when a level has no spawn tile
	ErrMissingSpawn = errors.New("level has no spawn tile")
)

// Tile is one sparse placement in a level definition
type Tile struct {
	R   int       `json:"r"`
	C   int       `json:"c"`
	D   Direction `json:"d"`
	TID TileID    `json:"tid"`
}

// Position returns the tile's grid coordinate
func (t Tile) Position() Position {
	return Position{R: t.R, C: t.C}
}

// Level is the immutable definition of one board
type Level struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
	Tiles   []Tile `json:"tiles"`
}

// TileAt returns the tile placed at p, if any
func (l *Level) TileAt(p Position) (Tile, bool) {
	for _, t := range l.Tiles {
		if t.R == p.R && t.C == p.C {
			return t, true
		}
	}
	return Tile{}, false
}

// Spawn returns the spawn tile
func (l *Level) Spawn() (Tile, bool) {
	for _, t := range l.Tiles {
		if t.TID == TileSpawn {
			return t, true
		}
	}
	return Tile{}, false
}

// CountTiles returns how many tiles carry the given id
func (l *Level) CountTiles(tid TileID) int {
	n := 0
	for _, t := range l.Tiles {
		if t.TID == tid {
			n++
		}
	}
	return n
}

// ValidateLevel checks a level definition for structural correctness
func ValidateLevel(level *Level) error {
	if level == nil {
		return fmt.Errorf("%w: level is nil", ErrInvalidLevel)
	}
	if level.Rows < 1 || level.Rows > MaxBoardSize {
		return fmt.Errorf("%w: rows must be between 1 and %d, got %d", ErrInvalidLevel, MaxBoardSize, level.Rows)
	}
	if level.Columns < 1 || level.Columns > MaxBoardSize {
		return fmt.Errorf("%w: columns must be between 1 and %d, got %d", ErrInvalidLevel, MaxBoardSize, level.Columns)
	}

	seen := make(map[Position]bool, len(level.Tiles))
	spawns := 0
	for i, t := range level.Tiles {
		p := t.Position()
		if p.R < 0 || p.R >= level.Rows || p.C < 0 || p.C >= level.Columns {
			return fmt.Errorf("%w: tile %d at %s is out of bounds", ErrInvalidLevel, i, p)
		}
		if !t.D.Valid() {
			return fmt.Errorf("%w: tile %d at %s has direction %d", ErrInvalidLevel, i, p, int(t.D))
		}
		if !t.TID.Valid() {
			return fmt.Errorf("%w: tile %d at %s has unknown tid %d", ErrInvalidLevel, i, p, int(t.TID))
		}
		if seen[p] {
			return fmt.Errorf("%w: more than one tile at %s", ErrInvalidLevel, p)
		}
		seen[p] = true
		if t.TID == TileSpawn {
			spawns++
		}
	}

	if spawns == 0 {
		return ErrMissingSpawn
	}
	if spawns > 1 {
		return fmt.Errorf("%w: %d spawn tiles, expected exactly one", ErrInvalidLevel, spawns)
	}
	return nil
}

// ParseLevel decodes and validates a level from its JSON wire form
func ParseLevel(data []byte) (*Level, error) {
	var level Level
	if err := json.Unmarshal(data, &level); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}
	if err := ValidateLevel(&level); err != nil {
		return nil, err
	}
	return &level, nil
}

// LoadLevelFile reads, decodes and validates a level file
func LoadLevelFile(path string) (*Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read level file '%s': %w", path, err)
	}
	level, err := ParseLevel(data)
	if err != nil {
		return nil, fmt.Errorf("level file '%s': %w", path, err)
	}
	return level, nil
}
