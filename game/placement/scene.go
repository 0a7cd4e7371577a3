package placement

import (
	"github.com/wricardo/clara/game/assets"
	"github.com/wricardo/clara/game/engine"
)

// Vec3 is a world-space vector
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Transform positions one placed instance
type Transform struct {
	Position Vec3 `json:"position"`
	Rotation Vec3 `json:"rotation"`
	Scaling  Vec3 `json:"scaling"`
}

// ObjectKind classifies placed objects
type ObjectKind string

const (
	KindGround        ObjectKind = "ground"
	KindBaseIsland    ObjectKind = "base_island"
	KindStructure     ObjectKind = "structure"
	KindAmbient       ObjectKind = "ambient"
	KindCanopy        ObjectKind = "canopy"
	KindWaterfall     ObjectKind = "waterfall"
	KindDistantIsland ObjectKind = "distant_island"
	KindNFO           ObjectKind = "nfo"
	KindPlayer        ObjectKind = "player"
	KindCollectible   ObjectKind = "collectible"
	KindPushable      ObjectKind = "pushable"
	KindLethalEntity  ObjectKind = "lethal_entity"
)

// IsActor reports whether objects of this kind track a movement grid cell
func (k ObjectKind) IsActor() bool {
	switch k {
	case KindPlayer, KindCollectible, KindPushable, KindLethalEntity:
		return true
	}
	return false
}

// ObjectID indexes Scene.Objects
type ObjectID int

// PlacedObject is one record in the scene arena
type PlacedObject struct {
	ID        ObjectID         `json:"id"`
	Kind      ObjectKind       `json:"kind"`
	AssetKey  string           `json:"asset_key"`
	Transform Transform        `json:"transform"`
	Cell      *engine.Position `json:"cell,omitempty"`
	Island    int              `json:"island"`
}

// StructureSite is the top-left cell of a 2x2 structure footprint
type StructureSite struct {
	Origin   engine.Position `json:"origin"`
	AssetKey string          `json:"asset_key"`
}

// DistantIsland describes one set-dressing island outside the board
type DistantIsland struct {
	Index  int  `json:"index"`
	Size   int  `json:"size"`
	Origin Vec3 `json:"origin"`
}

// Config is the per-load placement configuration
type Config struct {
	DetailLevel int          `json:"detail_level" yaml:"detail_level"`
	Theme       assets.Theme `json:"theme" yaml:"theme"`
	Seed        int64        `json:"seed" yaml:"seed"`
}

// DefaultConfig returns high detail on the pastoral theme
func DefaultConfig() Config {
	return Config{DetailLevel: 3, Theme: assets.ThemePastoral, Seed: 1}
}

// Normalize clamps the detail level and fills in the default theme
func (c Config) Normalize() Config {
	c.DetailLevel = assets.ClampDetail(c.DetailLevel)
	if c.Theme == "" {
		c.Theme = assets.ThemePastoral
	}
	return c
}

// Scene is the arena of every object placed for one level load
type Scene struct {
	Config          Config                 `json:"config"`
	Rows            int                    `json:"rows"`
	Columns         int                    `json:"columns"`
	Objects         []PlacedObject         `json:"objects"`
	StructureSites  []StructureSite        `json:"structure_sites"`
	Islands         []DistantIsland        `json:"islands"`
	AmbientAttempts int                    `json:"ambient_attempts"`
	Eligibility     engine.EligibilityGrid `json:"-"`
}

func (s *Scene) add(kind ObjectKind, key string, tr Transform, cell *engine.Position, island int) ObjectID {
	id := ObjectID(len(s.Objects))
	s.Objects = append(s.Objects, PlacedObject{
		ID:        id,
		Kind:      kind,
		AssetKey:  key,
		Transform: tr,
		Cell:      cell,
		Island:    island,
	})
	return id
}

// Object returns the record for id
func (s *Scene) Object(id ObjectID) (PlacedObject, bool) {
	if id < 0 || int(id) >= len(s.Objects) {
		return PlacedObject{}, false
	}
	return s.Objects[id], true
}

// ActorAt returns the actor placed on cell p when the level was loaded
func (s *Scene) ActorAt(p engine.Position) (PlacedObject, bool) {
	for _, o := range s.Objects {
		if o.Kind.IsActor() && o.Cell != nil && *o.Cell == p {
			return o, true
		}
	}
	return PlacedObject{}, false
}

// Count returns how many objects of a kind were placed
func (s *Scene) Count(kind ObjectKind) int {
	n := 0
	for _, o := range s.Objects {
		if o.Kind == kind {
			n++
		}
	}
	return n
}

// Summary counts objects per kind
func (s *Scene) Summary() map[ObjectKind]int {
	out := make(map[ObjectKind]int)
	for _, o := range s.Objects {
		out[o.Kind]++
	}
	return out
}

// CellToWorld maps a board cell to its world position at height y
func CellToWorld(p engine.Position, y float64) Vec3 {
	return Vec3{X: float64(p.R) * engine.WorldTileSpacing, Y: y, Z: float64(p.C) * engine.WorldTileSpacing}
}
