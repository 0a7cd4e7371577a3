package placement

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/wricardo/clara/game/assets"
	"github.com/wricardo/clara/game/engine"
	"github.com/wricardo/clara/pkg/logger"
)

const (
	groundY  = 0.0
	ambientY = 1.0
	canopyY  = 1.6
	actorY   = 1.0

	// structureBorder keeps footprints this many cells away from the edge
	structureBorder = 2
)

var unitScale = Vec3{X: 1, Y: 1, Z: 1}

// decorationChance is the probability that an eligible cell gets ambient
// scenery, indexed by detail level - 1.
var decorationChance = [3]float64{0.0, 0.5, 1.0}

// distantIslandCount is indexed by detail level - 1
var distantIslandCount = [3]int{0, 5, 10}

// Planner turns built grids into a Scene. Every asset it picks must already be
// in the atlas.
type Planner struct {
	catalog assets.Catalog
	atlas   *assets.Atlas
}

// NewPlanner creates a planner over a preloaded atlas
func NewPlanner(catalog assets.Catalog, atlas *assets.Atlas) *Planner {
	if catalog == nil {
		catalog = assets.DefaultCatalog()
	}
	return &Planner{catalog: catalog, atlas: atlas}
}

type planRun struct {
	*Planner
	cfg    Config
	rng    *rand.Rand
	scene  *Scene
	facing engine.Direction
}

// Plan decorates the board of a freshly built state. The movement grid is only
// read; the eligibility grid is copied and the copy records consumed structure
// cells. The same inputs and seed always produce the same scene.
func (p *Planner) Plan(state *engine.GameState, elig engine.EligibilityGrid, cfg Config) (*Scene, error) {
	cfg = cfg.Normalize()
	grid := state.Grid
	if _, ok := p.catalog[cfg.Theme]; !ok {
		return nil, fmt.Errorf("unknown theme %q", cfg.Theme)
	}

	run := &planRun{
		Planner: p,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		facing:  state.Facing,
		scene: &Scene{
			Config:         cfg,
			Rows:           grid.Rows(),
			Columns:        grid.Columns(),
			Objects:        []PlacedObject{},
			StructureSites: []StructureSite{},
			Islands:        []DistantIsland{},
			Eligibility:    elig.Clone(),
		},
	}

	steps := []func(engine.Grid) error{
		run.placeGround,
		run.placeBaseIsland,
		run.placeStructures,
		run.placeScenery,
		run.placeWaterfalls,
		run.placeActors,
		run.placeDistantIslands,
	}
	for _, step := range steps {
		if err := step(grid); err != nil {
			return nil, err
		}
	}

	logger.Log.WithField("objects", len(run.scene.Objects)).
		WithField("structures", len(run.scene.StructureSites)).
		WithField("islands", len(run.scene.Islands)).
		Debug("Scene planned")
	return run.scene, nil
}

// pick returns a random variant of a category usable at the configured detail
func (r *planRun) pick(cat assets.Category) (string, error) {
	f, err := r.catalog.Family(r.cfg.Theme, cat)
	if err != nil {
		return "", err
	}
	return r.resolve(f.Key(r.rng.Intn(f.Tier(r.cfg.DetailLevel)) + 1))
}

// variant returns a fixed variant of a category
func (r *planRun) variant(cat assets.Category, n int) (string, error) {
	f, err := r.catalog.Family(r.cfg.Theme, cat)
	if err != nil {
		return "", err
	}
	return r.resolve(f.Key(n))
}

func (r *planRun) resolve(key string) (string, error) {
	if _, err := r.atlas.Get(key); err != nil {
		return "", err
	}
	return key, nil
}

func (r *planRun) placeGround(grid engine.Grid) error {
	for row := 0; row < grid.Rows(); row++ {
		for col := 0; col < grid.Columns(); col++ {
			p := engine.Position{R: row, C: col}
			var key string
			var err error
			switch grid.At(p).Kind {
			case engine.Obstacle:
				key, err = r.variant(assets.CategoryGround, 1)
			case engine.Hazard:
				key, err = r.variant(assets.CategoryWaterTop, 1)
			default:
				key, err = r.variant(assets.CategoryGround, 2)
			}
			if err != nil {
				return err
			}
			r.scene.add(KindGround, key, Transform{Position: CellToWorld(p, groundY), Scaling: unitScale}, nil, -1)
		}
	}
	return nil
}

func (r *planRun) placeBaseIsland(grid engine.Grid) error {
	key, err := r.variant(assets.CategoryIsland, 1)
	if err != nil {
		return err
	}
	rows, cols := float64(grid.Rows()), float64(grid.Columns())
	r.scene.add(KindBaseIsland, key, Transform{
		Position: Vec3{
			X: (rows*engine.WorldTileSpacing - engine.WorldTileSpacing) / 2,
			Y: 1.5,
			Z: (cols*engine.WorldTileSpacing - engine.WorldTileSpacing) / 2,
		},
		Scaling: Vec3{X: rows / 4.5, Y: 1.8, Z: cols / 4.5},
	}, nil, -1)
	return nil
}

// FindStructureSites scans interior origins for 2x2 forest blocks whose 3x3
// neighbourhood is still eligible and consumes each match in elig.
func FindStructureSites(grid engine.Grid, elig engine.EligibilityGrid) []engine.Position {
	var sites []engine.Position
	rows, cols := grid.Rows(), grid.Columns()
	for row := structureBorder; row <= rows-structureBorder-2; row++ {
		for col := structureBorder; col <= cols-structureBorder-2; col++ {
			origin := engine.Position{R: row, C: col}
			if !structureFits(grid, elig, origin) {
				continue
			}
			for _, p := range footprint(origin) {
				elig.Clear(p)
			}
			sites = append(sites, origin)
		}
	}
	return sites
}

func footprint(origin engine.Position) [4]engine.Position {
	return [4]engine.Position{
		origin,
		{R: origin.R, C: origin.C + 1},
		{R: origin.R + 1, C: origin.C},
		{R: origin.R + 1, C: origin.C + 1},
	}
}

func structureFits(grid engine.Grid, elig engine.EligibilityGrid, origin engine.Position) bool {
	for _, p := range footprint(origin) {
		if grid.At(p).Kind != engine.Obstacle || !elig.Eligible(p) {
			return false
		}
	}
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if !elig.Eligible(engine.Position{R: origin.R + dr, C: origin.C + dc}) {
				return false
			}
		}
	}
	return true
}

func (r *planRun) placeStructures(grid engine.Grid) error {
	for _, origin := range FindStructureSites(grid, r.scene.Eligibility) {
		key, err := r.pick(assets.CategoryTower)
		if err != nil {
			return err
		}
		center := CellToWorld(origin, groundY)
		center.X += engine.WorldTileSpacing / 2
		center.Z += engine.WorldTileSpacing / 2
		r.scene.add(KindStructure, key, Transform{Position: center, Scaling: unitScale}, nil, -1)
		r.scene.StructureSites = append(r.scene.StructureSites, StructureSite{Origin: origin, AssetKey: key})
	}
	return nil
}

// decorateCell makes the single ambient attempt for one cell at world
// position at. Board cells and distant island cells share it.
func (r *planRun) decorateCell(at Vec3, kind ObjectKind, cell *engine.Position, island int) error {
	r.scene.AmbientAttempts++
	if r.rng.Float64() >= decorationChance[r.cfg.DetailLevel-1] {
		return nil
	}
	cat := assets.AmbientCategories[r.rng.Intn(len(assets.AmbientCategories))]
	key, err := r.pick(cat)
	if err != nil {
		return err
	}
	at.Y = ambientY
	r.scene.add(kind, key, Transform{
		Position: at,
		Rotation: Vec3{Y: r.rng.Float64() * math.Pi},
		Scaling:  unitScale,
	}, cell, island)
	return nil
}

// placeScenery makes one ambient attempt per remaining open or forest cell
// and gives every remaining forest cell its tree.
func (r *planRun) placeScenery(grid engine.Grid) error {
	for row := 0; row < grid.Rows(); row++ {
		for col := 0; col < grid.Columns(); col++ {
			p := engine.Position{R: row, C: col}
			if !r.scene.Eligibility.Eligible(p) {
				continue
			}
			if err := r.decorateCell(CellToWorld(p, groundY), KindAmbient, nil, -1); err != nil {
				return err
			}
			if grid.At(p).Kind != engine.Obstacle {
				continue
			}
			key, err := r.pick(assets.CategoryTree)
			if err != nil {
				return err
			}
			cell := p
			r.scene.add(KindCanopy, key, Transform{
				Position: CellToWorld(p, canopyY),
				Rotation: Vec3{Y: r.rng.Float64() * math.Pi},
				Scaling:  unitScale,
			}, &cell, -1)
		}
	}
	return nil
}

func (r *planRun) placeWaterfalls(grid engine.Grid) error {
	rows, cols := grid.Rows(), grid.Columns()
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			p := engine.Position{R: row, C: col}
			if grid.At(p).Kind != engine.Hazard || !engine.IsBoundaryCell(rows, cols, p) {
				continue
			}
			var dx, dz float64
			if row == 0 {
				dx = -1
			} else if row == rows-1 {
				dx = 1
			}
			if col == 0 {
				dz = -1
			} else if col == cols-1 {
				dz = 1
			}
			key, err := r.pick(assets.CategoryWaterfall)
			if err != nil {
				return err
			}
			pos := CellToWorld(p, groundY)
			pos.X += dx * engine.WorldTileSpacing / 2
			pos.Z += dz * engine.WorldTileSpacing / 2
			cell := p
			r.scene.add(KindWaterfall, key, Transform{
				Position: pos,
				Rotation: Vec3{Y: math.Atan2(dx, dz)},
				Scaling:  unitScale,
			}, &cell, -1)
		}
	}
	return nil
}

func (r *planRun) placeActors(grid engine.Grid) error {
	for row := 0; row < grid.Rows(); row++ {
		for col := 0; col < grid.Columns(); col++ {
			p := engine.Position{R: row, C: col}
			var kind ObjectKind
			var cat assets.Category
			switch grid.At(p).Kind {
			case engine.Player:
				kind, cat = KindPlayer, assets.CategoryClara
			case engine.Collectible:
				kind, cat = KindCollectible, assets.CategoryLeaf
			case engine.Pushable:
				kind, cat = KindPushable, assets.CategoryMushroom
			case engine.HazardEntity:
				kind, cat = KindLethalEntity, assets.CategoryGhost
			default:
				continue
			}
			key, err := r.pick(cat)
			if err != nil {
				return err
			}
			rot := Vec3{Y: r.rng.Float64() * math.Pi}
			if kind == KindPlayer {
				rot = PlayerRotation(r.facing)
			}
			cell := p
			r.scene.add(kind, key, Transform{
				Position: CellToWorld(p, actorY),
				Rotation: rot,
				Scaling:  unitScale,
			}, &cell, -1)
		}
	}
	return nil
}

// PlayerRotation maps a facing to the player's yaw
func PlayerRotation(d engine.Direction) Vec3 {
	return Vec3{Y: float64(d) * math.Pi / 2}
}
