package placement

import (
	"math"

	"github.com/wricardo/clara/game/assets"
	"github.com/wricardo/clara/game/engine"
)

const (
	minIslandSize = 2
	maxIslandSize = 6
	islandMargin  = 4.0
	islandSpread  = 12.0
)

// placeDistantIslands adds set-dressing islands around the board. Their
// cells use the board's per-cell decoration rule but never reach the
// movement grid.
func (r *planRun) placeDistantIslands(grid engine.Grid) error {
	count := distantIslandCount[r.cfg.DetailLevel-1]
	if count == 0 {
		return nil
	}

	rows, cols := float64(grid.Rows()), float64(grid.Columns())
	boardW := rows * engine.WorldTileSpacing
	boardD := cols * engine.WorldTileSpacing
	center := Vec3{X: (boardW - engine.WorldTileSpacing) / 2, Z: (boardD - engine.WorldTileSpacing) / 2}
	halfDiag := math.Hypot(boardW, boardD) / 2

	for i := 0; i < count; i++ {
		size := minIslandSize + r.rng.Intn(maxIslandSize-minIslandSize+1)
		span := float64(size) * engine.WorldTileSpacing

		// Far enough that the island's own diagonal cannot reach the board
		radius := halfDiag + span*math.Sqrt2 + islandMargin + r.rng.Float64()*islandSpread
		angle := r.rng.Float64() * 2 * math.Pi
		origin := Vec3{
			X: center.X + math.Cos(angle)*radius - span/2,
			Y: groundY - 1 - r.rng.Float64()*3,
			Z: center.Z + math.Sin(angle)*radius - span/2,
		}

		if err := r.placeIsland(i, size, origin); err != nil {
			return err
		}
		r.scene.Islands = append(r.scene.Islands, DistantIsland{Index: i, Size: size, Origin: origin})
	}
	return nil
}

func (r *planRun) placeIsland(index, size int, origin Vec3) error {
	key, err := r.variant(assets.CategoryIsland, 1)
	if err != nil {
		return err
	}
	span := float64(size) * engine.WorldTileSpacing
	r.scene.add(KindDistantIsland, key, Transform{
		Position: Vec3{X: origin.X + (span-engine.WorldTileSpacing)/2, Y: origin.Y + 1.5, Z: origin.Z + (span-engine.WorldTileSpacing)/2},
		Scaling:  Vec3{X: float64(size) / 4.5, Y: 1.8, Z: float64(size) / 4.5},
	}, nil, index)

	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			local := CellToWorld(engine.Position{R: row, C: col}, 0)
			at := Vec3{X: origin.X + local.X, Y: origin.Y, Z: origin.Z + local.Z}
			if err := r.decorateCell(at, KindAmbient, nil, index); err != nil {
				return err
			}
		}
	}

	nfo, err := r.pick(assets.CategoryNFO)
	if err != nil {
		return err
	}
	r.scene.add(KindNFO, nfo, Transform{
		Position: Vec3{X: origin.X + span/2, Y: origin.Y + ambientY, Z: origin.Z + span/2},
		Rotation: Vec3{Y: r.rng.Float64() * math.Pi},
		Scaling:  unitScale,
	}, nil, index)
	return nil
}
