package session

import (
	"context"
	"testing"

	"github.com/wricardo/clara/game/assets"
	"github.com/wricardo/clara/game/engine"
	"github.com/wricardo/clara/game/placement"
	"github.com/wricardo/clara/game/service"
	"github.com/wricardo/clara/game/world"
)

// levelMap implements service.LevelManager over a map
type levelMap map[string]*engine.Level

func (m levelMap) FetchLevel(ctx context.Context, id string) (*engine.Level, error) {
	level, ok := m[id]
	if !ok {
		return nil, service.ErrLevelNotFound
	}
	return level, nil
}

func (m levelMap) ListLevels(ctx context.Context) ([]*service.LevelInfo, error) {
	var out []*service.LevelInfo
	for _, level := range m {
		out = append(out, service.NewLevelInfo(level, "test"))
	}
	return out, nil
}

func (m levelMap) SaveLevel(ctx context.Context, level *engine.Level) (*engine.Level, error) {
	m[level.ID] = level
	return level, nil
}

func testLevels() levelMap {
	return levelMap{
		"walk": {ID: "walk", Name: "Walk", Rows: 4, Columns: 4, Tiles: []engine.Tile{
			{R: 0, C: 0, D: engine.East, TID: engine.TileSpawn},
			{R: 0, C: 2, TID: engine.TileLeaf},
			{R: 3, C: 3, TID: engine.TileLeaf},
			{R: 2, C: 2, TID: engine.TileForest},
		}},
		"push": {ID: "push", Name: "Push", Rows: 2, Columns: 5, Tiles: []engine.Tile{
			{R: 0, C: 0, D: engine.East, TID: engine.TileSpawn},
			{R: 0, C: 1, TID: engine.TileMushroom},
			{R: 1, C: 4, TID: engine.TileLeaf},
		}},
	}
}

func createTestPlanner(t *testing.T) *placement.Planner {
	t.Helper()
	atlas, err := world.Preload(context.Background(), assets.ManifestLoader{}, nil)
	if err != nil {
		t.Fatalf("Preload failed: %v", err)
	}
	return placement.NewPlanner(nil, atlas)
}

func createTestWorld(t *testing.T) *world.World {
	t.Helper()
	return createTestWorldFor(t, "walk")
}

func createTestWorldFor(t *testing.T, levelID string) *world.World {
	t.Helper()
	w, err := world.Build(createTestPlanner(t), testLevels()[levelID], world.Options{
		Placement: placement.Config{DetailLevel: 2, Theme: assets.ThemeSpace, Seed: 11},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return w
}
