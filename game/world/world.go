package world

import (
	"context"
	"errors"
	"fmt"

	"github.com/wricardo/clara/game/assets"
	"github.com/wricardo/clara/game/engine"
	"github.com/wricardo/clara/game/placement"
	"github.com/wricardo/clara/pkg/logger"
)

// ErrNotLoaded is returned by Reload before any level was loaded
var ErrNotLoaded = errors.New("no level loaded")

// LevelSource fetches level definitions by id
type LevelSource interface {
	FetchLevel(ctx context.Context, id string) (*engine.Level, error)
}

// Options configures one level load
type Options struct {
	Placement placement.Config `json:"placement"`
	Engine    engine.Options   `json:"-"`
}

// World is one live level: its rules engine and its planned scene
type World struct {
	Level   *engine.Level
	Engine  *engine.GameEngine
	Scene   *placement.Scene
	Options Options
}

// Build runs the grid builder, the engine and the planner for a level that
// has already been fetched.
func Build(planner *placement.Planner, level *engine.Level, opts Options) (*World, error) {
	eng, err := engine.NewEngine(level, opts.Engine)
	if err != nil {
		return nil, err
	}
	scene, err := planner.Plan(eng.GetState(), eng.Eligibility(), opts.Placement)
	if err != nil {
		return nil, fmt.Errorf("failed to plan level %q: %w", level.ID, err)
	}
	opts.Placement = scene.Config
	return &World{Level: level, Engine: eng, Scene: scene, Options: opts}, nil
}

// Loader owns the current world and its rendered instances. Loading always
// tears the previous world down first.
type Loader struct {
	source   LevelSource
	planner  *placement.Planner
	renderer placement.Renderer

	current *World
	handles map[placement.ObjectID]placement.Handle
}

// NewLoader creates a loader. renderer may be nil for headless use.
func NewLoader(source LevelSource, planner *placement.Planner, renderer placement.Renderer) *Loader {
	return &Loader{source: source, planner: planner, renderer: renderer}
}

// Preload resolves every asset of the given themes. It must succeed before any
// level is built.
func Preload(ctx context.Context, loader assets.Loader, catalog assets.Catalog, themes ...assets.Theme) (*assets.Atlas, error) {
	if catalog == nil {
		catalog = assets.DefaultCatalog()
	}
	if len(themes) == 0 {
		themes = []assets.Theme{assets.ThemePastoral, assets.ThemeSpace}
	}
	seen := make(map[string]bool)
	var keys []string
	for _, th := range themes {
		for _, k := range catalog.Keys(th) {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return assets.Preload(ctx, loader, keys, 8)
}

// Current returns the loaded world, or nil
func (l *Loader) Current() *World {
	return l.current
}

// Handles returns the renderer handles of the current scene
func (l *Loader) Handles() map[placement.ObjectID]placement.Handle {
	return l.handles
}

// Load fetches a level and makes it the current world
func (l *Loader) Load(ctx context.Context, id string, opts Options) (*World, error) {
	l.Teardown()

	level, err := l.source.FetchLevel(ctx, id)
	if err != nil {
		return nil, err
	}
	return l.install(ctx, level, opts)
}

// Reload rebuilds the current level from scratch
func (l *Loader) Reload(ctx context.Context) (*World, error) {
	if l.current == nil {
		return nil, ErrNotLoaded
	}
	level, opts := l.current.Level, l.current.Options
	l.Teardown()
	return l.install(ctx, level, opts)
}

func (l *Loader) install(ctx context.Context, level *engine.Level, opts Options) (*World, error) {
	w, err := Build(l.planner, level, opts)
	if err != nil {
		return nil, err
	}
	if l.renderer != nil {
		handles, err := placement.Mount(ctx, l.renderer, w.Scene)
		if err != nil {
			return nil, err
		}
		l.handles = handles
	}
	l.current = w

	logger.Log.WithField("level", level.ID).
		WithField("objects", len(w.Scene.Objects)).
		Info("Level loaded")
	return w, nil
}

// Teardown removes the current scene from the renderer and drops the world
func (l *Loader) Teardown() {
	if l.renderer != nil && l.handles != nil {
		placement.Unmount(l.renderer, l.handles)
	}
	l.handles = nil
	l.current = nil
}

// RemoveActor removes the rendered actor originally placed on cell p, such
// as a collected leaf.
func (l *Loader) RemoveActor(p engine.Position) bool {
	if l.current == nil || l.renderer == nil {
		return false
	}
	obj, ok := l.current.Scene.ActorAt(p)
	if !ok {
		return false
	}
	h, ok := l.handles[obj.ID]
	if !ok {
		return false
	}
	if err := l.renderer.RemoveInstance(h); err != nil {
		logger.Log.WithError(err).WithField("cell", p.String()).Warn("Failed to remove actor")
		return false
	}
	delete(l.handles, obj.ID)
	return true
}
