package terminal

import (
	"context"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/wricardo/clara/game/assets"
	"github.com/wricardo/clara/game/engine"
	"github.com/wricardo/clara/game/placement"
	"github.com/wricardo/clara/game/world"
)

type levelMap map[string]*engine.Level

func (m levelMap) FetchLevel(ctx context.Context, id string) (*engine.Level, error) {
	return m[id], nil
}

func newScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	screen.SetSize(60, 20)
	t.Cleanup(screen.Fini)
	return screen
}

func newTestGame(t *testing.T, screen tcell.Screen) *Game {
	t.Helper()
	return loadTestGame(t, screen, &engine.Level{
		ID: "path", Name: "Path", Rows: 3, Columns: 3,
		Tiles: []engine.Tile{
			{R: 1, C: 0, D: engine.East, TID: engine.TileSpawn},
			{R: 1, C: 1, TID: engine.TileLeaf},
			{R: 1, C: 2, TID: engine.TileLeaf},
		},
	})
}

func loadTestGame(t *testing.T, screen tcell.Screen, level *engine.Level) *Game {
	t.Helper()
	atlas, err := world.Preload(context.Background(), assets.ManifestLoader{}, nil)
	if err != nil {
		t.Fatalf("Preload failed: %v", err)
	}
	g := NewGame(screen, levelMap{level.ID: level}, placement.NewPlanner(nil, atlas), nil)
	if err := g.Load(context.Background(), level.ID, world.Options{Placement: placement.Config{DetailLevel: 1, Seed: 4}}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return g
}

func runeAt(screen tcell.Screen, x, y int) rune {
	r, _, _, _ := screen.GetContent(x, y)
	return r
}

func TestActionForKey(t *testing.T) {
	tests := []struct {
		name string
		ev   *tcell.EventKey
		want Action
	}{
		{"arrow up", tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone), ActionForward},
		{"w", tcell.NewEventKey(tcell.KeyRune, 'w', tcell.ModNone), ActionForward},
		{"space", tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone), ActionForward},
		{"arrow right", tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone), ActionTurnRight},
		{"d", tcell.NewEventKey(tcell.KeyRune, 'd', tcell.ModNone), ActionTurnRight},
		{"r", tcell.NewEventKey(tcell.KeyRune, 'r', tcell.ModNone), ActionReload},
		{"q", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone), ActionQuit},
		{"escape", tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), ActionQuit},
		{"arrow left", tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModNone), ActionNone},
		{"x", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone), ActionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ActionForKey(tt.ev); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestScreenRenderer(t *testing.T) {
	r := NewScreenRenderer(nil)

	if _, err := r.PlaceInstance("Nope.glb", placement.Vec3{}, placement.Vec3{}, placement.Vec3{}); err == nil {
		t.Error("Expected an unknown asset to be rejected")
	}

	tree, err := r.PlaceInstance("Tree3.glb", placement.CellToWorld(engine.Position{R: 1, C: 2}, 1.6), placement.Vec3{}, placement.Vec3{X: 1, Y: 1, Z: 1})
	if err != nil {
		t.Fatalf("PlaceInstance failed: %v", err)
	}
	if _, err := r.PlaceInstance("GrassTop1.glb", placement.CellToWorld(engine.Position{R: 1, C: 2}, 0), placement.Vec3{}, placement.Vec3{}); err != nil {
		t.Fatalf("PlaceInstance failed: %v", err)
	}
	if _, err := r.PlaceInstance("clara.glb", placement.CellToWorld(engine.Position{R: 0, C: 0}, 1), placement.Vec3{}, placement.Vec3{}); err != nil {
		t.Fatalf("PlaceInstance failed: %v", err)
	}
	if r.Len() != 3 {
		t.Fatalf("Expected 3 instances, got %d", r.Len())
	}

	screen := newScreen(t)
	r.Draw(screen, 0, 0, 3, 3)
	if got := runeAt(screen, 4, 1); got != '♣' {
		t.Errorf("Expected the tree above the ground, got %q", got)
	}
	if got := runeAt(screen, 0, 0); got == 'C' {
		t.Error("Expected the player instance to stay hidden")
	}

	if err := r.RemoveInstance(tree); err != nil {
		t.Fatalf("RemoveInstance failed: %v", err)
	}
	if err := r.RemoveInstance(tree); err == nil {
		t.Error("Expected removing twice to fail")
	}
	screen.Clear()
	r.Draw(screen, 0, 0, 3, 3)
	if got := runeAt(screen, 4, 1); got != '·' {
		t.Errorf("Expected ground after removing the tree, got %q", got)
	}
}

func TestGamePlayThrough(t *testing.T) {
	screen := newScreen(t)
	g := newTestGame(t, screen)
	ctx := context.Background()
	mounted := g.renderer.Len()

	g.Draw()
	if got := runeAt(screen, 2, 2); got != '>' {
		t.Errorf("Expected the player facing east at spawn, got %q", got)
	}
	if got := runeAt(screen, 4, 2); got != '*' {
		t.Errorf("Expected a leaf next to the player, got %q", got)
	}

	g.Handle(ctx, ActionForward)
	if g.renderer.Len() != mounted-1 {
		t.Errorf("Expected the collected leaf to be removed, got %d instances (was %d)", g.renderer.Len(), mounted)
	}

	g.Handle(ctx, ActionForward)
	if g.present.Overlay() != "YOU WIN" {
		t.Fatalf("Expected win overlay, got %q", g.present.Overlay())
	}
	g.Draw()
	if got := runeAt(screen, centered(60, "  YOU WIN  ")+2, 10); got != 'Y' {
		t.Errorf("Expected overlay on screen, got %q", got)
	}

	g.Handle(ctx, ActionReload)
	if g.present.Overlay() != "" {
		t.Error("Expected reload to clear the overlay")
	}
	if g.renderer.Len() != mounted {
		t.Errorf("Expected a full remount, got %d instances want %d", g.renderer.Len(), mounted)
	}
	if state := g.World().Engine.GetState(); state.Collected != 0 || state.Won {
		t.Errorf("Expected a fresh level, got %+v", state)
	}

	if g.Handle(ctx, ActionQuit) {
		t.Error("Expected quit to stop the game")
	}
}

func TestGameMushroomBuriesGhost(t *testing.T) {
	screen := newScreen(t)
	g := loadTestGame(t, screen, &engine.Level{
		ID: "bury", Name: "Bury", Rows: 1, Columns: 6,
		Tiles: []engine.Tile{
			{R: 0, C: 0, D: engine.East, TID: engine.TileSpawn},
			{R: 0, C: 1, TID: engine.TileMushroom},
			{R: 0, C: 2, TID: engine.TileGhost},
			{R: 0, C: 5, TID: engine.TileLeaf},
		},
	})
	ctx := context.Background()
	ghostX, y := 2+2*2, 1

	g.Draw()
	if got := runeAt(screen, ghostX, y); got != 'G' {
		t.Fatalf("Expected the ghost at (0,2), got %q", got)
	}

	g.Handle(ctx, ActionForward)
	g.Draw()
	if got := runeAt(screen, ghostX, y); got != 'M' {
		t.Errorf("Expected the mushroom on the ghost cell, got %q", got)
	}

	g.Handle(ctx, ActionForward)
	g.Handle(ctx, ActionForward)
	state := g.World().Engine.GetState()
	if !state.Alive || state.Player != (engine.Position{R: 0, C: 3}) {
		t.Fatalf("Expected the player alive at (0,3), got %s alive=%v", state.Player, state.Alive)
	}
	g.Draw()
	if got := runeAt(screen, ghostX, y); got == 'G' {
		t.Error("Expected the buried ghost to stay off screen")
	}
	if got := runeAt(screen, 2+4*2, y); got != 'M' {
		t.Errorf("Expected the mushroom at (0,4), got %q", got)
	}
}

func TestGameDeathOverlay(t *testing.T) {
	screen := newScreen(t)
	g := newTestGame(t, screen)
	ctx := context.Background()

	// Facing north from (1,0) then walking off the top edge
	for i := 0; i < 3; i++ {
		g.Handle(ctx, ActionTurnRight)
	}
	g.Handle(ctx, ActionForward)
	g.Handle(ctx, ActionForward)
	if g.present.Overlay() != "YOU DIED" {
		t.Errorf("Expected death overlay, got %q", g.present.Overlay())
	}
}

func TestGameRunQuits(t *testing.T) {
	screen := newScreen(t)
	g := newTestGame(t, screen)

	screen.InjectKey(tcell.KeyRune, 'w', tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := g.Run(ctx); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if got := g.World().Engine.GetState().Collected; got != 1 {
		t.Errorf("Expected the injected forward to collect a leaf, got %d", got)
	}
	g.Close()
	if g.World() != nil {
		t.Error("Expected Close to tear the world down")
	}
}

func TestTone(t *testing.T) {
	s := tone(sampleRate, 440, 10*time.Millisecond)
	want := sampleRate.N(10 * time.Millisecond)

	buf := make([][2]float64, 128)
	total := 0
	for {
		n, ok := s.Stream(buf)
		total += n
		for i := 0; i < n; i++ {
			if buf[i][0] < -1 || buf[i][0] > 1 {
				t.Fatalf("Sample out of range: %f", buf[i][0])
			}
		}
		if !ok {
			break
		}
	}
	if total != want {
		t.Errorf("Expected %d samples, got %d", want, total)
	}

	var silent *Sound
	silent.Play(440, time.Millisecond)
	(&Sound{}).Play(440, time.Millisecond)
}
