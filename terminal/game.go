package terminal

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/sirupsen/logrus"
	"github.com/wricardo/clara/game/engine"
	"github.com/wricardo/clara/game/placement"
	"github.com/wricardo/clara/game/world"
	"github.com/wricardo/clara/pkg/logger"
)

const frameInterval = 16 * time.Millisecond

var (
	hudStyle     = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	playerStyle  = tcell.StyleDefault.Foreground(tcell.ColorFuchsia).Bold(true)
	pushStyle    = tcell.StyleDefault.Foreground(tcell.ColorOrange).Bold(true)
	ghostStyle   = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	overlayStyle = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorYellow).Bold(true)
)

// Game hosts one level in a terminal. Only the goroutine running Run touches
// the engine.
type Game struct {
	screen   tcell.Screen
	loader   *world.Loader
	renderer *ScreenRenderer
	present  *Presentation
	status   string
}

// NewGame wires a loader that mounts scenes into a ScreenRenderer
func NewGame(screen tcell.Screen, source world.LevelSource, planner *placement.Planner, sound *Sound) *Game {
	renderer := NewScreenRenderer(nil)
	return &Game{
		screen:   screen,
		loader:   world.NewLoader(source, planner, renderer),
		renderer: renderer,
		present:  NewPresentation(sound),
	}
}

// Load makes a level current
func (g *Game) Load(ctx context.Context, levelID string, opts world.Options) error {
	w, err := g.loader.Load(ctx, levelID, opts)
	if err != nil {
		return err
	}
	g.attach(w)
	return nil
}

// attach registers the presentation observers on a freshly built engine
func (g *Game) attach(w *world.World) {
	g.present.Clear()
	w.Engine.OnDeath(g.present.Death)
	w.Engine.OnWin(g.present.Win)
	g.status = w.Engine.GetState().Message
}

// World returns the current world, or nil
func (g *Game) World() *world.World {
	return g.loader.Current()
}

// Handle applies one action. It reports false when the game should quit.
func (g *Game) Handle(ctx context.Context, action Action) bool {
	w := g.loader.Current()
	switch action {
	case ActionQuit:
		return false
	case ActionReload:
		if w == nil {
			return true
		}
		w, err := g.loader.Reload(ctx)
		if err != nil {
			g.status = fmt.Sprintf("Reload failed: %v", err)
			logger.Log.WithError(err).Warn("Reload failed")
			return true
		}
		g.attach(w)
	case ActionForward, ActionTurnRight:
		if w == nil {
			return true
		}
		cmd := engine.MoveForward
		if action == ActionTurnRight {
			cmd = engine.TurnRight
		}
		res := w.Engine.Execute(cmd)
		if res.Outcome == engine.OutcomeCollected || res.Outcome == engine.OutcomeWon {
			g.loader.RemoveActor(res.To)
		}
		if !res.Ignored() {
			g.status = w.Engine.GetState().Message
		}
		logger.Log.WithFields(logrus.Fields{
			"command": cmd,
			"outcome": res.Outcome,
			"to":      res.To.String(),
		}).Debug("Command")
	}
	return true
}

// Draw renders one frame
func (g *Game) Draw() {
	g.screen.Clear()
	width, height := g.screen.Size()

	w := g.loader.Current()
	if w == nil {
		drawText(g.screen, 0, 0, hudStyle, "No level loaded")
		g.screen.Show()
		return
	}

	const x0, y0 = 2, 1
	state := w.Engine.GetState()
	rows, cols := state.Grid.Rows(), state.Grid.Columns()

	g.renderer.Draw(g.screen, x0, y0, rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if state.Grid[r][c].Kind == engine.HazardEntity {
				g.screen.SetContent(x0+c*2, y0+r, 'G', nil, ghostStyle)
			}
		}
	}
	for p := range state.Pushables {
		g.screen.SetContent(x0+p.C*2, y0+p.R, 'M', nil, pushStyle)
	}
	if state.Alive {
		g.screen.SetContent(x0+state.Player.C*2, y0+state.Player.R, playerGlyph(state.Facing), nil, playerStyle)
	}

	hud := fmt.Sprintf("%s | Leaves %d/%d | Facing %s", w.Level.Name, state.Collected, state.CollectibleTotal, state.Facing)
	drawText(g.screen, x0, y0+rows+1, hudStyle, hud)
	drawText(g.screen, x0, y0+rows+2, hudStyle, g.status)
	drawText(g.screen, x0, y0+rows+3, hudStyle, "↑/w forward  →/d turn right  r reload  q quit")

	if text := g.present.Overlay(); text != "" {
		label := "  " + text + "  "
		drawText(g.screen, centered(width, label), height/2, overlayStyle, label)
	}
	g.screen.Show()
}

// Run polls events on a separate goroutine and drives input and drawing from
// a single loop until quit or ctx is done.
func (g *Game) Run(ctx context.Context) error {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	done := make(chan struct{})
	defer close(done)

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := g.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	g.Draw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if !g.Handle(ctx, ActionForKey(ev)) {
					return nil
				}
			case *tcell.EventResize:
				g.screen.Sync()
			}
		case <-ticker.C:
			g.Draw()
		}
	}
}

// Close tears the scene down
func (g *Game) Close() {
	g.loader.Teardown()
}
