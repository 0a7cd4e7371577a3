package terminal

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/wricardo/clara/game/assets"
	"github.com/wricardo/clara/game/engine"
	"github.com/wricardo/clara/game/placement"
)

// glyph is how one asset category looks on screen
type glyph struct {
	r     rune
	style tcell.Style
	layer int
}

var categoryGlyphs = map[assets.Category]glyph{
	assets.CategoryGround:    {'·', tcell.StyleDefault.Foreground(tcell.ColorDarkGreen), 0},
	assets.CategoryWaterTop:  {'~', tcell.StyleDefault.Foreground(tcell.ColorBlue), 0},
	assets.CategoryGrass:     {'"', tcell.StyleDefault.Foreground(tcell.ColorGreen), 1},
	assets.CategoryTallGrass: {';', tcell.StyleDefault.Foreground(tcell.ColorGreen), 1},
	assets.CategoryStone:     {'o', tcell.StyleDefault.Foreground(tcell.ColorGray), 1},
	assets.CategoryWaterfall: {'≈', tcell.StyleDefault.Foreground(tcell.ColorLightBlue), 1},
	assets.CategoryTree:      {'♣', tcell.StyleDefault.Foreground(tcell.ColorForestGreen), 2},
	assets.CategoryTower:     {'▲', tcell.StyleDefault.Foreground(tcell.ColorSilver), 3},
	assets.CategoryLeaf:      {'*', tcell.StyleDefault.Foreground(tcell.ColorYellowGreen).Bold(true), 4},
}

// Player, pushables and ghosts are drawn from the engine grid instead of
// their placed instances, since a pushed mushroom can move or bury them.
// Islands and NFOs lie outside the board.
var hiddenCategories = map[assets.Category]bool{
	assets.CategoryClara:    true,
	assets.CategoryMushroom: true,
	assets.CategoryGhost:    true,
	assets.CategoryIsland:   true,
	assets.CategoryNFO:      true,
}

type instance struct {
	key  string
	cell engine.Position
	g    glyph
}

// ScreenRenderer is a placement.Renderer that keeps instances as board cells
// and draws them as glyphs, two screen columns per cell.
type ScreenRenderer struct {
	mu        sync.Mutex
	next      placement.Handle
	instances map[placement.Handle]instance
	index     map[string]assets.Category
}

// NewScreenRenderer creates a renderer that resolves asset keys through catalog
func NewScreenRenderer(catalog assets.Catalog) *ScreenRenderer {
	if catalog == nil {
		catalog = assets.DefaultCatalog()
	}
	index := make(map[string]assets.Category)
	for _, families := range catalog {
		for cat, f := range families {
			for _, k := range f.Keys() {
				index[k] = cat
			}
		}
	}
	return &ScreenRenderer{
		instances: make(map[placement.Handle]instance),
		index:     index,
	}
}

// PlaceInstance records an instance at the board cell nearest to position
func (s *ScreenRenderer) PlaceInstance(assetKey string, position, rotation, scale placement.Vec3) (placement.Handle, error) {
	cat, ok := s.index[assetKey]
	if !ok {
		return 0, fmt.Errorf("unknown asset %q", assetKey)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	inst := instance{key: assetKey, cell: worldToCell(position)}
	if !hiddenCategories[cat] {
		inst.g = categoryGlyphs[cat]
	}
	s.instances[s.next] = inst
	return s.next, nil
}

// RemoveInstance forgets an instance
func (s *ScreenRenderer) RemoveInstance(h placement.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instances[h]; !ok {
		return fmt.Errorf("unknown handle %d", h)
	}
	delete(s.instances, h)
	return nil
}

// Len returns the number of live instances
func (s *ScreenRenderer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.instances)
}

// Draw paints every visible instance inside a rows x columns board whose
// top-left cell is at screen position (x0, y0). Higher layers win.
func (s *ScreenRenderer) Draw(screen tcell.Screen, x0, y0, rows, columns int) {
	s.mu.Lock()
	visible := make([]instance, 0, len(s.instances))
	for _, inst := range s.instances {
		if inst.g.r == 0 {
			continue
		}
		if inst.cell.R < 0 || inst.cell.R >= rows || inst.cell.C < 0 || inst.cell.C >= columns {
			continue
		}
		visible = append(visible, inst)
	}
	s.mu.Unlock()

	sort.Slice(visible, func(i, j int) bool {
		if visible[i].g.layer != visible[j].g.layer {
			return visible[i].g.layer < visible[j].g.layer
		}
		return visible[i].key < visible[j].key
	})
	for _, inst := range visible {
		screen.SetContent(x0+inst.cell.C*2, y0+inst.cell.R, inst.g.r, nil, inst.g.style)
	}
}

// worldToCell inverts placement.CellToWorld
func worldToCell(p placement.Vec3) engine.Position {
	return engine.Position{
		R: int(math.Round(p.X / engine.WorldTileSpacing)),
		C: int(math.Round(p.Z / engine.WorldTileSpacing)),
	}
}

// drawText writes s starting at (x, y)
func drawText(screen tcell.Screen, x, y int, style tcell.Style, s string) {
	for i, r := range []rune(s) {
		screen.SetContent(x+i, y, r, nil, style)
	}
}

// playerGlyph points in the facing direction
func playerGlyph(d engine.Direction) rune {
	return []rune("^>v<")[d%4]
}

// centered returns the x offset that centers s on a screen of width w
func centered(w int, s string) int {
	x := (w - len([]rune(strings.TrimSpace(s)))) / 2
	if x < 0 {
		return 0
	}
	return x
}
