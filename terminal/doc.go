// Package terminal plays a Clara level in a text terminal using tcell.
//
// ScreenRenderer implements placement.Renderer by snapping each placed
// instance to its board cell and drawing a glyph for its asset category.
// ActionForKey translates key presses into game actions. Presentation shows
// the death and win overlays and plays a short tone through beep when a
// speaker is available.
//
// Game.Run polls terminal events on a helper goroutine and feeds them to a
// single loop that owns the engine and redraws every 16ms.
package terminal
