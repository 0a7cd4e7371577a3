package terminal

import "github.com/gdamore/tcell/v2"

// Action is what a key press asks the game to do
type Action int

const (
	ActionNone Action = iota
	ActionForward
	ActionTurnRight
	ActionReload
	ActionQuit
)

// ActionForKey maps a key event to an action
func ActionForKey(ev *tcell.EventKey) Action {
	switch ev.Key() {
	case tcell.KeyUp:
		return ActionForward
	case tcell.KeyRight:
		return ActionTurnRight
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return ActionQuit
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'w', 'W', ' ':
			return ActionForward
		case 'd', 'D':
			return ActionTurnRight
		case 'r', 'R':
			return ActionReload
		case 'q', 'Q':
			return ActionQuit
		}
	}
	return ActionNone
}
