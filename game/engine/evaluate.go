package engine

import "time"

// Phase is the state machine position of a game
type Phase string

const (
	PhaseIdle   Phase = "idle"
	PhaseLocked Phase = "locked"
	PhaseDead   Phase = "dead"
	PhaseWon    Phase = "won"
)

// Evaluate reports the terminal phase of a state, or PhaseIdle when play may
// continue. It ignores cooldowns.
func Evaluate(gs *GameState) Phase {
	switch {
	case !gs.Alive:
		return PhaseDead
	case gs.Won:
		return PhaseWon
	}
	return PhaseIdle
}

// PhaseAt folds a cooldown deadline into Evaluate
func PhaseAt(gs *GameState, lockedUntil, now time.Time) Phase {
	p := Evaluate(gs)
	if p == PhaseIdle && now.Before(lockedUntil) {
		return PhaseLocked
	}
	return p
}
