package engine

import (
	"fmt"
	"strings"
)

// Command is a discrete player input
type Command string

const (
	MoveForward Command = "forward"
	TurnRight   Command = "turn_right"
)

// ParseCommand normalizes a command name, accepting short aliases
func ParseCommand(s string) (Command, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward", "move", "move_forward", "f":
		return MoveForward, nil
	case "turn_right", "turn", "right", "t":
		return TurnRight, nil
	}
	return "", fmt.Errorf("unknown command %q", s)
}

// Outcome classifies what a command did
type Outcome string

const (
	OutcomeTurned          Outcome = "turned"
	OutcomeMoved           Outcome = "moved"
	OutcomeCollected       Outcome = "collected"
	OutcomePushed          Outcome = "pushed"
	OutcomePushBlocked     Outcome = "push_blocked"
	OutcomeDied            Outcome = "died"
	OutcomeWon             Outcome = "won"
	OutcomeIgnoredLocked   Outcome = "ignored_locked"
	OutcomeIgnoredTerminal Outcome = "ignored_terminal"
	OutcomeInvalid         Outcome = "invalid"
)

// Cause names what killed the player
type Cause string

const (
	CauseNone         Cause = ""
	CauseBoundary     Cause = "boundary"
	CauseObstacle     Cause = "obstacle"
	CauseHazard       Cause = "hazard"
	CauseLethalEntity Cause = "lethal_entity"
)

// Result describes the effect of one command
type Result struct {
	Command   Command   `json:"command"`
	Outcome   Outcome   `json:"outcome"`
	From      Position  `json:"from"`
	To        Position  `json:"to"`
	Target    Position  `json:"target"` // cell a forward move aimed at
	Facing    Direction `json:"facing"`
	Cause     Cause     `json:"cause,omitempty"`
	Collected int       `json:"collected"`
	Won       bool      `json:"won"`
	Dead      bool      `json:"dead"`
}

// Success reports whether the command was accepted and changed the state
// without killing the player.
func (r Result) Success() bool {
	switch r.Outcome {
	case OutcomeTurned, OutcomeMoved, OutcomeCollected, OutcomePushed, OutcomeWon:
		return true
	}
	return false
}

// Accepted reports whether the command consumed a turn, including fatal moves
func (r Result) Accepted() bool {
	return r.Success() || r.Outcome == OutcomeDied
}

// Ignored reports whether the command was dropped without any effect
func (r Result) Ignored() bool {
	switch r.Outcome {
	case OutcomeIgnoredLocked, OutcomeIgnoredTerminal, OutcomePushBlocked, OutcomeInvalid:
		return true
	}
	return false
}
