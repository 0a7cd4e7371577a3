package engine

import (
	"fmt"
	"time"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	Snapshot() *GameState
	SetState(state *GameState) error
	Reset() *GameState
	Phase() Phase
	IsLocked() bool
	IsDead() bool
	IsWon() bool
	GetPlayerPosition() Position

	// Commands
	Execute(cmd Command) Result
	MoveForward() Result
	TurnRight() Result

	// Level
	GetLevel() *Level
	Eligibility() EligibilityGrid

	// History
	GetCommandHistory() []CommandHistoryEntry
	GetLastCommand() *CommandHistoryEntry

	// Local view
	GetLocalView() []string
	Ahead() (Position, Cell, bool)

	// Presentation hooks
	OnDeath(fn func(Result))
	OnWin(fn func(Result))
}

// Options tunes the engine's cooldown debounce
type Options struct {
	TurnCooldown time.Duration
	MoveCooldown time.Duration
	// Now overrides the clock, mainly for tests
	Now func() time.Time
}

// DefaultOptions matches the pace of the original animations
func DefaultOptions() Options {
	return Options{
		TurnCooldown: 300 * time.Millisecond,
		MoveCooldown: 600 * time.Millisecond,
	}
}

// GameEngine implements the Engine interface
type GameEngine struct {
	level       *Level
	state       *GameState
	elig        EligibilityGrid
	opts        Options
	lockedUntil time.Time

	onDeath []func(Result)
	onWin   []func(Result)
}

// NewEngine validates the level and builds a fresh engine for it
func NewEngine(level *Level, opts Options) (*GameEngine, error) {
	state, elig, err := NewGameState(level)
	if err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &GameEngine{
		level: level,
		state: state,
		elig:  elig,
		opts:  opts,
	}, nil
}

// GetState returns the live game state. Readers outside the engine's
// goroutine should use Snapshot instead.
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// Snapshot returns a deep copy of the state with the local view and phase
// filled in. The live state is not modified.
func (e *GameEngine) Snapshot() *GameState {
	out := e.state.Clone()
	out.LocalView3x3 = out.GenerateLocalView()
	out.Phase = e.Phase()
	return out
}

// SetState replaces the game state (used for persistence loading)
func (e *GameEngine) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if state.Grid.Rows() != e.level.Rows || state.Grid.Columns() != e.level.Columns {
		return fmt.Errorf("state grid is %dx%d, level is %dx%d",
			state.Grid.Rows(), state.Grid.Columns(), e.level.Rows, e.level.Columns)
	}
	if state.Alive && (!state.Grid.InBounds(state.Player) || state.Grid.At(state.Player).Kind != Player) {
		return fmt.Errorf("state player %s does not match grid", state.Player)
	}
	if state.Pushables == nil {
		state.Pushables = make(Pushables)
	}
	e.state = state
	e.lockedUntil = time.Time{}
	return nil
}

// Reset discards the grids and state and rebuilds them from the level
func (e *GameEngine) Reset() *GameState {
	prevHistory := e.state.History
	prevTotal := e.state.TotalMoves

	// Level was validated in NewEngine
	state, elig, _ := NewGameState(e.level)
	state.History = prevHistory
	state.TotalMoves = prevTotal

	e.state = state
	e.elig = elig
	e.lockedUntil = time.Time{}
	return e.state
}

// Phase returns the state machine phase at the current clock
func (e *GameEngine) Phase() Phase {
	return PhaseAt(e.state, e.lockedUntil, e.opts.Now())
}

// IsLocked reports whether a cooldown is still running
func (e *GameEngine) IsLocked() bool {
	return e.opts.Now().Before(e.lockedUntil)
}

// IsDead returns whether the player has died
func (e *GameEngine) IsDead() bool {
	return !e.state.Alive
}

// IsWon returns whether every collectible has been picked up
func (e *GameEngine) IsWon() bool {
	return e.state.Won
}

// GetPlayerPosition returns the current player position
func (e *GameEngine) GetPlayerPosition() Position {
	return e.state.Player
}

// Execute runs one command. Commands arriving during a cooldown or after the
// game ended are dropped without touching the state.
func (e *GameEngine) Execute(cmd Command) Result {
	now := e.opts.Now()

	var res Result
	if !e.state.Terminal() && now.Before(e.lockedUntil) {
		res = Result{
			Command:   cmd,
			Outcome:   OutcomeIgnoredLocked,
			From:      e.state.Player,
			To:        e.state.Player,
			Target:    e.state.Player,
			Facing:    e.state.Facing,
			Collected: e.state.Collected,
		}
	} else {
		res = Step(e.state, cmd)
	}

	switch res.Outcome {
	case OutcomeTurned:
		e.lockedUntil = now.Add(e.opts.TurnCooldown)
	case OutcomeMoved, OutcomeCollected, OutcomePushed:
		e.lockedUntil = now.Add(e.opts.MoveCooldown)
	}

	if res.Outcome != OutcomeIgnoredTerminal {
		e.state.AddCommandToHistory(res, now.Unix())
	}

	switch res.Outcome {
	case OutcomeDied:
		for _, fn := range e.onDeath {
			fn(res)
		}
	case OutcomeWon:
		for _, fn := range e.onWin {
			fn(res)
		}
	}
	return res
}

// MoveForward executes a forward move
func (e *GameEngine) MoveForward() Result {
	return e.Execute(MoveForward)
}

// TurnRight executes a right turn
func (e *GameEngine) TurnRight() Result {
	return e.Execute(TurnRight)
}

// GetLevel returns the level the engine was built from
func (e *GameEngine) GetLevel() *Level {
	return e.level
}

// Eligibility returns the decoration eligibility grid built with the state
func (e *GameEngine) Eligibility() EligibilityGrid {
	return e.elig
}

// GetCommandHistory returns the complete command history
func (e *GameEngine) GetCommandHistory() []CommandHistoryEntry {
	return e.state.History
}

// GetLastCommand returns the last command executed, or nil if none
func (e *GameEngine) GetLastCommand() *CommandHistoryEntry {
	if len(e.state.History) == 0 {
		return nil
	}
	return &e.state.History[len(e.state.History)-1]
}

// GetLocalView returns the 3x3 view around the player
func (e *GameEngine) GetLocalView() []string {
	return e.state.GenerateLocalView()
}

// Ahead returns the cell in front of the player
func (e *GameEngine) Ahead() (Position, Cell, bool) {
	return e.state.Ahead()
}

// OnDeath registers a callback invoked after the player dies
func (e *GameEngine) OnDeath(fn func(Result)) {
	e.onDeath = append(e.onDeath, fn)
}

// OnWin registers a callback invoked after the final collectible is picked up
func (e *GameEngine) OnWin(fn func(Result)) {
	e.onWin = append(e.onWin, fn)
}
