package engine

import (
	"testing"
)

func createTestState(t *testing.T, rows, cols int, tiles ...Tile) *GameState {
	t.Helper()
	state, _, err := NewGameState(createTestLevel(rows, cols, tiles...))
	if err != nil {
		t.Fatalf("NewGameState failed: %v", err)
	}
	return state
}

func TestStep_CollectFinalLeafWins(t *testing.T) {
	state := createTestState(t, 5, 5,
		Tile{R: 2, C: 2, D: East, TID: TileSpawn},
		Tile{R: 2, C: 3, TID: TileLeaf},
	)

	res := Step(state, MoveForward)

	if res.Outcome != OutcomeWon {
		t.Errorf("expected won, got %s", res.Outcome)
	}
	if state.Player != (Position{R: 2, C: 3}) {
		t.Errorf("expected player at (2,3), got %s", state.Player)
	}
	if state.Collected != 1 || !state.Won {
		t.Errorf("expected collected=1 won=true, got %d %v", state.Collected, state.Won)
	}
	if state.Grid.At(Position{R: 2, C: 2}) != EmptyCell {
		t.Error("source cell not cleared")
	}
}

func TestStep_BoundaryDeath(t *testing.T) {
	state := createTestState(t, 3, 3, Tile{R: 0, C: 0, D: North, TID: TileSpawn})

	res := Step(state, MoveForward)

	if res.Outcome != OutcomeDied || res.Cause != CauseBoundary {
		t.Errorf("expected boundary death, got %s/%s", res.Outcome, res.Cause)
	}
	if state.Alive {
		t.Error("expected alive=false")
	}
	if state.Player != (Position{R: 0, C: 0}) {
		t.Errorf("player moved to %s", state.Player)
	}
	if res.To != (Position{R: 0, C: 0}) || res.Target != (Position{R: -1, C: 0}) {
		t.Errorf("expected to=(0,0) target=(-1,0), got to=%s target=%s", res.To, res.Target)
	}
}

func TestStep_LethalCells(t *testing.T) {
	tests := []struct {
		name  string
		tid   TileID
		cause Cause
	}{
		{"forest", TileForest, CauseObstacle},
		{"water", TileWater, CauseHazard},
		{"ghost", TileGhost, CauseLethalEntity},
	}
	for _, tt := range tests {
		for _, dir := range []Direction{North, East, South, West} {
			t.Run(tt.name+"_"+dir.String(), func(t *testing.T) {
				spawn := Position{R: 1, C: 1}
				target := spawn.Step(dir)
				state := createTestState(t, 3, 3,
					Tile{R: spawn.R, C: spawn.C, D: dir, TID: TileSpawn},
					Tile{R: target.R, C: target.C, TID: tt.tid},
				)

				res := Step(state, MoveForward)

				if res.Outcome != OutcomeDied || res.Cause != tt.cause {
					t.Errorf("expected death by %s, got %s/%s", tt.cause, res.Outcome, res.Cause)
				}
				if res.Target != target {
					t.Errorf("expected target %s, got %s", target, res.Target)
				}
				if state.Alive || state.Player != spawn {
					t.Errorf("expected dead at %s, got alive=%v at %s", spawn, state.Alive, state.Player)
				}
			})
		}
	}
}

func TestStep_TurnLoop(t *testing.T) {
	state := createTestState(t, 3, 3, Tile{R: 1, C: 1, D: West, TID: TileSpawn})

	for i := 0; i < 4; i++ {
		if res := Step(state, TurnRight); res.Outcome != OutcomeTurned {
			t.Fatalf("turn %d: %s", i, res.Outcome)
		}
	}
	if state.Facing != West {
		t.Errorf("expected west after four turns, got %s", state.Facing)
	}
	if state.Player != (Position{R: 1, C: 1}) {
		t.Errorf("turning moved the player to %s", state.Player)
	}
}

func TestStep_MoveOpen(t *testing.T) {
	state := createTestState(t, 3, 3, Tile{R: 2, C: 1, D: North, TID: TileSpawn})

	res := Step(state, MoveForward)

	if res.Outcome != OutcomeMoved {
		t.Fatalf("expected moved, got %s", res.Outcome)
	}
	if state.Player != (Position{R: 1, C: 1}) {
		t.Errorf("expected (1,1), got %s", state.Player)
	}
	if state.Grid.Count(Player) != 1 || state.Grid.At(state.Player) != PlayerCell {
		t.Error("player cell out of sync")
	}
}

func TestStep_ReservedCellIsWalkable(t *testing.T) {
	state := createTestState(t, 1, 3,
		Tile{R: 0, C: 0, D: East, TID: TileSpawn},
		Tile{R: 0, C: 1, TID: TileHome},
	)

	Step(state, MoveForward)
	res := Step(state, MoveForward)

	if res.Outcome != OutcomeMoved {
		t.Fatalf("expected moved, got %s", res.Outcome)
	}
	if state.Grid.At(Position{R: 0, C: 1}) != EmptyCell {
		t.Error("reserved cell should be cleared once the player leaves")
	}
}

func TestStep_PushBlocked(t *testing.T) {
	blockers := []TileID{TileForest, TileWater, TileLeaf, TileMushroom}
	for _, blocker := range blockers {
		t.Run(blocker.String(), func(t *testing.T) {
			state := createTestState(t, 3, 4,
				Tile{R: 1, C: 0, D: East, TID: TileSpawn},
				Tile{R: 1, C: 1, TID: TileMushroom},
				Tile{R: 1, C: 2, TID: blocker},
			)
			before := state.Clone()

			res := Step(state, MoveForward)

			if res.Outcome != OutcomePushBlocked {
				t.Fatalf("expected push_blocked, got %s", res.Outcome)
			}
			if state.Player != before.Player {
				t.Errorf("player moved to %s", state.Player)
			}
			if state.Grid.At(Position{R: 1, C: 1}) != PushableCell {
				t.Error("block moved")
			}
			if state.Grid.At(Position{R: 1, C: 2}) != before.Grid.At(Position{R: 1, C: 2}) {
				t.Error("blocking cell changed")
			}
			if !state.Alive {
				t.Error("blocked push should not kill")
			}
		})
	}
}

func TestStep_PushIntoBoundaryBlocked(t *testing.T) {
	state := createTestState(t, 1, 2,
		Tile{R: 0, C: 0, D: East, TID: TileSpawn},
		Tile{R: 0, C: 1, TID: TileMushroom},
	)

	res := Step(state, MoveForward)

	if res.Outcome != OutcomePushBlocked {
		t.Errorf("expected push_blocked at edge, got %s", res.Outcome)
	}
	if state.Player != (Position{R: 0, C: 0}) {
		t.Errorf("player moved to %s", state.Player)
	}
}

func TestStep_PushSucceeds(t *testing.T) {
	state := createTestState(t, 1, 4,
		Tile{R: 0, C: 0, D: East, TID: TileSpawn},
		Tile{R: 0, C: 1, TID: TileMushroom},
	)
	id := state.Pushables[Position{R: 0, C: 1}]

	res := Step(state, MoveForward)

	if res.Outcome != OutcomePushed {
		t.Fatalf("expected pushed, got %s", res.Outcome)
	}
	if state.Player != (Position{R: 0, C: 1}) {
		t.Errorf("expected player at (0,1), got %s", state.Player)
	}
	if state.Grid.At(Position{R: 0, C: 2}) != PushableCell {
		t.Error("block not at (0,2)")
	}
	if state.Grid.At(Position{R: 0, C: 0}) != EmptyCell {
		t.Error("source not cleared")
	}
	if got, ok := state.Pushables[Position{R: 0, C: 2}]; !ok || got != id {
		t.Errorf("pushables map not updated: %v", state.Pushables)
	}
	if _, ok := state.Pushables[Position{R: 0, C: 1}]; ok {
		t.Error("old block position still tracked")
	}
}

func TestStep_PushOntoGhost(t *testing.T) {
	state := createTestState(t, 1, 4,
		Tile{R: 0, C: 0, D: East, TID: TileSpawn},
		Tile{R: 0, C: 1, TID: TileMushroom},
		Tile{R: 0, C: 2, TID: TileGhost},
	)

	res := Step(state, MoveForward)

	if res.Outcome != OutcomePushed {
		t.Fatalf("expected pushed, got %s", res.Outcome)
	}
	if state.Grid.At(Position{R: 0, C: 2}) != PushableCell {
		t.Error("block should cover the ghost cell")
	}
}

func TestStep_WinOnlyOnFinalCollection(t *testing.T) {
	state := createTestState(t, 1, 4,
		Tile{R: 0, C: 0, D: East, TID: TileSpawn},
		Tile{R: 0, C: 1, TID: TileLeaf},
		Tile{R: 0, C: 3, TID: TileLeaf},
	)

	steps := []struct {
		outcome Outcome
		won     bool
	}{
		{OutcomeCollected, false},
		{OutcomeMoved, false},
		{OutcomeWon, true},
	}
	for i, want := range steps {
		res := Step(state, MoveForward)
		if res.Outcome != want.outcome || state.Won != want.won {
			t.Fatalf("step %d: got %s won=%v, want %s won=%v", i, res.Outcome, state.Won, want.outcome, want.won)
		}
	}
}

func TestStep_TerminalIgnoresCommands(t *testing.T) {
	state := createTestState(t, 3, 3, Tile{R: 0, C: 0, D: North, TID: TileSpawn})
	Step(state, MoveForward)

	for _, cmd := range []Command{MoveForward, TurnRight} {
		res := Step(state, cmd)
		if res.Outcome != OutcomeIgnoredTerminal {
			t.Errorf("%s after death: expected ignored_terminal, got %s", cmd, res.Outcome)
		}
	}
	if state.Facing != North {
		t.Error("turn applied after death")
	}
}

func TestStep_NoCollectiblesNeverWins(t *testing.T) {
	state := createTestState(t, 1, 3, Tile{R: 0, C: 0, D: East, TID: TileSpawn})
	Step(state, MoveForward)
	if state.Won {
		t.Error("level without leaves should not be won by moving")
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in      string
		want    Command
		wantErr bool
	}{
		{"forward", MoveForward, false},
		{" F ", MoveForward, false},
		{"move", MoveForward, false},
		{"turn", TurnRight, false},
		{"RIGHT", TurnRight, false},
		{"t", TurnRight, false},
		{"left", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCommand(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
