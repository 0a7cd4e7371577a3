package engine

import (
	"fmt"
)

// Step applies one command to the state using the game rules only. It does not
// know about cooldowns; callers that debounce input check their lock first.
// Rejected commands leave the state untouched.
func Step(gs *GameState, cmd Command) Result {
	res := Result{
		Command:   cmd,
		From:      gs.Player,
		To:        gs.Player,
		Target:    gs.Player,
		Facing:    gs.Facing,
		Collected: gs.Collected,
		Won:       gs.Won,
		Dead:      !gs.Alive,
	}

	if gs.Terminal() {
		res.Outcome = OutcomeIgnoredTerminal
		return res
	}

	switch cmd {
	case TurnRight:
		gs.Facing = gs.Facing.Next()
		gs.Message = fmt.Sprintf("Facing %s", gs.Facing)
		res.Facing = gs.Facing
		res.Outcome = OutcomeTurned
	case MoveForward:
		res = gs.moveForward(res)
	default:
		res.Outcome = OutcomeInvalid
	}
	return res
}

func (gs *GameState) moveForward(res Result) Result {
	target := gs.Player.Step(gs.Facing)
	res.Target = target

	if !gs.Grid.InBounds(target) {
		return gs.die(res, CauseBoundary, target)
	}

	switch cell := gs.Grid.At(target); cell.Kind {
	case Obstacle:
		return gs.die(res, CauseObstacle, target)
	case Hazard:
		return gs.die(res, CauseHazard, target)
	case HazardEntity:
		return gs.die(res, CauseLethalEntity, target)

	case Collectible:
		gs.relocatePlayer(target)
		gs.Collected++
		res.Collected = gs.Collected
		res.To = target
		res.Outcome = OutcomeCollected
		gs.Message = fmt.Sprintf("Leaf collected! %d/%d", gs.Collected, gs.CollectibleTotal)
		if gs.Collected == gs.CollectibleTotal {
			gs.Won = true
			res.Won = true
			res.Outcome = OutcomeWon
			gs.Message = fmt.Sprintf("All %d leaves collected. You win!", gs.CollectibleTotal)
		}
		return res

	case Pushable:
		if !gs.resolvePush(target) {
			res.Outcome = OutcomePushBlocked
			gs.Message = fmt.Sprintf("The mushroom at %s will not budge", target)
			return res
		}
		gs.relocatePlayer(target)
		res.To = target
		res.Outcome = OutcomePushed
		gs.Message = fmt.Sprintf("Pushed the mushroom to %s", target.Step(gs.Facing))
		return res

	default:
		// Empty and reserved cells are walkable; a reserved tile is consumed
		// once the player steps on it.
		gs.relocatePlayer(target)
		res.To = target
		res.Outcome = OutcomeMoved
		gs.Message = fmt.Sprintf("Moved %s to %s", gs.Facing, target)
		return res
	}
}

func (gs *GameState) die(res Result, cause Cause, target Position) Result {
	gs.Alive = false
	gs.Message = fmt.Sprintf("You died: %s at %s", cause, target)
	res.Outcome = OutcomeDied
	res.Cause = cause
	res.Dead = true
	return res
}

// relocatePlayer clears the source cell and marks the target. The grid cell
// and the tracked coordinate change together.
func (gs *GameState) relocatePlayer(target Position) {
	gs.Grid.Set(gs.Player, EmptyCell)
	gs.Grid.Set(target, PlayerCell)
	gs.Player = target
}

// resolvePush tries to shift the block at blockPos one cell along the
// player's facing. On success the block's new cell is marked and the
// pushables map follows it; the old cell is left for the player to overwrite.
func (gs *GameState) resolvePush(blockPos Position) bool {
	if !gs.CanPush(blockPos) {
		return false
	}
	beyond := blockPos.Step(gs.Facing)
	gs.Grid.Set(beyond, PushableCell)
	id := gs.Pushables[blockPos]
	delete(gs.Pushables, blockPos)
	gs.Pushables[beyond] = id
	return true
}

// CanPush reports whether the block at blockPos could be pushed along the
// player's facing.
func (gs *GameState) CanPush(blockPos Position) bool {
	beyond := blockPos.Step(gs.Facing)
	if !gs.Grid.InBounds(beyond) {
		return false
	}
	switch gs.Grid.At(beyond).Kind {
	case Obstacle, Hazard, Collectible, Pushable, Player:
		return false
	}
	return true
}

// AddCommandToHistory records a command and its result
func (gs *GameState) AddCommandToHistory(res Result, timestamp int64) {
	entry := CommandHistoryEntry{
		Command:       res.Command,
		Outcome:       res.Outcome,
		Cause:         res.Cause,
		FromPosition:  res.From,
		ToPosition:    res.To,
		Facing:        res.Facing,
		Collected:     res.Collected,
		Timestamp:     timestamp,
		Success:       res.Success(),
		CommandNumber: gs.TotalMoves + 1,
	}
	// Cumulative history survives resets, the current segment does not
	gs.History = append(gs.History, entry)
	gs.TotalMoves++
	gs.CurrentMoves = append(gs.CurrentMoves, entry)
}
