// Package solver searches a level for the shortest winning command sequence.
//
// The search is breadth-first over complete game states and uses engine.Step,
// so it plays by exactly the same rules as a session.
package solver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wricardo/clara/game/engine"
)

// DefaultLimit bounds the number of distinct states explored when the caller
// passes a non-positive limit.
const DefaultLimit = 200_000

var (
	ErrUnsolvable  = errors.New("level is unsolvable")
	ErrSearchLimit = errors.New("search limit reached")
)

// Solution is a shortest winning command sequence
type Solution struct {
	Commands []engine.Command
	Explored int
}

type node struct {
	state  *engine.GameState
	parent int
	cmd    engine.Command
}

// Solve runs the search from the level's initial state. A level without
// leaves can never be won and is reported unsolvable.
func Solve(ctx context.Context, level *engine.Level, limit int) (*Solution, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	start, _, err := engine.NewGameState(level)
	if err != nil {
		return nil, err
	}
	if start.CollectibleTotal == 0 {
		return nil, fmt.Errorf("%w: no leaves to collect", ErrUnsolvable)
	}

	nodes := []node{{state: start, parent: -1}}
	seen := map[string]bool{key(start): true}

	for head := 0; head < len(nodes); head++ {
		if head%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		for _, cmd := range []engine.Command{engine.MoveForward, engine.TurnRight} {
			next := nodes[head].state.Clone()
			res := engine.Step(next, cmd)
			if res.Dead || !res.Accepted() {
				continue
			}
			k := key(next)
			if seen[k] {
				continue
			}
			seen[k] = true
			nodes = append(nodes, node{state: next, parent: head, cmd: cmd})

			if res.Won {
				return &Solution{Commands: path(nodes, len(nodes)-1), Explored: len(seen)}, nil
			}
			if len(seen) >= limit {
				return nil, fmt.Errorf("%w after %d states", ErrSearchLimit, len(seen))
			}
		}
	}
	return nil, fmt.Errorf("%w: %d states explored", ErrUnsolvable, len(seen))
}

// key identifies a state by its grid, position and facing. Collected count
// and pushable ids follow from the grid.
func key(gs *engine.GameState) string {
	var b strings.Builder
	for _, row := range engine.RenderGrid(gs.Grid) {
		b.WriteString(row)
	}
	fmt.Fprintf(&b, "|%d,%d,%d", gs.Player.R, gs.Player.C, gs.Facing)
	return b.String()
}

func path(nodes []node, i int) []engine.Command {
	var cmds []engine.Command
	for ; nodes[i].parent >= 0; i = nodes[i].parent {
		cmds = append(cmds, nodes[i].cmd)
	}
	for l, r := 0, len(cmds)-1; l < r; l, r = l+1, r-1 {
		cmds[l], cmds[r] = cmds[r], cmds[l]
	}
	return cmds
}

// Format renders commands compactly, e.g. "F F R F"
func Format(cmds []engine.Command) string {
	parts := make([]string, len(cmds))
	for i, c := range cmds {
		if c == engine.TurnRight {
			parts[i] = "R"
		} else {
			parts[i] = "F"
		}
	}
	return strings.Join(parts, " ")
}

// Strings converts commands to their wire names for bulk requests
func Strings(cmds []engine.Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = string(c)
	}
	return out
}
