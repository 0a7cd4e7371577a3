// Command validate checks every board JSON file in a directory
// (../boards by default). It checks:
//   - JSON structure, bounds, directions and tile ids
//   - Exactly one spawn tile and at least one leaf
//   - Connectivity: every leaf can be reached from the spawn over walkable cells
//   - Solvability: a winning command sequence exists within the search limit
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wricardo/clara/game/engine"
	"github.com/wricardo/clara/game/solver"
)

// searchLimit bounds the solver for each board
const searchLimit = 500_000

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...any) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validateBoard loads and validates a single board file
func validateBoard(ctx context.Context, filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	level, err := engine.LoadLevelFile(filePath)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	state, _, err := engine.NewGameState(level)
	if err != nil {
		result.fail("Failed to build grid: %v", err)
		return result
	}

	leaves := level.CountTiles(engine.TileLeaf)
	if leaves == 0 {
		result.fail("Must have at least 1 leaf (tid %d)", engine.TileLeaf)
		return result
	}

	connectivity := validateConnectivity(state)
	if !connectivity.Valid {
		result.Valid = false
		result.Errors = append(result.Errors, connectivity.Errors...)
		return result
	}
	result.Errors = append(result.Errors, connectivity.Errors...)

	start := time.Now()
	solution, err := solver.Solve(ctx, level, searchLimit)
	switch {
	case errors.Is(err, solver.ErrUnsolvable):
		result.fail("Unsolvable: no command sequence collects every leaf")
		return result
	case errors.Is(err, solver.ErrSearchLimit):
		result.Errors = append(result.Errors, fmt.Sprintf("⚠ Solvability unknown: search stopped after %d states", searchLimit))
	case err != nil:
		result.fail("Solver failed: %v", err)
		return result
	default:
		result.info("Solvable in %d commands (%d states, %s)", len(solution.Commands), solution.Explored, time.Since(start).Round(time.Millisecond))
	}

	result.info("Name: %s", level.Name)
	result.info("Grid: %dx%d", level.Rows, level.Columns)
	result.info("Leaves: %d", leaves)
	result.info("Mushrooms: %d", level.CountTiles(engine.TileMushroom))
	result.info("Ghosts: %d", level.CountTiles(engine.TileGhost))
	result.info("Water: %d", level.CountTiles(engine.TileWater))
	return result
}

// walkable reports whether the player can stand on c. Pushables count as
// walkable since they can usually be moved aside.
func walkable(c engine.Cell) bool {
	switch c.Kind {
	case engine.Empty, engine.Player, engine.Collectible, engine.Pushable, engine.Reserved:
		return true
	}
	return false
}

// validateConnectivity flood fills from the spawn with 4-directional
// movement and reports any leaf outside the filled region. Turning right
// three times faces any neighbour, so plain adjacency is enough.
func validateConnectivity(state *engine.GameState) ValidationResult {
	result := ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	grid := state.Grid
	visited := map[engine.Position]bool{state.Player: true}
	queue := []engine.Position{state.Player}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for d := engine.North; d <= engine.West; d++ {
			next := current.Step(d)
			if visited[next] || !grid.InBounds(next) || !walkable(grid.At(next)) {
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}

	var leaves, unreachable []engine.Position
	for r := 0; r < grid.Rows(); r++ {
		for c := 0; c < grid.Columns(); c++ {
			p := engine.Position{R: r, C: c}
			if grid.At(p).Kind != engine.Collectible {
				continue
			}
			leaves = append(leaves, p)
			if !visited[p] {
				unreachable = append(unreachable, p)
			}
		}
	}

	if len(unreachable) > 0 {
		result.fail("Connectivity failure: %d/%d leaves unreachable from spawn", len(unreachable), len(leaves))
		for _, p := range unreachable {
			result.Errors = append(result.Errors, fmt.Sprintf("Unreachable: Leaf at %s", p))
		}
		return result
	}
	result.info("Connectivity: All %d leaves reachable from spawn", len(leaves))
	return result
}

// main validates each *.json file in the directory given as the first
// argument, printing a concise report and exiting with non-zero status if any
// are invalid.
func main() {
	boardDir := "../boards"
	if len(os.Args) > 1 {
		boardDir = os.Args[1]
	}
	files, err := filepath.Glob(filepath.Join(boardDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding board files: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	allValid := true
	for _, file := range files {
		result := validateBoard(ctx, file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All boards are valid!")
	} else {
		fmt.Println("❌ Some boards have errors")
		os.Exit(1)
	}
}
