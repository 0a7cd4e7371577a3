// Command analyze prints quick, human-readable heuristics about the board
// files in a directory (boards by default). It summarizes dimensions, tile
// counts, decoration sites, the nearest leaf from the spawn and the length of
// the shortest solution.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/wricardo/clara/game/engine"
	"github.com/wricardo/clara/game/placement"
	"github.com/wricardo/clara/game/solver"
)

// solveTimeout caps the solver per board
const solveTimeout = 10 * time.Second

// Analysis is the summary of one board
type Analysis struct {
	File           string
	Level          *engine.Level
	Counts         map[engine.CellKind]int
	EligibleCells  int
	StructureSites []engine.Position
	NearestLeaf    engine.Position
	NearestDist    int
	Solution       *solver.Solution
	SolveErr       error
}

func main() {
	dir := "boards"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding boards: %v\n", err)
		os.Exit(1)
	}

	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(file))
		a, err := analyzeBoard(context.Background(), file)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		printAnalysis(os.Stdout, a)
	}
}

func analyzeBoard(ctx context.Context, path string) (*Analysis, error) {
	level, err := engine.LoadLevelFile(path)
	if err != nil {
		return nil, err
	}
	state, elig, err := engine.NewGameState(level)
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		File:   filepath.Base(path),
		Level:  level,
		Counts: make(map[engine.CellKind]int),
	}
	for _, row := range state.Grid {
		for _, cell := range row {
			a.Counts[cell.Kind]++
		}
	}
	for _, row := range elig {
		for _, ok := range row {
			if ok {
				a.EligibleCells++
			}
		}
	}
	a.StructureSites = placement.FindStructureSites(state.Grid, elig.Clone())

	if p, d, ok := engine.FindNearestCollectible(state); ok {
		a.NearestLeaf, a.NearestDist = p, d
	} else {
		a.NearestDist = -1
	}

	ctx, cancel := context.WithTimeout(ctx, solveTimeout)
	defer cancel()
	a.Solution, a.SolveErr = solver.Solve(ctx, level, 0)
	return a, nil
}

func printAnalysis(w io.Writer, a *Analysis) {
	level := a.Level
	spawn, _ := level.Spawn()

	fmt.Fprintf(w, "Name: %s (%s)\n", level.Name, level.ID)
	fmt.Fprintf(w, "Grid Size: %d x %d\n", level.Rows, level.Columns)
	fmt.Fprintf(w, "Spawn: %s facing %s\n", spawn.Position(), spawn.D)
	fmt.Fprintf(w, "Leaves: %d\n", a.Counts[engine.Collectible])
	fmt.Fprintf(w, "Forest: %d  Water: %d  Mushrooms: %d  Ghosts: %d  Reserved: %d\n",
		a.Counts[engine.Obstacle], a.Counts[engine.Hazard], a.Counts[engine.Pushable],
		a.Counts[engine.HazardEntity], a.Counts[engine.Reserved])
	fmt.Fprintf(w, "Decoration-eligible cells: %d\n", a.EligibleCells)
	fmt.Fprintf(w, "Structure sites: %d\n", len(a.StructureSites))

	if a.NearestDist >= 0 {
		fmt.Fprintf(w, "Nearest leaf: %s, %d steps\n", a.NearestLeaf, a.NearestDist)
	}

	switch {
	case a.SolveErr == nil:
		fmt.Fprintf(w, "✅ Solvable in %d commands: %s\n", len(a.Solution.Commands), solver.Format(a.Solution.Commands))
	case errors.Is(a.SolveErr, solver.ErrUnsolvable):
		fmt.Fprintf(w, "⚠️  CRITICAL: no command sequence collects every leaf\n")
	case errors.Is(a.SolveErr, solver.ErrSearchLimit), errors.Is(a.SolveErr, context.DeadlineExceeded):
		fmt.Fprintf(w, "⚠️  WARNING: solver gave up (%v)\n", a.SolveErr)
	default:
		fmt.Fprintf(w, "Solver error: %v\n", a.SolveErr)
	}
}
