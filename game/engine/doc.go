// Package engine provides the core rules of the Clara island game.
//
// The engine package implements:
//   - Level definitions and their validation
//   - The movement grid and decoration eligibility grid built from a level
//   - The movement state machine (turn, move, push, collect, die, win)
//   - A cooldown debounce and death/win observers on GameEngine
//
// Core Types:
//
// Level is the sparse board definition loaded from JSON. BuildGrids turns it
// into a dense Grid of tagged cells plus an EligibilityGrid used by the
// placement planner. GameState holds everything that changes during play, and
// Step applies one Command to it. GameEngine wraps Step with the cooldown
// lock, command history and presentation callbacks.
//
// Usage:
//
//	level, err := engine.LoadLevelFile("boards/level1.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	eng, err := engine.NewEngine(level, engine.DefaultOptions())
//	if err != nil {
//		log.Fatal(err)
//	}
//	eng.OnWin(func(engine.Result) { fmt.Println("win") })
//
//	res := eng.MoveForward()
//	fmt.Println(res.Outcome)
//
// Game Rules:
//
// Clara walks one cell at a time in the direction she faces and can only turn
// right. Walking off the board, into forest, water or a ghost is fatal. Leaves
// are collected by walking onto them and the level is won when the last one
// is picked up. Mushrooms are pushed one cell ahead unless something blocks
// them.
package engine
