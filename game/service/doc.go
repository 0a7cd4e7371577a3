// Package service provides the business logic layer for Clara.
//
// The service package implements:
//   - Multi-session game management
//   - Level listing, loading and saving
//   - Command processing (single and bulk)
//   - Level reloads that keep the cumulative command history
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// LevelManager fetches and stores level definitions.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game world, providing session isolation and business logic
// orchestration. Each session owns one world: its level, rules engine and
// planned scene.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	levelSrc := levels.NewDirSource("boards")
//	gameService := service.NewGameService(sessionMgr, levelSrc, planner, world.Options{})
//
//	info, err := gameService.CreateSession(ctx, "first-steps", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.Command(ctx, info.ID, "forward", false)
package service
