// Package session provides session management for Clara.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session expiry
//   - File snapshots of sessions
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// Each session owns one world (level, engine and scene) plus its creation and
// last access times.
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs for easy reference. Lookups are
// case-insensitive.
//
// Persistence:
//
// FilePersistence writes sessions/<id>.json with the level id, the placement
// config and the engine snapshot. Loading fetches the level again, replans
// the scene from the stored seed and restores the snapshot.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", w)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sessionID)
package session
