package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/clara/game/engine"
	"github.com/wricardo/clara/game/placement"
	"github.com/wricardo/clara/game/world"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrLevelNotFound   = errors.New("level not found")
	ErrInvalidCommand  = errors.New("invalid command")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, levelID string, cfg *placement.Config) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Command(ctx context.Context, sessionID, command string, reload bool) (*CommandResult, error)
	BulkCommand(ctx context.Context, sessionID string, commands []string, reload bool) (*BulkCommandResult, error)
	Reload(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetScene(ctx context.Context, sessionID string) (*placement.Scene, error)
	GetCommandHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Levels
	ListLevels(ctx context.Context) ([]*LevelInfo, error)
	LoadLevel(ctx context.Context, levelID string) (*engine.Level, error)
	SaveLevel(ctx context.Context, level *engine.Level) (*engine.Level, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, w *world.World) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// LevelManager fetches, lists and stores level definitions
type LevelManager interface {
	FetchLevel(ctx context.Context, id string) (*engine.Level, error)
	ListLevels(ctx context.Context) ([]*LevelInfo, error)
	SaveLevel(ctx context.Context, level *engine.Level) (*engine.Level, error)
}

// Session represents an active game session
type Session struct {
	ID             string
	World          *world.World
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// Engine returns the session's rules engine
func (s *Session) Engine() *engine.GameEngine {
	return s.World.Engine
}
