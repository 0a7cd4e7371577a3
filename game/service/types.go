package service

import (
	"time"

	"github.com/wricardo/clara/game/engine"
	"github.com/wricardo/clara/game/placement"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string            `json:"id"`
	LevelID        string            `json:"level_id"`
	LevelName      string            `json:"level_name"`
	Placement      placement.Config  `json:"placement"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	GameState      *engine.GameState `json:"game_state"`
}

// CommandResult contains the result of one command
type CommandResult struct {
	Success   bool              `json:"success"`
	Result    engine.Result     `json:"result"`
	GameState *engine.GameState `json:"game_state"`
	Message   string            `json:"message"`
	Events    []GameEvent       `json:"events,omitempty"`
	Ahead     *CellInfo         `json:"ahead,omitempty"`
}

// BulkCommandResult contains the result of several commands
type BulkCommandResult struct {
	// Summary
	CommandsExecuted  int               `json:"commands_executed"`
	RequestedCommands int               `json:"requested_commands"`
	Success           bool              `json:"success"`
	GameState         *engine.GameState `json:"game_state"`
	Events            []GameEvent       `json:"events"`
	StoppedReason     string            `json:"stopped_reason,omitempty"`
	StopReasonCode    string            `json:"stop_reason_code,omitempty"` // died|won|push_blocked|ignored_locked|ignored_terminal
	StoppedOnCommand  int               `json:"stopped_on_command,omitempty"`
	Truncated         bool              `json:"truncated,omitempty"`
	Limit             int               `json:"limit,omitempty"`

	// Start/end snapshot
	StartPos       engine.Position `json:"start_pos"`
	EndPos         engine.Position `json:"end_pos"`
	CollectedDelta int             `json:"collected_delta"`

	// Per-command trace (only for this call)
	Results []engine.Result `json:"results,omitempty"`

	// Final status aids
	Phase        engine.Phase `json:"phase"`
	Message      string       `json:"message,omitempty"`
	LocalView3x3 []string     `json:"local_view_3x3,omitempty"`
	Ahead        *CellInfo    `json:"ahead,omitempty"`
}

// CellInfo describes one movement grid cell
type CellInfo struct {
	Position engine.Position `json:"position"`
	InBounds bool            `json:"in_bounds"`
	Code     int             `json:"code"`
	Kind     string          `json:"kind"`
	Char     string          `json:"char"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string          `json:"type"` // "command", "collected", "pushed", "push_blocked", "death", "win", "reload", "ignored"
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Position  engine.Position `json:"position"`
}

// HistoryOptions configures command history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated command history
type HistoryResponse struct {
	Commands      []engine.CommandHistoryEntry `json:"commands"`
	TotalCommands int                          `json:"total_commands"`
	Page          int                          `json:"page"`
	PageSize      int                          `json:"page_size"`
	TotalPages    int                          `json:"total_pages"`
	HasNext       bool                         `json:"has_next"`
	HasPrevious   bool                         `json:"has_previous"`
}

// LevelInfo provides information about a level definition
type LevelInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Rows         int    `json:"rows"`
	Columns      int    `json:"columns"`
	Collectibles int    `json:"collectibles"`
	Source       string `json:"source,omitempty"`
}

// NewLevelInfo summarizes a level
func NewLevelInfo(level *engine.Level, source string) *LevelInfo {
	return &LevelInfo{
		ID:           level.ID,
		Name:         level.Name,
		Rows:         level.Rows,
		Columns:      level.Columns,
		Collectibles: level.CountTiles(engine.TileLeaf),
		Source:       source,
	}
}
