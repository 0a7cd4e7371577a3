package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wricardo/clara/game/engine"
	"github.com/wricardo/clara/game/placement"
	"github.com/wricardo/clara/game/world"
	"github.com/wricardo/clara/pkg/logger"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	levels   LevelManager
	planner  *placement.Planner
	defaults world.Options
	mu       sync.Mutex
}

// NewGameService creates a new game service instance. defaults supplies the
// placement and cooldown settings for sessions created without a config.
func NewGameService(sessions SessionManager, levels LevelManager, planner *placement.Planner, defaults world.Options) GameService {
	defaults.Placement = defaults.Placement.Normalize()
	return &gameServiceImpl{
		sessions: sessions,
		levels:   levels,
		planner:  planner,
		defaults: defaults,
	}
}

// CreateSession fetches a level, builds its world and stores it in a new session
func (s *gameServiceImpl) CreateSession(ctx context.Context, levelID string, cfg *placement.Config) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	level, err := s.levels.FetchLevel(ctx, levelID)
	if err != nil {
		if errors.Is(err, ErrLevelNotFound) {
			return nil, s.levelNotFound(ctx, levelID, err)
		}
		return nil, fmt.Errorf("failed to load level %s: %w", levelID, err)
	}

	opts := s.defaults
	if cfg != nil {
		opts.Placement = cfg.Normalize()
	}
	w, err := world.Build(s.planner, level, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build level %s: %w", levelID, err)
	}

	// Let the session manager generate the id
	sess, err := s.sessions.Create("", w)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"session": sess.ID,
		"level":   level.ID,
		"theme":   w.Options.Placement.Theme,
		"seed":    w.Options.Placement.Seed,
	}).Info("Session created")

	return sessionInfo(sess), nil
}

// levelNotFound lists the available ids to make the error actionable
func (s *gameServiceImpl) levelNotFound(ctx context.Context, levelID string, err error) error {
	infos, listErr := s.levels.ListLevels(ctx)
	if listErr != nil || len(infos) == 0 {
		return fmt.Errorf("level '%s': %w", levelID, err)
	}
	ids := make([]string, 0, len(infos))
	for _, info := range infos {
		ids = append(ids, info.ID)
	}
	return fmt.Errorf("level '%s': %w (available: %s)", levelID, err, strings.Join(ids, ", "))
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.touch(sessionID)
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions, oldest first
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.sessions.List()
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// Command executes a single command for a session
func (s *gameServiceImpl) Command(ctx context.Context, sessionID, command string, reload bool) (*CommandResult, error) {
	cmd, err := engine.ParseCommand(command)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.touch(sessionID)

	var events []GameEvent
	if reload {
		ev, err := s.reload(sess)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	eng := sess.Engine()
	res := eng.Execute(cmd)
	logCommand(sess.ID, res)
	events = append(events, resultEvents(res, time.Now())...)

	state := eng.Snapshot()
	result := &CommandResult{
		Success:   res.Success(),
		Result:    res,
		GameState: state,
		Message:   state.Message,
		Events:    events,
		Ahead:     aheadInfo(state),
	}

	s.autoSave(sessionID, "command")
	return result, nil
}

// BulkCommand executes several commands in order. Execution stops at the
// first command that ends the level or is ignored.
func (s *gameServiceImpl) BulkCommand(ctx context.Context, sessionID string, commands []string, reload bool) (*BulkCommandResult, error) {
	parsed := make([]engine.Command, 0, len(commands))
	for i, c := range commands {
		cmd, err := engine.ParseCommand(c)
		if err != nil {
			return nil, fmt.Errorf("%w: command %d: %v", ErrInvalidCommand, i+1, err)
		}
		parsed = append(parsed, cmd)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.touch(sessionID)

	result := &BulkCommandResult{
		RequestedCommands: len(parsed),
		Events:            make([]GameEvent, 0),
		Success:           true,
	}

	if reload {
		ev, err := s.reload(sess)
		if err != nil {
			return nil, err
		}
		result.Events = append(result.Events, ev)
	}

	eng := sess.Engine()
	start := eng.GetState()
	result.StartPos = start.Player
	startCollected := start.Collected

	// Limit commands to prevent abuse
	if len(parsed) > engine.MaxBulkCommands {
		result.Truncated = true
		result.Limit = engine.MaxBulkCommands
		parsed = parsed[:engine.MaxBulkCommands]
	}

	for i, cmd := range parsed {
		res := eng.Execute(cmd)
		logCommand(sess.ID, res)
		result.Results = append(result.Results, res)
		result.Events = append(result.Events, resultEvents(res, time.Now())...)

		if res.Accepted() {
			result.CommandsExecuted++
		}

		switch res.Outcome {
		case engine.OutcomeDied, engine.OutcomeWon:
			result.StopReasonCode = string(res.Outcome)
			result.StoppedReason = fmt.Sprintf("command %d (%s): %s", i+1, cmd, res.Outcome)
			result.StoppedOnCommand = i + 1
			result.Success = res.Outcome == engine.OutcomeWon
		case engine.OutcomePushBlocked, engine.OutcomeIgnoredLocked, engine.OutcomeIgnoredTerminal:
			result.StopReasonCode = string(res.Outcome)
			result.StoppedReason = fmt.Sprintf("command %d (%s) had no effect: %s", i+1, cmd, res.Outcome)
			result.StoppedOnCommand = i + 1
			result.Success = false
		}
		if result.StopReasonCode != "" {
			break
		}
	}

	state := eng.Snapshot()
	result.GameState = state
	result.EndPos = state.Player
	result.CollectedDelta = state.Collected - startCollected
	result.Phase = state.Phase
	result.Message = state.Message
	result.LocalView3x3 = state.LocalView3x3
	result.Ahead = aheadInfo(state)

	s.autoSave(sessionID, "bulk command")
	return result, nil
}

// Reload tears the session's world down and rebuilds it from the level
func (s *gameServiceImpl) Reload(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.touch(sessionID)

	if _, err := s.reload(sess); err != nil {
		return nil, err
	}
	s.autoSave(sessionID, "reload")
	return sess.Engine().Snapshot(), nil
}

// reload replaces the session's world with a fresh build of the same level.
// The cumulative command history survives.
func (s *gameServiceImpl) reload(sess *Session) (GameEvent, error) {
	prev := sess.Engine().GetState()

	w, err := world.Build(s.planner, sess.World.Level, sess.World.Options)
	if err != nil {
		return GameEvent{}, fmt.Errorf("failed to reload level %s: %w", sess.World.Level.ID, err)
	}
	state := w.Engine.GetState()
	state.History = prev.History
	state.TotalMoves = prev.TotalMoves
	sess.World = w

	logger.Log.WithField("session", sess.ID).WithField("level", w.Level.ID).Info("Level reloaded")
	return GameEvent{
		Type:      "reload",
		Message:   "Level reloaded",
		Timestamp: time.Now(),
		Position:  state.Player,
	}, nil
}

// GetGameState returns the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.touch(sessionID)
	return sess.Engine().Snapshot(), nil
}

// GetScene returns the planned scene of the session's level
func (s *gameServiceImpl) GetScene(ctx context.Context, sessionID string) (*placement.Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.World.Scene, nil
}

// GetCommandHistory returns paginated command history
func (s *gameServiceImpl) GetCommandHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine().GetCommandHistory()

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = defaultHistoryLimit
	}
	if opts.Limit > maxHistoryLimit {
		opts.Limit = maxHistoryLimit
	}
	if opts.Order != "asc" {
		opts.Order = "desc"
	}

	ordered := make([]engine.CommandHistoryEntry, len(history))
	copy(ordered, history)
	if opts.Order == "desc" {
		for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		}
	}

	total := len(ordered)
	totalPages := (total + opts.Limit - 1) / opts.Limit
	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return &HistoryResponse{
		Commands:      ordered[start:end],
		TotalCommands: total,
		Page:          opts.Page,
		PageSize:      opts.Limit,
		TotalPages:    totalPages,
		HasNext:       opts.Page < totalPages,
		HasPrevious:   opts.Page > 1,
	}, nil
}

// ListLevels returns every available level
func (s *gameServiceImpl) ListLevels(ctx context.Context) ([]*LevelInfo, error) {
	return s.levels.ListLevels(ctx)
}

// LoadLevel returns a level definition by id
func (s *gameServiceImpl) LoadLevel(ctx context.Context, levelID string) (*engine.Level, error) {
	return s.levels.FetchLevel(ctx, levelID)
}

// SaveLevel validates and stores a level definition
func (s *gameServiceImpl) SaveLevel(ctx context.Context, level *engine.Level) (*engine.Level, error) {
	if level == nil {
		return nil, fmt.Errorf("%w: level is required", engine.ErrInvalidLevel)
	}
	if err := engine.ValidateLevel(level); err != nil {
		return nil, err
	}
	return s.levels.SaveLevel(ctx, level)
}

func (s *gameServiceImpl) touch(sessionID string) {
	if err := s.sessions.UpdateLastAccessed(sessionID); err != nil {
		logger.Log.WithError(err).WithField("session", sessionID).Debug("Failed to update last access")
	}
}

// autoSave persists the session; failures are logged, never returned
func (s *gameServiceImpl) autoSave(sessionID, after string) {
	if err := s.sessions.Save(sessionID); err != nil {
		logger.Log.WithError(err).WithField("session", sessionID).
			Warnf("Failed to persist session after %s", after)
	}
}

func sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		LevelID:        sess.World.Level.ID,
		LevelName:      sess.World.Level.Name,
		Placement:      sess.World.Options.Placement,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine().Snapshot(),
	}
}

func logCommand(sessionID string, res engine.Result) {
	logger.Log.Infof("[CMD] session=%s %s %s->%s outcome=%s collected=%d",
		sessionID, res.Command, res.From, res.To, res.Outcome, res.Collected)
}

// resultEvents translates one command result into client-facing events
func resultEvents(res engine.Result, ts time.Time) []GameEvent {
	ev := func(typ, msg string) GameEvent {
		return GameEvent{Type: typ, Message: msg, Timestamp: ts, Position: res.To}
	}

	switch res.Outcome {
	case engine.OutcomeTurned:
		return []GameEvent{ev("command", fmt.Sprintf("Turned to face %s", res.Facing))}
	case engine.OutcomeMoved:
		return []GameEvent{ev("command", fmt.Sprintf("Moved to %s", res.To))}
	case engine.OutcomeCollected:
		return []GameEvent{ev("collected", fmt.Sprintf("Collected a leaf at %s (%d so far)", res.To, res.Collected))}
	case engine.OutcomeWon:
		return []GameEvent{
			ev("collected", fmt.Sprintf("Collected the last leaf at %s", res.To)),
			ev("win", "All leaves collected!"),
		}
	case engine.OutcomePushed:
		return []GameEvent{ev("pushed", fmt.Sprintf("Pushed a mushroom and moved to %s", res.To))}
	case engine.OutcomePushBlocked:
		return []GameEvent{ev("push_blocked", "The mushroom cannot move")}
	case engine.OutcomeDied:
		death := ev("death", fmt.Sprintf("Clara died at %s (%s)", res.Target, res.Cause))
		death.Position = res.Target
		return []GameEvent{death}
	}
	return []GameEvent{ev("ignored", fmt.Sprintf("Command ignored: %s", res.Outcome))}
}

func aheadInfo(state *engine.GameState) *CellInfo {
	p, cell, ok := state.Ahead()
	info := &CellInfo{Position: p, InBounds: ok}
	if ok {
		info.Code = cell.Code()
		info.Kind = cell.Kind.String()
		info.Char = cell.Char()
	} else {
		info.Kind = "boundary"
		info.Char = "#"
	}
	return info
}
