package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/wricardo/clara/game/assets"
	"github.com/wricardo/clara/game/engine"
	"github.com/wricardo/clara/game/placement"
	"github.com/wricardo/clara/game/service"
	"github.com/wricardo/clara/game/world"
)

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	sessions map[string]*service.Session
	saves    int
	SaveFunc func(id string) error
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
	}
}

func (m *MockSessionManager) Create(id string, w *world.World) (*service.Session, error) {
	// Generate ID if empty (mimics real session manager behavior)
	if id == "" {
		id = fmt.Sprintf("test_%d", len(m.sessions)+1)
	}
	if _, exists := m.sessions[id]; exists {
		return nil, errors.New("session already exists")
	}
	session := &service.Session{
		ID:             id,
		World:          w,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}
	m.sessions[id] = session
	return session, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	session, exists := m.sessions[id]
	if !exists {
		return nil, service.ErrSessionNotFound
	}
	return session, nil
}

func (m *MockSessionManager) List() []*service.Session {
	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	if _, exists := m.sessions[id]; !exists {
		return service.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	if session, exists := m.sessions[id]; exists {
		session.LastAccessedAt = time.Now()
	}
	return nil
}

func (m *MockSessionManager) Save(id string) error {
	m.saves++
	if m.SaveFunc != nil {
		return m.SaveFunc(id)
	}
	return nil
}

// MockLevelManager implements service.LevelManager for testing
type MockLevelManager struct {
	levels map[string]*engine.Level
}

func (m *MockLevelManager) FetchLevel(ctx context.Context, id string) (*engine.Level, error) {
	level, ok := m.levels[id]
	if !ok {
		return nil, service.ErrLevelNotFound
	}
	return level, nil
}

func (m *MockLevelManager) ListLevels(ctx context.Context) ([]*service.LevelInfo, error) {
	var out []*service.LevelInfo
	for _, level := range m.levels {
		out = append(out, service.NewLevelInfo(level, "mock"))
	}
	return out, nil
}

func (m *MockLevelManager) SaveLevel(ctx context.Context, level *engine.Level) (*engine.Level, error) {
	m.levels[level.ID] = level
	return level, nil
}

// Spawn at (1,0) facing east with two leaves straight ahead
func testLevel() *engine.Level {
	return &engine.Level{
		ID: "path", Name: "Path", Rows: 3, Columns: 3,
		Tiles: []engine.Tile{
			{R: 1, C: 0, D: engine.East, TID: engine.TileSpawn},
			{R: 1, C: 1, TID: engine.TileLeaf},
			{R: 1, C: 2, TID: engine.TileLeaf},
		},
	}
}

func createTestService(t *testing.T) (service.GameService, *MockSessionManager) {
	t.Helper()
	atlas, err := world.Preload(context.Background(), assets.ManifestLoader{}, nil)
	if err != nil {
		t.Fatalf("Preload failed: %v", err)
	}
	sessions := NewMockSessionManager()
	levels := &MockLevelManager{levels: map[string]*engine.Level{"path": testLevel()}}
	svc := service.NewGameService(sessions, levels, placement.NewPlanner(nil, atlas), world.Options{
		Placement: placement.Config{DetailLevel: 1, Seed: 7},
	})
	return svc, sessions
}

func createTestSession(t *testing.T, svc service.GameService) string {
	t.Helper()
	info, err := svc.CreateSession(context.Background(), "path", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	return info.ID
}

func TestGameService_CreateSession(t *testing.T) {
	svc, _ := createTestService(t)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, "path", &placement.Config{DetailLevel: 9, Theme: assets.ThemeSpace, Seed: 3})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if info.LevelID != "path" || info.LevelName != "Path" {
		t.Errorf("unexpected level info: %+v", info)
	}
	if info.Placement.DetailLevel != 3 || info.Placement.Theme != assets.ThemeSpace {
		t.Errorf("placement config not normalized: %+v", info.Placement)
	}
	if info.GameState.CollectibleTotal != 2 {
		t.Errorf("expected 2 collectibles, got %d", info.GameState.CollectibleTotal)
	}

	_, err = svc.CreateSession(ctx, "missing", nil)
	if !errors.Is(err, service.ErrLevelNotFound) {
		t.Errorf("expected ErrLevelNotFound, got %v", err)
	}
}

func TestGameService_Command(t *testing.T) {
	svc, sessions := createTestService(t)
	ctx := context.Background()
	id := createTestSession(t, svc)

	res, err := svc.Command(ctx, id, "forward", false)
	if err != nil {
		t.Fatalf("Command failed: %v", err)
	}
	if res.Result.Outcome != engine.OutcomeCollected || !res.Success {
		t.Errorf("expected collected, got %s", res.Result.Outcome)
	}

	res, err = svc.Command(ctx, id, "f", false)
	if err != nil {
		t.Fatalf("Command failed: %v", err)
	}
	if res.Result.Outcome != engine.OutcomeWon {
		t.Fatalf("expected won, got %s", res.Result.Outcome)
	}
	var sawWin bool
	for _, ev := range res.Events {
		if ev.Type == "win" {
			sawWin = true
		}
	}
	if !sawWin {
		t.Error("expected a win event")
	}
	if res.Ahead == nil || res.Ahead.InBounds {
		t.Errorf("expected boundary ahead, got %+v", res.Ahead)
	}
	if sessions.saves != 2 {
		t.Errorf("expected an auto-save per command, got %d", sessions.saves)
	}

	res, err = svc.Command(ctx, id, "forward", false)
	if err != nil {
		t.Fatalf("Command failed: %v", err)
	}
	if res.Result.Outcome != engine.OutcomeIgnoredTerminal {
		t.Errorf("expected ignored_terminal after win, got %s", res.Result.Outcome)
	}
}

func TestGameService_CommandErrors(t *testing.T) {
	svc, _ := createTestService(t)
	ctx := context.Background()
	id := createTestSession(t, svc)

	if _, err := svc.Command(ctx, id, "jump", false); !errors.Is(err, service.ErrInvalidCommand) {
		t.Errorf("expected ErrInvalidCommand, got %v", err)
	}
	if _, err := svc.Command(ctx, "nope", "forward", false); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestGameService_AutoSaveFailureIsNotFatal(t *testing.T) {
	svc, sessions := createTestService(t)
	id := createTestSession(t, svc)
	sessions.SaveFunc = func(string) error { return errors.New("disk full") }

	if _, err := svc.Command(context.Background(), id, "turn_right", false); err != nil {
		t.Errorf("save failure leaked into command: %v", err)
	}
}

func TestGameService_BulkCommand(t *testing.T) {
	tests := []struct {
		name         string
		commands     []string
		wantExecuted int
		wantCode     string
		wantSuccess  bool
		wantStopOn   int
	}{
		{
			name:         "win stops execution",
			commands:     []string{"forward", "forward", "turn_right"},
			wantExecuted: 2,
			wantCode:     "won",
			wantSuccess:  true,
			wantStopOn:   2,
		},
		{
			name:         "death stops execution",
			commands:     []string{"turn_right", "forward", "forward", "turn_right"},
			wantExecuted: 3,
			wantCode:     "died",
			wantSuccess:  false,
			wantStopOn:   3,
		},
		{
			name:         "all commands run",
			commands:     []string{"turn_right", "turn_right"},
			wantExecuted: 2,
			wantSuccess:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := createTestService(t)
			id := createTestSession(t, svc)

			res, err := svc.BulkCommand(context.Background(), id, tt.commands, false)
			if err != nil {
				t.Fatalf("BulkCommand failed: %v", err)
			}
			if res.CommandsExecuted != tt.wantExecuted {
				t.Errorf("executed %d, want %d", res.CommandsExecuted, tt.wantExecuted)
			}
			if res.StopReasonCode != tt.wantCode {
				t.Errorf("stop code %q, want %q", res.StopReasonCode, tt.wantCode)
			}
			if res.Success != tt.wantSuccess {
				t.Errorf("success %v, want %v", res.Success, tt.wantSuccess)
			}
			if res.StoppedOnCommand != tt.wantStopOn {
				t.Errorf("stopped on %d, want %d", res.StoppedOnCommand, tt.wantStopOn)
			}
			if res.RequestedCommands != len(tt.commands) {
				t.Errorf("requested %d, want %d", res.RequestedCommands, len(tt.commands))
			}
		})
	}
}

func TestGameService_DeathEventReportsFatalCell(t *testing.T) {
	svc, _ := createTestService(t)
	id := createTestSession(t, svc)

	// South from (1,0) to (2,0), then off the bottom edge
	res, err := svc.BulkCommand(context.Background(), id, []string{"turn_right", "forward", "forward"}, false)
	if err != nil {
		t.Fatalf("BulkCommand failed: %v", err)
	}
	if res.StopReasonCode != "died" || res.Phase != engine.PhaseDead {
		t.Fatalf("expected death, got %q phase %q", res.StopReasonCode, res.Phase)
	}
	if res.EndPos != (engine.Position{R: 2, C: 0}) {
		t.Errorf("expected player to stay at (2,0), got %s", res.EndPos)
	}

	var death *service.GameEvent
	for i := range res.Events {
		if res.Events[i].Type == "death" {
			death = &res.Events[i]
		}
	}
	if death == nil {
		t.Fatal("expected a death event")
	}
	want := engine.Position{R: 3, C: 0}
	if death.Position != want {
		t.Errorf("expected death at %s, got %s", want, death.Position)
	}
	if death.Message != "Clara died at (3,0) (boundary)" {
		t.Errorf("unexpected death message %q", death.Message)
	}
}

func TestGameService_BulkCommandTruncates(t *testing.T) {
	svc, _ := createTestService(t)
	id := createTestSession(t, svc)

	cmds := make([]string, engine.MaxBulkCommands+10)
	for i := range cmds {
		cmds[i] = "turn_right"
	}
	res, err := svc.BulkCommand(context.Background(), id, cmds, false)
	if err != nil {
		t.Fatalf("BulkCommand failed: %v", err)
	}
	if !res.Truncated || res.Limit != engine.MaxBulkCommands {
		t.Errorf("expected truncation at %d, got %+v", engine.MaxBulkCommands, res)
	}
	if res.CommandsExecuted != engine.MaxBulkCommands {
		t.Errorf("expected %d executed, got %d", engine.MaxBulkCommands, res.CommandsExecuted)
	}
}

func TestGameService_BulkCommandRejectsUnknown(t *testing.T) {
	svc, _ := createTestService(t)
	id := createTestSession(t, svc)

	_, err := svc.BulkCommand(context.Background(), id, []string{"forward", "fly"}, false)
	if !errors.Is(err, service.ErrInvalidCommand) {
		t.Errorf("expected ErrInvalidCommand, got %v", err)
	}
	state, _ := svc.GetGameState(context.Background(), id)
	if state.TotalMoves != 0 {
		t.Error("a rejected batch must not execute any command")
	}
}

func TestGameService_ReloadKeepsHistory(t *testing.T) {
	svc, _ := createTestService(t)
	ctx := context.Background()
	id := createTestSession(t, svc)

	scene, err := svc.GetScene(ctx, id)
	if err != nil {
		t.Fatalf("GetScene failed: %v", err)
	}

	if _, err := svc.Command(ctx, id, "forward", false); err != nil {
		t.Fatal(err)
	}
	state, err := svc.Reload(ctx, id)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if state.Collected != 0 || state.Player != (engine.Position{R: 1, C: 0}) {
		t.Errorf("reload did not restore the level: %+v", state.Player)
	}
	if state.TotalMoves != 1 || len(state.History) != 1 {
		t.Errorf("expected cumulative history to survive, got %d", state.TotalMoves)
	}
	if len(state.CurrentMoves) != 0 {
		t.Error("expected a fresh current segment")
	}

	reloaded, _ := svc.GetScene(ctx, id)
	if reloaded == scene {
		t.Error("reload reused the previous scene")
	}
	if len(reloaded.Objects) != len(scene.Objects) {
		t.Errorf("same seed should plan the same scene: %d vs %d", len(reloaded.Objects), len(scene.Objects))
	}
}

func TestGameService_CommandWithReload(t *testing.T) {
	svc, _ := createTestService(t)
	ctx := context.Background()
	id := createTestSession(t, svc)

	// Walk off the board, then reload and move in one call
	if _, err := svc.BulkCommand(ctx, id, []string{"turn_right", "forward", "forward"}, false); err != nil {
		t.Fatal(err)
	}
	res, err := svc.Command(ctx, id, "forward", true)
	if err != nil {
		t.Fatal(err)
	}
	if res.Result.Outcome != engine.OutcomeCollected {
		t.Errorf("expected collected after reload, got %s", res.Result.Outcome)
	}
	if len(res.Events) == 0 || res.Events[0].Type != "reload" {
		t.Errorf("expected a leading reload event, got %+v", res.Events)
	}
}

func TestGameService_GetCommandHistory(t *testing.T) {
	svc, _ := createTestService(t)
	ctx := context.Background()
	id := createTestSession(t, svc)

	if _, err := svc.BulkCommand(ctx, id, []string{"turn_right", "turn_right", "turn_right", "turn_right", "turn_right"}, false); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		opts      service.HistoryOptions
		wantFirst int
		wantLen   int
		wantPages int
		wantNext  bool
	}{
		{"defaults are newest first", service.HistoryOptions{}, 5, 5, 1, false},
		{"paged desc", service.HistoryOptions{Page: 1, Limit: 2}, 5, 2, 3, true},
		{"paged asc", service.HistoryOptions{Page: 2, Limit: 2, Order: "asc"}, 3, 2, 3, true},
		{"past the end", service.HistoryOptions{Page: 9, Limit: 2}, 0, 0, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.GetCommandHistory(ctx, id, tt.opts)
			if err != nil {
				t.Fatalf("GetCommandHistory failed: %v", err)
			}
			if len(resp.Commands) != tt.wantLen {
				t.Fatalf("got %d commands, want %d", len(resp.Commands), tt.wantLen)
			}
			if tt.wantLen > 0 && resp.Commands[0].CommandNumber != tt.wantFirst {
				t.Errorf("first command #%d, want #%d", resp.Commands[0].CommandNumber, tt.wantFirst)
			}
			if resp.TotalPages != tt.wantPages || resp.HasNext != tt.wantNext {
				t.Errorf("pages=%d next=%v, want %d %v", resp.TotalPages, resp.HasNext, tt.wantPages, tt.wantNext)
			}
			if resp.TotalCommands != 5 {
				t.Errorf("expected 5 total, got %d", resp.TotalCommands)
			}
		})
	}
}

func TestGameService_SaveLevel(t *testing.T) {
	svc, _ := createTestService(t)
	ctx := context.Background()

	_, err := svc.SaveLevel(ctx, &engine.Level{ID: "bad", Rows: 2, Columns: 2})
	if !errors.Is(err, engine.ErrMissingSpawn) {
		t.Errorf("expected ErrMissingSpawn, got %v", err)
	}

	level := testLevel()
	level.ID = "copy"
	if _, err := svc.SaveLevel(ctx, level); err != nil {
		t.Fatalf("SaveLevel failed: %v", err)
	}
	got, err := svc.LoadLevel(ctx, "copy")
	if err != nil || got.Name != "Path" {
		t.Errorf("expected saved level back, got %v %v", got, err)
	}
	infos, _ := svc.ListLevels(ctx)
	if len(infos) != 2 {
		t.Errorf("expected 2 levels, got %d", len(infos))
	}
}

func TestGameService_DeleteSession(t *testing.T) {
	svc, _ := createTestService(t)
	ctx := context.Background()
	id := createTestSession(t, svc)

	list, _ := svc.ListSessions(ctx)
	if len(list) != 1 {
		t.Fatalf("expected 1 session, got %d", len(list))
	}
	if err := svc.DeleteSession(ctx, id); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetSession(ctx, id); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}
