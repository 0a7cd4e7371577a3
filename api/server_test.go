package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/wricardo/clara/game/assets"
	"github.com/wricardo/clara/game/engine"
	"github.com/wricardo/clara/game/placement"
	"github.com/wricardo/clara/game/service"
	"github.com/wricardo/clara/game/session"
	"github.com/wricardo/clara/game/world"
	"github.com/wricardo/clara/transport/websocket"
)

// levelStore implements service.LevelManager over a map
type levelStore map[string]*engine.Level

func (m levelStore) FetchLevel(ctx context.Context, id string) (*engine.Level, error) {
	level, ok := m[id]
	if !ok {
		return nil, service.ErrLevelNotFound
	}
	return level, nil
}

func (m levelStore) ListLevels(ctx context.Context) ([]*service.LevelInfo, error) {
	var out []*service.LevelInfo
	for _, level := range m {
		out = append(out, service.NewLevelInfo(level, "memory"))
	}
	return out, nil
}

func (m levelStore) SaveLevel(ctx context.Context, level *engine.Level) (*engine.Level, error) {
	m[level.ID] = level
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

type fixture struct {
	server *Server
	levels levelStore
	hub    *websocket.Hub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	atlas, err := world.Preload(context.Background(), assets.ManifestLoader{}, nil)
	if err != nil {
		t.Fatalf("Preload failed: %v", err)
	}
	levels := levelStore{"path": testLevel()}
	svc := service.NewGameService(session.NewManager(), levels, placement.NewPlanner(nil, atlas), world.Options{
		Placement: placement.Config{DetailLevel: 1, Seed: 3},
	})

	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	return &fixture{server: NewServer(svc, hub), levels: levels, hub: hub}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.server.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode %q: %v", w.Body.String(), err)
	}
	return v
}

func (f *fixture) createSession(t *testing.T) string {
	t.Helper()
	w := f.do(t, "POST", "/api/sessions", map[string]string{"level_id": "path"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return decode[service.SessionInfo](t, w).ID
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, "GET", "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if got := decode[map[string]string](t, w)["status"]; got != "healthy" {
		t.Errorf("Expected healthy, got %q", got)
	}
}

func TestBoards(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, "GET", "/api/boards", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	boards := decode[[]service.LevelInfo](t, w)
	if len(boards) != 1 || boards[0].ID != "path" || boards[0].Collectibles != 2 {
		t.Errorf("Unexpected boards: %+v", boards)
	}

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"by path", "/api/boards/path", http.StatusOK},
		{"by query", "/api/board?id=path", http.StatusOK},
		{"missing query id", "/api/board", http.StatusBadRequest},
		{"unknown", "/api/boards/nope", http.StatusNotFound},
		{"unknown by query", "/api/board?id=nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, "GET", tt.path, nil)
			if w.Code != tt.status {
				t.Fatalf("Expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			if tt.status == http.StatusOK {
				level := decode[engine.Level](t, w)
				if level.ID != "path" || len(level.Tiles) != 3 {
					t.Errorf("Unexpected level: %+v", level)
				}
			}
		})
	}
}

func TestSaveBoard(t *testing.T) {
	f := newFixture(t)

	level := testLevel()
	level.ID = "copy"
	w := f.do(t, "POST", "/api/boards", level)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if _, ok := f.levels["copy"]; !ok {
		t.Error("Expected level to be stored")
	}

	noSpawn := &engine.Level{ID: "bad", Rows: 2, Columns: 2}
	if w := f.do(t, "POST", "/api/boards", noSpawn); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a level without spawn, got %d", w.Code)
	}
	if w := f.do(t, "POST", "/api/boards", "{not json"); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed body, got %d", w.Code)
	}
}

func TestCreateSession(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"level id", map[string]string{"level_id": "path"}, http.StatusCreated},
		{"board id alias", map[string]string{"board_id": "path"}, http.StatusCreated},
		{"with placement", map[string]any{"level_id": "path", "placement": map[string]any{"detail_level": 3, "theme": "space", "seed": 9}}, http.StatusCreated},
		{"unknown level", map[string]string{"level_id": "missing"}, http.StatusNotFound},
		{"malformed", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, "POST", "/api/sessions", tt.body)
			if w.Code != tt.status {
				t.Fatalf("Expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			if tt.status != http.StatusCreated {
				return
			}
			info := decode[service.SessionInfo](t, w)
			if info.ID == "" || info.LevelID != "path" {
				t.Errorf("Unexpected session: %+v", info)
			}
			if info.GameState == nil || info.GameState.Player != (engine.Position{R: 1, C: 0}) {
				t.Errorf("Expected player at spawn, got %+v", info.GameState)
			}
		})
	}
}

func TestListAndDeleteSessions(t *testing.T) {
	f := newFixture(t)
	first := f.createSession(t)
	time.Sleep(2 * time.Millisecond)
	second := f.createSession(t)

	w := f.do(t, "GET", "/api/sessions?sort=created&order=asc", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	list := decode[struct {
		Count    int                   `json:"count"`
		Total    int                   `json:"total"`
		Sessions []service.SessionInfo `json:"sessions"`
	}](t, w)
	if list.Total != 2 || list.Sessions[0].ID != first || list.Sessions[1].ID != second {
		t.Errorf("Unexpected list: %+v", list)
	}

	w = f.do(t, "GET", "/api/sessions?sort=created&limit=1", nil)
	list = decode[struct {
		Count    int                   `json:"count"`
		Total    int                   `json:"total"`
		Sessions []service.SessionInfo `json:"sessions"`
	}](t, w)
	if list.Count != 1 || list.Total != 2 || list.Sessions[0].ID != second {
		t.Errorf("Expected newest session only, got %+v", list)
	}

	if w := f.do(t, "DELETE", "/api/sessions/"+first, nil); w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on delete, got %d", w.Code)
	}
	if w := f.do(t, "GET", "/api/sessions/"+first, nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", w.Code)
	}
	if w := f.do(t, "DELETE", "/api/sessions/"+first, nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 on second delete, got %d", w.Code)
	}
}

func TestCommand(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)

	w := f.do(t, "POST", "/api/sessions/"+id+"/command", map[string]string{"command": "forward"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	res := decode[service.CommandResult](t, w)
	if !res.Success || res.Result.Outcome != engine.OutcomeCollected || res.GameState.Collected != 1 {
		t.Errorf("Unexpected result: %+v", res)
	}

	w = f.do(t, "POST", "/api/sessions/"+id+"/command", map[string]string{"command": "f"})
	res = decode[service.CommandResult](t, w)
	if res.Result.Outcome != engine.OutcomeWon || !res.GameState.Won {
		t.Errorf("Expected win, got %+v", res.Result)
	}

	w = f.do(t, "POST", "/api/sessions/"+id+"/command", map[string]any{"command": "forward", "reload": true})
	res = decode[service.CommandResult](t, w)
	if res.GameState.Won || res.GameState.Collected != 1 {
		t.Errorf("Expected reload before the command, got %+v", res.GameState)
	}
}

func TestCommandErrors(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"unknown command", "/api/sessions/" + id + "/command", map[string]string{"command": "jump"}, http.StatusBadRequest},
		{"malformed body", "/api/sessions/" + id + "/command", "{", http.StatusBadRequest},
		{"unknown session", "/api/sessions/zzzz/command", map[string]string{"command": "forward"}, http.StatusNotFound},
		{"empty bulk", "/api/sessions/" + id + "/bulk-command", map[string]any{"commands": []string{}}, http.StatusBadRequest},
		{"bulk unknown command", "/api/sessions/" + id + "/bulk-command", map[string]any{"commands": []string{"forward", "left"}}, http.StatusBadRequest},
		{"reload unknown session", "/api/sessions/zzzz/reload", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, "POST", tt.path, tt.body)
			if w.Code != tt.status {
				t.Fatalf("Expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			if decode[map[string]string](t, w)["error"] == "" {
				t.Error("Expected an error message")
			}
		})
	}
}

func TestBulkCommandAndHistory(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)

	w := f.do(t, "POST", "/api/sessions/"+id+"/bulk-command", map[string]any{
		"commands": []string{"forward", "forward", "turn_right"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	res := decode[service.BulkCommandResult](t, w)
	if !res.Success || res.StopReasonCode != "won" || res.CommandsExecuted != 2 || res.StoppedOnCommand != 2 {
		t.Errorf("Unexpected bulk result: %+v", res)
	}
	if res.EndPos != (engine.Position{R: 1, C: 2}) || res.CollectedDelta != 2 {
		t.Errorf("Unexpected end snapshot: %+v", res)
	}

	w = f.do(t, "GET", "/api/sessions/"+id+"/history?order=asc&limit=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	history := decode[service.HistoryResponse](t, w)
	if history.TotalCommands != 2 || len(history.Commands) != 1 || !history.HasNext {
		t.Errorf("Unexpected history: %+v", history)
	}
	if history.Commands[0].Outcome != engine.OutcomeCollected {
		t.Errorf("Expected the first command first, got %+v", history.Commands[0])
	}
}

func TestReloadStateAndScene(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)
	f.do(t, "POST", "/api/sessions/"+id+"/command", map[string]string{"command": "forward"})

	w := f.do(t, "POST", "/api/sessions/"+id+"/reload", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = f.do(t, "GET", "/api/sessions/"+id+"/state", nil)
	state := decode[engine.GameState](t, w)
	if state.Collected != 0 || state.Player != (engine.Position{R: 1, C: 0}) {
		t.Errorf("Expected a fresh level, got %+v", state)
	}
	if state.TotalMoves != 1 {
		t.Errorf("Expected history to survive reload, got %d", state.TotalMoves)
	}

	w = f.do(t, "GET", "/api/sessions/"+id+"/scene", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "objects") {
		t.Errorf("Expected a scene document, got %s", w.Body.String())
	}
}

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{service.ErrSessionNotFound, http.StatusNotFound},
		{service.ErrLevelNotFound, http.StatusNotFound},
		{service.ErrInvalidCommand, http.StatusBadRequest},
		{engine.ErrInvalidLevel, http.StatusBadRequest},
		{engine.ErrMissingSpawn, http.StatusBadRequest},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			respondServiceError(w, tt.err)
			if w.Code != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, w.Code)
			}
		})
	}
}

func TestWebSocketUpdates(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)

	ts := httptest.NewServer(f.server)
	t.Cleanup(ts.Close)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	if _, resp, err := gws.DefaultDialer.Dial(wsURL+"/ws?session=zzzz", nil); err == nil {
		t.Fatal("Expected unknown session to be rejected")
	} else if resp != nil && resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}

	conn, _, err := gws.DefaultDialer.Dial(wsURL+"/ws?session="+id, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for f.hub.ClientCount(id) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	f.do(t, "POST", "/api/sessions/"+id+"/bulk-command", map[string]any{"commands": []string{"forward", "forward"}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var events []string
	for len(events) < 2 {
		var msg websocket.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON failed after %v: %v", events, err)
		}
		events = append(events, msg.Event)
	}
	if events[0] != websocket.EventStateUpdate || events[1] != websocket.EventWin {
		t.Errorf("Expected state_update then win, got %v", events)
	}
}
