package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"
	"github.com/wricardo/clara/game/engine"
	"github.com/wricardo/clara/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Clara",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Clara - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Steer the character (C) over every leaf (L) on the board. You can only move
forward or turn right by 90 degrees.

AVAILABLE TOOLS:
- create_session: Start a level in a new session
- list_sessions / get_session: Inspect sessions
- game_state: Current board, facing, collected leaves
- command: Run one command (forward or turn_right) - requires intent explanation
- bulk_command: Run up to 50 commands - requires intent explanation
- reload_level: Restart the level, keeping the command history
- command_history: Past commands with outcomes
- list_boards: Available levels
- game_instructions: Full rules
- describe_cell: Details about one cell

NOTE: The 'intent' parameter on command tools serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionProp() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session for a level",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"level_id": map[string]any{
					"type":        "string",
					"description": "Level to play (optional, defaults to the first level)",
				},
				"theme": map[string]any{
					"type":        "string",
					"enum":        []string{"pastoral", "space"},
					"description": "Scenery theme (optional)",
				},
				"detail_level": map[string]any{
					"type":        "integer",
					"description": "Scenery detail 1-3 (optional)",
				},
				"seed": map[string]any{
					"type":        "integer",
					"description": "Placement seed (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current game state",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "command",
		Description: "Run one command: move forward or turn right",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProp(),
				"command": map[string]any{
					"type":        "string",
					"enum":        []string{"forward", "turn_right"},
					"description": "Command to run",
				},
				"intent": map[string]any{
					"type":        "string",
					"description": "Brief explanation of the intent behind this command (serves as a rubber duck to help explain your reasoning)",
				},
				"reload": map[string]any{
					"type":        "boolean",
					"description": "Reload the level before running the command",
				},
			},
			Required: []string{"session_id", "command"},
		},
	}, c.handleCommand)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_command",
		Description: fmt.Sprintf("Run up to %d commands in sequence, stopping on death, win or a blocked push", engine.MaxBulkCommands),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProp(),
				"commands": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "string",
						"enum": []string{"forward", "turn_right"},
					},
					"description": "Commands to run",
				},
				"intent": map[string]any{
					"type":        "string",
					"description": "Brief explanation of the intent behind this sequence (serves as a rubber duck to help explain your reasoning)",
				},
				"reload": map[string]any{
					"type":        "boolean",
					"description": "Reload the level before running the commands",
				},
			},
			Required: []string{"session_id", "commands"},
		},
	}, c.handleBulkCommand)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reload_level",
		Description: "Restart the level from its initial state",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"session_id": sessionProp()},
			Required:   []string{"session_id"},
		},
	}, c.handleReload)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "command_history",
		Description: "Get command history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProp(),
				"page": map[string]any{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Items per page",
				},
				"order": map[string]any{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Oldest first (asc) or newest first (desc, default)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleCommandHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_boards",
		Description: "List available levels",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListBoards)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleGameInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Get detailed information about one cell of the board, including whether stepping on it is safe.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProp(),
				"row": map[string]any{
					"type":        "integer",
					"description": "Row of the cell (0-based, 0 is north)",
				},
				"col": map[string]any{
					"type":        "integer",
					"description": "Column of the cell (0-based, 0 is west)",
				},
			},
			Required: []string{"session_id", "row", "col"},
		},
	}, c.handleDescribeCell)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func sessionPath(args map[string]any, suffix string) (string, error) {
	id := cast.ToString(args["session_id"])
	if id == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return "/api/sessions/" + url.PathEscape(id) + suffix, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	body := map[string]any{}
	if levelID := cast.ToString(args["level_id"]); levelID != "" {
		body["level_id"] = levelID
	}
	_, hasTheme := args["theme"]
	_, hasDetail := args["detail_level"]
	_, hasSeed := args["seed"]
	if hasTheme || hasDetail || hasSeed {
		body["placement"] = map[string]any{
			"theme":        cast.ToString(args["theme"]),
			"detail_level": cast.ToInt(args["detail_level"]),
			"seed":         cast.ToInt64(args["seed"]),
		}
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Created session: %s\nLevel: %s (%s)\n\n%s",
		session.ID, session.LevelName, session.LevelID, formatGameState(session.GameState))), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		fmt.Fprintf(&b, "- %s (Level: %s, Created: %s)\n", s.ID, s.LevelID, s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request.GetArguments(), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", path, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request.GetArguments(), "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	path, err := sessionPath(args, "/command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]any{
		"command": cast.ToString(args["command"]),
		"reload":  cast.ToBool(args["reload"]),
	}

	var result service.CommandResult
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatCommandResult(&result)), nil
}

func (c *Client) handleBulkCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	path, err := sessionPath(args, "/bulk-command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]any{
		"commands": cast.ToStringSlice(args["commands"]),
		"reload":   cast.ToBool(args["reload"]),
	}

	var result service.BulkCommandResult
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatBulkCommandResult(&result)), nil
}

func (c *Client) handleReload(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(request.GetArguments(), "/reload")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))), nil
}

func (c *Client) handleCommandHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	path, err := sessionPath(args, "/history")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	params := url.Values{}
	if page := cast.ToInt(args["page"]); page > 0 {
		params.Set("page", cast.ToString(page))
	}
	if limit := cast.ToInt(args["limit"]); limit > 0 {
		params.Set("limit", cast.ToString(limit))
	}
	if order := cast.ToString(args["order"]); order != "" {
		params.Set("order", order)
	}
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListBoards(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var boards []service.LevelInfo
	if err := c.apiCall(ctx, "GET", "/api/boards", nil, &boards); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Levels:\n\n")
	for _, level := range boards {
		fmt.Fprintf(&b, "• %s (%s)\n  Grid: %dx%d, Leaves: %d\n\n",
			level.Name, level.ID, level.Rows, level.Columns, level.Collectibles)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Clara - Complete Instructions

GAME OBJECTIVE:
Collect every leaf (L) on the board with the character (C).

COMMANDS:
• forward: Move one cell in the facing direction
• turn_right: Rotate 90 degrees clockwise (north -> east -> south -> west)
There is no turn left. Three right turns face left.

BOARD SYMBOLS:
• C = You
• . = Empty ground (safe)
• L = Leaf (collect by stepping on it)
• F = Forest (stepping in kills you)
• W = Water (stepping in kills you)
• G = Ghost (stepping in kills you)
• M = Mushroom (pushed one cell when you walk into it)
• ? = Reserved tile (walkable, no effect)
• # = Outside the board (in the local view)

RULES:
• Walking off the board kills you.
• A mushroom moves ahead only onto empty ground. If the cell behind it is
  blocked, you stay put and nothing happens.
• Once you die or win, commands are ignored until the level is reloaded.
• reload_level restarts the level and keeps your command history.
• bulk_command stops at the first death, win or blocked push.

STRATEGY TIPS:
1. Check the "ahead" cell before each forward.
2. Plan turns in multiples of right turns.
3. Use describe_cell to confirm what is in front of you.

Good luck!`

	return mcp.NewToolResultText(instructions), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	path, err := sessionPath(args, "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p := engine.Position{R: cast.ToInt(args["row"]), C: cast.ToInt(args["col"])}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if !state.Grid.InBounds(p) {
		return mcp.NewToolResultError(fmt.Sprintf("Cell %s is out of bounds. Board is %d rows by %d columns",
			p, state.Grid.Rows(), state.Grid.Columns())), nil
	}

	cell := state.Grid.At(p)
	var b strings.Builder
	fmt.Fprintf(&b, "Cell %s\n", p)
	fmt.Fprintf(&b, "Character: %s\n", cell.Char())
	fmt.Fprintf(&b, "Kind: %s (code %d)\n", cell.Kind, cell.Code())
	fmt.Fprintf(&b, "%s\n", describeKind(cell))
	if p == state.Player {
		b.WriteString("This is where you currently are.\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func describeKind(cell engine.Cell) string {
	switch cell.Kind {
	case engine.Empty:
		return "Empty ground - safe to walk on."
	case engine.Obstacle:
		return "Forest - deadly, do not step in."
	case engine.Hazard:
		return "Water - deadly, do not step in."
	case engine.Player:
		return "The character."
	case engine.Collectible:
		return "Leaf - step on it to collect."
	case engine.Pushable:
		return "Mushroom - walking into it pushes it one cell if the cell behind is empty."
	case engine.HazardEntity:
		return "Ghost - deadly, do not step in."
	case engine.Reserved:
		return fmt.Sprintf("Reserved %s tile - walkable, no effect.", cell.Tile)
	}
	return "Unknown cell."
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nLevel: %s (%s)\nTheme: %s, Detail: %d, Seed: %d\nCreated: %s\n\n%s",
		session.ID, session.LevelName, session.LevelID,
		session.Placement.Theme, session.Placement.DetailLevel, session.Placement.Seed,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Position: %s | Facing: %s | Leaves: %d/%d | Commands: %d\n",
		state.Player, state.Facing, state.Collected, state.CollectibleTotal, state.TotalMoves)

	switch {
	case state.Won:
		b.WriteString("Status: WON\n")
	case !state.Alive:
		b.WriteString("Status: DEAD (reload the level to try again)\n")
	case state.Phase != "":
		fmt.Fprintf(&b, "Status: %s\n", state.Phase)
	}
	if state.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", state.Message)
	}

	if _, cell, ok := state.Ahead(); ok {
		fmt.Fprintf(&b, "Ahead: %s (%s)\n", cell.Char(), cell.Kind)
	} else if len(state.Grid) > 0 {
		b.WriteString("Ahead: # (edge of the board)\n")
	}

	if len(state.LocalView3x3) == 3 {
		b.WriteString("\nLocal 3x3:\n")
		for _, row := range state.LocalView3x3 {
			b.WriteString(row + "\n")
		}
	}

	if len(state.Grid) > 0 {
		b.WriteString("\nBoard:\n")
		for _, row := range engine.RenderGrid(state.Grid) {
			b.WriteString(row + "\n")
		}
	}
	return b.String()
}

func formatCommandResult(result *service.CommandResult) string {
	var b strings.Builder
	r := result.Result
	fmt.Fprintf(&b, "%s: %s -> %s, outcome %s", r.Command, r.From, r.To, r.Outcome)
	if r.Cause != engine.CauseNone {
		fmt.Fprintf(&b, " (%s)", r.Cause)
	}
	b.WriteString("\n")
	if result.Message != "" {
		fmt.Fprintf(&b, "%s\n", result.Message)
	}
	if result.Ahead != nil {
		fmt.Fprintf(&b, "Ahead %s: %s (%s)\n", result.Ahead.Position, result.Ahead.Char, result.Ahead.Kind)
	}
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatBulkCommandResult(result *service.BulkCommandResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Executed %d/%d commands", result.CommandsExecuted, result.RequestedCommands)
	if result.Truncated {
		fmt.Fprintf(&b, " (truncated to %d)", result.Limit)
	}
	b.WriteString("\n")
	if result.StopReasonCode != "" {
		fmt.Fprintf(&b, "Stopped on command %d: %s\n", result.StoppedOnCommand, result.StoppedReason)
	}
	fmt.Fprintf(&b, "Moved %s -> %s, collected %d\n", result.StartPos, result.EndPos, result.CollectedDelta)

	if len(result.Results) > 0 {
		b.WriteString("\nSteps:\n")
		for i, r := range result.Results {
			fmt.Fprintf(&b, "%2d. %-10s %s -> %s %s\n", i+1, r.Command, r.From, r.To, r.Outcome)
		}
	}
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Command History (Page %d/%d, Total: %d):\n\n",
		history.Page, history.TotalPages, history.TotalCommands)
	for _, entry := range history.Commands {
		fmt.Fprintf(&b, "#%d %s: %s -> %s %s", entry.CommandNumber, entry.Command,
			entry.FromPosition, entry.ToPosition, entry.Outcome)
		if entry.Cause != engine.CauseNone {
			fmt.Fprintf(&b, " (%s)", entry.Cause)
		}
		b.WriteString("\n")
	}
	if history.HasNext {
		b.WriteString("\nMore commands on the next page.\n")
	}
	return b.String()
}
