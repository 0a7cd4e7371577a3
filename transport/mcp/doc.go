// Package mcp exposes Clara to AI agents over the Model Context Protocol.
//
// The Client registers MCP tools that proxy to the REST API, so the same
// sessions are visible to agents, browsers and the terminal client.
//
// MCP Tools:
//   - create_session: Start a level (optional theme, detail_level, seed)
//   - list_sessions, get_session: Inspect sessions
//   - game_state: Board, facing, collected leaves and the cell ahead
//   - command: Run forward or turn_right
//   - bulk_command: Run up to 50 commands, stopping on death, win or a blocked push
//   - reload_level: Restart the level keeping command history
//   - command_history: Paginated command history
//   - list_boards: Available levels
//   - game_instructions: Rules and board legend
//   - describe_cell: Details about one cell by row and column
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
//
// Tool arguments are coerced with spf13/cast, so numbers sent as strings or
// floats are accepted.
package mcp
