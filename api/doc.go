// Package api provides the HTTP REST API for Clara sessions and levels.
//
// Endpoints:
//
// Levels:
//   - GET  /api/boards            - List level summaries
//   - POST /api/boards            - Validate and store a level
//   - GET  /api/boards/{id}       - Fetch a level document
//   - GET  /api/board?id={id}     - Fetch a level document (query form)
//
// Sessions:
//   - POST   /api/sessions        - Create a session {"level_id", "placement"}
//   - GET    /api/sessions        - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET    /api/sessions/{id}   - Session details
//   - DELETE /api/sessions/{id}   - Delete a session
//
// Game operations:
//   - GET  /api/sessions/{id}/state         - Current game state
//   - POST /api/sessions/{id}/command       - {"command": "forward|turn_right", "reload": false}
//   - POST /api/sessions/{id}/bulk-command  - {"commands": [...], "reload": false}
//   - POST /api/sessions/{id}/reload        - Restart the level from its initial state
//   - GET  /api/sessions/{id}/history       - Paginated command history (?page&limit&order)
//   - GET  /api/sessions/{id}/scene         - Planned 3D scene for the session
//
// WebSocket:
//   - GET /ws?session={id} - State updates plus death, win and reload events
//
// Errors are returned as {"error": "message"} with 400 for malformed input,
// 404 for unknown sessions or levels and 500 otherwise.
package api
