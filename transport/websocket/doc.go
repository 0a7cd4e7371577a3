// Package websocket provides WebSocket transport for Clara.
//
// A central Hub tracks the connections attached to each session. Each
// connection has a read pump and a write pump goroutine; the hub only
// writes to a client's buffered send channel and drops clients that fall
// behind.
//
// Message Protocol:
//
// Outgoing messages are JSON objects with session_id and event:
//   - state_update: carries game_state after every command
//   - death, win: sent after the command that ended the level
//   - reload: sent after the level was rebuilt
//
// Incoming messages are ignored; clients send commands over REST.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
//	hub.BroadcastToSession(sessionID, state)
package websocket
