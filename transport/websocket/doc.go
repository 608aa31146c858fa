// Package websocket provides WebSocket transport for Bingo Duel.
//
// The websocket package implements:
//   - Upgrading HTTP requests into room connections
//   - Per-connection read and write pumps with ping/pong keepalive
//   - A bounded, non-blocking send queue per connection
//
// Architecture:
//
// Each upgraded connection becomes a Client with a UUID and a buffered send
// queue. The read pump hands every frame to a Dispatcher (room.Hub in
// production) and the write pump drains the queue, one WebSocket text frame
// per event. A client whose queue is full or closed rejects further sends;
// the room layer logs that and carries on with the other connections.
//
// Connection Lifecycle:
//
// 1. Client connects to /ws/bingo/{code}, optionally with ?player=player1
// 2. Dispatcher.Connect registers it and announces the player count
// 3. Frames are passed to Dispatcher.Receive in the order they arrive
// 4. On read error or close, Dispatcher.Disconnect runs and the socket closes
//
// Usage:
//
//	ws := websocket.NewServer(hub, websocket.Options{MaxMessageSize: 4096})
//	router.HandleFunc("/ws/bingo/{code}", func(w http.ResponseWriter, r *http.Request) {
//		ws.ServeWS(w, r, mux.Vars(r)["code"], engine.NoSlot)
//	})
package websocket
