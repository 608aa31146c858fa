// Package mcp provides a Model Context Protocol server for Bingo Duel.
//
// The MCP server is a thin client: every tool call is proxied to the REST API,
// so it works the same against a local server or a remote one.
//
// MCP Tools:
//   - create_room: Create a room and take seat one
//   - join_room: Take seat two
//   - get_room: Seats, turn and rematch votes
//   - list_rooms: All rooms
//   - get_grid: One seat's card
//   - delete_room: Delete a room
//   - game_rules: Rules and WebSocket protocol
//
// Live play happens over the WebSocket, not over MCP.
//
// Transport Modes:
//   - Stdio: the "mcp" command serves the tools over stdin/stdout
//   - HTTP: the server mounts the tools at POST /mcp
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
