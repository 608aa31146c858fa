// Package api provides HTTP REST API handlers for Bingo Duel.
//
// The api package implements:
//   - Room lobby endpoints (create, join, inspect, delete)
//   - Private card lookup
//   - QR codes for sharing a room
//   - WebSocket upgrade for live play
//
// Endpoints:
//
// Rooms:
//   - POST /api/rooms - Create a room, seat the caller as player1
//   - GET /api/rooms - List rooms
//   - GET /api/rooms/{code} - Room seats, turn and votes (no cards)
//   - DELETE /api/rooms/{code} - Delete a room and drop its connections
//   - POST /api/rooms/{code}/join - Seat the caller as player2
//   - GET /api/rooms/{code}/grid?player=player1 - One seat's card
//   - GET /api/rooms/{code}/qr - PNG QR code of the room link
//
// Live play:
//   - GET /ws/bingo/{code}?player=player1 - WebSocket upgrade. The player
//     parameter is optional; when present it binds the connection to that seat.
//     The same path with a trailing slash is accepted.
//
// Error Handling:
//
// Errors are returned as JSON with an appropriate HTTP status code:
//
//	{"error": "Room is full!"}
//
// Unknown rooms are 404, malformed codes or seats 400, a full room 409.
package api
