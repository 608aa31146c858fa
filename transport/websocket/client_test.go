package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/bingo-duel/game/engine"
	"github.com/wricardo/bingo-duel/game/room"
	"github.com/wricardo/bingo-duel/game/session"
)

const testCode = "WSTEST"

func setupServer(t *testing.T, full bool) (*httptest.Server, *room.Hub) {
	t.Helper()

	store := session.NewManager()
	r := engine.NewRoom(testCode)
	r.Player1 = "Player 1"
	if full {
		r.Player2 = "Player 2"
		r.CurrentTurn = engine.Player1
	}
	if err := store.Create(context.Background(), r); err != nil {
		t.Fatalf("Failed to create room: %v", err)
	}

	hub := room.NewHub(store, room.NewRegistry(), room.Options{}, 0)
	ws := NewServer(hub, Options{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slot, _ := engine.ParseSlot(r.URL.Query().Get("player"))
		ws.ServeWS(w, r, r.URL.Query().Get("room"), slot)
	}))
	t.Cleanup(func() {
		server.Close()
		hub.Shutdown()
	})
	return server, hub
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?" + query
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}
	var event map[string]any
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("Frame %q is not a single JSON object: %v", data, err)
	}
	return event
}

func expectAction(t *testing.T, conn *websocket.Conn, action string) map[string]any {
	t.Helper()
	event := readEvent(t, conn)
	if event["action"] != action {
		t.Fatalf("Expected %s, got %v", action, event)
	}
	return event
}

func TestWebSocketGameFlow(t *testing.T) {
	server, _ := setupServer(t, true)

	p1 := dial(t, server, "room="+testCode+"&player=player1")
	expectAction(t, p1, "players_count")
	expectAction(t, p1, "game_start")

	p2 := dial(t, server, "room="+strings.ToLower(testCode)+"&player=player2")
	for _, conn := range []*websocket.Conn{p1, p2} {
		if event := expectAction(t, conn, "players_count"); event["count"] != float64(2) {
			t.Errorf("Expected count 2, got %v", event["count"])
		}
		if event := expectAction(t, conn, "game_start"); event["current_turn"] != "player1" {
			t.Errorf("Expected player1 to start, got %v", event["current_turn"])
		}
	}

	if err := p1.WriteJSON(map[string]any{"action": "mark_number", "player": "player1", "number": 12}); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	for _, conn := range []*websocket.Conn{p1, p2} {
		if event := expectAction(t, conn, "mark_number"); event["number"] != float64(12) {
			t.Errorf("Expected number 12, got %v", event["number"])
		}
		if event := expectAction(t, conn, "turn_change"); event["current_turn"] != "player2" {
			t.Errorf("Expected turn player2, got %v", event["current_turn"])
		}
	}

	// Bound to player2, so claiming player1 is refused
	p2.WriteJSON(map[string]any{"action": "mark_number", "player": "player1", "number": 3})
	if event := expectAction(t, p2, "error"); event["message"] != "You are playing as player2" {
		t.Errorf("Unexpected error message %v", event["message"])
	}

	p2.WriteMessage(websocket.TextMessage, []byte("not json"))
	if event := expectAction(t, p2, "error"); event["message"] != "Invalid message" {
		t.Errorf("Unexpected error message %v", event["message"])
	}

	p2.Close()
	if event := expectAction(t, p1, "players_count"); event["count"] != float64(2) {
		t.Errorf("Seats should survive a disconnect, got count %v", event["count"])
	}
}

func TestWebSocketUnknownRoomClosed(t *testing.T) {
	server, hub := setupServer(t, false)

	conn := dial(t, server, "room=NOROOM")
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected connection to an unknown room to be closed")
	}
	if hub.Connections("NOROOM") != 0 {
		t.Error("Connection should not be registered")
	}
}

func TestWebSocketDisconnectUnregisters(t *testing.T) {
	server, hub := setupServer(t, false)

	conn := dial(t, server, "room="+testCode)
	expectAction(t, conn, "players_count")
	if hub.Connections(testCode) != 1 {
		t.Fatalf("Expected 1 connection, got %d", hub.Connections(testCode))
	}

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Connections(testCode) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Connection was not unregistered after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestClientSend(t *testing.T) {
	client := &Client{id: "c1", send: make(chan []byte, 1)}

	if err := client.Send([]byte("one")); err != nil {
		t.Fatalf("First send failed: %v", err)
	}
	if err := client.Send([]byte("two")); !errors.Is(err, ErrSendBufferFull) {
		t.Errorf("Expected ErrSendBufferFull, got %v", err)
	}

	client.Close()
	client.Close()
	if err := client.Send([]byte("three")); !errors.Is(err, ErrClientClosed) {
		t.Errorf("Expected ErrClientClosed, got %v", err)
	}
}
