package room

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/wricardo/bingo-duel/game/engine"
	"github.com/wricardo/bingo-duel/game/session"
)

// fakeConn records every frame sent to it
type fakeConn struct {
	id      string
	mu      sync.Mutex
	frames  [][]byte
	sendErr error
	closed  bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.frames = append(f.frames, append([]byte(nil), data...))
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]map[string]any, 0, len(f.frames))
	for _, frame := range f.frames {
		var event map[string]any
		if err := json.Unmarshal(frame, &event); err != nil {
			t.Fatalf("connection %s got invalid JSON %q: %v", f.id, frame, err)
		}
		out = append(out, event)
	}
	return out
}

func (f *fakeConn) actions(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, event := range f.events(t) {
		action, _ := event["action"].(string)
		out = append(out, action)
	}
	return out
}

func (f *fakeConn) countAction(t *testing.T, action string) int {
	t.Helper()
	n := 0
	for _, a := range f.actions(t) {
		if a == action {
			n++
		}
	}
	return n
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	f.frames = nil
	f.mu.Unlock()
}

// failingStore wraps a manager and fails saves while failSave is set
type failingStore struct {
	*session.Manager
	mu       sync.Mutex
	failSave bool
}

func (s *failingStore) setFailSave(v bool) {
	s.mu.Lock()
	s.failSave = v
	s.mu.Unlock()
}

func (s *failingStore) Save(ctx context.Context, room *engine.Room) error {
	s.mu.Lock()
	fail := s.failSave
	s.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return s.Manager.Save(ctx, room)
}

const testCode = "ROOM42"

// newTestRoom seats player1, and player2 too when full is set
func newTestRoom(t *testing.T, store *session.Manager, full bool, turn engine.Slot) {
	t.Helper()
	room := engine.NewRoom(testCode)
	room.Player1 = engine.Player1.DisplayName()
	room.Grids[engine.Player1] = engine.GenerateGrid()
	if full {
		room.Player2 = engine.Player2.DisplayName()
		room.Grids[engine.Player2] = engine.GenerateGrid()
	}
	room.CurrentTurn = turn
	if err := store.Create(context.Background(), room); err != nil {
		t.Fatalf("Failed to create room: %v", err)
	}
}

func newTestHub(t *testing.T, store Store, opts Options) *Hub {
	t.Helper()
	hub := NewHub(store, NewRegistry(), opts, 0)
	t.Cleanup(hub.Shutdown)
	return hub
}

func mustConnect(t *testing.T, hub *Hub, conn *fakeConn, slot engine.Slot) {
	t.Helper()
	if err := hub.Connect(context.Background(), testCode, conn, slot); err != nil {
		t.Fatalf("Connect %s failed: %v", conn.id, err)
	}
}

func send(t *testing.T, hub *Hub, conn *fakeConn, payload string) {
	t.Helper()
	if err := hub.Receive(context.Background(), testCode, conn, []byte(payload)); err != nil {
		t.Fatalf("Receive from %s failed: %v", conn.id, err)
	}
}

func loadRoom(t *testing.T, store Store) *engine.Room {
	t.Helper()
	room, err := store.Load(context.Background(), testCode)
	if err != nil {
		t.Fatalf("Failed to load room: %v", err)
	}
	return room
}

// twoPlayers connects one unbound connection per player and clears their inboxes
func twoPlayers(t *testing.T, hub *Hub) (*fakeConn, *fakeConn) {
	t.Helper()
	p1, p2 := newFakeConn("p1"), newFakeConn("p2")
	mustConnect(t, hub, p1, engine.NoSlot)
	mustConnect(t, hub, p2, engine.NoSlot)
	p1.reset()
	p2.reset()
	return p1, p2
}
