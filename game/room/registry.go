package room

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/wricardo/bingo-duel/game/engine"
)

// Conn is one live client connection as seen by the room layer.
type Conn interface {
	ID() string
	Send(data []byte) error
}

// Registry tracks which connections belong to which room, and which slot (if
// any) each connection is bound to. Delivery is best effort: a failing
// connection is logged and skipped.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[Conn]engine.Slot
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[Conn]engine.Slot),
	}
}

// Add registers conn under code. slot may be NoSlot.
func (r *Registry) Add(code string, conn Conn, slot engine.Slot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.rooms[code]
	if !ok {
		conns = make(map[Conn]engine.Slot)
		r.rooms[code] = conns
	}
	conns[conn] = slot
}

// Remove unregisters conn and returns how many connections remain in the room.
func (r *Registry) Remove(code string, conn Conn) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.rooms[code]
	if !ok {
		return 0
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(r.rooms, code)
		return 0
	}
	return len(conns)
}

// RemoveRoom drops every connection in the room and returns them.
func (r *Registry) RemoveRoom(code string) []Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := r.rooms[code]
	delete(r.rooms, code)

	out := make([]Conn, 0, len(conns))
	for conn := range conns {
		out = append(out, conn)
	}
	return out
}

// Count returns the number of connections registered for code.
func (r *Registry) Count(code string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[code])
}

// SlotOf returns the slot conn is bound to, or NoSlot.
func (r *Registry) SlotOf(code string, conn Conn) engine.Slot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[code][conn]
}

// Broadcast sends event to every connection in the room, sender included.
func (r *Registry) Broadcast(code string, event any) {
	r.deliver(event, r.targets(code, func(Conn, engine.Slot) bool { return true }))
}

// SendExcept sends event to every connection in the room except exclude.
func (r *Registry) SendExcept(code string, exclude Conn, event any) {
	r.deliver(event, r.targets(code, func(c Conn, _ engine.Slot) bool { return c != exclude }))
}

// SendTo sends event to one connection.
func (r *Registry) SendTo(conn Conn, event any) {
	r.deliver(event, []Conn{conn})
}

// SendToSlot sends event to the connections bound to slot, skipping exclude,
// and returns how many were targeted.
func (r *Registry) SendToSlot(code string, slot engine.Slot, exclude Conn, event any) int {
	targets := r.targets(code, func(c Conn, s engine.Slot) bool {
		return c != exclude && s == slot
	})
	r.deliver(event, targets)
	return len(targets)
}

func (r *Registry) targets(code string, keep func(Conn, engine.Slot) bool) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Conn
	for conn, slot := range r.rooms[code] {
		if keep(conn, slot) {
			out = append(out, conn)
		}
	}
	return out
}

func (r *Registry) deliver(event any, targets []Conn) {
	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal room event: %v", err)
		return
	}

	for _, conn := range targets {
		if err := conn.Send(data); err != nil {
			log.Printf("Dropped event for connection %s: %v", conn.ID(), err)
		}
	}
}
