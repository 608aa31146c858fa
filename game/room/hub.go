package room

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/wricardo/bingo-duel/game/engine"
)

const maxDispatchAttempts = 3

type closer interface {
	Close() error
}

// Hub maps room codes to coordinators. Coordinators are started on first use
// and stopped once their room has had no connections for the idle timeout.
type Hub struct {
	store       Store
	registry    *Registry
	opts        Options
	idleTimeout time.Duration

	mu           sync.Mutex
	coordinators map[string]*Coordinator
}

// NewHub creates a hub. idleTimeout <= 0 disables reaping.
func NewHub(store Store, registry *Registry, opts Options, idleTimeout time.Duration) *Hub {
	return &Hub{
		store:        store,
		registry:     registry,
		opts:         opts.withDefaults(),
		idleTimeout:  idleTimeout,
		coordinators: make(map[string]*Coordinator),
	}
}

// Registry returns the connection registry shared by all coordinators.
func (h *Hub) Registry() *Registry {
	return h.registry
}

func (h *Hub) coordinator(code string) *Coordinator {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.coordinators[code]
	if !ok {
		c = NewCoordinator(code, h.store, h.registry, h.opts)
		h.coordinators[code] = c
		if h.opts.Debug {
			log.Printf("Started coordinator for room %s (active: %d)", code, len(h.coordinators))
		}
	}
	return c
}

func (h *Hub) forget(c *Coordinator) {
	h.mu.Lock()
	if h.coordinators[c.code] == c {
		delete(h.coordinators, c.code)
	}
	h.mu.Unlock()
}

// dispatch runs fn against the room's coordinator, replacing it if it was
// stopped between lookup and submission.
func (h *Hub) dispatch(code string, fn func(c *Coordinator) error) error {
	code = engine.NormalizeCode(code)

	var err error
	for attempt := 0; attempt < maxDispatchAttempts; attempt++ {
		c := h.coordinator(code)
		err = fn(c)
		if !errors.Is(err, ErrCoordinatorClosed) {
			return err
		}
		h.forget(c)
	}
	return err
}

// Connect attaches conn to the room. slot binds the connection to a seat;
// pass engine.NoSlot for an unbound connection.
func (h *Hub) Connect(ctx context.Context, code string, conn Conn, slot engine.Slot) error {
	return h.dispatch(code, func(c *Coordinator) error {
		return c.Connect(ctx, conn, slot)
	})
}

// Disconnect detaches conn from the room.
func (h *Hub) Disconnect(ctx context.Context, code string, conn Conn) error {
	return h.dispatch(code, func(c *Coordinator) error {
		return c.Disconnect(ctx, conn)
	})
}

// Receive hands one raw client frame to the room.
func (h *Hub) Receive(ctx context.Context, code string, conn Conn, payload []byte) error {
	return h.dispatch(code, func(c *Coordinator) error {
		return c.Receive(ctx, conn, payload)
	})
}

// Update runs fn against the room inside its coordinator and saves the room
// when fn returns nil.
func (h *Hub) Update(ctx context.Context, code string, fn func(room *engine.Room) error) error {
	return h.dispatch(code, func(c *Coordinator) error {
		return c.Update(ctx, fn)
	})
}

// Connections returns the number of live connections in the room.
func (h *Hub) Connections(code string) int {
	return h.registry.Count(engine.NormalizeCode(code))
}

// Delete removes a room. The room's coordinator is stopped and drained and
// remove runs before any new coordinator can start for the code, so no
// in-flight action can save the room back afterwards. When remove reports
// true the room's connections are closed.
func (h *Hub) Delete(ctx context.Context, code string, remove func(ctx context.Context) (bool, error)) (bool, error) {
	code = engine.NormalizeCode(code)

	h.mu.Lock()
	stopped := h.stopLocked(code)
	removed, err := remove(ctx)
	h.mu.Unlock()

	if err != nil || !removed {
		return false, err
	}
	h.dropConnections(code, stopped)
	return true, nil
}

// stopLocked stops and forgets the room's coordinator, waiting for its loop
// to exit. h.mu must be held.
func (h *Hub) stopLocked(code string) bool {
	c, ok := h.coordinators[code]
	if !ok {
		return false
	}
	delete(h.coordinators, code)
	c.Stop()
	<-c.Done()
	return true
}

func (h *Hub) dropConnections(code string, stopped bool) {
	conns := h.registry.RemoveRoom(code)
	for _, conn := range conns {
		if cl, ok := conn.(closer); ok {
			cl.Close()
		}
	}
	if stopped || len(conns) > 0 {
		log.Printf("Closed room %s (%d connections dropped)", code, len(conns))
	}
}

// Active returns the number of running coordinators.
func (h *Hub) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.coordinators)
}

// ReapIdle stops coordinators whose room has no connections and no activity
// since before now minus the idle timeout. It returns the reaped codes.
func (h *Hub) ReapIdle(now time.Time) []string {
	if h.idleTimeout <= 0 {
		return nil
	}

	h.mu.Lock()
	var reaped []*Coordinator
	for code, c := range h.coordinators {
		if h.registry.Count(code) > 0 {
			continue
		}
		if now.Sub(c.IdleSince()) < h.idleTimeout {
			continue
		}
		delete(h.coordinators, code)
		reaped = append(reaped, c)
	}
	h.mu.Unlock()

	codes := make([]string, 0, len(reaped))
	for _, c := range reaped {
		c.Stop()
		<-c.Done()
		codes = append(codes, c.code)
	}
	if len(codes) > 0 {
		log.Printf("Stopped %d idle room coordinators", len(codes))
	}
	return codes
}

// Run reaps idle coordinators until ctx is done, then stops all of them.
func (h *Hub) Run(ctx context.Context) {
	defer h.Shutdown()

	if h.idleTimeout <= 0 {
		<-ctx.Done()
		return
	}

	interval := h.idleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			h.ReapIdle(now)
		}
	}
}

// Shutdown stops every coordinator and waits for their loops to exit.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	all := make([]*Coordinator, 0, len(h.coordinators))
	for code, c := range h.coordinators {
		all = append(all, c)
		delete(h.coordinators, code)
	}
	h.mu.Unlock()

	for _, c := range all {
		c.Stop()
		<-c.Done()
	}
}
