package room

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wricardo/bingo-duel/game/engine"
)

// ErrCoordinatorClosed is returned for work submitted to a stopped coordinator.
var ErrCoordinatorClosed = errors.New("room coordinator closed")

const (
	defaultMailboxSize  = 64
	defaultStoreTimeout = 5 * time.Second
)

// Store is the room state store the coordinator reads and writes.
type Store interface {
	Load(ctx context.Context, code string) (*engine.Room, error)
	Save(ctx context.Context, room *engine.Room) error
}

// Options tune coordinator behavior
type Options struct {
	// MailboxSize is the number of queued actions per room before submitters block.
	MailboxSize int

	// StoreTimeout bounds each load/save made while handling one action.
	StoreTimeout time.Duration

	// SlotAware sends opponent-directed events only to connections bound to
	// the other slot, falling back to every other connection when none is bound.
	SlotAware bool

	// Debug logs every handled action.
	Debug bool
}

func (o Options) withDefaults() Options {
	if o.MailboxSize <= 0 {
		o.MailboxSize = defaultMailboxSize
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = defaultStoreTimeout
	}
	return o
}

type task struct {
	fn     func(ctx context.Context) error
	result chan error
}

// Coordinator owns one room. Every action on the room runs on a single
// goroutine in the order it was submitted, so load, mutate, save and
// broadcast never interleave with another action on the same room.
type Coordinator struct {
	code     string
	store    Store
	registry *Registry
	opts     Options

	mailbox  chan task
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	lastActive atomic.Int64
}

// NewCoordinator starts a coordinator for code.
func NewCoordinator(code string, store Store, registry *Registry, opts Options) *Coordinator {
	opts = opts.withDefaults()
	c := &Coordinator{
		code:     engine.NormalizeCode(code),
		store:    store,
		registry: registry,
		opts:     opts,
		mailbox:  make(chan task, opts.MailboxSize),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	c.touch()
	go c.run()
	return c
}

// Code returns the room code this coordinator owns.
func (c *Coordinator) Code() string {
	return c.code
}

// Stop ends the loop. Queued work that has not started is abandoned and its
// submitters get ErrCoordinatorClosed.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() { close(c.quit) })
}

// Done is closed once the loop has exited.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// IdleSince returns the time of the last submitted action.
func (c *Coordinator) IdleSince() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

func (c *Coordinator) touch() {
	c.lastActive.Store(time.Now().UnixNano())
}

func (c *Coordinator) run() {
	defer close(c.done)
	for {
		select {
		case t := <-c.mailbox:
			t.result <- c.execute(t.fn)
		case <-c.quit:
			return
		}
	}
}

func (c *Coordinator) execute(fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Room %s: recovered from panic: %v", c.code, r)
			err = fmt.Errorf("room %s: panic: %v", c.code, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.StoreTimeout)
	defer cancel()
	return fn(ctx)
}

// submit queues fn and waits for it to finish. Once queued, fn runs to
// completion regardless of ctx.
func (c *Coordinator) submit(ctx context.Context, fn func(ctx context.Context) error) error {
	c.touch()
	t := task{fn: fn, result: make(chan error, 1)}

	select {
	case c.mailbox <- t:
	case <-c.done:
		return ErrCoordinatorClosed
	case <-c.quit:
		return ErrCoordinatorClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-t.result:
		return err
	case <-c.done:
		// The loop is gone, so fn either finished already or never will.
		select {
		case err := <-t.result:
			return err
		default:
			return ErrCoordinatorClosed
		}
	}
}

// Connect registers conn (bound to slot when slot is valid), then announces
// the player count and, when both seats are taken, the game start.
func (c *Coordinator) Connect(ctx context.Context, conn Conn, slot engine.Slot) error {
	return c.submit(ctx, func(ctx context.Context) error {
		return c.handleConnect(ctx, conn, slot)
	})
}

// Disconnect unregisters conn and announces the new player count. The
// player's seat is kept.
func (c *Coordinator) Disconnect(ctx context.Context, conn Conn) error {
	return c.submit(ctx, func(ctx context.Context) error {
		return c.handleDisconnect(ctx, conn)
	})
}

// Receive handles one raw client frame from conn.
func (c *Coordinator) Receive(ctx context.Context, conn Conn, payload []byte) error {
	return c.submit(ctx, func(ctx context.Context) error {
		c.handleMessage(ctx, conn, payload)
		return nil
	})
}

// Update runs fn against the current room inside the mailbox and saves the
// result when fn returns nil.
func (c *Coordinator) Update(ctx context.Context, fn func(room *engine.Room) error) error {
	return c.submit(ctx, func(ctx context.Context) error {
		room, err := c.store.Load(ctx, c.code)
		if err != nil {
			return err
		}
		if err := fn(room); err != nil {
			return err
		}
		return c.store.Save(ctx, room)
	})
}

func (c *Coordinator) handleConnect(ctx context.Context, conn Conn, slot engine.Slot) error {
	if !slot.Valid() {
		slot = engine.NoSlot
	}
	c.registry.Add(c.code, conn, slot)

	room, err := c.store.Load(ctx, c.code)
	if err != nil {
		c.registry.Remove(c.code, conn)
		return fmt.Errorf("load room %s: %w", c.code, err)
	}

	if room.EnsureVotes() {
		if err := c.store.Save(ctx, room); err != nil {
			log.Printf("Room %s: failed to initialize rematch votes: %v", c.code, err)
		}
	}

	log.Printf("Connection %s joined room %s (connections: %d)", conn.ID(), c.code, c.registry.Count(c.code))

	c.registry.Broadcast(c.code, newPlayersCount(room))
	if room.Full() {
		c.registry.Broadcast(c.code, newTurnEvent(ActionGameStart, room.CurrentTurn))
	}
	return nil
}

func (c *Coordinator) handleDisconnect(ctx context.Context, conn Conn) error {
	remaining := c.registry.Remove(c.code, conn)
	log.Printf("Connection %s left room %s (connections: %d)", conn.ID(), c.code, remaining)

	room, err := c.store.Load(ctx, c.code)
	if err != nil {
		return fmt.Errorf("load room %s: %w", c.code, err)
	}
	c.registry.Broadcast(c.code, newPlayersCount(room))
	return nil
}

func (c *Coordinator) handleMessage(ctx context.Context, conn Conn, payload []byte) {
	msg, err := DecodeInbound(payload)
	if err != nil {
		if c.opts.Debug {
			log.Printf("Room %s: bad frame from %s: %v", c.code, conn.ID(), err)
		}
		c.registry.SendTo(conn, newError(MsgInvalidMessage))
		return
	}

	player := msg.Slot()
	if bound := c.registry.SlotOf(c.code, conn); bound != engine.NoSlot {
		if msg.Player == "" {
			player = bound
			msg.Player = string(bound)
		} else if player != bound {
			c.registry.SendTo(conn, newError(fmt.Sprintf("You are playing as %s", bound)))
			return
		}
	}

	if c.opts.Debug {
		log.Printf("Room %s: %s from %s (%s)", c.code, msg.Action, conn.ID(), msg.Player)
	}

	switch msg.Action {
	case ActionChat:
		c.handleChat(conn, player, msg)
	case ActionMarkNumber:
		c.handleMarkNumber(ctx, conn, player, msg.Number)
	case ActionCallBingo:
		c.registry.Broadcast(c.code, newBingoCalled(msg.Player))
	case ActionPlayAgain:
		c.handlePlayAgain(ctx, conn, player)
	}
}

func (c *Coordinator) handleChat(conn Conn, player engine.Slot, msg *Inbound) {
	c.registry.Broadcast(c.code, newChat(msg.Player, msg.Message, msg.Emoji))
	c.sendToOpponent(conn, player, newNotification(fmt.Sprintf("New message from %s", msg.Player)))
}

func (c *Coordinator) handleMarkNumber(ctx context.Context, conn Conn, player engine.Slot, number int) {
	room, err := c.store.Load(ctx, c.code)
	if err != nil {
		log.Printf("Room %s: failed to load for mark_number: %v", c.code, err)
		c.registry.SendTo(conn, newError(MsgRoomUnavailable))
		return
	}

	if !room.IsTurn(player) {
		c.registry.SendTo(conn, newError(MsgNotYourTurn))
		return
	}

	next := room.AdvanceTurn()
	if err := c.store.Save(ctx, room); err != nil {
		log.Printf("Room %s: failed to save move: %v", c.code, err)
		c.registry.SendTo(conn, newError(MsgSaveMoveFailed))
		return
	}

	c.registry.Broadcast(c.code, newMarkNumber(number, player))
	c.registry.Broadcast(c.code, newTurnEvent(ActionTurnChange, next))
}

func (c *Coordinator) handlePlayAgain(ctx context.Context, conn Conn, player engine.Slot) {
	if !player.Valid() {
		c.registry.SendTo(conn, newError(MsgUnknownPlayer))
		return
	}

	room, err := c.store.Load(ctx, c.code)
	if err != nil {
		log.Printf("Room %s: failed to load for play_again: %v", c.code, err)
		c.registry.SendTo(conn, newError(MsgRoomUnavailable))
		return
	}

	if _, err := room.AddVote(player); err != nil {
		c.registry.SendTo(conn, newError(MsgUnknownPlayer))
		return
	}

	agreed := room.RematchAgreed()
	if agreed {
		room.ResetForRematch()
	}

	if err := c.store.Save(ctx, room); err != nil {
		log.Printf("Room %s: failed to save rematch vote: %v", c.code, err)
		c.registry.SendTo(conn, newError(MsgSaveVoteFailed))
		return
	}

	switch {
	case agreed:
		log.Printf("Room %s: rematch agreed", c.code)
		c.registry.Broadcast(c.code, newTurnEvent(ActionResetGame, room.CurrentTurn))
	case room.OnlyVote(player):
		c.sendToOpponent(conn, player, newPlayAgainRequest(player))
	}
}

// sendToOpponent delivers to every other connection in the room, or in
// slot-aware mode to the connections bound to the other slot when there are any.
func (c *Coordinator) sendToOpponent(conn Conn, player engine.Slot, event any) {
	if c.opts.SlotAware && player.Valid() {
		if c.registry.SendToSlot(c.code, player.Other(), conn, event) > 0 {
			return
		}
	}
	c.registry.SendExcept(c.code, conn, event)
}
