package websocket

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wricardo/bingo-duel/game/engine"
	"github.com/wricardo/bingo-duel/game/room"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	defaultMaxMessageSize = 4096
	defaultSendBuffer     = 256
)

var (
	ErrSendBufferFull = errors.New("send buffer full")
	ErrClientClosed   = errors.New("client closed")
)

// Dispatcher receives connection lifecycle and frames. room.Hub implements it.
type Dispatcher interface {
	Connect(ctx context.Context, code string, conn room.Conn, slot engine.Slot) error
	Disconnect(ctx context.Context, code string, conn room.Conn) error
	Receive(ctx context.Context, code string, conn room.Conn, payload []byte) error
}

// Options configure the WebSocket server
type Options struct {
	// MaxMessageSize is the largest inbound frame accepted from a client.
	MaxMessageSize int64

	// SendBuffer is the number of outbound frames queued per client before
	// further sends are dropped.
	SendBuffer int

	// CheckOrigin overrides the upgrader origin check. Nil allows all origins.
	CheckOrigin func(r *http.Request) bool
}

// Server upgrades HTTP requests to room connections
type Server struct {
	dispatcher Dispatcher
	upgrader   websocket.Upgrader
	opts       Options
}

// NewServer creates a WebSocket server that hands connections to dispatcher
func NewServer(dispatcher Dispatcher, opts Options) *Server {
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = defaultMaxMessageSize
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}

	return &Server{
		dispatcher: dispatcher,
		opts:       opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Client is one WebSocket connection in a room
type Client struct {
	id   string
	code string
	slot engine.Slot
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn, code string, slot engine.Slot, buffer int) *Client {
	return &Client{
		id:   uuid.NewString(),
		code: code,
		slot: slot,
		conn: conn,
		send: make(chan []byte, buffer),
	}
}

// ID returns the connection ID
func (c *Client) ID() string {
	return c.id
}

// Send queues a frame without blocking. A full queue or a closed client is
// reported as an error and the frame is dropped.
func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops the write pump, which sends a close frame and closes the socket
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

// ServeWS upgrades the request and attaches the connection to the room.
// slot binds the connection to a seat; engine.NoSlot leaves it unbound.
// The room must already exist.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request, code string, slot engine.Slot) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := newClient(conn, code, slot, s.opts.SendBuffer)
	go client.writePump()

	if err := s.dispatcher.Connect(context.Background(), code, client, slot); err != nil {
		log.Printf("WebSocket connect to room %s failed: %v", code, err)
		client.Close()
		return
	}

	go s.readPump(client)
}

// readPump pumps frames from the WebSocket connection to the room
func (s *Server) readPump(c *Client) {
	defer func() {
		if err := s.dispatcher.Disconnect(context.Background(), c.code, c); err != nil {
			log.Printf("WebSocket disconnect from room %s: %v", c.code, err)
		}
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(s.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		if err := s.dispatcher.Receive(context.Background(), c.code, c, message); err != nil {
			log.Printf("Room %s rejected frame from %s: %v", c.code, c.id, err)
		}
	}
}

// writePump pumps queued frames to the WebSocket connection, one frame per
// event.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
