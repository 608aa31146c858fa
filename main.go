// Command bingo-duel starts the Bingo Duel room server.
//
// It supports two commands:
//  1. "serve" (default) – runs the HTTP server exposing the REST lobby API, the
//     live WebSocket endpoint and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Settings come from built-in defaults, an optional YAML file (--config), a
// .env file, environment variables and flags, in that order.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/bingo-duel/api"
	"github.com/wricardo/bingo-duel/game/config"
	"github.com/wricardo/bingo-duel/game/room"
	"github.com/wricardo/bingo-duel/game/service"
	"github.com/wricardo/bingo-duel/game/session"
	"github.com/wricardo/bingo-duel/transport/mcp"
	"github.com/wricardo/bingo-duel/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Bingo Duel Server"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// newApp builds the command tree. Flags are declared on the root and are
// visible to every subcommand.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "bingo-duel",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "YAML configuration file", Sources: cli.EnvVars("BINGO_CONFIG")},
			&cli.StringFlag{Name: "host", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Usage: "HTTP server port", Value: config.Default().Port, Sources: cli.EnvVars("PORT")},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging", Sources: cli.EnvVars("DEBUG")},
			&cli.StringFlag{Name: "store", Usage: "Room store: file, sqlite or memory", Sources: cli.EnvVars("BINGO_STORE")},
			&cli.StringFlag{Name: "data-dir", Usage: "Directory for room files", Sources: cli.EnvVars("BINGO_DATA_DIR")},
			&cli.StringFlag{Name: "sqlite-path", Usage: "SQLite database file", Sources: cli.EnvVars("BINGO_SQLITE_PATH")},
			&cli.DurationFlag{Name: "room-ttl", Usage: "Delete rooms idle for longer than this (0 keeps them)", Sources: cli.EnvVars("BINGO_ROOM_TTL")},
			&cli.StringFlag{Name: "public-url", Usage: "Externally reachable base URL", Sources: cli.EnvVars("PUBLIC_URL")},
			&cli.BoolFlag{Name: "slot-aware", Usage: "Deliver opponent events only to the other seat", Sources: cli.EnvVars("BINGO_SLOT_AWARE")},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint (default)",
				Action:  serveAction,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run MCP stdio server, starting an internal HTTP server if needed",
				Action:  mcpAction,
			},
		},
	}
}

// loadConfig layers flags and environment over the YAML file and defaults.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = cmd.Int("port")
	}
	if cmd.IsSet("debug") {
		cfg.Debug = cmd.Bool("debug")
	}
	if cmd.IsSet("store") {
		cfg.Store = cmd.String("store")
	}
	if cmd.IsSet("data-dir") {
		cfg.DataDir = cmd.String("data-dir")
	}
	if cmd.IsSet("sqlite-path") {
		cfg.SQLitePath = cmd.String("sqlite-path")
	}
	if cmd.IsSet("room-ttl") {
		cfg.RoomTTL = cmd.Duration("room-ttl")
	}
	if cmd.IsSet("public-url") {
		cfg.PublicURL = cmd.String("public-url")
	}
	if cmd.IsSet("slot-aware") {
		cfg.Rooms.SlotAwareDelivery = cmd.Bool("slot-aware")
	}
	if cmd.IsSet("ngrok") {
		cfg.Ngrok.Enabled = cmd.Bool("ngrok")
	}
	if cmd.IsSet("ngrok-auth") {
		cfg.Ngrok.AuthToken = cmd.String("ngrok-auth")
	}
	if cmd.IsSet("ngrok-domain") {
		cfg.Ngrok.Domain = cmd.String("ngrok-domain")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Setup logging
	if cfg.Debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
	return cfg, nil
}

// services holds everything one server process shares between handlers
type services struct {
	cfg         *config.Config
	rooms       *session.Manager
	persistence session.RoomPersistence
	hub         *room.Hub
	game        service.GameService
	closers     []io.Closer
}

// Close releases storage handles
func (s *services) Close() {
	s.hub.Shutdown()
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			log.Printf("Warning: close failed: %v", err)
		}
	}
}

// initializeServices wires the room store, the live room hub and the lobby service.
func initializeServices(ctx context.Context, cfg *config.Config) (*services, error) {
	s := &services{cfg: cfg}

	switch cfg.Store {
	case config.StoreFile:
		persistence, err := session.NewFilePersistence(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create room persistence: %w", err)
		}
		s.persistence = persistence
	case config.StoreSQLite:
		persistence, err := session.NewSQLitePersistence(cfg.SQLitePath, cfg.SQLitePoolSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create room persistence: %w", err)
		}
		s.persistence = persistence
		s.closers = append(s.closers, persistence)
	case config.StoreMemory:
		log.Println("Warning: rooms are kept in memory only and will not survive a restart")
	default:
		return nil, fmt.Errorf("%w: unknown store %q", config.ErrInvalidConfig, cfg.Store)
	}

	if s.persistence != nil {
		s.rooms = session.NewManagerWithPersistence(s.persistence)
		// Load persisted rooms on startup
		if err := s.rooms.LoadPersistedRooms(ctx); err != nil {
			log.Printf("Warning: Failed to load persisted rooms: %v", err)
		}
	} else {
		s.rooms = session.NewManager()
	}

	s.hub = room.NewHub(s.rooms, room.NewRegistry(), room.Options{
		MailboxSize: cfg.Rooms.MailboxSize,
		SlotAware:   cfg.Rooms.SlotAwareDelivery,
		Debug:       cfg.Debug,
	}, cfg.Rooms.IdleTimeout)

	s.game = service.NewGameService(s.rooms, s.hub)

	return s, nil
}

// startBackground runs the hub reaper and the room maintenance routines
// until ctx is cancelled.
func (s *services) startBackground(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.hub.Run(ctx)
	}()

	if s.cfg.RoomTTL > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.roomCleanupRoutine(ctx)
		}()
	}

	if _, ok := s.persistence.(*session.FilePersistence); ok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.filesystemSyncRoutine(ctx, 5*time.Second)
		}()
	}
}

// roomCleanupRoutine periodically removes rooms that have not been updated
// within the configured TTL and drops their live connections.
func (s *services) roomCleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanupExpiredRooms(ctx)
		}
	}
}

// cleanupExpiredRooms deletes rooms past the TTL. Rooms with live connections
// are kept: chat and reconnects do not update a room, so an old UpdatedAt
// alone does not mean nobody is playing.
func (s *services) cleanupExpiredRooms(ctx context.Context) int {
	removed := 0
	for _, code := range s.rooms.ExpiredRooms(s.cfg.RoomTTL) {
		deleted, err := s.hub.Delete(ctx, code, func(ctx context.Context) (bool, error) {
			if s.hub.Connections(code) > 0 {
				return false, nil
			}
			return s.rooms.DeleteIfExpired(ctx, code, s.cfg.RoomTTL)
		})
		if err != nil {
			log.Printf("Warning: %v", err)
			continue
		}
		if deleted {
			removed++
		}
	}
	if removed > 0 {
		log.Printf("Cleaned up %d expired rooms", removed)
	}
	return removed
}

// filesystemSyncRoutine periodically drops rooms from memory whose file was
// deleted out from under the server.
func (s *services) filesystemSyncRoutine(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.syncWithPersistence(ctx)
		}
	}
}

func (s *services) syncWithPersistence(ctx context.Context) int {
	if s.persistence == nil {
		return 0
	}

	pruned := 0
	for _, r := range s.rooms.List() {
		if s.persistence.Exists(ctx, r.Code) {
			continue
		}
		deleted, _ := s.hub.Delete(ctx, r.Code, func(ctx context.Context) (bool, error) {
			if s.persistence.Exists(ctx, r.Code) {
				return false, nil
			}
			return s.rooms.DeleteFromMemory(r.Code) == nil, nil
		})
		if deleted {
			pruned++
			log.Printf("Pruned room %s from memory (file deleted)", r.Code)
		}
	}

	if pruned > 0 {
		log.Printf("Filesystem sync: pruned %d orphaned rooms from memory", pruned)
	}
	return pruned
}

// newHandler combines the REST API, the WebSocket endpoint and the /mcp proxy
func newHandler(s *services, mcpBaseURL string) http.Handler {
	ws := websocket.NewServer(s.hub, websocket.Options{
		MaxMessageSize: s.cfg.WebSocket.MaxMessageSize,
		SendBuffer:     s.cfg.WebSocket.SendBuffer,
	})
	apiServer := api.NewServer(s.game, ws, s.cfg.PublicURL)
	mcpClient := mcp.NewClient(mcpBaseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})

	return mainRouter
}

// serveAction starts the HTTP server and, if configured, an ngrok tunnel.
// It blocks until SIGINT or SIGTERM.
func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log.Printf("Starting %s v%s (store: %s)", AppName, Version, cfg.Store)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svcs, err := initializeServices(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svcs.Close()

	addr := cfg.Addr()
	handler := newHandler(svcs, cfg.BaseURL())

	// No WriteTimeout: upgraded WebSocket connections manage their own deadlines.
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	var wg sync.WaitGroup
	svcs.startBackground(ctx, &wg)

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: %s/api", cfg.BaseURL())
		log.Printf("WebSocket: %s/ws/bingo/<code>?player=player1", cfg.BaseURL())
		log.Printf("MCP endpoint: %s/mcp", cfg.BaseURL())

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if cfg.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cfg.Ngrok, handler)
		}()
	}

	select {
	case <-ctx.Done():
		log.Println("Shutting down...")
	case err := <-serveErr:
		cancel()
		wg.Wait()
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("Server stopped")
	return nil
}

// runNgrok serves handler through an ngrok tunnel until ctx is cancelled.
func runNgrok(ctx context.Context, cfg config.NgrokConfig, handler http.Handler) {
	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
		log.Printf("Using custom ngrok domain: %s", cfg.Domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.AuthToken))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws/bingo/<code>", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// mcpAction runs an MCP stdio server.
// It tries to reuse an external API at the configured base URL; if unavailable, it
// starts an internal HTTP API bound to a random loopback port and targets that.
func mcpAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	externalURL := cfg.BaseURL()
	baseURL := externalURL
	log.Printf("Checking for external API server at %s...", externalURL)

	if !apiAvailable(externalURL) {
		log.Printf("No external API server found, starting internal HTTP server")

		svcs, err := initializeServices(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer svcs.Close()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		baseURL = "http://" + listener.Addr().String()
		log.Printf("Starting internal HTTP server on %s for MCP stdio", listener.Addr())

		bgCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		var wg sync.WaitGroup
		svcs.startBackground(bgCtx, &wg)

		httpServer := &http.Server{Handler: newHandler(svcs, baseURL)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()
		defer httpServer.Close()

		log.Println("MCP stdio server ready (using internal HTTP server)")
	} else {
		log.Printf("External API server found at %s, using it for MCP", externalURL)
		log.Println("MCP stdio server ready (using external HTTP server)")
	}

	mcpClient := mcp.NewClient(baseURL)
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// apiAvailable reports whether a Bingo Duel server answers at baseURL
func apiAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
