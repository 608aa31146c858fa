package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/skip2/go-qrcode"

	"github.com/wricardo/bingo-duel/game/engine"
	"github.com/wricardo/bingo-duel/game/service"
	"github.com/wricardo/bingo-duel/game/session"
)

const qrSize = 320

// WebSocketServer upgrades a request into a room connection
type WebSocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, code string, slot engine.Slot)
}

// Server represents the REST API server
type Server struct {
	service   service.GameService
	ws        WebSocketServer
	router    *mux.Router
	publicURL string
}

// NewServer creates a new API server. publicURL is used for share links;
// when empty it is derived from each request.
func NewServer(gameService service.GameService, ws WebSocketServer, publicURL string) *Server {
	s := &Server{
		service:   gameService,
		ws:        ws,
		router:    mux.NewRouter(),
		publicURL: strings.TrimRight(publicURL, "/"),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Rooms
	api.HandleFunc("/rooms", s.handleCreateRoom).Methods("POST")
	api.HandleFunc("/rooms", s.handleListRooms).Methods("GET")
	api.HandleFunc("/rooms/{code}", s.handleGetRoom).Methods("GET")
	api.HandleFunc("/rooms/{code}", s.handleDeleteRoom).Methods("DELETE")
	api.HandleFunc("/rooms/{code}/join", s.handleJoinRoom).Methods("POST")
	api.HandleFunc("/rooms/{code}/grid", s.handleGetGrid).Methods("GET")
	api.HandleFunc("/rooms/{code}/qr", s.handleQR).Methods("GET")

	// WebSocket, with and without the trailing slash older clients send
	s.router.HandleFunc("/ws/bingo/{code}", s.handleWebSocket)
	s.router.HandleFunc("/ws/bingo/{code}/", s.handleWebSocket)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Router exposes the router so callers can mount extra endpoints
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps lobby errors onto HTTP statuses
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrRoomNotFound):
		respondError(w, http.StatusNotFound, "Room not found")
	case errors.Is(err, service.ErrRoomFull):
		respondError(w, http.StatusConflict, "Room is full!")
	case errors.Is(err, service.ErrSeatEmpty):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidRoomCode), errors.Is(err, engine.ErrInvalidSlot):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("API error: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// Room Handlers

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.CreateRoom(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.service.ListRooms(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(rooms),
		"rooms": rooms,
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetRoom(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	code := engine.NormalizeCode(mux.Vars(r)["code"])

	if err := s.service.DeleteRoom(r.Context(), code); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Room %s deleted", code),
	})
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.JoinRoom(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleGetGrid(w http.ResponseWriter, r *http.Request) {
	slot, err := engine.ParseSlot(r.URL.Query().Get("player"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "player must be player1 or player2")
		return
	}

	info, err := s.service.GetGrid(r.Context(), mux.Vars(r)["code"], slot)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

// handleQR returns a PNG QR code of the room's share link
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetRoom(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	link := s.baseURL(r) + "/room/" + info.Code
	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "qr generation failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// baseURL prefers the configured public URL, then the request's own scheme
// and host (respecting X-Forwarded-Proto).
func (s *Server) baseURL(r *http.Request) string {
	if s.publicURL != "" {
		return s.publicURL
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetRoom(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		if errors.Is(err, session.ErrRoomNotFound) || errors.Is(err, service.ErrInvalidRoomCode) {
			http.Error(w, "Room not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slot := engine.NoSlot
	if player := r.URL.Query().Get("player"); player != "" {
		slot, err = engine.ParseSlot(player)
		if err != nil {
			http.Error(w, "player must be player1 or player2", http.StatusBadRequest)
			return
		}
		seated := info.Player1
		if slot == engine.Player2 {
			seated = info.Player2
		}
		if seated == "" {
			http.Error(w, fmt.Sprintf("Seat %s is empty", slot), http.StatusConflict)
			return
		}
	}

	s.ws.ServeWS(w, r, info.Code, slot)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
