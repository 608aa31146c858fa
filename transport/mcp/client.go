package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/bingo-duel/game/engine"
	"github.com/wricardo/bingo-duel/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Bingo Duel",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Bingo Duel - MCP Interface

This is a thin client that proxies all requests to the REST API server.

Bingo Duel is a two-player, turn-based bingo game. Each player gets a private
5x5 card holding the numbers 1-25. Players take turns calling numbers over a
WebSocket; both cross the number off their own card.

AVAILABLE TOOLS:
- create_room: Create a room and take seat one
- join_room: Take seat two in an existing room
- get_room: Show seats, turn and rematch votes for a room
- list_rooms: List all rooms
- get_grid: Show the card of one seat
- delete_room: Delete a room and drop its connections
- game_rules: Rules and the WebSocket message protocol`),
	)

	c.registerTools()
}

func codeProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "6 character room code",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_room",
		Description: "Create a new room. The caller is seated as player1 and receives their card.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleCreateRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "join_room",
		Description: "Join an existing room as player2",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"code": codeProperty(),
			},
			Required: []string{"code"},
		},
	}, c.handleJoinRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_room",
		Description: "Get seats, current turn and rematch votes of a room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"code": codeProperty(),
			},
			Required: []string{"code"},
		},
	}, c.handleGetRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List all rooms",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_grid",
		Description: "Get the bingo card of one seat",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"code": codeProperty(),
				"player": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"player1", "player2"},
					"description": "Seat whose card to show",
				},
			},
			Required: []string{"code", "player"},
		},
	}, c.handleGetGrid)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_room",
		Description: "Delete a room and disconnect everyone in it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"code": codeProperty(),
			},
			Required: []string{"code"},
		},
	}, c.handleDeleteRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_rules",
		Description: "Get the game rules and the WebSocket message protocol",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameRules)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func stringArg(request mcp.CallToolRequest, name string) string {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return ""
	}
	v, _ := args[name].(string)
	return strings.TrimSpace(v)
}

func roomPath(code string, suffix string) string {
	return "/api/rooms/" + url.PathEscape(code) + suffix
}

func (c *Client) handleCreateRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var info service.JoinInfo
	if err := c.apiCall(ctx, "POST", "/api/rooms", nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatJoinInfo(&info, c.baseURL)), nil
}

func (c *Client) handleJoinRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code := stringArg(request, "code")
	if code == "" {
		return mcp.NewToolResultError("code is required"), nil
	}

	var info service.JoinInfo
	if err := c.apiCall(ctx, "POST", roomPath(code, "/join"), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatJoinInfo(&info, c.baseURL)), nil
}

func (c *Client) handleGetRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code := stringArg(request, "code")
	if code == "" {
		return mcp.NewToolResultError("code is required"), nil
	}

	var info service.RoomInfo
	if err := c.apiCall(ctx, "GET", roomPath(code, ""), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRoomInfo(&info)), nil
}

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count int                 `json:"count"`
		Rooms []*service.RoomInfo `json:"rooms"`
	}
	if err := c.apiCall(ctx, "GET", "/api/rooms", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(response.Rooms) == 0 {
		return mcp.NewToolResultText("No rooms."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d rooms:\n", response.Count)
	for _, info := range response.Rooms {
		fmt.Fprintf(&b, "- %s: %d/2 seated, %d connected, turn %s\n",
			info.Code, info.PlayersCount, info.Connections, turnLabel(info.CurrentTurn))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetGrid(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code := stringArg(request, "code")
	player := stringArg(request, "player")
	if code == "" || player == "" {
		return mcp.NewToolResultError("code and player are required"), nil
	}

	var info service.GridInfo
	path := roomPath(code, "/grid?player="+url.QueryEscape(player))
	if err := c.apiCall(ctx, "GET", path, nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Card of %s in room %s:\n%s", info.Player, info.Code, formatGrid(info.Grid))), nil
}

func (c *Client) handleDeleteRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code := stringArg(request, "code")
	if code == "" {
		return mcp.NewToolResultError("code is required"), nil
	}

	if err := c.apiCall(ctx, "DELETE", roomPath(code, ""), nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Room %s deleted.", strings.ToUpper(code))), nil
}

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rules := `# Bingo Duel

## Setup
1. One player calls create_room and gets a room code, seat player1 and a card.
2. The other player calls join_room with that code and gets seat player2 and a card.
   If nobody has the turn yet, the starting player is picked at random.
3. Both players open a WebSocket to /ws/bingo/{code}?player=<seat>.

## Play
- Only the player whose turn it is may call a number. Calling a number passes
  the turn to the other player.
- Both players cross the called number off their own card.
- A player who completes enough lines calls Bingo. The server does not check
  the card; calling Bingo ends the round for both players.
- After a round, each player may ask to play again. When both have asked, the
  turn goes to player1 and a new round starts. Cards are kept.

## WebSocket messages (client -> server)
{"action":"chat","player":"player1","message":"hi","emoji":"👋"}
{"action":"mark_number","player":"player1","number":7}
{"action":"call_bingo","player":"player1"}
{"action":"play_again","player":"player1"}

## WebSocket messages (server -> client)
players_count {count, current_turn}     game_start {current_turn}
mark_number {number, player}            turn_change {current_turn}
chat {player, message, emoji}           notification {message}
bingo_called {message}                  play_again_request {player}
reset_game {current_turn}               error {message}

current_turn is null until both seats are taken.`

	return mcp.NewToolResultText(rules), nil
}

func turnLabel(turn engine.Slot) string {
	if turn == engine.NoSlot {
		return "not set"
	}
	return string(turn)
}

func formatJoinInfo(info *service.JoinInfo, baseURL string) string {
	wsURL := strings.Replace(baseURL, "http", "ws", 1)

	var b strings.Builder
	fmt.Fprintf(&b, "Room: %s\n", info.Code)
	fmt.Fprintf(&b, "Seat: %s (%s)\n", info.Player, info.PlayerName)
	fmt.Fprintf(&b, "Turn: %s\n", turnLabel(info.CurrentTurn))
	fmt.Fprintf(&b, "WebSocket: %s/ws/bingo/%s?player=%s\n", wsURL, info.Code, info.Player)
	b.WriteString("Card:\n")
	b.WriteString(formatGrid(info.Grid))
	return b.String()
}

func formatRoomInfo(info *service.RoomInfo) string {
	seat := func(name string) string {
		if name == "" {
			return "(empty)"
		}
		return name
	}

	votes := make([]string, 0, len(info.RematchVotes))
	for _, v := range info.RematchVotes {
		votes = append(votes, string(v))
	}
	if len(votes) == 0 {
		votes = append(votes, "none")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Room: %s\n", info.Code)
	fmt.Fprintf(&b, "player1: %s\n", seat(info.Player1))
	fmt.Fprintf(&b, "player2: %s\n", seat(info.Player2))
	fmt.Fprintf(&b, "Seated: %d/2, connected: %d\n", info.PlayersCount, info.Connections)
	fmt.Fprintf(&b, "Turn: %s\n", turnLabel(info.CurrentTurn))
	fmt.Fprintf(&b, "Rematch votes: %s\n", strings.Join(votes, ", "))
	return b.String()
}

func formatGrid(grid engine.Grid) string {
	var b strings.Builder
	for _, row := range grid {
		for x, n := range row {
			if x > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%2d", n)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
