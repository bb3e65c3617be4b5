package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mbeaufort/pitchrally/internal/game"
	"github.com/mbeaufort/pitchrally/internal/logger"
	"github.com/mbeaufort/pitchrally/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// Dispatcher routes commands to the session owning a match. Dispatch
// spawns the session if needed; Notify only reaches a live one.
type Dispatcher interface {
	Dispatch(matchID string, cmd game.Command)
	Notify(matchID string, cmd game.Command)
}

// Hub maintains the set of active clients, grouped into per-match
// rooms, and delivers match events to them. It implements
// game.Emitter.
type Hub struct {
	log        logger.Logger
	clients    map[*Client]bool
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	dispatcher Dispatcher
}

// Client is a middleman between the websocket connection and the hub.
// matchID and userID are bound when the client sends join_match.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan models.WSMessage
	mu      sync.Mutex
	matchID string
	userID  string
}

// New creates a new Hub instance with injected dependencies
func New(log logger.Logger) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// SetDispatcher wires the hub to the session registry. Called once
// during startup, after the registry is constructed with the hub as
// its emitter.
func (h *Hub) SetDispatcher(d Dispatcher) {
	h.dispatcher = d
}

// Start begins the hub's main loop in a goroutine
func (h *Hub) Start() {
	go h.run()
}

// run handles client registration and unregistration
func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client connected", "total_clients", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			_, known := h.clients[client]
			if known {
				delete(h.clients, client)
				h.leaveRoomLocked(client)
				close(client.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client disconnected", "total_clients", total)

			if known {
				client.mu.Lock()
				matchID, userID := client.matchID, client.userID
				client.mu.Unlock()
				if matchID != "" && userID != "" && h.dispatcher != nil {
					h.dispatcher.Notify(matchID, game.Leave{UserID: userID})
				}
			}
		}
	}
}

// joinRoom moves a client into a match room, leaving any previous one.
func (h *Hub) joinRoom(c *Client, matchID, userID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.leaveRoomLocked(c)
	c.mu.Lock()
	c.matchID = matchID
	c.userID = userID
	c.mu.Unlock()

	room, ok := h.rooms[matchID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[matchID] = room
	}
	room[c] = true
}

func (h *Hub) leaveRoomLocked(c *Client) {
	c.mu.Lock()
	matchID := c.matchID
	c.mu.Unlock()
	if matchID == "" {
		return
	}
	if room, ok := h.rooms[matchID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, matchID)
		}
	}
}

// Broadcast sends a message to every client in a match room. It
// implements game.Emitter.
func (h *Hub) Broadcast(matchID string, msg models.WSMessage) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	for client := range h.rooms[matchID] {
		h.deliver(client, msg)
	}
}

// SendTo sends a message to a single participant of a match. It
// implements game.Emitter.
func (h *Hub) SendTo(matchID, userID string, msg models.WSMessage) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	for client := range h.rooms[matchID] {
		client.mu.Lock()
		match := client.userID == userID
		client.mu.Unlock()
		if match {
			h.deliver(client, msg)
		}
	}
}

// deliver queues a message on a client, kicking the client if its
// send buffer is full. Callers hold at least a read lock on h.mutex.
func (h *Hub) deliver(client *Client, msg models.WSMessage) {
	select {
	case client.send <- msg:
	default:
		go func(c *Client) {
			h.unregister <- c
		}(client)
	}
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket error", "error", err)
			}
			break
		}
		c.handleMessage(message)
	}
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	MatchID  string `json:"match_id"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type submitPayload struct {
	MatchID string `json:"match_id"`
	RallyID string `json:"rally_id"`
	UserID  string `json:"user_id"`
	Answer  string `json:"answer"`
}

type timeoutPayload struct {
	MatchID string `json:"match_id"`
	RallyID string `json:"rally_id"`
	UserID  string `json:"user_id"`
}

// handleMessage decodes an inbound envelope and dispatches the
// command to the match session. Malformed messages earn the sender an
// error event and nothing else.
func (c *Client) handleMessage(raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.sendError("invalid message")
		return
	}

	switch env.Type {
	case game.CmdJoinMatch:
		var p joinPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.MatchID == "" || p.UserID == "" {
			c.sendError("invalid join_match payload")
			return
		}
		c.hub.joinRoom(c, p.MatchID, p.UserID)
		c.hub.dispatcher.Dispatch(p.MatchID, game.JoinMatch{UserID: p.UserID, Username: p.Username})

	case game.CmdSubmitAnswer:
		var p submitPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.RallyID == "" || p.Answer == "" {
			c.sendError("invalid submit_answer payload")
			return
		}
		c.hub.dispatcher.Dispatch(c.room(p.MatchID), game.SubmitAnswer{
			UserID:  c.identity(p.UserID),
			RallyID: p.RallyID,
			Answer:  p.Answer,
		})

	case game.CmdTimeout:
		var p timeoutPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.RallyID == "" {
			c.sendError("invalid timeout payload")
			return
		}
		c.hub.dispatcher.Dispatch(c.room(p.MatchID), game.Timeout{
			UserID:  c.identity(p.UserID),
			RallyID: p.RallyID,
		})

	default:
		c.hub.log.Debug("Unknown message type", "type", env.Type)
		c.sendError("unknown message type")
	}
}

// room prefers the match the client joined over whatever the payload
// claims.
func (c *Client) room(claimed string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.matchID != "" {
		return c.matchID
	}
	return claimed
}

func (c *Client) identity(claimed string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.userID != "" {
		return c.userID
	}
	return claimed
}

func (c *Client) sendError(message string) {
	select {
	case c.send <- models.WSMessage{
		Type:    game.EventError,
		Payload: game.ErrorPayload{Message: message},
	}:
	default:
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			msgBytes, _ := json.Marshal(message)
			w.Write(msgBytes)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs handles websocket requests from clients
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error", "error", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan models.WSMessage, 256),
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}
