package services

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/CrowderSoup/project-tracker/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	// Per-connection outbound buffer; a client that falls this far behind is dropped
	sendBufferSize = 256

	// Pending publishes waiting for the hub loop
	broadcastQueueSize = 1024
)

const (
	EventProjectCreated = "project:created"
	EventProjectUpdated = "project:updated"
	EventProjectDeleted = "project:deleted"
	EventTaskCreated    = "task:created"
	EventTaskUpdated    = "task:updated"
	EventTaskDeleted    = "task:deleted"
	EventUserUpdated    = "user:updated"
	EventUserDeleted    = "user:deleted"
	EventUserOnline     = "user:online"
	EventUserOffline    = "user:offline"
)

// ProjectRoom is the room key for per-project task events.
func ProjectRoom(projectID int64) string {
	return "project:" + strconv.FormatInt(projectID, 10)
}

// Publisher fans mutation events out to connected clients. Implementations
// must not block the caller.
type Publisher interface {
	Publish(event string, payload any)
	PublishToRoom(room, event string, payload any)
}

// Message is the frame written to clients.
type Message struct {
	Type string `json:"type"`
	Room string `json:"room,omitempty"`
	Data any    `json:"data,omitempty"`
}

// inboundMessage is what clients send: join/leave a project room or ping.
type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Client represents a connected WebSocket client
type Client struct {
	ID     string
	UserID int64
	Email  string
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
}

func NewClient(hub *Hub, conn *websocket.Conn, userID int64, email string) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Email:  email,
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan []byte, sendBufferSize),
	}
}

func (c *Client) log() *logrus.Entry {
	return logging.Logger.WithFields(logrus.Fields{"client": c.ID, "user_id": c.UserID})
}

// ReadPump reads room membership requests and pings from the connection.
// Clients never publish mutation events themselves.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log().WithError(err).Warn("WebSocket error")
			}
			break
		}
		c.handleInbound(raw)
	}
}

func (c *Client) handleInbound(raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.log().WithError(err).Debug("Ignoring malformed WebSocket message")
		return
	}

	switch msg.Type {
	case "ping":
		c.Hub.Reply(c, Message{
			Type: "pong",
			Data: map[string]string{"timestamp": time.Now().Format(time.RFC3339)},
		})
	case "join:project", "leave:project":
		projectID, ok := parseProjectID(msg.Data)
		if !ok {
			c.log().WithField("type", msg.Type).Debug("Ignoring room request without a project id")
			return
		}
		if msg.Type == "join:project" {
			c.Hub.Join(c, ProjectRoom(projectID))
		} else {
			c.Hub.Leave(c, ProjectRoom(projectID))
		}
	default:
		c.log().WithField("type", msg.Type).Debug("Ignoring unknown WebSocket message")
	}
}

// parseProjectID accepts 5, "5" or {"project_id": 5}.
func parseProjectID(data json.RawMessage) (int64, bool) {
	var id int64
	if err := json.Unmarshal(data, &id); err == nil && id > 0 {
		return id, true
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil && id > 0 {
			return id, true
		}
	}
	var obj struct {
		ProjectID int64 `json:"project_id"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.ProjectID > 0 {
		return obj.ProjectID, true
	}
	return 0, false
}

// WritePump pumps messages from the hub to the WebSocket connection, one
// event per frame.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type outbound struct {
	room    string
	client  *Client // set for a reply to a single connection
	event   string
	payload []byte
}

type membership struct {
	client *Client
	room   string
	join   bool
}

// Hub maintains the set of active clients and their rooms, and delivers
// published events from a single loop so every connection sees events in
// publish order.
type Hub struct {
	clients    map[*Client]bool
	rooms      map[string]map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	membership chan membership

	connected atomic.Int64
	stop      chan struct{}
	done      chan struct{}
}

// NewHub creates a new hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan outbound, broadcastQueueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		membership: make(chan membership),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.stop:
	}
}

// Unregister removes a client from the hub and all of its rooms
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stop:
	}
}

// Join subscribes the client to room in addition to the global stream.
func (h *Hub) Join(client *Client, room string) {
	select {
	case h.membership <- membership{client: client, room: room, join: true}:
	case <-h.stop:
	}
}

func (h *Hub) Leave(client *Client, room string) {
	select {
	case h.membership <- membership{client: client, room: room}:
	case <-h.stop:
	}
}

// Publish queues an event for every connected client.
func (h *Hub) Publish(event string, payload any) {
	h.enqueue(outbound{event: event}, Message{Type: event, Data: payload})
}

// PublishToRoom queues an event for the members of room only.
func (h *Hub) PublishToRoom(room, event string, payload any) {
	h.enqueue(outbound{room: room, event: event}, Message{Type: event, Room: room, Data: payload})
}

// Reply queues a message for a single client.
func (h *Hub) Reply(client *Client, msg Message) {
	h.enqueue(outbound{client: client, event: msg.Type}, msg)
}

// ClientCount is the number of registered connections.
func (h *Hub) ClientCount() int {
	return int(h.connected.Load())
}

func (h *Hub) enqueue(out outbound, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logging.Logger.WithError(err).WithField("event", msg.Type).Error("Error marshalling WebSocket message")
		return
	}
	out.payload = payload

	select {
	case h.broadcast <- out:
	default:
		logging.Logger.WithFields(logrus.Fields{"event": out.event, "room": out.room}).
			Warn("Broadcast queue full, dropping event")
	}
}

// Run starts the hub's main loop. It returns after Stop.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			h.connected.Add(1)
			client.log().Info("Client connected")
			h.Publish(EventUserOnline, presence(client))
		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
				client.log().Info("Client disconnected")
				h.Publish(EventUserOffline, presence(client))
			}
		case m := <-h.membership:
			if !h.clients[m.client] {
				continue
			}
			if m.join {
				if h.rooms[m.room] == nil {
					h.rooms[m.room] = make(map[*Client]bool)
				}
				h.rooms[m.room][m.client] = true
				m.client.log().WithField("room", m.room).Debug("Client joined room")
			} else {
				h.leaveRoom(m.client, m.room)
				m.client.log().WithField("room", m.room).Debug("Client left room")
			}
		case out := <-h.broadcast:
			h.dispatch(out)
		}
	}
}

// Stop ends the loop and closes every client's send channel.
func (h *Hub) Stop() {
	select {
	case <-h.stop:
		return
	default:
	}
	close(h.stop)
	<-h.done
}

func (h *Hub) dispatch(out outbound) {
	switch {
	case out.client != nil:
		if h.clients[out.client] {
			h.deliver(out.client, out)
		}
	case out.room != "":
		for client := range h.rooms[out.room] {
			h.deliver(client, out)
		}
	default:
		for client := range h.clients {
			h.deliver(client, out)
		}
	}
}

func (h *Hub) deliver(client *Client, out outbound) {
	select {
	case client.Send <- out.payload:
	default:
		// Client's send buffer is full, assume disconnected
		client.log().WithField("event", out.event).Warn("Client send buffer full, removing client")
		h.drop(client)
		h.Publish(EventUserOffline, presence(client))
	}
}

func (h *Hub) drop(client *Client) {
	if !h.clients[client] {
		return
	}
	for room := range h.rooms {
		h.leaveRoom(client, room)
	}
	delete(h.clients, client)
	h.connected.Add(-1)
	close(client.Send)
}

func (h *Hub) leaveRoom(client *Client, room string) {
	members := h.rooms[room]
	if members == nil {
		return
	}
	delete(members, client)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

func presence(client *Client) map[string]any {
	return map[string]any{"user_id": client.UserID, "connection_id": client.ID}
}
