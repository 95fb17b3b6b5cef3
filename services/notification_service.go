package services

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"angeleyes-http-service/config"
)

// Notification event names published to subscribers
const (
	EventSessionStarted  = "session_started"
	EventSessionEnded    = "session_ended"
	EventSettingsUpdated = "settings_updated"
	EventDetection       = "detection"
	EventSafetyAlert     = "safety_alert"
	EventEscalation      = "escalation"
	EventResolution      = "resolution"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period, must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 1024

	// Outbound buffer per client
	sendBufferSize = 64
)

// NotificationEvent is the envelope every subscriber receives
type NotificationEvent struct {
	Event     string      `json:"event"`
	BabyID    uint        `json:"baby_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// NotificationClient is one connected subscriber. The connection may be
// nil for clients driven directly through the send channel.
type NotificationClient struct {
	hub    *NotificationHub
	conn   *websocket.Conn
	Send   chan []byte
	UserID uint
}

// InterfaceNotificationService defines the per-baby pub/sub interface
type InterfaceNotificationService interface {
	Run()
	Stop()
	NewClient(conn *websocket.Conn, userID uint) *NotificationClient
	Subscribe(client *NotificationClient, babyID uint)
	Unsubscribe(client *NotificationClient, babyID uint)
	Remove(client *NotificationClient)
	Publish(babyID uint, event string, data interface{})
	SubscriberCount(babyID uint) int
}

// NotificationHub fans notification events out to websocket subscribers.
// Delivery is best effort: slow subscribers have events dropped rather
// than blocking the publisher.
type NotificationHub struct {
	mu sync.RWMutex

	// rooms maps a baby ID to its current subscribers
	rooms map[uint]map[*NotificationClient]struct{}

	// subscriptions tracks which rooms each client joined, for cleanup
	subscriptions map[*NotificationClient]map[uint]struct{}

	done chan struct{}
}

// NewNotificationHub creates a new notification hub
func NewNotificationHub() InterfaceNotificationService {
	return &NotificationHub{
		rooms:         make(map[uint]map[*NotificationClient]struct{}),
		subscriptions: make(map[*NotificationClient]map[uint]struct{}),
		done:          make(chan struct{}),
	}
}

// Run blocks until the hub is stopped
func (h *NotificationHub) Run() {
	<-h.done
}

// Stop shuts the hub down and disconnects every client
func (h *NotificationHub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.subscriptions {
		close(client.Send)
	}
	h.rooms = make(map[uint]map[*NotificationClient]struct{})
	h.subscriptions = make(map[*NotificationClient]map[uint]struct{})

	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// NewClient registers a new subscriber on the hub
func (h *NotificationHub) NewClient(conn *websocket.Conn, userID uint) *NotificationClient {
	client := &NotificationClient{
		hub:    h,
		conn:   conn,
		Send:   make(chan []byte, sendBufferSize),
		UserID: userID,
	}

	h.mu.Lock()
	h.subscriptions[client] = make(map[uint]struct{})
	h.mu.Unlock()

	return client
}

// Subscribe adds a client to a baby's notification room
func (h *NotificationHub) Subscribe(client *NotificationClient, babyID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscriptions[client]; !ok {
		return
	}

	room, ok := h.rooms[babyID]
	if !ok {
		room = make(map[*NotificationClient]struct{})
		h.rooms[babyID] = room
	}
	room[client] = struct{}{}
	h.subscriptions[client][babyID] = struct{}{}
}

// Unsubscribe removes a client from a baby's notification room
func (h *NotificationHub) Unsubscribe(client *NotificationClient, babyID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoom(client, babyID)
	if subs, ok := h.subscriptions[client]; ok {
		delete(subs, babyID)
	}
}

// Remove disconnects a client from every room and closes its send channel
func (h *NotificationHub) Remove(client *NotificationClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscriptions[client]
	if !ok {
		return
	}
	for babyID := range subs {
		h.removeFromRoom(client, babyID)
	}
	delete(h.subscriptions, client)
	close(client.Send)
}

// removeFromRoom must be called with the lock held
func (h *NotificationHub) removeFromRoom(client *NotificationClient, babyID uint) {
	room, ok := h.rooms[babyID]
	if !ok {
		return
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, babyID)
	}
}

// Publish sends an event to every subscriber of a baby. Subscribers with
// full buffers are skipped.
func (h *NotificationHub) Publish(babyID uint, event string, data interface{}) {
	message, err := json.Marshal(NotificationEvent{
		Event:     event,
		BabyID:    babyID,
		Timestamp: time.Now(),
		Data:      data,
	})
	if err != nil {
		config.Error("[Hub] failed to serialize event %s: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[babyID] {
		select {
		case client.Send <- message:
		default:
			config.Warning("[Hub] dropping event for slow subscriber (user %d)", client.UserID)
		}
	}
}

// SubscriberCount returns how many clients are subscribed to a baby
func (h *NotificationHub) SubscriberCount(babyID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[babyID])
}

// subscribeRequest is the inbound message format on the websocket
type subscribeRequest struct {
	Action string `json:"action"` // "subscribe" or "unsubscribe"
	BabyID uint   `json:"baby_id"`
}

// ReadPump reads subscription requests from the websocket until the
// connection drops. canAccess filters which babies this user may join.
func (c *NotificationClient) ReadPump(canAccess func(userID, babyID uint) bool) {
	defer func() {
		c.hub.Remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				config.Warning("[Hub] websocket read error: %v", err)
			}
			return
		}

		var req subscribeRequest
		if err := json.Unmarshal(message, &req); err != nil {
			continue
		}

		switch req.Action {
		case "subscribe":
			if canAccess == nil || canAccess(c.UserID, req.BabyID) {
				c.hub.Subscribe(c, req.BabyID)
			}
		case "unsubscribe":
			c.hub.Unsubscribe(c, req.BabyID)
		}
	}
}

// WritePump forwards hub events to the websocket and keeps the
// connection alive with pings
func (c *NotificationClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
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
