// Package realtime pushes record snapshots to connected dashboards over
// WebSockets. Clients subscribe to topics scoped to their own account
// (their appointments, orders, notifications, conversations, inventory)
// and every committed mutation broadcasts an event to the matching topic.
// Each connection's subscriptions are released when the connection closes.
package realtime

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"careconnect-server/internal/models"
)

// Event types delivered to subscribers.
const (
	EventSnapshot = "snapshot"
	EventCreated  = "record.created"
	EventUpdated  = "record.updated"
	EventDeleted  = "record.deleted"
)

// Event is a single realtime notification.
type Event struct {
	Type         string          `json:"type"`
	Topic        string          `json:"topic"`
	ResourceType string          `json:"resourceType,omitempty"`
	ResourceID   string          `json:"resourceId,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
	Data         json.RawMessage `json:"data,omitempty"`
}

// ClientMessage is an inbound subscribe/unsubscribe request.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

// Publisher is the write-side interface handlers use to fan out events
// after a committed mutation.
type Publisher interface {
	Publish(event Event)
}

// SnapshotLoader resolves the current result set behind a topic so a new
// subscriber starts from live data instead of an empty view.
type SnapshotLoader interface {
	Snapshot(topic string) (json.RawMessage, error)
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents a single WebSocket connection belonging to one
// authenticated account.
type Client struct {
	ID     string
	UserID string
	Role   models.Role
	Topics []string
	Send   chan []byte
	hub    *Hub
	conn   Conn
}

// Hub is the central connection manager that tracks clients and their topic
// subscriptions. All operations are safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // topic -> set of clients
	all     map[*Client]struct{}
	loader  SnapshotLoader
	log     *logrus.Logger
}

// NewHub creates a Hub ready to manage clients. loader hydrates the
// initial snapshot per topic; a nil loader delivers empty snapshots.
func NewHub(log *logrus.Logger, loader SnapshotLoader) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
		loader:  loader,
		log:     log,
	}
}

// Register adds a client to the hub and subscribes it to its initial
// topics. Every topic receives an immediate snapshot event so a view is
// never left waiting on an empty result set.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.all[client] = struct{}{}
	for _, topic := range client.Topics {
		if h.clients[topic] == nil {
			h.clients[topic] = make(map[*Client]struct{})
		}
		h.clients[topic][client] = struct{}{}
	}
	h.mu.Unlock()

	for _, topic := range client.Topics {
		h.sendSnapshot(client, topic)
	}
}

// Unregister removes a client from the hub and all topic subscriptions and
// closes its send channel. Safe to call more than once per client.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}

	for _, topic := range client.Topics {
		if subscribers, ok := h.clients[topic]; ok {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.clients, topic)
			}
		}
	}

	delete(h.all, client)
	close(client.Send)
}

// Subscribe adds topics to an already-registered client, acknowledging each
// with a snapshot event. Topics the client's account may not read are
// dropped.
func (h *Hub) Subscribe(client *Client, topics []string) {
	accepted := make([]string, 0, len(topics))
	for _, topic := range topics {
		if !TopicAllowed(client.UserID, client.Role, topic) {
			h.log.WithFields(logrus.Fields{
				"client": client.ID,
				"topic":  topic,
			}).Warn("rejected subscription to unauthorized topic")
			continue
		}
		accepted = append(accepted, topic)
	}

	h.mu.Lock()
	for _, topic := range accepted {
		if h.clients[topic] == nil {
			h.clients[topic] = make(map[*Client]struct{})
		}
		h.clients[topic][client] = struct{}{}
	}
	client.Topics = append(client.Topics, accepted...)
	h.mu.Unlock()

	for _, topic := range accepted {
		h.sendSnapshot(client, topic)
	}
}

// Unsubscribe removes topics from an already-registered client.
func (h *Hub) Unsubscribe(client *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	removeSet := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		removeSet[t] = struct{}{}
	}

	for _, topic := range topics {
		if subscribers, ok := h.clients[topic]; ok {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.clients, topic)
			}
		}
	}

	remaining := make([]string, 0, len(client.Topics))
	for _, t := range client.Topics {
		if _, rm := removeSet[t]; !rm {
			remaining = append(remaining, t)
		}
	}
	client.Topics = remaining
}

// ProcessMessage dispatches an inbound ClientMessage.
func (h *Hub) ProcessMessage(client *Client, msg ClientMessage) {
	switch msg.Action {
	case "subscribe":
		h.Subscribe(client, msg.Topics)
	case "unsubscribe":
		h.Unsubscribe(client, msg.Topics)
	}
}

// Publish implements Publisher by broadcasting the event to subscribers of
// its topic. Events are delivered in publish order per topic.
func (h *Hub) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal realtime event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	subscribers, ok := h.clients[event.Topic]
	if !ok {
		return
	}
	for client := range subscribers {
		select {
		case client.Send <- data:
		default:
			// Client buffer full; skip to avoid blocking the writer.
		}
	}
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

// TopicCount returns the number of clients subscribed to a topic.
func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

func (h *Hub) sendSnapshot(client *Client, topic string) {
	payload := json.RawMessage("[]")
	if h.loader != nil {
		loaded, err := h.loader.Snapshot(topic)
		if err != nil {
			h.log.WithFields(logrus.Fields{
				"topic": topic,
				"error": err.Error(),
			}).Warn("Snapshot load failed; sending empty snapshot")
		} else if len(loaded) > 0 {
			payload = loaded
		}
	}
	data, err := json.Marshal(Event{
		Type:      EventSnapshot,
		Topic:     topic,
		Data:      payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		return
	}
	select {
	case client.Send <- data:
	default:
	}
}

// TopicAllowed gates topic subscriptions: an account may only watch topics
// scoped to itself (its record lists, its inventory, conversations it takes
// part in). Admins may watch anything.
func TopicAllowed(userID string, role models.Role, topic string) bool {
	if role == models.RoleAdmin {
		return true
	}
	switch {
	case strings.HasPrefix(topic, "user/"):
		rest := strings.TrimPrefix(topic, "user/")
		return strings.HasPrefix(rest, userID+"/")
	case strings.HasPrefix(topic, "pharmacy/"):
		rest := strings.TrimPrefix(topic, "pharmacy/")
		return role == models.RolePharmacy && strings.HasPrefix(rest, userID+"/")
	case strings.HasPrefix(topic, "conversation/"):
		cid := strings.TrimPrefix(topic, "conversation/")
		for _, part := range strings.Split(cid, "_") {
			if part == userID {
				return true
			}
		}
		return false
	}
	return false
}

// Topic name helpers keep handlers and clients agreed on the naming scheme.

func UserAppointmentsTopic(userID string) string   { return "user/" + userID + "/appointments" }
func UserOrdersTopic(userID string) string         { return "user/" + userID + "/orders" }
func UserNotificationsTopic(userID string) string  { return "user/" + userID + "/notifications" }
func ConversationTopic(conversationID string) string { return "conversation/" + conversationID }
func PharmacyInventoryTopic(pharmacyID string) string { return "pharmacy/" + pharmacyID + "/inventory" }

// NewClient builds a Client for an authenticated connection.
func NewClient(hub *Hub, conn Conn, userID string, role models.Role) *Client {
	return &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Role:   role,
		Topics: []string{},
		Send:   make(chan []byte, 256),
		hub:    hub,
		conn:   conn,
	}
}

// gorillaConnAdapter wraps a gorilla/websocket.Conn to satisfy Conn.
type gorillaConnAdapter struct {
	conn *gorillawebsocket.Conn
}

func (a *gorillaConnAdapter) ReadMessage() (int, []byte, error) {
	return a.conn.ReadMessage()
}

func (a *gorillaConnAdapter) WriteMessage(messageType int, data []byte) error {
	return a.conn.WriteMessage(messageType, data)
}

func (a *gorillaConnAdapter) Close() error {
	return a.conn.Close()
}
