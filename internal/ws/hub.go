package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/deifi86/TeamChat/internal/events"
	"github.com/deifi86/TeamChat/internal/observability"
)

// writeTimeout bounds each delivery so one slow consumer cannot stall
// fan-out to the rest of a topic.
const writeTimeout = 5 * time.Second

// Broadcaster is the delivery side of the hub, as seen by handlers.
type Broadcaster interface {
	Publish(topic events.Topic, event events.Event)
	PublishToOthers(topic events.Topic, event events.Event, socketID string)
}

type client struct {
	conn *websocket.Conn
	info ConnInfo

	// serializes writes; gorilla conns do not support concurrent writers
	mu sync.Mutex
}

func (c *client) send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub maintains topic subscriptions and presence rosters. Delivery is
// best-effort: failed writes evict the connection and are logged, never
// surfaced to the publishing request.
type Hub struct {
	mu     sync.RWMutex
	topics map[events.Topic]map[*websocket.Conn]*client

	// presence rosters, keyed by company topic then user id
	rosters map[events.Topic]map[int]events.RosterMember
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		topics:  make(map[events.Topic]map[*websocket.Conn]*client),
		rosters: make(map[events.Topic]map[int]events.RosterMember),
	}
}

// Subscribe registers a connection on a topic. Authorization happens before
// the upgrade, in the websocket handlers.
func (h *Hub) Subscribe(topic events.Topic, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.topics[topic]; !ok {
		h.topics[topic] = make(map[*websocket.Conn]*client)
	}
	h.topics[topic][conn] = &client{conn: conn, info: info}
}

// Unsubscribe removes a connection from a topic.
func (h *Hub) Unsubscribe(topic events.Topic, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.topics[topic]; ok {
		delete(clients, conn)
		if len(clients) == 0 {
			delete(h.topics, topic)
		}
	}
}

// JoinPresence registers a connection on a presence topic, sends the current
// roster to the joining connection, and announces the join to the rest when
// it is the member's first connection on the topic.
func (h *Hub) JoinPresence(topic events.Topic, conn *websocket.Conn, info ConnInfo, member events.RosterMember) {
	h.mu.Lock()
	if _, ok := h.topics[topic]; !ok {
		h.topics[topic] = make(map[*websocket.Conn]*client)
	}
	h.topics[topic][conn] = &client{conn: conn, info: info}

	if _, ok := h.rosters[topic]; !ok {
		h.rosters[topic] = make(map[int]events.RosterMember)
	}
	_, alreadyPresent := h.rosters[topic][member.ID]
	h.rosters[topic][member.ID] = member

	members := make([]events.RosterMember, 0, len(h.rosters[topic]))
	for _, m := range h.rosters[topic] {
		members = append(members, m)
	}
	joining := h.topics[topic][conn]
	h.mu.Unlock()

	state := events.Event{Name: events.EventPresenceState, Data: events.PresenceStatePayload{Members: members}}
	if payload, err := json.Marshal(state); err == nil {
		if err := joining.send(payload); err != nil {
			log.Printf("websocket write error: topic=%s err=%v", topic, err)
		}
	}

	if !alreadyPresent {
		h.PublishToOthers(topic, events.Event{Name: events.EventPresenceJoin, Data: events.PresenceJoinPayload{Member: member}}, info.ConnID)
	}
}

// LeavePresence removes a connection from a presence topic and announces the
// leave once the member has no remaining connections there.
func (h *Hub) LeavePresence(topic events.Topic, conn *websocket.Conn, userID int) {
	h.mu.Lock()
	var member events.RosterMember
	left := false
	if clients, ok := h.topics[topic]; ok {
		delete(clients, conn)
		if len(clients) == 0 {
			delete(h.topics, topic)
		}

		remaining := 0
		for _, c := range clients {
			if c.info.UserID == userID {
				remaining++
			}
		}
		if remaining == 0 {
			if roster, ok := h.rosters[topic]; ok {
				member, left = roster[userID]
				delete(roster, userID)
				if len(roster) == 0 {
					delete(h.rosters, topic)
				}
			}
		}
	}
	h.mu.Unlock()

	if left {
		h.Publish(topic, events.Event{Name: events.EventPresenceLeave, Data: events.PresenceLeavePayload{Member: member}})
	}
}

// Publish delivers an event to every subscriber of the topic.
func (h *Hub) Publish(topic events.Topic, event events.Event) {
	h.publish(topic, event, "")
}

// PublishToOthers delivers an event to every subscriber except the
// originating socket, which already holds the authoritative local result.
// The acting user's other connections (tabs, devices) still receive it.
// An empty socketID delivers to everyone.
func (h *Hub) PublishToOthers(topic events.Topic, event events.Event, socketID string) {
	h.publish(topic, event, socketID)
}

func (h *Hub) publish(topic events.Topic, event events.Event, excludeSocketID string) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("event marshal error: event=%s err=%v", event.Name, err)
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.topics[topic]))
	for _, c := range h.topics[topic] {
		if excludeSocketID != "" && c.info.ConnID == excludeSocketID {
			continue
		}
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(payload); err != nil {
			log.Printf("websocket write error: topic=%s event=%s err=%v", topic, event.Name, err)
			observability.IncBroadcastError(event.Name)
			c.conn.Close()
			h.Unsubscribe(topic, c.conn)
			continue
		}
		observability.IncBroadcastDelivered(event.Name)
	}
}

// SubscriberCount reports how many connections a topic currently has.
func (h *Hub) SubscriberCount(topic events.Topic) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
