package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deifi86/TeamChat/internal/events"
)

func TestHubSubscribeAndUnsubscribe(t *testing.T) {
	hub := NewHub()
	topic := events.ChannelTopic(1)

	hub.Subscribe(topic, nil, ConnInfo{UserID: 1})
	assert.Equal(t, 1, hub.SubscriberCount(topic))

	hub.Unsubscribe(topic, nil)
	assert.Equal(t, 0, hub.SubscriberCount(topic))
}

// dialTestConn upgrades a server-side connection, registers it on the hub,
// and returns the client side.
func dialTestConn(t *testing.T, register func(conn *websocket.Conn)) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		register(conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func readEvent(t *testing.T, conn *websocket.Conn) events.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var event events.Event
	require.NoError(t, json.Unmarshal(payload, &event))
	return event
}

func assertNoEvent(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

func TestHubPublishExcludesOriginatingSocket(t *testing.T) {
	hub := NewHub()
	topic := events.ChannelTopic(3)

	actor := dialTestConn(t, func(conn *websocket.Conn) {
		hub.Subscribe(topic, conn, ConnInfo{ConnID: "sock-1", UserID: 1})
	})
	other := dialTestConn(t, func(conn *websocket.Conn) {
		hub.Subscribe(topic, conn, ConnInfo{ConnID: "sock-2", UserID: 2})
	})

	require.Eventually(t, func() bool {
		return hub.SubscriberCount(topic) == 2
	}, time.Second, 10*time.Millisecond)

	hub.PublishToOthers(topic, events.MessageDeleted(9), "sock-1")

	event := readEvent(t, other)
	assert.Equal(t, events.EventMessageDeleted, event.Name)
	assertNoEvent(t, actor)
}

func TestHubPublishReachesActingUsersOtherConnections(t *testing.T) {
	hub := NewHub()
	topic := events.ChannelTopic(4)

	firstTab := dialTestConn(t, func(conn *websocket.Conn) {
		hub.Subscribe(topic, conn, ConnInfo{ConnID: "tab-a", UserID: 1})
	})
	secondTab := dialTestConn(t, func(conn *websocket.Conn) {
		hub.Subscribe(topic, conn, ConnInfo{ConnID: "tab-b", UserID: 1})
	})

	require.Eventually(t, func() bool {
		return hub.SubscriberCount(topic) == 2
	}, time.Second, 10*time.Millisecond)

	hub.PublishToOthers(topic, events.MessageDeleted(9), "tab-a")

	event := readEvent(t, secondTab)
	assert.Equal(t, events.EventMessageDeleted, event.Name)
	assertNoEvent(t, firstTab)
}

func TestHubPublishReachesAllSubscribers(t *testing.T) {
	hub := NewHub()
	topic := events.ConversationTopic(5)

	first := dialTestConn(t, func(conn *websocket.Conn) {
		hub.Subscribe(topic, conn, ConnInfo{UserID: 1})
	})
	second := dialTestConn(t, func(conn *websocket.Conn) {
		hub.Subscribe(topic, conn, ConnInfo{UserID: 2})
	})

	require.Eventually(t, func() bool {
		return hub.SubscriberCount(topic) == 2
	}, time.Second, 10*time.Millisecond)

	hub.Publish(topic, events.MessageDeleted(4))

	assert.Equal(t, events.EventMessageDeleted, readEvent(t, first).Name)
	assert.Equal(t, events.EventMessageDeleted, readEvent(t, second).Name)
}

func TestHubPresenceRoster(t *testing.T) {
	hub := NewHub()
	topic := events.CompanyTopic(7)

	alice := dialTestConn(t, func(conn *websocket.Conn) {
		hub.JoinPresence(topic, conn, ConnInfo{ConnID: "conn-1", UserID: 1}, events.RosterMember{ID: 1, Username: "alice"})
	})

	state := readEvent(t, alice)
	require.Equal(t, events.EventPresenceState, state.Name)

	bob := dialTestConn(t, func(conn *websocket.Conn) {
		hub.JoinPresence(topic, conn, ConnInfo{ConnID: "conn-2", UserID: 2}, events.RosterMember{ID: 2, Username: "bob"})
	})

	join := readEvent(t, alice)
	assert.Equal(t, events.EventPresenceJoin, join.Name)

	bobState := readEvent(t, bob)
	require.Equal(t, events.EventPresenceState, bobState.Name)
	members := bobState.Data.(map[string]any)["members"].([]any)
	assert.Len(t, members, 2)
}

func TestHubPresenceLeaveAnnouncedOnLastConn(t *testing.T) {
	hub := NewHub()
	topic := events.CompanyTopic(9)

	alice := dialTestConn(t, func(conn *websocket.Conn) {
		hub.JoinPresence(topic, conn, ConnInfo{ConnID: "conn-1", UserID: 1}, events.RosterMember{ID: 1, Username: "alice"})
	})
	readEvent(t, alice) // own presence.state

	bobConns := make(chan *websocket.Conn, 1)
	dialTestConn(t, func(conn *websocket.Conn) {
		hub.JoinPresence(topic, conn, ConnInfo{ConnID: "conn-2", UserID: 2}, events.RosterMember{ID: 2, Username: "bob"})
		bobConns <- conn
	})
	require.Equal(t, events.EventPresenceJoin, readEvent(t, alice).Name)
	bobConn := <-bobConns

	hub.LeavePresence(topic, bobConn, 2)
	assert.Equal(t, events.EventPresenceLeave, readEvent(t, alice).Name)
}
