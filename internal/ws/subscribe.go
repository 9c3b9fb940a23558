package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"github.com/deifi86/TeamChat/internal/events"
	"github.com/deifi86/TeamChat/internal/middleware"
	"github.com/deifi86/TeamChat/internal/observability"
	"github.com/deifi86/TeamChat/internal/rabbitmq"
	"github.com/deifi86/TeamChat/internal/repositories"
	"github.com/deifi86/TeamChat/internal/session"
)

// SubscribeHandler upgrades websocket connections onto broadcast topics.
// Authorization happens before the upgrade; entities the caller cannot see
// answer 404 so their existence is not leaked.
type SubscribeHandler struct {
	hub              *Hub
	sessions         session.Store
	userRepo         repositories.UserRepository
	companyRepo      repositories.CompanyRepository
	channelRepo      repositories.ChannelRepository
	conversationRepo repositories.ConversationRepository
	publisher        rabbitmq.Publisher
}

// NewSubscribeHandler constructs a SubscribeHandler.
func NewSubscribeHandler(
	hub *Hub,
	sessions session.Store,
	userRepo repositories.UserRepository,
	companyRepo repositories.CompanyRepository,
	channelRepo repositories.ChannelRepository,
	conversationRepo repositories.ConversationRepository,
	publisher rabbitmq.Publisher,
) *SubscribeHandler {
	return &SubscribeHandler{
		hub:              hub,
		sessions:         sessions,
		userRepo:         userRepo,
		companyRepo:      companyRepo,
		channelRepo:      channelRepo,
		conversationRepo: conversationRepo,
		publisher:        publisher,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleUser subscribes the caller to their private user topic.
func (h *SubscribeHandler) HandleUser(c *gin.Context) {
	ctx, span := otel.Tracer("teamchat/ws").Start(c.Request.Context(), "ws.handshake.user")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := h.authenticate(c)
	if !ok {
		return
	}

	h.subscribe(c, span.SpanContext().TraceID().String(), "user", userID, events.UserTopic(userID), userID)
}

// HandleChannel subscribes a channel member to the channel topic.
func (h *SubscribeHandler) HandleChannel(c *gin.Context) {
	channelID, err := strconv.Atoi(c.Param("channel_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	ctx, span := otel.Tracer("teamchat/ws").Start(c.Request.Context(), "ws.handshake.channel")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := h.authenticate(c)
	if !ok {
		return
	}

	channel, err := h.channelRepo.GetChannel(ctx, channelID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		return
	}
	member, err := h.channelRepo.IsMemberOfChannel(ctx, channel, userID)
	if err != nil || !member {
		c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		return
	}

	h.subscribe(c, span.SpanContext().TraceID().String(), "channel", channelID, events.ChannelTopic(channelID), userID)
}

// HandleConversation subscribes a conversation participant to the
// conversation topic.
func (h *SubscribeHandler) HandleConversation(c *gin.Context) {
	conversationID, err := strconv.Atoi(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	ctx, span := otel.Tracer("teamchat/ws").Start(c.Request.Context(), "ws.handshake.conversation")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := h.authenticate(c)
	if !ok {
		return
	}

	conversation, err := h.conversationRepo.GetConversation(ctx, conversationID)
	if err != nil || !conversation.HasUser(userID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}

	h.subscribe(c, span.SpanContext().TraceID().String(), "conversation", conversationID, events.ConversationTopic(conversationID), userID)
}

// HandleCompany subscribes a company member to the company presence topic.
// The joining connection receives the current roster; the first connection
// per member announces the join to everyone else.
func (h *SubscribeHandler) HandleCompany(c *gin.Context) {
	companyID, err := strconv.Atoi(c.Param("company_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid company id"})
		return
	}

	ctx, span := otel.Tracer("teamchat/ws").Start(c.Request.Context(), "ws.handshake.company")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := h.authenticate(c)
	if !ok {
		return
	}

	member, err := h.companyRepo.IsMember(ctx, companyID, userID)
	if err != nil || !member {
		c.JSON(http.StatusNotFound, gin.H{"error": "company not found"})
		return
	}
	user, err := h.userRepo.GetUser(ctx, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "company not found"})
		return
	}

	topic := events.CompanyTopic(companyID)
	conn, info, ok := h.upgrade(c, span.SpanContext().TraceID().String(), userID)
	if !ok {
		return
	}

	sendEstablished(conn, info)
	h.hub.JoinPresence(topic, conn, info, events.Roster(user))
	h.track(ctx, "company", companyID, conn, info, topic, func() {
		h.hub.LeavePresence(topic, conn, userID)
	})
}

// authenticate resolves the bearer token from the Authorization header or
// the token query parameter, with the same scheme matching as the HTTP
// auth middleware.
func (h *SubscribeHandler) authenticate(c *gin.Context) (int, bool) {
	token := middleware.BearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
		return 0, false
	}
	userID, err := h.sessions.Lookup(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return 0, false
	}
	return userID, true
}

func (h *SubscribeHandler) subscribe(c *gin.Context, traceID, kind string, resourceID int, topic events.Topic, userID int) {
	conn, info, ok := h.upgrade(c, traceID, userID)
	if !ok {
		return
	}

	sendEstablished(conn, info)
	h.hub.Subscribe(topic, conn, info)
	h.track(c.Request.Context(), kind, resourceID, conn, info, topic, func() {
		h.hub.Unsubscribe(topic, conn)
	})
}

// sendEstablished hands the client its socket id before the connection joins
// any topic, so mutating requests can carry it in X-Socket-ID.
func sendEstablished(conn *websocket.Conn, info ConnInfo) {
	payload, err := json.Marshal(events.ConnectionEstablished(info.ConnID))
	if err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Printf("websocket write error: conn=%s err=%v", info.ConnID, err)
	}
}

func (h *SubscribeHandler) upgrade(c *gin.Context, traceID string, userID int) (*websocket.Conn, ConnInfo, bool) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return nil, ConnInfo{}, false
	}
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	return conn, info, true
}

// track runs the connection's read loop, recording metrics and publishing
// lifecycle events, and invokes cleanup when the connection closes.
func (h *SubscribeHandler) track(ctx context.Context, kind string, resourceID int, conn *websocket.Conn, info ConnInfo, topic events.Topic, cleanup func()) {
	observability.IncWSActive(kind)
	observability.IncWSEvent(kind, "ws_connect")
	_ = h.publisher.Publish(ctx, "ws_events."+kind, wsLifecycleEvent(kind, resourceID, "ws_connect", info, 0, ""))

	go func() {
		var closeReason string
		defer func() {
			cleanup()
			conn.Close()
			observability.DecWSActive(kind)
			observability.IncWSEvent(kind, "ws_disconnect")
			_ = h.publisher.Publish(ctx, "ws_events."+kind, wsLifecycleEvent(kind, resourceID, "ws_disconnect", info, time.Since(info.ConnectedAt).Milliseconds(), closeReason))
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent(kind, "ws_error")
				}
				return
			}
		}
	}()
}

func wsLifecycleEvent(kind string, resourceID int, event string, info ConnInfo, durationMS int64, reason string) map[string]any {
	return map[string]any{
		"event_type": "ws_events",
		"event_name": event,
		"ws": map[string]any{
			"kind":        kind,
			"resource_id": resourceID,
			"conn_id":     info.ConnID,
			"duration_ms": durationMS,
			"reason":      reason,
		},
		"identity": map[string]any{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
}
