package telemetry

import (
	"context"
	"log"
	"time"
)

// Audit event kinds. Consumers of the audit exchange route on event_type,
// so each chat aggregate gets its own kind; access denials are split out
// because they feed a different alerting rule than normal flow events.
const (
	AuditCompany      = "chat.company"
	AuditChannel      = "chat.channel"
	AuditMessage      = "chat.message"
	AuditConversation = "chat.conversation"
	AuditReaction     = "chat.reaction"
	AuditFile         = "chat.file"
	AuditPresence     = "chat.presence"
	AuditAccessDenied = "chat.access_denied"
	AuditDebug        = "chat.debug"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// AuditEmitter mirrors chat audit events to the audit exchange. A nil
// emitter is safe to call and emits nothing.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	UserID        *string      `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

// Emit publishes one audit event of the given kind. Publish failures are
// logged and swallowed; auditing never fails the request that caused it.
func (e *AuditEmitter) Emit(ctx context.Context, kind, level, text, requestID string, userID *string) {
	if e == nil || e.publisher == nil {
		return
	}

	log.Printf("audit emit: kind=%s level=%s request_id=%s user_id=%v text=%q", kind, level, requestID, userID, text)
	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     kind,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		UserID:        userID,
		Payload: AuditPayload{
			Level: level,
			Text:  text,
		},
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		log.Printf("audit publish failed: %v", err)
	}
}
