package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cks-portal-api/internal/observability"
)

// TypeActivityRecorded is emitted after an activity row is persisted.
const TypeActivityRecorded = "activity.recorded"

// Event is the envelope broadcast to other nodes and downstream consumers.
type Event struct {
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	SentAt        time.Time       `json:"sent_at"`
}

// Publisher delivers domain events to the configured brokers.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

// Broker fans events out to Redis pub/sub and NATS. Either transport may be nil.
type Broker struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	nodeID       string
	logger       zerolog.Logger
}

// NewBroker builds a publisher rooted at channelBase, e.g. "cks:events" maps to the Redis channel
// "cks:events:activity" and the NATS subject "cks.events.activity".
func NewBroker(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) *Broker {
	channel := ""
	subject := ""
	if base := strings.TrimSpace(channelBase); base != "" {
		channel = base + ":activity"
		subject = strings.ReplaceAll(base, ":", ".") + ".activity"
	}

	return &Broker{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		nodeID:       uuid.NewString(),
		logger:       logger.With().Str("component", "event_broker").Logger(),
	}
}

// Publish marshals the payload into an Event and sends it to every configured transport. Errors from
// individual transports are joined so that one broken broker does not hide the other.
func (b *Broker) Publish(ctx context.Context, eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	envelope, err := json.Marshal(Event{
		Type:          eventType,
		Source:        b.nodeID,
		CorrelationID: observability.CorrelationIDFromContext(ctx),
		Payload:       body,
		SentAt:        time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	var errs []error
	if b.redis != nil && b.redisChannel != "" {
		if err := b.redis.Publish(ctx, b.redisChannel, envelope).Err(); err != nil {
			observability.EventPublishFailures().WithLabelValues("redis").Inc()
			errs = append(errs, err)
		}
	}

	if b.nats != nil && b.natsSubject != "" {
		if err := b.nats.Publish(b.natsSubject, envelope); err != nil {
			observability.EventPublishFailures().WithLabelValues("nats").Inc()
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	b.logger.Debug().Str("type", eventType).Msg("event published")
	return nil
}
