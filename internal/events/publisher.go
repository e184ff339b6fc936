package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Event names emitted by the evaluation workflow.
const (
	AssignmentPublished = "assignment.published"
	SubmissionSubmitted = "submission.submitted"
	GradesPublished     = "grades.published"
)

// Envelope is the wire format of every event.
type Envelope struct {
	ID      string      `json:"id"`
	Source  string      `json:"source"`
	Name    string      `json:"name"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sent_at"`
}

// Publisher fans domain events out to NATS subjects and a Redis pub/sub channel.
// Either transport may be nil.
type Publisher struct {
	nats    *nats.Conn
	redis   *redis.Client
	prefix  string
	nodeID  string
	logger  zerolog.Logger
	nowFunc func() time.Time
}

// NewPublisher builds a publisher. subjectPrefix scopes NATS subjects and the Redis channel.
func NewPublisher(natsConn *nats.Conn, redisClient *redis.Client, subjectPrefix string, logger zerolog.Logger) *Publisher {
	prefix := strings.Trim(strings.TrimSpace(subjectPrefix), ".")
	if prefix == "" {
		prefix = "peereval"
	}

	return &Publisher{
		nats:    natsConn,
		redis:   redisClient,
		prefix:  prefix,
		nodeID:  uuid.NewString(),
		logger:  logger.With().Str("component", "event_publisher").Logger(),
		nowFunc: time.Now,
	}
}

// Subject returns the NATS subject for an event name.
func (p *Publisher) Subject(name string) string {
	return p.prefix + "." + name
}

// Channel returns the Redis pub/sub channel all events are mirrored to.
func (p *Publisher) Channel() string {
	return strings.ReplaceAll(p.prefix, ".", ":") + ":events"
}

// Publish encodes the payload and sends it on every configured transport.
func (p *Publisher) Publish(ctx context.Context, name string, payload interface{}) error {
	if p == nil {
		return nil
	}

	body, err := json.Marshal(Envelope{
		ID:      uuid.NewString(),
		Source:  p.nodeID,
		Name:    name,
		Payload: payload,
		SentAt:  p.nowFunc().UTC(),
	})
	if err != nil {
		return err
	}

	if p.nats != nil {
		if err := p.nats.Publish(p.Subject(name), body); err != nil {
			return err
		}
	}

	if p.redis != nil {
		if err := p.redis.Publish(ctx, p.Channel(), body).Err(); err != nil {
			return err
		}
	}

	p.logger.Debug().Str("event", name).Msg("event published")
	return nil
}
