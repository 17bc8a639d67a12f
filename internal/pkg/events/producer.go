package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/scholarstream/api/internal/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Application lifecycle event types
const (
	ApplicationSubmitted        = "application.submitted"
	ApplicationStatusChanged    = "application.status_changed"
	ApplicationCancelled        = "application.cancelled"
	ApplicationPaymentConfirmed = "application.payment_confirmed"
	ApplicationPaymentCancelled = "application.payment_cancelled"
)

// ApplicationEvent is the payload published on every lifecycle transition
type ApplicationEvent struct {
	Type              string    `json:"type"`
	ApplicationID     string    `json:"applicationId"`
	ScholarshipID     string    `json:"scholarshipId"`
	StudentEmail      string    `json:"studentEmail"`
	ApplicationStatus string    `json:"applicationStatus"`
	PaymentStatus     string    `json:"paymentStatus"`
	Source            string    `json:"source,omitempty"`
	OccurredAt        time.Time `json:"occurredAt"`
}

// Publisher delivers lifecycle events
type Publisher interface {
	Publish(ctx context.Context, event ApplicationEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DefaultPublishTimeout bounds how long a request waits on the broker
const DefaultPublishTimeout = 2 * time.Second

// KafkaConfig defines producer settings
type KafkaConfig struct {
	Brokers        []string
	Topic          string
	PublishTimeout time.Duration
}

// KafkaPublisher publishes events to a Kafka topic keyed by application ID
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
}

// NewKafkaPublisher creates a synchronous producer for the configured topic
func NewKafkaPublisher(config KafkaConfig) (*KafkaPublisher, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = DefaultPublishTimeout
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Topic:                  config.Topic,
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireAll,
		Async:                  false,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           config.PublishTimeout,
		AllowAutoTopicCreation: true,
	}

	return newKafkaPublisher(writer, config.PublishTimeout), nil
}

func newKafkaPublisher(writer messageWriter, timeout time.Duration) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, timeout: timeout}
}

// Publish writes one event, giving up after the publish timeout.
// A nil publisher skips silently.
func (p *KafkaPublisher) Publish(ctx context.Context, event ApplicationEvent) error {
	if p == nil || p.writer == nil {
		logger.Debug().Str("type", event.Type).Msg("Kafka producer not ready - skip publish")
		return nil
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(event.ApplicationID),
		Value:   value,
		Time:    event.OccurredAt,
		Headers: []kafka.Header{{Key: "event-type", Value: []byte(event.Type)}},
	})
	if err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	return nil
}

// Close flushes and closes the underlying writer
func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// NoopPublisher discards events; used when no brokers are configured
type NoopPublisher struct{}

// Publish implements Publisher
func (NoopPublisher) Publish(context.Context, ApplicationEvent) error { return nil }

// Close implements Publisher
func (NoopPublisher) Close() error { return nil }
