package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
	deadline bool
	// hang blocks until the context is done, like an unreachable broker
	hang bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	_, w.deadline = ctx.Deadline()
	if w.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, time.Second)

	err := p.Publish(context.Background(), ApplicationEvent{
		Type:              ApplicationPaymentConfirmed,
		ApplicationID:     "app-1",
		StudentEmail:      "s@example.com",
		ApplicationStatus: "completed",
		PaymentStatus:     "paid",
		Source:            "webhook",
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)
	assert.True(t, w.deadline)

	msg := w.messages[0]
	assert.Equal(t, "app-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, ApplicationPaymentConfirmed, string(msg.Headers[0].Value))

	var decoded ApplicationEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "paid", decoded.PaymentStatus)
	assert.Equal(t, "webhook", decoded.Source)
	assert.False(t, decoded.OccurredAt.IsZero())

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	p := newKafkaPublisher(&fakeWriter{err: errors.New("broker down")}, time.Second)
	err := p.Publish(context.Background(), ApplicationEvent{Type: ApplicationSubmitted, ApplicationID: "a"})
	assert.ErrorContains(t, err, "broker down")
}

func TestKafkaPublisher_UnreachableBrokerIsBounded(t *testing.T) {
	p := newKafkaPublisher(&fakeWriter{hang: true}, 20*time.Millisecond)

	start := time.Now()
	err := p.Publish(context.Background(), ApplicationEvent{Type: ApplicationSubmitted, ApplicationID: "a"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestKafkaPublisher_NilIsSafe(t *testing.T) {
	var p *KafkaPublisher
	assert.NoError(t, p.Publish(context.Background(), ApplicationEvent{Type: ApplicationSubmitted}))
	assert.NoError(t, p.Close())
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	_, err := NewKafkaPublisher(KafkaConfig{Topic: "t"})
	assert.Error(t, err)
	_, err = NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)

	p, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"})
	require.NoError(t, err)
	assert.Equal(t, DefaultPublishTimeout, p.timeout)
	assert.NoError(t, p.Close())

	p, err = NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t", PublishTimeout: 500 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, p.timeout)
	assert.NoError(t, p.Close())
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), ApplicationEvent{}))
	assert.NoError(t, p.Close())
}
