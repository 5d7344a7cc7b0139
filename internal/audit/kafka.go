package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// kafkaPayload is the JSON structure published to the audit topic.
type kafkaPayload struct {
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Action    string `json:"action"`
	RequestID string `json:"request_id,omitempty"`
}

// KafkaPublisher streams audit events to a Kafka topic. Events are keyed by
// user id so all events for one account land in the same partition, in order.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaPublisher connects to the brokers and ensures the audit topic
// exists. Topic creation is idempotent; an already-exists response is fine.
func NewKafkaPublisher(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	responses, err := admin.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create audit topic: %w", err)
	}
	for _, response := range responses {
		if response.Err != nil && !errors.Is(response.Err, kerr.TopicAlreadyExists) {
			client.Close()
			return nil, fmt.Errorf("create audit topic %q: %w", response.Topic, response.Err)
		}
	}

	return &KafkaPublisher{client: client, topic: topic, logger: logger}, nil
}

// Emit produces the event asynchronously. Delivery failures are logged, not
// returned: audit streaming must not fail the request that triggered it.
func (p *KafkaPublisher) Emit(ctx context.Context, base Event) error {
	event := stamp(base)

	payload := kafkaPayload{
		Category:  string(event.Category),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Subject:   event.Subject,
		Action:    event.Action,
		RequestID: event.RequestID,
	}
	if !event.UserID.IsNil() {
		payload.UserID = event.UserID.String()
	}
	if !event.ActorID.IsNil() {
		payload.ActorID = event.ActorID.String()
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(payload.UserID),
		Value: value,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("failed to produce audit event",
				"action", event.Action,
				"error", err,
			)
		}
	})
	return nil
}

// Close flushes pending records and releases the client.
func (p *KafkaPublisher) Close(ctx context.Context) error {
	if err := p.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush audit producer: %w", err)
	}
	p.client.Close()
	return nil
}
