package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"fundi/internal/payments"
	"fundi/internal/shared/config"
	"fundi/pkg/logger"
)

// KafkaPublisher delivers settlement events to the event bus. It implements
// payments.SettlementPublisher with a synchronous producer so a returned nil
// means the broker acknowledged the write.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	cfg      config.KafkaConfig
	log      *logger.Logger
}

// NewKafkaPublisher creates a settlement event publisher
func NewKafkaPublisher(cfg config.KafkaConfig, log *logger.Logger) (*KafkaPublisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = cfg.ProducerRetryMax
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1

	// Hash partitioner keyed by booking so events for one booking stay ordered
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaPublisher{producer: producer, cfg: cfg, log: log}, nil
}

// PublishSettlement publishes a terminal settlement outcome
func (p *KafkaPublisher) PublishSettlement(ctx context.Context, event payments.SettlementEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal settlement event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.cfg.SettlementTopic,
		Key:   sarama.StringEncoder(event.BookingID),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
			{Key: []byte("booking_id"), Value: []byte(event.BookingID)},
			{Key: []byte("method"), Value: []byte(event.Method)},
			{Key: []byte("occurred_at"), Value: []byte(event.OccurredAt.Format(time.RFC3339))},
		},
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to publish settlement event: %w", err)
	}

	p.log.InfoWithContext(ctx, "settlement event published", map[string]interface{}{
		"topic":      p.cfg.SettlementTopic,
		"partition":  partition,
		"offset":     offset,
		"event_type": event.Type,
		"booking_id": event.BookingID,
	})
	return nil
}

// PublishAlert publishes a collected-but-unrecorded consistency alert
func (p *KafkaPublisher) PublishAlert(ctx context.Context, event payments.AlertEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal alert event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.cfg.AlertTopic,
		Key:   sarama.StringEncoder(event.BookingID),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("booking_id"), Value: []byte(event.BookingID)},
			{Key: []byte("reference"), Value: []byte(event.Reference)},
			{Key: []byte("occurred_at"), Value: []byte(event.OccurredAt.Format(time.RFC3339))},
		},
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to publish alert event: %w", err)
	}

	p.log.InfoWithContext(ctx, "settlement alert published", map[string]interface{}{
		"topic":      p.cfg.AlertTopic,
		"partition":  partition,
		"offset":     offset,
		"booking_id": event.BookingID,
	})
	return nil
}

// Close closes the underlying producer
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// LogPublisher is the fallback publisher used when the event bus is disabled:
// events land in the structured log instead of disappearing.
type LogPublisher struct {
	log *logger.Logger
}

func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) PublishSettlement(ctx context.Context, event payments.SettlementEvent) error {
	p.log.InfoWithContext(ctx, "settlement event (bus disabled)", map[string]interface{}{
		"event_type": event.Type,
		"booking_id": event.BookingID,
		"reference":  event.Reference,
		"method":     event.Method,
		"amount":     event.Amount,
	})
	return nil
}

func (p *LogPublisher) PublishAlert(ctx context.Context, event payments.AlertEvent) error {
	p.log.ErrorWithContext(ctx, "settlement alert (bus disabled)", fmt.Errorf("%s", event.Error),
		map[string]interface{}{
			"booking_id": event.BookingID,
			"reference":  event.Reference,
			"amount":     event.Amount,
		})
	return nil
}
