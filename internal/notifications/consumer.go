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

// Consumer drains the settlement topics and turns events into email: receipts
// and failure notices for clients, consistency alerts for the operations
// inbox. Email delivery failures are logged and the offset is still committed;
// a receipt is best-effort, the settlement itself is already durable.
type Consumer struct {
	group    sarama.ConsumerGroup
	cfg      config.KafkaConfig
	email    EmailService
	resolver RecipientResolver
	log      *logger.Logger
	cancel   context.CancelFunc
}

// NewConsumer creates the settlement notification consumer
func NewConsumer(cfg config.KafkaConfig, email EmailService, resolver RecipientResolver, log *logger.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Session.Timeout = 30 * time.Second
	saramaConfig.Consumer.Group.Heartbeat.Interval = 3 * time.Second
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = time.Second

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &Consumer{
		group:    group,
		cfg:      cfg,
		email:    email,
		resolver: resolver,
		log:      log,
	}, nil
}

// Start runs the consume loop until Stop is called
func (c *Consumer) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	topics := []string{c.cfg.SettlementTopic, c.cfg.AlertTopic}

	go func() {
		for err := range c.group.Errors() {
			c.log.ErrorWithContext(ctx, "consumer group error", err, nil)
		}
	}()

	go func() {
		handler := &settlementHandler{consumer: c}
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if err := c.group.Consume(ctx, topics, handler); err != nil {
					c.log.ErrorWithContext(ctx, "consume session failed", err, nil)
					time.Sleep(time.Second)
				}
			}
		}
	}()

	c.log.InfoWithContext(ctx, "settlement notification consumer started", map[string]interface{}{
		"topics": topics,
		"group":  c.cfg.ConsumerGroup,
	})
}

// Stop cancels the consume loop and closes the group
func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return c.group.Close()
}

type settlementHandler struct {
	consumer *Consumer
}

func (h *settlementHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *settlementHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *settlementHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}
			if err := h.process(session.Context(), message); err != nil {
				h.consumer.log.ErrorWithContext(session.Context(), "failed to process settlement message", err,
					map[string]interface{}{
						"topic":  message.Topic,
						"offset": message.Offset,
					})
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *settlementHandler) process(ctx context.Context, message *sarama.ConsumerMessage) error {
	if message.Topic == h.consumer.cfg.AlertTopic {
		var event payments.AlertEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			return fmt.Errorf("failed to unmarshal alert event: %w", err)
		}
		return h.consumer.email.SendAlert(ctx, event)
	}

	var event payments.SettlementEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal settlement event: %w", err)
	}

	recipient, err := h.consumer.resolver.ResolveRecipient(ctx, event.BookingID)
	if err != nil {
		return err
	}

	switch event.Type {
	case payments.EventPaymentSettled:
		return h.consumer.email.SendReceipt(ctx, *recipient, event)
	case payments.EventPaymentFailed:
		return h.consumer.email.SendFailureNotice(ctx, *recipient, event)
	default:
		h.consumer.log.InfoWithContext(ctx, "skipping unknown settlement event type",
			map[string]interface{}{"event_type": event.Type})
		return nil
	}
}
