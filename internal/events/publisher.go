package events

import (
	"context"
	"fmt"

	"kartcore/internal/config"
	"kartcore/internal/model"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Publisher delivers outbox messages to the shipment bridge.
type Publisher interface {
	// Publish delivers all messages or returns an error; delivery is
	// at-least-once, consumers dedupe on event_id.
	Publish(ctx context.Context, msgs []model.OutboxMessage) error
	Close() error
}

// MessageWriter is the subset of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer MessageWriter
	logger zerolog.Logger
}

// NewKafkaPublisher creates a publisher writing to the configured brokers.
// The topic is taken from each message.
func NewKafkaPublisher(cfg config.KafkaConfig, logger zerolog.Logger) Publisher {
	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Transport:    &kafka.Transport{ClientID: cfg.ClientID},
	}, logger)
}

// NewKafkaPublisherWithWriter creates a publisher over an existing writer.
func NewKafkaPublisherWithWriter(w MessageWriter, logger zerolog.Logger) Publisher {
	return &kafkaPublisher{
		writer: w,
		logger: logger.With().Str("component", "kafka_publisher").Logger(),
	}
}

func (p *kafkaPublisher) Publish(ctx context.Context, msgs []model.OutboxMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	batch := make([]kafka.Message, len(msgs))
	for i, m := range msgs {
		batch[i] = kafka.Message{
			Topic: m.Topic,
			Key:   []byte(m.Key),
			Value: m.Payload,
			Time:  m.CreatedAt,
			Headers: []kafka.Header{
				{Key: "event_id", Value: []byte(m.EventID)},
			},
		}
	}

	if err := p.writer.WriteMessages(ctx, batch...); err != nil {
		p.logger.Error().Err(err).Int("count", len(batch)).Msg("failed to publish messages")
		return fmt.Errorf("failed to publish messages: %w", err)
	}

	p.logger.Debug().Int("count", len(batch)).Msg("messages published")
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

type logPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a publisher that only logs messages. It stands in
// for Kafka in local setups.
func NewLogPublisher(logger zerolog.Logger) Publisher {
	return &logPublisher{logger: logger.With().Str("component", "log_publisher").Logger()}
}

func (p *logPublisher) Publish(_ context.Context, msgs []model.OutboxMessage) error {
	for _, m := range msgs {
		p.logger.Info().
			Str("topic", m.Topic).
			Str("key", m.Key).
			Str("event_id", m.EventID).
			RawJSON("payload", m.Payload).
			Msg("order event")
	}
	return nil
}

func (p *logPublisher) Close() error { return nil }
