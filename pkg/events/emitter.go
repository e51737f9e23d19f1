package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/noah-isme/faculty-scheduler-api/internal/models"
	"github.com/noah-isme/faculty-scheduler-api/pkg/config"
)

// Emitter publishes domain events for audit and notification consumers.
type Emitter interface {
	Emit(ctx context.Context, event models.Event) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEmitter writes events as JSON messages keyed by resource ID, so every
// event of one schedule or request lands on the same partition in order.
type KafkaEmitter struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewKafkaEmitter builds a synchronous kafka-go writer for the configured brokers.
func NewKafkaEmitter(cfg config.EventsConfig, logger *zap.Logger) (*KafkaEmitter, error) {
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("events topic must not be empty")
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one events broker is required")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	}
	return newKafkaEmitter(writer, cfg.Topic, cfg.WriteTimeout, logger), nil
}

func newKafkaEmitter(writer messageWriter, topic string, timeout time.Duration, logger *zap.Logger) *KafkaEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KafkaEmitter{writer: writer, topic: topic, timeout: timeout, logger: logger}
}

// Emit publishes one event.
func (k *KafkaEmitter) Emit(ctx context.Context, event models.Event) error {
	event = normalise(event)
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	writeCtx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.ResourceID),
		Value: value,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(event.Action)},
			{Key: "resource", Value: []byte(event.Resource)},
		},
	}
	if err := k.writer.WriteMessages(writeCtx, msg); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event.Action, k.topic, err)
	}
	k.logger.Debug("event published", zap.String("action", event.Action), zap.String("resource_id", event.ResourceID))
	return nil
}

// Close flushes and closes the writer.
func (k *KafkaEmitter) Close() error {
	return k.writer.Close()
}

// LogEmitter records events in the application log when no broker is configured.
type LogEmitter struct {
	logger *zap.Logger
}

// NewLogEmitter returns an emitter backed by logger.
func NewLogEmitter(logger *zap.Logger) *LogEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogEmitter{logger: logger}
}

// Emit logs the event.
func (l *LogEmitter) Emit(_ context.Context, event models.Event) error {
	event = normalise(event)
	l.logger.Info("domain event",
		zap.String("event_id", event.ID),
		zap.String("action", event.Action),
		zap.String("resource", event.Resource),
		zap.String("resource_id", event.ResourceID),
		zap.String("actor", event.Actor),
		zap.ByteString("payload", event.Payload),
	)
	return nil
}

// Close is a no-op.
func (l *LogEmitter) Close() error { return nil }

// New picks the Kafka emitter when events are enabled and the log emitter otherwise.
func New(cfg config.EventsConfig, logger *zap.Logger) (Emitter, error) {
	if !cfg.Enabled {
		return NewLogEmitter(logger), nil
	}
	return NewKafkaEmitter(cfg, logger)
}

func normalise(event models.Event) models.Event {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return event
}
