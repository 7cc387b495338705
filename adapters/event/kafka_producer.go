package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/khoahotran/profile-editor/internal/config"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

const TopicEditorEvents = "profile.editor.events"

type EditorEventType string

const (
	EditorEventSaved        EditorEventType = "profile.saved"
	EditorEventSaveFailed   EditorEventType = "profile.save_failed"
	EditorEventExported     EditorEventType = "profile.exported"
	EditorEventExportFailed EditorEventType = "profile.export_failed"
)

type EditorEventPayload struct {
	EventType  EditorEventType `json:"event_type"`
	SessionID  string          `json:"session_id"`
	FullName   string          `json:"full_name"`
	Error      string          `json:"error,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type Publisher interface {
	PublishEditorEvent(ctx context.Context, payload EditorEventPayload) error
}

// messageWriter is the subset of *kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaProducerClient struct {
	EditorEventsWriter messageWriter
	logger             logger.Logger
}

func NewKafkaProducerClient(cfg config.Config, log logger.Logger) (*KafkaProducerClient, error) {
	brokers := cfg.Kafka.Brokers
	if len(brokers) == 0 {
		return nil, fmt.Errorf("config Kafka brokers not found")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  TopicEditorEvents,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}

	log.Info("Initialize Kafka producer successfully.")
	return &KafkaProducerClient{EditorEventsWriter: writer, logger: log}, nil
}

// PublishEditorEvent keys messages by session so one session's events stay
// ordered within a partition.
func (c *KafkaProducerClient) PublishEditorEvent(ctx context.Context, payload EditorEventPayload) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal editor event: %w", err)
	}
	err = c.EditorEventsWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(payload.SessionID),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("write editor event: %w", err)
	}
	return nil
}

func (c *KafkaProducerClient) Close() {
	if c.EditorEventsWriter != nil {
		if err := c.EditorEventsWriter.Close(); err != nil {
			c.logger.Error("Failed to close Kafka producer", err)
			return
		}
	}
	c.logger.Info("Closed Kafka producer")
}

// NopPublisher is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishEditorEvent(context.Context, EditorEventPayload) error { return nil }
