package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/forkcast/recsys/internal/config"
	"github.com/forkcast/recsys/pkg/models"
)

const (
	dlqSuffix     = "-dlq"
	consumerGroup = "recsys"
	maxRetries    = 3
)

// RecipeIngestionMessage is the wire form on the recipe-ingestion topic.
type RecipeIngestionMessage struct {
	JobID     uuid.UUID                     `json:"job_id"`
	Recipe    models.RecipeIngestionRequest `json:"recipe"`
	Timestamp time.Time                     `json:"timestamp"`
}

// MessageBus wraps the Kafka readers and writers the service uses:
// interaction events and recipe ingestion jobs in, failed messages out to a
// per-topic DLQ.
type MessageBus struct {
	interactionReader *kafka.Reader
	ingestionReader   *kafka.Reader
	ingestionWriter   *kafka.Writer
	dlqWriter         *kafka.Writer
	validator         *schemaValidator
	logger            *logrus.Logger
}

func NewMessageBus(cfg *config.Config, logger *logrus.Logger) (*MessageBus, error) {
	validator, err := newSchemaValidator()
	if err != nil {
		return nil, err
	}

	return &MessageBus{
		interactionReader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.Kafka.Brokers,
			Topic:          cfg.Kafka.Topics.Interactions,
			GroupID:        consumerGroup,
			MinBytes:       10e3,
			MaxBytes:       10e6,
			CommitInterval: time.Second,
			StartOffset:    kafka.LastOffset,
		}),
		ingestionReader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.Kafka.Brokers,
			Topic:          cfg.Kafka.Topics.RecipeIngestion,
			GroupID:        consumerGroup,
			MinBytes:       10e3,
			MaxBytes:       10e6,
			CommitInterval: time.Second,
			StartOffset:    kafka.LastOffset,
		}),
		ingestionWriter: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Kafka.Brokers...),
			Topic:        cfg.Kafka.Topics.RecipeIngestion,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
		},
		dlqWriter: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Kafka.Brokers...),
			RequiredAcks: kafka.RequireOne,
		},
		validator: validator,
		logger:    logger,
	}, nil
}

// PublishRecipeIngestion enqueues a recipe for embedding and indexing.
func (mb *MessageBus) PublishRecipeIngestion(ctx context.Context, recipe models.RecipeIngestionRequest) (uuid.UUID, error) {
	jobID := uuid.New()
	payload, err := json.Marshal(RecipeIngestionMessage{
		JobID:     jobID,
		Recipe:    recipe,
		Timestamp: time.Now(),
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal ingestion message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", recipe.RecipeID)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "job_id", Value: []byte(jobID.String())},
		},
	}

	if err := mb.ingestionWriter.WriteMessages(ctx, msg); err != nil {
		return uuid.Nil, fmt.Errorf("failed to publish ingestion message: %w", err)
	}

	mb.logger.WithFields(logrus.Fields{
		"job_id":    jobID,
		"recipe_id": recipe.RecipeID,
	}).Info("Recipe ingestion job published")

	return jobID, nil
}

// ConsumeInteractions reads interaction events until ctx is cancelled,
// dispatching each valid event to handler with retry and DLQ semantics.
func (mb *MessageBus) ConsumeInteractions(ctx context.Context, handler func(context.Context, models.InteractionEvent) error) error {
	for {
		msg, err := mb.interactionReader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			mb.logger.WithError(err).Error("Failed to read interaction message")
			continue
		}

		if err := mb.validator.validate(mb.validator.interaction, msg.Value); err != nil {
			mb.logger.WithError(err).Warn("Rejecting malformed interaction event")
			mb.sendToDLQ(ctx, mb.interactionReader.Config().Topic, msg, err)
			continue
		}

		var event models.InteractionEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			mb.sendToDLQ(ctx, mb.interactionReader.Config().Topic, msg, err)
			continue
		}

		if err := mb.processWithRetry(ctx, func() error { return handler(ctx, event) }); err != nil {
			mb.logger.WithError(err).WithField("event_id", event.EventID).
				Error("Interaction event failed after retries")
			mb.sendToDLQ(ctx, mb.interactionReader.Config().Topic, msg, err)
		}
	}
}

// ConsumeRecipeIngestion reads recipe ingestion jobs until ctx is cancelled.
func (mb *MessageBus) ConsumeRecipeIngestion(ctx context.Context, handler func(context.Context, RecipeIngestionMessage) error) error {
	for {
		msg, err := mb.ingestionReader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			mb.logger.WithError(err).Error("Failed to read ingestion message")
			continue
		}

		if err := mb.validator.validate(mb.validator.ingestion, msg.Value); err != nil {
			mb.logger.WithError(err).Warn("Rejecting malformed ingestion job")
			mb.sendToDLQ(ctx, mb.ingestionReader.Config().Topic, msg, err)
			continue
		}

		var job RecipeIngestionMessage
		if err := json.Unmarshal(msg.Value, &job); err != nil {
			mb.sendToDLQ(ctx, mb.ingestionReader.Config().Topic, msg, err)
			continue
		}

		if err := mb.processWithRetry(ctx, func() error { return handler(ctx, job) }); err != nil {
			mb.logger.WithError(err).WithField("job_id", job.JobID).
				Error("Ingestion job failed after retries")
			mb.sendToDLQ(ctx, mb.ingestionReader.Config().Topic, msg, err)
		}
	}
}

func (mb *MessageBus) processWithRetry(ctx context.Context, fn func() error) error {
	baseDelay := time.Second

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err = fn(); err == nil {
			return nil
		}
		mb.logger.WithError(err).WithField("attempt", attempt).Warn("Message processing failed")
	}

	return fmt.Errorf("max retries exceeded: %w", err)
}

func (mb *MessageBus) sendToDLQ(ctx context.Context, topic string, original kafka.Message, cause error) {
	msg := kafka.Message{
		Topic: topic + dlqSuffix,
		Key:   original.Key,
		Value: original.Value,
		Headers: []kafka.Header{
			{Key: "original_topic", Value: []byte(topic)},
			{Key: "error", Value: []byte(cause.Error())},
		},
	}

	if err := mb.dlqWriter.WriteMessages(ctx, msg); err != nil {
		mb.logger.WithError(err).Error("Failed to write message to DLQ")
		return
	}

	mb.logger.WithFields(logrus.Fields{
		"topic": topic,
		"error": cause.Error(),
	}).Warn("Message sent to DLQ")
}

func (mb *MessageBus) Close() error {
	var errs []error

	if err := mb.interactionReader.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close interaction reader: %w", err))
	}
	if err := mb.ingestionReader.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close ingestion reader: %w", err))
	}
	if err := mb.ingestionWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close ingestion writer: %w", err))
	}
	if err := mb.dlqWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close DLQ writer: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing message bus: %v", errs)
	}
	return nil
}
