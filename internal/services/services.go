package services

import (
	"github.com/sirupsen/logrus"

	"github.com/forkcast/recsys/internal/config"
	"github.com/forkcast/recsys/internal/database"
	"github.com/forkcast/recsys/internal/messaging"
	"github.com/forkcast/recsys/internal/ml"
	"github.com/forkcast/recsys/internal/storage"
)

type Services struct {
	Health         *HealthService
	MessageBus     *messaging.MessageBus
	Recommender    *Recommender
	EventProcessor *EventProcessor
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database) (*Services, error) {
	healthService := NewHealthService(db, logger)

	messageBus, err := messaging.NewMessageBus(cfg, logger)
	if err != nil {
		return nil, err
	}

	interactionStore := storage.NewInteractionStore(db.PG, logger)
	vectorIndex := storage.NewVectorIndex(db.PG, cfg.Embedding.Dimensions, logger)
	embedder := ml.NewEmbeddingClient(cfg.Embedding, logger)

	builder := NewPreferenceVectorBuilder(
		interactionStore, vectorIndex, cfg.Recommender.Weights, cfg.Embedding.Dimensions, logger,
	)
	recommender := NewRecommender(
		interactionStore, vectorIndex, builder, embedder, db.Redis, &cfg.Recommender, logger,
	)
	eventProcessor := NewEventProcessor(messageBus, recommender, logger)

	return &Services{
		Health:         healthService,
		MessageBus:     messageBus,
		Recommender:    recommender,
		EventProcessor: eventProcessor,
	}, nil
}
