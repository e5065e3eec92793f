package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/forkcast/recsys/internal/messaging"
	"github.com/forkcast/recsys/pkg/models"
)

// EventProcessor bridges the message bus to the recommender's write paths.
// Interaction events land in the interaction store; ingestion jobs are
// embedded and upserted into the vector index.
type EventProcessor struct {
	bus         *messaging.MessageBus
	recommender RecommenderInterface
	logger      *logrus.Logger
}

func NewEventProcessor(bus *messaging.MessageBus, recommender RecommenderInterface, logger *logrus.Logger) *EventProcessor {
	return &EventProcessor{
		bus:         bus,
		recommender: recommender,
		logger:      logger,
	}
}

// Start launches the consumer loops. They run until ctx is cancelled.
func (p *EventProcessor) Start(ctx context.Context) {
	go func() {
		if err := p.bus.ConsumeInteractions(ctx, p.handleInteraction); err != nil && ctx.Err() == nil {
			p.logger.WithError(err).Error("Interaction consumer stopped")
		}
	}()
	go func() {
		if err := p.bus.ConsumeRecipeIngestion(ctx, p.handleIngestion); err != nil && ctx.Err() == nil {
			p.logger.WithError(err).Error("Ingestion consumer stopped")
		}
	}()
}

func (p *EventProcessor) handleInteraction(ctx context.Context, event models.InteractionEvent) error {
	switch event.Kind {
	case models.FeedbackLike, models.FeedbackDislike:
		return p.recommender.RecordFeedback(ctx, event.UserID, event.RecipeID, event.Kind)
	case "unlike", "undislike":
		return p.recommender.RemoveFeedback(ctx, event.UserID, event.RecipeID)
	case "view":
		source := event.Source
		if source == "" {
			source = models.ImpressionSourceFeed
		}
		return p.recommender.RecordImpression(ctx, event.UserID, event.RecipeID, source)
	case "detail_view":
		return p.recommender.RecordImpression(ctx, event.UserID, event.RecipeID, models.ImpressionSourceDetail)
	default:
		return fmt.Errorf("unknown interaction kind %q", event.Kind)
	}
}

func (p *EventProcessor) handleIngestion(ctx context.Context, job messaging.RecipeIngestionMessage) error {
	if err := p.recommender.IndexRecipe(ctx, job.Recipe); err != nil {
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"job_id":    job.JobID,
		"recipe_id": job.Recipe.RecipeID,
	}).Info("Recipe indexed")
	return nil
}
