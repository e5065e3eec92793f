package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/forkcast/recsys/internal/services"
)

type Handlers struct {
	Recommendation *RecommendationHandler
	Recipe         *RecipeHandler
	Health         *HealthHandler
}

func New(logger *logrus.Logger, svc *services.Services) *Handlers {
	return &Handlers{
		Recommendation: NewRecommendationHandler(svc.Recommender, logger),
		Recipe:         NewRecipeHandler(svc.MessageBus, svc.Recommender, logger),
		Health:         NewHealthHandler(svc.Health),
	}
}
