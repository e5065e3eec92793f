package services

import (
	"context"

	"github.com/forkcast/recsys/pkg/models"
)

// InteractionStore is the read/write surface of the interaction history the
// recommender depends on.
type InteractionStore interface {
	LikedRecipeIDs(ctx context.Context, userID int64) ([]int64, error)
	DislikedRecipeIDs(ctx context.Context, userID int64) ([]int64, error)
	ViewedRecipeIDs(ctx context.Context, userID int64) ([]int64, error)
	DetailViewedRecipeIDs(ctx context.Context, userID int64) ([]int64, error)
	AuthoredRecipeIDs(ctx context.Context, userID int64) ([]int64, error)
	UpsertFeedback(ctx context.Context, userID, recipeID int64, kind string) error
	DeleteFeedback(ctx context.Context, userID, recipeID int64) error
	RecordImpression(ctx context.Context, userID, recipeID int64, source string) error
}

// VectorIndex is the nearest-neighbor index keyed by recipe id.
type VectorIndex interface {
	Nearest(ctx context.Context, query []float32, k int, exclude []int64) ([]models.Candidate, error)
	Embeddings(ctx context.Context, ids []int64) (map[int64][]float32, error)
	ListRecipeIDs(ctx context.Context) ([]int64, error)
	Upsert(ctx context.Context, recipeID int64, embedding []float32) error
	Delete(ctx context.Context, recipeID int64) error
}

// Embedder turns recipe text into a unit-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// RecommenderInterface is what the HTTP and event layers call into.
type RecommenderInterface interface {
	GetRecommendations(ctx context.Context, req models.RecommendationRequest) ([]models.Recommendation, error)
	RecordFeedback(ctx context.Context, userID, recipeID int64, kind string) error
	RemoveFeedback(ctx context.Context, userID, recipeID int64) error
	RecordImpression(ctx context.Context, userID, recipeID int64, source string) error
	IndexRecipe(ctx context.Context, req models.RecipeIngestionRequest) error
	RemoveRecipe(ctx context.Context, recipeID int64) error
	IndexedRecipeIDs(ctx context.Context) ([]int64, error)
}
