package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/forkcast/recsys/internal/config"
	"github.com/forkcast/recsys/pkg/models"
)

// ErrInvalidRequest marks validation failures rejected before any store or
// index call is made.
var ErrInvalidRequest = errors.New("invalid recommendation request")

var (
	recommendationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recsys_recommendation_duration_seconds",
		Help:    "Latency of recommendation requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	emptyRecommendations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recsys_recommendations_empty_total",
		Help: "Requests that returned no recommendations (no signal or empty index)",
	})
)

// Recommender sequences the candidate selection pipeline: preference vector,
// nearest-neighbor retrieval with over-fetch, MMR re-ranking. It also exposes
// the thin write paths for feedback, impressions and index maintenance.
type Recommender struct {
	store    InteractionStore
	index    VectorIndex
	builder  *PreferenceVectorBuilder
	embedder Embedder
	redis    *redis.Client
	cacheTTL time.Duration
	logger   *logrus.Logger
}

func NewRecommender(
	store InteractionStore,
	index VectorIndex,
	builder *PreferenceVectorBuilder,
	embedder Embedder,
	redisClient *redis.Client,
	cfg *config.RecommenderConfig,
	logger *logrus.Logger,
) *Recommender {
	return &Recommender{
		store:    store,
		index:    index,
		builder:  builder,
		embedder: embedder,
		redis:    redisClient,
		cacheTTL: cfg.CacheTTL,
		logger:   logger,
	}
}

// GetRecommendations returns up to req.Limit recipes ranked for the user.
// An empty list is a valid outcome for users without interaction signal; it
// is not an error. Collaborator failures propagate unretried.
func (r *Recommender) GetRecommendations(ctx context.Context, req models.RecommendationRequest) ([]models.Recommendation, error) {
	start := time.Now()

	if err := validateRequest(req); err != nil {
		recommendationLatency.WithLabelValues("invalid").Observe(time.Since(start).Seconds())
		return nil, err
	}

	if cached, ok := r.cachedRecommendations(ctx, req); ok {
		recommendationLatency.WithLabelValues("cache_hit").Observe(time.Since(start).Seconds())
		return cached, nil
	}

	preference, history, err := r.builder.Compute(ctx, req.UserID)
	if err != nil {
		recommendationLatency.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, err
	}
	if preference == nil {
		r.logger.WithField("user_id", req.UserID).Debug("No preference signal, returning empty recommendations")
		emptyRecommendations.Inc()
		recommendationLatency.WithLabelValues("no_signal").Observe(time.Since(start).Seconds())
		return []models.Recommendation{}, nil
	}

	exclude := r.exclusionSet(history, req.ExcludeViewed)

	candidates, err := r.index.Nearest(ctx, preference, req.FetchK, exclude)
	if err != nil {
		recommendationLatency.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, err
	}
	if len(candidates) == 0 {
		emptyRecommendations.Inc()
		recommendationLatency.WithLabelValues("empty_index").Observe(time.Since(start).Seconds())
		return []models.Recommendation{}, nil
	}

	candidateIDs := make([]int64, len(candidates))
	for i, c := range candidates {
		candidateIDs[i] = c.RecipeID
	}
	embeddings, err := r.index.Embeddings(ctx, candidateIDs)
	if err != nil {
		recommendationLatency.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, err
	}

	selected := SelectDiverse(candidates, embeddings, req.Limit, req.LambdaMult)

	recommendations := make([]models.Recommendation, len(selected))
	for i, c := range selected {
		recommendations[i] = models.Recommendation{
			RecipeID: c.RecipeID,
			Score:    c.Score,
			Position: i + 1,
		}
	}

	r.cacheRecommendations(ctx, req, recommendations)

	r.logger.WithFields(logrus.Fields{
		"user_id":    req.UserID,
		"candidates": len(candidates),
		"selected":   len(recommendations),
		"latency":    time.Since(start),
	}).Info("Recommendations generated")

	recommendationLatency.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	return recommendations, nil
}

func validateRequest(req models.RecommendationRequest) error {
	switch {
	case req.UserID <= 0:
		return fmt.Errorf("%w: user_id must be positive", ErrInvalidRequest)
	case req.Limit <= 0:
		return fmt.Errorf("%w: limit must be positive", ErrInvalidRequest)
	case req.FetchK < req.Limit:
		return fmt.Errorf("%w: fetch_k must be >= limit", ErrInvalidRequest)
	case req.LambdaMult < 0 || req.LambdaMult > 1:
		return fmt.Errorf("%w: lambda_mult must be in [0, 1]", ErrInvalidRequest)
	}
	return nil
}

// exclusionSet always removes liked, disliked and authored recipes from the
// candidate pool; a user is never re-shown what they already judged or wrote.
// ExcludeViewed additionally removes recipes merely seen in feeds or detail
// pages.
func (r *Recommender) exclusionSet(history models.InteractionHistory, excludeViewed bool) []int64 {
	lists := [][]int64{history.Liked, history.Disliked, history.Authored}
	if excludeViewed {
		lists = append(lists, history.Viewed, history.DetailViewed)
	}
	return unionIDs(lists...)
}

// Write paths. These are plumbing around the store and index; feedback writes
// invalidate the user's cached recommendations since they change the
// preference vector materially. Impressions are too high-volume to bust the
// cache on every view.

func (r *Recommender) RecordFeedback(ctx context.Context, userID, recipeID int64, kind string) error {
	if kind != models.FeedbackLike && kind != models.FeedbackDislike {
		return fmt.Errorf("%w: unknown feedback kind %q", ErrInvalidRequest, kind)
	}
	if err := r.store.UpsertFeedback(ctx, userID, recipeID, kind); err != nil {
		return err
	}
	r.invalidateCache(ctx, userID)
	return nil
}

func (r *Recommender) RemoveFeedback(ctx context.Context, userID, recipeID int64) error {
	if err := r.store.DeleteFeedback(ctx, userID, recipeID); err != nil {
		return err
	}
	r.invalidateCache(ctx, userID)
	return nil
}

func (r *Recommender) RecordImpression(ctx context.Context, userID, recipeID int64, source string) error {
	return r.store.RecordImpression(ctx, userID, recipeID, source)
}

// IndexRecipe embeds the recipe text and upserts it into the vector index.
func (r *Recommender) IndexRecipe(ctx context.Context, req models.RecipeIngestionRequest) error {
	text := req.Title
	if req.Description != "" {
		text += "\n" + req.Description
	}
	if len(req.Tags) > 0 {
		text += "\n" + strings.Join(req.Tags, ", ")
	}

	embedding, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to embed recipe %d: %w", req.RecipeID, err)
	}

	return r.index.Upsert(ctx, req.RecipeID, embedding)
}

func (r *Recommender) RemoveRecipe(ctx context.Context, recipeID int64) error {
	return r.index.Delete(ctx, recipeID)
}

// IndexedRecipeIDs enumerates every recipe id currently in the vector index,
// for reconciliation against the recipe backend's catalog.
func (r *Recommender) IndexedRecipeIDs(ctx context.Context) ([]int64, error) {
	return r.index.ListRecipeIDs(ctx)
}

// Cache operations.

func (r *Recommender) cachedRecommendations(ctx context.Context, req models.RecommendationRequest) ([]models.Recommendation, bool) {
	if r.redis == nil {
		return nil, false
	}

	cached := r.redis.Get(ctx, cacheKey(req)).Val()
	if cached == "" {
		return nil, false
	}

	var recommendations []models.Recommendation
	if err := json.Unmarshal([]byte(cached), &recommendations); err != nil {
		return nil, false
	}
	return recommendations, true
}

func (r *Recommender) cacheRecommendations(ctx context.Context, req models.RecommendationRequest, recommendations []models.Recommendation) {
	if r.redis == nil {
		return
	}

	data, err := json.Marshal(recommendations)
	if err != nil {
		return
	}
	if err := r.redis.Set(ctx, cacheKey(req), data, r.cacheTTL).Err(); err != nil {
		r.logger.WithError(err).Warn("Failed to cache recommendations")
	}
}

func (r *Recommender) invalidateCache(ctx context.Context, userID int64) {
	if r.redis == nil {
		return
	}

	pattern := fmt.Sprintf("recommendations:%d:*", userID)
	keys, err := r.redis.Keys(ctx, pattern).Result()
	if err != nil {
		r.logger.WithError(err).Warn("Failed to list recommendation cache keys")
		return
	}
	if len(keys) > 0 {
		if err := r.redis.Del(ctx, keys...).Err(); err != nil {
			r.logger.WithError(err).Warn("Failed to invalidate recommendation cache")
		}
	}
}

func cacheKey(req models.RecommendationRequest) string {
	return fmt.Sprintf("recommendations:%d:%d:%d:%g:%t",
		req.UserID, req.Limit, req.FetchK, req.LambdaMult, req.ExcludeViewed)
}
