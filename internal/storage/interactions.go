package storage

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// InteractionStore reads and writes user interaction history: explicit
// feedback (like/dislike), impressions (view/detail view) and authorship.
type InteractionStore struct {
	db     Querier
	logger *logrus.Logger
}

func NewInteractionStore(db Querier, logger *logrus.Logger) *InteractionStore {
	return &InteractionStore{
		db:     db,
		logger: logger,
	}
}

func (s *InteractionStore) LikedRecipeIDs(ctx context.Context, userID int64) ([]int64, error) {
	return s.feedbackIDs(ctx, userID, "like")
}

func (s *InteractionStore) DislikedRecipeIDs(ctx context.Context, userID int64) ([]int64, error) {
	return s.feedbackIDs(ctx, userID, "dislike")
}

func (s *InteractionStore) feedbackIDs(ctx context.Context, userID int64, kind string) ([]int64, error) {
	rows, err := s.db.Query(ctx,
		`SELECT recipe_id FROM recipe_feedback WHERE user_id = $1 AND kind = $2`,
		userID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s feedback: %w", kind, err)
	}
	return scanIDs(rows)
}

func (s *InteractionStore) ViewedRecipeIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.db.Query(ctx,
		`SELECT DISTINCT recipe_id FROM recipe_impressions WHERE user_id = $1`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query impressions: %w", err)
	}
	return scanIDs(rows)
}

func (s *InteractionStore) DetailViewedRecipeIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.db.Query(ctx,
		`SELECT DISTINCT recipe_id FROM recipe_impressions WHERE user_id = $1 AND source = 'detail'`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query detail impressions: %w", err)
	}
	return scanIDs(rows)
}

func (s *InteractionStore) AuthoredRecipeIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id FROM recipes WHERE author_id = $1`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query authored recipes: %w", err)
	}
	return scanIDs(rows)
}

// UpsertFeedback records a like or dislike. A user has at most one feedback
// row per recipe; switching kind overwrites the previous judgement.
func (s *InteractionStore) UpsertFeedback(ctx context.Context, userID, recipeID int64, kind string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO recipe_feedback (user_id, recipe_id, kind, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, recipe_id)
		DO UPDATE SET kind = EXCLUDED.kind, created_at = now()`,
		userID, recipeID, kind)
	if err != nil {
		return fmt.Errorf("failed to upsert feedback: %w", err)
	}
	return nil
}

func (s *InteractionStore) DeleteFeedback(ctx context.Context, userID, recipeID int64) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM recipe_feedback WHERE user_id = $1 AND recipe_id = $2`,
		userID, recipeID)
	if err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}
	return nil
}

func (s *InteractionStore) RecordImpression(ctx context.Context, userID, recipeID int64, source string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO recipe_impressions (user_id, recipe_id, source, created_at)
		VALUES ($1, $2, $3, now())`,
		userID, recipeID, source)
	if err != nil {
		return fmt.Errorf("failed to record impression: %w", err)
	}
	return nil
}
