package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/forkcast/recsys/internal/config"
	"github.com/forkcast/recsys/pkg/models"
)

// PreferenceVectorBuilder folds a user's interaction history into a single
// unit-length embedding. Each interaction kind contributes the mean of the
// normalized embeddings of its recipes, weighted per configuration: likes
// dominate, dislikes push away, views nudge.
type PreferenceVectorBuilder struct {
	store      InteractionStore
	index      VectorIndex
	weights    config.ComponentWeights
	dimensions int
	logger     *logrus.Logger
}

func NewPreferenceVectorBuilder(
	store InteractionStore,
	index VectorIndex,
	weights config.ComponentWeights,
	dimensions int,
	logger *logrus.Logger,
) *PreferenceVectorBuilder {
	return &PreferenceVectorBuilder{
		store:      store,
		index:      index,
		weights:    weights,
		dimensions: dimensions,
		logger:     logger,
	}
}

// Compute builds the preference vector for a user. It returns a nil vector
// when the user has no liked, disliked, viewed or detail-viewed recipe with
// an embedding in the index; that is a valid no-signal outcome, not an error.
// The fetched history is returned alongside so the caller can build its
// exclusion set without re-querying the store.
func (b *PreferenceVectorBuilder) Compute(ctx context.Context, userID int64) ([]float32, models.InteractionHistory, error) {
	history, err := b.fetchHistory(ctx, userID)
	if err != nil {
		return nil, models.InteractionHistory{}, err
	}

	if history.Empty() {
		return nil, history, nil
	}

	ids := unionIDs(history.Liked, history.Disliked, history.Viewed, history.DetailViewed)
	embeddings, err := b.index.Embeddings(ctx, ids)
	if err != nil {
		return nil, models.InteractionHistory{}, fmt.Errorf("failed to fetch interaction embeddings: %w", err)
	}

	combined := make([]float64, b.dimensions)
	assigned := false
	for _, component := range []struct {
		ids    []int64
		weight float64
	}{
		{history.Liked, b.weights.Like},
		{history.Disliked, b.weights.Dislike},
		{history.Viewed, b.weights.View},
		{history.DetailViewed, b.weights.DetailView},
	} {
		mean := b.componentMean(component.ids, embeddings)
		if mean == nil {
			continue
		}
		floats.AddScaled(combined, component.weight, mean)
		assigned = true
	}

	if !assigned {
		b.logger.WithField("user_id", userID).Debug("No interaction embeddings found, no preference signal")
		return nil, history, nil
	}

	norm := floats.Norm(combined, 2)
	if norm == 0 {
		// Components cancelled out exactly; treat as no signal.
		return nil, history, nil
	}
	floats.Scale(1/norm, combined)

	vector := make([]float32, b.dimensions)
	for i, v := range combined {
		vector[i] = float32(v)
	}
	return vector, history, nil
}

// fetchHistory issues the five interaction-id queries concurrently; they have
// no data dependency on each other.
func (b *PreferenceVectorBuilder) fetchHistory(ctx context.Context, userID int64) (models.InteractionHistory, error) {
	var history models.InteractionHistory
	var wg sync.WaitGroup
	errs := make([]error, 5)

	fetch := func(i int, dst *[]int64, query func(context.Context, int64) ([]int64, error)) {
		defer wg.Done()
		ids, err := query(ctx, userID)
		if err != nil {
			errs[i] = err
			return
		}
		*dst = ids
	}

	wg.Add(5)
	go fetch(0, &history.Liked, b.store.LikedRecipeIDs)
	go fetch(1, &history.Disliked, b.store.DislikedRecipeIDs)
	go fetch(2, &history.Viewed, b.store.ViewedRecipeIDs)
	go fetch(3, &history.DetailViewed, b.store.DetailViewedRecipeIDs)
	go fetch(4, &history.Authored, b.store.AuthoredRecipeIDs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return models.InteractionHistory{}, fmt.Errorf("failed to fetch interaction history: %w", err)
		}
	}
	return history, nil
}

// componentMean averages the normalized embeddings of the ids that have one.
// Returns nil when none do. A zero-norm embedding is kept raw rather than
// normalized, so it cannot blow up the average.
func (b *PreferenceVectorBuilder) componentMean(ids []int64, embeddings map[int64][]float32) []float64 {
	acc := make([]float64, b.dimensions)
	count := 0

	for _, id := range ids {
		embedding, ok := embeddings[id]
		if !ok || len(embedding) != b.dimensions {
			continue
		}

		v := make([]float64, b.dimensions)
		for i, x := range embedding {
			v[i] = float64(x)
		}
		if norm := floats.Norm(v, 2); norm != 0 {
			floats.Scale(1/norm, v)
		}
		floats.Add(acc, v)
		count++
	}

	if count == 0 {
		return nil
	}
	floats.Scale(1/float64(count), acc)
	return acc
}

func unionIDs(lists ...[]int64) []int64 {
	seen := make(map[int64]struct{})
	var union []int64
	for _, list := range lists {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			union = append(union, id)
		}
	}
	return union
}
