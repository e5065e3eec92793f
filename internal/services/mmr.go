package services

import (
	"math"

	"github.com/forkcast/recsys/pkg/models"
)

// SelectDiverse re-ranks candidates with Maximal Marginal Relevance and
// truncates to limit. Candidates must arrive sorted by ascending distance
// (best first); the first one seeds the selection. Relevance is 1 - score,
// which for cosine distances is exactly cosine similarity to the query.
//
// lambda 1.0 degenerates to pure relevance ranking, 0.0 to pure diversity.
// Candidates without an embedding can never be picked after the seed; when
// none of the remaining candidates has one, selection stops early and the
// result may be shorter than limit.
func SelectDiverse(
	candidates []models.Candidate,
	embeddings map[int64][]float32,
	limit int,
	lambda float64,
) []models.Candidate {
	if len(candidates) <= limit {
		return candidates
	}

	selected := []models.Candidate{candidates[0]}
	remaining := make([]models.Candidate, len(candidates)-1)
	copy(remaining, candidates[1:])

	for len(selected) < limit && len(remaining) > 0 {
		bestIdx := -1
		bestScore := math.Inf(-1)

		for i, candidate := range remaining {
			embedding, ok := embeddings[candidate.RecipeID]
			if !ok {
				continue
			}

			relevance := 1 - candidate.Score

			maxSimilarity := 0.0
			for _, sel := range selected {
				selEmbedding, ok := embeddings[sel.RecipeID]
				if !ok {
					continue
				}
				if sim := cosineSimilarity(embedding, selEmbedding); sim > maxSimilarity {
					maxSimilarity = sim
				}
			}

			mmrScore := lambda*relevance - (1-lambda)*maxSimilarity
			if mmrScore > bestScore {
				bestScore = mmrScore
				bestIdx = i
			}
		}

		// No remaining candidate has a usable embedding.
		if bestIdx == -1 {
			break
		}

		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}

// cosineSimilarity is 0.0 for mismatched lengths and zero-norm vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
