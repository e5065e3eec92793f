package models

import "time"

// Candidate is a single nearest-neighbor hit from the vector index.
// Score is a pgvector cosine distance in [0, 2]; lower is closer.
type Candidate struct {
	RecipeID int64   `json:"recipe_id"`
	Score    float64 `json:"score"`
}

type Recommendation struct {
	RecipeID int64   `json:"recipe_id"`
	Score    float64 `json:"score"`
	Position int     `json:"position"`
}

type RecommendationRequest struct {
	UserID        int64   `json:"user_id"`
	Limit         int     `json:"limit"`
	FetchK        int     `json:"fetch_k"`
	LambdaMult    float64 `json:"lambda_mult"`
	ExcludeViewed bool    `json:"exclude_viewed"`
}

type RecommendationResponse struct {
	UserID          int64            `json:"user_id"`
	Recommendations []Recommendation `json:"recommendations"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// DefaultRecommendationRequest fills the tuning parameters the API documents
// as defaults: 10 results re-ranked out of 20 candidates, balanced MMR.
func DefaultRecommendationRequest(userID int64) RecommendationRequest {
	return RecommendationRequest{
		UserID:        userID,
		Limit:         10,
		FetchK:        20,
		LambdaMult:    0.5,
		ExcludeViewed: true,
	}
}
