package models

import "time"

const (
	FeedbackLike    = "like"
	FeedbackDislike = "dislike"

	ImpressionSourceFeed   = "feed"
	ImpressionSourceSearch = "search"
	ImpressionSourceDetail = "detail"
)

// InteractionHistory is the per-user aggregate the preference builder and the
// exclusion policy read. Authored ids only ever feed the exclusion set.
type InteractionHistory struct {
	Liked        []int64
	Disliked     []int64
	Viewed       []int64
	DetailViewed []int64
	Authored     []int64
}

// Empty reports whether the user has no signal the preference builder can use.
// Authored recipes say nothing about taste.
func (h InteractionHistory) Empty() bool {
	return len(h.Liked) == 0 && len(h.Disliked) == 0 &&
		len(h.Viewed) == 0 && len(h.DetailViewed) == 0
}

type FeedbackRequest struct {
	UserID   int64  `json:"user_id" binding:"required,gt=0"`
	RecipeID int64  `json:"recipe_id" binding:"required,gt=0"`
	Kind     string `json:"kind" binding:"required,oneof=like dislike"`
}

type FeedbackDeleteRequest struct {
	UserID   int64 `json:"user_id" binding:"required,gt=0"`
	RecipeID int64 `json:"recipe_id" binding:"required,gt=0"`
}

type ImpressionRequest struct {
	UserID   int64  `json:"user_id" binding:"required,gt=0"`
	RecipeID int64  `json:"recipe_id" binding:"required,gt=0"`
	Source   string `json:"source" binding:"required,oneof=feed search detail"`
}

type RecipeIngestionRequest struct {
	RecipeID    int64    `json:"recipe_id" binding:"required,gt=0" validate:"required,gt=0"`
	Title       string   `json:"title" binding:"required" validate:"required,min=1,max=500"`
	Description string   `json:"description" validate:"max=10000"`
	Tags        []string `json:"tags,omitempty" validate:"max=50,dive,min=1,max=100"`
}

// InteractionEvent is the wire form consumed from the recipe-interactions
// topic. Unlike/undislike retract earlier feedback.
type InteractionEvent struct {
	EventID   string    `json:"event_id"`
	UserID    int64     `json:"user_id"`
	RecipeID  int64     `json:"recipe_id"`
	Kind      string    `json:"kind"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
