package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/forkcast/recsys/internal/services"
	"github.com/forkcast/recsys/pkg/models"
)

type MockRecommender struct {
	mock.Mock
}

func (m *MockRecommender) GetRecommendations(ctx context.Context, req models.RecommendationRequest) ([]models.Recommendation, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Recommendation), args.Error(1)
}

func (m *MockRecommender) RecordFeedback(ctx context.Context, userID, recipeID int64, kind string) error {
	args := m.Called(ctx, userID, recipeID, kind)
	return args.Error(0)
}

func (m *MockRecommender) RemoveFeedback(ctx context.Context, userID, recipeID int64) error {
	args := m.Called(ctx, userID, recipeID)
	return args.Error(0)
}

func (m *MockRecommender) RecordImpression(ctx context.Context, userID, recipeID int64, source string) error {
	args := m.Called(ctx, userID, recipeID, source)
	return args.Error(0)
}

func (m *MockRecommender) IndexRecipe(ctx context.Context, req models.RecipeIngestionRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockRecommender) RemoveRecipe(ctx context.Context, recipeID int64) error {
	args := m.Called(ctx, recipeID)
	return args.Error(0)
}

func (m *MockRecommender) IndexedRecipeIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func setupRecommendationRouter(recommender services.RecommenderInterface) *gin.Engine {
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	handler := NewRecommendationHandler(recommender, logger)

	router := gin.New()
	router.GET("/recommendations/:userId", handler.Get)
	router.POST("/feedback", handler.RecordFeedback)
	router.DELETE("/feedback", handler.DeleteFeedback)
	router.POST("/impressions", handler.RecordImpression)
	return router
}

func TestRecommendationHandler_Get(t *testing.T) {
	recommender := new(MockRecommender)
	router := setupRecommendationRouter(recommender)

	recommendations := []models.Recommendation{
		{RecipeID: 20, Score: 0.12, Position: 1},
		{RecipeID: 22, Score: 0.15, Position: 2},
	}
	recommender.On("GetRecommendations", mock.Anything, mock.MatchedBy(func(req models.RecommendationRequest) bool {
		return req.UserID == 1 && req.Limit == 10 && req.FetchK == 20 && req.ExcludeViewed
	})).Return(recommendations, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/recommendations/1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response models.RecommendationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, int64(1), response.UserID)
	require.Len(t, response.Recommendations, 2)
	assert.Equal(t, int64(20), response.Recommendations[0].RecipeID)
}

func TestRecommendationHandler_Get_QueryParamsOverrideDefaults(t *testing.T) {
	recommender := new(MockRecommender)
	router := setupRecommendationRouter(recommender)

	recommender.On("GetRecommendations", mock.Anything, mock.MatchedBy(func(req models.RecommendationRequest) bool {
		return req.Limit == 5 && req.FetchK == 40 && req.LambdaMult == 0.8 && !req.ExcludeViewed
	})).Return([]models.Recommendation{}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet,
		"/recommendations/1?limit=5&fetch_k=40&lambda=0.8&exclude_viewed=false", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	recommender.AssertExpectations(t)
}

func TestRecommendationHandler_Get_ExcludeViewedParsing(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected bool
	}{
		{name: "zero is false", query: "?exclude_viewed=0", expected: false},
		{name: "one is true", query: "?exclude_viewed=1", expected: true},
		{name: "false literal", query: "?exclude_viewed=false", expected: false},
		{name: "garbage keeps the default", query: "?exclude_viewed=banana", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recommender := new(MockRecommender)
			router := setupRecommendationRouter(recommender)

			recommender.On("GetRecommendations", mock.Anything, mock.MatchedBy(func(req models.RecommendationRequest) bool {
				return req.ExcludeViewed == tt.expected
			})).Return([]models.Recommendation{}, nil)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/recommendations/1"+tt.query, nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			recommender.AssertExpectations(t)
		})
	}
}

func TestRecommendationHandler_Get_InvalidUserID(t *testing.T) {
	recommender := new(MockRecommender)
	router := setupRecommendationRouter(recommender)

	for _, userID := range []string{"abc", "-1", "0"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/recommendations/"+userID, nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	}

	recommender.AssertNotCalled(t, "GetRecommendations", mock.Anything, mock.Anything)
}

func TestRecommendationHandler_Get_ValidationErrorIs400(t *testing.T) {
	recommender := new(MockRecommender)
	router := setupRecommendationRouter(recommender)

	recommender.On("GetRecommendations", mock.Anything, mock.Anything).
		Return(nil, services.ErrInvalidRequest)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/recommendations/1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecommendationHandler_Get_PipelineFailureDegradesToEmpty(t *testing.T) {
	recommender := new(MockRecommender)
	router := setupRecommendationRouter(recommender)

	recommender.On("GetRecommendations", mock.Anything, mock.Anything).
		Return(nil, errors.New("index unavailable"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/recommendations/1", nil)
	router.ServeHTTP(w, req)

	// The feed tolerates an empty list far better than a 500.
	assert.Equal(t, http.StatusOK, w.Code)

	var response models.RecommendationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Empty(t, response.Recommendations)
}

func TestRecommendationHandler_RecordFeedback(t *testing.T) {
	recommender := new(MockRecommender)
	router := setupRecommendationRouter(recommender)

	recommender.On("RecordFeedback", mock.Anything, int64(1), int64(42), "like").Return(nil)

	body, _ := json.Marshal(models.FeedbackRequest{UserID: 1, RecipeID: 42, Kind: "like"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/feedback", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	recommender.AssertExpectations(t)
}

func TestRecommendationHandler_RecordFeedback_RejectsBadKind(t *testing.T) {
	recommender := new(MockRecommender)
	router := setupRecommendationRouter(recommender)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/feedback",
		bytes.NewReader([]byte(`{"user_id": 1, "recipe_id": 42, "kind": "bookmark"}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	recommender.AssertNotCalled(t, "RecordFeedback", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecommendationHandler_DeleteFeedback(t *testing.T) {
	recommender := new(MockRecommender)
	router := setupRecommendationRouter(recommender)

	recommender.On("RemoveFeedback", mock.Anything, int64(1), int64(42)).Return(nil)

	body, _ := json.Marshal(models.FeedbackDeleteRequest{UserID: 1, RecipeID: 42})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/feedback", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	recommender.AssertExpectations(t)
}

func TestRecommendationHandler_RecordImpression(t *testing.T) {
	recommender := new(MockRecommender)
	router := setupRecommendationRouter(recommender)

	recommender.On("RecordImpression", mock.Anything, int64(1), int64(42), "feed").Return(nil)

	body, _ := json.Marshal(models.ImpressionRequest{UserID: 1, RecipeID: 42, Source: "feed"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/impressions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	recommender.AssertExpectations(t)
}
