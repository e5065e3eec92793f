package handlers

import (
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
)

func setupRecipeRouter(recommender services.RecommenderInterface) *gin.Engine {
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	handler := NewRecipeHandler(nil, recommender, logger)

	router := gin.New()
	router.GET("/recipes", handler.ListIndexed)
	router.DELETE("/recipes/:recipeId", handler.Delete)
	return router
}

func TestRecipeHandler_ListIndexed(t *testing.T) {
	recommender := new(MockRecommender)
	router := setupRecipeRouter(recommender)

	recommender.On("IndexedRecipeIDs", mock.Anything).Return([]int64{10, 20, 30}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/recipes", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		RecipeIDs []int64 `json:"recipe_ids"`
		Count     int     `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, []int64{10, 20, 30}, response.RecipeIDs)
	assert.Equal(t, 3, response.Count)
}

func TestRecipeHandler_ListIndexed_EmptyIndex(t *testing.T) {
	recommender := new(MockRecommender)
	router := setupRecipeRouter(recommender)

	recommender.On("IndexedRecipeIDs", mock.Anything).Return(nil, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/recipes", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"recipe_ids": [], "count": 0}`, w.Body.String())
}

func TestRecipeHandler_ListIndexed_IndexError(t *testing.T) {
	recommender := new(MockRecommender)
	router := setupRecipeRouter(recommender)

	recommender.On("IndexedRecipeIDs", mock.Anything).Return(nil, errors.New("index unavailable"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/recipes", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRecipeHandler_Delete(t *testing.T) {
	recommender := new(MockRecommender)
	router := setupRecipeRouter(recommender)

	recommender.On("RemoveRecipe", mock.Anything, int64(42)).Return(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/recipes/42", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	recommender.AssertExpectations(t)
}

func TestRecipeHandler_Delete_InvalidID(t *testing.T) {
	recommender := new(MockRecommender)
	router := setupRecipeRouter(recommender)

	for _, recipeID := range []string{"abc", "-1", "0"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodDelete, "/recipes/"+recipeID, nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	}

	recommender.AssertNotCalled(t, "RemoveRecipe", mock.Anything, mock.Anything)
}
