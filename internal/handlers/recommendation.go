package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/forkcast/recsys/internal/services"
	"github.com/forkcast/recsys/pkg/models"
)

type RecommendationHandler struct {
	recommender services.RecommenderInterface
	logger      *logrus.Logger
}

func NewRecommendationHandler(recommender services.RecommenderInterface, logger *logrus.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		recommender: recommender,
		logger:      logger,
	}
}

// Get serves GET /api/v1/recommendations/:userId. A downstream failure
// degrades to an empty list rather than surfacing a hard error to the feed.
func (h *RecommendationHandler) Get(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_USER_ID",
				"message": "User ID must be a positive integer",
			},
		})
		return
	}

	req := models.DefaultRecommendationRequest(userID)

	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 100 {
			req.Limit = limit
		}
	}
	if fetchKStr := c.Query("fetch_k"); fetchKStr != "" {
		if fetchK, err := strconv.Atoi(fetchKStr); err == nil && fetchK > 0 && fetchK <= 200 {
			req.FetchK = fetchK
		}
	}
	if lambdaStr := c.Query("lambda"); lambdaStr != "" {
		if lambda, err := strconv.ParseFloat(lambdaStr, 64); err == nil && lambda >= 0 && lambda <= 1 {
			req.LambdaMult = lambda
		}
	}
	if excludeStr := c.Query("exclude_viewed"); excludeStr != "" {
		if exclude, err := strconv.ParseBool(excludeStr); err == nil {
			req.ExcludeViewed = exclude
		}
	}

	recommendations, err := h.recommender.GetRecommendations(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{
					"code":    "INVALID_PARAMETERS",
					"message": err.Error(),
				},
			})
			return
		}

		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to generate recommendations")
		recommendations = []models.Recommendation{}
	}

	c.JSON(http.StatusOK, models.RecommendationResponse{
		UserID:          userID,
		Recommendations: recommendations,
		GeneratedAt:     time.Now(),
	})
}

// RecordFeedback serves POST /api/v1/feedback.
func (h *RecommendationHandler) RecordFeedback(c *gin.Context) {
	var req models.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST_BODY",
				"message": "Invalid feedback format",
			},
		})
		return
	}

	if err := h.recommender.RecordFeedback(c.Request.Context(), req.UserID, req.RecipeID, req.Kind); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":   req.UserID,
			"recipe_id": req.RecipeID,
		}).Error("Failed to record feedback")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "FEEDBACK_RECORDING_FAILED",
				"message": "Failed to record feedback",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Feedback recorded"})
}

// DeleteFeedback serves DELETE /api/v1/feedback (a user retracting a like or
// dislike).
func (h *RecommendationHandler) DeleteFeedback(c *gin.Context) {
	var req models.FeedbackDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST_BODY",
				"message": "Invalid feedback format",
			},
		})
		return
	}

	if err := h.recommender.RemoveFeedback(c.Request.Context(), req.UserID, req.RecipeID); err != nil {
		h.logger.WithError(err).Error("Failed to remove feedback")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "FEEDBACK_REMOVAL_FAILED",
				"message": "Failed to remove feedback",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Feedback removed"})
}

// RecordImpression serves POST /api/v1/impressions.
func (h *RecommendationHandler) RecordImpression(c *gin.Context) {
	var req models.ImpressionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST_BODY",
				"message": "Invalid impression format",
			},
		})
		return
	}

	if err := h.recommender.RecordImpression(c.Request.Context(), req.UserID, req.RecipeID, req.Source); err != nil {
		h.logger.WithError(err).Error("Failed to record impression")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "IMPRESSION_RECORDING_FAILED",
				"message": "Failed to record impression",
			},
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Impression recorded"})
}
