package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/forkcast/recsys/internal/messaging"
	"github.com/forkcast/recsys/internal/services"
	"github.com/forkcast/recsys/pkg/models"
)

type RecipeHandler struct {
	bus         *messaging.MessageBus
	recommender services.RecommenderInterface
	validator   *validator.Validate
	logger      *logrus.Logger
}

func NewRecipeHandler(bus *messaging.MessageBus, recommender services.RecommenderInterface, logger *logrus.Logger) *RecipeHandler {
	return &RecipeHandler{
		bus:         bus,
		recommender: recommender,
		validator:   validator.New(),
		logger:      logger,
	}
}

// Ingest serves POST /api/v1/recipes. Embedding is slow, so the recipe is
// queued and indexed asynchronously by the ingestion consumer.
func (h *RecipeHandler) Ingest(c *gin.Context) {
	var req models.RecipeIngestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST_BODY",
				"message": "Invalid recipe format",
			},
		})
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		h.logger.WithError(err).Warn("Recipe ingestion validation failed")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	jobID, err := h.bus.PublishRecipeIngestion(c.Request.Context(), req)
	if err != nil {
		h.logger.WithError(err).WithField("recipe_id", req.RecipeID).Error("Failed to enqueue recipe")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "INGESTION_ENQUEUE_FAILED",
				"message": "Failed to enqueue recipe for indexing",
			},
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":    jobID,
		"recipe_id": req.RecipeID,
	})
}

// ListIndexed serves GET /api/v1/recipes, enumerating the recipe ids present
// in the vector index so the recipe backend can reconcile against its catalog.
func (h *RecipeHandler) ListIndexed(c *gin.Context) {
	ids, err := h.recommender.IndexedRecipeIDs(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to enumerate indexed recipes")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "INDEX_ENUMERATION_FAILED",
				"message": "Failed to enumerate indexed recipes",
			},
		})
		return
	}

	if ids == nil {
		ids = []int64{}
	}
	c.JSON(http.StatusOK, gin.H{
		"recipe_ids": ids,
		"count":      len(ids),
	})
}

// Delete serves DELETE /api/v1/recipes/:recipeId, removing the recipe from
// the vector index.
func (h *RecipeHandler) Delete(c *gin.Context) {
	recipeID, err := strconv.ParseInt(c.Param("recipeId"), 10, 64)
	if err != nil || recipeID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_RECIPE_ID",
				"message": "Recipe ID must be a positive integer",
			},
		})
		return
	}

	if err := h.recommender.RemoveRecipe(c.Request.Context(), recipeID); err != nil {
		h.logger.WithError(err).WithField("recipe_id", recipeID).Error("Failed to remove recipe from index")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "RECIPE_REMOVAL_FAILED",
				"message": "Failed to remove recipe from index",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Recipe removed from index"})
}
