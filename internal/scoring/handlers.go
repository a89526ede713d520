package scoring

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/paylens/paylens/internal/transaction"
)

// MaxBatchSize caps the number of transactions in one batch scoring call.
const MaxBatchSize = 100

// Handler provides HTTP endpoints for scoring
type Handler struct {
	service *Service
}

// NewHandler creates a new scoring handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up scoring routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/score", h.ScoreTransaction)
	r.POST("/score/batch", h.ScoreBatch)
	r.POST("/transactions/:id/resolve", h.ResolveTransaction)
	r.GET("/scores/recent", h.ListRecentScores)
	r.GET("/scores/:id", h.GetScore)
	r.GET("/model/info", h.ModelInfo)
}

// ScoreTransaction handles POST /score
func (h *Handler) ScoreTransaction(c *gin.Context) {
	var ev transaction.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	rec, err := h.service.Score(c.Request.Context(), &ev)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_transaction",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, rec)
}

// ScoreBatch handles POST /score/batch
func (h *Handler) ScoreBatch(c *gin.Context) {
	var req struct {
		Transactions []transaction.Event `json:"transactions" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}
	if len(req.Transactions) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "transactions must not be empty",
		})
		return
	}
	if len(req.Transactions) > MaxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "batch_too_large",
			"message": "At most " + strconv.Itoa(MaxBatchSize) + " transactions per batch",
		})
		return
	}

	type batchResult struct {
		TransactionID string       `json:"transaction_id"`
		Score         *ScoreRecord `json:"score,omitempty"`
		Error         string       `json:"error,omitempty"`
	}

	results := make([]batchResult, 0, len(req.Transactions))
	for i := range req.Transactions {
		ev := &req.Transactions[i]
		rec, err := h.service.Score(c.Request.Context(), ev)
		if err != nil {
			results = append(results, batchResult{
				TransactionID: ev.TransactionID,
				Error:         err.Error(),
			})
			continue
		}
		results = append(results, batchResult{
			TransactionID: rec.TransactionID,
			Score:         rec,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(results),
		"results": results,
	})
}

// ResolveTransactionRequest carries the confirmed fraud label.
type ResolveTransactionRequest struct {
	IsFraud *bool `json:"is_fraud" binding:"required"`
}

// ResolveTransaction handles POST /transactions/:id/resolve
func (h *Handler) ResolveTransaction(c *gin.Context) {
	txID := c.Param("id")

	var req ResolveTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsFraud == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "is_fraud is required",
		})
		return
	}

	rec, err := h.service.Resolve(c.Request.Context(), txID, *req.IsFraud)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "No score recorded for transaction " + txID,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "resolution_failed",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, rec)
}

// ListRecentScores handles GET /scores/recent
func (h *Handler) ListRecentScores(c *gin.Context) {
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	scores, err := h.service.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "list_failed",
			"message": err.Error(),
		})
		return
	}
	if scores == nil {
		scores = []*ScoreRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  len(scores),
		"scores": scores,
	})
}

// GetScore handles GET /scores/:id (by transaction ID)
func (h *Handler) GetScore(c *gin.Context) {
	rec, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "No score recorded for transaction " + c.Param("id"),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "get_failed",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, rec)
}

// ModelInfo handles GET /model/info
func (h *Handler) ModelInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.ModelInfo())
}
