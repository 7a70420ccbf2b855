package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/formreach/formreach/internal/database"
	"github.com/formreach/formreach/internal/logger"
	"github.com/formreach/formreach/internal/processor"
	"github.com/formreach/formreach/internal/schedule"
)

const (
	defaultActivityLimit  = 50
	defaultActivityOffset = 0
	maxActivityLimit      = 500
)

// QueueHandler handles queue-related HTTP requests.
type QueueHandler struct {
	proc        *processor.Processor
	tasks       *database.TaskRepository
	submissions *database.SubmissionRepository
	coordinator *schedule.Coordinator
	log         logger.Logger
}

// NewQueueHandler creates a new queue handler. coordinator may be nil when
// scheduling is disabled.
func NewQueueHandler(
	proc *processor.Processor,
	tasks *database.TaskRepository,
	submissions *database.SubmissionRepository,
	coordinator *schedule.Coordinator,
	log logger.Logger,
) *QueueHandler {
	return &QueueHandler{
		proc:        proc,
		tasks:       tasks,
		submissions: submissions,
		coordinator: coordinator,
		log:         log,
	}
}

// processRequest is the optional body for POST /api/v1/queue/process.
type processRequest struct {
	MaxTasks   int `json:"max_tasks"`
	MaxSeconds int `json:"max_seconds"`
}

// Process handles POST /api/v1/queue/process. It runs one synchronous
// processor batch and reports what it did.
func (h *QueueHandler) Process(c *gin.Context) {
	var req processRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	if req.MaxTasks < 0 || req.MaxSeconds < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "budgets must not be negative"})
		return
	}

	report, err := h.proc.Run(c.Request.Context(), req.MaxTasks, time.Duration(req.MaxSeconds)*time.Second)
	if err != nil {
		h.log.Error("triggered batch failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "batch aborted",
			"report": report,
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// Stats handles GET /api/v1/queue/stats.
func (h *QueueHandler) Stats(c *gin.Context) {
	stats, err := h.tasks.Stats(c.Request.Context())
	if err != nil {
		h.log.Error("failed to read queue stats", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read queue stats"})
		return
	}

	byType, err := h.tasks.CountByType(c.Request.Context())
	if err != nil {
		h.log.Error("failed to read queue type counts", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read queue stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":   stats,
		"by_type": byType,
	})
}

// Schedule handles GET /api/v1/queue/schedule.
func (h *QueueHandler) Schedule(c *gin.Context) {
	if h.coordinator == nil {
		c.JSON(http.StatusOK, schedule.State{Enabled: false})
		return
	}
	c.JSON(http.StatusOK, h.coordinator.State())
}

// Activity handles GET /api/v1/campaigns/:id/activity.
func (h *QueueHandler) Activity(c *gin.Context) {
	campaignID := c.Param("id")
	limit, offset := parseLimitOffset(c, defaultActivityLimit, defaultActivityOffset)

	entries, err := h.submissions.ListLogsByCampaign(c.Request.Context(), campaignID, limit, offset)
	if err != nil {
		h.log.Error("failed to list campaign activity", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list activity"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"campaign_id": campaignID,
		"entries":     entries,
	})
}

// parseLimitOffset reads pagination query parameters with bounds applied.
func parseLimitOffset(c *gin.Context, defaultLimit, defaultOffset int) (int, int) {
	limit := defaultLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= maxActivityLimit {
			limit = parsed
		}
	}

	offset := defaultOffset
	if raw := c.Query("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	return limit, offset
}
