// Package moderation implements the review queue endpoints. Listing shows
// pending submissions oldest first; deciding approves or rejects exactly one
// pending submission, publishing approved ones into the catalog.
package moderation

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/clawhub/clawhub/internal/db/models"
	"github.com/clawhub/clawhub/internal/db/repositories"
	"github.com/clawhub/clawhub/internal/telemetry"
)

// Handlers handles moderation endpoints for moderators and admins.
type Handlers struct {
	submissionRepo *repositories.SubmissionRepository
}

// NewHandlers creates a new moderation Handlers instance.
func NewHandlers(submissionRepo *repositories.SubmissionRepository) *Handlers {
	return &Handlers{submissionRepo: submissionRepo}
}

// decisionRequest is the JSON body for a moderation decision.
type decisionRequest struct {
	Action string  `json:"action"`
	Notes  *string `json:"notes"`
}

// @Summary      List pending submissions
// @Description  Returns submissions awaiting review, oldest first, with the submitter's email joined in.
// @Tags         Moderation
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Maximum results to return (default 20, max 100)"
// @Param        offset  query  int  false  "Offset for pagination (default 0)"
// @Success      200  {object}  map[string]interface{}  "submissions: [], meta: {limit, offset, total}"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/moderation/pending [get]
// ListPending handles GET /api/v1/moderation/pending
func (h *Handlers) ListPending(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	subs, total, err := h.submissionRepo.ListPending(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list pending submissions"})
		return
	}
	if subs == nil {
		subs = []*models.UserSkill{}
	}

	c.JSON(http.StatusOK, gin.H{
		"submissions": subs,
		"meta": gin.H{
			"limit":  limit,
			"offset": offset,
			"total":  total,
		},
	})
}

// @Summary      Decide on a submission
// @Description  Approves or rejects a pending submission. Approval publishes the skill into the public catalog; either way the submission leaves the review queue permanently.
// @Tags         Moderation
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id        path  int              true  "Submission ID"
// @Param        decision  body  decisionRequest  true  "action: approve or reject, optional notes"
// @Success      200  {object}  map[string]interface{}  "submission"
// @Failure      400  {object}  map[string]interface{}  "Invalid action"
// @Failure      404  {object}  map[string]interface{}  "Submission not found"
// @Failure      409  {object}  map[string]interface{}  "Already decided, or slug conflicts with a published skill"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/moderation/{id} [post]
// Decide handles POST /api/v1/moderation/:id
func (h *Handlers) Decide(c *gin.Context) {
	moderatorVal, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	moderatorID, ok := moderatorVal.(string)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID format"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return
	}

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var action repositories.DecisionAction
	switch req.Action {
	case "approve":
		action = repositories.ActionApprove
	case "reject":
		action = repositories.ActionReject
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Action must be 'approve' or 'reject'"})
		return
	}

	sub, err := h.submissionRepo.Decide(c.Request.Context(), moderatorID, id, action, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		case errors.Is(err, repositories.ErrInvalidState):
			c.JSON(http.StatusConflict, gin.H{"error": "invalid state"})
		case errors.Is(err, repositories.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "A published skill with this slug already exists"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decide submission"})
		}
		return
	}

	telemetry.ModerationDecisionsTotal.WithLabelValues(req.Action).Inc()

	c.JSON(http.StatusOK, gin.H{"submission": sub})
}
