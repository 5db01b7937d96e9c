// Package submissions implements the self-service endpoints for skill
// submissions. Every operation is scoped to the authenticated owner, and
// mutations are only allowed while a submission is still pending review.
package submissions

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"

	"github.com/clawhub/clawhub/internal/db/models"
	"github.com/clawhub/clawhub/internal/db/repositories"
	"github.com/clawhub/clawhub/internal/validation"
)

// Handlers handles submission endpoints for regular users.
type Handlers struct {
	submissionRepo *repositories.SubmissionRepository
}

// NewHandlers creates a new submissions Handlers instance.
func NewHandlers(submissionRepo *repositories.SubmissionRepository) *Handlers {
	return &Handlers{submissionRepo: submissionRepo}
}

// submissionRequest is the JSON body for create and update operations.
type submissionRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	GitHubURL   string   `json:"github_url"`
	Version     string   `json:"version"`
	Tags        []string `json:"tags"`
	Categories  []string `json:"categories"`
}

// validate runs the shared submission validation over the request body.
func (req *submissionRequest) validate() error {
	return validation.ValidateSubmission(validation.SubmissionInput{
		Name:        req.Name,
		Description: req.Description,
		GitHubURL:   req.GitHubURL,
		Version:     req.Version,
		Tags:        req.Tags,
		Categories:  req.Categories,
	})
}

// apply copies the request fields onto a submission row.
func (req *submissionRequest) apply(sub *models.UserSkill) {
	sub.Name = req.Name
	sub.Description = req.Description
	sub.Version = req.Version
	sub.Tags = pq.StringArray(req.Tags)
	sub.Categories = pq.StringArray(req.Categories)
	sub.GitHubURL = nil
	if req.GitHubURL != "" {
		githubURL := req.GitHubURL
		sub.GitHubURL = &githubURL
	}
}

// currentUser extracts the authenticated user from the request context.
// The auth middleware always sets it; a missing value means a wiring bug.
func currentUser(c *gin.Context) (*models.User, bool) {
	val, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return nil, false
	}
	user, ok := val.(*models.User)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user format"})
		return nil, false
	}
	return user, true
}

// @Summary      Submit a skill
// @Description  Creates a new pending skill submission for moderation review.
// @Tags         Submissions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        submission  body  submissionRequest  true  "Submission fields"
// @Success      201  {object}  map[string]interface{}  "submission"
// @Failure      400  {object}  map[string]interface{}  "Validation error"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/user/skills [post]
// Create handles POST /api/v1/user/skills
func (h *Handlers) Create(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req submissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub := &models.UserSkill{
		UserID: user.ID,
		Slug:   validation.Slugify(req.Name),
		Author: user.Name,
	}
	req.apply(sub)

	if err := h.submissionRepo.Create(c.Request.Context(), sub); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create submission"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"submission": sub})
}

// @Summary      List own submissions
// @Description  Returns the authenticated user's submissions, newest first.
// @Tags         Submissions
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "submissions: []"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/user/skills [get]
// List handles GET /api/v1/user/skills
func (h *Handlers) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	subs, err := h.submissionRepo.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list submissions"})
		return
	}
	if subs == nil {
		subs = []*models.UserSkill{}
	}

	c.JSON(http.StatusOK, gin.H{"submissions": subs})
}

// @Summary      Get own submission
// @Description  Returns a single submission owned by the authenticated user.
// @Tags         Submissions
// @Security     Bearer
// @Produce      json
// @Param        id  path  int  true  "Submission ID"
// @Success      200  {object}  map[string]interface{}  "submission"
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Router       /api/v1/user/skills/{id} [get]
// Get handles GET /api/v1/user/skills/:id
func (h *Handlers) Get(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return
	}

	sub, err := h.submissionRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load submission"})
		return
	}
	// Hide other users' submissions behind the same 404 as missing rows.
	if sub == nil || sub.UserID != user.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"submission": sub})
}

// @Summary      Update own pending submission
// @Description  Updates a submission that is still pending review. Approved and rejected submissions are immutable.
// @Tags         Submissions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id          path  int                true  "Submission ID"
// @Param        submission  body  submissionRequest  true  "Updated fields"
// @Success      200  {object}  map[string]interface{}  "submission"
// @Failure      400  {object}  map[string]interface{}  "Validation error"
// @Failure      403  {object}  map[string]interface{}  "Not the owner"
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Failure      409  {object}  map[string]interface{}  "Submission already decided"
// @Router       /api/v1/user/skills/{id} [put]
// Update handles PUT /api/v1/user/skills/:id
func (h *Handlers) Update(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return
	}

	var req submissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub := &models.UserSkill{ID: id}
	req.apply(sub)

	if err := h.submissionRepo.Update(c.Request.Context(), user.ID, sub); err != nil {
		respondMutationError(c, err, "Failed to update submission")
		return
	}

	// Re-read the row so the response carries the full submission, not just
	// the fields this request set.
	updated, err := h.submissionRepo.GetByID(c.Request.Context(), id)
	if err != nil || updated == nil {
		c.JSON(http.StatusOK, gin.H{"submission": sub})
		return
	}

	c.JSON(http.StatusOK, gin.H{"submission": updated})
}

// @Summary      Withdraw own pending submission
// @Description  Deletes a submission that is still pending review.
// @Tags         Submissions
// @Security     Bearer
// @Produce      json
// @Param        id  path  int  true  "Submission ID"
// @Success      200  {object}  map[string]interface{}  "message"
// @Failure      403  {object}  map[string]interface{}  "Not the owner"
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Failure      409  {object}  map[string]interface{}  "Submission already decided"
// @Router       /api/v1/user/skills/{id} [delete]
// Delete handles DELETE /api/v1/user/skills/:id
func (h *Handlers) Delete(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return
	}

	if err := h.submissionRepo.Delete(c.Request.Context(), user.ID, id); err != nil {
		respondMutationError(c, err, "Failed to delete submission")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Submission withdrawn"})
}

// respondMutationError maps repository sentinel errors to HTTP statuses.
func respondMutationError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
	case errors.Is(err, repositories.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not the owner of this submission"})
	case errors.Is(err, repositories.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid state"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
