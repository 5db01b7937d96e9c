// Package bookmarks implements the per-user bookmark endpoints. Adding an
// existing bookmark and removing a missing one are both idempotent no-ops.
package bookmarks

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clawhub/clawhub/internal/db/repositories"
)

// Handlers handles bookmark endpoints for authenticated users.
type Handlers struct {
	bookmarkRepo *repositories.BookmarkRepository
}

// NewHandlers creates a new bookmarks Handlers instance.
func NewHandlers(bookmarkRepo *repositories.BookmarkRepository) *Handlers {
	return &Handlers{bookmarkRepo: bookmarkRepo}
}

func currentUserID(c *gin.Context) (string, bool) {
	val, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return "", false
	}
	userID, ok := val.(string)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID format"})
		return "", false
	}
	return userID, true
}

// @Summary      Bookmark a skill
// @Description  Adds a skill to the user's bookmarks. Bookmarking an already bookmarked skill succeeds without effect.
// @Tags         Bookmarks
// @Security     Bearer
// @Produce      json
// @Param        slug  path  string  true  "Skill slug"
// @Success      200  {object}  map[string]interface{}  "message"
// @Failure      404  {object}  map[string]interface{}  "Skill not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/bookmarks/{slug} [post]
// Add handles POST /api/v1/bookmarks/:slug
func (h *Handlers) Add(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.bookmarkRepo.Add(c.Request.Context(), userID, c.Param("slug")); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Skill not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add bookmark"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Bookmarked"})
}

// @Summary      Remove a bookmark
// @Description  Removes a skill from the user's bookmarks. Removing a bookmark that does not exist succeeds without effect.
// @Tags         Bookmarks
// @Security     Bearer
// @Produce      json
// @Param        slug  path  string  true  "Skill slug"
// @Success      200  {object}  map[string]interface{}  "message"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/bookmarks/{slug} [delete]
// Remove handles DELETE /api/v1/bookmarks/:slug
func (h *Handlers) Remove(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.bookmarkRepo.Remove(c.Request.Context(), userID, c.Param("slug")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove bookmark"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Bookmark removed"})
}

// @Summary      Check a bookmark
// @Description  Reports whether the user has bookmarked the given skill.
// @Tags         Bookmarks
// @Security     Bearer
// @Produce      json
// @Param        slug  path  string  true  "Skill slug"
// @Success      200  {object}  map[string]interface{}  "bookmarked: bool"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/bookmarks/{slug} [get]
// Check handles GET /api/v1/bookmarks/:slug
func (h *Handlers) Check(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	exists, err := h.bookmarkRepo.Exists(c.Request.Context(), userID, c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check bookmark"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookmarked": exists})
}

// @Summary      List bookmarks
// @Description  Returns the user's bookmarked skills, most recently bookmarked first.
// @Tags         Bookmarks
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "bookmarks: []"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/bookmarks [get]
// List handles GET /api/v1/bookmarks
func (h *Handlers) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	bookmarked, err := h.bookmarkRepo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list bookmarks"})
		return
	}

	results := make([]gin.H, len(bookmarked))
	for i, b := range bookmarked {
		results[i] = gin.H{
			"skill":         b.Skill.PublicView(),
			"bookmarked_at": b.BookmarkedAt,
		}
	}

	c.JSON(http.StatusOK, gin.H{"bookmarks": results})
}
