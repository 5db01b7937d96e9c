// detail.go implements the skill detail endpoint. Fetching a detail page
// increments the skill's view counter before the row is read, so the returned
// view count already includes the current request.
package skills

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clawhub/clawhub/internal/db/models"
	"github.com/clawhub/clawhub/internal/db/repositories"
	"github.com/clawhub/clawhub/internal/telemetry"
)

// relatedLimit caps the number of related skills shown on a detail page.
const relatedLimit = 4

// @Summary      Get skill detail
// @Description  Returns a single skill by slug along with up to four related skills (shared category or same author). Each fetch counts as a view.
// @Tags         Skills
// @Produce      json
// @Param        slug  path  string  true  "Skill slug"
// @Success      200  {object}  map[string]interface{}  "skill, related: []"
// @Failure      404  {object}  map[string]interface{}  "Skill not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/skills/{slug} [get]
// GetSkillHandler handles skill detail requests
// Implements: GET /api/v1/skills/:slug
func GetSkillHandler(db *sql.DB) gin.HandlerFunc {
	skillRepo := repositories.NewSkillRepository(db)

	return func(c *gin.Context) {
		slug := c.Param("slug")
		ctx := c.Request.Context()

		// Bump the counter first so the subsequent read returns the post-view
		// count. Unknown slugs update zero rows and fall through to the 404.
		if err := skillRepo.IncrementViewCount(ctx, slug); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load skill",
			})
			return
		}

		skill, err := skillRepo.GetBySlug(ctx, slug)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load skill",
			})
			return
		}
		if skill == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Skill not found",
			})
			return
		}

		telemetry.SkillViewsTotal.Inc()

		related, err := skillRepo.ListRelated(ctx, skill, relatedLimit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load related skills",
			})
			return
		}

		relatedViews := make([]models.SkillView, len(related))
		for i, s := range related {
			relatedViews[i] = s.PublicView()
		}

		c.JSON(http.StatusOK, gin.H{
			"skill":   skill.PublicView(),
			"related": relatedViews,
		})
	}
}
