// search.go implements the public catalog listing endpoint.
package skills

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/clawhub/clawhub/internal/catalog"
	"github.com/clawhub/clawhub/internal/db/models"
	"github.com/clawhub/clawhub/internal/db/repositories"
	"github.com/clawhub/clawhub/internal/telemetry"
)

// @Summary      Search skills
// @Description  Search the skill catalog by free text, category, and tag with pagination. All filters are conjunctive.
// @Tags         Skills
// @Produce      json
// @Param        q         query  string  false  "Search query (matches name, description, author, and tags)"
// @Param        category  query  string  false  "Filter by category"
// @Param        tag       query  string  false  "Filter by tag"
// @Param        sort      query  string  false  "Sort order: views (default), stars, newest, name"
// @Param        limit     query  int     false  "Maximum results to return (default 20, max 100)"
// @Param        offset    query  int     false  "Offset for pagination (default 0)"
// @Success      200  {object}  map[string]interface{}  "skills: [], meta: {limit, offset, total}"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/skills [get]
// SearchHandler handles catalog listing requests
// Implements: GET /api/v1/skills?q=<query>&category=<category>&tag=<tag>&sort=<sort>&limit=<limit>&offset=<offset>
func SearchHandler(db *sql.DB) gin.HandlerFunc {
	skillRepo := repositories.NewSkillRepository(db)

	return func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if err != nil {
			limit = catalog.DefaultLimit
		}
		offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if err != nil {
			offset = 0
		}

		q := catalog.Query{
			Search:   c.Query("q"),
			Category: c.Query("category"),
			Tag:      c.Query("tag"),
			Sort:     c.Query("sort"),
			Limit:    limit,
			Offset:   offset,
		}
		q.Normalize()

		telemetry.CatalogSearchesTotal.WithLabelValues(q.Sort).Inc()

		skills, total, err := skillRepo.Search(c.Request.Context(), q)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to search skills",
			})
			return
		}

		results := make([]models.SkillView, len(skills))
		for i, s := range skills {
			results[i] = s.PublicView()
		}

		c.JSON(http.StatusOK, gin.H{
			"skills": results,
			"meta": gin.H{
				"limit":  q.Limit,
				"offset": q.Offset,
				"total":  total,
			},
		})
	}
}
