// facets.go implements the catalog facet endpoints: category counts, top tag
// counts, and aggregate stats. All three read through the Redis facet cache
// and fall back to direct database queries when the cache is disabled.
package skills

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clawhub/clawhub/internal/cache"
)

// @Summary      List categories
// @Description  Returns every category present in the catalog with the number of skills in each, most populous first.
// @Tags         Skills
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "categories: [{category, count}]"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/skills/categories [get]
// CategoriesHandler handles category facet requests
// Implements: GET /api/v1/skills/categories
func CategoriesHandler(facets *cache.FacetCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		categories, err := facets.Categories(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load categories",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"categories": categories,
		})
	}
}

// @Summary      List top tags
// @Description  Returns the most frequently used tags with usage counts, most used first.
// @Tags         Skills
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "tags: [{tag, count}]"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/skills/tags [get]
// TagsHandler handles tag facet requests
// Implements: GET /api/v1/skills/tags
func TagsHandler(facets *cache.FacetCache, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		tags, err := facets.Tags(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load tags",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"tags": tags,
		})
	}
}

// @Summary      Catalog statistics
// @Description  Returns aggregate catalog statistics: total skills, total views, and total installs.
// @Tags         Skills
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "stats: {total_skills, total_views, total_installs}"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/skills/stats [get]
// StatsHandler handles catalog stats requests
// Implements: GET /api/v1/skills/stats
func StatsHandler(facets *cache.FacetCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := facets.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load catalog stats",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"stats": stats,
		})
	}
}
