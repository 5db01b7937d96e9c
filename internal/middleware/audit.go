// audit.go provides Gin middleware that records authenticated write operations
// as audit records, shipped to the configured external destinations.
package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clawhub/clawhub/internal/audit"
	"github.com/clawhub/clawhub/internal/config"
	"github.com/clawhub/clawhub/internal/safego"
)

// AuditMiddleware records write operations on authenticated routes. Read
// operations are never audited; failed writes are audited only when
// cfg.LogFailedRequests is set. Shipping happens off the request goroutine so
// a slow audit destination never delays the response.
func AuditMiddleware(shipper audit.Shipper, cfg *config.AuditConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if shipper == nil {
			return
		}
		if c.Request.Method == "OPTIONS" || c.Request.Method == "GET" {
			return
		}
		if c.Writer.Status() >= 400 && (cfg == nil || !cfg.LogFailedRequests) {
			return
		}

		entry := &audit.LogEntry{
			Timestamp:  time.Now().UTC(),
			Action:     fmt.Sprintf("%s %s", c.Request.Method, c.Request.URL.Path),
			IPAddress:  c.ClientIP(),
			StatusCode: c.Writer.Status(),
		}
		if id := RequestID(c); id != "" {
			entry.Metadata = map[string]interface{}{"request_id": id}
		}

		if userID, exists := c.Get("user_id"); exists {
			if uid, ok := userID.(string); ok {
				entry.UserID = uid
			}
		}

		path := c.Request.URL.Path
		switch {
		case strings.Contains(path, "/moderation"):
			entry.ResourceType = "submission"
			entry.ResourceID = c.Param("id")
			// Decisions are the audit trail's main consumer; name them explicitly.
			entry.Action = "moderation.decided"
		case strings.Contains(path, "/user/skills"):
			entry.ResourceType = "submission"
			entry.ResourceID = c.Param("id")
		case strings.Contains(path, "/bookmarks"):
			entry.ResourceType = "bookmark"
			entry.ResourceID = c.Param("slug")
		case strings.Contains(path, "/auth"):
			entry.ResourceType = "account"
		}

		safego.Go(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			// Ship already logs per-destination failures.
			_ = shipper.Ship(ctx, entry)
		})
	}
}
