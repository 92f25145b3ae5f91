package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/StudyGateway/internal/gateway"
	"github.com/router-for-me/StudyGateway/internal/http/middleware"
	"github.com/router-for-me/StudyGateway/internal/ratelimit"
)

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// setRateLimitHeaders exposes the most specific limiter state applied to the request.
func setRateLimitHeaders(c *gin.Context, result ratelimit.Result) {
	if result.Limit <= 0 {
		return
	}
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	if !result.Reset.IsZero() {
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.Reset.Unix(), 10))
	}
}

// writeError renders a pipeline failure. Internal causes are logged, never returned.
func writeError(c *gin.Context, err error) {
	status := gateway.StatusCode(err)

	var gwErr *gateway.Error
	if !errors.As(err, &gwErr) {
		middleware.Logger(c).WithError(err).Error("unclassified request failure")
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "Internal error"})
		return
	}

	if gwErr.Err != nil {
		entry := middleware.Logger(c).WithError(gwErr.Err).WithField("kind", gwErr.Kind.String())
		if status >= http.StatusInternalServerError {
			entry.Error("request failed")
		} else {
			entry.Debug("request rejected")
		}
		_ = c.Error(gwErr.Err)
	}

	switch gwErr.Kind {
	case gateway.KindRateLimit:
		c.Header("Retry-After", strconv.Itoa(gwErr.RetryAfter(time.Now())))
		c.Header("X-RateLimit-Remaining", "0")
		if !gwErr.Reset.IsZero() {
			c.Header("X-RateLimit-Reset", strconv.FormatInt(gwErr.Reset.Unix(), 10))
		}
		c.JSON(status, gin.H{"error": gwErr.Message})
	case gateway.KindQuotaExceeded:
		c.JSON(status, gin.H{"error": gwErr.Message, "used": gwErr.Used, "limit": gwErr.Limit})
	default:
		c.JSON(status, gin.H{"error": gwErr.Message})
	}
}
