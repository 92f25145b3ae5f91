package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/StudyGateway/internal/gateway"
	"github.com/router-for-me/StudyGateway/internal/http/middleware"
)

// GenerateHandler serves generation and usage endpoints.
type GenerateHandler struct {
	pipeline *gateway.Pipeline
}

// NewGenerateHandler constructs a GenerateHandler.
func NewGenerateHandler(pipeline *gateway.Pipeline) *GenerateHandler {
	return &GenerateHandler{pipeline: pipeline}
}

// generateRequest is the generation body.
type generateRequest struct {
	Text string `json:"text"`
}

// Generate answers the question in the request body.
func (h *GenerateHandler) Generate(c *gin.Context) {
	var body generateRequest
	// Text is validated by the pipeline after the token check.
	_ = c.ShouldBindJSON(&body)

	res, err := h.pipeline.Generate(c.Request.Context(), gateway.GenerateRequest{
		ClientIP: c.ClientIP(),
		Token:    bearerToken(c),
		Text:     body.Text,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	middleware.Logger(c).WithField("user_id", res.Identity.UserID).Debug("generation served")
	setRateLimitHeaders(c, res.RateLimit)
	c.JSON(http.StatusOK, gin.H{"result": res.Text})
}

// Usage reports today's usage for the caller.
func (h *GenerateHandler) Usage(c *gin.Context) {
	res, err := h.pipeline.Usage(c.Request.Context(), c.ClientIP(), bearerToken(c))
	if err != nil {
		writeError(c, err)
		return
	}
	setRateLimitHeaders(c, res.RateLimit)
	c.JSON(http.StatusOK, res.Usage)
}
