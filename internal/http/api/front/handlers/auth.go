package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/StudyGateway/internal/gateway"
)

// AuthHandler serves signup and login.
type AuthHandler struct {
	pipeline *gateway.Pipeline
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(pipeline *gateway.Pipeline) *AuthHandler {
	return &AuthHandler{pipeline: pipeline}
}

// credentialsRequest is the signup and login body.
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup registers a user and returns a session token.
func (h *AuthHandler) Signup(c *gin.Context) {
	var body credentialsRequest
	// A malformed body is treated as missing credentials after the rate gates run.
	_ = c.ShouldBindJSON(&body)

	res, err := h.pipeline.Signup(c.Request.Context(), c.ClientIP(), body.Username, body.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	setRateLimitHeaders(c, res.RateLimit)
	c.JSON(http.StatusOK, gin.H{"token": res.Token})
}

// Login verifies credentials and returns a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var body credentialsRequest
	_ = c.ShouldBindJSON(&body)

	res, err := h.pipeline.Login(c.Request.Context(), c.ClientIP(), body.Username, body.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	setRateLimitHeaders(c, res.RateLimit)
	c.JSON(http.StatusOK, gin.H{"token": res.Token})
}
