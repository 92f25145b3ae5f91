// Package front registers the public API routes.
package front

import (
	"github.com/gin-gonic/gin"
	"github.com/router-for-me/StudyGateway/internal/gateway"
	"github.com/router-for-me/StudyGateway/internal/http/api/front/handlers"
	"gorm.io/gorm"
)

// GenerateAliases are the paths that serve generation besides /api/generate.
var GenerateAliases = []string{"/api/gemini", "/api/ai"}

// RegisterFrontRoutes registers health, auth, generation and usage routes.
func RegisterFrontRoutes(r *gin.Engine, db *gorm.DB, pipeline *gateway.Pipeline) {
	if r == nil || db == nil || pipeline == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/", healthHandler.Root)
	r.GET("/healthz", healthHandler.Healthz)

	api := r.Group("/api")

	authHandler := handlers.NewAuthHandler(pipeline)
	api.POST("/signup", authHandler.Signup)
	api.POST("/login", authHandler.Login)

	generateHandler := handlers.NewGenerateHandler(pipeline)
	api.POST("/generate", generateHandler.Generate)
	for _, alias := range GenerateAliases {
		r.POST(alias, generateHandler.Generate)
	}
	api.GET("/usage", generateHandler.Usage)
}
