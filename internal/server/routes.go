package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the API surface. Every route is a thin pass-through to
// one orchestrator entry point.
func NewRouter(h *Handler) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsCfg.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsCfg))

	api := router.Group("/api")
	{
		api.GET("/health", h.Health)
		api.POST("/analyze", h.Analyze)
		api.POST("/create", h.Create)
		api.POST("/extend", h.Extend)
		api.POST("/clarification/response", h.ClarificationResponse)
		api.GET("/clarification/history/:projectType", h.ClarificationHistory)
		api.GET("/learning", h.Learning)
		api.GET("/templates", h.Templates)
		api.GET("/watch", h.Watch)
	}
	return router
}
