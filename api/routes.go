package api

import (
	"github.com/gin-gonic/gin"

	"sepet/utils"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(handler *Handler, logger *utils.Logger) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/shops", handler.ListShops)
		v1.GET("/categories", handler.ListCategories)
		v1.GET("/search", handler.SearchQuery)
		v1.POST("/search", handler.SearchJSON)
	}

	return router
}
