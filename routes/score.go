package routes

import (
	"github.com/gin-gonic/gin"

	"essaygrader/controllers"
)

// SetupScoreRoutes registers the health check and the three scoring endpoints.
func SetupScoreRoutes(router gin.IRouter, sc *controllers.ScoreController) {
	router.GET("/health", sc.Health)
	router.POST("/score", sc.ScoreUpload)
	router.POST("/score-text", sc.ScoreText)
	router.POST("/score-text-flex", sc.ScoreTextFlex)
}
