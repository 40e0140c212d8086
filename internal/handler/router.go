package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/askbook/internal/middleware"
)

type RouterDeps struct {
	Questions *QuestionHandler
	// RequestsPerMinute limits POST /ask per client. Zero disables it.
	RequestsPerMinute int
	Burst             int
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/ask", middleware.RateLimit(deps.RequestsPerMinute, deps.Burst), deps.Questions.Ask)
	api.GET("/questions/:id", deps.Questions.Get)
}
