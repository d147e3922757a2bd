package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/exam-delivery-service/internal/middleware"
	"github.com/SAP-F-2025/exam-delivery-service/internal/services"
	"github.com/SAP-F-2025/exam-delivery-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	attemptHandler *AttemptHandler
	auth           gin.HandlerFunc
	metrics        *middleware.Metrics
}

// NewHandlerManager builds every handler. auth guards the API group;
// metrics may be nil.
func NewHandlerManager(
	serviceManager services.ServiceManager,
	auth gin.HandlerFunc,
	metrics *middleware.Metrics,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		attemptHandler: NewAttemptHandler(serviceManager.Attempt(), metrics, logger),
		auth:           auth,
		metrics:        metrics,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)
	if hm.metrics != nil {
		router.GET("/metrics", hm.metrics.Handler())
	}

	v1 := router.Group("/api/v1")
	v1.Use(hm.auth)
	{
		attempts := v1.Group("/attempts")
		{
			attempts.POST("", hm.attemptHandler.StartAttempt)
			attempts.GET("", hm.attemptHandler.ListAttempts)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.GET("/:id/current-module", hm.attemptHandler.GetCurrentModule)
			attempts.POST("/:id/submit-module", hm.attemptHandler.SubmitModule)
			attempts.POST("/:id/abandon", hm.attemptHandler.AbandonAttempt)
			attempts.GET("/:id/review", hm.attemptHandler.ReviewAttempt)
			attempts.GET("/:id/review/export", hm.attemptHandler.ExportReview)
		}
	}
}

// HealthCheck reports liveness; it is also the client's connectivity probe.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "exam-delivery-service",
	})
}
