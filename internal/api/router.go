package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mybankaccount-ledger/internal/api/handler"
	"github.com/mybankaccount-ledger/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	accountHandler *handler.AccountHandler,
	movementHandler *handler.MovementHandler,
	paymentHandler *handler.PaymentHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Account operations
		accounts := v1.Group("/accounts")
		{
			accounts.POST("", accountHandler.Create)
			accounts.GET("/:number", accountHandler.GetByNumber)
			accounts.GET("/:number/summary", accountHandler.Summary)
			accounts.GET("/:number/movements", accountHandler.Movements)
			accounts.POST("/:number/deactivate", accountHandler.Deactivate)
			accounts.POST("/:number/activate", accountHandler.Activate)
		}

		// Movement operations
		movements := v1.Group("/movements")
		{
			movements.POST("/deposit", movementHandler.Deposit)
			movements.POST("/withdraw", movementHandler.Withdraw)
			movements.POST("/transfer", movementHandler.Transfer)
			movements.POST("/:reference/cancel", movementHandler.Cancel)
			movements.GET("/:reference", movementHandler.GetByReference)
		}

		// Bill payment operations
		paymentRoutes := v1.Group("/payments")
		{
			paymentRoutes.POST("", paymentHandler.Create)
			paymentRoutes.GET("", paymentHandler.List)
			paymentRoutes.GET("/summary", paymentHandler.Summary)
			paymentRoutes.POST("/:id/process", paymentHandler.Process)
			paymentRoutes.POST("/:id/cancel", paymentHandler.Cancel)
			paymentRoutes.GET("/:id", paymentHandler.GetByID)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
