// Package router собирает все HTTP маршруты приложения.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/prolink-backend/internal/config"
	"github.com/ignatzorin/prolink-backend/internal/http/handlers"
	"github.com/ignatzorin/prolink-backend/internal/http/middleware"
	"github.com/ignatzorin/prolink-backend/internal/service"
)

// SetupRouter настраивает маршруты и middleware.
func SetupRouter(
	cfg *config.Config,
	requestHandler *handlers.RequestHandler,
	paymentHandler *handlers.PaymentHandler,
	disputeHandler *handlers.DisputeHandler,
	withdrawalHandler *handlers.WithdrawalHandler,
	notificationHandler *handlers.NotificationHandler,
	attachmentHandler *handlers.AttachmentHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	r.StaticFS("/files", http.Dir(cfg.FileStoragePath))

	api := r.Group("/api")

	// Вебхук шлюза: аутентификация по подписи, не по JWT.
	webhookRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit*10, cfg.RateLimitPeriod)
	api.POST("/payments/webhook", webhookRateLimit, paymentHandler.Webhook)

	api.GET("/ws", wsHandler.Handle)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/requests", requestHandler.CreateRequest)
		protected.GET("/requests", requestHandler.ListRequests)
		protected.GET("/requests/:id", middleware.UUIDValidator("id"), requestHandler.GetRequest)
		protected.PATCH("/requests/:id", middleware.UUIDValidator("id"), requestHandler.UpdateRequest)
		protected.POST("/requests/:id/accept", middleware.UUIDValidator("id"), requestHandler.AcceptRequest)
		protected.POST("/requests/:id/decline", middleware.UUIDValidator("id"), requestHandler.Decline)
		protected.POST("/requests/:id/cancel", middleware.UUIDValidator("id"), requestHandler.Cancel)
		protected.POST("/requests/:id/checkout", middleware.UUIDValidator("id"), paymentHandler.CreateCheckout)
		protected.POST("/requests/:id/submit", middleware.UUIDValidator("id"), requestHandler.SubmitWork)
		protected.POST("/requests/:id/approve", middleware.UUIDValidator("id"), requestHandler.ApproveWork)
		protected.POST("/requests/:id/revision", middleware.UUIDValidator("id"), requestHandler.RequestRevision)

		// Открытие спора ограничиваем жёстче остальных маршрутов.
		disputeRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)
		protected.POST("/requests/:id/dispute", disputeRateLimit, middleware.UUIDValidator("id"), requestHandler.OpenDispute)

		protected.GET("/disputes/:id", middleware.UUIDValidator("id"), disputeHandler.GetDispute)
		protected.GET("/admin/disputes", disputeHandler.ListDisputes)
		protected.POST("/disputes/:id/evidence", middleware.UUIDValidator("id"), disputeHandler.SubmitEvidence)
		protected.POST("/disputes/:id/resolve", middleware.UUIDValidator("id"), disputeHandler.ResolveDispute)

		protected.GET("/payments/balance", withdrawalHandler.GetBalance)
		protected.GET("/payments/transactions", withdrawalHandler.ListTransactions)

		protected.POST("/withdrawals", withdrawalHandler.CreateWithdrawal)
		protected.GET("/withdrawals", withdrawalHandler.ListWithdrawals)
		protected.GET("/admin/withdrawals", withdrawalHandler.ListPending)
		protected.POST("/admin/withdrawals/:id/approve", middleware.UUIDValidator("id"), withdrawalHandler.Approve)
		protected.POST("/admin/withdrawals/:id/reject", middleware.UUIDValidator("id"), withdrawalHandler.Reject)

		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread", notificationHandler.CountUnread)
		protected.POST("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
		protected.POST("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.DELETE("/notifications/:id", middleware.UUIDValidator("id"), notificationHandler.Delete)

		protected.POST("/attachments", attachmentHandler.Upload)
	}

	return r
}
