package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/dispute-backend/internal/config"
	"github.com/ignatzorin/dispute-backend/internal/http/handlers"
	"github.com/ignatzorin/dispute-backend/internal/http/middleware"
	"github.com/ignatzorin/dispute-backend/internal/models"
)

// Handlers собирает все хэндлеры HTTP API.
type Handlers struct {
	Health       *handlers.HealthHandler
	Dispute      *handlers.DisputeHandler
	Negotiation  *handlers.NegotiationHandler
	Evidence     *handlers.EvidenceHandler
	Arbitration  *handlers.ArbitrationHandler
	Admin        *handlers.AdminHandler
	Notification *handlers.NotificationHandler
	WS           *handlers.WSHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokens middleware.AccessTokenParser) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)

	auth := middleware.AuthMiddleware(tokens)
	write := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)
	admin := middleware.RequireRole(models.AccountRoleAdmin)
	arbiter := middleware.RequireRole(models.AccountRoleArbitrator, models.AccountRoleAdmin)
	id := middleware.IDValidator("id")

	r.GET("/files/evidence/:id/:name", auth, id, h.Evidence.File)

	api := r.Group("/api")
	api.GET("/ws", h.WS.Handle)

	protected := api.Group("/")
	protected.Use(auth)
	{
		disputes := protected.Group("/disputes")
		disputes.POST("", write, h.Dispute.SubmitDispute)
		disputes.GET("/my", h.Dispute.ListMyDisputes)
		disputes.GET("/:id", id, h.Dispute.GetDispute)
		disputes.GET("/:id/audit", id, h.Dispute.AuditTrail)
		disputes.POST("/:id/escalate", id, write, h.Dispute.Escalate)
		disputes.POST("/:id/close", id, write, h.Dispute.Close)

		disputes.GET("/:id/messages", id, h.Negotiation.History)
		disputes.POST("/:id/messages", id, write, h.Negotiation.SendMessage)
		disputes.POST("/:id/proposals", id, write, h.Negotiation.Propose)
		disputes.GET("/:id/proposals/pending", id, h.Negotiation.PendingProposal)
		disputes.GET("/:id/proposals/accepted", id, h.Negotiation.AcceptedProposal)

		disputes.POST("/:id/evidence", id, write, h.Evidence.Upload)
		disputes.GET("/:id/evidence", id, h.Evidence.List)
		disputes.GET("/:id/evidence/summary", id, h.Evidence.Summary)

		disputes.POST("/:id/arbitrator", id, admin, write, h.Arbitration.Assign)
		disputes.POST("/:id/arbitration", id, arbiter, write, h.Arbitration.Submit)
		disputes.GET("/:id/arbitration", id, h.Arbitration.Detail)

		protected.POST("/proposals/:id/respond", id, write, h.Negotiation.Respond)

		protected.POST("/evidence/:id/evaluate", id, arbiter, write, h.Evidence.Evaluate)
		protected.DELETE("/evidence/:id", id, write, h.Evidence.Delete)

		protected.GET("/arbitrator/cases", arbiter, h.Arbitration.Cases)
		protected.GET("/arbitrations/pending-executions", admin, h.Arbitration.PendingExecutions)
		protected.POST("/arbitrations/:id/executed", id, admin, write, h.Arbitration.MarkExecuted)

		protected.GET("/admin/statistics", admin, h.Admin.Statistics)
		protected.POST("/admin/sweep", admin, h.Admin.Sweep)

		protected.GET("/notifications", h.Notification.ListNotifications)
		protected.GET("/notifications/unread/count", h.Notification.CountUnread)
		protected.POST("/notifications/:id/read", h.Notification.MarkAsRead)
	}

	return r
}
