package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ignatzorin/deals-backend/internal/config"
	"github.com/ignatzorin/deals-backend/internal/domain/repository"
	"github.com/ignatzorin/deals-backend/internal/http/middleware"
	"github.com/ignatzorin/deals-backend/internal/interface/http/handler"
)

// Handlers содержит всё, что нужно роутеру для сборки API.
type Handlers struct {
	Proposals    *handler.ProposalHandler
	Negotiations *handler.NegotiationHandler
	Deals        *handler.DealHandler
	Health       *handler.HealthHandler
	WS           *handler.WSHandler
	Tokens       middleware.TokenParser
	Authorizer   repository.Authorizer
}

func SetupRouter(cfg *config.Config, h Handlers) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/ws", h.WS.Handle)

	protected := api.Group("")
	protected.Use(
		middleware.AuthMiddleware(h.Tokens),
		middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod),
		middleware.RequestTimeout(cfg.RequestTimeout),
	)

	proposals := protected.Group("/proposals")
	{
		proposals.GET("", h.Proposals.ListVisible)
		proposals.GET("/mine", h.Proposals.ListMine)
		proposals.POST("", h.Proposals.Create)
		proposals.POST("/import", h.Proposals.Import)
		proposals.GET("/:id", middleware.UUIDValidator("id"), h.Proposals.Get)
		proposals.PUT("/:id", middleware.UUIDValidator("id"), h.Proposals.Update)
		proposals.POST("/:id/pause", middleware.UUIDValidator("id"), h.Proposals.Pause)
		proposals.POST("/:id/resume", middleware.UUIDValidator("id"), h.Proposals.Resume)
		proposals.DELETE("/:id", middleware.UUIDValidator("id"),
			middleware.RequireOwnership(h.Authorizer, repository.EntityProposal, "id"), h.Proposals.Delete)
		proposals.GET("/:id/negotiations", middleware.UUIDValidator("id"), h.Negotiations.ListForProposal)
		proposals.PUT("/:id/negotiations/:buyerId", middleware.UUIDValidator("id", "buyerId"), h.Negotiations.Submit)
	}

	negotiations := protected.Group("/negotiations")
	{
		negotiations.GET("/mine", h.Negotiations.ListMine)
		negotiations.GET("/:id", middleware.UUIDValidator("id"), h.Negotiations.Get)
		negotiations.PUT("/:id/status", middleware.UUIDValidator("id"), h.Negotiations.Withdraw)
		negotiations.POST("/:id/settle",
			middleware.UUIDValidator("id"),
			middleware.RequireOwnership(h.Authorizer, repository.EntityNegotiation, "id"),
			h.Negotiations.Settle,
		)
	}

	deals := protected.Group("/deals")
	{
		deals.GET("", h.Deals.List)
		deals.GET("/:id", middleware.UUIDValidator("id"), h.Deals.Get)
		deals.PUT("/:id/status", middleware.UUIDValidator("id"),
			middleware.RequireOwnership(h.Authorizer, repository.EntityDeal, "id"), h.Deals.UpdateStatus)
	}

	return r
}
