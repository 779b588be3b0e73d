package http

import (
	"blindbox/internal/config"
	"blindbox/internal/http/handlers"
	"blindbox/internal/http/middleware"
	"blindbox/internal/repository"
	"blindbox/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the engine with global middleware and every route.
func NewRouter(cfg *config.Config, store repository.Store, svc handlers.Services, hub *ws.Hub) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Metrics(), middleware.CORS(cfg.CORS))
	RegisterRoutes(r, cfg, store, svc, hub)
	return r
}

func RegisterRoutes(r *gin.Engine, cfg *config.Config, store repository.Store, svc handlers.Services, hub *ws.Hub) {
	h := handlers.NewHandler(svc, cfg)
	healthHandler := handlers.NewHealthHandler(store, cfg.App.Version)
	rl := cfg.RateLimit

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Event feed; token is passed in the query string
	r.GET("/ws", ws.HandleWS(hub, cfg.CORS.AllowOrigins))

	api := r.Group("/api/v1")
	api.Use(middleware.RedisRateLimit(rl.API, rl.APIWindow))

	api.POST("/auth", middleware.RedisRateLimit(rl.Auth, rl.AuthWindow), h.Auth)

	// Public pool state
	api.GET("/boxes/pools", h.Pools)
	api.GET("/boxes/odds", h.Odds)
	api.GET("/boxes/:id/reward", h.BoxReward)
	api.GET("/events", h.Events)

	authed := api.Group("", middleware.JWT())
	authed.GET("/me", h.Me)
	authed.GET("/me/rewards", h.MyRewards)
	authed.GET("/me/transactions", h.MyTransactions)

	authed.POST("/boxes/:id/redeem", middleware.AccountRateLimit("redeem", rl.Redeem, rl.RedeemWindow), h.Redeem)
	// Issuer only; checked by the allocator against the stored issuer
	authed.POST("/boxes/generate", h.Generate)

	admin := authed.Group("/admin", middleware.AdminOnly(cfg.IsAdmin))
	{
		admin.PUT("/ceilings/:counter", h.SetCeiling)
		admin.PUT("/issuer", h.SetIssuer)
		admin.GET("/blacklist", h.Blacklist)
		admin.POST("/blacklist/:account", h.AddBlacklist)
		admin.DELETE("/blacklist/:account", h.RemoveBlacklist)
		admin.GET("/inventory", h.Inventory)
		admin.GET("/boxes", h.Boxes)
		admin.GET("/audit", h.AuditLog)
	}
}
