package app

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/propertyscope/propertyscope-api/app/logging"
	"github.com/propertyscope/propertyscope-api/auth"
)

// NewRouter builds the shared HTTP router for both local and Lambda execution.
func NewRouter(s *Server, verifier *auth.Verifier) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		logging.GinLogger(s.logger, "/health", "/ready", "/metrics"),
		s.metrics.Middleware(),
		cors.New(cors.Config{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
			MaxAge:       12 * time.Hour,
		}),
	)

	s.registerRoutes(router, auth.Middleware(verifier, auth.MiddlewareConfig{
		Logger:          s.logger,
		OnAuthenticated: s.syncUser,
	}))
	return router
}

func (s *Server) registerRoutes(router *gin.Engine, authn gin.HandlerFunc) {
	router.GET("/health", s.Health)
	router.GET("/ready", s.Ready)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	router.POST("/billing/webhook", s.StripeWebhook)

	protected := router.Group("/")
	protected.Use(authn)
	protected.GET("/me", s.Me)
	protected.GET("/analyses", s.ListAnalyses)
	protected.GET("/reports", s.ListReports)
	protected.POST("/reports", s.CreateReport)
	protected.POST("/billing/checkout", s.CreateCheckoutSession)
	protected.POST("/billing/portal", s.CreatePortalSession)
	protected.GET("/billing/subscription", s.GetSubscription)

	generate := protected.Group("/")
	generate.Use(s.requireSubscription())
	generate.POST("/valuation", s.CreateValuation)
	generate.POST("/market", s.CreateMarketAnalysis)
	generate.POST("/investment", s.CreateInvestmentAnalysis)
	generate.POST("/comparables", s.CreateComparables)
	generate.POST("/neighborhood", s.CreateNeighborhoodInsights)
}
