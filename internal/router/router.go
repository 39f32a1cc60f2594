// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cardswap/cardswap-backend/internal/config"
	"github.com/cardswap/cardswap-backend/internal/handlers"
	"github.com/cardswap/cardswap-backend/internal/middleware"
	"github.com/cardswap/cardswap-backend/internal/services"
	"github.com/cardswap/cardswap-backend/internal/utils"
)

// Initialize wires services, handlers, and routes. The TradeService is
// returned as well so the expiry sweep shares the same instance (and its
// slug cache) with the HTTP surface.
func Initialize(db *gorm.DB, cfg *config.Config) (*gin.Engine, *services.TradeService) {
	// Initialize services
	authService := services.NewAuthService(db, cfg)
	tradeService := services.NewTradeService(db)
	reviewService := services.NewReviewService(db, tradeService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	tradeHandler := handlers.NewTradeHandler(tradeService)
	reviewHandler := handlers.NewReviewHandler(reviewService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Trade negotiation routes
		trades := v1.Group("/trades")
		trades.Use(middleware.AuthRequired())
		{
			trades.POST("", middleware.TradeRateLimit(), tradeHandler.CreateTrade)
			trades.GET("/:roomSlug", tradeHandler.GetTrade)
			trades.POST("/:roomSlug/offer", middleware.TradeRateLimit(), tradeHandler.UpdateOffer)
			trades.POST("/:roomSlug/propose", middleware.TradeRateLimit(), tradeHandler.ProposeTrade)
			trades.POST("/:roomSlug/agree", middleware.TradeRateLimit(), tradeHandler.AgreeTrade)
			trades.POST("/:roomSlug/complete", middleware.TradeRateLimit(), tradeHandler.CompleteTrade)
			trades.POST("/:roomSlug/cancel", middleware.TradeRateLimit(), tradeHandler.CancelTrade)
			trades.POST("/:roomSlug/uncancel", middleware.TradeRateLimit(), tradeHandler.UncancelTrade)
			trades.POST("/:roomSlug/dispute", middleware.TradeRateLimit(), tradeHandler.DisputeTrade)
			trades.POST("/:roomSlug/review", reviewHandler.CreateReview)
			trades.GET("/:roomSlug/review", reviewHandler.GetReviews)
		}

		// Current user routes
		me := v1.Group("/me")
		me.Use(middleware.AuthRequired())
		{
			me.GET("/trades", tradeHandler.GetMyTrades)
		}
	}

	return r, tradeService
}
