package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"wishdraw-backend/internal/common/cache"
	"wishdraw-backend/internal/common/config"
	"wishdraw-backend/internal/common/logger"
	"wishdraw-backend/internal/common/middleware"
	giveawayhttp "wishdraw-backend/internal/features/giveaway/delivery/http"
	giveawayredis "wishdraw-backend/internal/features/giveaway/repository/redis"
	giveawayservice "wishdraw-backend/internal/features/giveaway/service"
	sponsorcache "wishdraw-backend/internal/features/sponsor/cache"
	sponsorredis "wishdraw-backend/internal/features/sponsor/repository/redis"
	"wishdraw-backend/internal/features/sponsor/resolver"
	sponsorservice "wishdraw-backend/internal/features/sponsor/service"
	"wishdraw-backend/internal/features/winhistory"
	winhistoryredis "wishdraw-backend/internal/features/winhistory/redis"
	"wishdraw-backend/internal/notifier"
	redisplatform "wishdraw-backend/internal/platform/redis"
)

func main() {
	cfg := config.Load()

	logger.Init("wishdraw-backend", cfg.Debug)
	logger.Info().Bool("debug", cfg.Debug).Msg("Starting wishdraw backend")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := redisplatform.Open(ctx,
		fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	// Sponsor attribution pipeline.
	tokenCache := sponsorcache.NewTokenCache(
		cache.NewRedisCache(redisClient),
		cfg.Cache.TokenTTL, cfg.Cache.NegativeTTL)
	pageResolver := resolver.NewPageResolver(
		cfg.Resolver.BaseURL, cfg.Resolver.Timeout, cfg.Resolver.Concurrency)
	sponsorRepo := sponsorredis.NewRedisSponsorRepository(redisClient)
	attributor := sponsorservice.NewAttributionService(tokenCache, pageResolver, sponsorRepo)

	// Win-history filter.
	ledger := winhistoryredis.NewRedisLedger(redisClient)
	filter, err := winhistory.NewFilter(ledger,
		winhistory.Mode(cfg.WinHistory.Mode), cfg.WinHistory.CooldownDays)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid win-history configuration")
	}

	// Core giveaway services.
	giveawayRepo := giveawayredis.NewRedisGiveawayRepository(redisClient)
	giveawaySvc := giveawayservice.NewGiveawayService(
		giveawayRepo, sponsorRepo, attributor, cfg.Entry.MinTokens)
	rerollSvc := giveawayservice.NewRerollService(giveawayRepo, filter, ledger)

	results := notifier.NewLogNotifier()
	drawSvc := giveawayservice.NewDrawService(
		giveawayRepo, filter, ledger, attributor, results,
		giveawayservice.DrawConfig{
			TickInterval:       cfg.Draw.TickInterval,
			MaxConcurrentDraws: cfg.Draw.MaxConcurrentDraws,
			Strict:             cfg.Draw.Strict,
		})
	drawSvc.Start()
	defer drawSvc.Stop()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept"}
	router.Use(cors.New(corsConfig))

	v1 := router.Group("/api/v1")
	giveawayhttp.NewGiveawayHandler(giveawaySvc, rerollSvc, drawSvc, sponsorRepo).RegisterRoutes(v1)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "wishdraw-backend",
		})
	})
	router.GET("/ready", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unready", "error": "redis unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}
