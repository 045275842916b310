package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	appblockrule "github.com/LeadFlux/AbuseGate/pkg/app/blockrule"
	"github.com/LeadFlux/AbuseGate/pkg/behavior"
	"github.com/LeadFlux/AbuseGate/pkg/bypass"
	"github.com/LeadFlux/AbuseGate/pkg/cache"
	"github.com/LeadFlux/AbuseGate/pkg/captcha"
	"github.com/LeadFlux/AbuseGate/pkg/config"
	"github.com/LeadFlux/AbuseGate/pkg/geo"
	handlers "github.com/LeadFlux/AbuseGate/pkg/handlers/http"
	"github.com/LeadFlux/AbuseGate/pkg/infra/captchaprovider"
	"github.com/LeadFlux/AbuseGate/pkg/infra/database"
	"github.com/LeadFlux/AbuseGate/pkg/infra/geoprovider"
	infraLogger "github.com/LeadFlux/AbuseGate/pkg/infra/logger"
	"github.com/LeadFlux/AbuseGate/pkg/infra/repository"
	"github.com/LeadFlux/AbuseGate/pkg/middleware"
	"github.com/LeadFlux/AbuseGate/pkg/ratelimit"
	"github.com/LeadFlux/AbuseGate/pkg/server"
	"github.com/joho/godotenv"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	logger := infraLogger.NewLogger()

	if err := config.Load("./config"); err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.GetConfig()

	db, err := database.NewDB(logger, cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	cacheInstance := cache.NewCache(cfg.Redis)
	defer cacheInstance.Close()

	// repositories
	geoRuleRepository := repository.NewGeoRuleRepository(db.DB)
	blockRuleRepository := repository.NewBlockRuleRepository(db.DB)
	bypassAttemptRepository := repository.NewBypassAttemptRepository(db.DB)

	// external providers
	geoProvider := geoprovider.NewHTTPProvider(logger, cfg.Geo)
	captchaVerifier := captchaprovider.NewHTTPVerifier(logger, cfg.Captcha)

	// engines
	limiter := ratelimit.NewLimiter(logger, cacheInstance, cfg.RateLimit, nil)
	tiers := ratelimit.DefaultTiers()
	suspiciousRegistry := ratelimit.NewSuspiciousRegistry(logger, cacheInstance)
	geoAnalyzer := geo.NewAnalyzer(logger, cacheInstance, geoProvider, geoRuleRepository)
	behaviorAnalyzer := behavior.NewAnalyzer(logger, cacheInstance, cfg.Behavior, nil)
	captchaManager := captcha.NewManager(logger, cacheInstance, suspiciousRegistry, captchaVerifier, cfg.Captcha, nil)
	bypassDetector := bypass.NewDetector(logger, cacheInstance, bypassAttemptRepository, blockRuleRepository, cfg.Bypass)

	middlewareTransport := middleware.Transport{
		GuardMiddleware: middleware.NewGuardMiddleware(
			logger, limiter, tiers, geoAnalyzer, behaviorAnalyzer,
			captchaManager, bypassDetector, blockRuleRepository,
			cfg.Server.JWTSecret,
		),
	}

	handlerTransport := handlers.HandlerTransport{
		// Geo rules
		CreateGeoRuleHandler: handlers.NewCreateGeoRuleHandler(logger, geoRuleRepository, geoAnalyzer),
		ListGeoRulesHandler:  handlers.NewListGeoRulesHandler(logger, geoRuleRepository),
		DeleteGeoRuleHandler: handlers.NewDeleteGeoRuleHandler(logger, geoRuleRepository, geoAnalyzer),
		// Blocking rules
		CreateBlockRuleHandler: handlers.NewCreateBlockRuleHandler(logger, blockRuleRepository),
		ListBlockRulesHandler:  handlers.NewListBlockRulesHandler(logger, blockRuleRepository),
		// Bypass reporting
		ListBypassAttemptsHandler: handlers.NewListBypassAttemptsHandler(logger, bypassDetector),
		BypassStatsHandler:        handlers.NewBypassStatsHandler(logger, bypassDetector),
		// Behavior
		BehaviorScoreHandler: handlers.NewBehaviorScoreHandler(logger, behaviorAnalyzer),
		// Captcha
		CreateChallengeHandler: handlers.NewCreateChallengeHandler(logger, captchaManager),
		VerifyChallengeHandler: handlers.NewVerifyChallengeHandler(logger, captchaManager),
		// Suspicious IPs
		FlagSuspiciousIPHandler:  handlers.NewFlagSuspiciousIPHandler(logger, suspiciousRegistry),
		ListSuspiciousIPsHandler: handlers.NewListSuspiciousIPsHandler(logger, suspiciousRegistry),
	}

	sweeper := appblockrule.NewSweeper(logger, blockRuleRepository, 0)
	go sweeper.Start(ctx)

	guardServer := server.NewGuardServer(server.GuardServerDI{
		Config:              cfg,
		Logger:              logger,
		MiddlewareTransport: middlewareTransport,
		HandlerTransport:    handlerTransport,
	})
	adminServer := server.NewAdminServer(server.AdminServerDI{
		Config:           cfg,
		Logger:           logger,
		HandlerTransport: handlerTransport,
	})

	go func() {
		if err := adminServer.Run(); err != nil {
			logger.Fatalf("Admin server failed: %v", err)
		}
	}()
	go func() {
		if err := guardServer.Run(); err != nil {
			logger.Fatalf("Guard server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	fmt.Println("shutting down servers...")
	cancel()
	if err := guardServer.Shutdown(); err != nil {
		fmt.Println("error shutting down guard server:", err)
		os.Exit(1)
	}
	if err := adminServer.Shutdown(); err != nil {
		fmt.Println("error shutting down admin server:", err)
		os.Exit(1)
	}
	fmt.Println("servers gracefully stopped")
}
