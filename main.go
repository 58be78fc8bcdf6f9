package main

import (
	stdlog "log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"github.com/username/assetfolio/backend/src/batch"
	"github.com/username/assetfolio/backend/src/config"
	"github.com/username/assetfolio/backend/src/database"
	"github.com/username/assetfolio/backend/src/deposit"
	"github.com/username/assetfolio/backend/src/handlers"
	"github.com/username/assetfolio/backend/src/logger"
	"github.com/username/assetfolio/backend/src/services"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("Assetfolio backend server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	viewCache := cache.New(config.Cfg.ViewCacheTTL, config.Cfg.ViewCacheCleanupInterval)

	investmentService := services.NewInvestmentService(database.DB, viewCache, config.Cfg.ViewCacheTTL)
	depositService := deposit.NewService(database.DB, config.Cfg.DepositClaimSecret, config.Cfg.DepositClaimTTL)

	orchestrator := batch.NewOrchestrator(database.DB, batch.CSVPaths{
		AssetGroup:    config.Cfg.AssetGroupCSVPath,
		AssetPosition: config.Cfg.AssetPositionCSVPath,
		Principal:     config.Cfg.PrincipalCSVPath,
	}, investmentService.InvalidateViews)

	scheduler := batch.NewScheduler(config.Cfg.BatchHour, orchestrator.Run)
	scheduler.Start()
	defer scheduler.Stop()

	investmentHandler := handlers.NewInvestmentHandler(investmentService)
	depositHandler := handlers.NewDepositHandler(depositService)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(rateLimitMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/users/{userID}/investment", investmentHandler.HandleGetInvestmentView)
		r.Get("/users/{userID}/holdings", investmentHandler.HandleGetUserHoldings)
		r.Get("/investments/{investmentID}", investmentHandler.HandleGetInvestmentDetail)

		r.Post("/deposits", depositHandler.HandleIssueDeposit)
		r.Put("/deposits", depositHandler.HandleSettleDeposit)
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
