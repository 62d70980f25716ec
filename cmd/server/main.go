// ==============================================================================
// KYC INTAKE SERVICE - cmd/server/main.go
// ==============================================================================
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kycintake/internal/aml"
	"kycintake/internal/document"
	"kycintake/internal/duplicate"
	"kycintake/internal/handler"
	"kycintake/internal/kyc"
	"kycintake/internal/middleware"
	"kycintake/internal/ocr"
	"kycintake/internal/repository/postgres"
	"kycintake/internal/scorer"
	"kycintake/internal/verification"
	"kycintake/pkg/cache"
	"kycintake/pkg/config"
	"kycintake/pkg/logger"
	"kycintake/pkg/validator"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New("kyc-intake")

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required", nil)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	// The verdict cache is an optimization; the service runs without it.
	var verdictCache verification.VerdictCache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Warn("Redis unavailable, verdict cache disabled", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		defer redisCache.Close()
		verdictCache = redisCache
	}

	// Repositories
	kycRepo := postgres.NewKYCRequestRepository(db)
	docRepo := postgres.NewDocumentRepository(db)
	alertRepo := postgres.NewFraudAlertRepository(db)
	auditRepo := postgres.NewAuditLogRepository(db)

	// Collaborators and rule resources
	ocrClient := ocr.NewTesseractClient(cfg.OCR, log)
	scorerClient := scorer.NewProcessClient(cfg.Scorer, log)
	blacklist := aml.NewBlacklist(cfg.AML.BlacklistPath, log)
	rules := aml.NewRuleEngine(blacklist, log)
	detector := duplicate.NewDetector(kycRepo, log)

	// Services
	kycService := kyc.NewService(kycRepo, docRepo, detector, log)
	docService := document.NewService(docRepo, log)
	verifyService := verification.NewService(
		ocrClient, scorerClient, detector, rules,
		alertRepo, auditRepo, verdictCache,
		cfg.OCR.Language, log,
	)

	// HTTP surface
	val := validator.New()
	auth := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	router := handler.NewRouter(handler.RouterDeps{
		KYC:          handler.NewKYCHandler(kycService, val, log),
		Verification: handler.NewVerificationHandler(verifyService, docService, val, log, cfg.Upload.Dir),
		Alerts:       handler.NewAlertsHandler(alertRepo, auditRepo, log),
		Documents:    handler.NewDocumentHandler(docService, log),
		Auth:         auth,
		Logger:       log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("Starting KYC intake service", map[string]interface{}{
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info("Server stopped", nil)
}
