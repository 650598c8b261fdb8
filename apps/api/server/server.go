// Package server wires the valuation engine's dependencies and HTTP routes.
package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dealdesk/dealdesk-api/apps/api/handlers"
	"github.com/dealdesk/dealdesk-api/internal/client/jurisdiction"
	"github.com/dealdesk/dealdesk-api/libs/go/client/queue"
	"github.com/dealdesk/dealdesk-api/libs/go/constants"
	"github.com/dealdesk/dealdesk-api/libs/go/db"
	"github.com/dealdesk/dealdesk-api/libs/go/interfaces"
	"github.com/dealdesk/dealdesk-api/libs/go/logger"
	"github.com/dealdesk/dealdesk-api/libs/go/services"
	"github.com/dealdesk/dealdesk-api/libs/go/testutil"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	valuationHandler *handlers.ValuationHandler
	store            *db.Store
)

// InitializeHandlers loads configuration, connects the stores, and builds the
// service graph.
func InitializeHandlers() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	stage := os.Getenv("STAGE")
	if stage == "" {
		stage = constants.StageLocal
		log.Printf("Warning: STAGE environment variable not set, defaulting to '%s'", stage)
	}
	if !constants.IsValidStage(stage) {
		log.Fatalf("Invalid STAGE environment variable: '%s'. Must be one of: %s, %s, %s",
			stage, constants.StageProd, constants.StageDev, constants.StageLocal)
	}

	logger.InitLogger(stage)
	logger.Info("Initializing valuation engine", zap.String("stage", stage))

	ctx := context.Background()

	// Rule, deal, and audit stores. Local runs without DATABASE_URL use the
	// seeded catalog and in-memory stores.
	var ruleStore interfaces.StateRuleStore
	var dealStore interfaces.DealStore
	var auditStore interfaces.AuditStore

	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		var err error
		store, err = db.Connect(ctx, databaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		ruleStore = store
		dealStore = store
		auditStore = store
		logger.Info("Using Postgres-backed stores")
	} else {
		if stage != constants.StageLocal {
			logger.Fatal("DATABASE_URL is required for deployed stages")
		}
		ruleStore = services.NewCatalogRuleStore()
		dealStore = testutil.NewInMemoryDealStore()
		auditStore = testutil.NewInMemoryAuditStore()
		logger.Warn("DATABASE_URL not set, using seeded catalog and in-memory stores")
	}

	// ZIP rate provider, optionally behind a Redis read-through cache.
	var lookup interfaces.JurisdictionLookup
	if providerURL := os.Getenv("JURISDICTION_PROVIDER_URL"); providerURL != "" {
		lookup = jurisdiction.NewClient(providerURL)
		if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
			redisClient := redis.NewClient(&redis.Options{
				Addr:     redisAddr,
				Password: os.Getenv("REDIS_PASSWORD"),
			})
			lookup = jurisdiction.NewCachedLookup(lookup, redisClient, 0)
			logger.Info("Jurisdiction lookups cached in Redis", zap.String("addr", redisAddr))
		}
	} else {
		logger.Warn("JURISDICTION_PROVIDER_URL not set, local rates unavailable; state-only fallback applies")
	}

	// Audit fan-out is optional everywhere; the audit store remains the
	// system of record.
	var publisher interfaces.AuditPublisher
	if queueURL := os.Getenv("AUDIT_QUEUE_URL"); queueURL != "" {
		p, err := queue.NewAuditPublisher(ctx, queueURL)
		if err != nil {
			logger.Fatal("Failed to initialize audit publisher", zap.Error(err))
		}
		publisher = p
		logger.Info("Audit records published to SQS", zap.String("queue_url", queueURL))
	}

	jurisdictionService := services.NewJurisdictionService(lookup, ruleStore)
	taxService := services.NewTaxService()
	valuationService := services.NewValuationService(
		jurisdictionService,
		taxService,
		services.NewFinanceService(),
		services.NewLeaseService(),
		dealStore,
		auditStore,
		publisher,
	)

	valuationHandler = handlers.NewValuationHandler(jurisdictionService, taxService, valuationService, logger.Log)
}

// InitializeRoutes mounts middleware and the API routes.
func InitializeRoutes(router *gin.Engine) {
	router.Use(configureCORS())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	valuationHandler.RegisterRoutes(v1)
}

// Shutdown releases held resources.
func Shutdown() {
	if store != nil {
		store.Close()
	}
	if logger.Log != nil {
		_ = logger.Sync()
	}
}

func configureCORS() gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()

	if originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS"); originsEnv != "" {
		corsConfig.AllowOrigins = strings.Split(originsEnv, ",")
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}

	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Correlation-ID"}
	corsConfig.MaxAge = 12 * time.Hour

	return cors.New(corsConfig)
}
