package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"carbon-market/marketplace-backend/internal/auth"
	"carbon-market/marketplace-backend/internal/claims"
	"carbon-market/marketplace-backend/internal/config"
	"carbon-market/marketplace-backend/internal/marketplace"
	"carbon-market/marketplace-backend/internal/metrics"
	"carbon-market/marketplace-backend/internal/notifications"
	"carbon-market/marketplace-backend/internal/projects"
	"carbon-market/marketplace-backend/internal/scheduler"
	"carbon-market/marketplace-backend/internal/settings"
	"carbon-market/marketplace-backend/pkg/chain"
	"carbon-market/marketplace-backend/pkg/pdf"
	"carbon-market/marketplace-backend/pkg/security"
	"carbon-market/marketplace-backend/pkg/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.Logging.Level)
	defer logger.Sync()

	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(
		&auth.User{},
		&projects.Project{},
		&claims.CreditClaim{},
		&marketplace.Listing{},
		&marketplace.Purchase{},
		&settings.Preferences{},
	); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	ctx := context.Background()

	s3, err := storage.NewS3Client(ctx, cfg.Storage.Region)
	if err != nil {
		logger.Fatal("failed to initialize object storage", zap.Error(err))
	}
	ipfs := storage.NewIPFSClient(cfg.IPFS.NodeURL)

	// The chain gateway is optional: without it wallet balance reads are
	// unavailable but the marketplace keeps running.
	var gateway *chain.Gateway
	if cfg.Chain.RPCURL != "" {
		gateway, err = chain.Dial(ctx, chain.Config{
			RPCURL:        cfg.Chain.RPCURL,
			TokenContract: cfg.Chain.TokenContract,
			PrivateKey:    cfg.Chain.PrivateKey,
		}, logger)
		if err != nil {
			logger.Warn("chain gateway unavailable", zap.Error(err))
			gateway = nil
		} else {
			defer gateway.Close()
		}
	}

	authService := auth.NewService(auth.NewRepository(db), cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	authHandler := auth.NewHandler(authService, logger)

	projectService := projects.NewService(projects.NewRepository(db))
	projectHandler := projects.NewHandler(projectService, logger)

	evidence := claims.NewEvidenceStore(s3, ipfs, security.NewValidator(), cfg.Storage.Bucket, logger)
	claimService := claims.NewService(claims.NewRepository(db), evidence)
	claimHandler := claims.NewHandler(claimService, logger)

	hub := notifications.NewHub(logger)
	defer hub.Close()

	indexer := marketplace.NewESIndexer(cfg.Search.Addresses, cfg.Search.Index, logger)
	receipts := marketplace.NewReceiptStore(pdf.NewGenerator(), s3, cfg.Storage.Bucket)
	marketService := marketplace.NewService(marketplace.NewRepository(db), claimService, indexer, hub, receipts, logger)
	marketHandler := marketplace.NewHandler(marketService, logger)

	settingsHandler := settings.NewHandler(settings.NewService(settings.NewRepository(db)), logger)

	jobs, err := scheduler.New(marketService, scheduler.Config{}, logger)
	if err != nil {
		logger.Fatal("failed to build scheduler", zap.Error(err))
	}
	jobs.Start()
	defer jobs.Stop()

	router := gin.New()
	router.Use(gin.Recovery(), corsMiddleware(), metrics.Middleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "time": time.Now().UTC()})
	})
	router.GET("/metrics", metrics.Handler())

	api := router.Group("/api")
	authHandler.RegisterRoutes(api)

	authed := api.Group("", auth.Middleware(authService))
	projectHandler.RegisterRoutes(authed)
	claimHandler.RegisterRoutes(authed)
	marketHandler.RegisterRoutes(authed)
	settingsHandler.RegisterRoutes(authed)

	if gateway != nil {
		authed.GET("/chain/balance/:address", balanceHandler(gateway, logger))
	}

	// WebSocket clients cannot set Authorization headers, so the event feed
	// is mounted outside the authed group.
	hub.RegisterRoutes(router.Group("/ws"))

	server := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("marketplace API listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(level string) *zap.Logger {
	var logger *zap.Logger
	var err error
	if level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

func balanceHandler(gateway *chain.Gateway, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		balance, err := gateway.TokenBalance(c.Request.Context(), c.Param("address"))
		if err != nil {
			logger.Warn("balance read failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "balance unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "balance": balance})
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
