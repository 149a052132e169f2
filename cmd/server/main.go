// Package main runs the dog registry HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Mike3rd/world-canine-union-sub001/config"
	"github.com/Mike3rd/world-canine-union-sub001/internal/auth"
	"github.com/Mike3rd/world-canine-union-sub001/internal/certificate"
	"github.com/Mike3rd/world-canine-union-sub001/internal/fulfillment"
	"github.com/Mike3rd/world-canine-union-sub001/internal/middleware"
	"github.com/Mike3rd/world-canine-union-sub001/internal/models"
	"github.com/Mike3rd/world-canine-union-sub001/internal/notify"
	"github.com/Mike3rd/world-canine-union-sub001/internal/payments"
	"github.com/Mike3rd/world-canine-union-sub001/internal/registry"
	"github.com/Mike3rd/world-canine-union-sub001/internal/support"
	"github.com/Mike3rd/world-canine-union-sub001/internal/worker"
	"github.com/Mike3rd/world-canine-union-sub001/pkg/database"
	"github.com/Mike3rd/world-canine-union-sub001/pkg/queue"
	"github.com/Mike3rd/world-canine-union-sub001/pkg/redis"
	"github.com/Mike3rd/world-canine-union-sub001/pkg/response"
	"github.com/Mike3rd/world-canine-union-sub001/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Cfg := storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		CertificatesBucket:   cfg.AWS.CertificatesBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}
	s3Client, err := storage.NewS3(ctx, s3Cfg, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	// Auth (admin area)
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)
	if err := auth.EnsureSeedAdmin(ctx, authRepo, cfg.Admin.Email, cfg.Admin.Password, logger); err != nil {
		logger.Fatal("seed admin", zap.Error(err))
	}

	// Outbound email
	sender := notify.NewSender(cfg.Email.APIKey, cfg.Email.FromName, cfg.Email.FromAddress, logger)
	emailLogRepo := notify.NewLogRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Registrations
	registryRepo := registry.NewRepository(pool)
	registryHandler := registry.NewHandler(registryRepo, s3Client, jobQueue, cfg.App.BaseURL, logger)

	// Payments
	checkout := payments.NewCheckout(cfg.Stripe, logger)
	paymentsHandler := payments.NewHandler(registryRepo, checkout, logger)

	// Fulfillment (checkout.session.completed -> certificate, status, welcome email)
	renderer := certificate.NewRenderer()
	workflow := fulfillment.NewWorkflow(registryRepo, renderer, s3Client, sender, emailLogRepo, cfg.App.BaseURL, logger)
	stripeWebhook := fulfillment.NewWebhookHandler(workflow, cfg.Stripe.WebhookSecret, logger)

	// Support inbox
	supportRepo := support.NewRepository(pool)
	supportWorkflow := support.NewWorkflow(supportRepo, logger)
	inboundWebhook := support.NewWebhookHandler(supportWorkflow, logger)
	supportHandler := support.NewHandler(supportRepo, sender, emailLogRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Public: registration lifecycle
	router.POST("/registrations", registryHandler.Create)
	router.GET("/registrations/:number", registryHandler.Get)
	router.GET("/registrations/:number/certificate", registryHandler.Certificate)
	router.POST("/registrations/:number/checkout", paymentsHandler.CreateCheckout)
	router.POST("/registrations/:number/update-request", registryHandler.RequestUpdate)
	router.POST("/profile-updates", registryHandler.SubmitUpdate)

	// Auth (public)
	router.POST("/auth/login", authHandler.Login)

	// Admin area (JWT + admin role)
	admin := router.Group("/admin")
	admin.Use(middleware.JWT(jwtService), middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/inbox", supportHandler.List)
		admin.GET("/inbox/:id", supportHandler.Get)
		admin.POST("/inbox/:id/reply", supportHandler.Reply)
		admin.GET("/emails", supportHandler.Emails)
	}

	// Webhooks (no JWT; signatures verified in handlers)
	router.POST("/webhooks/stripe", stripeWebhook.HandleStripe)
	router.POST("/webhooks/inbound-email", inboundWebhook.HandleInboundEmail)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (queued email dispatch)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	emailProcessor := worker.NewEmailProcessor(jobQueue, sender, emailLogRepo, logger)
	go emailProcessor.Run(workerCtx)

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
