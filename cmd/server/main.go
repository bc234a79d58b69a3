// Package main runs the event registration HTTP server with the live entry feed and graceful shutdown.
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

	"github.com/eventide/backend/config"
	"github.com/eventide/backend/internal/auth"
	"github.com/eventide/backend/internal/clock"
	"github.com/eventide/backend/internal/entry"
	"github.com/eventide/backend/internal/events"
	"github.com/eventide/backend/internal/middleware"
	"github.com/eventide/backend/internal/notify"
	"github.com/eventide/backend/internal/payments"
	"github.com/eventide/backend/internal/realtime"
	"github.com/eventide/backend/internal/registrations"
	"github.com/eventide/backend/internal/stores"
	"github.com/eventide/backend/internal/tickets"
	"github.com/eventide/backend/internal/worker"
	"github.com/eventide/backend/pkg/queue"
	"github.com/eventide/backend/pkg/redis"
	"github.com/eventide/backend/pkg/response"
	"github.com/eventide/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	st, err := stores.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("stores", zap.Error(err))
	}
	defer st.Close()

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("redis disabled: notifications off, feed is instance-local", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	var posters events.PosterStore
	if cfg.AWS.PostersBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			PostersBucket:        cfg.AWS.PostersBucket,
			Endpoint:             cfg.AWS.Endpoint,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			posters = s3Client
		}
	}

	clk := clock.NewSystem()
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	issuer := tickets.NewIssuer(cfg.Ticket.QRSize)

	// Live entry feed
	var hub *realtime.Hub
	if rdb != nil {
		redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
		hub = realtime.NewHub(logger, redisPubSub, redisPubSub)
	} else {
		hub = realtime.NewHub(logger, nil, nil)
	}

	// Auth
	identity := auth.NewProvider(st.Users)
	authHandler := auth.NewHandler(st.Users, identity, jwtService, logger)

	// Events
	eventService := events.NewService(st.Events, posters, clk, logger)
	eventHandler := events.NewHandler(eventService, logger)

	// Payments
	var gateway payments.Gateway
	var paymentVerifier registrations.PaymentVerifier
	if cfg.Razorpay.Enabled() {
		rzp := payments.NewRazorpay(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)
		gateway, paymentVerifier = rzp, rzp
	} else {
		logger.Info("razorpay not configured; paid events register without a payment gate")
	}

	// Registrations
	registrationService := registrations.NewService(st.Events, issuer, clk, logger)
	registrationService.SetFeed(hub)
	var jobQueue *queue.Queue
	if rdb != nil {
		jobQueue = queue.NewQueue(rdb.Client, logger)
		registrationService.SetNotifier(jobQueue)
	}
	registrationHandler := registrations.NewHandler(registrationService, paymentVerifier, logger)

	// Entry validation
	validator := entry.NewValidator(st.Events, st.CheckIns, cfg.Entry.SingleUse, clk, logger)
	validator.SetFeed(hub)
	entryHandler := entry.NewHandler(validator, logger)

	authorize := func(token string) (string, bool, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", false, err
		}
		return claims.UserID.String(), claims.IsOrganizer, nil
	}
	eventExists := func(c *gin.Context, eventID string) bool {
		if !st.Events.ValidID(eventID) {
			return false
		}
		_, err := st.Events.GetByID(c.Request.Context(), eventID)
		return err == nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) {
		status := gin.H{"status": "ok", "store": st.Driver, "redis": rdb != nil}
		if st.Ping != nil {
			if err := st.Ping(c.Request.Context()); err != nil {
				logger.Warn("health: store unreachable", zap.Error(err))
				response.ServiceUnavailable(c, "store unreachable")
				return
			}
		}
		if rdb != nil {
			if err := rdb.Healthy(c.Request.Context()); err != nil {
				logger.Warn("health: redis unreachable", zap.Error(err))
				response.ServiceUnavailable(c, "redis unreachable")
				return
			}
		}
		response.OK(c, status)
	})

	api := router.Group("/api/v1")

	// Auth (public)
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.GET("/me", middleware.JWT(jwtService), authHandler.Me)
	}
	api.GET("/users/:id", authHandler.GetUser)

	// Events: reads are public, mutations need an organizer token
	api.GET("/events", eventHandler.List)
	api.GET("/events/:id", eventHandler.Get)
	api.GET("/events/:id/poster", eventHandler.Poster)
	organizer := api.Group("")
	organizer.Use(middleware.JWT(jwtService), middleware.RequireOrganizer())
	{
		organizer.POST("/events", eventHandler.Create)
		organizer.DELETE("/events/:id", eventHandler.Delete)
	}

	// Registration and entry accept an optional token; when present it must match the body user
	optional := api.Group("")
	optional.Use(middleware.OptionalJWT(jwtService))
	{
		optional.POST("/events/:id/register", registrationHandler.Register)
		optional.POST("/events/:id/cancel", registrationHandler.Cancel)
		optional.POST("/events/:id/ticket", registrationHandler.Ticket)
		optional.GET("/events/:id/ticket.pdf", registrationHandler.TicketPDF)
	}
	// Door checks are open unless single-use entry is on, then they need an organizer token
	entryHandler.Mount(optional, organizer)

	// Payments
	if gateway != nil {
		paymentHandler := payments.NewHandler(gateway, logger)
		api.POST("/payment/create-order", paymentHandler.CreateOrder)
		api.POST("/payment/verify", paymentHandler.Verify)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, authorize, eventExists))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (registration e-mails)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if jobQueue != nil && cfg.Server.EmbeddedWorker {
		processor := worker.NewNotificationProcessor(jobQueue, st.Users, st.Events, issuer, newMailer(cfg, logger), logger)
		go processor.Run(workerCtx)
		logger.Info("notification worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("store", st.Driver))
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

func newMailer(cfg *config.Config, logger *zap.Logger) notify.Mailer {
	if cfg.Email.SMTPHost == "" {
		return notify.NewLogMailer(logger)
	}
	return notify.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPUser, cfg.Email.SMTPPass,
		cfg.Email.FromAddress, cfg.Email.FromName)
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
