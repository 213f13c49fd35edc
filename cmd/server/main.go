package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tourexplorer/booking-engine/internal/config"
	"github.com/tourexplorer/booking-engine/internal/database"
	"github.com/tourexplorer/booking-engine/internal/handlers"
	"github.com/tourexplorer/booking-engine/internal/middleware"
	"github.com/tourexplorer/booking-engine/internal/repository"
	"github.com/tourexplorer/booking-engine/internal/services"
	"github.com/tourexplorer/booking-engine/pkg/jwt"
	"github.com/tourexplorer/booking-engine/pkg/relay"
	"github.com/tourexplorer/booking-engine/pkg/tourapi"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting tour booking engine")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Local cache
	cache, conn, err := database.OpenCacheStore(context.Background(), cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to open local cache: %v", err)
	}
	var db database.DB
	if conn != nil {
		db = conn
		defer conn.Close()
		logger.WithField("driver", cfg.Database.Driver).Info("Local cache stored in database")
	} else {
		logger.Warn("DATABASE_URL not set, local cache is in memory and lost on restart")
	}

	// Remote booking service and message relay
	remote := tourapi.NewClient(tourapi.Config{
		BaseURL: cfg.Remote.BaseURL,
		Timeout: cfg.Remote.Timeout,
	})
	relayClient := relay.NewClient(relay.Config{
		URL:      cfg.Relay.URL,
		Username: cfg.Relay.Username,
		Password: cfg.Relay.Password,
		Sender:   cfg.Relay.Sender,
	})
	if cfg.Relay.URL == "" {
		logger.Warn("RELAY_URL not set, notifications will fail and be reported as warnings")
	}

	// Initialize services
	logger.Info("Initializing services...")
	provider := repository.NewProvider(remote, cache, logger)
	bookingStores := func(owner string) services.BookingStore { return provider.Bookings(owner) }
	enquiryStores := func(owner string) services.EnquiryStore { return provider.Enquiries(owner) }

	catalogService := services.NewCatalogService(remote, logger)
	dispatcher := services.NewNotificationDispatcher(relayClient, services.DispatcherConfig{
		QueueSize:   cfg.Notify.QueueSize,
		Workers:     cfg.Notify.Workers,
		SendTimeout: cfg.Remote.Timeout,
	}, logger)
	bookingService := services.NewBookingService(bookingStores, catalogService, dispatcher, logger)
	enquiryService := services.NewEnquiryService(enquiryStores, logger)
	statsService := services.NewStatsService(catalogService, bookingStores, enquiryStores, logger)
	reconcileService := services.NewReconcileService(provider, logger)
	cronService := services.NewCronService(reconcileService, cfg.Reconcile.Schedule, logger)
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.TokenExpiry)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	dispatcher.Start(workerCtx)

	if cfg.Reconcile.Enabled {
		if err := cronService.Start(); err != nil {
			logger.Fatalf("Failed to start cron service: %v", err)
		}
	} else {
		logger.Info("Scheduled reconciliation disabled")
	}

	// Warm the catalog so the first request does not wait on the remote service
	if count, err := catalogService.Count(context.Background()); err != nil {
		logger.Fatalf("Failed to load tour catalog: %v", err)
	} else {
		logger.WithFields(logrus.Fields{
			"tours":  count,
			"origin": catalogService.Origin(context.Background()),
		}).Info("Tour catalog ready")
	}

	// Setup router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: len(cfg.CORS.AllowedOrigins) > 0 && cfg.CORS.AllowedOrigins[0] != "*",
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthCheckHandler(db, catalogService))

	handlers.Routes{
		Tours:     handlers.NewTourHandler(catalogService, logger),
		Bookings:  handlers.NewBookingHandler(bookingService, logger),
		Enquiries: handlers.NewEnquiryHandler(enquiryService, logger),
		Admin:     handlers.NewAdminHandler(bookingService, enquiryService, statsService, cronService, logger),
	}.Register(router, middleware.AuthMiddleware(jwtService, logger), middleware.RequireOperator())

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	if cfg.Reconcile.Enabled {
		cronService.Stop()
	}

	// Deliver queued notifications before exiting
	dispatcher.Stop()

	logger.Info("Server exited successfully")
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB, catalog *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		cacheStatus := "memory"
		if db != nil {
			cacheStatus = "healthy"
			if err := db.PingContext(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "unhealthy",
					"cache":  "unhealthy",
					"error":  err.Error(),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"cache":     cacheStatus,
			"catalog":   catalog.Origin(c.Request.Context()),
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
