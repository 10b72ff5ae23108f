package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"

	"sellerhub/internal/caching"
	"sellerhub/internal/config"
	"sellerhub/internal/handlers"
	"sellerhub/internal/jobs"
	"sellerhub/internal/jobs/background"
	"sellerhub/internal/middleware"
	"sellerhub/internal/plans"
	"sellerhub/internal/repositories"
	"sellerhub/internal/services"
	"sellerhub/pkg/database"
)

func main() {
	// Configuration file (plan price refs, provider keys, reconciler cadence)
	cfg := config.Default()
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	// Secrets always win from the environment
	if apiKey := os.Getenv("STRIPE_SECRET_KEY"); apiKey != "" {
		cfg.Stripe.APIKey = apiKey
	}
	if webhookSecret := os.Getenv("STRIPE_WEBHOOK_SECRET"); webhookSecret != "" {
		cfg.Stripe.WebhookSecret = webhookSecret
	}
	if cfg.Stripe.APIKey == "" || cfg.Stripe.WebhookSecret == "" {
		log.Fatal("Stripe API key and webhook secret are required")
	}
	if cfg.Plans.TrialPriceRef == "" || cfg.Plans.AnnualPriceRef == "" {
		log.Fatal("Plan price references are required")
	}

	// Database connection
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}
	pool, err := database.NewPool(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// JWT configuration
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = random.String(32) // Generate random secret for development
		log.Printf("WARNING: Using generated JWT secret: %s", jwtSecret)
	}

	// Redis configuration
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if redisDBStr := os.Getenv("REDIS_DB"); redisDBStr != "" {
		if db, err := strconv.Atoi(redisDBStr); err == nil {
			redisDB = db
		}
	}

	// MinIO configuration (webhook payload archive)
	minioEndpoint := os.Getenv("MINIO_ENDPOINT")
	if minioEndpoint == "" {
		minioEndpoint = "localhost:9000"
	}
	minioAccessKey := os.Getenv("MINIO_ACCESS_KEY")
	if minioAccessKey == "" {
		minioAccessKey = "minioadmin"
	}
	minioSecretKey := os.Getenv("MINIO_SECRET_KEY")
	if minioSecretKey == "" {
		minioSecretKey = "minioadmin"
	}
	useSSL := os.Getenv("MINIO_USE_SSL") == "true"

	// Create repositories
	subscriptionRepo := repositories.NewSubscriptionRepo(pool)
	userRepo := repositories.NewUserRepo(pool)

	// Create cache service
	cacheSvc := caching.NewRedisCacheService(redisAddr, redisPassword, redisDB)

	// Plan catalog with server-side price resolution
	catalog := plans.NewCatalog(cfg.Plans.TrialPriceRef, cfg.Plans.AnnualPriceRef)

	// Payment provider client
	stripeSvc := services.NewStripeService(cfg.Stripe.APIKey, cfg.Stripe.WebhookSecret)

	// Webhook payload archive (best effort, engine runs without it)
	var archiveSvc services.ArchiveService
	if svc, err := services.NewArchiveService(minioEndpoint, minioAccessKey, minioSecretKey, useSSL, cfg.Archive.Bucket); err != nil {
		log.Printf("WARNING: webhook archive disabled: %v", err)
	} else if err := svc.EnsureBucketExists(context.Background()); err != nil {
		log.Printf("WARNING: webhook archive disabled, bucket unavailable: %v", err)
	} else {
		archiveSvc = svc
	}

	// Create services
	eligibilitySvc := services.NewEligibilityService(subscriptionRepo, catalog)
	subscriptionSvc := services.NewSubscriptionService(
		eligibilitySvc,
		stripeSvc,
		subscriptionRepo,
		catalog,
		cacheSvc,
		cfg.Checkout.SuccessURL,
		cfg.Checkout.CancelURL,
	)
	webhookSvc := services.NewWebhookService(stripeSvc, subscriptionRepo, catalog, archiveSvc, cacheSvc)

	// Create handlers
	subscriptionHandlers := handlers.NewSubscriptionHandlers(subscriptionSvc)
	webhookHandlers := handlers.NewWebhookHandlers(webhookSvc)
	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc)

	// Background link reconciliation
	reconciler := jobs.NewLinkReconciler(
		subscriptionRepo,
		userRepo,
		time.Duration(cfg.Reconciler.GraceMinutes)*time.Minute,
		cfg.Reconciler.BatchSize,
	)
	scheduler := background.NewJobScheduler(reconciler, time.Duration(cfg.Reconciler.IntervalMinutes)*time.Minute)
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Printf("Failed to stop scheduler: %v", err)
		}
	}()

	// Create Echo instance
	e := echo.New()

	// Global middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	// Health endpoints (no auth required)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)

	// API routes
	v1 := e.Group("/v1")

	// Webhook endpoint: authenticated by signature, not by JWT
	v1.POST("/webhooks/stripe", webhookHandlers.StripeWebhook)

	// JWT middleware configuration
	jwtConfig := echojwt.Config{
		SigningKey: []byte(jwtSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(middleware.IdentityClaims)
		},
		SuccessHandler: middleware.IdentityHandler,
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(401, "Invalid token")
		},
	}

	// Protected routes (require verified identity)
	protected := v1.Group("/subscriptions")
	protected.Use(echojwt.WithConfig(jwtConfig))
	protected.GET("/me", subscriptionHandlers.GetMySubscription)
	protected.GET("/entitlement", subscriptionHandlers.GetEntitlement)

	sellers := protected.Group("")
	sellers.Use(middleware.RequireSeller())
	sellers.POST("/checkout-session", subscriptionHandlers.CreateCheckoutSession)
	sellers.GET("/checkout-session/:id", subscriptionHandlers.GetCheckoutSession)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Fatal(e.Start(":" + port))
}
