package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"

	"shopfront/internal/caching"
	"shopfront/internal/handlers"
	"shopfront/internal/jobs"
	"shopfront/internal/jobs/background"
	"shopfront/internal/middleware"
	"shopfront/internal/repositories"
	"shopfront/internal/services"
	"shopfront/pkg/database"
)

const version = "1.0.0"

func main() {
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

	// Token verification. Authentication lives in the external identity
	// service; we only verify its tokens, via JWKS when configured.
	jwksURL := os.Getenv("IDENTITY_JWKS_URL")
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwksURL == "" && jwtSecret == "" {
		jwtSecret = random.String(32) // Generate random secret for development
		log.Printf("WARNING: Using generated JWT secret: %s", jwtSecret)
	}
	keyFunc, err := middleware.NewTokenKeyfunc(context.Background(), jwksURL, jwtSecret)
	if err != nil {
		log.Fatalf("Failed to initialize token verification: %v", err)
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

	// MinIO configuration
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

	// Public base URL recorded in durable image references
	publicBaseURL := os.Getenv("STORAGE_PUBLIC_URL")
	if publicBaseURL == "" {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		publicBaseURL = fmt.Sprintf("%s://%s", scheme, minioEndpoint)
	}

	storageSvc, err := services.NewMinioStorage(minioEndpoint, minioAccessKey, minioSecretKey, useSSL)
	if err != nil {
		log.Fatalf("Failed to initialize storage service: %v", err)
	}

	// Create repositories
	productRepo := repositories.NewProductRepo(pool)
	productImageRepo := repositories.NewProductImageRepo(pool)

	// Create cache service
	cacheSvc := caching.NewRedisCacheService(redisAddr, redisPassword, redisDB)

	// Task queue for enhancement preview runs
	redisOpt := asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	}
	queueClient := asynq.NewClient(redisOpt)
	defer queueClient.Close()

	// Create services
	imageSvc := services.NewProductImageService(productImageRepo, productRepo, storageSvc, cacheSvc, publicBaseURL)
	enhanceSvc := services.NewEnhanceService(storageSvc, cacheSvc, queueClient)

	// Create handlers
	productHandlers := handlers.NewProductHandlers(productRepo)
	imageHandlers := handlers.NewProductImageHandlers(imageSvc)
	storageHandlers := handlers.NewStorageHandlers(imageSvc)
	enhanceHandlers := handlers.NewEnhanceHandlers(enhanceSvc)
	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc, storageSvc)

	// Enhancement worker: concurrency 1 keeps a single run in flight.
	queueServer := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 1,
	})
	mux := asynq.NewServeMux()
	mux.Handle(services.TypeEnhancePreview, jobs.NewEnhanceProcessor(storageSvc, cacheSvc))
	go func() {
		if err := queueServer.Run(mux); err != nil {
			log.Fatalf("Enhancement worker stopped: %v", err)
		}
	}()

	// Background maintenance: sweep orphaned staging objects and expired
	// previews.
	sweepAge := 24 * time.Hour
	if hoursStr := os.Getenv("ORPHAN_SWEEP_MAX_AGE_HOURS"); hoursStr != "" {
		if hours, err := strconv.Atoi(hoursStr); err == nil && hours > 0 {
			sweepAge = time.Duration(hours) * time.Hour
		}
	}
	sweeper := jobs.NewOrphanSweeper(storageSvc, productImageRepo, publicBaseURL, sweepAge)
	scheduler := background.NewJobScheduler(sweeper)
	scheduler.Start()
	defer scheduler.Stop()

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

	// Operator routes
	protected := e.Group("")
	protected.Use(middleware.OperatorAuth(keyFunc))

	protected.GET("/products", productHandlers.ListProducts)
	protected.GET("/products/:id", productHandlers.GetProduct)

	protected.POST("/storage/upload", storageHandlers.Upload)
	protected.DELETE("/storage/objects", storageHandlers.DeleteStagedObject)

	protected.POST("/product-images", imageHandlers.CreateImage)
	protected.GET("/product-images", imageHandlers.ListImages)
	protected.GET("/product-images/:id/url", imageHandlers.GetImageURL)
	protected.DELETE("/product-images/:id", imageHandlers.DeleteImage)

	protected.POST("/enhance", enhanceHandlers.StartRun)
	protected.GET("/enhance/:id", enhanceHandlers.GetRun)

	// Start server
	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Fatalf("Invalid port %s: %v", portStr, err)
	}

	log.Printf("Shopfront image service v%s starting on port %d", version, port)

	e.Logger.Fatal(e.Start(fmt.Sprintf(":%d", port)))
}
