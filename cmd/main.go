package main

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"

	"github.com/ciangeneway-dot/Khumalo/internal/clients/gcp"
	"github.com/ciangeneway-dot/Khumalo/internal/clients/openai"
	redisclient "github.com/ciangeneway-dot/Khumalo/internal/clients/redis"
	"github.com/ciangeneway-dot/Khumalo/internal/db"
	"github.com/ciangeneway-dot/Khumalo/internal/handlers"
	"github.com/ciangeneway-dot/Khumalo/internal/logger"
	"github.com/ciangeneway-dot/Khumalo/internal/middleware"
	"github.com/ciangeneway-dot/Khumalo/internal/server"
	"github.com/ciangeneway-dot/Khumalo/internal/services"
	"github.com/ciangeneway-dot/Khumalo/internal/store"
	"github.com/ciangeneway-dot/Khumalo/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	log.Info("Loading environment variables from main...")
	uploadCfg := services.LoadUploadConfig(log)

	// Store
	st, err := buildStore(log)
	if err != nil {
		log.Error("Could not init store", "error", err)
		os.Exit(1)
	}

	// Clients
	bucketService, err := gcp.NewBucketService(log)
	if err != nil {
		log.Error("Could not init BucketService", "error", err)
		os.Exit(1)
	}
	var vision gcp.Vision
	if uploadCfg.OCREnabled {
		vision, err = gcp.NewVision(log)
		if err != nil {
			log.Warn("Could not init Vision, image OCR disabled", "error", err)
			uploadCfg.OCREnabled = false
		}
	}
	summarizeClient := openai.New(log)
	if !summarizeClient.Configured() {
		log.Warn("Remote summarization not configured, using local fallback")
	}
	var summaryCache redisclient.SummaryCache
	if os.Getenv("REDIS_ADDR") != "" {
		summaryCache, err = redisclient.NewSummaryCache(log)
		if err != nil {
			log.Warn("Could not init summary cache", "error", err)
			summaryCache = nil
		}
	}

	// Services
	log.Info("Setting up Services from main...")
	validator := services.NewValidator(uploadCfg, log)
	extractor := services.NewContentExtractor(uploadCfg, vision, log)
	patientService := services.NewPatientService(st, log)
	documentService := services.NewDocumentService(uploadCfg, st, bucketService, log)
	summaryGenerator := services.NewSummaryGenerator(st, bucketService, extractor, summarizeClient, summaryCache, log)

	coordinator, err := services.NewBatchUploadCoordinator(uploadCfg, validator, extractor, bucketService, st, log)
	if err != nil {
		log.Error("Could not init BatchUploadCoordinator", "error", err)
		os.Exit(1)
	}

	// Middleware
	authMiddleware, err := middleware.NewAuthMiddleware(log)
	if err != nil {
		log.Error("Could not init AuthMiddleware", "error", err)
		os.Exit(1)
	}

	// Handlers
	patientHandler := handlers.NewPatientHandler(log, patientService)
	documentHandler := handlers.NewDocumentHandler(log, uploadCfg, documentService, coordinator)
	summaryHandler := handlers.NewSummaryHandler(log, summaryGenerator, st)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:  authMiddleware,
		PatientHandler:  patientHandler,
		DocumentHandler: documentHandler,
		SummaryHandler:  summaryHandler,
		AllowedOrigins:  server.ParseOrigins(os.Getenv("CORS_ALLOWED_ORIGINS")),
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}

// buildStore selects the persistence backend: in-memory for local hacking,
// Firestore for the table/blob variant, relational gorm otherwise.
func buildStore(log *logger.Logger) (store.Store, error) {
	if utils.GetEnvAsBool("USE_MEMORY_STORE", false, log) {
		log.Warn("Using in-memory store; data is lost on restart")
		return store.NewMemoryStore(), nil
	}
	if utils.GetEnvAsBool("USE_FIRESTORE", false, log) {
		project := os.Getenv("FIRESTORE_PROJECT_ID")
		if project == "" {
			project = os.Getenv("GOOGLE_CLOUD_PROJECT")
		}
		if project == "" {
			return nil, fmt.Errorf("missing env var FIRESTORE_PROJECT_ID")
		}
		client, err := firestore.NewClient(context.Background(), project, gcp.ClientOptionsFromEnv()...)
		if err != nil {
			return nil, fmt.Errorf("firestore client: %w", err)
		}
		return store.NewFirestoreStore(client, log), nil
	}

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		return nil, err
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		return nil, fmt.Errorf("auto migration: %w", err)
	}
	return store.NewGormStore(postgresService.DB(), log), nil
}
