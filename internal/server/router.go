package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ciangeneway-dot/Khumalo/internal/handlers"
	"github.com/ciangeneway-dot/Khumalo/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware  *middleware.AuthMiddleware
	PatientHandler  *handlers.PatientHandler
	DocumentHandler *handlers.DocumentHandler
	SummaryHandler  *handlers.SummaryHandler
	AllowedOrigins  []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)

	// Protected
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	// Patients
	api.POST("/patients", cfg.PatientHandler.Create)
	api.GET("/patients", cfg.PatientHandler.List)
	api.GET("/patients/:id", cfg.PatientHandler.Get)
	api.PUT("/patients/:id", cfg.PatientHandler.Update)
	api.DELETE("/patients/:id", cfg.PatientHandler.Delete)
	// Documents
	api.POST("/patients/:id/documents", cfg.DocumentHandler.UploadBatch)
	api.GET("/patients/:id/documents", cfg.DocumentHandler.ListByPatient)
	api.GET("/documents/:id/url", cfg.DocumentHandler.SignedURL)
	api.DELETE("/documents/:id", cfg.DocumentHandler.Delete)
	// Summaries
	api.POST("/patients/:id/summaries", cfg.SummaryHandler.Generate)
	api.GET("/patients/:id/summaries", cfg.SummaryHandler.ListByPatient)

	return router
}

// ParseOrigins splits a comma-separated origin list from the environment.
func ParseOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
