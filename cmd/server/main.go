package main

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/crenwick93/ansible-aiops-with-llama-stack/internal/agents"
	"github.com/crenwick93/ansible-aiops-with-llama-stack/internal/api"
	"github.com/crenwick93/ansible-aiops-with-llama-stack/internal/config"
	"github.com/crenwick93/ansible-aiops-with-llama-stack/internal/llm"
	"github.com/crenwick93/ansible-aiops-with-llama-stack/internal/middleware"
)

func main() {
	// Optional .env for local development; deployed pods get a ConfigMap.
	_ = godotenv.Load()

	settings := config.Load()
	if err := settings.Validate(); err != nil {
		log.Printf("component=config status=degraded err=%v", err)
	}

	provider := llm.NewProviderFromSettings(settings)
	pipeline := agents.NewPipeline(settings, provider)
	log.Printf("component=server provider=%s llama_base_url=%s", provider.Name(), settings.LlamaBaseURL)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logging())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Request-Id",
			"X-API-Key",
		},
	}))

	api.RegisterRoutes(router, pipeline)

	if err := router.Run(":" + settings.Port); err != nil {
		log.Fatalf("failed to start server on port %s: %v", settings.Port, err)
	}
}
