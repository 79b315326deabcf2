package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/careerpilot/backend/config"
	"github.com/careerpilot/backend/internal/api/handlers"
	"github.com/careerpilot/backend/internal/api/middleware"
	"github.com/careerpilot/backend/internal/api/routes"
	"github.com/careerpilot/backend/internal/cache"
	"github.com/careerpilot/backend/internal/logger"
	"github.com/careerpilot/backend/internal/providers/llm"
	"github.com/careerpilot/backend/internal/ratelimit"
	mongorepo "github.com/careerpilot/backend/internal/repositories/mongo"
	pgrepo "github.com/careerpilot/backend/internal/repositories/postgres"
	"github.com/careerpilot/backend/internal/services"
)

func main() {
	_ = godotenv.Load()

	l := logger.New()

	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	l.Info("PostgreSQL connected")

	if err := config.InitRedis(); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	l.Info("Redis connected")

	if err := config.InitMongo(); err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.Fatalf("MongoDB index error: %v", err)
	}
	l.Info("MongoDB connected")

	ctx := context.Background()
	provider, err := llm.NewVertexGemini(ctx,
		os.Getenv("VERTEX_PROJECT_ID"),
		os.Getenv("VERTEX_LOCATION"),
		os.Getenv("VERTEX_MODEL"),
		os.Getenv("VERTEX_EMBED_MODEL"),
	)
	if err != nil {
		log.Fatalf("LLM provider init error: %v", err)
	}
	defer provider.Close()

	db := config.PostgresDB
	rdb := config.RedisClient

	chatRepo := pgrepo.NewChatRepo(db)
	memoryRepo := pgrepo.NewMemoryRepo(db)
	profileRepo := pgrepo.NewProfileRepo(db)
	roadmapRepo := pgrepo.NewRoadmapRepo(db)
	taskRepo := pgrepo.NewTaskRepo(db)
	proposalRepo := pgrepo.NewProposalRepo(db)
	sessionRepo := mongorepo.NewSessionRepo(config.MongoDatabase())

	redisCache := cache.NewRedisCache(rdb)
	limiter := ratelimit.NewRedisLimiter(rdb)

	chatSvc := services.NewChatService(chatRepo, memoryRepo, profileRepo, roadmapRepo, proposalRepo, sessionRepo, provider, limiter, redisCache, l)
	actionSvc := services.NewActionService(proposalRepo, taskRepo, roadmapRepo, redisCache, l)
	memorySvc := services.NewMemoryService(memoryRepo, redisCache)
	profileSvc := services.NewProfileService(profileRepo, redisCache)
	roadmapSvc := services.NewRoadmapService(roadmapRepo, profileRepo, provider, redisCache, l)
	taskSvc := services.NewTaskService(taskRepo, profileRepo)
	onboardingSvc := services.NewOnboardingService(profileRepo, provider, redisCache, l)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(l))

	routes.RegisterRoutes(r, routes.Deps{
		Chat:       handlers.NewChatHandler(chatSvc),
		Action:     handlers.NewActionHandler(actionSvc),
		Memory:     handlers.NewMemoryHandler(memorySvc),
		Profile:    handlers.NewProfileHandler(profileSvc),
		Roadmap:    handlers.NewRoadmapHandler(roadmapSvc),
		Task:       handlers.NewTaskHandler(taskSvc),
		Onboarding: handlers.NewOnboardingHandler(onboardingSvc),
		WS:         handlers.NewWSHandler(chatSvc, provider),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
