package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"docuchat/internal/agent"
	"docuchat/internal/chat"
	"docuchat/internal/config"
	"docuchat/internal/embedding"
	"docuchat/internal/ingestion"
	"docuchat/internal/llm"
	"docuchat/internal/retrieval"
	"docuchat/internal/store"
	"docuchat/internal/tools"
	transport "docuchat/internal/transport/http"
	"docuchat/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the configuration file")
	flag.Parse()

	// 1. Configuration and logging
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger := logger.New("server")
	appLogger.Info("Starting " + cfg.App.Name)

	ctx := context.Background()

	// 2. Backing stores
	mysqlStore, err := store.NewMySQL(cfg.Databases.MySQL)
	if err != nil {
		log.Fatalf("Failed to connect to MySQL: %v", err)
	}
	milvusStore, err := store.NewMilvus(ctx, cfg.Databases.Milvus)
	if err != nil {
		log.Fatalf("Failed to connect to Milvus: %v", err)
	}
	mongoStore, err := store.NewMongo(ctx, cfg.Databases.MongoDB)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	minioStore, err := store.NewMinIO(ctx, cfg.Databases.MinIO)
	if err != nil {
		log.Fatalf("Failed to connect to MinIO: %v", err)
	}
	redisStore, err := store.NewRedis(ctx, cfg.Databases.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// 3. Model backends
	provider, err := llm.NewProvider(ctx, cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to create LLM provider: %v", err)
	}
	embedder, err := embedding.NewEmbedder(cfg.Embedding)
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}
	if err := milvusStore.EnsureCollection(ctx, embedder.Dimension()); err != nil {
		log.Fatalf("Failed to prepare vector collection: %v", err)
	}

	// 4. Services
	ingestionSvc := ingestion.NewService(
		mysqlStore, mysqlStore, milvusStore, minioStore, redisStore, embedder,
		ingestion.NewMetadataExtractor(provider),
		ingestion.NewChunker(cfg.Chunking.Size, cfg.Chunking.Overlap),
	)
	retriever := retrieval.NewRetriever(
		mysqlStore, milvusStore, embedder,
		retrieval.NewReranker(cfg.Retrieval), cfg.Retrieval,
	)
	registry := tools.NewRegistry(cfg.Tools, retriever)
	if cfg.Tools.AgentsEnabled {
		agent.NewRuntime(provider, registry, cfg.Agent)
	}
	orchestrator := chat.NewOrchestrator(provider, mysqlStore, mongoStore, mongoStore, retriever, registry)

	// 5. HTTP server
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := transport.NewHandler(mysqlStore, mongoStore, mongoStore, minioStore, ingestionSvc, orchestrator, redisStore)
	router := transport.SetupRouter(handler)

	go func() {
		appLogger.Info("HTTP server listening at " + cfg.App.Address)
		if err := router.Run(cfg.App.Address); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down")
}
