package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atharva9604/conversational-insights-generator/pkg/common/config"
	"github.com/atharva9604/conversational-insights-generator/pkg/common/database"
	"github.com/atharva9604/conversational-insights-generator/pkg/common/kafka"
	"github.com/atharva9604/conversational-insights-generator/pkg/common/logger"
	"github.com/atharva9604/conversational-insights-generator/pkg/common/middleware"
	"github.com/atharva9604/conversational-insights-generator/pkg/common/models"
	"github.com/atharva9604/conversational-insights-generator/pkg/insight"
	"github.com/atharva9604/conversational-insights-generator/pkg/pipeline"
	"github.com/atharva9604/conversational-insights-generator/pkg/record"
	"github.com/gorilla/mux"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}
	defer database.ClosePostgres()

	repo := record.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate call record tables")
	}

	guidance, err := insight.LoadGuidance(cfg.GuidancePath)
	if err != nil {
		logger.Log.WithError(err).WithField("path", cfg.GuidancePath).Warn("falling back to default analysis guidance")
		guidance = insight.DefaultGuidance()
	}

	llmClient := insight.NewClient(insight.ClientConfig{
		BaseURL:      cfg.LLMBaseURL,
		APIKey:       cfg.LLMAPIKey,
		Model:        cfg.LLMModelName,
		Timeout:      cfg.LLMRequestTimeout,
		TokenURL:     cfg.LLMTokenURL,
		ClientID:     cfg.LLMClientID,
		ClientSecret: cfg.LLMClientSecret,
	})
	extractor := insight.NewExtractor(llmClient, guidance, cfg.LLMMaxAttempts)

	redisClient := database.GetRedis(cfg)
	defer database.CloseRedis()
	cache := pipeline.NewResponseCache(redisClient, cfg.RecordCacheTTL)

	var events pipeline.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaInsightTopic)
		defer producer.Close()
		events = producer
	}

	svc := pipeline.NewService(extractor, repo, cache, events, cfg.TranscriptMinLen, cfg.TranscriptMaxLen)
	handler := pipeline.NewHTTPHandler(svc)

	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"name":   "Conversational Insights Generator",
			"status": "operational",
			"endpoints": map[string]string{
				"health":  "/health",
				"analyze": "/api/v1/analyze-call",
				"records": "/api/v1/records/{unique_id}",
			},
		})
	}).Methods(http.MethodGet)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := models.HealthResponse{
			Status:    "healthy",
			Database:  "connected",
			LLMClient: "initialized",
			Cache:     "connected",
			Timestamp: time.Now().UTC(),
		}

		if sqlDB, dbErr := db.DB(); dbErr != nil || sqlDB.PingContext(ctx) != nil {
			health.Database = "disconnected"
			health.Status = "degraded"
		}
		if redisClient.Ping(ctx).Err() != nil {
			health.Cache = "disconnected"
			health.Status = "degraded"
		}
		if cfg.LLMAPIKey == "" && cfg.LLMTokenURL == "" {
			health.LLMClient = "not_configured"
			health.Status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	handler.Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Insights Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Insights Service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Insights Service stopped")
}
