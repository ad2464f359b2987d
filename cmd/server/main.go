package main

import (
	"flag"
	"net/http"
	"os"

	"datalens/internal/ai"
	"datalens/internal/api"
	"datalens/internal/config"
	"datalens/internal/state"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "datalens.yaml", "path to config file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	// Initialize services
	aiService := ai.NewService(ai.Config{
		BaseURL: cfg.AI.BaseURL,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.Timeout,
	})
	store := state.NewStore()
	handler := api.NewHandler(store, aiService, logger, cfg.AI.AnalysisFloor)

	// Router setup
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("datalens backend is running"))
	})

	handler.RegisterRoutes(r)

	logger.Info("starting datalens backend",
		zap.String("addr", cfg.ListenAddr),
		zap.String("ai_base_url", cfg.AI.BaseURL),
		zap.String("ai_model", cfg.AI.Model))

	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
