package main

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"catering-allocation-service/internal/adapters/cache"
	"catering-allocation-service/internal/adapters/llm"
	"catering-allocation-service/internal/adapters/repositories"
	"catering-allocation-service/internal/api"
	"catering-allocation-service/internal/config"
	"catering-allocation-service/internal/ports"
	"catering-allocation-service/internal/services"
)

// main is the application composition root.
// It wires concrete adapters (SQLite, OpenAI) behind ports and starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	port := config.Get("PORT", "8080")

	db, err := openDB(cfg.DBPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// Initialize schema and seed demo data on startup for local runs.
	if err := initAndSeed(db, cfg); err != nil {
		log.Fatal(err)
	}

	gateway, err := llm.NewOpenAIGateway(cfg.OpenAIAPIKey, llm.Options{
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIModel,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Cache:       completionCache(db, cfg),
	})
	if err != nil {
		log.Fatal(err)
	}

	fleet := repositories.NewSqliteFleetRepository(db)
	store := repositories.NewSqliteAttemptStore(db)
	allocator := services.NewAllocator(gateway, store)
	router := api.NewRouter(fleet, allocator, store, cfg.MaxAttempts)

	// Timeouts are tuned for multi-attempt LLM runs (external API latency).
	log.Printf("Server listening addr=:%s", port)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      300 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	log.Fatal(srv.ListenAndServe())
}

func openDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("openDB: open sqlite database %q: %w", dbPath, err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("openDB: verify sqlite connection to %q: %w", dbPath, err)
	}

	return db, nil
}

func initAndSeed(db *sql.DB, cfg config.Config) error {
	if err := repositories.InitSchema(db); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if err := repositories.SeedFromJSON(db, cfg.DriversPath, cfg.OrdersPath); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	return nil
}

func completionCache(db *sql.DB, cfg config.Config) ports.CompletionCache {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return cache.NewRedisCompletionCache(client, 24*time.Hour)
	}
	return cache.NewSqliteCompletionCache(db)
}
