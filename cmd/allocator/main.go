package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"catering-allocation-service/internal/adapters/cache"
	"catering-allocation-service/internal/adapters/llm"
	"catering-allocation-service/internal/adapters/repositories"
	"catering-allocation-service/internal/adapters/results"
	"catering-allocation-service/internal/config"
	"catering-allocation-service/internal/domain"
	"catering-allocation-service/internal/ports"
	"catering-allocation-service/internal/services"
)

// main is the CLI composition root. It loads driver and order JSON
// into SQLite, wires the OpenAI gateway with its caches, runs the
// allocation loop, and writes the output files.
func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Printf("fatal: %v", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(cfg.DBPath)
	if err != nil {
		log.Printf("fatal: %v", err)
		return 2
	}
	defer db.Close()

	if err := repositories.InitSchema(db); err != nil {
		log.Printf("fatal: %v", err)
		return 2
	}
	if err := repositories.SeedFromJSON(db, cfg.DriversPath, cfg.OrdersPath); err != nil {
		log.Printf("fatal: %v", err)
		return 2
	}

	runID := uuid.NewString()
	outputDir := filepath.Dir(cfg.OutputPath)

	usage := results.NewTokenUsageReporter(outputDir, runID, cfg.InputPricePer1M, cfg.OutputPricePer1M)

	gateway, err := llm.NewOpenAIGateway(cfg.OpenAIAPIKey, llm.Options{
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIModel,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Cache:       completionCache(db, cfg),
		Usage:       usage,
	})
	if err != nil {
		log.Printf("fatal: %v", err)
		return 2
	}

	fleet := repositories.NewSqliteFleetRepository(db)
	drivers, err := fleet.ListDrivers(ctx)
	if err != nil {
		log.Printf("fatal: %v", err)
		return 2
	}
	orders, err := fleet.ListOrders(ctx)
	if err != nil {
		log.Printf("fatal: %v", err)
		return 2
	}
	log.Printf("run_id=%s drivers=%d orders=%d max_attempts=%d", runID, len(drivers), len(orders), cfg.MaxAttempts)

	// Attempts land in SQLite for the audit endpoint and as JSON files
	// for quick inspection.
	store := teeAttemptStore{
		repositories.NewSqliteAttemptStore(db),
		results.NewFileAttemptStore(cfg.AttemptsDir),
	}

	rules := domain.DefaultRules()
	rules.MandatoryCoverage = cfg.MandatoryCoverage
	allocator := services.NewAllocator(gateway, store)
	res, err := allocator.Allocate(ctx, services.AllocateRequest{
		RunID:       runID,
		MaxAttempts: cfg.MaxAttempts,
		Rules:       &rules,
		Scorer:      services.WeightedScorer,
	}, drivers, orders)
	if err != nil {
		log.Printf("run_id=%s allocation failed: %v", runID, err)
	}

	writer := results.NewOutputWriter(outputDir)
	outPath, werr := writer.WriteRun(res, drivers, orders)
	if werr != nil {
		log.Printf("run_id=%s write output failed: %v", runID, werr)
	} else {
		log.Printf("run_id=%s output written path=%s", runID, outPath)
	}
	if usagePath, uerr := usage.Flush(); uerr != nil {
		log.Printf("run_id=%s write usage report failed: %v", runID, uerr)
	} else {
		log.Printf("run_id=%s usage report written path=%s", runID, usagePath)
	}

	prompt, completion, cost := usage.Totals()
	log.Printf("run_id=%s outcome=%s attempts=%d accepted=%t prompt_tokens=%d completion_tokens=%d est_cost_usd=%.4f",
		runID, res.Outcome, len(res.Attempts), res.Accepted, prompt, completion, cost)

	switch res.Outcome {
	case services.OutcomeAccepted:
		return 0
	case services.OutcomeExhausted:
		return 1
	default:
		return 2
	}
}

func openDB(dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("openDB: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("openDB: open sqlite database %q: %w", dbPath, err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("openDB: verify sqlite connection to %q: %w", dbPath, err)
	}

	return db, nil
}

// completionCache prefers Redis when configured and falls back to the
// SQLite table next to the fleet data.
func completionCache(db *sql.DB, cfg config.Config) ports.CompletionCache {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return cache.NewRedisCompletionCache(client, 24*time.Hour)
	}
	return cache.NewSqliteCompletionCache(db)
}

// teeAttemptStore fans appends out to both stores and reads from the
// first.
type teeAttemptStore [2]ports.AttemptStore

func (t teeAttemptStore) AppendAttempt(ctx context.Context, rec *domain.AttemptRecord) error {
	if err := t[0].AppendAttempt(ctx, rec); err != nil {
		return err
	}
	return t[1].AppendAttempt(ctx, rec)
}

func (t teeAttemptStore) ListAttempts(ctx context.Context, runID string) ([]*domain.AttemptRecord, error) {
	return t[0].ListAttempts(ctx, runID)
}
