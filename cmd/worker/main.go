// Command worker is the CareerEngine process entrypoint: it loads
// configuration, opens the database and RabbitMQ connections, wires the
// Extractor/Mapper/Analyzer/Renderer pipeline into an Engine and
// Orchestrator, and starts the analysis-request worker pool, mirroring the
// teacher's main.go startup sequence (godotenv.Load, os.Getenv-with-Fatal,
// StartConsumerWorkerPool).
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/streadway/amqp"

	"github.com/jobmatch/careerengine/internal/cache"
	"github.com/jobmatch/careerengine/internal/careerengine"
	"github.com/jobmatch/careerengine/internal/config"
	"github.com/jobmatch/careerengine/internal/database"
	"github.com/jobmatch/careerengine/internal/extractor"
	"github.com/jobmatch/careerengine/internal/queue"
	"github.com/jobmatch/careerengine/internal/vectorindex"
)

func main() {
	_ = godotenv.Load()

	dbUrl := mustEnv("DB_URL")
	rabbitmqUrl := mustEnv("RABBITMQ_URL")

	db, err := sql.Open("postgres", dbUrl)
	if err != nil {
		log.Fatal("error opening db. err: ", err)
	}
	defer db.Close()

	dbQueries := database.New(db)
	cfg := config.Default()

	extractorImpl, _ := buildExtractor(cfg)

	embeddingModel := getEnvDefault("EMBEDDING_MODEL", "text-embedding-004")
	index, err := buildVectorIndex(db, embeddingModel)
	if err != nil {
		log.Fatalf("failed to build vector index: %v", err)
	}

	engine := careerengine.New(careerengine.Config{
		ResumeStore:      database.ResumeAdapter{Q: dbQueries},
		JobStore:         database.JobAdapter{Q: dbQueries},
		Persistence:      database.PersistenceAdapter{Q: dbQueries},
		Extractor:        extractorImpl,
		Cache:            cache.New(dbQueries),
		VectorIndex:      index,
		GlobalConfig:     cfg,
		ExtractorVersion: getEnvDefault("EXTRACTOR_VERSION", "v1"),
		PromptVersion:    getEnvDefault("PROMPT_VERSION", "v1"),
		EmbeddingModelID: embeddingModel,
		TaxonomySnapshot: getEnvDefault("TAXONOMY_SNAPSHOT", "onet-2025.1"),
	})
	orchestrator := careerengine.NewOrchestrator(engine)

	conn, err := amqp.Dial(rabbitmqUrl)
	if err != nil {
		log.Fatalf("error connecting to RabbitMQ. err: %v", err)
	}
	defer conn.Close()

	workerConfig := queue.Config{
		Orchestrator: orchestrator,
		RabbitMQUrl:  rabbitmqUrl,
		RabbitConn:   conn,
	}

	numWorkers := getEnvInt("WORKER_POOL_SIZE", 3)
	fmt.Printf("Starting %d workers consumer pool\n", numWorkers)
	workerConfig.StartConsumerWorkerPool(numWorkers)
}

// buildExtractor selects the Extractor implementation explicitly at
// construction (spec §9: "test-mode is not a runtime fallback but a
// deliberate selection").
func buildExtractor(cfg config.CareerEngineConfig) (extractor.Extractor, string) {
	if cfg.Extraction.TestMode {
		log.Println("⚠️ SKILL_EXTRACTOR_TEST set: using deterministic test-mode extractor")
		return extractor.NewTestModeExtractor(), "test-mode-keyword-matcher"
	}

	googleApiKey := mustEnv("GOOGLE_API_KEY")
	llm, err := extractor.NewLLMExtractor(context.Background(), googleApiKey, cfg.Extraction.ExtractorModel, cfg.Extraction.MaxSpansPerSkill)
	if err != nil {
		log.Fatalf("failed to create LLM extractor: %v", err)
	}
	return llm, cfg.Extraction.ExtractorModel
}

func buildVectorIndex(db *sql.DB, embeddingModel string) (vectorindex.Index, error) {
	googleApiKey := mustEnv("GOOGLE_API_KEY")
	embedder, err := vectorindex.NewGenAIEmbedder(context.Background(), googleApiKey, embeddingModel)
	if err != nil {
		return nil, err
	}
	return vectorindex.New(db, embedder), nil
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("empty %s in environment", key)
	}
	return v
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return fallback
	}
	return n
}
