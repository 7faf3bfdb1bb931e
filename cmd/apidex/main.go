// Command apidex is the hybrid API catalog search engine.
//
// main is the composition root: it builds the driven adapters from
// configuration, wires them into the core services, and hands control to
// the CLI adapter.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/apidex-labs/apidex/internal/adapters/driven/config/file"
	"github.com/apidex-labs/apidex/internal/adapters/driven/embedding/ollama"
	"github.com/apidex-labs/apidex/internal/adapters/driven/embedding/openai"
	"github.com/apidex-labs/apidex/internal/adapters/driven/index/hnsw"
	"github.com/apidex-labs/apidex/internal/adapters/driven/index/lexical"
	"github.com/apidex-labs/apidex/internal/adapters/driven/rerank"
	"github.com/apidex-labs/apidex/internal/adapters/driven/storage/sqlite"
	"github.com/apidex-labs/apidex/internal/adapters/driving/cli"
	"github.com/apidex-labs/apidex/internal/chunker"
	"github.com/apidex-labs/apidex/internal/core/ports/driven"
	"github.com/apidex-labs/apidex/internal/core/services"
	"github.com/apidex-labs/apidex/internal/logger"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "apidex: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := file.NewConfigStore(os.Getenv("APIDEX_CONFIG_DIR"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	settings, err := cfg.EngineSettings()
	if err != nil {
		return fmt.Errorf("engine settings: %w", err)
	}

	store, err := sqlite.NewStore(cfg.GetString("storage.data_dir"))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	docStore := store.DocumentStore()
	profileStore := store.ProfileStore()

	embedder := buildEmbedder(cfg)
	encoder := buildEncoder(cfg)

	lexicalIndex := lexical.New()

	var vectorIndex driven.VectorIndex
	if embedder != nil {
		idx, err := hnsw.New(embedder.Dimensions())
		if err != nil {
			return fmt.Errorf("vector index: %w", err)
		}
		vectorIndex = idx
	} else {
		logger.Warn("No embedding provider configured; running lexical-only")
	}

	ingestSvc, err := services.NewIngestService(
		docStore, lexicalIndex, vectorIndex, embedder, chunker.New())
	if err != nil {
		return fmt.Errorf("ingest service: %w", err)
	}

	searchSvc, err := services.NewSearchService(
		docStore, lexicalIndex, vectorIndex, embedder, encoder, profileStore, settings)
	if err != nil {
		return fmt.Errorf("search service: %w", err)
	}

	// Both indexes live in memory; warm them from the document store.
	if err := ingestSvc.RebuildIndexes(ctx); err != nil {
		return fmt.Errorf("warming indexes: %w", err)
	}

	cli.Configure(cli.Wiring{
		Search:    searchSvc,
		Ingest:    ingestSvc,
		Profiles:  profileStore,
		Documents: docStore,
	})

	return cli.Execute(version)
}

// buildEmbedder constructs the configured embedding client, or nil when
// no provider is configured.
func buildEmbedder(cfg *file.ConfigStore) driven.EmbeddingService {
	switch cfg.GetString("embedding.provider") {
	case "openai":
		svc, err := openai.NewEmbeddingService(openai.Config{
			APIKey:            firstNonEmpty(cfg.GetString("embedding.api_key"), os.Getenv("OPENAI_API_KEY")),
			BaseURL:           cfg.GetString("embedding.base_url"),
			Model:             cfg.GetString("embedding.model"),
			Dimensions:        cfg.GetInt("embedding.dimensions"),
			RequestsPerSecond: cfg.GetFloat("embedding.requests_per_second"),
		})
		if err != nil {
			logger.Warn("OpenAI embedding unavailable: %v", err)
			return nil
		}
		return svc
	case "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.GetString("embedding.base_url"),
			Model:      cfg.GetString("embedding.model"),
			Dimensions: cfg.GetInt("embedding.dimensions"),
		})
	default:
		return nil
	}
}

// buildEncoder constructs the cross-encoder client, or nil when re-ranking
// is not configured.
func buildEncoder(cfg *file.ConfigStore) driven.CrossEncoder {
	if !cfg.GetBool("rerank.enabled") {
		return nil
	}
	return rerank.NewCrossEncoder(rerank.Config{
		BaseURL:           cfg.GetString("rerank.base_url"),
		Model:             cfg.GetString("rerank.model"),
		RequestsPerSecond: cfg.GetFloat("rerank.requests_per_second"),
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
