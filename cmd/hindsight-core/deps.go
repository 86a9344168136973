package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ersonp/hindsight-core/internal/application/handlers"
	"github.com/ersonp/hindsight-core/internal/domain/services"
	"github.com/ersonp/hindsight-core/internal/infrastructure/config"
	"github.com/ersonp/hindsight-core/internal/infrastructure/dedup"
	embedder "github.com/ersonp/hindsight-core/internal/infrastructure/embedder/openai"
	"github.com/ersonp/hindsight-core/internal/infrastructure/entityresolver"
	llm "github.com/ersonp/hindsight-core/internal/infrastructure/llm/openai"
	"github.com/ersonp/hindsight-core/internal/infrastructure/queryanalyzer/heuristic"
	"github.com/ersonp/hindsight-core/internal/infrastructure/store/sqlite"
	"github.com/ersonp/hindsight-core/internal/infrastructure/taskbackend/inmemory"
)

// Deps holds the high-level dependencies commands work with. Only
// handlers are exposed; the engine and its collaborators stay internal.
type Deps struct {
	Config        *config.Config
	Profiles      *config.ProfilesConfig
	RetainHandler *handlers.RetainHandler
	RecallHandler *handlers.RecallHandler
	BankHandler   *handlers.BankHandler
}

// withDeps loads config, builds the engine and handlers, runs fn, and
// cleans up on every exit path.
func withDeps(fn func(*Deps) error) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	profiles, err := config.LoadProfiles(cwd)
	if err != nil {
		return fmt.Errorf("loading bank profiles: %w", err)
	}

	repo, err := sqlite.NewRepository(cfg.Store)
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	defer repo.Close()

	ctx := context.Background()
	if err := repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}

	emb, err := embedder.NewEmbedder(cfg.Embedder)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	llmClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return fmt.Errorf("creating llm client: %w", err)
	}

	tasks := inmemory.NewBackend(64)
	defer tasks.Close()

	engine := services.NewEngine(
		repo,
		llmClient,
		emb,
		dedup.NewChecker(repo, 0),
		entityresolver.NewMentionResolver(),
		tasks,
		heuristic.NewAnalyzer(),
		services.Tuning{
			TimeWindowHours:    cfg.Retain.TimeWindowHours,
			SemanticFloor:      cfg.Retain.SemanticFloor,
			SemanticTopK:       cfg.Retain.SemanticTopK,
			MaxExtractionChars: cfg.Retain.MaxExtractionChars,
			ExtractionRetries:  cfg.Retain.ExtractionRetries,
		},
	)

	return fn(&Deps{
		Config:        cfg,
		Profiles:      profiles,
		RetainHandler: handlers.NewRetainHandler(engine),
		RecallHandler: handlers.NewRecallHandler(engine),
		BankHandler:   handlers.NewBankHandler(engine),
	})
}
