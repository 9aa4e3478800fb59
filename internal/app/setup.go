package app

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/docdex/docdex/db"
	"github.com/docdex/docdex/internal/auth"
	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/docload"
	"github.com/docdex/docdex/internal/log"
	"github.com/docdex/docdex/internal/security"
	"github.com/docdex/docdex/internal/store"
)

// Setup creates and initializes the application. On error, anything
// already initialized is released before returning.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	if cfg.Backend == config.BackendPgvector {
		if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	g, embedder, err := provideEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Genkit = g
	a.Embedder = embedder

	st, err := store.New(ctx, cfg, embedder, logger)
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}
	a.Store = st

	a.Registry = auth.NewRegistry(cfg.RegistryPath, logger)
	a.Guard = auth.NewGuard(st, logger)
	a.Loader = docload.NewLoader(cfg.Crawler, security.NewURL(), logger)

	return a, nil
}

// provideEmbedder initializes Genkit with the Google AI plugin and
// looks up the configured embedding model. The plugin reads
// GEMINI_API_KEY from the environment.
func provideEmbedder(ctx context.Context, cfg *config.Config) (*genkit.Genkit, ai.Embedder, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, nil, fmt.Errorf("initializing genkit")
	}

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return nil, nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}
	return g, embedder, nil
}
