// Package app wires docdex's components together for the CLI
// entrypoints: configuration, embedder, vector store, credential
// registry, access guard and document loader.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/docdex/docdex/internal/auth"
	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/docload"
	"github.com/docdex/docdex/internal/log"
	"github.com/docdex/docdex/internal/store"
)

// App holds the initialized application components. Create with Setup
// and release with Close.
type App struct {
	Config   *config.Config
	Logger   log.Logger
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Store    store.VectorStore
	Registry *auth.Registry
	Guard    *auth.Guard
	Loader   *docload.Loader
}

// Close releases the app's resources. Safe to call on a partially
// initialized App.
func (a *App) Close() error {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			return err
		}
	}
	return nil
}
