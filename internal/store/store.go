// Package store provides vector storage backends for documentation
// chunks. The pgvector backend is the production store; the memory
// backend serves development and tests.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"

	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/log"
)

// Sentinel errors for store failures. Callers classify with errors.Is.
var (
	// ErrStoreUnavailable indicates the backend cannot be reached.
	// Transient; retryable with backoff.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrCollectionNotFound indicates the collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrTimeout indicates an operation exceeded its deadline.
	ErrTimeout = errors.New("store operation timed out")
)

// BatchError reports a partial Add failure. Batches commit
// independently; Committed counts documents durably stored before the
// failing batch.
type BatchError struct {
	Committed int
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("add failed after %d documents committed: %v", e.Committed, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Document is a unit of indexed content.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// SearchResult is one search hit. Score is cosine similarity in [0, 1],
// higher is more similar.
type SearchResult struct {
	Content  string
	Metadata map[string]string
	Score    float64
}

// Info describes a collection.
type Info struct {
	Collection string `json:"collection"`
	Backend    string `json:"backend"`
	Documents  int    `json:"documents"`
	Dimensions int    `json:"dimensions"`
}

// VectorStore is the interface consumed by the access control layer and
// the ingestion pipeline.
//
// Add upserts documents in independent batches; on a batch failure it
// returns a *BatchError carrying the committed count. Search returns
// the topK most similar documents matching every filter entry exactly.
type VectorStore interface {
	Add(ctx context.Context, docs []Document) error
	Search(ctx context.Context, query string, topK int, filter map[string]string) ([]SearchResult, error)
	Info(ctx context.Context) (Info, error)
	Clear(ctx context.Context) error
	Close() error
}

// New creates the vector store selected by cfg.Backend.
func New(ctx context.Context, cfg *config.Config, embedder ai.Embedder, logger log.Logger) (VectorStore, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemory(cfg.Collection, embedder, cfg.BatchSize), nil
	case config.BackendPgvector:
		pool, err := NewPool(ctx, cfg.PostgresURL())
		if err != nil {
			return nil, err
		}
		return NewPG(pool, embedder, cfg, logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrInvalidBackend, cfg.Backend)
	}
}

// embedTexts generates one embedding per text in a single request.
func embedTexts(ctx context.Context, embedder ai.Embedder, texts []string) ([][]float32, error) {
	docs := make([]*ai.Document, len(texts))
	for i, text := range texts {
		docs[i] = ai.DocumentFromText(text, nil)
	}

	resp, err := embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return nil, fmt.Errorf("generating embeddings: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if len(emb.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", i)
		}
		vectors[i] = emb.Embedding
	}
	return vectors, nil
}
