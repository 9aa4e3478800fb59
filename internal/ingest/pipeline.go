package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docdex/docdex/internal/auth"
	"github.com/docdex/docdex/internal/chunk"
	"github.com/docdex/docdex/internal/docload"
	"github.com/docdex/docdex/internal/log"
	"github.com/docdex/docdex/internal/store"
)

// Loader loads a source into chunks. *docload.Loader implements it.
type Loader interface {
	Load(ctx context.Context, source string, maxDepth int) ([]chunk.Chunk, error)
}

// Index is the write side of the documentation index. *auth.Guard
// implements it; going through the guard keeps CLI-ingested documents
// stamped with their organization like any other write.
type Index interface {
	Add(ctx context.Context, id auth.Identity, docs []store.Document) error
	Search(ctx context.Context, id auth.Identity, query string, topK int, filter map[string]string) ([]store.SearchResult, error)
	Info(ctx context.Context, id auth.Identity) (store.Info, error)
}

// Clearer empties the collection before ingestion.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Options controls a pipeline run.
type Options struct {
	// Clear empties the collection before loading.
	Clear bool

	// MaxDepth bounds link-following for URL sources.
	MaxDepth int
}

// SourceResult is the outcome for one source.
type SourceResult struct {
	Source string
	Chunks int
	Err    error
}

// Report summarizes a pipeline run.
type Report struct {
	Sources     []SourceResult
	TotalChunks int
}

// Failed returns the sources that produced an error.
func (r *Report) Failed() []SourceResult {
	var failed []SourceResult
	for _, src := range r.Sources {
		if src.Err != nil {
			failed = append(failed, src)
		}
	}
	return failed
}

// SmokeResult is the outcome of one post-ingestion test query.
type SmokeResult struct {
	Query     string
	Results   int
	TopSource string
}

// Pipeline ingests documentation sources into the index.
type Pipeline struct {
	loader   Loader
	index    Index
	clearer  Clearer
	identity auth.Identity
	logger   log.Logger
}

// New creates a pipeline. All writes run as the given identity.
func New(loader Loader, index Index, clearer Clearer, identity auth.Identity, logger log.Logger) *Pipeline {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Pipeline{
		loader:   loader,
		index:    index,
		clearer:  clearer,
		identity: identity,
		logger:   logger,
	}
}

// Run loads every source and indexes its chunks. Directory sources
// expand to the YAML files they contain. A failing source is recorded
// and skipped; the run continues with the rest. The returned error is
// non-nil only for failures that stop the whole run.
func (p *Pipeline) Run(ctx context.Context, sources []string, opts Options) (*Report, error) {
	if opts.Clear {
		if err := p.clearer.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clearing collection: %w", err)
		}
		p.logger.Info("collection cleared before ingestion")
	}

	expanded, err := expandSources(sources)
	if err != nil {
		return nil, err
	}
	if len(expanded) == 0 {
		return nil, fmt.Errorf("no sources to ingest")
	}

	report := &Report{}
	for _, source := range expanded {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result := SourceResult{Source: source}
		chunks, err := p.loader.Load(ctx, source, opts.MaxDepth)
		if err != nil {
			var parseErr *docload.ParseError
			if errors.As(err, &parseErr) {
				p.logger.Warn("skipping malformed source", "source", source, "error", err)
			} else {
				p.logger.Error("failed to load source", "source", source, "error", err)
			}
			result.Err = err
			report.Sources = append(report.Sources, result)
			continue
		}
		if len(chunks) == 0 {
			p.logger.Warn("no chunks generated", "source", source)
			report.Sources = append(report.Sources, result)
			continue
		}

		if err := p.index.Add(ctx, p.identity, Documents(chunks)); err != nil {
			var batchErr *store.BatchError
			if errors.As(err, &batchErr) {
				result.Chunks = batchErr.Committed
				report.TotalChunks += batchErr.Committed
			}
			result.Err = err
			p.logger.Error("failed to index source", "source", source, "error", err)
			report.Sources = append(report.Sources, result)
			continue
		}

		result.Chunks = len(chunks)
		report.TotalChunks += len(chunks)
		report.Sources = append(report.Sources, result)
		p.logger.Info("source ingested", "source", source, "chunks", len(chunks))
	}

	return report, nil
}

// Info returns collection statistics as the pipeline's identity.
func (p *Pipeline) Info(ctx context.Context) (store.Info, error) {
	return p.index.Info(ctx, p.identity)
}

// Smoke runs a fixed set of test queries against the freshly loaded
// index so ingestion problems surface immediately instead of at first
// real use.
func (p *Pipeline) Smoke(ctx context.Context) ([]SmokeResult, error) {
	queries := []string{"authentication", "API endpoints", "schema", "examples"}

	results := make([]SmokeResult, 0, len(queries))
	for _, query := range queries {
		hits, err := p.index.Search(ctx, p.identity, query, 2, nil)
		if err != nil {
			return results, fmt.Errorf("smoke query %q: %w", query, err)
		}
		res := SmokeResult{Query: query, Results: len(hits)}
		if len(hits) > 0 {
			res.TopSource = hits[0].Metadata["url"]
		}
		results = append(results, res)
	}
	return results, nil
}

// expandSources replaces directory entries with the YAML files they
// contain (non-recursive). URLs and plain files pass through.
func expandSources(sources []string) ([]string, error) {
	var expanded []string
	for _, source := range sources {
		if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
			expanded = append(expanded, source)
			continue
		}

		stat, err := os.Stat(source)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", source, err)
		}
		if !stat.IsDir() {
			expanded = append(expanded, source)
			continue
		}

		entries, err := os.ReadDir(source)
		if err != nil {
			return nil, fmt.Errorf("reading directory %s: %w", source, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(entry.Name())) {
			case ".yaml", ".yml":
				expanded = append(expanded, filepath.Join(source, entry.Name()))
			}
		}
	}
	return expanded, nil
}
