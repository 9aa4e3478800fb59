package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/firebase/genkit/go/ai"

	"github.com/docdex/docdex/internal/config"
)

type memDoc struct {
	content  string
	metadata map[string]string
	vec      []float32
}

// Memory is an in-process vector store with cosine similarity search.
// It mirrors the pgvector backend's semantics, including batch-wise
// Add commits, so tests exercise the same contract the production
// store honors. Safe for concurrent use.
type Memory struct {
	mu         sync.RWMutex
	docs       map[string]memDoc
	collection string
	embedder   ai.Embedder
	batchSize  int
}

// NewMemory creates an empty in-memory store.
func NewMemory(collection string, embedder ai.Embedder, batchSize int) *Memory {
	if batchSize <= 0 {
		batchSize = config.DefaultBatchSize
	}
	return &Memory{
		docs:       make(map[string]memDoc),
		collection: collection,
		embedder:   embedder,
		batchSize:  batchSize,
	}
}

// Add upserts documents batch by batch. A failing batch aborts the
// remainder; earlier batches stay committed and the returned
// *BatchError reports their document count.
func (m *Memory) Add(ctx context.Context, docs []Document) error {
	committed := 0
	for start := 0; start < len(docs); start += m.batchSize {
		end := min(start+m.batchSize, len(docs))
		batch := docs[start:end]

		texts := make([]string, len(batch))
		for i, doc := range batch {
			texts[i] = doc.Content
		}
		vectors, err := embedTexts(ctx, m.embedder, texts)
		if err != nil {
			return &BatchError{Committed: committed, Err: err}
		}

		m.mu.Lock()
		for i, doc := range batch {
			metadata := make(map[string]string, len(doc.Metadata))
			for k, v := range doc.Metadata {
				metadata[k] = v
			}
			m.docs[doc.ID] = memDoc{content: doc.Content, metadata: metadata, vec: vectors[i]}
		}
		m.mu.Unlock()
		committed += len(batch)
	}
	return nil
}

// Search returns the topK documents by cosine similarity whose
// metadata contains every filter entry.
func (m *Memory) Search(ctx context.Context, query string, topK int, filter map[string]string) ([]SearchResult, error) {
	vectors, err := embedTexts(ctx, m.embedder, []string{query})
	if err != nil {
		return nil, err
	}
	queryVec := vectors[0]

	m.mu.RLock()
	results := make([]SearchResult, 0, len(m.docs))
	for _, doc := range m.docs {
		if !matchesFilter(doc.metadata, filter) {
			continue
		}
		metadata := make(map[string]string, len(doc.metadata))
		for k, v := range doc.metadata {
			metadata[k] = v
		}
		results = append(results, SearchResult{
			Content:  doc.content,
			Metadata: metadata,
			Score:    cosineSimilarity(queryVec, doc.vec),
		})
	}
	m.mu.RUnlock()

	// Content tie-break keeps result order deterministic across runs.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Content < results[j].Content
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Info returns collection statistics.
func (m *Memory) Info(context.Context) (Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dims := 0
	for _, doc := range m.docs {
		dims = len(doc.vec)
		break
	}
	return Info{
		Collection: m.collection,
		Backend:    config.BackendMemory,
		Documents:  len(m.docs),
		Dimensions: dims,
	}, nil
}

// Clear removes every document.
func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = make(map[string]memDoc)
	return nil
}

func (*Memory) Close() error { return nil }

func matchesFilter(metadata, filter map[string]string) bool {
	for k, want := range filter {
		if got, ok := metadata[k]; !ok || got != want {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
