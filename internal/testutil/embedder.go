// Package testutil provides shared test doubles for docdex packages.
package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// EmbedDim is the dimensionality of Embedder vectors.
const EmbedDim = 64

// Embedder implements ai.Embedder with deterministic bag-of-words
// vectors: each token hashes to a dimension, so texts sharing tokens
// score higher under cosine similarity. This gives relevance-ranking
// tests meaningful orderings without a model behind them.
type Embedder struct {
	Err       error // returned from Embed when set
	CallCount int
}

func (e *Embedder) Name() string { return "test-embedder" }

func (e *Embedder) Register(api.Registry) {}

func (e *Embedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	e.CallCount++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.Err != nil {
		return nil, e.Err
	}

	resp := &ai.EmbedResponse{}
	for _, doc := range req.Input {
		var text strings.Builder
		for _, part := range doc.Content {
			text.WriteString(part.Text)
			text.WriteByte(' ')
		}
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{
			Embedding: EmbedText(text.String()),
		})
	}
	return resp, nil
}

// EmbedText computes the deterministic vector for a text. Exposed so
// tests can predict similarity orderings.
func EmbedText(text string) []float32 {
	vec := make([]float32, EmbedDim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,;:!?()[]{}\"'`")
		if token == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[h.Sum32()%EmbedDim]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}
