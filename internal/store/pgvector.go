package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/log"
)

// SQLSTATE for "relation does not exist".
const pgUndefinedTable = "42P01"

// upsertDocumentSQL conflicts on (collection, id): chunk IDs are
// content-derived and repeat across collections, so a plain id conflict
// target would let one collection's row absorb another's upsert.
const upsertDocumentSQL = `
	INSERT INTO documents (id, collection, content, embedding, metadata)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (collection, id) DO UPDATE SET
		content = EXCLUDED.content,
		embedding = EXCLUDED.embedding,
		metadata = EXCLUDED.metadata`

// NewPool creates a pgx connection pool with pgvector types registered
// on every connection.
func NewPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres config: %w", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping failed: %v", ErrStoreUnavailable, err)
	}
	return pool, nil
}

// PG stores documents in PostgreSQL with pgvector similarity search.
// Safe for concurrent use; the pool serializes connection access.
type PG struct {
	pool       *pgxpool.Pool
	embedder   ai.Embedder
	collection string
	batchSize  int
	timeout    time.Duration
	logger     log.Logger
}

// NewPG creates a pgvector-backed store. The pool is owned by the
// returned store and closed by Close.
func NewPG(pool *pgxpool.Pool, embedder ai.Embedder, cfg *config.Config, logger log.Logger) *PG {
	if logger == nil {
		logger = log.NewNop()
	}
	return &PG{
		pool:       pool,
		embedder:   embedder,
		collection: cfg.Collection,
		batchSize:  cfg.BatchSize,
		timeout:    time.Duration(cfg.StoreTimeoutMs) * time.Millisecond,
		logger:     logger,
	}
}

// Add upserts documents in batches of batchSize. Each batch embeds and
// commits independently; the first failing batch aborts the remainder
// and the returned *BatchError reports how many documents committed.
func (s *PG) Add(ctx context.Context, docs []Document) error {
	committed := 0
	for start := 0; start < len(docs); start += s.batchSize {
		end := min(start+s.batchSize, len(docs))
		if err := s.addBatch(ctx, docs[start:end]); err != nil {
			return &BatchError{Committed: committed, Err: s.mapErr(err)}
		}
		committed += end - start
	}
	s.logger.Debug("documents upserted", "collection", s.collection, "count", committed)
	return nil
}

func (s *PG) addBatch(ctx context.Context, docs []Document) error {
	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}
	vectors, err := embedTexts(opCtx, s.embedder, texts)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i, doc := range docs {
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata for %s: %w", doc.ID, err)
		}
		embedding := pgvector.NewVector(vectors[i])
		batch.Queue(upsertDocumentSQL,
			doc.ID, s.collection, doc.Content, embedding, metadataJSON)
	}

	results := s.pool.SendBatch(opCtx, batch)
	defer func() { _ = results.Close() }()
	for range docs {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// Search embeds the query and returns the topK most similar documents.
// filter entries are ANDed; each must match the stored metadata exactly.
func (s *PG) Search(ctx context.Context, query string, topK int, filter map[string]string) ([]SearchResult, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	vectors, err := embedTexts(opCtx, s.embedder, []string{query})
	if err != nil {
		return nil, s.mapErr(err)
	}
	queryVec := pgvector.NewVector(vectors[0])

	var filterJSON []byte
	if len(filter) > 0 {
		filterJSON, err = json.Marshal(filter)
		if err != nil {
			return nil, fmt.Errorf("marshaling filter: %w", err)
		}
	}

	// JSONB containment implements exact-match conjunction over the
	// filter entries; a NULL filter matches everything.
	rows, err := s.pool.Query(opCtx, `
		SELECT content, metadata, 1 - (embedding <=> $1) AS score
		FROM documents
		WHERE collection = $2
		  AND ($3::jsonb IS NULL OR metadata @> $3)
		ORDER BY embedding <=> $1
		LIMIT $4`,
		queryVec, s.collection, filterJSON, topK)
	if err != nil {
		return nil, s.mapErr(err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			content      string
			metadataJSON []byte
			score        float64
		)
		if err := rows.Scan(&content, &metadataJSON, &score); err != nil {
			return nil, s.mapErr(err)
		}
		metadata := map[string]string{}
		if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
			s.logger.Warn("unparseable document metadata", "error", err)
		}
		results = append(results, SearchResult{Content: content, Metadata: metadata, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, s.mapErr(err)
	}
	return results, nil
}

// Info returns collection statistics.
func (s *PG) Info(ctx context.Context) (Info, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var count, dims int
	err := s.pool.QueryRow(opCtx, `
		SELECT count(*), coalesce(max(vector_dims(embedding)), 0)
		FROM documents
		WHERE collection = $1`,
		s.collection).Scan(&count, &dims)
	if err != nil {
		return Info{}, s.mapErr(err)
	}
	return Info{
		Collection: s.collection,
		Backend:    config.BackendPgvector,
		Documents:  count,
		Dimensions: dims,
	}, nil
}

// Clear removes every document in the collection.
func (s *PG) Clear(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tag, err := s.pool.Exec(opCtx, `DELETE FROM documents WHERE collection = $1`, s.collection)
	if err != nil {
		return s.mapErr(err)
	}
	s.logger.Info("collection cleared", "collection", s.collection, "deleted", tag.RowsAffected())
	return nil
}

// Close closes the underlying connection pool.
func (s *PG) Close() error {
	s.pool.Close()
	return nil
}

// mapErr translates backend failures into the package's sentinel
// errors so callers never depend on pgx types.
func (s *PG) mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable {
		return fmt.Errorf("%w: %v", ErrCollectionNotFound, err)
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}
