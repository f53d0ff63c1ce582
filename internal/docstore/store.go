// Package docstore persists and searches document embeddings in
// PostgreSQL + pgvector. It replaces the upstream FAISS on-disk index
// with a shared, transactional store; similarity is cosine throughout.
package docstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// Embedder turns texts into vectors. Defined here, on the consumer side;
// internal/embed provides the production implementation.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// DB is the slice of pgxpool.Pool the store needs. Tests substitute a
// fake; production hands in the pool directly.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	upsertSQL = `INSERT INTO documents (id, content, embedding, metadata, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
SET content = EXCLUDED.content,
    embedding = EXCLUDED.embedding,
    metadata = EXCLUDED.metadata`

	searchSQL = `SELECT id, content, metadata, created_at,
	1 - (embedding <=> $1) AS similarity
FROM documents
WHERE $2::jsonb IS NULL OR metadata @> $2
ORDER BY embedding <=> $1
LIMIT $3`

	countSQL = `SELECT count(*) FROM documents WHERE $1::jsonb IS NULL OR metadata @> $1`
)

// Store manages the documents table. Safe for concurrent use.
type Store struct {
	db       DB
	embedder Embedder
	logger   *slog.Logger
}

// New creates a Store.
func New(db DB, embedder Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, embedder: embedder, logger: logger}
}

// ContentID derives a stable document ID from content, for loaders that
// have no natural key. Re-ingesting identical content upserts in place.
func ContentID(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:16])
}

// Add embeds doc.Content and upserts the document. An empty ID gets a
// content-derived one.
func (s *Store) Add(ctx context.Context, doc Document) error {
	vectors, err := s.embedder.Embed(ctx, []string{doc.Content})
	if err != nil {
		return fmt.Errorf("embedding document: %w", err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return fmt.Errorf("embedder returned %d vectors for one document", len(vectors))
	}
	return s.upsert(ctx, doc, vectors[0])
}

// AddBatch upserts documents with caller-precomputed embeddings. The QA
// and GRB dataset builders use it to index one document body under
// several index texts (vectors computed over the index text, stored with
// the shared body).
func (s *Store) AddBatch(ctx context.Context, docs []Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("document/vector count mismatch: %d vs %d", len(docs), len(vectors))
	}
	for i, doc := range docs {
		if err := s.upsert(ctx, doc, vectors[i]); err != nil {
			return fmt.Errorf("upserting document %d of %d: %w", i+1, len(docs), err)
		}
	}
	s.logger.Debug("batch stored", "documents", len(docs))
	return nil
}

func (s *Store) upsert(ctx context.Context, doc Document, vector []float32) error {
	if doc.ID == "" {
		doc.ID = ContentID(doc.Content)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	embedding := pgvector.NewVector(vector)
	if _, err := s.db.Exec(ctx, upsertSQL, doc.ID, doc.Content, embedding, metadata, doc.CreatedAt); err != nil {
		return fmt.Errorf("upserting document %q: %w", doc.ID, err)
	}
	return nil
}

// Search embeds the query and returns the most similar documents,
// best first.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}

	filter, err := marshalFilter(cfg.filter)
	if err != nil {
		return nil, err
	}

	// Vector scans can stall on cold indexes; bound them independently
	// of the caller's deadline.
	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rows, err := s.db.Query(queryCtx, searchSQL, pgvector.NewVector(vectors[0]), filter, cfg.topK)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			doc        Document
			rawMeta    []byte
			similarity float32
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &rawMeta, &doc.CreatedAt, &similarity); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		if len(rawMeta) > 0 {
			if err := json.Unmarshal(rawMeta, &doc.Metadata); err != nil {
				return nil, fmt.Errorf("decoding metadata for %q: %w", doc.ID, err)
			}
		}
		results = append(results, Result{Document: doc, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search rows: %w", err)
	}

	s.logger.Debug("search complete", "hits", len(results), "top_k", cfg.topK)
	return results, nil
}

// Count returns the number of documents matching the metadata filter
// (nil counts everything).
func (s *Store) Count(ctx context.Context, filter map[string]string) (int64, error) {
	raw, err := marshalFilter(filter)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := s.db.QueryRow(ctx, countSQL, raw).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

// marshalFilter returns nil for an empty filter so the SQL falls through
// to the unfiltered branch.
func marshalFilter(filter map[string]string) ([]byte, error) {
	if len(filter) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata filter: %w", err)
	}
	return raw, nil
}
