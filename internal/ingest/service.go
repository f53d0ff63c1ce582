package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/twnlp/dbqa/internal/docstore"
)

// Store is the slice of the document store this package writes to.
type Store interface {
	Add(ctx context.Context, doc docstore.Document) error
	AddBatch(ctx context.Context, docs []docstore.Document, vectors [][]float32) error
}

// Embedder computes vectors for the dataset loaders that index a
// document under texts other than its body.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Service runs full indexing passes: load, chunk, embed, store. Every
// pass gets a run ID that lands in the stored metadata.
type Service struct {
	store    Store
	embedder Embedder
	splitter *Splitter
	logger   *slog.Logger
}

func NewService(store Store, embedder Embedder, splitter *Splitter, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		embedder: embedder,
		splitter: splitter,
		logger:   logger,
	}
}

// IndexDir loads every supported file under dir, chunks the contents
// and stores each chunk embedded from its own text. Returns the number
// of chunks stored.
func (s *Service) IndexDir(ctx context.Context, dir string, forceHTML bool) (int, error) {
	runID := uuid.NewString()
	loader := NewLoader(forceHTML, s.logger)

	files, result, err := loader.LoadDir(dir)
	if err != nil {
		return 0, err
	}
	s.logger.Info("documents loaded",
		"loaded", result.Loaded, "skipped", result.Skipped,
		"failed", result.Failed, "duration", result.Duration)

	texts := make([]string, len(files))
	for i, f := range files {
		texts[i] = f.Content
	}
	chunked := s.splitter.SplitAll(texts)

	stored := 0
	indexedAt := time.Now().Format(time.RFC3339)
	for i, chunks := range chunked {
		for j, chunk := range chunks {
			doc := docstore.Document{
				Content: chunk,
				Metadata: map[string]string{
					"source":      files[i].Path,
					"source_type": "file",
					"chunk":       strconv.Itoa(j),
					"run_id":      runID,
					"indexed_at":  indexedAt,
				},
			}
			if err := s.store.Add(ctx, doc); err != nil {
				return stored, fmt.Errorf("storing chunk %d of %s: %w", j, files[i].Path, err)
			}
			stored++
		}
	}

	s.logger.Info("directory indexed", "run_id", runID, "chunks", stored)
	return stored, nil
}

// IndexQA indexes a government QA dataset. Each row's document body is
// stored twice, embedded once from the question and once from the
// answer, so either phrasing retrieves the full entry.
func (s *Service) IndexQA(ctx context.Context, path string) (int, error) {
	prepared, err := LoadQACSV(path)
	if err != nil {
		return 0, err
	}
	return s.indexPrepared(ctx, prepared, "gov_qa", filepath.Base(path))
}

// IndexGRB indexes research-project JSONL records under dir, one
// stored document per non-empty title or abstract.
func (s *Service) IndexGRB(ctx context.Context, dir string) (int, error) {
	prepared, err := LoadGRB(dir)
	if err != nil {
		return 0, err
	}
	return s.indexPrepared(ctx, prepared, "grb", dir)
}

func (s *Service) indexPrepared(ctx context.Context, prepared []Prepared, sourceType, source string) (int, error) {
	runID := uuid.NewString()
	indexedAt := time.Now().Format(time.RFC3339)

	var indexTexts []string
	var docs []docstore.Document
	for _, p := range prepared {
		for _, indexText := range p.IndexTexts {
			indexTexts = append(indexTexts, indexText)
			docs = append(docs, docstore.Document{
				ID:      docstore.ContentID(p.Body + "\x00" + indexText),
				Content: p.Body,
				Metadata: map[string]string{
					"source":      source,
					"source_type": sourceType,
					"run_id":      runID,
					"indexed_at":  indexedAt,
				},
			})
		}
	}
	if len(docs) == 0 {
		return 0, nil
	}

	s.logger.Info("embedding index texts", "count", len(indexTexts))
	vectors, err := s.embedder.Embed(ctx, indexTexts)
	if err != nil {
		return 0, fmt.Errorf("embedding index texts: %w", err)
	}

	if err := s.store.AddBatch(ctx, docs, vectors); err != nil {
		return 0, fmt.Errorf("storing documents: %w", err)
	}

	s.logger.Info("dataset indexed", "run_id", runID, "documents", len(docs))
	return len(docs), nil
}
