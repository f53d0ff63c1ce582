package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twnlp/dbqa/internal/docstore"
	"github.com/twnlp/dbqa/internal/log"
)

type fakeStore struct {
	added   []docstore.Document
	batched []docstore.Document
	vectors [][]float32
	err     error
}

func (f *fakeStore) Add(_ context.Context, doc docstore.Document) error {
	if f.err != nil {
		return f.err
	}
	f.added = append(f.added, doc)
	return nil
}

func (f *fakeStore) AddBatch(_ context.Context, docs []docstore.Document, vectors [][]float32) error {
	if f.err != nil {
		return f.err
	}
	f.batched = append(f.batched, docs...)
	f.vectors = append(f.vectors, vectors...)
	return nil
}

type countingEmbedder struct {
	texts []string
	err   error
}

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.texts = append(c.texts, texts...)
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(i)}
	}
	return vectors, nil
}

func newTestService(store *fakeStore, emb *countingEmbedder) *Service {
	return NewService(store, emb, NewSplitter(512, 128), log.NewNop())
}

func TestService_IndexDir(t *testing.T) {
	t.Parallel()

	t.Run("stores one document per chunk", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFile(t, dir, "doc.txt", "內政部負責戶政業務。")

		store := &fakeStore{}
		svc := newTestService(store, &countingEmbedder{})

		stored, err := svc.IndexDir(context.Background(), dir, false)
		require.NoError(t, err)
		assert.Equal(t, 1, stored)
		require.Len(t, store.added, 1)

		doc := store.added[0]
		assert.Equal(t, "內政部負責戶政業務。", doc.Content)
		assert.Equal(t, "file", doc.Metadata["source_type"])
		assert.Equal(t, "0", doc.Metadata["chunk"])
		assert.NotEmpty(t, doc.Metadata["run_id"])
	})

	t.Run("store failure aborts the run", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFile(t, dir, "doc.txt", "內容")

		store := &fakeStore{err: errors.New("connection lost")}
		svc := newTestService(store, &countingEmbedder{})

		_, err := svc.IndexDir(context.Background(), dir, false)
		require.Error(t, err)
	})
}

func TestService_IndexQA(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "qa.csv",
		"prompt,response,resource,postd_date\n如何報稅？,請使用線上報稅系統。,財政部,2023-05-01\n")

	store := &fakeStore{}
	emb := &countingEmbedder{}
	svc := newTestService(store, emb)

	stored, err := svc.IndexQA(context.Background(), dir+"/qa.csv")
	require.NoError(t, err)

	// One row, indexed under question and answer.
	assert.Equal(t, 2, stored)
	assert.Equal(t, []string{"如何報稅？", "請使用線上報稅系統。"}, emb.texts)
	require.Len(t, store.batched, 2)
	assert.Equal(t, store.batched[0].Content, store.batched[1].Content)
	assert.NotEqual(t, store.batched[0].ID, store.batched[1].ID)
	assert.Equal(t, "gov_qa", store.batched[0].Metadata["source_type"])
	require.Len(t, store.vectors, 2)
}

func TestService_IndexGRB(t *testing.T) {
	t.Parallel()

	t.Run("indexes titles and abstracts", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeJSONL(t, dir, "grb.jsonl",
			`{"title_zh":"水資源研究","title_zhtw":"水資源研究","abstract_zhtw":"研究水資源管理。"}`+"\n")

		store := &fakeStore{}
		emb := &countingEmbedder{}
		svc := newTestService(store, emb)

		stored, err := svc.IndexGRB(context.Background(), dir)
		require.NoError(t, err)
		assert.Equal(t, 2, stored)
		assert.Equal(t, []string{"水資源研究", "研究水資源管理。"}, emb.texts)
		assert.Equal(t, "grb", store.batched[0].Metadata["source_type"])
	})

	t.Run("embedder failure aborts the run", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeJSONL(t, dir, "grb.jsonl", `{"title_zh":"某計畫"}`+"\n")

		svc := newTestService(&fakeStore{}, &countingEmbedder{err: errors.New("ollama down")})
		_, err := svc.IndexGRB(context.Background(), dir)
		require.Error(t, err)
	})
}
