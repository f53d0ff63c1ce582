package docstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twnlp/dbqa/internal/docstore"
	"github.com/twnlp/dbqa/internal/log"
	"github.com/twnlp/dbqa/internal/testutil"
)

// hashEmbedder is a deterministic stand-in for a real embedding model.
// Each text maps to a 768-dim vector seeded from its bytes, so equal
// texts are nearest neighbours of each other.
type hashEmbedder struct{}

func (hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, 768)
		for j, r := range text {
			v[(j*31+int(r))%768] += 1
		}
		vectors[i] = v
	}
	return vectors, nil
}

func TestStore_AddSearch_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	testDB, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := docstore.New(testDB.Pool, hashEmbedder{}, log.NewNop())

	docs := []docstore.Document{
		{
			Content:  "臺灣的首都是臺北市。",
			Metadata: map[string]string{"source": "geo.txt"},
		},
		{
			Content:  "Go is a statically typed, compiled programming language.",
			Metadata: map[string]string{"source": "lang.txt"},
		},
	}
	for _, doc := range docs {
		require.NoError(t, store.Add(ctx, doc))
	}

	results, err := store.Search(ctx, "臺灣的首都是臺北市。", docstore.WithTopK(1))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "臺灣的首都是臺北市。", results[0].Content)
	assert.Equal(t, "geo.txt", results[0].Metadata["source"])
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)

	count, err := store.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	filtered, err := store.Count(ctx, map[string]string{"source": "lang.txt"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), filtered)
}

func TestStore_AddTwice_Upserts_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	testDB, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := docstore.New(testDB.Pool, hashEmbedder{}, log.NewNop())

	doc := docstore.Document{ID: "doc-1", Content: "first version"}
	require.NoError(t, store.Add(ctx, doc))

	doc.Content = "second version"
	require.NoError(t, store.Add(ctx, doc))

	count, err := store.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	results, err := store.Search(ctx, "second version", docstore.WithTopK(1))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "second version", results[0].Content)
}
