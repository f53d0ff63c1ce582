package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twnlp/dbqa/internal/log"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoader_LoadDir(t *testing.T) {
	t.Parallel()

	t.Run("loads supported files recursively", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFile(t, dir, "a.txt", "純文字內容")
		writeFile(t, dir, "sub/b.md", "# 標題")
		writeFile(t, dir, "c.bin", "binary")

		loader := NewLoader(false, log.NewNop())
		files, result, err := loader.LoadDir(dir)
		require.NoError(t, err)

		assert.Equal(t, 2, result.Loaded)
		assert.Equal(t, 1, result.Skipped)
		require.Len(t, files, 2)
	})

	t.Run("honors gitignore", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFile(t, dir, ".gitignore", "ignored/\nsecret.txt\n")
		writeFile(t, dir, "kept.txt", "keep me")
		writeFile(t, dir, "secret.txt", "drop me")
		writeFile(t, dir, "ignored/deep.txt", "drop me too")

		loader := NewLoader(false, log.NewNop())
		files, _, err := loader.LoadDir(dir)
		require.NoError(t, err)

		require.Len(t, files, 1)
		assert.Contains(t, files[0].Path, "kept.txt")
	})

	t.Run("extracts text from html files", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFile(t, dir, "page.html",
			`<html><body><p>網頁正文內容，與民眾申辦業務相關的說明文字。</p><script>junk()</script></body></html>`)

		loader := NewLoader(false, log.NewNop())
		files, _, err := loader.LoadDir(dir)
		require.NoError(t, err)

		require.Len(t, files, 1)
		assert.Contains(t, files[0].Content, "網頁正文內容")
		assert.NotContains(t, files[0].Content, "junk()")
	})

	t.Run("force html parses every file as html", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFile(t, dir, "page.data",
			`<html><body><p>偽裝副檔名的網頁，內容仍應被抽取出來。</p></body></html>`)

		loader := NewLoader(true, log.NewNop())
		files, _, err := loader.LoadDir(dir)
		require.NoError(t, err)

		require.Len(t, files, 1)
		assert.Contains(t, files[0].Content, "偽裝副檔名的網頁")
	})

	t.Run("empty files are skipped", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFile(t, dir, "empty.txt", "   \n")

		loader := NewLoader(false, log.NewNop())
		files, result, err := loader.LoadDir(dir)
		require.NoError(t, err)

		assert.Empty(t, files)
		assert.Equal(t, 1, result.Skipped)
	})

	t.Run("missing directory fails", func(t *testing.T) {
		t.Parallel()
		loader := NewLoader(false, log.NewNop())
		_, result, err := loader.LoadDir(filepath.Join(t.TempDir(), "nope"))
		require.NoError(t, err)
		assert.Equal(t, 1, result.Failed)
	})
}
