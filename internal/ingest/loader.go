package ingest

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"
)

// supportedExtensions are the file types the directory loader reads.
var supportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".json": true,
	".html": true,
	".htm":  true,
	".xml":  true,
}

// File is one loaded source document before chunking.
type File struct {
	Path    string
	Content string
}

// LoadResult summarizes one directory walk.
type LoadResult struct {
	Loaded   int
	Skipped  int
	Failed   int
	Duration time.Duration
}

// Loader reads every supported file under a directory, honoring the
// directory's .gitignore. With forceHTML set every file is parsed as
// HTML regardless of extension.
type Loader struct {
	forceHTML bool
	logger    *slog.Logger
}

func NewLoader(forceHTML bool, logger *slog.Logger) *Loader {
	return &Loader{forceHTML: forceHTML, logger: logger}
}

// LoadDir walks dir recursively and returns the readable files.
// Individual file failures are logged and counted, not fatal.
func (l *Loader) LoadDir(dir string) ([]File, *LoadResult, error) {
	start := time.Now()
	result := &LoadResult{}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving directory: %w", err)
	}

	var gitIgnore *ignore.GitIgnore
	if _, err := os.Stat(filepath.Join(absDir, ".gitignore")); err == nil {
		gitIgnore, err = ignore.CompileIgnoreFile(filepath.Join(absDir, ".gitignore"))
		if err != nil {
			l.logger.Warn("ignoring malformed .gitignore", "error", err)
			gitIgnore = nil
		}
	}

	var files []File
	err = filepath.WalkDir(absDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			result.Failed++
			return nil
		}

		relPath, err := filepath.Rel(absDir, path)
		if err != nil {
			result.Failed++
			return nil
		}
		if gitIgnore != nil && gitIgnore.MatchesPath(relPath) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			result.Skipped++
			return nil
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !l.forceHTML && !supportedExtensions[ext] {
			result.Skipped++
			return nil
		}

		content, err := l.loadFile(path, ext)
		if err != nil {
			l.logger.Warn("skipping unreadable file", "path", relPath, "error", err)
			result.Failed++
			return nil
		}
		if strings.TrimSpace(content) == "" {
			result.Skipped++
			return nil
		}

		files = append(files, File{Path: path, Content: content})
		result.Loaded++
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walking %s: %w", dir, err)
	}

	result.Duration = time.Since(start)
	return files, result, nil
}

func (l *Loader) loadFile(path, ext string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if l.forceHTML || ext == ".html" || ext == ".htm" {
		return ExtractHTML(raw)
	}
	return string(raw), nil
}
