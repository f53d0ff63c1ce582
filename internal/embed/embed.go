// Package embed turns text into vectors through a Genkit embedder
// backed by a local Ollama instance. It batches requests, rate limits
// them and retries transient failures so bulk indexing survives a busy
// or briefly unavailable model server.
package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/ollama"
	"golang.org/x/time/rate"
)

// batchSize caps how many texts go into a single embed request. Ollama
// handles batches fine but very large ones blow up request latency.
const batchSize = 32

// embedder is the slice of ai.Embedder this package needs.
type embedder interface {
	Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error)
}

// RetryConfig configures retry behavior for embedding calls.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns sensible defaults for a local model server.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// Service embeds batches of texts with rate limiting and retry.
type Service struct {
	embedder embedder
	limiter  *rate.Limiter
	retry    RetryConfig
	logger   *slog.Logger
}

// New initializes Genkit with the Ollama plugin and registers the
// embedding model. host is the Ollama server address, model the
// embedder model name (for example nomic-embed-text).
func New(ctx context.Context, host, model string, logger *slog.Logger) (*Service, error) {
	plugin := &ollama.Ollama{ServerAddress: host}
	g := genkit.Init(ctx, genkit.WithPlugins(plugin))
	if g == nil {
		return nil, fmt.Errorf("initializing genkit with ollama plugin")
	}

	// Ollama requires explicit registration, there is no auto-discovery.
	emb := plugin.DefineEmbedder(g, host, model, nil)

	logger.Info("embedder ready", "host", host, "model", model)
	return newService(emb, logger), nil
}

func newService(emb embedder, logger *slog.Logger) *Service {
	return &Service{
		embedder: emb,
		limiter:  rate.NewLimiter(rate.Limit(10), 1),
		retry:    DefaultRetryConfig(),
		logger:   logger,
	}
}

// Embed returns one vector per input text, in input order.
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))

		batch, err := s.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d: %w", start, end, err)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (s *Service) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := &ai.EmbedRequest{Input: make([]*ai.Document, len(texts))}
	for i, text := range texts {
		req.Input[i] = ai.DocumentFromText(text, nil)
	}

	var lastErr error
	delay := s.retry.InitialInterval

	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		// Rate limit each attempt, retries included.
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		resp, err := s.embedder.Embed(ctx, req)
		if err == nil {
			if len(resp.Embeddings) != len(texts) {
				return nil, fmt.Errorf("embedder returned %d vectors for %d texts",
					len(resp.Embeddings), len(texts))
			}
			vectors := make([][]float32, len(resp.Embeddings))
			for i, e := range resp.Embeddings {
				vectors[i] = e.Embedding
			}
			return vectors, nil
		}

		lastErr = err
		if !retryableError(err) {
			return nil, fmt.Errorf("embed: %w", err)
		}
		if attempt == s.retry.MaxRetries {
			break
		}

		s.logger.Debug("retrying embed after error",
			"attempt", attempt+1, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, s.retry.MaxInterval)
		}
	}

	return nil, fmt.Errorf("embed after %d retries: %w", s.retry.MaxRetries, lastErr)
}

// retryablePatterns groups transient error substrings, matched
// case-insensitively. Genkit and Ollama do not expose typed errors for
// these, so string matching is the only handle available.
var retryablePatterns = []string{
	"rate limit", "429",
	"500", "502", "503", "504", "unavailable",
	"connection refused", "connection reset", "timeout", "temporary",
}

func retryableError(err error) bool {
	if err == nil {
		return false
	}
	lower := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
