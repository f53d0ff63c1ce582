// Package llama is an HTTP client for a llama.cpp-compatible inference
// server hosting the TAIDE model. It implements the tokenizer and
// completer collaborators of internal/chatmodel: /tokenize for token
// counting and stop-pattern compilation, /completion (streaming) for
// generation with a token-level stop hook, and slot erasure to release
// the KV cache a generation occupied.
package llama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Params are the fixed sampling settings sent with every completion.
// They are configuration, not part of the per-call contract.
type Params struct {
	MaxLength         int     // generation length ceiling (prompt + output tokens)
	Temperature       float32
	TopP              float32
	RepetitionPenalty float32
}

// Client talks to one llama.cpp server. Safe for sequential use; the
// pipeline runs one generation at a time.
type Client struct {
	baseURL string
	http    *http.Client
	params  Params
	logger  *slog.Logger
}

// New creates a Client for the server at baseURL.
func New(baseURL string, params Params, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Generation is long-running; only the dial phase gets a default
		// timeout, the request itself is bounded by ctx.
		http:   &http.Client{Timeout: 0},
		params: params,
		logger: logger,
	}
}

type tokenizeRequest struct {
	Content string `json:"content"`
}

type tokenizeResponse struct {
	Tokens []int32 `json:"tokens"`
}

// Tokenize converts text to the model's token ids.
func (c *Client) Tokenize(ctx context.Context, text string) ([]int32, error) {
	body, err := json.Marshal(tokenizeRequest{Content: text})
	if err != nil {
		return nil, fmt.Errorf("encoding tokenize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tokenize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building tokenize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tokenize request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tokenize: server returned %s", resp.Status)
	}

	var parsed tokenizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding tokenize response: %w", err)
	}
	return parsed.Tokens, nil
}

type completionRequest struct {
	Prompt        string  `json:"prompt"`
	Stream        bool    `json:"stream"`
	ReturnTokens  bool    `json:"return_tokens"`
	NPredict      int     `json:"n_predict"`
	Temperature   float32 `json:"temperature"`
	TopP          float32 `json:"top_p"`
	RepeatPenalty float32 `json:"repeat_penalty"`
}

type completionChunk struct {
	Content string  `json:"content"`
	Tokens  []int32 `json:"tokens"`
	Stop    bool    `json:"stop"`
}

// Complete streams a continuation of prompt, invoking stop after every
// received token with the full emitted token-id sequence. On a match the
// stream is abandoned and the text accumulated so far is returned; the
// matched marker's text may remain at the tail, exactly as the upstream
// generation loop leaves it. Without a match, generation runs to the
// server's own length ceiling.
func (c *Client) Complete(ctx context.Context, prompt string, stop func(emitted []int32) bool) (string, error) {
	body, err := json.Marshal(completionRequest{
		Prompt:        prompt,
		Stream:        true,
		ReturnTokens:  true,
		NPredict:      c.params.MaxLength,
		Temperature:   c.params.Temperature,
		TopP:          c.params.TopP,
		RepeatPenalty: c.params.RepetitionPenalty,
	})
	if err != nil {
		return "", fmt.Errorf("encoding completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/completion", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion: server returned %s", resp.Status)
	}

	var (
		out     strings.Builder
		emitted []int32
	)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

scan:
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}

		var chunk completionChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", fmt.Errorf("decoding completion chunk: %w", err)
		}

		out.WriteString(chunk.Content)
		for _, id := range chunk.Tokens {
			emitted = append(emitted, id)
			if stop != nil && stop(emitted) {
				c.logger.Debug("stop pattern matched",
					"emitted_tokens", len(emitted),
					"elapsed", time.Since(start))
				break scan
			}
		}
		if chunk.Stop {
			break
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return "", fmt.Errorf("reading completion stream: %w", err)
	}

	c.logger.Debug("completion finished",
		"emitted_tokens", len(emitted),
		"elapsed", time.Since(start))
	return out.String(), nil
}

// Release erases the server-side slot state (KV cache) the generation
// occupied. Called by the orchestrator on every generation exit path.
func (c *Client) Release(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/slots/0?action=erase", nil)
	if err != nil {
		return fmt.Errorf("building slot release request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("slot release request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	// Older servers don't expose slot management; nothing to release then.
	if resp.StatusCode == http.StatusNotFound {
		c.logger.Debug("server has no slot endpoint, skipping release")
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slot release: server returned %s", resp.Status)
	}
	return nil
}
