package config

import (
	"fmt"
	"net/url"
)

// Validate checks configuration values. Returns sentinel errors that can
// be inspected with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if err := validateBaseURL(c.LlamaServer); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLlamaServer, err)
	}
	if err := validateBaseURL(c.OllamaHost); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOllamaHost, err)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	if c.InputTokenLimit < 1 {
		return fmt.Errorf("%w: must be positive, got %d", ErrInvalidTokenLimit, c.InputTokenLimit)
	}
	if c.MaxLength < 1 {
		return fmt.Errorf("%w: must be positive, got %d", ErrInvalidMaxLength, c.MaxLength)
	}
	if c.InputTokenLimit >= c.MaxLength {
		return fmt.Errorf("%w: input_token_limit %d leaves no room under max_length %d",
			ErrInvalidTokenLimit, c.InputTokenLimit, c.MaxLength)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}
	if c.TopP <= 0 || c.TopP > 1 {
		return fmt.Errorf("%w: must be in (0, 1], got %.2f", ErrInvalidTopP, c.TopP)
	}

	if c.TopK < 1 || c.TopK > 20 {
		return fmt.Errorf("%w: must be between 1 and 20, got %d", ErrInvalidTopK, c.TopK)
	}

	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d must be non-negative and smaller than chunk_size %d",
			ErrInvalidChunking, c.ChunkOverlap, c.ChunkSize)
	}

	if c.PostgresHost == "" || c.PostgresDBName == "" || c.PostgresUser == "" {
		return fmt.Errorf("%w: host, user, and database name are required", ErrInvalidPostgres)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d", ErrInvalidPostgres, c.PostgresPort)
	}

	return nil
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("URL cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}
