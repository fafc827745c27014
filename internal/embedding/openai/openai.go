package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"lexindex/internal/domain"
)

// Client is an OpenAI-compatible embeddings client. It submits text
// batches as given; partitioning into backend-sized sub-batches is the
// orchestrator's job. Each text is silently truncated to the configured
// maximum length before submission.
type Client struct {
	baseURL       string
	apiKey        string
	model         string
	dimension     int
	maxInputChars int
	client        *http.Client
	limiter       *rate.Limiter
	maxRetries    int
}

// Config configures the embeddings client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	// Dimension is the declared output dimension of the model.
	Dimension     int
	MaxInputChars int
	Timeout       time.Duration
	// RatePerSec caps backend calls; zero disables limiting.
	RatePerSec int
}

// NewClient creates a new embeddings client from explicit configuration.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be declared, got %d", cfg.Dimension)
	}
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = 8000
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	var limiter *rate.Limiter
	if cfg.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	return &Client{
		baseURL:       cfg.BaseURL,
		apiKey:        key,
		model:         cfg.Model,
		dimension:     cfg.Dimension,
		maxInputChars: cfg.MaxInputChars,
		client:        &http.Client{Timeout: t},
		limiter:       limiter,
		maxRetries:    5,
	}, nil
}

// Dimension returns the declared dimensionality of produced vectors.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns an embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one backend call. The result has the same
// order and length as the input; a short or malformed backend response
// is an error, never reconciled.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	inputs := make([]string, len(texts))
	for i, t := range texts {
		inputs[i] = truncate(t, c.maxInputChars)
	}
	payload, err := c.post(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingBackend, err)
	}

	var out struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", domain.ErrEmbeddingBackend, err)
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs",
			domain.ErrEmbeddingBackend, len(out.Data), len(texts))
	}
	vectors := make([][]float64, len(texts))
	for _, item := range out.Data {
		if item.Index < 0 || item.Index >= len(texts) || len(item.Embedding) == 0 {
			return nil, fmt.Errorf("%w: malformed embedding item", domain.ErrEmbeddingBackend)
		}
		vectors[item.Index] = item.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("%w: missing embedding for input %d", domain.ErrEmbeddingBackend, i)
		}
	}
	return vectors, nil
}

func (c *Client) post(ctx context.Context, inputs []string) ([]byte, error) {
	body, _ := json.Marshal(map[string]any{
		"input": inputs,
		"model": c.model,
	})
	url := c.baseURL + "/embeddings"

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			if attempt < c.maxRetries {
				if err := sleepCtx(ctx, retryDelay(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			delay := retryDelay(attempt)
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					delay = time.Duration(secs) * time.Second
				}
			}
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("embeddings request failed: %s", resp.Status)
			if attempt < c.maxRetries {
				if err := sleepCtx(ctx, delay); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}

		if resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("embeddings request failed: %s", resp.Status)
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			if attempt < c.maxRetries {
				if err := sleepCtx(ctx, retryDelay(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}
		return payload, nil
	}
	return nil, lastErr
}

// truncate cuts text to at most max characters. Truncation is the
// agreed policy for over-long inputs, not an error.
func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
