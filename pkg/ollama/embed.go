// Package ollama provides an Ollama-backed implementation of the
// embed.Provider boundary over Ollama's HTTP embeddings API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/AniRecAI/anirec/pkg/fn"
)

const defaultWorkers = 4

// Client embeds texts through a running Ollama instance. The Ollama API
// takes one prompt per call, so batches fan out over a bounded worker pool
// while output order stays aligned with input order.
type Client struct {
	baseURL string
	model   string
	dim     int
	workers int
	client  *http.Client
}

// New creates an Ollama embedding client. dim must match the model's
// output dimension.
func New(baseURL, model string, dim int) *Client {
	return &Client{
		baseURL: baseURL,
		model:   model,
		dim:     dim,
		workers: defaultWorkers,
		client:  &http.Client{},
	}
}

// Dimension returns the fixed vector length of the configured model.
func (c *Client) Dimension() int { return c.dim }

type embedReq struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResp struct {
	Embedding []float64 `json:"embedding"`
}

func (c *Client) embed(ctx context.Context, text string) ([]float32, error) {
	body, _ := json.Marshal(embedReq{Model: c.model, Prompt: text})
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama embed: status %d", resp.StatusCode)
	}

	var result embedResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("ollama embed decode: %w", err)
	}
	if len(result.Embedding) != c.dim {
		return nil, fmt.Errorf("ollama embed: got dimension %d, want %d", len(result.Embedding), c.dim)
	}

	out := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}

// EmbedBatch implements embed.Provider.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	type indexed struct {
		i    int
		text string
	}
	items := make([]indexed, len(texts))
	for i, t := range texts {
		items[i] = indexed{i, t}
	}

	results := fn.ParMapResult(items, c.workers, func(it indexed) fn.Result[[]float32] {
		vec, err := c.embed(ctx, it.text)
		if err != nil {
			return fn.Err[[]float32](fmt.Errorf("embed batch [%d]: %w", it.i, err))
		}
		return fn.Ok(vec)
	})
	collected, err := fn.Collect(results).Unwrap()
	if err != nil {
		return nil, err
	}
	return collected, nil
}
