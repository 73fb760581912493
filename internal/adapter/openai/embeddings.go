package openai

import (
	"context"
	"encoding/json"
	"fmt"
)

// Embedder calls an OpenAI-compatible embeddings endpoint. It implements
// the memorystore.Vectorizer port.
type Embedder struct {
	client *Client
	apiKey string
	model  string
}

// NewEmbedder creates an Embedder against the given base URL.
func NewEmbedder(baseURL, apiKey, model string) *Embedder {
	return &Embedder{
		client: NewClient(baseURL),
		apiKey: apiKey,
		model:  model,
	}
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Vector returns the embedding vector for text.
func (e *Embedder) Vector(ctx context.Context, text string) ([]float32, error) {
	data, err := e.client.doRequest(ctx, e.apiKey, "/embeddings", embeddingRequest{
		Model: e.model,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal embeddings: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embeddings response has no data")
	}
	return parsed.Data[0].Embedding, nil
}
