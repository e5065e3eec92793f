// Package ml holds the client for the external text-embedding provider.
// Embedding models are trained and served elsewhere; this service only sends
// recipe text and gets vectors back.
package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"
	"gonum.org/v1/gonum/floats"

	"github.com/forkcast/recsys/internal/config"
)

type EmbeddingClient struct {
	httpClient *http.Client
	url        string
	model      string
	dimensions int
	logger     *logrus.Logger
}

func NewEmbeddingClient(cfg config.EmbeddingConfig, logger *logrus.Logger) *EmbeddingClient {
	return &EmbeddingClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		url:        cfg.ProviderURL,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		logger:     logger,
	}
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed normalizes the text, calls the provider and returns a unit-length
// vector of the configured dimensionality.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{
		Model: c.model,
		Input: []string{NormalizeText(text)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("embedding provider returned %d: %s", resp.StatusCode, payload)
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embedding provider returned no data")
	}

	embedding := parsed.Data[0].Embedding
	if len(embedding) != c.dimensions {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(embedding), c.dimensions)
	}

	return normalizeEmbedding(embedding), nil
}

// NormalizeText applies NFC normalization and collapses whitespace so that
// visually identical recipe titles embed identically.
func NormalizeText(text string) string {
	text = norm.NFC.String(text)

	var b strings.Builder
	b.Grow(len(text))
	lastSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
			}
			lastSpace = true
			continue
		}
		lastSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

func normalizeEmbedding(embedding []float32) []float32 {
	vec := make([]float64, len(embedding))
	for i, v := range embedding {
		vec[i] = float64(v)
	}

	n := floats.Norm(vec, 2)
	if n == 0 {
		return embedding
	}

	normalized := make([]float32, len(embedding))
	for i, v := range vec {
		normalized[i] = float32(v / n)
	}
	return normalized
}
