package ml

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkcast/recsys/internal/config"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "collapses whitespace",
			input:    "Shakshuka   with\t\teggs",
			expected: "Shakshuka with eggs",
		},
		{
			name:     "trims edges",
			input:    "  pad thai \n",
			expected: "pad thai",
		},
		{
			name:     "nfc normalization",
			input:    "crème brûlée",
			expected: "crème brûlée",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeText(tt.input))
		})
	}
}

func TestNormalizeEmbedding(t *testing.T) {
	normalized := normalizeEmbedding([]float32{3.0, 4.0})

	assert.InDelta(t, 0.6, float64(normalized[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(normalized[1]), 1e-6)

	var sum float64
	for _, v := range normalized {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)
}

func TestNormalizeEmbedding_ZeroVector(t *testing.T) {
	zero := []float32{0.0, 0.0, 0.0}
	assert.Equal(t, zero, normalizeEmbedding(zero))
}

func TestEmbeddingClient_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Input, 1)
		assert.Equal(t, "pad thai", req.Input[0])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"embedding": []float32{3.0, 4.0, 0.0}},
			},
		})
	}))
	defer server.Close()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	client := NewEmbeddingClient(config.EmbeddingConfig{
		ProviderURL: server.URL,
		Model:       "test-model",
		Dimensions:  3,
		Timeout:     5 * time.Second,
	}, logger)

	embedding, err := client.Embed(context.Background(), "  pad   thai ")

	require.NoError(t, err)
	require.Len(t, embedding, 3)
	assert.InDelta(t, 0.6, float64(embedding[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(embedding[1]), 1e-6)
}

func TestEmbeddingClient_Embed_DimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"embedding": []float32{1.0, 0.0}},
			},
		})
	}))
	defer server.Close()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	client := NewEmbeddingClient(config.EmbeddingConfig{
		ProviderURL: server.URL,
		Model:       "test-model",
		Dimensions:  3,
		Timeout:     5 * time.Second,
	}, logger)

	_, err := client.Embed(context.Background(), "pad thai")

	assert.Error(t, err)
}

func TestEmbeddingClient_Embed_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	client := NewEmbeddingClient(config.EmbeddingConfig{
		ProviderURL: server.URL,
		Model:       "test-model",
		Dimensions:  3,
		Timeout:     5 * time.Second,
	}, logger)

	_, err := client.Embed(context.Background(), "pad thai")

	assert.Error(t, err)
}
