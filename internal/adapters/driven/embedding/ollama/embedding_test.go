package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
)

func TestNewEmbedder_Dimensions(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		model string
		dims  int
	}{
		{name: "defaults", cfg: Config{}, model: DefaultModel, dims: 768},
		{name: "known model", cfg: Config{Model: "mxbai-embed-large"}, model: "mxbai-embed-large", dims: 1024},
		{name: "unknown model", cfg: Config{Model: "custom"}, model: "custom", dims: 0},
		{name: "explicit", cfg: Config{Model: "custom", Dimensions: 64}, model: "custom", dims: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEmbedder(tt.cfg)
			assert.Equal(t, tt.model, e.ModelName())
			assert.Equal(t, tt.dims, e.Dimensions())
		})
	}
}

func TestEmbed(t *testing.T) {
	var got embedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"embeddings":[[0.5,0.25,-1]],"prompt_eval_count":11}`))
	}))
	defer server.Close()

	e := NewEmbedder(Config{BaseURL: server.URL})
	embedding, err := e.Embed(context.Background(), "Title: Hello")
	require.NoError(t, err)

	assert.Equal(t, []float32{0.5, 0.25, -1}, embedding.Vector)
	assert.Equal(t, domain.TokenUsage{InputTokens: 11, RequestCount: 1}, embedding.Usage)
	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, "Title: Hello", got.Input)
}

func TestEmbed_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom"},
		{name: "empty embeddings", status: http.StatusOK, body: `{"embeddings":[]}`},
		{name: "bad json", status: http.StatusOK, body: "{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			embedding, err := NewEmbedder(Config{BaseURL: server.URL}).Embed(context.Background(), "x")

			assert.Nil(t, embedding)
			assert.ErrorIs(t, err, domain.ErrProviderFailure)
		})
	}
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	assert.NoError(t, NewEmbedder(Config{BaseURL: server.URL}).Ping(context.Background()))
}
