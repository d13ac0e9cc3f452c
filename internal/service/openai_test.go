package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carfinder/internal/config"
)

func newTestOpenAIClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIClient(&config.OpenAIConfig{
		APIKey:         "test-key",
		APIBase:        srv.URL,
		ChatModel:      "test-chat",
		EmbeddingModel: "test-embed",
		BatchSize:      2,
		Timeout:        5,
		Enabled:        true,
	})
}

func TestOpenAIClient_Complete(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-chat", req.Model)
		assert.Equal(t, 200, req.MaxTokens)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"  {\"model\": null}  "}}]}`)
	})

	out, err := client.Complete(context.Background(), "sys", "user", 0.1, 200)
	require.NoError(t, err)
	assert.Equal(t, `{"model": null}`, out)
}

func TestOpenAIClient_CompleteErrors(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})
	_, err := client.Complete(context.Background(), "sys", "user", 0.1, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	disabled := NewOpenAIClient(&config.OpenAIConfig{APIBase: "http://unused"})
	_, err = disabled.Complete(context.Background(), "sys", "user", 0.1, 10)
	assert.Error(t, err)
	assert.False(t, disabled.IsEnabled())
}

func TestOpenAIClient_CompleteStream(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Hello", "", " there"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: not json\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var deltas []string
	out, err := client.CompleteStream(context.Background(), "sys", "user", 0.7, 100, func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there", out)
	assert.Equal(t, []string{"Hello", " there"}, deltas)
}

func TestOpenAIClient_CreateEmbeddingsBatches(t *testing.T) {
	var batches []int
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		var req EmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		batches = append(batches, len(req.Input))

		// answer out of order to exercise index placement
		var data []string
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, fmt.Sprintf(`{"index":%d,"embedding":[%d]}`, i, len(req.Input[i])))
		}
		fmt.Fprintf(w, `{"model":"test-embed","data":[%s]}`, strings.Join(data, ","))
	})

	vecs, err := client.CreateEmbeddings(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, batches)
	assert.Equal(t, [][]float32{{1}, {2}, {3}}, vecs)

	vec, err := client.Embed(context.Background(), "dddd")
	require.NoError(t, err)
	assert.Equal(t, []float32{4}, vec)
}

func TestOpenAIClient_MissingEmbedding(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"index":0,"embedding":[1]}]}`)
	})
	_, err := client.CreateEmbeddings(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestParserForBase(t *testing.T) {
	assert.IsType(t, &ReasoningStreamChunkParser{}, parserForBase("https://integrate.api.nvidia.com/v1"))
	assert.IsType(t, &OpenAIStreamChunkParser{}, parserForBase("https://api.openai.com/v1"))

	chunk, err := (&ReasoningStreamChunkParser{}).ParseChunk([]byte(`{"choices":[{"delta":{"reasoning_content":"hmm","content":""},"finish_reason":"stop"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "hmm", chunk.ThinkingContent)
	assert.Empty(t, chunk.Content)
	assert.True(t, chunk.Done)
}
