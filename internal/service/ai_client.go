package service

import (
	"context"

	"carfinder/internal/model"
)

// TextCompleter is a single-turn chat model
type TextCompleter interface {
	Complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error)
}

// StreamCompleter is a chat model that can stream its answer.
// onDelta receives each content fragment; the full text is returned at the end.
type StreamCompleter interface {
	TextCompleter
	CompleteStream(ctx context.Context, system, user string, temperature float64, maxTokens int, onDelta func(delta string) error) (string, error)
}

// Embedder turns text into a vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchEmbedder embeds many texts in one round trip
type BatchEmbedder interface {
	Embedder
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever is the vector index as seen by the orchestrator
type Retriever interface {
	// Search returns up to limit cars ordered by similarity to vector
	Search(ctx context.Context, pred *model.Predicate, vector []float32, limit int) ([]model.ScoredCar, error)

	// Enumerate returns one page of cars matching pred and the cursor of the
	// next page. An empty cursor means the scan is exhausted.
	Enumerate(ctx context.Context, pred *model.Predicate, cursor string, batch int) ([]model.Car, string, error)
}

// CarStore resolves cars by id
type CarStore interface {
	GetCar(ctx context.Context, id uint64) (*model.Car, error)
}

// SearchLogger records searches and user feedback
type SearchLogger interface {
	LogSearch(ctx context.Context, entry *model.SearchLog) error
	LogFeedback(ctx context.Context, searchID string, carID uint64, action string) error
}

// StreamChunk represents a generic streaming response chunk
type StreamChunk struct {
	// Regular content
	Content string

	// Thinking/reasoning content (provider-specific, e.g., DeepSeek)
	ThinkingContent string

	Role string

	// Whether this is the final chunk
	Done bool
}

// Ensure OpenAIClient implements the model interfaces
var (
	_ StreamCompleter = (*OpenAIClient)(nil)
	_ BatchEmbedder   = (*OpenAIClient)(nil)
)
