package service

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"carfinder/internal/cache"
)

// CachedEmbedder is a read-through cache in front of an Embedder.
// Cache failures are logged and never fail the request.
type CachedEmbedder struct {
	next  Embedder
	cache cache.Client
	model string
	ttl   time.Duration
}

// NewCachedEmbedder wraps next with a cache keyed by model and text
func NewCachedEmbedder(next Embedder, c cache.Client, model string, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: c, model: model, ttl: ttl}
}

// Embed returns the cached vector for text, computing and storing it on a miss
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := e.key(text)

	data, err := e.cache.Get(ctx, key)
	switch {
	case err == nil:
		vec, derr := decodeVector(data)
		if derr == nil {
			return vec, nil
		}
		log.Printf("⚠️  Discarding corrupt cached embedding: %v", derr)
	case !errors.Is(err, cache.ErrCacheMiss):
		log.Printf("⚠️  Embedding cache read failed: %v", err)
	}

	vec, err := e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := e.cache.Set(ctx, key, encodeVector(vec), e.ttl); err != nil {
		log.Printf("⚠️  Embedding cache write failed: %v", err)
	}
	return vec, nil
}

func (e *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + e.model + ":" + hex.EncodeToString(sum[:])
}

// encodeVector packs a vector as little-endian float32s
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector encoding of %d bytes", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return vec, nil
}
