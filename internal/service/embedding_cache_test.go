package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carfinder/internal/cache"
)

type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	setErr  error
	lastTTL time.Duration
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return v, nil
}

func (m *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.lastTTL = ttl
	return nil
}

func TestCachedEmbedder_ReadThrough(t *testing.T) {
	inner := &fakeEmbedder{}
	mc := newMemCache()
	e := NewCachedEmbedder(inner, mc, "text-embedding-3-small", time.Hour)

	first, err := e.Embed(context.Background(), "white camry")
	require.NoError(t, err)
	second, err := e.Embed(context.Background(), "white camry")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, time.Hour, mc.lastTTL)
	assert.Len(t, mc.data, 1)

	_, err = e.Embed(context.Background(), "black camry")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedEmbedder_CacheFailuresAreNotFatal(t *testing.T) {
	inner := &fakeEmbedder{}
	mc := newMemCache()
	mc.getErr = errors.New("connection reset")
	mc.setErr = errors.New("connection reset")

	vec, err := NewCachedEmbedder(inner, mc, "m", time.Minute).Embed(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, vec, 3)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedEmbedder_EmbedderErrorPropagates(t *testing.T) {
	inner := &fakeEmbedder{err: errors.New("quota exceeded")}
	_, err := NewCachedEmbedder(inner, newMemCache(), "m", time.Minute).Embed(context.Background(), "q")
	assert.Error(t, err)
}

func TestVectorEncoding(t *testing.T) {
	vec := []float32{0.5, -1.25, 3}
	got, err := decodeVector(encodeVector(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, got)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}
