// Package loaders builds the shared clients once per process.
package loaders

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"carfinder/internal/cache"
	"carfinder/internal/config"
	"carfinder/internal/ingest"
	"carfinder/internal/repository"
	"carfinder/internal/service"
)

// Backend is a retrieval backend that can also be written to
type Backend interface {
	service.Retriever
	service.CarStore
	ingest.Store
	Ping(ctx context.Context) error
	Close() error
}

// Clients holds every external client the server and the ingest CLI use.
// Chat and Embedder are nil when the OpenAI API is not configured;
// Postgres and Cache are nil when not configured.
type Clients struct {
	Chat     service.StreamCompleter
	Embedder service.Embedder
	Backend  Backend
	Postgres *repository.PostgresRepository
	Cache    *cache.RedisClient
}

var (
	once    sync.Once
	clients *Clients
	loadErr error
)

// Load builds the clients on first call and returns the same set afterwards
func Load(cfg *config.Config) (*Clients, error) {
	once.Do(func() {
		clients, loadErr = build(cfg)
	})
	return clients, loadErr
}

// Close releases every client that holds a connection
func (c *Clients) Close() {
	if c.Backend != nil {
		if err := c.Backend.Close(); err != nil {
			log.Printf("⚠️  Failed to close retrieval backend: %v", err)
		}
	}
	// the pgvector backend and the search log share one connection pool
	if c.Postgres != nil && Backend(c.Postgres) != c.Backend {
		if err := c.Postgres.Close(); err != nil {
			log.Printf("⚠️  Failed to close PostgreSQL: %v", err)
		}
	}
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			log.Printf("⚠️  Failed to close Redis: %v", err)
		}
	}
}

func build(cfg *config.Config) (*Clients, error) {
	c := &Clients{}

	if cfg.OpenAI.Enabled {
		openaiClient := service.NewOpenAIClient(&cfg.OpenAI)
		c.Chat = openaiClient
		c.Embedder = openaiClient
		log.Printf("✅ OpenAI client initialized")
		log.Printf("   - API Base: %s", cfg.OpenAI.APIBase)
		log.Printf("   - Chat model: %s", cfg.OpenAI.ChatModel)
		log.Printf("   - Embedding model: %s (%d dims)", cfg.OpenAI.EmbeddingModel, cfg.OpenAI.EmbeddingDimensions)
	} else {
		log.Println("⚠️  OpenAI is disabled - filter extraction, embeddings and recommendations will not work")
		log.Println("   Set OPENAI_API_KEY environment variable to enable AI features")
	}

	if cfg.PostgreSQL.Enabled {
		repo, err := repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := repo.EnsureLogSchema(ctx); err != nil {
			repo.Close()
			return nil, err
		}
		c.Postgres = repo
		log.Println("✅ Connected to PostgreSQL database")
	}

	switch cfg.Retrieval.Backend {
	case config.BackendPGVector:
		c.Backend = c.Postgres
		log.Println("✅ Using pgvector retrieval backend")
	default:
		repo, err := repository.NewQdrantRepository(&cfg.Qdrant)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Backend = repo
		log.Printf("✅ Using Qdrant retrieval backend (%s:%d, collection %s)", cfg.Qdrant.Host, cfg.Qdrant.Port, cfg.Qdrant.Collection)
	}

	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			// the cache is an optimisation only
			log.Printf("⚠️  Redis unavailable, embedding cache disabled: %v", err)
		} else {
			c.Cache = redisClient
			if c.Embedder != nil {
				c.Embedder = service.NewCachedEmbedder(c.Embedder, redisClient, cfg.OpenAI.EmbeddingModel,
					time.Duration(cfg.Redis.TTLSeconds)*time.Second)
			}
			log.Printf("✅ Embedding cache enabled (%s)", cfg.Redis.Addr)
		}
	}

	return c, nil
}

// SearchLogger returns the search log sink, or nil when PostgreSQL is not configured
func (c *Clients) SearchLogger() service.SearchLogger {
	if c.Postgres == nil {
		return nil
	}
	return c.Postgres
}

// TextCompleter returns the chat client as a plain completer, or nil
func (c *Clients) TextCompleter() service.TextCompleter {
	if c.Chat == nil {
		return nil
	}
	return c.Chat
}

// NewSearchService wires the query pipeline from the loaded clients
func NewSearchService(cfg *config.Config, c *Clients) *service.SearchService {
	extractor := service.NewFilterExtractor(c.TextCompleter())
	orchestrator := service.NewOrchestrator(extractor, c.Embedder, c.Backend, service.NewRanker(),
		service.OptionsFromConfig(&cfg.Retrieval))
	responder := service.NewResponder(c.TextCompleter(), cfg.OpenAI.ChatTemperature)
	return service.NewSearchService(orchestrator, responder, c.Backend, c.SearchLogger(), cfg.Retrieval.DefaultTopK)
}

// NewIngestService wires catalog ingestion from the loaded clients
func NewIngestService(cfg *config.Config, c *Clients) (*ingest.Service, error) {
	if c.Embedder == nil {
		return nil, fmt.Errorf("ingest requires OPENAI_API_KEY for embeddings")
	}
	return ingest.NewService(c.TextCompleter(), c.Embedder, c.Backend, ingest.Options{
		Dimensions:        cfg.OpenAI.EmbeddingDimensions,
		Concurrency:       cfg.Ingest.Concurrency,
		RequestsPerSecond: cfg.Ingest.RequestsPerSecond,
	}), nil
}
