package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"carfinder/internal/model"
	"carfinder/internal/service"
	"carfinder/internal/utils"
)

// Store is the write side of a retrieval backend
type Store interface {
	EnsureIndex(ctx context.Context, dims int) error
	ResetIndex(ctx context.Context, dims int) error
	UpsertCars(ctx context.Context, cars []model.IndexedCar) error
}

// Options controls ingest fan-out
type Options struct {
	Dimensions        int
	Concurrency       int
	RequestsPerSecond float64 // <= 0 disables pacing
}

// Stats summarises one ingest run
type Stats struct {
	Total     int
	Succeeded int
	Failed    int
	Errors    []string
}

// Service turns catalog records into described, embedded index entries
type Service struct {
	llm         service.TextCompleter
	embedder    service.Embedder
	store       Store
	dims        int
	concurrency int
	limiter     *rate.Limiter
}

// NewService creates a new ingest service
func NewService(llm service.TextCompleter, embedder service.Embedder, store Store, opts Options) *Service {
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), concurrency)
	}

	return &Service{
		llm:         llm,
		embedder:    embedder,
		store:       store,
		dims:        opts.Dimensions,
		concurrency: concurrency,
		limiter:     limiter,
	}
}

// LoadCatalog reads a JSON array of catalog cars
func LoadCatalog(path string) ([]model.CatalogCar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	var cars []model.CatalogCar
	if err := json.Unmarshal(data, &cars); err != nil {
		return nil, fmt.Errorf("failed to decode catalog %s: %w", path, err)
	}
	return cars, nil
}

// ToCar normalises a catalog record. fallbackID is used when the record has no id.
func ToCar(raw model.CatalogCar, fallbackID uint64) model.Car {
	car := model.Car{
		ID:         fallbackID,
		Model:      strings.TrimSpace(raw.Model),
		Generation: strings.TrimSpace(raw.Generation),
		Mileage:    strings.TrimSpace(string(raw.Mileage)),
		MileageNum: raw.MileageNum,
		ColorRaw:   strings.TrimSpace(raw.Color),
		Engine:     strings.TrimSpace(raw.Engine),
		Price:      strings.TrimSpace(string(raw.Price)),
		PriceNum:   raw.PriceNum,
		URL:        strings.TrimSpace(raw.URL),
	}
	if raw.ID != nil {
		car.ID = *raw.ID
	}

	if color, ok := utils.NormalizeColor(raw.Color); ok {
		car.Color = color
	} else {
		car.Color = car.ColorRaw
	}

	if city, ok := utils.NormalizeCity(raw.City); ok {
		car.City = city
	} else {
		car.City = strings.TrimSpace(raw.City)
	}

	if car.PriceNum == nil {
		if v, ok := utils.ParseNumeric(car.Price); ok {
			car.PriceNum = &v
		}
	}
	if car.MileageNum == nil {
		if v, ok := utils.ParseNumeric(car.Mileage); ok {
			car.MileageNum = &v
		}
	}

	if raw.ModelYear != nil && *raw.ModelYear != 0 {
		year := int(*raw.ModelYear)
		car.Year = &year
	}
	return car
}

// Describe asks the chat model for a semantic description, falling back to a template
func (s *Service) Describe(ctx context.Context, car *model.Car) string {
	if s.llm == nil {
		return service.FallbackDescription(car)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return service.FallbackDescription(car)
	}

	description, err := s.llm.Complete(ctx, service.DescriptionSystemPrompt, service.DescriptionUserPrompt(car),
		service.DescriptionTemperature, service.DescriptionMaxTokens)
	description = strings.TrimSpace(description)
	if err != nil || description == "" {
		log.Printf("⚠️  Description failed for car %d, using fallback: %v", car.ID, err)
		return service.FallbackDescription(car)
	}
	return description
}

// Run (re)builds the index from a full catalog. Records without an id get their position.
func (s *Service) Run(ctx context.Context, catalog []model.CatalogCar, reset bool) (*Stats, error) {
	if reset {
		if err := s.store.ResetIndex(ctx, s.dims); err != nil {
			return nil, fmt.Errorf("failed to reset index: %w", err)
		}
	} else if err := s.store.EnsureIndex(ctx, s.dims); err != nil {
		return nil, fmt.Errorf("failed to ensure index: %w", err)
	}

	cars := make([]model.Car, len(catalog))
	for i, raw := range catalog {
		cars[i] = ToCar(raw, uint64(i))
	}
	return s.index(ctx, cars)
}

// IngestBatch adds or replaces catalog cars in an existing index. Every record needs an id.
func (s *Service) IngestBatch(ctx context.Context, catalog []model.CatalogCar) (*Stats, error) {
	if err := s.store.EnsureIndex(ctx, s.dims); err != nil {
		return nil, fmt.Errorf("failed to ensure index: %w", err)
	}

	var (
		cars    []model.Car
		missing []string
	)
	for i, raw := range catalog {
		if raw.ID == nil {
			missing = append(missing, fmt.Sprintf("car at index %d: missing id", i))
			continue
		}
		cars = append(cars, ToCar(raw, *raw.ID))
	}

	stats, err := s.index(ctx, cars)
	if err != nil {
		return nil, err
	}
	stats.Total += len(missing)
	stats.Failed += len(missing)
	stats.Errors = append(missing, stats.Errors...)
	return stats, nil
}

// index describes and embeds cars concurrently, then upserts the successes
func (s *Service) index(ctx context.Context, cars []model.Car) (*Stats, error) {
	stats := &Stats{Total: len(cars)}
	if len(cars) == 0 {
		return stats, nil
	}

	log.Printf("🚗 Processing %d cars (concurrency=%d)", len(cars), s.concurrency)

	indexed := make([]*model.IndexedCar, len(cars))
	failures := make([]error, len(cars))

	sem := make(chan struct{}, s.concurrency)
	eg, egCtx := errgroup.WithContext(ctx)

	for i := range cars {
		sem <- struct{}{}
		eg.Go(func() error {
			defer func() { <-sem }()

			car := cars[i]
			car.Description = s.Describe(egCtx, &car)

			if err := s.limiter.Wait(egCtx); err != nil {
				failures[i] = err
				return nil
			}
			vector, err := s.embedder.Embed(egCtx, car.Description)
			if err != nil {
				failures[i] = fmt.Errorf("embedding failed: %w", err)
				return nil
			}
			if s.dims > 0 && len(vector) != s.dims {
				failures[i] = fmt.Errorf("embedding has %d dimensions, expected %d", len(vector), s.dims)
				return nil
			}

			indexed[i] = &model.IndexedCar{Car: car, Vector: vector}
			if (i+1)%10 == 0 {
				log.Printf("Processed %d/%d cars...", i+1, len(cars))
			}
			return nil
		})
	}

	_ = eg.Wait() // failures are tracked per car

	batch := make([]model.IndexedCar, 0, len(cars))
	for i, item := range indexed {
		if item == nil {
			stats.Failed++
			stats.Errors = append(stats.Errors, fmt.Sprintf("car %d: %v", cars[i].ID, failures[i]))
			continue
		}
		batch = append(batch, *item)
	}

	if len(batch) > 0 {
		if err := s.store.UpsertCars(ctx, batch); err != nil {
			return nil, fmt.Errorf("failed to upsert cars: %w", err)
		}
	}
	stats.Succeeded = len(batch)

	log.Printf("✅ Ingest finished: %d succeeded, %d failed", stats.Succeeded, stats.Failed)
	return stats, nil
}
