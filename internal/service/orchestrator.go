package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"carfinder/internal/config"
	"carfinder/internal/model"
)

// Strategy is the retrieval branch chosen for a query
type Strategy int

const (
	// StrategyVector embeds the query and runs a similarity search
	StrategyVector Strategy = iota + 1
	// StrategyEnumerate pages through every car matching the predicate
	StrategyEnumerate
)

func (s Strategy) String() string {
	switch s {
	case StrategyVector:
		return "vector"
	case StrategyEnumerate:
		return "enumerate"
	default:
		return ""
	}
}

// ChooseStrategy routes a query: a named model or no filters at all go to
// similarity search, filters without a model go to enumeration
func ChooseStrategy(f model.FilterRecord) Strategy {
	if f.HasModel() || f.IsEmpty() {
		return StrategyVector
	}
	return StrategyEnumerate
}

// QueryOutcome is the terminal state of one query
type QueryOutcome struct {
	Kind      model.Outcome
	Message   string // general reply or empty-result explanation
	Results   []model.RankedResult
	Filters   model.FilterRecord
	Strategy  Strategy
	Threshold *float64 // vector branch only
}

// RetrievalOptions tunes thresholds, limits and paging
type RetrievalOptions struct {
	BaseThreshold      float64
	MinThreshold       float64
	ThresholdIncrement float64
	MaxTopK            int
	EnumerateBatch     int
}

// OptionsFromConfig copies retrieval settings from configuration
func OptionsFromConfig(cfg *config.RetrievalConfig) RetrievalOptions {
	return RetrievalOptions{
		BaseThreshold:      cfg.BaseThreshold,
		MinThreshold:       cfg.MinThreshold,
		ThresholdIncrement: cfg.ThresholdIncrement,
		MaxTopK:            cfg.MaxTopK,
		EnumerateBatch:     cfg.EnumerateBatchSize,
	}
}

// Orchestrator runs the query pipeline:
// extract filters, classify intent, retrieve, threshold, sort, truncate
type Orchestrator struct {
	extractor *FilterExtractor
	embedder  Embedder
	retriever Retriever
	ranker    *Ranker
	opts      RetrievalOptions
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(extractor *FilterExtractor, embedder Embedder, retriever Retriever, ranker *Ranker, opts RetrievalOptions) *Orchestrator {
	return &Orchestrator{
		extractor: extractor,
		embedder:  embedder,
		retriever: retriever,
		ranker:    ranker,
		opts:      opts,
	}
}

// HandleQuery answers one question with at most topK ranked cars.
// Interpretation failures are absorbed; embedding and index failures are
// returned wrapped in ErrRetrievalUnavailable.
func (o *Orchestrator) HandleQuery(ctx context.Context, question string, topK int) (*QueryOutcome, error) {
	if err := o.Validate(question, topK); err != nil {
		return nil, err
	}
	question = strings.TrimSpace(question)

	filters := o.extractor.Extract(ctx, question)

	queryType := o.extractor.DetectQueryType(ctx, question)
	if queryType.IsGeneral() {
		log.Printf("[DEBUG] 💬 General question, skipping retrieval")
		return &QueryOutcome{
			Kind:    model.OutcomeGeneralReply,
			Message: queryType.Message,
			Filters: filters,
		}, nil
	}

	outcome := &QueryOutcome{Filters: filters, Strategy: ChooseStrategy(filters)}
	pred := BuildPredicate(filters)

	var candidates []Candidate
	var err error
	switch outcome.Strategy {
	case StrategyVector:
		threshold := Threshold(filters, o.opts.BaseThreshold, o.opts.MinThreshold, o.opts.ThresholdIncrement)
		outcome.Threshold = &threshold
		candidates, err = o.vectorSearch(ctx, question, pred, topK, threshold)
	case StrategyEnumerate:
		candidates, err = o.enumerate(ctx, pred)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrievalUnavailable, err)
	}

	outcome.Results = o.ranker.RankResults(candidates, filters, topK)
	log.Printf("[DEBUG] 🔍 Strategy=%s candidates=%d results=%d", outcome.Strategy, len(candidates), len(outcome.Results))

	if len(outcome.Results) == 0 {
		outcome.Kind = model.OutcomeEmpty
		outcome.Message = EmptyResultMessage(filters)
		return outcome, nil
	}

	outcome.Kind = model.OutcomeResults
	return outcome, nil
}

// Validate checks the inputs of HandleQuery
func (o *Orchestrator) Validate(question string, topK int) error {
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("%w: question must not be empty", ErrValidation)
	}
	if topK < 1 || topK > o.opts.MaxTopK {
		return fmt.Errorf("%w: top_k must be between 1 and %d", ErrValidation, o.opts.MaxTopK)
	}
	return nil
}

// vectorSearch embeds the question and keeps hits scoring at least threshold
func (o *Orchestrator) vectorSearch(ctx context.Context, question string, pred *model.Predicate, topK int, threshold float64) ([]Candidate, error) {
	if o.embedder == nil {
		return nil, errors.New("no embedding model configured")
	}
	vector, err := o.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	hits, err := o.retriever.Search(ctx, pred, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	candidates := make([]Candidate, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < threshold {
			continue
		}
		score := hit.Score
		candidates = append(candidates, Candidate{Car: hit.Car, Score: &score})
	}
	return candidates, nil
}

// enumerate pages through every car matching pred. It stops when the
// retriever returns an empty cursor or repeats one it already returned.
func (o *Orchestrator) enumerate(ctx context.Context, pred *model.Predicate) ([]Candidate, error) {
	batch := o.opts.EnumerateBatch
	if batch <= 0 {
		batch = 100
	}

	var candidates []Candidate
	seen := make(map[string]bool)
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cars, next, err := o.retriever.Enumerate(ctx, pred, cursor, batch)
		if err != nil {
			return nil, fmt.Errorf("enumeration failed: %w", err)
		}
		for _, car := range cars {
			candidates = append(candidates, Candidate{Car: car})
		}

		if next == "" {
			break
		}
		if seen[next] {
			log.Printf("⚠️  Enumeration cursor %q repeated, stopping", next)
			break
		}
		seen[next] = true
		cursor = next
	}
	return candidates, nil
}
