package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"carfinder/internal/model"
)

// SearchService handles search business logic around the query pipeline
type SearchService struct {
	orchestrator *Orchestrator
	responder    *Responder
	cars         CarStore
	logger       SearchLogger // optional
	defaultTopK  int
}

// NewSearchService creates a new search service. logger may be nil.
func NewSearchService(
	orchestrator *Orchestrator,
	responder *Responder,
	cars CarStore,
	logger SearchLogger,
	defaultTopK int,
) *SearchService {
	return &SearchService{
		orchestrator: orchestrator,
		responder:    responder,
		cars:         cars,
		logger:       logger,
		defaultTopK:  defaultTopK,
	}
}

// SearchEventCallback is called for streaming search events
type SearchEventCallback func(event string, data any) error

// ResolveTopK applies the default when top_k is absent
func (s *SearchService) ResolveTopK(topK *int) int {
	if topK == nil {
		return s.defaultTopK
	}
	return *topK
}

// Validate checks a request before any work is done
func (s *SearchService) Validate(req *model.RagQueryRequest) error {
	return s.orchestrator.Validate(req.Question, s.ResolveTopK(req.TopK))
}

// Search runs the pipeline and writes the recommendation
func (s *SearchService) Search(ctx context.Context, req *model.RagQueryRequest) (*model.RagQueryResponse, error) {
	startTime := time.Now()

	outcome, err := s.orchestrator.HandleQuery(ctx, req.Question, s.ResolveTopK(req.TopK))
	if err != nil {
		return nil, err
	}

	answer := outcome.Message
	if outcome.Kind == model.OutcomeResults {
		answer = s.responder.Recommend(ctx, req.Question, outcome.Results)
	}

	resp := s.buildResponse(req.Question, outcome, answer, startTime)
	s.logSearch(resp)
	return resp, nil
}

// SearchStream runs the pipeline, reporting progress and streaming the answer.
// Events: "start", "filters", "results", then one "answer" per content delta.
func (s *SearchService) SearchStream(ctx context.Context, req *model.RagQueryRequest, callback SearchEventCallback) (*model.RagQueryResponse, error) {
	startTime := time.Now()
	searchID := uuid.NewString()

	if err := callback("start", map[string]any{
		"search_id": searchID,
		"query":     req.Question,
	}); err != nil {
		return nil, err
	}

	outcome, err := s.orchestrator.HandleQuery(ctx, req.Question, s.ResolveTopK(req.TopK))
	if err != nil {
		return nil, err
	}

	filtersEvent := map[string]any{
		"filters": outcome.Filters,
		"outcome": outcome.Kind,
	}
	if outcome.Strategy != 0 {
		filtersEvent["strategy"] = outcome.Strategy.String()
	}
	if outcome.Threshold != nil {
		filtersEvent["threshold"] = *outcome.Threshold
	}
	if err := callback("filters", filtersEvent); err != nil {
		return nil, err
	}

	if err := callback("results", map[string]any{
		"results": nonNilResults(outcome.Results),
		"count":   len(outcome.Results),
	}); err != nil {
		return nil, err
	}

	answer := outcome.Message
	sendDelta := func(delta string) error {
		return callback("answer", map[string]any{"content": delta})
	}
	if outcome.Kind == model.OutcomeResults {
		answer, err = s.responder.RecommendStream(ctx, req.Question, outcome.Results, sendDelta)
		if err != nil {
			return nil, err
		}
	} else if err := sendDelta(answer); err != nil {
		return nil, err
	}

	resp := s.buildResponse(req.Question, outcome, answer, startTime)
	resp.SearchID = searchID
	s.logSearch(resp)
	return resp, nil
}

func (s *SearchService) buildResponse(query string, outcome *QueryOutcome, answer string, startTime time.Time) *model.RagQueryResponse {
	resp := &model.RagQueryResponse{
		SearchID:  uuid.NewString(),
		Query:     query,
		Outcome:   outcome.Kind,
		Answer:    answer,
		Results:   nonNilResults(outcome.Results),
		Count:     len(outcome.Results),
		Filters:   outcome.Filters,
		Threshold: outcome.Threshold,
		Took:      time.Since(startTime).Milliseconds(),
	}
	if outcome.Strategy != 0 {
		resp.Strategy = outcome.Strategy.String()
	}
	return resp
}

// logSearch records the search without blocking the response
func (s *SearchService) logSearch(resp *model.RagQueryResponse) {
	if s.logger == nil {
		return
	}

	entry := &model.SearchLog{
		SearchID:    resp.SearchID,
		Query:       resp.Query,
		Filters:     resp.Filters,
		Strategy:    resp.Strategy,
		Outcome:     resp.Outcome,
		ResultCount: resp.Count,
		CarIDs:      make([]uint64, len(resp.Results)),
		TookMs:      resp.Took,
	}
	for i, r := range resp.Results {
		entry.CarIDs[i] = r.Car.ID
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.logger.LogSearch(ctx, entry); err != nil {
			log.Printf("⚠️  Failed to log search %s: %v", entry.SearchID, err)
		}
	}()
}

// GetCar retrieves a single car by id
func (s *SearchService) GetCar(ctx context.Context, id uint64) (*model.Car, error) {
	car, err := s.cars.GetCar(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrievalUnavailable, err)
	}
	if car == nil {
		return nil, fmt.Errorf("car %d: %w", id, ErrNotFound)
	}
	return car, nil
}

// LogFeedback logs user feedback/action
func (s *SearchService) LogFeedback(ctx context.Context, searchID string, carID uint64, action string) error {
	if s.logger == nil {
		return ErrFeedbackDisabled
	}
	return s.logger.LogFeedback(ctx, searchID, carID, action)
}

func nonNilResults(results []model.RankedResult) []model.RankedResult {
	if results == nil {
		return []model.RankedResult{}
	}
	return results
}
