package service

import (
	"context"
	"log"
	"strings"

	"carfinder/internal/model"
	"carfinder/internal/utils"
)

// FilterExtractor interprets free-text queries with a chat model
type FilterExtractor struct {
	llm TextCompleter
}

// NewFilterExtractor creates a new filter extractor
func NewFilterExtractor(llm TextCompleter) *FilterExtractor {
	return &FilterExtractor{llm: llm}
}

// Extract parses a query into structured filters.
// It never fails: an unavailable model or a malformed answer yields an empty record.
func (e *FilterExtractor) Extract(ctx context.Context, query string) model.FilterRecord {
	query = strings.TrimSpace(query)
	if query == "" || e.llm == nil {
		return model.FilterRecord{}
	}

	content, err := e.llm.Complete(ctx, extractionSystemPrompt, extractionUserPrompt(query), extractionTemperature, extractionMaxTokens)
	if err != nil {
		log.Printf("⚠️  Filter extraction failed: %v", err)
		return model.FilterRecord{}
	}

	var filters model.FilterRecord
	if err := utils.ParseModelJSON(content, &filters); err != nil {
		log.Printf("⚠️  Filter extraction returned malformed JSON: %v", err)
		return model.FilterRecord{}
	}

	filters = CanonicalizeFilters(filters.Compact())
	log.Printf("[DEBUG] 🎯 Extracted filters: %v", filters.Describe())
	return filters
}

// CanonicalizeFilters maps color and city to their canonical tokens.
// Values that cannot be mapped are kept as extracted.
func CanonicalizeFilters(f model.FilterRecord) model.FilterRecord {
	if f.Color != nil {
		if canon, ok := utils.NormalizeColor(*f.Color); ok {
			f.Color = &canon
		}
	}
	if f.City != nil {
		if canon, ok := utils.NormalizeCity(*f.City); ok {
			f.City = &canon
		}
	}
	return f
}

// DetectQueryType classifies whether the query is about finding a car.
// Any failure falls back to a recommendation so retrieval is still attempted.
func (e *FilterExtractor) DetectQueryType(ctx context.Context, query string) model.QueryType {
	fallback := model.QueryType{Type: model.QueryTypeRecommendation}
	if e.llm == nil {
		return fallback
	}

	content, err := e.llm.Complete(ctx, intentSystemPrompt, query, intentTemperature, intentMaxTokens)
	if err != nil {
		log.Printf("⚠️  Query type detection failed: %v", err)
		return fallback
	}

	var verdict model.QueryType
	if err := utils.ParseModelJSON(content, &verdict); err != nil {
		log.Printf("⚠️  Query type detection returned malformed JSON: %v", err)
		return fallback
	}

	switch strings.ToLower(strings.TrimSpace(verdict.Type)) {
	case model.QueryTypeGeneral:
		msg := strings.TrimSpace(verdict.Message)
		if msg == "" {
			msg = defaultGeneralReply
		}
		return model.QueryType{Type: model.QueryTypeGeneral, Message: msg}
	case model.QueryTypeRecommendation:
		return fallback
	default:
		log.Printf("⚠️  Unknown query type %q, treating as recommendation", verdict.Type)
		return fallback
	}
}
