package model

// RagQueryRequest represents a car search request
type RagQueryRequest struct {
	Question string `json:"question" binding:"required"`
	TopK     *int   `json:"top_k,omitempty"`
}

// Outcome names the terminal state of a query
type Outcome string

const (
	OutcomeGeneralReply Outcome = "general"
	OutcomeResults      Outcome = "results"
	OutcomeEmpty        Outcome = "empty"
)

// RagQueryResponse represents the answer to a car search request
type RagQueryResponse struct {
	SearchID  string         `json:"search_id,omitempty"`
	Query     string         `json:"query"`
	Outcome   Outcome        `json:"outcome"`
	Answer    string         `json:"answer"`
	Results   []RankedResult `json:"results"`
	Count     int            `json:"count"`
	Filters   FilterRecord   `json:"filters"`
	Strategy  string         `json:"strategy,omitempty"`
	Threshold *float64       `json:"threshold,omitempty"`
	Took      int64          `json:"took_ms"` // Response time in milliseconds
}

// CarBatchRequest represents a batch of catalog cars to ingest
type CarBatchRequest struct {
	Cars []CatalogCar `json:"cars" binding:"required"`
}

// CarBatchResponse represents the result of a batch ingest
type CarBatchResponse struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// FeedbackRequest represents user feedback on a search result
type FeedbackRequest struct {
	SearchID string `json:"search_id" binding:"required"`
	CarID    uint64 `json:"car_id"`
	Action   string `json:"action" binding:"required"` // click, contact, view_details
}

// FeedbackResponse represents feedback response
type FeedbackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// AliveResponse is the liveness probe body
type AliveResponse struct {
	Status string `json:"status"`
}

// SearchLog is one row of the search audit trail
type SearchLog struct {
	SearchID    string       `json:"search_id" db:"search_id"`
	Query       string       `json:"query" db:"query"`
	Filters     FilterRecord `json:"filters" db:"-"`
	Strategy    string       `json:"strategy" db:"strategy"`
	Outcome     Outcome      `json:"outcome" db:"outcome"`
	ResultCount int          `json:"result_count" db:"result_count"`
	CarIDs      []uint64     `json:"car_ids" db:"-"`
	TookMs      int64        `json:"took_ms" db:"took_ms"`
}
