package model

// Query types returned by intent detection
const (
	QueryTypeGeneral        = "general"
	QueryTypeRecommendation = "recommendation"
)

// QueryType classifies whether a query is about finding a car
type QueryType struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// IsGeneral reports whether the query is out of domain
func (q QueryType) IsGeneral() bool {
	return q.Type == QueryTypeGeneral
}
