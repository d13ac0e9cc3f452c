package model

// Predicate is a conjunction of field conditions understood by every retrieval backend
type Predicate struct {
	Must []Condition `json:"must"`
}

// Condition constrains one payload field by either a numeric range or an equality match
type Condition struct {
	Field string `json:"field"`
	Range *Range `json:"range,omitempty"`
	Match *Match `json:"match,omitempty"`
}

// Range is an inclusive numeric range; a nil bound is open-ended
type Range struct {
	Gte *float64 `json:"gte,omitempty"`
	Lte *float64 `json:"lte,omitempty"`
}

// Match is an equality test against either a keyword or an integer
type Match struct {
	Keyword *string `json:"keyword,omitempty"`
	Integer *int64  `json:"integer,omitempty"`
}

// RangeCondition builds a range condition on field
func RangeCondition(field string, gte, lte *float64) Condition {
	return Condition{Field: field, Range: &Range{Gte: gte, Lte: lte}}
}

// KeywordCondition builds a keyword equality condition on field
func KeywordCondition(field, value string) Condition {
	return Condition{Field: field, Match: &Match{Keyword: &value}}
}

// IntegerCondition builds an integer equality condition on field
func IntegerCondition(field string, value int64) Condition {
	return Condition{Field: field, Match: &Match{Integer: &value}}
}

// Find returns the first condition on field
func (p *Predicate) Find(field string) (Condition, bool) {
	if p == nil {
		return Condition{}, false
	}
	for _, c := range p.Must {
		if c.Field == field {
			return c, true
		}
	}
	return Condition{}, false
}
