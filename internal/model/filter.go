package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// YearKind distinguishes the three shapes of a year preference
type YearKind int

const (
	YearNone YearKind = iota
	YearNewest
	YearOldest
	YearSpecific
)

// YearPreference is either "newest", "oldest" or a specific model year
type YearPreference struct {
	Kind YearKind
	Year int // set only when Kind == YearSpecific
}

// Newest returns the "newest" preference
func Newest() *YearPreference { return &YearPreference{Kind: YearNewest} }

// Oldest returns the "oldest" preference
func Oldest() *YearPreference { return &YearPreference{Kind: YearOldest} }

// SpecificYear returns a preference for exactly the given model year
func SpecificYear(year int) *YearPreference {
	return &YearPreference{Kind: YearSpecific, Year: year}
}

// IsSpecific reports whether the preference names a concrete year
func (y *YearPreference) IsSpecific() bool {
	return y != nil && y.Kind == YearSpecific
}

func (y *YearPreference) String() string {
	if y == nil {
		return ""
	}
	switch y.Kind {
	case YearNewest:
		return "newest"
	case YearOldest:
		return "oldest"
	case YearSpecific:
		return strconv.Itoa(y.Year)
	default:
		return ""
	}
}

// MarshalJSON implements json.Marshaler
func (y YearPreference) MarshalJSON() ([]byte, error) {
	switch y.Kind {
	case YearNewest:
		return []byte(`"newest"`), nil
	case YearOldest:
		return []byte(`"oldest"`), nil
	case YearSpecific:
		return []byte(strconv.Itoa(y.Year)), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
// Accepts "newest", "oldest", an integral number or a string of digits.
func (y *YearPreference) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*y = YearPreference{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.ToLower(strings.TrimSpace(s))
		switch s {
		case "newest":
			*y = YearPreference{Kind: YearNewest}
			return nil
		case "oldest":
			*y = YearPreference{Kind: YearOldest}
			return nil
		case "":
			*y = YearPreference{}
			return nil
		}
		year, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid year_preference %q", s)
		}
		*y = specificOrNone(year)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid year_preference %s", string(data))
	}
	if f != float64(int(f)) {
		return fmt.Errorf("year_preference must be an integer, got %v", f)
	}
	*y = specificOrNone(int(f))
	return nil
}

// specificOrNone treats non-positive years as "no preference"
func specificOrNone(year int) YearPreference {
	if year <= 0 {
		return YearPreference{}
	}
	return YearPreference{Kind: YearSpecific, Year: year}
}

// FilterRecord is the structured interpretation of a free-text query.
// Every field is independently optional; the zero value means "no filters".
type FilterRecord struct {
	Model          *string         `json:"model"`
	MaxPrice       *float64        `json:"max_price"`
	MinPrice       *float64        `json:"min_price"`
	MaxMileage     *float64        `json:"max_mileage"`
	MinMileage     *float64        `json:"min_mileage"`
	Color          *string         `json:"color"`
	City           *string         `json:"city"`
	YearPreference *YearPreference `json:"year_preference"`
	Engine         *string         `json:"engine"`
}

// IsEmpty reports whether no filter is set
func (f FilterRecord) IsEmpty() bool {
	return f.Model == nil &&
		f.MaxPrice == nil && f.MinPrice == nil &&
		f.MaxMileage == nil && f.MinMileage == nil &&
		f.Color == nil && f.City == nil &&
		(f.YearPreference == nil || f.YearPreference.Kind == YearNone) &&
		f.Engine == nil
}

// HasModel reports whether the query names a car model
func (f FilterRecord) HasModel() bool {
	return f.Model != nil
}

// Compact drops blank strings and empty year preferences so that
// "" behaves exactly like an absent field
func (f FilterRecord) Compact() FilterRecord {
	f.Model = nonBlank(f.Model)
	f.Color = nonBlank(f.Color)
	f.City = nonBlank(f.City)
	f.Engine = nonBlank(f.Engine)
	if f.YearPreference != nil && f.YearPreference.Kind == YearNone {
		f.YearPreference = nil
	}
	return f
}

func nonBlank(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Describe renders the active filters as a short human-readable list
func (f FilterRecord) Describe() []string {
	var parts []string
	if f.Model != nil {
		parts = append(parts, "model "+*f.Model)
	}
	switch {
	case f.MinPrice != nil && f.MaxPrice != nil:
		parts = append(parts, fmt.Sprintf("price between %.0f and %.0f", *f.MinPrice, *f.MaxPrice))
	case f.MaxPrice != nil:
		parts = append(parts, fmt.Sprintf("price up to %.0f", *f.MaxPrice))
	case f.MinPrice != nil:
		parts = append(parts, fmt.Sprintf("price from %.0f", *f.MinPrice))
	}
	switch {
	case f.MinMileage != nil && f.MaxMileage != nil:
		parts = append(parts, fmt.Sprintf("mileage between %.0f and %.0f km", *f.MinMileage, *f.MaxMileage))
	case f.MaxMileage != nil:
		parts = append(parts, fmt.Sprintf("mileage up to %.0f km", *f.MaxMileage))
	case f.MinMileage != nil:
		parts = append(parts, fmt.Sprintf("mileage from %.0f km", *f.MinMileage))
	}
	if f.Color != nil {
		parts = append(parts, "color "+*f.Color)
	}
	if f.City != nil {
		parts = append(parts, "city "+*f.City)
	}
	if f.YearPreference != nil {
		switch f.YearPreference.Kind {
		case YearNewest:
			parts = append(parts, "newest model year")
		case YearOldest:
			parts = append(parts, "oldest model year")
		case YearSpecific:
			parts = append(parts, fmt.Sprintf("model year %d", f.YearPreference.Year))
		}
	}
	if f.Engine != nil {
		parts = append(parts, "engine "+*f.Engine)
	}
	return parts
}
