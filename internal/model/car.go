package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Payload keys stored alongside every vector in the index
const (
	FieldModel       = "model"
	FieldGeneration  = "generation"
	FieldCity        = "city"
	FieldMileage     = "mileage"
	FieldMileageNum  = "mileage_num"
	FieldColor       = "color"
	FieldColorRaw    = "color_raw"
	FieldEngine      = "engine"
	FieldPrice       = "price"
	FieldPriceNum    = "price_num"
	FieldYear        = "modelYear"
	FieldURL         = "url"
	FieldDescription = "description"
)

// Car represents an inventory item stored in the vector index
type Car struct {
	ID          uint64   `json:"id" db:"id"`
	Model       string   `json:"model" db:"model"`
	Generation  string   `json:"generation,omitempty" db:"generation"`
	City        string   `json:"city,omitempty" db:"city"`
	Mileage     string   `json:"mileage,omitempty" db:"mileage"`
	MileageNum  *float64 `json:"mileage_num,omitempty" db:"mileage_num"`
	Color       string   `json:"color,omitempty" db:"color"`
	ColorRaw    string   `json:"color_raw,omitempty" db:"color_raw"`
	Engine      string   `json:"engine,omitempty" db:"engine"`
	Price       string   `json:"price,omitempty" db:"price"`
	PriceNum    *float64 `json:"price_num,omitempty" db:"price_num"`
	Year        *int     `json:"modelYear,omitempty" db:"model_year"`
	URL         string   `json:"url,omitempty" db:"url"`
	Description string   `json:"description,omitempty" db:"description"`
}

// YearOrZero returns the model year, or 0 when unknown
func (c Car) YearOrZero() int {
	if c.Year == nil {
		return 0
	}
	return *c.Year
}

// ScoredCar is a car returned by similarity search
type ScoredCar struct {
	Car
	Score float64 `json:"score"`
}

// RankedResult is a car in its final position for one query.
// Score is nil for results that came from filtered enumeration.
type RankedResult struct {
	Car            Car      `json:"car"`
	Score          *float64 `json:"similarity_score"`
	Rank           int      `json:"rank"`
	MatchedReasons []string `json:"matched_reasons"`
}

// CatalogCar is a raw catalog record as it appears in the ingest file
type CatalogCar struct {
	ID         *uint64  `json:"id,omitempty"`
	Model      string   `json:"model"`
	Generation string   `json:"generation"`
	City       string   `json:"city"`
	Mileage    FlexText `json:"mileage"`
	MileageNum *float64 `json:"mileage_num,omitempty"`
	Color      string   `json:"color"`
	Engine     string   `json:"engine"`
	Price      FlexText `json:"price"`
	PriceNum   *float64 `json:"price_num,omitempty"`
	ModelYear  *FlexInt `json:"modelYear,omitempty"`
	URL        string   `json:"url"`
}

// FlexText accepts either a JSON string or a JSON number
type FlexText string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(data))
	}
	*f = FlexText(n.String())
	return nil
}

// FlexInt accepts a JSON integer or a string of digits
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	var text FlexText
	if err := text.UnmarshalJSON(data); err != nil {
		return err
	}
	s := strings.TrimSpace(string(text))
	if s == "" {
		*f = 0
		return nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		*f = FlexInt(v)
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v != float64(int(v)) {
		return fmt.Errorf("expected integer, got %q", s)
	}
	*f = FlexInt(int(v))
	return nil
}

// IndexedCar is a car together with the embedding of its description
type IndexedCar struct {
	Car    Car
	Vector []float32
}
