package service

import (
	"math"
	"sort"
	"strings"

	"carfinder/internal/model"
)

// Match reason constants
const (
	ReasonModelMatch    = "Model match"
	ReasonPriceMatch    = "Price within budget"
	ReasonMileageMatch  = "Mileage within range"
	ReasonColorMatch    = "Color match"
	ReasonCityMatch     = "City match"
	ReasonEngineMatch   = "Engine match"
	ReasonYearMatch     = "Model year match"
	ReasonNewest        = "Among the newest"
	ReasonOldest        = "Among the oldest"
	ReasonSemanticMatch = "Similar to your description"
	ReasonGeneralMatch  = "General match"
)

// missing years sort last under "oldest"
const missingYearOldest = math.MaxInt

// Candidate is a retrieved car before ranking; Score is nil for enumeration
type Candidate struct {
	Car   model.Car
	Score *float64
}

// Ranker orders, truncates and annotates retrieved cars
type Ranker struct{}

// NewRanker creates a new ranker
func NewRanker() *Ranker {
	return &Ranker{}
}

// RankResults sorts candidates by the year preference, keeps the first topK
// and assigns 1-based ranks with human-readable match reasons
func (r *Ranker) RankResults(candidates []Candidate, filters model.FilterRecord, topK int) []model.RankedResult {
	sorted := append([]Candidate(nil), candidates...)
	SortByYearPreference(sorted, filters.YearPreference)

	if topK >= 0 && len(sorted) > topK {
		sorted = sorted[:topK]
	}

	results := make([]model.RankedResult, 0, len(sorted))
	for i, c := range sorted {
		results = append(results, model.RankedResult{
			Car:            c.Car,
			Score:          c.Score,
			Rank:           i + 1,
			MatchedReasons: r.generateMatchedReasons(c, filters),
		})
	}
	return results
}

// SortByYearPreference reorders candidates in place. "newest" sorts by year
// descending with missing years as 0, "oldest" ascending with missing years
// last. Any other preference keeps retrieval order. The sort is stable.
func SortByYearPreference(candidates []Candidate, pref *model.YearPreference) {
	if pref == nil {
		return
	}

	switch pref.Kind {
	case model.YearNewest:
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Car.YearOrZero() > candidates[j].Car.YearOrZero()
		})
	case model.YearOldest:
		sort.SliceStable(candidates, func(i, j int) bool {
			return oldestKey(candidates[i].Car) < oldestKey(candidates[j].Car)
		})
	}
}

func oldestKey(car model.Car) int {
	if car.Year == nil {
		return missingYearOldest
	}
	return *car.Year
}

// generateMatchedReasons explains why this car matched the filters
func (r *Ranker) generateMatchedReasons(c Candidate, f model.FilterRecord) []string {
	reasons := []string{}
	car := c.Car

	if f.Model != nil && strings.Contains(strings.ToLower(car.Model), strings.ToLower(*f.Model)) {
		reasons = append(reasons, ReasonModelMatch)
	}
	if (f.MinPrice != nil || f.MaxPrice != nil) && withinBounds(car.PriceNum, f.MinPrice, f.MaxPrice) {
		reasons = append(reasons, ReasonPriceMatch)
	}
	if (f.MinMileage != nil || f.MaxMileage != nil) && withinBounds(car.MileageNum, f.MinMileage, f.MaxMileage) {
		reasons = append(reasons, ReasonMileageMatch)
	}
	if f.Color != nil && strings.EqualFold(car.Color, *f.Color) {
		reasons = append(reasons, ReasonColorMatch)
	}
	if f.City != nil && strings.EqualFold(car.City, *f.City) {
		reasons = append(reasons, ReasonCityMatch)
	}
	if f.Engine != nil && strings.EqualFold(car.Engine, *f.Engine) {
		reasons = append(reasons, ReasonEngineMatch)
	}

	if f.YearPreference != nil && car.Year != nil {
		switch f.YearPreference.Kind {
		case model.YearSpecific:
			if *car.Year == f.YearPreference.Year {
				reasons = append(reasons, ReasonYearMatch)
			}
		case model.YearNewest:
			reasons = append(reasons, ReasonNewest)
		case model.YearOldest:
			reasons = append(reasons, ReasonOldest)
		}
	}

	if c.Score != nil {
		reasons = append(reasons, ReasonSemanticMatch)
	}

	if len(reasons) == 0 {
		reasons = append(reasons, ReasonGeneralMatch)
	}

	return reasons
}

func withinBounds(v, lo, hi *float64) bool {
	if v == nil {
		return false
	}
	if lo != nil && *v < *lo {
		return false
	}
	if hi != nil && *v > *hi {
		return false
	}
	return true
}
