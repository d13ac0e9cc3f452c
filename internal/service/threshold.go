package service

import "carfinder/internal/model"

// ActiveFilterCount counts the independent filter dimensions of a record.
// Price and mileage count once each whatever bounds are set; year counts only
// when it names a specific year. The model name is not a dimension.
func ActiveFilterCount(f model.FilterRecord) int {
	count := 0
	if f.MinPrice != nil || f.MaxPrice != nil {
		count++
	}
	if f.MinMileage != nil || f.MaxMileage != nil {
		count++
	}
	if f.Color != nil {
		count++
	}
	if f.City != nil {
		count++
	}
	if f.Engine != nil {
		count++
	}
	if f.YearPreference.IsSpecific() {
		count++
	}
	return count
}

// Threshold returns the similarity cutoff for a query:
// min(minThreshold + count*increment, baseThreshold)
func Threshold(f model.FilterRecord, baseThreshold, minThreshold, increment float64) float64 {
	t := minThreshold + float64(ActiveFilterCount(f))*increment
	if t > baseThreshold {
		return baseThreshold
	}
	return t
}
