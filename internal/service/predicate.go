package service

import "carfinder/internal/model"

// BuildPredicate converts filters into AND-ed retrieval conditions, in the
// fixed order price, mileage, year, color, city, engine. It returns nil when
// no condition applies. Year conditions are emitted only for a specific
// year; "newest" and "oldest" are resolved by sorting.
func BuildPredicate(f model.FilterRecord) *model.Predicate {
	var must []model.Condition

	if f.MinPrice != nil || f.MaxPrice != nil {
		must = append(must, model.RangeCondition(model.FieldPriceNum, f.MinPrice, f.MaxPrice))
	}
	if f.MinMileage != nil || f.MaxMileage != nil {
		must = append(must, model.RangeCondition(model.FieldMileageNum, f.MinMileage, f.MaxMileage))
	}
	if f.YearPreference.IsSpecific() {
		must = append(must, model.IntegerCondition(model.FieldYear, int64(f.YearPreference.Year)))
	}
	if f.Color != nil {
		must = append(must, model.KeywordCondition(model.FieldColor, *f.Color))
	}
	if f.City != nil {
		must = append(must, model.KeywordCondition(model.FieldCity, *f.City))
	}
	if f.Engine != nil {
		must = append(must, model.KeywordCondition(model.FieldEngine, *f.Engine))
	}

	if len(must) == 0 {
		return nil
	}
	return &model.Predicate{Must: must}
}
