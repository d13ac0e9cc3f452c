package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYearPreference_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *YearPreference
		wantErr bool
	}{
		{name: "newest", input: `"newest"`, want: Newest()},
		{name: "oldest mixed case", input: `" Oldest "`, want: Oldest()},
		{name: "integer", input: `2020`, want: SpecificYear(2020)},
		{name: "integral float", input: `2019.0`, want: SpecificYear(2019)},
		{name: "digit string", input: `"2018"`, want: SpecificYear(2018)},
		{name: "null", input: `null`, want: nil},
		{name: "zero", input: `0`, want: &YearPreference{}},
		{name: "zero string", input: `"0"`, want: &YearPreference{}},
		{name: "negative", input: `-2020`, want: &YearPreference{}},
		{name: "fractional", input: `2019.5`, wantErr: true},
		{name: "unknown word", input: `"recent"`, wantErr: true},
		{name: "object", input: `{"year": 2020}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec FilterRecord
			err := json.Unmarshal([]byte(`{"year_preference": `+tt.input+`}`), &rec)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.YearPreference)
			if tt.want != nil && tt.want.Kind == YearNone {
				assert.Nil(t, rec.Compact().YearPreference)
			}
		})
	}
}

func TestYearPreference_MarshalJSON(t *testing.T) {
	rec := FilterRecord{YearPreference: SpecificYear(2021)}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"year_preference":2021`)

	rec.YearPreference = Newest()
	data, err = json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"year_preference":"newest"`)

	rec.YearPreference = nil
	data, err = json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"year_preference":null`)
}

func TestFilterRecord_IsEmptyAndCompact(t *testing.T) {
	blank := "  "
	rec := FilterRecord{Color: &blank, YearPreference: &YearPreference{}}
	assert.False(t, rec.IsEmpty())

	compact := rec.Compact()
	assert.True(t, compact.IsEmpty())
	assert.Nil(t, compact.Color)
	assert.Nil(t, compact.YearPreference)

	model := " Toyota Camry "
	compact = FilterRecord{Model: &model}.Compact()
	require.NotNil(t, compact.Model)
	assert.Equal(t, "Toyota Camry", *compact.Model)
	assert.True(t, compact.HasModel())
}

func TestFilterRecord_Describe(t *testing.T) {
	maxPrice := 2000000.0
	color := "white"
	model := "Subaru Outback"
	rec := FilterRecord{Model: &model, MaxPrice: &maxPrice, Color: &color, YearPreference: Newest()}

	assert.Equal(t, []string{
		"model Subaru Outback",
		"price up to 2000000",
		"color white",
		"newest model year",
	}, rec.Describe())
	assert.Empty(t, FilterRecord{}.Describe())
}

func TestCatalogCar_FlexibleFields(t *testing.T) {
	var car CatalogCar
	err := json.Unmarshal([]byte(`{"model":"Toyota Camry","price":15000000,"mileage":"120 000 км","modelYear":"2018"}`), &car)
	require.NoError(t, err)
	assert.Equal(t, FlexText("15000000"), car.Price)
	assert.Equal(t, FlexText("120 000 км"), car.Mileage)
	require.NotNil(t, car.ModelYear)
	assert.Equal(t, FlexInt(2018), *car.ModelYear)

	err = json.Unmarshal([]byte(`{"modelYear":"twenty"}`), &car)
	assert.Error(t, err)
}
