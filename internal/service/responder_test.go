package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carfinder/internal/model"
)

func sampleResults() []model.RankedResult {
	score := 0.7345
	return []model.RankedResult{
		{
			Car: model.Car{
				ID: 7, Model: "Toyota Camry", Generation: "XV70", Year: intPtr(2019),
				Color: "white", ColorRaw: "белый металлик", Engine: "2.5 (бензин)",
				Mileage: "120 000 км", City: "Алматы", Price: "15 000 000 ₸", URL: "https://kolesa.kz/a/7",
			},
			Score: &score,
			Rank:  1,
		},
		{
			Car:  model.Car{ID: 8, Model: "Lexus RX", Color: "black"},
			Rank: 2,
		},
	}
}

func TestFormatCars(t *testing.T) {
	got := FormatCars(sampleResults())

	assert.Contains(t, got, "1. Toyota Camry (XV70), 2019")
	assert.Contains(t, got, "Color: белый металлик | Engine: 2.5 (бензин) | Mileage: 120 000 км | City: Алматы | Price: 15 000 000 ₸")
	assert.Contains(t, got, "URL: https://kolesa.kz/a/7")
	assert.Contains(t, got, "Similarity: 0.73")
	assert.Contains(t, got, "2. Lexus RX\n   Color: black")
	assert.Equal(t, 1, strings.Count(got, "Similarity"))

	assert.Equal(t, "No cars found.", FormatCars(nil))
}

func TestResponder_Recommend(t *testing.T) {
	llm := newFakeCompleter().on(recommendationSystemPrompt, "The Camry is a great fit.")
	r := NewResponder(llm, 0.7)

	got := r.Recommend(context.Background(), "white camry", sampleResults())
	assert.Equal(t, "The Camry is a great fit.", got)
	assert.Contains(t, llm.lastUser[recommendationSystemPrompt], "white camry")
	assert.Contains(t, llm.lastUser[recommendationSystemPrompt], "1. Toyota Camry")
}

func TestResponder_RecommendFallsBackToList(t *testing.T) {
	llm := newFakeCompleter().fail(recommendationSystemPrompt, errors.New("rate limited"))
	got := NewResponder(llm, 0.7).Recommend(context.Background(), "white camry", sampleResults())
	assert.Equal(t, FormatCars(sampleResults()), got)
}

func TestResponder_RecommendStream(t *testing.T) {
	llm := newFakeCompleter().on(recommendationSystemPrompt, "The Camry is a great fit.")
	var deltas []string
	got, err := NewResponder(llm, 0.7).RecommendStream(context.Background(), "q", sampleResults(), func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "The Camry is a great fit.", got)
	assert.Equal(t, got, strings.Join(deltas, ""))
	assert.Greater(t, len(deltas), 1)
}

func TestResponder_RecommendStreamFallback(t *testing.T) {
	llm := newFakeCompleter().fail(recommendationSystemPrompt, errors.New("boom"))
	var deltas []string
	got, err := NewResponder(llm, 0.7).RecommendStream(context.Background(), "q", sampleResults(), func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, FormatCars(sampleResults()), got)
	assert.Equal(t, []string{got}, deltas)
}

func TestEmptyResultMessage(t *testing.T) {
	msg := EmptyResultMessage(model.FilterRecord{
		Model:    strPtr("Subaru Outback"),
		MaxPrice: float64Ptr(2000000),
		Color:    strPtr("white"),
	})
	assert.Contains(t, msg, "model Subaru Outback, price up to 2000000, color white")
	assert.NotEmpty(t, EmptyResultMessage(model.FilterRecord{}))
}
