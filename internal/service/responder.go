package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"carfinder/internal/model"
)

// Responder turns ranked cars into a conversational recommendation
type Responder struct {
	llm         TextCompleter
	temperature float64
}

// NewResponder creates a new responder
func NewResponder(llm TextCompleter, temperature float64) *Responder {
	return &Responder{llm: llm, temperature: temperature}
}

// Recommend asks the chat model for a recommendation. When the model is
// unavailable the formatted car list is returned instead.
func (r *Responder) Recommend(ctx context.Context, query string, results []model.RankedResult) string {
	carsText := FormatCars(results)
	if r.llm == nil {
		return carsText
	}

	answer, err := r.llm.Complete(ctx, recommendationSystemPrompt, recommendationUserPrompt(query, carsText), r.temperature, recommendationMaxTokens)
	if err != nil || strings.TrimSpace(answer) == "" {
		log.Printf("⚠️  Recommendation generation failed, returning car list: %v", err)
		return carsText
	}
	return answer
}

// RecommendStream is Recommend with content deltas forwarded to onDelta.
// Models without streaming support deliver the whole answer as one delta.
func (r *Responder) RecommendStream(ctx context.Context, query string, results []model.RankedResult, onDelta func(string) error) (string, error) {
	streamer, ok := r.llm.(StreamCompleter)
	if !ok {
		answer := r.Recommend(ctx, query, results)
		return answer, onDelta(answer)
	}

	carsText := FormatCars(results)
	sent := false
	answer, err := streamer.CompleteStream(ctx, recommendationSystemPrompt, recommendationUserPrompt(query, carsText), r.temperature, recommendationMaxTokens,
		func(delta string) error {
			sent = true
			return onDelta(delta)
		})
	if err == nil && strings.TrimSpace(answer) != "" {
		return answer, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	log.Printf("⚠️  Streaming recommendation failed, returning car list: %v", err)
	if sent {
		carsText = "\n\n" + carsText
	}
	return carsText, onDelta(carsText)
}

// FormatCars renders ranked cars as the numbered list shown to the chat model
func FormatCars(results []model.RankedResult) string {
	if len(results) == 0 {
		return "No cars found."
	}

	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		car := r.Car

		title := car.Model
		if car.Generation != "" {
			title += " (" + car.Generation + ")"
		}
		if car.Year != nil {
			title += fmt.Sprintf(", %d", *car.Year)
		}
		fmt.Fprintf(&b, "%d. %s", r.Rank, title)

		color := car.ColorRaw
		if color == "" {
			color = car.Color
		}
		var details []string
		for _, d := range []struct{ label, value string }{
			{"Color", color},
			{"Engine", car.Engine},
			{"Mileage", car.Mileage},
			{"City", car.City},
			{"Price", car.Price},
		} {
			if d.value != "" {
				details = append(details, d.label+": "+d.value)
			}
		}
		if len(details) > 0 {
			b.WriteString("\n   " + strings.Join(details, " | "))
		}
		if car.URL != "" {
			b.WriteString("\n   URL: " + car.URL)
		}
		if r.Score != nil {
			fmt.Fprintf(&b, "\n   Similarity: %.2f", *r.Score)
		}
	}
	return b.String()
}

// EmptyResultMessage explains that nothing matched the active filters
func EmptyResultMessage(filters model.FilterRecord) string {
	parts := filters.Describe()
	if len(parts) == 0 {
		return "We could not find any cars matching your request. " +
			"Try describing the car you are looking for in more detail, for example the model, budget or city."
	}
	return fmt.Sprintf("We could not find any cars matching your request (%s). "+
		"Try relaxing some of the criteria, for example a wider price range, a different color or another city.",
		strings.Join(parts, ", "))
}
