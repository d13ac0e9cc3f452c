package service

import (
	"fmt"
	"strings"

	"carfinder/internal/model"
)

// Generation settings for each prompt
const (
	extractionTemperature = 0.1
	extractionMaxTokens   = 200

	intentTemperature = 0.1
	intentMaxTokens   = 100

	recommendationMaxTokens = 1000

	// DescriptionTemperature and DescriptionMaxTokens are used by catalog ingest
	DescriptionTemperature = 0.3
	DescriptionMaxTokens   = 150
)

const extractionSystemPrompt = "You are a helpful assistant that extracts structured data from queries. Return only valid JSON."

func extractionUserPrompt(query string) string {
	return fmt.Sprintf(`Extract filters from this car search query in JSON format.
Query: %q

Extract the following information if mentioned:
- model: Car model name
- max_price: Maximum price in tenge (extract numeric value, e.g., "до 15 000 000 тенге" -> 15000000)
- min_price: Minimum price in tenge
- max_mileage: Maximum mileage in km (extract numeric value)
- min_mileage: Minimum mileage in km
- color: Car color (exact match)
- city: City name (exact match)
- year_preference: "newest", "oldest", or specific year (e.g., 2020)
- engine: Engine type (e.g., "2.5 (бензин)")

Return ONLY valid JSON in this format:
{
    "model": null or string,
    "max_price": null or number,
    "min_price": null or number,
    "max_mileage": null or number,
    "min_mileage": null or number,
    "color": null or string,
    "city": null or string,
    "year_preference": null or "newest" or "oldest" or year number,
    "engine": null or string
}

If a filter is not mentioned, use null. Return ONLY the JSON, no other text.`, query)
}

const intentSystemPrompt = `You are an expert car consultant. Your task is to meet clients in our system and help them find the best car that matches their needs and preferences.
You need to detect if the client is asking a general question or a query related to cars.
The output format should be a JSON object with the following fields:
- type: "general" or "recommendation"
- message: leave empty if type is "recommendation", or a generated response if type is "general"
For any general question you should generate a polite and helpful response that will help the client to understand that we are responsible only for choosing cars in our showroom.
Don't provide any information which is not related to our services.`

// defaultGeneralReply is used when the model flags a query as general but writes no reply
const defaultGeneralReply = "Hello and welcome! We can only help you choose a car from our showroom. " +
	"Tell us which model you are interested in, along with your preferences for price, mileage, color, city, engine or year."

const recommendationSystemPrompt = "You are an expert car consultant. Your role is to help customers find the best car that " +
	"matches their needs and preferences. You provide clear, helpful " +
	"recommendations based on the available inventory."

func recommendationUserPrompt(query, carsText string) string {
	return fmt.Sprintf(`A customer is asking: %q

Below are cars from our inventory that match their query (sorted by relevance):

%s

Please provide a helpful recommendation following these guidelines:
1. Analyze the customer's question and identify their key requirements (price range, mileage, color, location, etc.)
2. Recommend the best matching car(s) from the list above
3. For each recommended car, clearly state why it matches their needs
4. Format your response in a friendly, conversational manner
5. Include the URL for each recommended car so the customer can view more details

If no cars truly match the customer's requirements, politely explain this and suggest alternative criteria.`, query, carsText)
}

// DescriptionSystemPrompt frames the ingest-time semantic description that
// is embedded in place of the raw catalog record
const DescriptionSystemPrompt = "You are a helpful assistant that creates natural, semantic descriptions of cars for search purposes."

// DescriptionUserPrompt renders the description request for one catalog car
func DescriptionUserPrompt(car *model.Car) string {
	return fmt.Sprintf(`Create a natural, semantic description of this car for search purposes.
Focus on describing the car in a way that would help someone find it through natural language queries.

Car details:
- Model: %s
- Generation: %s
- Year: %s
- Color: %s
- Engine: %s
- Mileage: %s
- City: %s
- Price: %s

Write a natural, conversational description that captures the essence of this car.
Focus on semantic meaning - describe what kind of car it is, its characteristics, and what someone might search for.
Do NOT include exact numeric values like specific prices or mileage numbers in the description.
Instead, describe them semantically (e.g., "affordable", "low mileage", "recent model", etc.).

Keep it concise (2-3 sentences) and natural. Write in English.`,
		orNA(car.Model), orNA(car.Generation), orNA(yearText(car.Year)), orNA(car.ColorRaw),
		orNA(car.Engine), orNA(car.Mileage), orNA(car.City), orNA(car.Price))
}

// FallbackDescription is used when the chat model cannot describe a car
func FallbackDescription(car *model.Car) string {
	parts := []string{orDefault(car.Model, "Car")}
	if car.Generation != "" {
		parts = append(parts, car.Generation)
	}
	if car.ColorRaw != "" {
		parts = append(parts, "in "+car.ColorRaw+" color")
	}
	if car.Engine != "" {
		parts = append(parts, "with "+car.Engine+" engine")
	}
	return strings.Join(parts, " ")
}

func yearText(year *int) string {
	if year == nil {
		return ""
	}
	return fmt.Sprintf("%d", *year)
}

func orNA(s string) string {
	return orDefault(s, "N/A")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
