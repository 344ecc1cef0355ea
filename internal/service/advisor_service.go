package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/agriconnect/agriclient/internal/adapter/outbound/advisor"
	"github.com/agriconnect/agriclient/internal/domain/advisory"
	"github.com/agriconnect/agriclient/internal/domain/cache"
	"github.com/agriconnect/agriclient/internal/domain/session"
)

// systemInstruction frames every chat exchange. The advisor speaks as a
// practical agronomist for Ghana and Sub-Saharan Africa.
const systemInstruction = `You are "AgriGuide", a friendly and expert agricultural advisor specifically for farmers in Ghana and Sub-Saharan Africa.
- Your tone is encouraging, practical, and respectful.
- When discussing currency, use Ghana Cedis (GHS).
- Focus on crops like Cocoa, Maize, Cassava, Yams, Plantains, and Rice.
- Provide organic and accessible remedies for pest control when possible.`

// AdvisorService produces farming advice through the AI proxy. Every
// dashboard producer is wrapped with the cache-first fetcher so the
// last known-good answer survives going offline; chat, diagnosis, and
// image generation are live-only.
type AdvisorService struct {
	ai      *advisor.Client
	fetcher *cache.Fetcher
	logger  *slog.Logger
}

// NewAdvisorService creates an AdvisorService.
func NewAdvisorService(ai *advisor.Client, fetcher *cache.Fetcher, logger *slog.Logger) *AdvisorService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdvisorService{ai: ai, fetcher: fetcher, logger: logger}
}

// Weather returns the current forecast for a location, cached per
// location and language.
func (s *AdvisorService) Weather(ctx context.Context, location string, lang advisory.Language) (cache.Entry[advisory.WeatherData], error) {
	key := fmt.Sprintf("weather_%s_%s", location, lang)
	return cache.WithCache(ctx, s.fetcher, key, func(ctx context.Context) (advisory.WeatherData, error) {
		prompt := fmt.Sprintf(`Find the current weather forecast for %s.
If the location is coordinates, identify the nearest town or region name.

Return the details in the following EXACT format (keep keys in English):
CITY: [City/Region Name]
TEMP: [Temperature e.g. 30°C]
RAIN: [Precipitation chance e.g. 20%%]
WIND: [Wind speed e.g. 15 km/h]
CONDITION: [Short weather description translated to %s]`, location, lang.Name())

		req := advisor.TextRequest(prompt)
		req.Tools = []advisor.Tool{{GoogleSearch: &struct{}{}}}
		resp, err := s.ai.GenerateContent(ctx, advisor.TextModel, req)
		if err != nil {
			return advisory.WeatherData{}, err
		}

		text := resp.Text()
		locationName := keyValue(text, "CITY")
		if locationName == "--" {
			locationName = location
		}
		return advisory.WeatherData{
			LocationName:  locationName,
			Temp:          keyValue(text, "TEMP"),
			Precipitation: keyValue(text, "RAIN"),
			Wind:          keyValue(text, "WIND"),
			Condition:     keyValue(text, "CONDITION"),
		}, nil
	})
}

// PestRisk predicts pest and disease pressure for the current weather,
// cached per location and language.
func (s *AdvisorService) PestRisk(ctx context.Context, weatherCondition, location string, lang advisory.Language) (cache.Entry[advisory.PestForecast], error) {
	key := fmt.Sprintf("pest_risk_%s_%s", location, lang)
	return cache.WithCache(ctx, s.fetcher, key, func(ctx context.Context) (advisory.PestForecast, error) {
		prompt := fmt.Sprintf(`Based on the current weather condition "%s" in Ghana, predict the risk of fungal diseases or insect pests for common crops (Cocoa, Maize, Tomato).

Output format EXACTLY like this:
RISK: [Low/Medium/High]
ALERT: [One sentence warning in %s about specific pests/diseases likely to thrive now]
ACTION: [One simple preventive action in %s]`, weatherCondition, lang.Name(), lang.Name())

		resp, err := s.ai.GenerateContent(ctx, advisor.TextModel, advisor.TextRequest(prompt))
		if err != nil {
			return advisory.PestForecast{}, err
		}

		text := resp.Text()
		forecast := advisory.PestForecast{
			RiskLevel:        keyValueOr(text, "RISK", "Low"),
			Alert:            keyValueOr(text, "ALERT", "No immediate risks detected."),
			PreventiveAction: keyValueOr(text, "ACTION", "Monitor crops daily."),
		}
		return forecast, nil
	})
}

// News summarizes the latest agricultural updates for a location,
// cached per location and language.
func (s *AdvisorService) News(ctx context.Context, location string, lang advisory.Language) (cache.Entry[advisory.NewsResponse], error) {
	key := fmt.Sprintf("news_%s_%s", location, lang)
	return cache.WithCache(ctx, s.fetcher, key, func(ctx context.Context) (advisory.NewsResponse, error) {
		prompt := fmt.Sprintf(`Search for the latest agricultural news, potential pest outbreaks, and market trends specifically for farmers in %s, Ghana.
Summarize the top 3 most important things a farmer needs to know today.

Translate the summary into %s.`, location, lang.Name())

		req := advisor.TextRequest(prompt)
		req.Tools = []advisor.Tool{{GoogleSearch: &struct{}{}}}
		resp, err := s.ai.GenerateContent(ctx, advisor.TextModel, req)
		if err != nil {
			return advisory.NewsResponse{}, err
		}

		text := resp.Text()
		if text == "" {
			text = "No updates available."
		}
		news := advisory.NewsResponse{Text: text}
		for _, src := range resp.Sources() {
			news.Links = append(news.Links, advisory.NewsLink{Title: src.Title, URL: src.URI})
		}
		return news, nil
	})
}

// Planting recommends the planting window for a crop in a region,
// cached per region, crop, and language.
func (s *AdvisorService) Planting(ctx context.Context, region, crop string, lang advisory.Language) (cache.Entry[advisory.PlantingResponse], error) {
	key := fmt.Sprintf("planting_%s_%s_%s", region, crop, lang)
	return cache.WithCache(ctx, s.fetcher, key, func(ctx context.Context) (advisory.PlantingResponse, error) {
		prompt := fmt.Sprintf(`Act as an expert Ghanaian agronomist.
Tell me the best month(s) to plant **%s** in the **%s** region of Ghana.
If there are two seasons (Major and Minor), mention both.
Keep the answer very short (maximum 20 words).
Translate the answer into %s.`, crop, region, lang.Name())

		resp, err := s.ai.GenerateContent(ctx, advisor.TextModel, advisor.TextRequest(prompt))
		if err != nil {
			return advisory.PlantingResponse{}, err
		}
		text := resp.Text()
		if text == "" {
			text = "Info unavailable."
		}
		return advisory.PlantingResponse{Text: text}, nil
	})
}

// CropDetails returns a farming guide for one crop, cached per crop and
// language.
func (s *AdvisorService) CropDetails(ctx context.Context, crop string, lang advisory.Language) (cache.Entry[advisory.CropInfo], error) {
	key := fmt.Sprintf("crop_library_v2_%s_%s", crop, lang)
	return cache.WithCache(ctx, s.fetcher, key, func(ctx context.Context) (advisory.CropInfo, error) {
		prompt := fmt.Sprintf(`Provide a detailed farming guide for %s specifically for Ghana.
Translate all content into %s.
Return the response as a JSON object with the keys: name, plantingSeason, careTips, commonPests, commonDiseases, soilRequirements, companionPlants, harvesting.`, crop, lang.Name())

		req := advisor.TextRequest(prompt)
		req.GenerationConfig = map[string]any{"responseMimeType": "application/json"}
		resp, err := s.ai.GenerateContent(ctx, advisor.TextModel, req)
		if err != nil {
			return advisory.CropInfo{}, err
		}

		var info advisory.CropInfo
		if err := decodeJSONAnswer(resp.Text(), &info); err != nil {
			return advisory.CropInfo{}, err
		}
		return info, nil
	})
}

// RotationAdvice recommends the next crop for rotation, cached per
// region, crop history, and language.
func (s *AdvisorService) RotationAdvice(ctx context.Context, region string, previousCrops []string, lang advisory.Language) (cache.Entry[advisory.RotationAdvice], error) {
	key := fmt.Sprintf("rotation_%s_%s_%s", region, strings.Join(previousCrops, "_"), lang)
	return cache.WithCache(ctx, s.fetcher, key, func(ctx context.Context) (advisory.RotationAdvice, error) {
		prompt := fmt.Sprintf(`I farm in %s, Ghana. My previously planted crops were: %s.
Suggest the best crop to plant next for crop rotation to improve soil health and break pest cycles.
Explain why.
Translate to %s and return a JSON object with the keys: recommendedCrops, reasoning, soilBenefits.`, region, strings.Join(previousCrops, ", "), lang.Name())

		req := advisor.TextRequest(prompt)
		req.GenerationConfig = map[string]any{"responseMimeType": "application/json"}
		resp, err := s.ai.GenerateContent(ctx, advisor.TextModel, req)
		if err != nil {
			return advisory.RotationAdvice{}, err
		}

		var advice advisory.RotationAdvice
		if err := decodeJSONAnswer(resp.Text(), &advice); err != nil {
			return advisory.RotationAdvice{}, err
		}
		return advice, nil
	})
}

// Chat sends one chat message with history. Live-only: conversations
// are not cached.
func (s *AdvisorService) Chat(ctx context.Context, history []advisory.ChatTurn, message string, lang advisory.Language) (string, error) {
	langInstruction := map[advisory.Language]string{
		advisory.LangEnglish: "Respond in simple English.",
		advisory.LangTwi:     "Respond primarily in Ashanti Twi. You can use English for technical scientific terms if no Twi equivalent exists, but explain them.",
		advisory.LangEwe:     "Respond primarily in Ewe. You can use English for technical scientific terms if no Ewe equivalent exists, but explain them.",
		advisory.LangGa:      "Respond primarily in Ga. You can use English for technical scientific terms if no Ga equivalent exists, but explain them.",
	}[lang]

	req := &advisor.GenerateRequest{
		SystemInstruction: &advisor.Content{
			Parts: []advisor.Part{{Text: systemInstruction + "\n" + langInstruction}},
		},
	}
	for _, turn := range history {
		req.Contents = append(req.Contents, advisor.Content{
			Role:  turn.Role,
			Parts: []advisor.Part{{Text: turn.Text}},
		})
	}
	req.Contents = append(req.Contents, advisor.Content{
		Role:  "user",
		Parts: []advisor.Part{{Text: message}},
	})

	resp, err := s.ai.GenerateContent(ctx, advisor.TextModel, req)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", &session.ServerError{Message: "empty chat response"}
	}
	return text, nil
}

// Diagnose analyzes a crop photo (base64 JPEG) and returns the
// diagnosis. Live-only.
func (s *AdvisorService) Diagnose(ctx context.Context, base64Image string, lang advisory.Language) (*advisory.AnalysisResult, error) {
	prompt := fmt.Sprintf(`Analyze this image of a crop.
1. Identify the crop.
2. Diagnose any visible diseases, pests, or nutrient deficiencies.
3. If healthy, confirm it.
4. Provide practical treatment steps.

Translate the textual content into %s.
Return the result as a JSON object with the keys: cropName, diagnosis, issues, treatment.`, lang.Name())

	req := &advisor.GenerateRequest{
		Contents: []advisor.Content{{
			Parts: []advisor.Part{
				{InlineData: &advisor.InlineData{MimeType: "image/jpeg", Data: base64Image}},
				{Text: prompt},
			},
		}},
		GenerationConfig: map[string]any{"responseMimeType": "application/json"},
	}
	resp, err := s.ai.GenerateContent(ctx, advisor.TextModel, req)
	if err != nil {
		return nil, err
	}

	var result advisory.AnalysisResult
	if err := decodeJSONAnswer(resp.Text(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GenerateVisual produces an educational farm image for a prompt and
// returns it as a data URL. Live-only.
func (s *AdvisorService) GenerateVisual(ctx context.Context, prompt string) (string, error) {
	full := fmt.Sprintf("A photorealistic and educational image for an African farmer showing: %s. The setting should be a farm in Ghana.", prompt)
	imageBytes, err := s.ai.GenerateImage(ctx, advisor.ImageModel, full)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + imageBytes, nil
}

// keyValue extracts the value of a "KEY: value" line, or "--" when the
// key is absent.
func keyValue(text, key string) string {
	return keyValueOr(text, key, "--")
}

func keyValueOr(text, key, fallback string) string {
	re := regexp.MustCompile(`(?i)` + key + `:\s*(.*)`)
	m := re.FindStringSubmatch(text)
	if m == nil {
		return fallback
	}
	v := strings.TrimSpace(m[1])
	if v == "" {
		return fallback
	}
	return v
}

// decodeJSONAnswer parses a JSON answer, tolerating markdown fences
// some models wrap around it.
func decodeJSONAnswer(text string, out any) error {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	if text == "" {
		text = "{}"
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), out); err != nil {
		return &session.ServerError{Message: "malformed structured answer"}
	}
	return nil
}
