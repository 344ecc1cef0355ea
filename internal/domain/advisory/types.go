// Package advisory defines the farming-advice result types produced by
// the AI backend and consumed by the client's screens.
package advisory

// Language selects the response language for advice. The backend
// answers in the farmer's language, falling back to English for
// technical terms.
type Language string

// Supported languages.
const (
	LangEnglish Language = "en"
	LangTwi     Language = "tw"
	LangEwe     Language = "ee"
	LangGa      Language = "ga"
)

// Name returns the English name of the language, as used in prompts.
func (l Language) Name() string {
	switch l {
	case LangTwi:
		return "Twi"
	case LangEwe:
		return "Ewe"
	case LangGa:
		return "Ga"
	default:
		return "English"
	}
}

// WeatherData is the current forecast for a location.
type WeatherData struct {
	LocationName  string `json:"locationName"`
	Temp          string `json:"temp"`
	Precipitation string `json:"precipitation"`
	Wind          string `json:"wind"`
	Condition     string `json:"condition"`
}

// PestForecast is the predicted pest and disease risk for the current
// weather.
type PestForecast struct {
	RiskLevel        string `json:"riskLevel"` // Low, Medium, High
	Alert            string `json:"alert"`
	PreventiveAction string `json:"preventiveAction"`
}

// NewsLink is a source reference attached to a news summary.
type NewsLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// NewsResponse is a summary of agricultural updates for a location.
type NewsResponse struct {
	Text  string     `json:"text"`
	Links []NewsLink `json:"links"`
}

// PlantingResponse is a short planting-window recommendation.
type PlantingResponse struct {
	Text string `json:"text"`
}

// CropInfo is a farming guide for one crop.
type CropInfo struct {
	Name             string   `json:"name"`
	PlantingSeason   string   `json:"plantingSeason"`
	CareTips         string   `json:"careTips"`
	CommonPests      []string `json:"commonPests"`
	CommonDiseases   []string `json:"commonDiseases"`
	SoilRequirements string   `json:"soilRequirements"`
	CompanionPlants  []string `json:"companionPlants"`
	Harvesting       string   `json:"harvesting"`
}

// RotationAdvice recommends the next crop for rotation.
type RotationAdvice struct {
	RecommendedCrops []string `json:"recommendedCrops"`
	Reasoning        string   `json:"reasoning"`
	SoilBenefits     string   `json:"soilBenefits"`
}

// AnalysisIssue is one detected problem in a crop photo, with an
// optional bounding box normalized to 0-1000.
type AnalysisIssue struct {
	Label string    `json:"label"`
	Box2D []float64 `json:"box_2d,omitempty"`
}

// AnalysisResult is the diagnosis for a crop photo.
type AnalysisResult struct {
	CropName  string          `json:"cropName"`
	Diagnosis string          `json:"diagnosis"`
	Issues    []AnalysisIssue `json:"issues"`
	Treatment []string        `json:"treatment"`
}

// ChatTurn is one message of a chat history.
type ChatTurn struct {
	Role string `json:"role"` // user or model
	Text string `json:"text"`
}
