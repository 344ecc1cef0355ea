package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agriconnect/agriclient/internal/adapter/outbound/advisor"
	"github.com/agriconnect/agriclient/internal/adapter/outbound/storage"
	"github.com/agriconnect/agriclient/internal/domain/advisory"
	"github.com/agriconnect/agriclient/internal/domain/cache"
)

// textResponse builds a proxy response carrying one text candidate.
func textResponse(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"parts": []map[string]any{{"text": text}},
			},
		}},
	}
}

func newTestAdvisor(t *testing.T, kv *storage.MemoryStore, online bool, handler http.HandlerFunc) *AdvisorService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ai := advisor.NewClient(srv.URL, "anon-key")
	fetcher := cache.NewFetcher(kv, cache.StaticProbe(online))
	return NewAdvisorService(ai, fetcher, nil)
}

func TestWeatherParsesKeyedAnswer(t *testing.T) {
	t.Parallel()

	handler := func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["endpoint"] != "generateContent" {
			t.Errorf("endpoint = %v", body["endpoint"])
		}
		_ = json.NewEncoder(w).Encode(textResponse(
			"CITY: Accra\nTEMP: 30°C\nRAIN: 20%\nWIND: 15 km/h\nCONDITION: Sunny",
		))
	}

	s := newTestAdvisor(t, storage.NewMemoryStore(), true, handler)
	entry, err := s.Weather(context.Background(), "Accra", advisory.LangEnglish)
	if err != nil {
		t.Fatalf("Weather: %v", err)
	}
	if entry.FromCache {
		t.Error("live answer must not be tagged FromCache")
	}
	w := entry.Payload
	if w.LocationName != "Accra" || w.Temp != "30°C" || w.Precipitation != "20%" ||
		w.Wind != "15 km/h" || w.Condition != "Sunny" {
		t.Errorf("weather = %+v", w)
	}
}

func TestWeatherServedFromCacheOffline(t *testing.T) {
	t.Parallel()

	kv := storage.NewMemoryStore()
	handler := func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(textResponse("CITY: Accra\nTEMP: 30°C"))
	}

	online := newTestAdvisor(t, kv, true, handler)
	if _, err := online.Weather(context.Background(), "Accra", advisory.LangEnglish); err != nil {
		t.Fatalf("prime: %v", err)
	}

	offline := newTestAdvisor(t, kv, false, func(http.ResponseWriter, *http.Request) {
		t.Error("the proxy must not be called offline")
	})
	entry, err := offline.Weather(context.Background(), "Accra", advisory.LangEnglish)
	if err != nil {
		t.Fatalf("Weather offline: %v", err)
	}
	if !entry.FromCache {
		t.Error("offline answer must be tagged FromCache")
	}
	if entry.Payload.Temp != "30°C" {
		t.Errorf("cached weather = %+v", entry.Payload)
	}
}

func TestWeatherOfflineWithoutCache(t *testing.T) {
	t.Parallel()

	s := newTestAdvisor(t, storage.NewMemoryStore(), false, func(http.ResponseWriter, *http.Request) {
		t.Error("the proxy must not be called offline")
	})
	if _, err := s.Weather(context.Background(), "Accra", advisory.LangEnglish); err == nil {
		t.Fatal("want an error with no cache and no network")
	}
}

func TestPestRiskDefaults(t *testing.T) {
	t.Parallel()

	handler := func(w http.ResponseWriter, r *http.Request) {
		// Answer without the expected keys.
		_ = json.NewEncoder(w).Encode(textResponse("all quiet"))
	}
	s := newTestAdvisor(t, storage.NewMemoryStore(), true, handler)

	entry, err := s.PestRisk(context.Background(), "Sunny", "Accra", advisory.LangEnglish)
	if err != nil {
		t.Fatalf("PestRisk: %v", err)
	}
	r := entry.Payload
	if r.RiskLevel != "Low" {
		t.Errorf("RiskLevel = %q, want the Low default", r.RiskLevel)
	}
	if r.Alert != "No immediate risks detected." {
		t.Errorf("Alert = %q", r.Alert)
	}
	if r.PreventiveAction != "Monitor crops daily." {
		t.Errorf("PreventiveAction = %q", r.PreventiveAction)
	}
}

func TestCropDetailsDecodesFencedJSON(t *testing.T) {
	t.Parallel()

	handler := func(w http.ResponseWriter, r *http.Request) {
		answer := "```json\n" + `{"name":"Maize","plantingSeason":"March-April","commonPests":["armyworm"]}` + "\n```"
		_ = json.NewEncoder(w).Encode(textResponse(answer))
	}
	s := newTestAdvisor(t, storage.NewMemoryStore(), true, handler)

	entry, err := s.CropDetails(context.Background(), "Maize", advisory.LangEnglish)
	if err != nil {
		t.Fatalf("CropDetails: %v", err)
	}
	info := entry.Payload
	if info.Name != "Maize" || info.PlantingSeason != "March-April" {
		t.Errorf("info = %+v", info)
	}
	if len(info.CommonPests) != 1 || info.CommonPests[0] != "armyworm" {
		t.Errorf("pests = %v", info.CommonPests)
	}
}

func TestNewsCollectsSources(t *testing.T) {
	t.Parallel()

	handler := func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{"text": "Cocoa prices are up."}},
				},
				"groundingMetadata": map[string]any{
					"groundingChunks": []map[string]any{
						{"web": map[string]any{"title": "Ghana News", "uri": "https://news.example.test/cocoa"}},
						{"web": map[string]any{"title": "", "uri": "https://untitled.example.test"}},
					},
				},
			}},
		})
	}
	s := newTestAdvisor(t, storage.NewMemoryStore(), true, handler)

	entry, err := s.News(context.Background(), "Accra", advisory.LangEnglish)
	if err != nil {
		t.Fatalf("News: %v", err)
	}
	if entry.Payload.Text != "Cocoa prices are up." {
		t.Errorf("text = %q", entry.Payload.Text)
	}
	if len(entry.Payload.Links) != 1 || entry.Payload.Links[0].Title != "Ghana News" {
		t.Errorf("links = %+v, untitled sources should be dropped", entry.Payload.Links)
	}
}

func TestChatRequiresAnswer(t *testing.T) {
	t.Parallel()

	handler := func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}
	s := newTestAdvisor(t, storage.NewMemoryStore(), true, handler)

	if _, err := s.Chat(context.Background(), nil, "hello", advisory.LangEnglish); err == nil {
		t.Fatal("want an error for an empty chat response")
	}
}

func TestChatSendsHistoryAndPersona(t *testing.T) {
	t.Parallel()

	handler := func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Contents          []advisor.Content `json:"contents"`
			SystemInstruction *advisor.Content  `json:"systemInstruction"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.SystemInstruction == nil || len(body.SystemInstruction.Parts) == 0 {
			t.Error("system instruction missing")
		}
		if len(body.Contents) != 3 {
			t.Errorf("contents = %d turns, want history + message = 3", len(body.Contents))
		}
		_ = json.NewEncoder(w).Encode(textResponse("Akwaaba! Plant maize in March."))
	}
	s := newTestAdvisor(t, storage.NewMemoryStore(), true, handler)

	history := []advisory.ChatTurn{
		{Role: "user", Text: "When do I plant maize?"},
		{Role: "model", Text: "Which region are you in?"},
	}
	answer, err := s.Chat(context.Background(), history, "Ashanti", advisory.LangTwi)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer != "Akwaaba! Plant maize in March." {
		t.Errorf("answer = %q", answer)
	}
}

func TestKeyValueExtraction(t *testing.T) {
	t.Parallel()

	text := "CITY: Kumasi\ntemp: 27°C\nRAIN:\n"
	if got := keyValue(text, "CITY"); got != "Kumasi" {
		t.Errorf("CITY = %q", got)
	}
	// Case-insensitive.
	if got := keyValue(text, "TEMP"); got != "27°C" {
		t.Errorf("TEMP = %q", got)
	}
	// Empty value falls back.
	if got := keyValue(text, "RAIN"); got != "--" {
		t.Errorf("RAIN = %q, want --", got)
	}
	if got := keyValueOr(text, "WIND", "calm"); got != "calm" {
		t.Errorf("WIND = %q, want the fallback", got)
	}
}

func TestDecodeJSONAnswer(t *testing.T) {
	t.Parallel()

	var out map[string]string
	if err := decodeJSONAnswer("```json\n{\"k\":\"v\"}\n```", &out); err != nil {
		t.Fatalf("decodeJSONAnswer: %v", err)
	}
	if out["k"] != "v" {
		t.Errorf("out = %v", out)
	}
	if err := decodeJSONAnswer("not json at all", &out); err == nil {
		t.Error("want an error for a non-JSON answer")
	}
}
