package wildspeak

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wildventure-hub/ms-go-checkout/config"
)

func TestAnalyzeCallsRemoteAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/analyze" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer ws-key" {
			t.Fatalf("unexpected authorization %q", got)
		}
		var meta AudioMetadata
		if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
			t.Fatalf("decode metadata: %v", err)
		}
		if meta.Frequency != 250 {
			t.Fatalf("unexpected frequency %f", meta.Frequency)
		}
		_ = json.NewEncoder(w).Encode(AnimalCallAnalysis{
			Species:    "Lion",
			Confidence: 92,
			Urgency:    UrgencyHigh,
		})
	}))
	defer srv.Close()

	c := NewClient(config.WildSpeakConfig{BaseURL: srv.URL, APIKey: "ws-key"})
	analysis, err := c.Analyze(context.Background(), &AudioMetadata{Duration: 8, Frequency: 250, Amplitude: 0.9})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if analysis.Species != "Lion" || analysis.Urgency != UrgencyHigh {
		t.Fatalf("unexpected analysis %+v", analysis)
	}
	if analysis.Confidence != 92 {
		t.Fatalf("unexpected confidence %f", analysis.Confidence)
	}
}

func TestAnalyzeClampsRemoteConfidence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(AnimalCallAnalysis{
			Species:    "Lion",
			Confidence: 140,
			Urgency:    UrgencyHigh,
		})
	}))
	defer srv.Close()

	c := NewClient(config.WildSpeakConfig{BaseURL: srv.URL})
	analysis, err := c.Analyze(context.Background(), &AudioMetadata{Duration: 5, Frequency: 250})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if analysis.Confidence != 100 {
		t.Fatalf("expected confidence clamped to 100, got %f", analysis.Confidence)
	}
}

func TestAnalyzeRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(config.WildSpeakConfig{BaseURL: srv.URL})
	if _, err := c.Analyze(context.Background(), &AudioMetadata{Duration: 5, Frequency: 250}); err == nil {
		t.Fatal("expected error for upstream failure")
	}
}

func TestAnalyzeLocalFallback(t *testing.T) {
	c := NewClient(config.WildSpeakConfig{})

	cases := []struct {
		name        string
		meta        AudioMetadata
		wantSpecies string
		wantUrgency string
	}{
		{"infrasound rumble", AudioMetadata{Duration: 12, Frequency: 40, Amplitude: 0.4}, "African Elephant", UrgencyLow},
		{"loud roar", AudioMetadata{Duration: 6, Frequency: 250, Amplitude: 0.95}, "Lion", UrgencyHigh},
		{"pant hoot", AudioMetadata{Duration: 4, Frequency: 900, Amplitude: 0.5}, "Chimpanzee", UrgencyLow},
		{"max amplitude alarm", AudioMetadata{Duration: 3, Frequency: 4000, Amplitude: 0.95}, "Vervet Monkey", UrgencyCritical},
	}
	for _, tc := range cases {
		analysis, err := c.Analyze(context.Background(), &tc.meta)
		if err != nil {
			t.Fatalf("%s: analyze failed: %v", tc.name, err)
		}
		if analysis.Species != tc.wantSpecies {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.wantSpecies, analysis.Species)
		}
		if analysis.Urgency != tc.wantUrgency {
			t.Fatalf("%s: expected urgency %s, got %s", tc.name, tc.wantUrgency, analysis.Urgency)
		}
		if analysis.Confidence < 55 || analysis.Confidence > 85 {
			t.Fatalf("%s: confidence out of range: %f", tc.name, analysis.Confidence)
		}
	}
}
