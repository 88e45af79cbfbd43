package wildspeak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wildventure-hub/ms-go-checkout/config"
)

// Urgency levels as exposed to clients.
const (
	UrgencyLow      = "low"
	UrgencyMedium   = "medium"
	UrgencyHigh     = "high"
	UrgencyCritical = "critical"
)

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type AudioMetadata struct {
	Duration  float64   `json:"duration"`
	Frequency float64   `json:"frequency"`
	Amplitude float64   `json:"amplitude"`
	Timestamp string    `json:"timestamp,omitempty"`
	Location  *Location `json:"location,omitempty"`
}

type AnimalCallAnalysis struct {
	Species         string   `json:"species"`
	Confidence      float64  `json:"confidence"`
	BehaviorContext string   `json:"behaviorContext"`
	Meaning         string   `json:"meaning"`
	Urgency         string   `json:"urgency"`
	Recommendations []string `json:"recommendations"`
}

type Analyzer interface {
	Analyze(ctx context.Context, meta *AudioMetadata) (*AnimalCallAnalysis, error)
}

// Client calls the WildSpeak analysis API. Without a configured base URL it
// falls back to a local frequency-band heuristic so the endpoint stays usable
// in development environments.
type Client struct {
	cfg    config.WildSpeakConfig
	client *http.Client
}

func NewClient(cfg config.WildSpeakConfig) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Analyze(ctx context.Context, meta *AudioMetadata) (*AnimalCallAnalysis, error) {
	if c.cfg.BaseURL == "" {
		return analyzeLocally(meta), nil
	}

	encoded, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/analyze", bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("wildspeak analysis failed: status=%d body=%s", resp.StatusCode, body)
	}

	var analysis AnimalCallAnalysis
	if err := json.Unmarshal(body, &analysis); err != nil {
		return nil, err
	}
	analysis.Confidence = clampConfidence(analysis.Confidence)
	return &analysis, nil
}

// Confidence is a percentage, 0 to 100.
func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// analyzeLocally maps frequency bands to the species whose calls dominate
// them. Confidence scales with recording length up to ten seconds.
func analyzeLocally(meta *AudioMetadata) *AnimalCallAnalysis {
	confidence := 55 + meta.Duration*3
	if confidence > 85 {
		confidence = 85
	}

	switch {
	case meta.Frequency < 100:
		return &AnimalCallAnalysis{
			Species:         "African Elephant",
			Confidence:      confidence,
			BehaviorContext: "long-distance rumble",
			Meaning:         "Contact call between separated herd members",
			Urgency:         UrgencyLow,
			Recommendations: []string{"Log herd position", "No intervention needed"},
		}
	case meta.Frequency < 400:
		urgency := UrgencyMedium
		recommendations := []string{"Monitor the pride's movement"}
		if meta.Amplitude > 0.8 {
			urgency = UrgencyHigh
			recommendations = []string{"Keep safe distance", "Alert nearby patrols"}
		}
		return &AnimalCallAnalysis{
			Species:         "Lion",
			Confidence:      confidence,
			BehaviorContext: "territorial roar",
			Meaning:         "Male advertising territory boundaries",
			Urgency:         urgency,
			Recommendations: recommendations,
		}
	case meta.Frequency < 2000:
		return &AnimalCallAnalysis{
			Species:         "Chimpanzee",
			Confidence:      confidence,
			BehaviorContext: "pant-hoot chorus",
			Meaning:         "Group excitement, likely a food discovery",
			Urgency:         UrgencyLow,
			Recommendations: []string{"Note feeding location for the survey"},
		}
	default:
		urgency := UrgencyMedium
		recommendations := []string{"Scan the area for predators"}
		if meta.Amplitude > 0.9 {
			urgency = UrgencyCritical
			recommendations = []string{"Possible poaching disturbance", "Dispatch ranger team"}
		}
		return &AnimalCallAnalysis{
			Species:         "Vervet Monkey",
			Confidence:      confidence,
			BehaviorContext: "alarm call",
			Meaning:         "Warning the troop about a nearby threat",
			Urgency:         urgency,
			Recommendations: recommendations,
		}
	}
}
