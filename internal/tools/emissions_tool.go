package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Per-passenger-kilometer CO2 factors in kg, used when no Climatiq API key
// is configured or as the comparison baseline in route planning. Sourced
// from published average intensity figures per transport mode.
var emissionFactors = map[string]float64{
	"flight": 0.255,
	"train":  0.041,
	"car":    0.192,
	"bus":    0.105,
	"ferry":  0.190,
}

// hotelNightKg is the average footprint of one hotel night in kg CO2.
const hotelNightKg = 15.0

// offsetUSDPerKg prices carbon offsets for the estimate shown to users.
const offsetUSDPerKg = 0.02

// climatiqActivityIDs maps travel modes to Climatiq activity identifiers.
var climatiqActivityIDs = map[string]string{
	"flight": "passenger_flight-route_type_international-aircraft_type_na-distance_na-class_na-rf_included",
	"train":  "passenger_train-route_type_na-fuel_source_na",
	"car":    "passenger_vehicle-vehicle_type_car-fuel_source_na-engine_size_na-vehicle_age_na",
	"bus":    "passenger_vehicle-vehicle_type_bus-fuel_source_na-distance_na",
}

// EmissionsTool estimates the CO2 footprint of a trip and what offsetting it
// would cost. With a Climatiq key it asks the API; without one it falls back
// to the local factor table so the capability works offline.
type EmissionsTool struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewEmissionsTool creates the trip emissions tool. An empty apiKey selects
// the local factor table.
func NewEmissionsTool(apiKey, baseURL string, timeout time.Duration) *Tool {
	e := &EmissionsTool{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
	return &Tool{
		Name:        "emissions",
		DisplayName: "carbon footprint",
		Description: "CO2 estimate for a trip by mode and distance, with a sustainability grade and offset cost",
		Required:    []string{"travel_mode", "distance_km"},
		Execute:     e.execute,
	}
}

func (e *EmissionsTool) execute(ctx context.Context, inputs map[string]string) (map[string]any, string, error) {
	mode := normalizeMode(inputs["travel_mode"])
	if _, known := emissionFactors[mode]; !known {
		return nil, "", fmt.Errorf("unsupported travel mode %q", inputs["travel_mode"])
	}

	distanceKm, err := strconv.ParseFloat(strings.TrimSpace(inputs["distance_km"]), 64)
	if err != nil || distanceKm <= 0 {
		return nil, "", fmt.Errorf("invalid distance %q", inputs["distance_km"])
	}

	var travelKg float64
	source := "local factors"
	if e.apiKey != "" {
		travelKg, err = e.estimateRemote(ctx, mode, distanceKm)
		if err != nil {
			return nil, "", err
		}
		source = "climatiq"
	} else {
		travelKg = emissionFactors[mode] * distanceKm
	}

	totalKg := travelKg
	nights := 0
	if raw := strings.TrimSpace(inputs["nights"]); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			nights = n
			totalKg += float64(n) * hotelNightKg
		}
	}

	grade := SustainabilityGrade(mode, distanceKm, totalKg)
	payload := map[string]any{
		"travel_mode":     mode,
		"distance_km":     distanceKm,
		"travel_kg_co2":   round1(travelKg),
		"nights":          nights,
		"total_kg_co2":    round1(totalKg),
		"grade":           grade,
		"offset_cost_usd": round1(totalKg * offsetUSDPerKg),
		"source":          source,
	}

	summary := fmt.Sprintf("%.0f km by %s: %.1f kg CO2 (grade %s)", distanceKm, mode, totalKg, grade)
	return payload, summary, nil
}

type climatiqRequest struct {
	EmissionFactor struct {
		ActivityID string `json:"activity_id"`
	} `json:"emission_factor"`
	Parameters struct {
		Distance     float64 `json:"distance"`
		DistanceUnit string  `json:"distance_unit"`
	} `json:"parameters"`
}

type climatiqResponse struct {
	CO2e float64 `json:"co2e"`
}

func (e *EmissionsTool) estimateRemote(ctx context.Context, mode string, distanceKm float64) (float64, error) {
	activityID, ok := climatiqActivityIDs[mode]
	if !ok {
		// Climatiq has no activity for this mode, use the local factor.
		return emissionFactors[mode] * distanceKm, nil
	}

	var reqBody climatiqRequest
	reqBody.EmissionFactor.ActivityID = activityID
	reqBody.Parameters.Distance = distanceKm
	reqBody.Parameters.DistanceUnit = "km"

	body, err := json.Marshal(reqBody)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal estimate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/estimate", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build estimate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("emissions service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("emissions service returned %d: %s", resp.StatusCode, string(raw))
	}

	var parsed climatiqResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("failed to decode estimate response: %w", err)
	}
	return parsed.CO2e, nil
}

// SustainabilityGrade maps a trip's intensity (kg CO2 per km) to an A-F
// grade. Grades follow per-km intensity rather than total footprint so a
// long train ride still grades better than a short flight.
func SustainabilityGrade(mode string, distanceKm, totalKg float64) string {
	if distanceKm <= 0 {
		return "C"
	}
	perKm := totalKg / distanceKm
	switch {
	case perKm <= 0.05:
		return "A"
	case perKm <= 0.11:
		return "B"
	case perKm <= 0.16:
		return "C"
	case perKm <= 0.22:
		return "D"
	case perKm <= 0.30:
		return "E"
	default:
		return "F"
	}
}

func normalizeMode(raw string) string {
	mode := strings.ToLower(strings.TrimSpace(raw))
	switch mode {
	case "plane", "fly", "flying", "air":
		return "flight"
	case "rail", "railway":
		return "train"
	case "driving", "drive", "auto":
		return "car"
	case "coach":
		return "bus"
	case "boat", "ship":
		return "ferry"
	default:
		return mode
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
