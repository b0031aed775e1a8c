package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// WeatherTool reports current conditions and a short forecast for a
// destination, with packing advice derived from them.
type WeatherTool struct {
	geocoder Geocoder
	apiKey   string
	baseURL  string
	client   *http.Client
}

// NewWeatherTool creates the destination weather tool.
func NewWeatherTool(geocoder Geocoder, apiKey, baseURL string, timeout time.Duration) *Tool {
	w := &WeatherTool{
		geocoder: geocoder,
		apiKey:   apiKey,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: timeout},
	}
	return &Tool{
		Name:        "weather",
		DisplayName: "destination weather",
		Description: "Current conditions and 24h forecast for a destination, with packing advice",
		Required:    []string{"destination"},
		Execute:     w.execute,
	}
}

type owmWeather struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

type owmForecast struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			Main string `json:"main"`
		} `json:"weather"`
	} `json:"list"`
}

func (w *WeatherTool) execute(ctx context.Context, inputs map[string]string) (map[string]any, string, error) {
	destination := inputs["destination"]

	point, err := w.geocoder.Geocode(ctx, destination)
	if err != nil {
		return nil, "", err
	}

	current, err := w.fetchCurrent(ctx, point)
	if err != nil {
		return nil, "", err
	}

	var condition, description string
	if len(current.Weather) > 0 {
		condition = current.Weather[0].Main
		description = current.Weather[0].Description
	}

	payload := map[string]any{
		"place":       point.Name,
		"country":     point.Country,
		"temp_c":      current.Main.Temp,
		"feels_like":  current.Main.FeelsLike,
		"humidity":    current.Main.Humidity,
		"wind_mps":    current.Wind.Speed,
		"condition":   condition,
		"description": description,
		"advice":      packingAdvice(current.Main.Temp, condition, current.Wind.Speed),
	}

	// The forecast is advisory; a failure there should not sink the turn.
	if trend, err := w.fetchTrend(ctx, point); err == nil && trend != "" {
		payload["forecast"] = trend
	}

	summary := fmt.Sprintf("%s: %.0f°C, %s", point.Name, current.Main.Temp, description)
	return payload, summary, nil
}

func (w *WeatherTool) fetchCurrent(ctx context.Context, point *GeoPoint) (*owmWeather, error) {
	endpoint := fmt.Sprintf("%s/data/2.5/weather?lat=%f&lon=%f&units=metric&appid=%s",
		w.baseURL, point.Lat, point.Lon, w.apiKey)

	var parsed owmWeather
	if err := w.getJSON(ctx, endpoint, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// fetchTrend summarizes the next 24 hours from the 3-hourly forecast feed.
func (w *WeatherTool) fetchTrend(ctx context.Context, point *GeoPoint) (string, error) {
	endpoint := fmt.Sprintf("%s/data/2.5/forecast?lat=%f&lon=%f&units=metric&cnt=8&appid=%s",
		w.baseURL, point.Lat, point.Lon, w.apiKey)

	var parsed owmForecast
	if err := w.getJSON(ctx, endpoint, &parsed); err != nil {
		return "", err
	}
	if len(parsed.List) == 0 {
		return "", nil
	}

	minTemp, maxTemp := parsed.List[0].Main.Temp, parsed.List[0].Main.Temp
	rain := false
	for _, slot := range parsed.List {
		if slot.Main.Temp < minTemp {
			minTemp = slot.Main.Temp
		}
		if slot.Main.Temp > maxTemp {
			maxTemp = slot.Main.Temp
		}
		for _, c := range slot.Weather {
			if c.Main == "Rain" || c.Main == "Drizzle" || c.Main == "Thunderstorm" {
				rain = true
			}
		}
	}

	trend := fmt.Sprintf("next 24h between %.0f°C and %.0f°C", minTemp, maxTemp)
	if rain {
		trend += ", rain expected"
	}
	return trend, nil
}

func (w *WeatherTool) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build weather request: %w", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("weather service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("weather service returned %d: %s", resp.StatusCode, string(raw))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// packingAdvice turns raw conditions into the short tips travelers actually
// want alongside a forecast.
func packingAdvice(tempC float64, condition string, windMps float64) []string {
	var advice []string

	switch {
	case tempC <= 0:
		advice = append(advice, "Pack a heavy coat, it's freezing")
	case tempC <= 10:
		advice = append(advice, "Bring warm layers")
	case tempC >= 30:
		advice = append(advice, "Pack light clothing and stay hydrated")
	case tempC >= 22:
		advice = append(advice, "Expect warm weather, sunscreen recommended")
	}

	switch strings.ToLower(condition) {
	case "rain", "drizzle", "thunderstorm":
		advice = append(advice, "Take an umbrella or rain jacket")
	case "snow":
		advice = append(advice, "Waterproof boots will help")
	case "clear":
		advice = append(advice, "Clear skies, good day to explore on foot")
	}

	if windMps >= 10 {
		advice = append(advice, "Strong wind expected, secure loose items")
	}

	return advice
}
