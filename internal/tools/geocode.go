package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// GeoPoint is a resolved place with coordinates.
type GeoPoint struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Geocoder resolves a place name to coordinates. Weather and routing both
// consume it; tests inject a table-backed fake.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (*GeoPoint, error)
}

// OWMGeocoder resolves place names through the OpenWeatherMap geocoding API.
type OWMGeocoder struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewOWMGeocoder creates a geocoder backed by OpenWeatherMap.
func NewOWMGeocoder(apiKey, baseURL string, timeout time.Duration) *OWMGeocoder {
	return &OWMGeocoder{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Geocode implements Geocoder.
func (g *OWMGeocoder) Geocode(ctx context.Context, place string) (*GeoPoint, error) {
	endpoint := fmt.Sprintf("%s/geo/1.0/direct?q=%s&limit=1&appid=%s",
		g.baseURL, url.QueryEscape(place), g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocode request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("geocoding service returned %d: %s", resp.StatusCode, string(raw))
	}

	var points []GeoPoint
	if err := json.NewDecoder(resp.Body).Decode(&points); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no coordinates found for %q", place)
	}
	return &points[0], nil
}

var _ Geocoder = (*OWMGeocoder)(nil)
