package tools

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Approximate door-to-door speeds per mode in km/h, including typical
// check-in and transfer overheads baked into the fixed hours below.
var modeSpeeds = map[string]struct {
	kmh      float64
	overhead float64 // fixed hours added regardless of distance
}{
	"flight": {800, 3.0},
	"train":  {120, 0.5},
	"car":    {85, 0},
	"bus":    {70, 0.5},
}

// RouteTool plans a route between two places: great-circle distance plus a
// per-mode comparison of duration, footprint and sustainability grade.
type RouteTool struct {
	geocoder Geocoder
}

// NewRouteTool creates the route planning tool.
func NewRouteTool(geocoder Geocoder) *Tool {
	r := &RouteTool{geocoder: geocoder}
	return &Tool{
		Name:        "route",
		DisplayName: "route planner",
		Description: "Distance between two places with per-mode duration and emissions comparison",
		Required:    []string{"origin", "destination"},
		Execute:     r.execute,
	}
}

type modeOption struct {
	Mode          string  `json:"mode"`
	DurationHours float64 `json:"duration_hours"`
	KgCO2         float64 `json:"kg_co2"`
	Grade         string  `json:"grade"`
}

func (r *RouteTool) execute(ctx context.Context, inputs map[string]string) (map[string]any, string, error) {
	origin, err := r.geocoder.Geocode(ctx, inputs["origin"])
	if err != nil {
		return nil, "", fmt.Errorf("origin: %w", err)
	}
	destination, err := r.geocoder.Geocode(ctx, inputs["destination"])
	if err != nil {
		return nil, "", fmt.Errorf("destination: %w", err)
	}

	distanceKm := haversineKm(origin.Lat, origin.Lon, destination.Lat, destination.Lon)

	options := compareModes(distanceKm)
	if preferred := normalizeMode(inputs["travel_mode"]); preferred != "" {
		// A stated preference floats to the top; the rest stay as
		// alternatives ordered by footprint.
		sort.SliceStable(options, func(i, j int) bool {
			return options[i].Mode == preferred && options[j].Mode != preferred
		})
	}

	payload := map[string]any{
		"origin":      origin.Name,
		"destination": destination.Name,
		"distance_km": round1(distanceKm),
		"options":     options,
	}

	greenest := options[len(options)-1]
	for _, o := range options {
		if o.KgCO2 < greenest.KgCO2 {
			greenest = o
		}
	}
	summary := fmt.Sprintf("%s to %s is %.0f km; greenest option is %s at %.1f kg CO2",
		origin.Name, destination.Name, distanceKm, greenest.Mode, greenest.KgCO2)
	return payload, summary, nil
}

// compareModes builds per-mode options ordered by footprint ascending.
// Flights are skipped under 150 km where no scheduled route would exist.
func compareModes(distanceKm float64) []modeOption {
	var options []modeOption
	for mode, speed := range modeSpeeds {
		if mode == "flight" && distanceKm < 150 {
			continue
		}
		kg := emissionFactors[mode] * distanceKm
		options = append(options, modeOption{
			Mode:          mode,
			DurationHours: round1(distanceKm/speed.kmh + speed.overhead),
			KgCO2:         round1(kg),
			Grade:         SustainabilityGrade(mode, distanceKm, kg),
		})
	}
	sort.Slice(options, func(i, j int) bool {
		if options[i].KgCO2 != options[j].KgCO2 {
			return options[i].KgCO2 < options[j].KgCO2
		}
		return options[i].Mode < options[j].Mode
	})
	return options
}

const earthRadiusKm = 6371.0

// haversineKm computes the great-circle distance between two coordinates.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
