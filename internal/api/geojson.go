package api

import (
	"github.com/mr1hm/go-health-alerts/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// toGeoJSON renders clusters as point features at their centers; the display
// radius and severity breakdown ride along as properties for map styling.
func toGeoJSON(clusters []models.Cluster) FeatureCollection {
	features := make([]Feature, 0, len(clusters))

	for _, cl := range clusters {
		f := Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{cl.Center.Longitude, cl.Center.Latitude},
			},
			Properties: map[string]any{
				"id":                cl.ID,
				"caseCount":         cl.CaseCount,
				"severity":          cl.Severity,
				"severityBreakdown": cl.SeverityBreakdown,
				"radius":            cl.Radius,
				"recentCases":       cl.RecentCases,
			},
		}
		features = append(features, f)
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
