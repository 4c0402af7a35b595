package cluster

import (
	"sort"
	"time"

	"github.com/mr1hm/go-health-alerts/internal/models"
)

// Details is the drill-down view for one cluster area.
type Details struct {
	Center            models.Coordinates       `json:"center"`
	RadiusMeters      float64                  `json:"radius"`
	TotalCases        int                      `json:"totalCases"`
	SeverityBreakdown models.SeverityBreakdown `json:"severityBreakdown"`
	DiseaseBreakdown  map[string]int           `json:"diseaseBreakdown"`
	AgeGroupBreakdown map[string]int           `json:"ageGroupBreakdown"` // unlabeled cases count under "unknown"
	Timeline          map[string]int           `json:"timeline"`          // cases per day, keyed YYYY-MM-DD
	EmergencyAlerts   int                      `json:"emergencyAlerts"`
	Cases             []models.CaseSummary     `json:"cases"` // newest first
}

// Detail aggregates every case within radiusMeters of center. The caller
// supplies an already date-filtered record set; records without coordinates
// are ignored. A center outside WGS84 bounds is a validation error.
func Detail(cases []models.CaseRecord, center models.Coordinates, radiusMeters float64) (*Details, error) {
	if !center.Valid() {
		return nil, models.ValidationError("center coordinates are required and must be valid")
	}
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}

	d := &Details{
		Center:            center,
		RadiusMeters:      radiusMeters,
		DiseaseBreakdown:  map[string]int{},
		AgeGroupBreakdown: map[string]int{},
		Timeline:          map[string]int{},
		Cases:             []models.CaseSummary{},
	}

	for _, c := range cases {
		if c.Coordinates == nil || !c.Coordinates.Valid() {
			continue
		}
		if Haversine(center, *c.Coordinates) > radiusMeters {
			continue
		}

		d.TotalCases++
		switch c.Severity {
		case models.CaseSeverityModerate:
			d.SeverityBreakdown.Moderate++
		case models.CaseSeveritySevere:
			d.SeverityBreakdown.Severe++
		case models.CaseSeverityCritical:
			d.SeverityBreakdown.Critical++
		default:
			d.SeverityBreakdown.Mild++
		}
		d.DiseaseBreakdown[c.SuspectedDisease]++
		ageGroup := c.AgeGroup
		if ageGroup == "" {
			ageGroup = "unknown"
		}
		d.AgeGroupBreakdown[ageGroup]++
		d.Timeline[c.ReportDate.UTC().Format(time.DateOnly)]++
		if c.EmergencyAlert {
			d.EmergencyAlerts++
		}

		d.Cases = append(d.Cases, models.CaseSummary{
			CaseID:           c.ID,
			Severity:         c.Severity,
			ReportDate:       c.ReportDate,
			SuspectedDisease: c.SuspectedDisease,
			AgeGroup:         c.AgeGroup,
			Coordinates:      c.Coordinates,
			Location:         c.Location,
		})
	}

	sort.SliceStable(d.Cases, func(a, b int) bool {
		return d.Cases[a].ReportDate.After(d.Cases[b].ReportDate)
	})

	return d, nil
}
