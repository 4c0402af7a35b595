// Package cluster groups geotagged case reports into proximity clusters for
// map visualization and incremental update feeds.
package cluster

import (
	"fmt"
	"math"
	"sort"

	"github.com/mr1hm/go-health-alerts/internal/models"
)

const (
	// DefaultRadiusMeters is the grouping radius used when a caller does not
	// supply one.
	DefaultRadiusMeters = 1000

	earthRadiusMeters = 6371000

	minDisplayRadius = 50
	maxDisplayRadius = 500
)

// Haversine returns the great-circle distance between two points in meters.
func Haversine(a, b models.Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// Group clusters cases by seed-and-claim proximity: each unclaimed record in
// input order becomes a seed and claims every later unclaimed record within
// radiusMeters of it (boundary inclusive). Two records within radius of a
// common seed land in the same cluster even if they are farther than radius
// from each other; conversely a record claimed by an earlier seed is never
// re-grouped. The grouping is therefore order-dependent, and consumers of the
// map feed rely on that behavior, so it must not be replaced with a
// transitive connected-components pass.
//
// Records without valid coordinates are skipped. Output is sorted by
// descending case count.
func Group(cases []models.CaseRecord, radiusMeters float64) []models.Cluster {
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}

	clusters := []models.Cluster{}
	claimed := make([]bool, len(cases))

	for i := range cases {
		if claimed[i] || cases[i].Coordinates == nil || !cases[i].Coordinates.Valid() {
			continue
		}

		seed := &cases[i]
		members := []*models.CaseRecord{seed}
		claimed[i] = true

		for j := range cases {
			if claimed[j] || cases[j].Coordinates == nil || !cases[j].Coordinates.Valid() {
				continue
			}
			if Haversine(*seed.Coordinates, *cases[j].Coordinates) <= radiusMeters {
				members = append(members, &cases[j])
				claimed[j] = true
			}
		}

		clusters = append(clusters, buildCluster(len(clusters)+1, members))
	}

	sort.SliceStable(clusters, func(a, b int) bool {
		return clusters[a].CaseCount > clusters[b].CaseCount
	})
	return clusters
}

func buildCluster(seq int, members []*models.CaseRecord) models.Cluster {
	var breakdown models.SeverityBreakdown
	var lonSum, latSum float64
	summaries := make([]models.CaseSummary, 0, len(members))

	for _, m := range members {
		lonSum += m.Coordinates.Longitude
		latSum += m.Coordinates.Latitude

		switch m.Severity {
		case models.CaseSeverityModerate:
			breakdown.Moderate++
		case models.CaseSeveritySevere:
			breakdown.Severe++
		case models.CaseSeverityCritical:
			breakdown.Critical++
		default:
			breakdown.Mild++
		}

		summaries = append(summaries, models.CaseSummary{
			CaseID:           m.ID,
			Severity:         m.Severity,
			ReportDate:       m.ReportDate,
			SuspectedDisease: m.SuspectedDisease,
			AgeGroup:         m.AgeGroup,
			Coordinates:      m.Coordinates,
			Location:         m.Location,
		})
	}

	n := len(members)
	center := models.Coordinates{
		Longitude: lonSum / float64(n),
		Latitude:  latSum / float64(n),
	}

	recent := make([]models.CaseSummary, len(summaries))
	copy(recent, summaries)
	sort.SliceStable(recent, func(a, b int) bool {
		return recent[a].ReportDate.After(recent[b].ReportDate)
	})
	if len(recent) > 5 {
		recent = recent[:5]
	}
	for i := range recent {
		recent[i].Coordinates = nil
		recent[i].Location = ""
	}

	return models.Cluster{
		ID:                fmt.Sprintf("cluster_%d", seq),
		Center:            center,
		CaseCount:         n,
		Severity:          clusterSeverity(members),
		SeverityBreakdown: breakdown,
		Radius:            displayRadius(n),
		Cases:             summaries,
		RecentCases:       recent,
	}
}

// clusterSeverity classifies a member multiset as mild, moderate or severe.
func clusterSeverity(members []*models.CaseRecord) models.CaseSeverity {
	if len(members) == 0 {
		return models.CaseSeverityMild
	}

	totalWeight := 0
	severeOrWorse := 0
	critical := 0
	for _, m := range members {
		totalWeight += m.Severity.Weight()
		if m.Severity == models.CaseSeveritySevere || m.Severity == models.CaseSeverityCritical {
			severeOrWorse++
		}
		if m.Severity == models.CaseSeverityCritical {
			critical++
		}
	}

	avgWeight := float64(totalWeight) / float64(len(members))
	severeRatio := float64(severeOrWorse) / float64(len(members))

	switch {
	case critical > 0 || severeRatio > 0.5 || avgWeight >= 3.5:
		return models.CaseSeveritySevere
	case severeRatio > 0.2 || avgWeight >= 2.5:
		return models.CaseSeverityModerate
	default:
		return models.CaseSeverityMild
	}
}

func displayRadius(caseCount int) int {
	r := caseCount * 15
	if r < minDisplayRadius {
		return minDisplayRadius
	}
	if r > maxDisplayRadius {
		return maxDisplayRadius
	}
	return r
}

// FilterMinCases drops clusters with fewer than minCases members, preserving
// order. minCases <= 1 returns the input unchanged.
func FilterMinCases(clusters []models.Cluster, minCases int) []models.Cluster {
	if minCases <= 1 {
		return clusters
	}
	out := clusters[:0:0]
	for _, c := range clusters {
		if c.CaseCount >= minCases {
			out = append(out, c)
		}
	}
	if out == nil {
		out = []models.Cluster{}
	}
	return out
}
