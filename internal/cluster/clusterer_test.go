package cluster

import (
	"math"
	"testing"
	"time"

	"github.com/mr1hm/go-health-alerts/internal/models"
)

func mkCase(id string, lon, lat float64, severity models.CaseSeverity, reportDate time.Time) models.CaseRecord {
	return models.CaseRecord{
		ID:               id,
		Coordinates:      &models.Coordinates{Longitude: lon, Latitude: lat},
		Severity:         severity,
		SuspectedDisease: "cholera",
		Location:         "Central District",
		ReportDate:       reportDate,
	}
}

func TestHaversine(t *testing.T) {
	a := models.Coordinates{Longitude: 36.82, Latitude: -1.29}

	if d := Haversine(a, a); d != 0 {
		t.Errorf("distance to self should be 0, got %f", d)
	}

	// 0.01 degrees of latitude is roughly 1112 meters
	b := models.Coordinates{Longitude: 36.82, Latitude: -1.28}
	d := Haversine(a, b)
	if math.Abs(d-1112) > 5 {
		t.Errorf("expected ~1112m, got %f", d)
	}

	if Haversine(a, b) != Haversine(b, a) {
		t.Error("distance should be symmetric")
	}
}

func TestGroup_CaseCountMatchesValidCoords(t *testing.T) {
	now := time.Now()
	cases := []models.CaseRecord{
		mkCase("c1", 36.82, -1.29, models.CaseSeverityMild, now),
		mkCase("c2", 36.82, -1.29, models.CaseSeverityMild, now),
		{ID: "c3", Severity: models.CaseSeverityMild, ReportDate: now}, // no coordinates
		mkCase("c4", 10.0, 50.0, models.CaseSeverityMild, now),
		{ID: "c5", Coordinates: &models.Coordinates{Longitude: 200, Latitude: 0}, ReportDate: now}, // out of range
	}

	clusters := Group(cases, 1000)

	total := 0
	for _, c := range clusters {
		total += c.CaseCount
	}
	if total != 3 {
		t.Errorf("expected 3 clustered cases, got %d", total)
	}
}

func TestGroup_BoundaryInclusive(t *testing.T) {
	now := time.Now()
	a := mkCase("a", 36.82, -1.29, models.CaseSeverityMild, now)
	b := mkCase("b", 36.82, -1.285, models.CaseSeverityMild, now)

	d := Haversine(*a.Coordinates, *b.Coordinates)

	// Exactly at the radius the two cases share a cluster
	clusters := Group([]models.CaseRecord{a, b}, d)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster at exact radius, got %d", len(clusters))
	}
	if clusters[0].CaseCount != 2 {
		t.Errorf("expected 2 cases in cluster, got %d", clusters[0].CaseCount)
	}

	// Just inside the radius they split
	clusters = Group([]models.CaseRecord{a, b}, d-0.001)
	if len(clusters) != 2 {
		t.Errorf("expected 2 clusters below the radius, got %d", len(clusters))
	}
}

func TestGroup_SeedClaimsSingleHop(t *testing.T) {
	now := time.Now()
	// Three points on a line, ~900m apart. With a 1000m radius the seed
	// claims only its direct neighbor; the chain does not merge.
	cases := []models.CaseRecord{
		mkCase("a", 36.82, -1.290, models.CaseSeverityMild, now),
		mkCase("b", 36.82, -1.282, models.CaseSeverityMild, now),
		mkCase("c", 36.82, -1.274, models.CaseSeverityMild, now),
	}

	clusters := Group(cases, 1000)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	if clusters[0].CaseCount != 2 || clusters[1].CaseCount != 1 {
		t.Errorf("expected counts [2 1], got [%d %d]", clusters[0].CaseCount, clusters[1].CaseCount)
	}
}

func TestGroup_SortedByCaseCount(t *testing.T) {
	now := time.Now()
	cases := []models.CaseRecord{
		mkCase("solo", 10.0, 50.0, models.CaseSeverityMild, now),
		mkCase("g1", 36.82, -1.29, models.CaseSeverityMild, now),
		mkCase("g2", 36.82, -1.29, models.CaseSeverityMild, now),
		mkCase("g3", 36.82, -1.29, models.CaseSeverityMild, now),
	}

	clusters := Group(cases, 1000)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	if clusters[0].CaseCount != 3 {
		t.Errorf("largest cluster should come first, got count %d", clusters[0].CaseCount)
	}
}

func TestGroup_ClusterSeverity(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name       string
		severities []models.CaseSeverity
		want       models.CaseSeverity
	}{
		{"single critical", []models.CaseSeverity{models.CaseSeverityCritical}, models.CaseSeveritySevere},
		{"mostly mild", []models.CaseSeverity{models.CaseSeverityMild, models.CaseSeverityMild, models.CaseSeverityModerate}, models.CaseSeverityMild},
		{"severe majority", []models.CaseSeverity{models.CaseSeveritySevere, models.CaseSeveritySevere, models.CaseSeverityMild}, models.CaseSeveritySevere},
		{"severe minority", []models.CaseSeverity{models.CaseSeveritySevere, models.CaseSeverityMild, models.CaseSeverityMild, models.CaseSeverityMild}, models.CaseSeverityModerate},
		{"all moderate", []models.CaseSeverity{models.CaseSeverityModerate, models.CaseSeverityModerate}, models.CaseSeverityMild},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cases []models.CaseRecord
			for i, s := range tt.severities {
				cases = append(cases, mkCase(string(rune('a'+i)), 36.82, -1.29, s, now))
			}

			clusters := Group(cases, 1000)
			if len(clusters) != 1 {
				t.Fatalf("expected 1 cluster, got %d", len(clusters))
			}
			if clusters[0].Severity != tt.want {
				t.Errorf("expected severity %s, got %s", tt.want, clusters[0].Severity)
			}
		})
	}
}

func TestGroup_RecentCases(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	var cases []models.CaseRecord
	for i := 0; i < 7; i++ {
		cases = append(cases, mkCase(
			string(rune('a'+i)), 36.82, -1.29,
			models.CaseSeverityMild, base.Add(time.Duration(i)*24*time.Hour),
		))
	}

	clusters := Group(cases, 1000)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}

	recent := clusters[0].RecentCases
	if len(recent) != 5 {
		t.Fatalf("expected 5 recent cases, got %d", len(recent))
	}
	if recent[0].CaseID != "g" {
		t.Errorf("expected newest case first, got %s", recent[0].CaseID)
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].ReportDate.After(recent[i-1].ReportDate) {
			t.Error("recent cases should be in descending report date order")
		}
	}
	for _, r := range recent {
		if r.Coordinates != nil || r.Location != "" {
			t.Error("recent case summaries should omit coordinates and location")
		}
	}
}

func TestGroup_DisplayRadius(t *testing.T) {
	now := time.Now()

	tests := []struct {
		caseCount int
		want      int
	}{
		{1, 50},
		{4, 60},
		{10, 150},
		{40, 500},
	}

	for _, tt := range tests {
		var cases []models.CaseRecord
		for i := 0; i < tt.caseCount; i++ {
			cases = append(cases, mkCase(string(rune('a'+i%26))+string(rune('0'+i/26)), 36.82, -1.29, models.CaseSeverityMild, now))
		}
		clusters := Group(cases, 1000)
		if clusters[0].Radius != tt.want {
			t.Errorf("caseCount %d: expected radius %d, got %d", tt.caseCount, tt.want, clusters[0].Radius)
		}
	}
}

func TestGroup_EmptyInput(t *testing.T) {
	clusters := Group(nil, 1000)
	if clusters == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(clusters) != 0 {
		t.Errorf("expected 0 clusters, got %d", len(clusters))
	}
}

func TestFilterMinCases(t *testing.T) {
	clusters := []models.Cluster{
		{ID: "cluster_1", CaseCount: 5},
		{ID: "cluster_2", CaseCount: 2},
		{ID: "cluster_3", CaseCount: 3},
	}

	got := FilterMinCases(clusters, 3)
	if len(got) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(got))
	}
	if got[0].ID != "cluster_1" || got[1].ID != "cluster_3" {
		t.Error("filter should preserve order")
	}

	got = FilterMinCases(clusters, 1)
	if len(got) != 3 {
		t.Errorf("minCases 1 should return all clusters, got %d", len(got))
	}

	got = FilterMinCases(clusters, 10)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}
