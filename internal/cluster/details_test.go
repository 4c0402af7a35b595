package cluster

import (
	"testing"
	"time"

	"github.com/mr1hm/go-health-alerts/internal/models"
)

func TestDetail_InvalidCenter(t *testing.T) {
	_, err := Detail(nil, models.Coordinates{Longitude: 200, Latitude: 0}, 1000)
	if err == nil {
		t.Fatal("expected error for invalid center")
	}
	if models.KindOf(err) != models.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestDetail_Aggregation(t *testing.T) {
	center := models.Coordinates{Longitude: 36.82, Latitude: -1.29}
	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	inside1 := mkCase("in1", 36.82, -1.29, models.CaseSeveritySevere, day1)
	inside1.EmergencyAlert = true
	inside1.AgeGroup = "25-35"
	inside2 := mkCase("in2", 36.82, -1.291, models.CaseSeverityMild, day2)
	inside2.SuspectedDisease = "typhoid"
	outside := mkCase("out", 36.82, -1.20, models.CaseSeverityCritical, day1)
	noCoords := models.CaseRecord{ID: "nc", Severity: models.CaseSeverityMild, ReportDate: day1}

	got, err := Detail([]models.CaseRecord{inside1, inside2, outside, noCoords}, center, 1000)
	if err != nil {
		t.Fatalf("Detail failed: %v", err)
	}

	if got.TotalCases != 2 {
		t.Errorf("expected 2 cases, got %d", got.TotalCases)
	}
	if got.SeverityBreakdown.Severe != 1 || got.SeverityBreakdown.Mild != 1 {
		t.Errorf("unexpected severity breakdown: %+v", got.SeverityBreakdown)
	}
	if got.DiseaseBreakdown["cholera"] != 1 || got.DiseaseBreakdown["typhoid"] != 1 {
		t.Errorf("unexpected disease breakdown: %v", got.DiseaseBreakdown)
	}
	if got.AgeGroupBreakdown["25-35"] != 1 || got.AgeGroupBreakdown["unknown"] != 1 {
		t.Errorf("unexpected age group breakdown: %v", got.AgeGroupBreakdown)
	}
	if got.Cases[1].AgeGroup != "25-35" {
		t.Errorf("age group not carried into case summary: %v", got.Cases)
	}
	if got.Timeline["2026-03-01"] != 1 || got.Timeline["2026-03-02"] != 1 {
		t.Errorf("unexpected timeline: %v", got.Timeline)
	}
	if got.EmergencyAlerts != 1 {
		t.Errorf("expected 1 emergency alert, got %d", got.EmergencyAlerts)
	}
	if len(got.Cases) != 2 || got.Cases[0].CaseID != "in2" {
		t.Errorf("expected cases newest first, got %v", got.Cases)
	}
}

func TestDetail_BoundaryInclusive(t *testing.T) {
	center := models.Coordinates{Longitude: 36.82, Latitude: -1.29}
	edge := mkCase("edge", 36.82, -1.285, models.CaseSeverityMild, time.Now())

	d := Haversine(center, *edge.Coordinates)

	got, err := Detail([]models.CaseRecord{edge}, center, d)
	if err != nil {
		t.Fatalf("Detail failed: %v", err)
	}
	if got.TotalCases != 1 {
		t.Errorf("case at exact radius should be included, got %d cases", got.TotalCases)
	}
}

func TestDetail_Empty(t *testing.T) {
	got, err := Detail(nil, models.Coordinates{Longitude: 36.82, Latitude: -1.29}, 1000)
	if err != nil {
		t.Fatalf("Detail failed: %v", err)
	}
	if got.TotalCases != 0 {
		t.Errorf("expected 0 cases, got %d", got.TotalCases)
	}
	if got.Cases == nil || got.DiseaseBreakdown == nil || got.AgeGroupBreakdown == nil || got.Timeline == nil {
		t.Error("empty aggregates should be non-nil")
	}
}
