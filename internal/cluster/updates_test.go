package cluster

import (
	"testing"
	"time"

	"github.com/mr1hm/go-health-alerts/internal/models"
)

func TestUpdates_ZeroSince(t *testing.T) {
	_, err := Updates(time.Time{}, nil, nil, 1000)
	if err == nil {
		t.Fatal("expected error for zero since timestamp")
	}
	if models.KindOf(err) != models.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestUpdates_NoChanges(t *testing.T) {
	now := time.Now()
	window := []models.CaseRecord{
		mkCase("w1", 36.82, -1.29, models.CaseSeverityMild, now),
		mkCase("w2", 36.82, -1.29, models.CaseSeverityMild, now),
	}

	got, err := Updates(now.Add(-time.Hour), nil, window, 1000)
	if err != nil {
		t.Fatalf("Updates failed: %v", err)
	}
	if got.HasUpdates {
		t.Error("expected HasUpdates false with no changed cases")
	}
	if got.NewCases != 0 {
		t.Errorf("expected 0 new cases, got %d", got.NewCases)
	}
	if got.UpdatedClusters == nil || len(got.UpdatedClusters) != 0 {
		t.Errorf("expected empty cluster list, got %v", got.UpdatedClusters)
	}
}

func TestUpdates_OnlyTouchedClusters(t *testing.T) {
	now := time.Now()

	// Two far-apart groups; only the first contains a changed case.
	window := []models.CaseRecord{
		mkCase("a1", 36.82, -1.29, models.CaseSeverityMild, now.Add(-48*time.Hour)),
		mkCase("a2", 36.82, -1.29, models.CaseSeverityMild, now),
		mkCase("b1", 10.0, 50.0, models.CaseSeverityMild, now.Add(-48*time.Hour)),
		mkCase("b2", 10.0, 50.0, models.CaseSeverityMild, now.Add(-48*time.Hour)),
	}
	changed := []models.CaseRecord{window[1]}

	got, err := Updates(now.Add(-time.Hour), changed, window, 1000)
	if err != nil {
		t.Fatalf("Updates failed: %v", err)
	}
	if !got.HasUpdates {
		t.Error("expected HasUpdates true")
	}
	if got.NewCases != 1 {
		t.Errorf("expected 1 new case, got %d", got.NewCases)
	}
	if len(got.UpdatedClusters) != 1 {
		t.Fatalf("expected 1 updated cluster, got %d", len(got.UpdatedClusters))
	}

	// The touched cluster carries its untouched neighbors too
	if got.UpdatedClusters[0].CaseCount != 2 {
		t.Errorf("expected updated cluster to contain 2 cases, got %d", got.UpdatedClusters[0].CaseCount)
	}
}

func TestUpdates_ChangedCaseInEveryCluster(t *testing.T) {
	now := time.Now()
	window := []models.CaseRecord{
		mkCase("a1", 36.82, -1.29, models.CaseSeverityMild, now),
		mkCase("b1", 10.0, 50.0, models.CaseSeverityMild, now),
	}

	got, err := Updates(now.Add(-time.Hour), window, window, 1000)
	if err != nil {
		t.Fatalf("Updates failed: %v", err)
	}
	if len(got.UpdatedClusters) != 2 {
		t.Errorf("expected 2 updated clusters, got %d", len(got.UpdatedClusters))
	}
	if got.NewCases != 2 {
		t.Errorf("expected 2 new cases, got %d", got.NewCases)
	}
}
