// Package scanner evaluates recent water-quality samples and case reports
// against static safety thresholds and synthesizes alerts for breaches,
// deduplicating against open alerts already in the store.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/mr1hm/go-health-alerts/internal/lifecycle"
	"github.com/mr1hm/go-health-alerts/internal/models"
	"github.com/mr1hm/go-health-alerts/internal/repository"
)

// Water-quality thresholds. A sample outside the safe band qualifies for an
// alert; past the high band the alert severity escalates.
const (
	phSafeMin = 6.5
	phSafeMax = 8.5
	phHighMin = 6.0
	phHighMax = 9.0

	turbiditySafeMax = 5.0
	turbidityHighMax = 10.0

	dissolvedOxygenSafeMin = 5.0
	dissolvedOxygenHighMin = 3.0
)

// Health-cluster thresholds over a 7-day per-location window.
const (
	clusterMinCases       = 3
	clusterMinSevereCases = 2

	clusterHighCases     = 5
	clusterCriticalCases = 8

	clusterCriticalSevereCases = 3
)

const (
	// WaterWindow is how far back the water detector looks.
	WaterWindow = 24 * time.Hour
	// HealthWindow is how far back the health-cluster detector looks, and
	// also bounds the dedup lookback for existing cluster alerts.
	HealthWindow = 7 * 24 * time.Hour
)

// Scanner holds the dedup store. Detection itself is a pure function of the
// record sets handed in.
type Scanner struct {
	store repository.AlertRepository
	now   func() time.Time
}

func New(store repository.AlertRepository) *Scanner {
	return &Scanner{store: store, now: time.Now}
}

// Result is one scan's outcome.
type Result struct {
	Created []*models.AlertRecord `json:"generatedAlerts"`
	Count   int                   `json:"count"`
}

// Scan runs both detectors over the supplied record sets and returns the
// candidate alerts that survived dedup. Candidates are built but NOT saved;
// persisting (and therefore the authoritative dedup-then-create step) belongs
// to the caller so it can serialize or batch as it sees fit.
func (s *Scanner) Scan(ctx context.Context, water []models.WaterQualityRecord, cases []models.CaseRecord) (*Result, error) {
	created := []*models.AlertRecord{}

	waterAlerts, err := s.ScanWaterQuality(ctx, water)
	if err != nil {
		return nil, err
	}
	created = append(created, waterAlerts...)

	clusterAlerts, err := s.ScanHealthClusters(ctx, cases)
	if err != nil {
		return nil, err
	}
	created = append(created, clusterAlerts...)

	return &Result{Created: created, Count: len(created)}, nil
}

// Commit persists one candidate alert after re-checking the store for an
// open alert covering the same source. The re-check runs immediately before
// the save; concurrent committers for the same source can still race, so
// callers wanting at-most-once creation must serialize commits per source
// (the scan manager does this with a single worker). Returns false when the
// candidate was dropped as a duplicate.
func (s *Scanner) Commit(ctx context.Context, a *models.AlertRecord) (bool, error) {
	var existing *models.AlertRecord
	var err error

	switch a.Type {
	case models.AlertTypeHealthCluster:
		existing, err = s.store.FindOpenHealthClusterAlert(ctx, a.District, s.now().Add(-HealthWindow))
	default:
		existing, err = s.store.FindOpenAlertForSource(ctx, a.Source.Type, a.Source.SourceID)
	}
	if err != nil {
		return false, models.PersistenceError(err)
	}
	if existing != nil {
		return false, nil
	}

	if err := s.store.Save(ctx, a); err != nil {
		return false, models.PersistenceError(err)
	}
	return true, nil
}

// ScanWaterQuality checks each sample against the safe bands. A record with
// unusable readings is skipped with a log line rather than failing the batch.
// A sample already covered by an open alert produces nothing.
func (s *Scanner) ScanWaterQuality(ctx context.Context, records []models.WaterQualityRecord) ([]*models.AlertRecord, error) {
	alerts := []*models.AlertRecord{}

	for i := range records {
		rec := &records[i]
		severity, issues, err := evaluateWaterRecord(rec)
		if err != nil {
			slog.Warn("skipping unreadable water record", "id", rec.ID, "error", err)
			continue
		}
		if len(issues) == 0 {
			continue
		}

		existing, err := s.store.FindOpenAlertForSource(ctx, models.SourceWaterReport, rec.ID)
		if err != nil {
			return nil, models.PersistenceError(err)
		}
		if existing != nil {
			continue
		}

		a, err := lifecycle.NewAlert(lifecycle.NewAlertParams{
			Type:        models.AlertTypeWaterQuality,
			Severity:    severity,
			Title:       "Water Quality Alert - " + rec.District,
			Description: "Water quality parameters exceed safe thresholds: " + strings.Join(issues, ", "),
			District:    rec.District,
			Source: models.Source{
				Type:     models.SourceWaterReport,
				SourceID: rec.ID,
			},
		}, s.now())
		if err != nil {
			slog.Warn("skipping water record", "id", rec.ID, "error", err)
			continue
		}
		alerts = append(alerts, a)
	}

	return alerts, nil
}

// evaluateWaterRecord returns the implied severity and the human-readable
// list of breached parameters. Severity is the maximum implied by any single
// breach: medium inside the qualify band, high past the escalation band.
func evaluateWaterRecord(rec *models.WaterQualityRecord) (models.AlertSeverity, []string, error) {
	if rec.PH != rec.PH || rec.Turbidity != rec.Turbidity || rec.DissolvedOxygen != rec.DissolvedOxygen {
		return "", nil, models.ComputationError("record %s has NaN readings", rec.ID)
	}
	if rec.PH < 0 || rec.PH > 14 {
		return "", nil, models.ComputationError("record %s has pH %v outside 0..14", rec.ID, rec.PH)
	}

	severity := models.AlertSeverityMedium
	var issues []string

	if rec.PH < phSafeMin || rec.PH > phSafeMax {
		if rec.PH < phHighMin || rec.PH > phHighMax {
			severity = models.AlertSeverityHigh
		}
		issues = append(issues, fmt.Sprintf("pH: %v", rec.PH))
	}
	if rec.Turbidity > turbiditySafeMax {
		if rec.Turbidity > turbidityHighMax {
			severity = models.AlertSeverityHigh
		}
		issues = append(issues, fmt.Sprintf("Turbidity: %v NTU", rec.Turbidity))
	}
	if rec.DissolvedOxygen < dissolvedOxygenSafeMin {
		if rec.DissolvedOxygen < dissolvedOxygenHighMin {
			severity = models.AlertSeverityHigh
		}
		issues = append(issues, fmt.Sprintf("DO: %v mg/L", rec.DissolvedOxygen))
	}

	return severity, issues, nil
}

// locationGroup aggregates one location label's recent cases.
type locationGroup struct {
	location    string
	caseCount   int
	severeCases int
	diseases    []string
}

// ScanHealthClusters groups cases by location label and raises an alert for
// any group past the outbreak thresholds, unless an open health_cluster alert
// for a matching location already exists within the lookback window.
func (s *Scanner) ScanHealthClusters(ctx context.Context, cases []models.CaseRecord) ([]*models.AlertRecord, error) {
	groups := groupByLocation(cases)
	alerts := []*models.AlertRecord{}

	for _, g := range groups {
		if g.caseCount < clusterMinCases && g.severeCases < clusterMinSevereCases {
			continue
		}

		existing, err := s.store.FindOpenHealthClusterAlert(ctx, g.location, s.now().Add(-HealthWindow))
		if err != nil {
			return nil, models.PersistenceError(err)
		}
		if existing != nil {
			continue
		}

		a, err := lifecycle.NewAlert(lifecycle.NewAlertParams{
			Type:     models.AlertTypeHealthCluster,
			Severity: clusterAlertSeverity(g.caseCount, g.severeCases),
			Title:    "Health Cluster Alert - " + g.location,
			Description: fmt.Sprintf("%d cases detected in %s (%d severe). Diseases: %s",
				g.caseCount, g.location, g.severeCases, strings.Join(g.diseases, ", ")),
			District: g.location,
			Source:   models.Source{Type: models.SourceSystem},
		}, s.now())
		if err != nil {
			slog.Warn("skipping case group", "location", g.location, "error", err)
			continue
		}
		alerts = append(alerts, a)
	}

	return alerts, nil
}

func groupByLocation(cases []models.CaseRecord) []locationGroup {
	byLocation := map[string]*locationGroup{}
	var order []string

	for i := range cases {
		c := &cases[i]
		if c.Location == "" {
			slog.Debug("case without location label excluded from cluster scan", "id", c.ID)
			continue
		}
		g, ok := byLocation[c.Location]
		if !ok {
			g = &locationGroup{location: c.Location}
			byLocation[c.Location] = g
			order = append(order, c.Location)
		}
		g.caseCount++
		if c.Severity == models.CaseSeveritySevere || c.Severity == models.CaseSeverityCritical {
			g.severeCases++
		}
		if !contains(g.diseases, c.SuspectedDisease) {
			g.diseases = append(g.diseases, c.SuspectedDisease)
		}
	}

	groups := make([]locationGroup, 0, len(order))
	for _, loc := range order {
		g := byLocation[loc]
		sort.Strings(g.diseases)
		groups = append(groups, *g)
	}
	return groups
}

func clusterAlertSeverity(caseCount, severeCases int) models.AlertSeverity {
	switch {
	case severeCases >= clusterCriticalSevereCases || caseCount >= clusterCriticalCases:
		return models.AlertSeverityCritical
	case severeCases >= clusterMinSevereCases || caseCount >= clusterHighCases:
		return models.AlertSeverityHigh
	default:
		return models.AlertSeverityMedium
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
