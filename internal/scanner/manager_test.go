package scanner

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/mr1hm/go-health-alerts/internal/config"
	"github.com/mr1hm/go-health-alerts/internal/feed"
	"github.com/mr1hm/go-health-alerts/internal/models"
	"github.com/mr1hm/go-health-alerts/internal/repository"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordStore serves fixed record sets to the scan loop.
type recordStore struct {
	water []models.WaterQualityRecord
	cases []models.CaseRecord
}

func (r *recordStore) AddCase(ctx context.Context, c *models.CaseRecord) error {
	r.cases = append(r.cases, *c)
	return nil
}

func (r *recordStore) ListCases(ctx context.Context, f repository.CaseFilter) ([]models.CaseRecord, error) {
	return r.cases, nil
}

func (r *recordStore) AddWaterRecord(ctx context.Context, w *models.WaterQualityRecord) error {
	r.water = append(r.water, *w)
	return nil
}

func (r *recordStore) ListWaterRecords(ctx context.Context, f repository.WaterFilter) ([]models.WaterQualityRecord, error) {
	return r.water, nil
}

func testConfig(interval time.Duration) *config.Config {
	return &config.Config{
		Scan:   config.ScanConfig{Enabled: true, Interval: interval},
		Worker: config.WorkerConfig{Count: 1, BufferSize: 10},
	}
}

func TestManager_StartStop(t *testing.T) {
	alerts := newMemStore()
	records := &recordStore{}
	mgr := NewManager(testConfig(time.Hour), New(alerts), records, records, nil)

	ctx, cancel := context.WithCancel(context.Background())
	mgr.Start(ctx)

	time.Sleep(50 * time.Millisecond)

	cancel()
	mgr.Stop()
}

func TestManager_InitialScanCommitsAndBroadcasts(t *testing.T) {
	alerts := newMemStore()
	bad := safeWater("w_bad", "Central")
	bad.PH = 5.5
	records := &recordStore{water: []models.WaterQualityRecord{bad}}

	broadcaster := feed.NewBroadcaster()
	defer broadcaster.Close()
	_, ch := broadcaster.Subscribe()

	mgr := NewManager(testConfig(time.Hour), New(alerts), records, records, broadcaster)

	ctx, cancel := context.WithCancel(context.Background())
	mgr.Start(ctx)

	select {
	case a := <-ch:
		if a.Type != models.AlertTypeWaterQuality || a.District != "Central" {
			t.Errorf("unexpected broadcast alert %+v", a)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for alert broadcast")
	}

	cancel()
	mgr.Stop()

	if len(alerts.alerts) != 1 {
		t.Errorf("expected 1 persisted alert, got %d", len(alerts.alerts))
	}
}

func TestManager_RepeatedTicksDoNotDuplicate(t *testing.T) {
	alerts := newMemStore()
	bad := safeWater("w_bad", "Central")
	bad.PH = 5.5
	records := &recordStore{water: []models.WaterQualityRecord{bad}}

	mgr := NewManager(testConfig(20*time.Millisecond), New(alerts), records, records, nil)

	ctx, cancel := context.WithCancel(context.Background())
	mgr.Start(ctx)

	// Let several ticks fire against the same breach
	time.Sleep(150 * time.Millisecond)

	cancel()
	mgr.Stop()

	if len(alerts.alerts) != 1 {
		t.Errorf("expected 1 alert across repeated scans, got %d", len(alerts.alerts))
	}
}
