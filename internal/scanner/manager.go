package scanner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mr1hm/go-health-alerts/internal/config"
	"github.com/mr1hm/go-health-alerts/internal/feed"
	"github.com/mr1hm/go-health-alerts/internal/models"
	"github.com/mr1hm/go-health-alerts/internal/repository"
	"github.com/mr1hm/go-health-alerts/internal/worker"
)

// Manager runs the threshold scan on a timer. Detection happens inline on
// the ticker goroutine; candidates flow through the worker pool, whose
// processor performs the authoritative dedup-then-create commit and then
// broadcasts the alert. The default single worker keeps commits serialized
// so a scan cannot race itself into duplicate alerts.
type Manager struct {
	cfg         *config.Config
	scanner     *Scanner
	cases       repository.CaseRepository
	water       repository.WaterRepository
	broadcaster *feed.Broadcaster
	pool        *worker.Pool[*models.AlertRecord]
	wg          sync.WaitGroup
}

func NewManager(cfg *config.Config, sc *Scanner, cases repository.CaseRepository, water repository.WaterRepository, broadcaster *feed.Broadcaster) *Manager {
	return &Manager{
		cfg:         cfg,
		scanner:     sc,
		cases:       cases,
		water:       water,
		broadcaster: broadcaster,
	}
}

func (m *Manager) Start(ctx context.Context) {
	processor := func(ctx context.Context, a *models.AlertRecord) error {
		created, err := m.scanner.Commit(ctx, a)
		if err != nil {
			slog.Error("error committing alert", "id", a.ID, "type", a.Type, "error", err)
			return err
		}
		if !created {
			return nil
		}

		if m.broadcaster != nil {
			m.broadcaster.Broadcast(a)
		}

		slog.Info("created alert", "id", a.ID, "type", a.Type, "severity", a.Severity, "district", a.District)
		return nil
	}

	m.pool = worker.NewPool(m.cfg.Worker.Count, m.cfg.Worker.BufferSize, processor)
	m.pool.Start(ctx)

	m.wg.Add(1)
	go m.run(ctx)
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	slog.Info("starting threshold scan loop", "interval", m.cfg.Scan.Interval)

	ticker := time.NewTicker(m.cfg.Scan.Interval)
	defer ticker.Stop()

	// Initial scan
	m.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("scan loop shutting down")
			return
		case <-ticker.C:
			m.scan(ctx)
		}
	}
}

func (m *Manager) scan(ctx context.Context) {
	slog.Debug("running threshold scan")

	waterSince := time.Now().Add(-WaterWindow)
	water, err := m.water.ListWaterRecords(ctx, repository.WaterFilter{Since: &waterSince})
	if err != nil {
		slog.Error("scan failed listing water records", "error", err)
		return
	}

	caseSince := time.Now().Add(-HealthWindow)
	cases, err := m.cases.ListCases(ctx, repository.CaseFilter{Since: &caseSince})
	if err != nil {
		slog.Error("scan failed listing case records", "error", err)
		return
	}

	result, err := m.scanner.Scan(ctx, water, cases)
	if err != nil {
		slog.Error("threshold scan failed", "error", err)
		return
	}

	for _, a := range result.Created {
		m.pool.Submit(a)
	}

	slog.Debug("threshold scan complete", "water_records", len(water), "case_records", len(cases), "candidates", result.Count)
}

func (m *Manager) Stop() {
	m.wg.Wait()
	m.pool.Stop()
	slog.Info("scan manager stopped")
}
