package repository

import (
	"context"
	"time"

	"github.com/mr1hm/go-health-alerts/internal/models"
)

// CaseFilter narrows case-report queries. Nil fields are ignored.
type CaseFilter struct {
	Limit          int
	Since          *time.Time
	Until          *time.Time
	UpdatedAfter   *time.Time
	Severity       *models.CaseSeverity
	Disease        *string
	Location       *string // case-insensitive substring match
	WithCoordsOnly bool    // clustering needs a location fix
}

// WaterFilter narrows water-quality queries. Nil fields are ignored.
type WaterFilter struct {
	Limit    int
	Since    *time.Time
	District *string // case-insensitive substring match
}

// AlertFilter narrows alert listings. Nil fields are ignored.
type AlertFilter struct {
	Limit    int
	Type     *models.AlertType
	Severity *models.AlertSeverity
	Status   *models.AlertStatus
	District *string // case-insensitive substring match
	Since    *time.Time
	Until    *time.Time
}

// AlertStats is the aggregate view over the alert table.
type AlertStats struct {
	Total      int            `json:"totalAlerts"`
	Open       int            `json:"activeAlerts"` // active + acknowledged + investigating
	Critical   int            `json:"criticalAlerts"`
	Resolved   int            `json:"resolvedAlerts"`
	ByType     map[string]int `json:"byType"`
	BySeverity map[string]int `json:"bySeverity"`
	ByStatus   map[string]int `json:"byStatus"`
}

// CaseRepository supplies case reports for clustering and scanning.
type CaseRepository interface {
	AddCase(ctx context.Context, c *models.CaseRecord) error
	ListCases(ctx context.Context, f CaseFilter) ([]models.CaseRecord, error)
}

// WaterRepository supplies water-quality samples for scanning.
type WaterRepository interface {
	AddWaterRecord(ctx context.Context, w *models.WaterQualityRecord) error
	ListWaterRecords(ctx context.Context, f WaterFilter) ([]models.WaterQualityRecord, error)
}

// AlertRepository owns AlertRecord persistence. FindOpenAlertForSource and
// FindOpenHealthClusterAlert back the scanner's dedup checks; both return
// nil, nil when no match exists.
type AlertRepository interface {
	Save(ctx context.Context, a *models.AlertRecord) error
	FindByID(ctx context.Context, id string) (*models.AlertRecord, error)
	DeleteByID(ctx context.Context, id string) error
	ListAlerts(ctx context.Context, f AlertFilter) ([]models.AlertRecord, error)
	FindOpenAlertForSource(ctx context.Context, sourceType models.SourceType, sourceID string) (*models.AlertRecord, error)
	FindOpenHealthClusterAlert(ctx context.Context, locationPattern string, since time.Time) (*models.AlertRecord, error)
	Stats(ctx context.Context, since, until *time.Time) (*AlertStats, error)
}
