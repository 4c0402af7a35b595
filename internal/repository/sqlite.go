package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mr1hm/go-health-alerts/internal/models"
	_ "modernc.org/sqlite"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS case_reports (
			id TEXT PRIMARY KEY,
			longitude REAL,
			latitude REAL,
			severity TEXT NOT NULL,
			suspected_disease TEXT NOT NULL,
			location TEXT NOT NULL,
			age_group TEXT NOT NULL DEFAULT '',
			report_date DATETIME NOT NULL,
			emergency_alert INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS water_reports (
			id TEXT PRIMARY KEY,
			district TEXT NOT NULL,
			location TEXT,
			ph REAL NOT NULL,
			turbidity REAL NOT NULL,
			dissolved_oxygen REAL NOT NULL,
			sampled_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			severity TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			district TEXT,
			status TEXT NOT NULL,
			priority INTEGER NOT NULL,
			escalation_level INTEGER NOT NULL,
			source_type TEXT NOT NULL,
			source_id TEXT,
			source_triggered_by TEXT,
			actions TEXT NOT NULL DEFAULT '[]',
			assigned_team TEXT NOT NULL DEFAULT '[]',
			resolved_at DATETIME,
			resolved_by TEXT,
			resolution_notes TEXT,
			expires_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_case_reports_report_date ON case_reports(report_date);
		CREATE INDEX IF NOT EXISTS idx_case_reports_location ON case_reports(location);
		CREATE INDEX IF NOT EXISTS idx_water_reports_sampled_at ON water_reports(sampled_at);
		CREATE INDEX IF NOT EXISTS idx_alerts_status_severity ON alerts(status, severity);
		CREATE INDEX IF NOT EXISTS idx_alerts_source ON alerts(source_type, source_id);
		CREATE INDEX IF NOT EXISTS idx_alerts_type_created ON alerts(type, created_at);
  	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// --- case reports ---

func (s *SQLiteDB) AddCase(ctx context.Context, c *models.CaseRecord) error {
	var lon, lat sql.NullFloat64
	if c.Coordinates != nil {
		lon = sql.NullFloat64{Float64: c.Coordinates.Longitude, Valid: true}
		lat = sql.NullFloat64{Float64: c.Coordinates.Latitude, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO case_reports (id, longitude, latitude, severity, suspected_disease, location, age_group, report_date, emergency_alert, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, lon, lat, c.Severity, c.SuspectedDisease, c.Location, c.AgeGroup, c.ReportDate, c.EmergencyAlert, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting case report: %w", err)
	}
	return nil
}

func (s *SQLiteDB) ListCases(ctx context.Context, f CaseFilter) ([]models.CaseRecord, error) {
	query := `SELECT id, longitude, latitude, severity, suspected_disease, location, age_group, report_date, emergency_alert, created_at
		FROM case_reports WHERE 1=1`
	var args []any

	if f.Since != nil {
		query += " AND report_date >= ?"
		args = append(args, *f.Since)
	}
	if f.Until != nil {
		query += " AND report_date <= ?"
		args = append(args, *f.Until)
	}
	if f.UpdatedAfter != nil {
		query += " AND created_at > ?"
		args = append(args, *f.UpdatedAfter)
	}
	if f.Severity != nil {
		query += " AND severity = ?"
		args = append(args, *f.Severity)
	}
	if f.Disease != nil {
		query += " AND suspected_disease = ?"
		args = append(args, *f.Disease)
	}
	if f.Location != nil {
		query += " AND location LIKE ? COLLATE NOCASE"
		args = append(args, "%"+*f.Location+"%")
	}
	if f.WithCoordsOnly {
		query += " AND longitude IS NOT NULL AND latitude IS NOT NULL"
	}

	query += " ORDER BY report_date DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing case reports: %w", err)
	}
	defer rows.Close()

	var cases []models.CaseRecord
	for rows.Next() {
		var c models.CaseRecord
		var lon, lat sql.NullFloat64
		if err := rows.Scan(&c.ID, &lon, &lat, &c.Severity, &c.SuspectedDisease, &c.Location, &c.AgeGroup, &c.ReportDate, &c.EmergencyAlert, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning case report: %w", err)
		}
		if lon.Valid && lat.Valid {
			c.Coordinates = &models.Coordinates{Longitude: lon.Float64, Latitude: lat.Float64}
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

// --- water reports ---

func (s *SQLiteDB) AddWaterRecord(ctx context.Context, w *models.WaterQualityRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO water_reports (id, district, location, ph, turbidity, dissolved_oxygen, sampled_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.District, w.Location, w.PH, w.Turbidity, w.DissolvedOxygen, w.SampledAt, w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting water report: %w", err)
	}
	return nil
}

func (s *SQLiteDB) ListWaterRecords(ctx context.Context, f WaterFilter) ([]models.WaterQualityRecord, error) {
	query := `SELECT id, district, location, ph, turbidity, dissolved_oxygen, sampled_at, created_at
		FROM water_reports WHERE 1=1`
	var args []any

	if f.Since != nil {
		query += " AND sampled_at >= ?"
		args = append(args, *f.Since)
	}
	if f.District != nil {
		query += " AND district LIKE ? COLLATE NOCASE"
		args = append(args, "%"+*f.District+"%")
	}

	query += " ORDER BY sampled_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing water reports: %w", err)
	}
	defer rows.Close()

	var records []models.WaterQualityRecord
	for rows.Next() {
		var w models.WaterQualityRecord
		if err := rows.Scan(&w.ID, &w.District, &w.Location, &w.PH, &w.Turbidity, &w.DissolvedOxygen, &w.SampledAt, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning water report: %w", err)
		}
		records = append(records, w)
	}
	return records, rows.Err()
}

// --- alerts ---

const alertColumns = `id, type, severity, title, description, district, status, priority, escalation_level,
	source_type, source_id, source_triggered_by, actions, assigned_team,
	resolved_at, resolved_by, resolution_notes, expires_at, created_at, updated_at`

// Save upserts the full alert row. Actions and team ride along as JSON;
// they are only ever read back whole, never queried into.
func (s *SQLiteDB) Save(ctx context.Context, a *models.AlertRecord) error {
	actions, err := json.Marshal(a.Actions)
	if err != nil {
		return fmt.Errorf("error encoding actions: %w", err)
	}
	team, err := json.Marshal(a.AssignedTeam)
	if err != nil {
		return fmt.Errorf("error encoding assigned team: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alerts (`+alertColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			severity = excluded.severity,
			status = excluded.status,
			priority = excluded.priority,
			escalation_level = excluded.escalation_level,
			actions = excluded.actions,
			assigned_team = excluded.assigned_team,
			resolved_at = excluded.resolved_at,
			resolved_by = excluded.resolved_by,
			resolution_notes = excluded.resolution_notes,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		a.ID, a.Type, a.Severity, a.Title, a.Description, a.District, a.Status, a.Priority, a.EscalationLevel,
		a.Source.Type, a.Source.SourceID, a.Source.TriggeredBy, string(actions), string(team),
		a.ResolvedAt, a.ResolvedBy, a.ResolutionNotes, a.ExpiresAt, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error saving alert: %w", err)
	}
	return nil
}

func (s *SQLiteDB) FindByID(ctx context.Context, id string) (*models.AlertRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (s *SQLiteDB) DeleteByID(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("error deleting alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *SQLiteDB) ListAlerts(ctx context.Context, f AlertFilter) ([]models.AlertRecord, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE 1=1`
	var args []any

	if f.Type != nil {
		query += " AND type = ?"
		args = append(args, *f.Type)
	}
	if f.Severity != nil {
		query += " AND severity = ?"
		args = append(args, *f.Severity)
	}
	if f.Status != nil {
		query += " AND status = ?"
		args = append(args, *f.Status)
	}
	if f.District != nil {
		query += " AND district LIKE ? COLLATE NOCASE"
		args = append(args, "%"+*f.District+"%")
	}
	if f.Since != nil {
		query += " AND created_at >= ?"
		args = append(args, *f.Since)
	}
	if f.Until != nil {
		query += " AND created_at <= ?"
		args = append(args, *f.Until)
	}

	query += " ORDER BY priority DESC, created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.AlertRecord
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

func (s *SQLiteDB) FindOpenAlertForSource(ctx context.Context, sourceType models.SourceType, sourceID string) (*models.AlertRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+alertColumns+` FROM alerts
		WHERE source_type = ? AND source_id = ? AND status IN ('active', 'acknowledged', 'investigating')
		LIMIT 1`,
		sourceType, sourceID,
	)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (s *SQLiteDB) FindOpenHealthClusterAlert(ctx context.Context, locationPattern string, since time.Time) (*models.AlertRecord, error) {
	// Partial match in both directions: an alert for "Ward 4" covers a scan
	// group labeled "Ward 4, Majuli" and vice versa.
	row := s.db.QueryRowContext(ctx, `
		SELECT `+alertColumns+` FROM alerts
		WHERE type = 'health_cluster'
		  AND (district LIKE ? COLLATE NOCASE OR ? LIKE ('%' || district || '%') COLLATE NOCASE)
		  AND status IN ('active', 'acknowledged', 'investigating')
		  AND created_at >= ?
		LIMIT 1`,
		"%"+locationPattern+"%", locationPattern, since,
	)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (s *SQLiteDB) Stats(ctx context.Context, since, until *time.Time) (*AlertStats, error) {
	where := " WHERE 1=1"
	var args []any
	if since != nil {
		where += " AND created_at >= ?"
		args = append(args, *since)
	}
	if until != nil {
		where += " AND created_at <= ?"
		args = append(args, *until)
	}

	stats := &AlertStats{
		ByType:     map[string]int{},
		BySeverity: map[string]int{},
		ByStatus:   map[string]int{},
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status IN ('active', 'acknowledged', 'investigating') THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN severity = 'critical' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'resolved' THEN 1 ELSE 0 END), 0)
		FROM alerts`+where, args...)
	if err := row.Scan(&stats.Total, &stats.Open, &stats.Critical, &stats.Resolved); err != nil {
		return nil, fmt.Errorf("error computing alert totals: %w", err)
	}

	groupings := []struct {
		column string
		dest   map[string]int
	}{
		{"type", stats.ByType},
		{"severity", stats.BySeverity},
		{"status", stats.ByStatus},
	}
	for _, g := range groupings {
		if err := s.countBy(ctx, g.column, where, args, g.dest); err != nil {
			return nil, err
		}
	}

	return stats, nil
}

func (s *SQLiteDB) countBy(ctx context.Context, column, where string, args []any, dest map[string]int) error {
	rows, err := s.db.QueryContext(ctx, `SELECT `+column+`, COUNT(*) FROM alerts`+where+` GROUP BY `+column, args...)
	if err != nil {
		return fmt.Errorf("error grouping alerts by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		dest[key] = count
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*models.AlertRecord, error) {
	var a models.AlertRecord
	var description, district, sourceID, triggeredBy, resolvedBy, resolutionNotes sql.NullString
	var actions, team string
	var resolvedAt, expiresAt sql.NullTime

	err := row.Scan(
		&a.ID, &a.Type, &a.Severity, &a.Title, &description, &district, &a.Status, &a.Priority, &a.EscalationLevel,
		&a.Source.Type, &sourceID, &triggeredBy, &actions, &team,
		&resolvedAt, &resolvedBy, &resolutionNotes, &expiresAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Description = description.String
	a.District = district.String
	a.Source.SourceID = sourceID.String
	a.Source.TriggeredBy = triggeredBy.String
	a.ResolvedBy = resolvedBy.String
	a.ResolutionNotes = resolutionNotes.String
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		a.ExpiresAt = &t
	}
	if err := json.Unmarshal([]byte(actions), &a.Actions); err != nil {
		return nil, fmt.Errorf("error decoding actions for alert %s: %w", a.ID, err)
	}
	if err := json.Unmarshal([]byte(team), &a.AssignedTeam); err != nil {
		return nil, fmt.Errorf("error decoding assigned team for alert %s: %w", a.ID, err)
	}
	if a.Actions == nil {
		a.Actions = []models.Action{}
	}

	return &a, nil
}
