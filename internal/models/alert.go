package models

import "time"

type AlertType string

const (
	AlertTypeWaterQuality  AlertType = "water_quality"
	AlertTypeHealthCluster AlertType = "health_cluster"
	AlertTypeEmergency     AlertType = "emergency"
	AlertTypeOutbreak      AlertType = "outbreak"
	AlertTypeMaintenance   AlertType = "system_maintenance"
)

type AlertSeverity string

const (
	AlertSeverityLow      AlertSeverity = "low"
	AlertSeverityMedium   AlertSeverity = "medium"
	AlertSeverityHigh     AlertSeverity = "high"
	AlertSeverityCritical AlertSeverity = "critical"
)

// BasePriority maps severity to the 1-10 priority scale used at creation.
func (s AlertSeverity) BasePriority() int {
	switch s {
	case AlertSeverityLow:
		return 3
	case AlertSeverityHigh:
		return 7
	case AlertSeverityCritical:
		return 10
	default:
		return 5
	}
}

type AlertStatus string

const (
	AlertStatusActive        AlertStatus = "active"
	AlertStatusAcknowledged  AlertStatus = "acknowledged"
	AlertStatusInvestigating AlertStatus = "investigating"
	AlertStatusResolved      AlertStatus = "resolved"
	AlertStatusFalseAlarm    AlertStatus = "false_alarm"
	AlertStatusExpired       AlertStatus = "expired"
)

// Open reports whether the alert still needs attention. Open statuses are the
// ones the scanner dedups against.
func (s AlertStatus) Open() bool {
	return s == AlertStatusActive || s == AlertStatusAcknowledged || s == AlertStatusInvestigating
}

// Terminal reports whether the status admits no further transitions.
func (s AlertStatus) Terminal() bool {
	return s == AlertStatusResolved || s == AlertStatusFalseAlarm || s == AlertStatusExpired
}

type ActionKind string

const (
	ActionAcknowledged ActionKind = "acknowledged"
	ActionInvestigated ActionKind = "investigated"
	ActionTeamAssigned ActionKind = "team_assigned"
	ActionEscalated    ActionKind = "escalated"
	ActionResolved     ActionKind = "resolved"
	ActionFalseAlarm   ActionKind = "false_alarm"
	ActionMonitoring   ActionKind = "monitoring"
	ActionOther        ActionKind = "other"
)

type SourceType string

const (
	SourceWaterReport SourceType = "water_report"
	SourceCaseReport  SourceType = "patient_report"
	SourceManual      SourceType = "manual"
	SourceSystem      SourceType = "system_generated"
)

// Source records what triggered an alert.
type Source struct {
	Type        SourceType `json:"type"`
	SourceID    string     `json:"sourceId,omitempty"`    // originating report ID for report-backed alerts
	TriggeredBy string     `json:"triggeredBy,omitempty"` // operator name for manual alerts
}

// Action is one immutable entry in an alert's audit history.
type Action struct {
	Action      ActionKind `json:"action"`
	PerformedBy string     `json:"performedBy"`
	Role        string     `json:"role,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
	Notes       string     `json:"notes,omitempty"`
}

type TeamMember struct {
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	Contact    string    `json:"contact,omitempty"`
	AssignedAt time.Time `json:"assignedAt"`
}

// AlertRecord is the persistent alert entity. All mutations go through the
// lifecycle package; handlers and the scanner never modify fields directly.
type AlertRecord struct {
	ID              string
	Type            AlertType
	Severity        AlertSeverity
	Title           string
	Description     string
	District        string
	Status          AlertStatus
	Priority        int // 1..10
	EscalationLevel int // 0..5
	Source          Source
	Actions         []Action
	AssignedTeam    []TeamMember
	ResolvedAt      *time.Time
	ResolvedBy      string
	ResolutionNotes string
	ExpiresAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// UrgencyScore combines severity with alert age, rounded to one decimal.
// Computed on demand so it can never go stale.
func (a *AlertRecord) UrgencyScore(now time.Time) float64 {
	weights := map[AlertSeverity]float64{
		AlertSeverityLow:      1,
		AlertSeverityMedium:   2,
		AlertSeverityHigh:     3,
		AlertSeverityCritical: 4,
	}
	w, ok := weights[a.Severity]
	if !ok {
		w = 1
	}
	hoursOld := now.Sub(a.CreatedAt).Hours()
	if hoursOld < 0 {
		hoursOld = 0
	}
	timeFactor := hoursOld / 24
	if timeFactor > 2 {
		timeFactor = 2
	}
	return float64(int(w*(1+timeFactor)*10+0.5)) / 10
}

// ResponseTime is the time from creation to resolution, or zero if unresolved.
func (a *AlertRecord) ResponseTime() time.Duration {
	if a.ResolvedAt == nil {
		return 0
	}
	return a.ResolvedAt.Sub(a.CreatedAt)
}
