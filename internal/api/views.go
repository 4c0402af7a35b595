package api

import (
	"time"

	"github.com/mr1hm/go-health-alerts/internal/models"
)

// alertView is the JSON shape for alerts, with the derived urgency score
// computed at render time.
type alertView struct {
	ID              string               `json:"id"`
	Type            models.AlertType     `json:"type"`
	Severity        models.AlertSeverity `json:"severity"`
	Title           string               `json:"title"`
	Description     string               `json:"description,omitempty"`
	District        string               `json:"district,omitempty"`
	Status          models.AlertStatus   `json:"status"`
	Priority        int                  `json:"priority"`
	EscalationLevel int                  `json:"escalationLevel"`
	UrgencyScore    float64              `json:"urgencyScore"`
	Source          models.Source        `json:"source"`
	Actions         []models.Action      `json:"actions"`
	AssignedTeam    []models.TeamMember  `json:"assignedTeam,omitempty"`
	ResolvedAt      *time.Time           `json:"resolvedAt,omitempty"`
	ResolvedBy      string               `json:"resolvedBy,omitempty"`
	ResolutionNotes string               `json:"resolutionNotes,omitempty"`
	ExpiresAt       *time.Time           `json:"expiresAt,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

func toAlertView(a *models.AlertRecord) alertView {
	return alertView{
		ID:              a.ID,
		Type:            a.Type,
		Severity:        a.Severity,
		Title:           a.Title,
		Description:     a.Description,
		District:        a.District,
		Status:          a.Status,
		Priority:        a.Priority,
		EscalationLevel: a.EscalationLevel,
		UrgencyScore:    a.UrgencyScore(time.Now()),
		Source:          a.Source,
		Actions:         a.Actions,
		AssignedTeam:    a.AssignedTeam,
		ResolvedAt:      a.ResolvedAt,
		ResolvedBy:      a.ResolvedBy,
		ResolutionNotes: a.ResolutionNotes,
		ExpiresAt:       a.ExpiresAt,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func toAlertViews(alerts []models.AlertRecord) []alertView {
	views := make([]alertView, len(alerts))
	for i := range alerts {
		views[i] = toAlertView(&alerts[i])
	}
	return views
}
