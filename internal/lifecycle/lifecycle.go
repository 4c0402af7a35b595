// Package lifecycle governs AlertRecord state: creation-time derivation of
// priority and escalation, status transitions, team assignment and the
// append-only action history. Every mutation is validated first, applied to
// the in-memory record, then persisted, so a rejected call never leaves a
// half-applied alert behind.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mr1hm/go-health-alerts/internal/models"
	"github.com/mr1hm/go-health-alerts/internal/repository"
)

const (
	maxEscalationLevel = 5
	maxPriority        = 10
	escalatePriorityBy = 2
	lowSeverityTTL     = 30 * 24 * time.Hour
)

// transitionKey pairs an alert status with an incoming action kind.
type transitionKey struct {
	from   models.AlertStatus
	action models.ActionKind
}

// transitions is the explicit status machine. Actions absent from the table
// are recorded in the history without changing status.
var transitions = map[transitionKey]models.AlertStatus{
	{models.AlertStatusActive, models.ActionAcknowledged}:       models.AlertStatusAcknowledged,
	{models.AlertStatusAcknowledged, models.ActionInvestigated}: models.AlertStatusInvestigating,
	{models.AlertStatusActive, models.ActionResolved}:           models.AlertStatusResolved,
	{models.AlertStatusAcknowledged, models.ActionResolved}:     models.AlertStatusResolved,
	{models.AlertStatusInvestigating, models.ActionResolved}:    models.AlertStatusResolved,
	{models.AlertStatusActive, models.ActionFalseAlarm}:         models.AlertStatusFalseAlarm,
}

// Manager applies lifecycle operations and persists the result.
type Manager struct {
	store repository.AlertRepository
	now   func() time.Time
}

func NewManager(store repository.AlertRepository) *Manager {
	return &Manager{store: store, now: time.Now}
}

// NewAlertParams carries caller-supplied fields for alert creation. Priority
// zero means "derive from severity".
type NewAlertParams struct {
	Type        models.AlertType
	Severity    models.AlertSeverity
	Title       string
	Description string
	District    string
	Source      models.Source
	Priority    int
}

// NewAlert builds an AlertRecord with the creation-time derivations applied:
// priority from the severity map unless given, escalation level 1 for
// critical alerts, a 30-day expiry for low-severity ones. The record is not
// persisted; callers save it through Create or the scanner pipeline.
func NewAlert(p NewAlertParams, now time.Time) (*models.AlertRecord, error) {
	if p.Type == "" || p.Severity == "" || p.Title == "" || p.Description == "" {
		return nil, models.ValidationError("type, severity, title and description are required")
	}
	if p.Priority < 0 || p.Priority > maxPriority {
		return nil, models.ValidationError("priority must be between 1 and %d", maxPriority)
	}

	a := &models.AlertRecord{
		ID:          "al_" + uuid.NewString(),
		Type:        p.Type,
		Severity:    p.Severity,
		Title:       p.Title,
		Description: p.Description,
		District:    p.District,
		Status:      models.AlertStatusActive,
		Priority:    p.Priority,
		Source:      p.Source,
		Actions:     []models.Action{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if a.Priority == 0 {
		a.Priority = p.Severity.BasePriority()
	}
	if p.Severity == models.AlertSeverityCritical {
		a.EscalationLevel = 1
	}
	if p.Severity == models.AlertSeverityLow {
		exp := now.Add(lowSeverityTTL)
		a.ExpiresAt = &exp
	}

	return a, nil
}

// Create builds and persists a new alert.
func (m *Manager) Create(ctx context.Context, p NewAlertParams) (*models.AlertRecord, error) {
	a, err := NewAlert(p, m.now())
	if err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, a); err != nil {
		return nil, models.PersistenceError(err)
	}
	return a, nil
}

// AddAction appends an audit entry and applies any status transition the
// table defines for (current status, action kind). A resolved action must
// carry notes; the transition stamps resolvedAt and resolvedBy from the
// action.
func (m *Manager) AddAction(ctx context.Context, a *models.AlertRecord, kind models.ActionKind, performedBy, role, notes string) error {
	if kind == "" || performedBy == "" {
		return models.ValidationError("action and performedBy are required")
	}
	if kind == models.ActionResolved && notes == "" {
		return models.ValidationError("resolution notes are required when resolving an alert")
	}
	if a.Status.Terminal() && kind != models.ActionMonitoring && kind != models.ActionOther {
		return models.ValidationError("alert %s is %s and cannot transition", a.ID, a.Status)
	}

	now := m.now()
	a.Actions = append(a.Actions, models.Action{
		Action:      kind,
		PerformedBy: performedBy,
		Role:        role,
		Timestamp:   now,
		Notes:       notes,
	})

	if next, ok := transitions[transitionKey{a.Status, kind}]; ok {
		a.Status = next
		if next == models.AlertStatusResolved {
			a.ResolvedAt = &now
			a.ResolvedBy = performedBy
			if a.ResolutionNotes == "" {
				a.ResolutionNotes = notes
			}
		}
	}
	a.UpdatedAt = now

	if err := m.store.Save(ctx, a); err != nil {
		return models.PersistenceError(err)
	}
	return nil
}

// AssignTeam replaces the assigned team wholesale, stamping each member's
// assignedAt. The team_assigned action is attributed to "system" unless
// assignedBy names the operator.
func (m *Manager) AssignTeam(ctx context.Context, a *models.AlertRecord, members []models.TeamMember, assignedBy string) error {
	if len(members) == 0 {
		return models.ValidationError("at least one team member is required")
	}

	now := m.now()
	names := ""
	team := make([]models.TeamMember, len(members))
	for i, member := range members {
		if member.Name == "" {
			return models.ValidationError("team member name is required")
		}
		member.AssignedAt = now
		team[i] = member
		if i > 0 {
			names += ", "
		}
		names += member.Name
	}

	performer := assignedBy
	if performer == "" {
		performer = "system"
	}

	a.AssignedTeam = team
	a.Actions = append(a.Actions, models.Action{
		Action:      models.ActionTeamAssigned,
		PerformedBy: performer,
		Timestamp:   now,
		Notes:       "Team assigned: " + names,
	})
	a.UpdatedAt = now

	if err := m.store.Save(ctx, a); err != nil {
		return models.PersistenceError(err)
	}
	return nil
}

// Escalate raises the escalation level (capped at 5) and priority (capped at
// 10, +2 per call). Both performedBy and reason are mandatory.
func (m *Manager) Escalate(ctx context.Context, a *models.AlertRecord, performedBy, reason string) error {
	if performedBy == "" || reason == "" {
		return models.ValidationError("performedBy and reason are required")
	}
	if a.Status.Terminal() {
		return models.ValidationError("alert %s is %s and cannot be escalated", a.ID, a.Status)
	}

	if a.EscalationLevel < maxEscalationLevel {
		a.EscalationLevel++
	}
	a.Priority += escalatePriorityBy
	if a.Priority > maxPriority {
		a.Priority = maxPriority
	}

	now := m.now()
	a.Actions = append(a.Actions, models.Action{
		Action:      models.ActionEscalated,
		PerformedBy: performedBy,
		Timestamp:   now,
		Notes:       fmt.Sprintf("Escalated to level %d. Reason: %s", a.EscalationLevel, reason),
	})
	a.UpdatedAt = now

	if err := m.store.Save(ctx, a); err != nil {
		return models.PersistenceError(err)
	}
	return nil
}

// Resolve closes the alert. Resolution notes are mandatory; a rejection
// leaves the record untouched.
func (m *Manager) Resolve(ctx context.Context, a *models.AlertRecord, resolvedBy, resolutionNotes string) error {
	if resolvedBy == "" {
		return models.ValidationError("resolvedBy is required")
	}
	if resolutionNotes == "" {
		return models.ValidationError("resolution notes are required when resolving an alert")
	}
	if a.Status.Terminal() {
		return models.ValidationError("alert %s is already %s", a.ID, a.Status)
	}

	now := m.now()
	a.Status = models.AlertStatusResolved
	a.ResolvedAt = &now
	a.ResolvedBy = resolvedBy
	a.ResolutionNotes = resolutionNotes
	a.Actions = append(a.Actions, models.Action{
		Action:      models.ActionResolved,
		PerformedBy: resolvedBy,
		Timestamp:   now,
		Notes:       resolutionNotes,
	})
	a.UpdatedAt = now

	if err := m.store.Save(ctx, a); err != nil {
		return models.PersistenceError(err)
	}
	return nil
}
