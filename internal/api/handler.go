package api

import (
	"database/sql"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mr1hm/go-health-alerts/internal/cluster"
	"github.com/mr1hm/go-health-alerts/internal/feed"
	"github.com/mr1hm/go-health-alerts/internal/lifecycle"
	"github.com/mr1hm/go-health-alerts/internal/models"
	"github.com/mr1hm/go-health-alerts/internal/repository"
	"github.com/mr1hm/go-health-alerts/internal/scanner"
)

// Store bundles the repositories the handler needs.
type Store interface {
	repository.CaseRepository
	repository.WaterRepository
	repository.AlertRepository
}

type Handler struct {
	store         Store
	scanner       *scanner.Scanner
	lifecycle     *lifecycle.Manager
	broadcaster   *feed.Broadcaster
	defaultRadius float64
}

func NewHandler(store Store, sc *scanner.Scanner, lc *lifecycle.Manager, broadcaster *feed.Broadcaster, defaultRadius float64) *Handler {
	if defaultRadius <= 0 {
		defaultRadius = cluster.DefaultRadiusMeters
	}
	return &Handler{
		store:         store,
		scanner:       sc,
		lifecycle:     lc,
		broadcaster:   broadcaster,
		defaultRadius: defaultRadius,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	r.GET("/api/maps/patient-clusters", h.getPatientClusters)
	r.GET("/api/maps/patient-clusters/geojson", h.getPatientClustersGeoJSON)
	r.GET("/api/maps/cluster-details", h.getClusterDetails)
	r.GET("/api/maps/cluster-updates", h.getClusterUpdates)

	r.POST("/api/reports/cases", h.createCaseReport)
	r.POST("/api/reports/water", h.createWaterReport)

	r.GET("/api/alerts", h.listAlerts)
	r.POST("/api/alerts", h.createAlert)
	r.GET("/api/alerts/statistics", h.getAlertStatistics)
	r.POST("/api/alerts/scan", h.scanThresholds)
	r.GET("/api/alerts/stream", h.streamAlerts)
	r.GET("/api/alerts/:id", h.getAlert)
	r.DELETE("/api/alerts/:id", h.deleteAlert)
	r.POST("/api/alerts/:id/actions", h.addAlertAction)
	r.PUT("/api/alerts/:id/assign-team", h.assignTeam)
	r.PUT("/api/alerts/:id/escalate", h.escalateAlert)
	r.PUT("/api/alerts/:id/resolve", h.resolveAlert)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// abortWithError maps error kinds onto HTTP statuses: validation errors are
// the caller's fault, persistence errors are retryable server failures.
func abortWithError(c *gin.Context, err error) {
	switch models.KindOf(err) {
	case models.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case models.KindComputation:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// --- cluster routes ---

func (h *Handler) caseFilterFromQuery(c *gin.Context) repository.CaseFilter {
	filter := repository.CaseFilter{WithCoordsOnly: true}

	if s := c.Query("startDate"); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			filter.Since = &t
		}
	}
	if s := c.Query("endDate"); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			filter.Until = &t
		}
	}
	if s := c.Query("severity"); s != "" {
		sev := models.CaseSeverity(s)
		filter.Severity = &sev
	}
	if s := c.Query("disease"); s != "" {
		filter.Disease = &s
	}
	if s := c.Query("location"); s != "" {
		filter.Location = &s
	}

	return filter
}

func (h *Handler) radiusFromQuery(c *gin.Context) float64 {
	if s := c.Query("radius"); s != "" {
		if r, err := strconv.ParseFloat(s, 64); err == nil && r > 0 {
			return r
		}
	}
	return h.defaultRadius
}

func (h *Handler) getPatientClusters(c *gin.Context) {
	cases, err := h.store.ListCases(c.Request.Context(), h.caseFilterFromQuery(c))
	if err != nil {
		abortWithError(c, err)
		return
	}

	radius := h.radiusFromQuery(c)
	minCases := 1
	if s := c.Query("minCases"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			minCases = n
		}
	}

	clusters := cluster.FilterMinCases(cluster.Group(cases, radius), minCases)

	c.JSON(http.StatusOK, gin.H{
		"clusters":      clusters,
		"totalCases":    len(cases),
		"totalClusters": len(clusters),
		"parameters": gin.H{
			"radius":   radius,
			"minCases": minCases,
		},
	})
}

func (h *Handler) getPatientClustersGeoJSON(c *gin.Context) {
	cases, err := h.store.ListCases(c.Request.Context(), h.caseFilterFromQuery(c))
	if err != nil {
		abortWithError(c, err)
		return
	}

	clusters := cluster.Group(cases, h.radiusFromQuery(c))

	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, toGeoJSON(clusters))
}

func (h *Handler) getClusterDetails(c *gin.Context) {
	latStr := c.Query("centerLat")
	lonStr := c.Query("centerLon")
	if latStr == "" || lonStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "center coordinates (centerLat, centerLon) are required"})
		return
	}
	lat, latErr := strconv.ParseFloat(latStr, 64)
	lon, lonErr := strconv.ParseFloat(lonStr, 64)
	if latErr != nil || lonErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "center coordinates must be numeric"})
		return
	}

	filter := h.caseFilterFromQuery(c)
	cases, err := h.store.ListCases(c.Request.Context(), filter)
	if err != nil {
		abortWithError(c, err)
		return
	}

	details, err := cluster.Detail(cases, models.Coordinates{Longitude: lon, Latitude: lat}, h.radiusFromQuery(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if details.TotalCases == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no cases found in the specified cluster area"})
		return
	}

	c.JSON(http.StatusOK, details)
}

func (h *Handler) getClusterUpdates(c *gin.Context) {
	sinceStr := c.Query("since")
	if sinceStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "since timestamp is required"})
		return
	}
	since, err := time.Parse(time.RFC3339, sinceStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "since must be an RFC3339 timestamp"})
		return
	}

	ctx := c.Request.Context()

	changed, err := h.store.ListCases(ctx, repository.CaseFilter{WithCoordsOnly: true, UpdatedAfter: &since})
	if err != nil {
		abortWithError(c, err)
		return
	}

	windowStart := time.Now().Add(-cluster.ContextWindow)
	window, err := h.store.ListCases(ctx, repository.CaseFilter{WithCoordsOnly: true, Since: &windowStart})
	if err != nil {
		abortWithError(c, err)
		return
	}

	updates, err := cluster.Updates(since, changed, window, h.radiusFromQuery(c))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, updates)
}

// --- alert routes ---

func (h *Handler) listAlerts(c *gin.Context) {
	filter := repository.AlertFilter{Limit: 20}

	if s := c.Query("type"); s != "" {
		t := models.AlertType(s)
		filter.Type = &t
	}
	if s := c.Query("severity"); s != "" {
		sev := models.AlertSeverity(s)
		filter.Severity = &sev
	}
	if s := c.Query("status"); s != "" {
		st := models.AlertStatus(s)
		filter.Status = &st
	}
	if s := c.Query("district"); s != "" {
		filter.District = &s
	}
	if s := c.Query("startDate"); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			filter.Since = &t
		}
	}
	if s := c.Query("endDate"); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			filter.Until = &t
		}
	}
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 500 {
			filter.Limit = n
		}
	}

	alerts, err := h.store.ListAlerts(c.Request.Context(), filter)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"alerts": toAlertViews(alerts)})
}

type createAlertRequest struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Title       string `json:"title"`
	Description string `json:"description"`
	District    string `json:"district"`
	Priority    int    `json:"priority"`
	TriggeredBy string `json:"triggeredBy"`
}

func (h *Handler) createAlert(c *gin.Context) {
	var req createAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	triggeredBy := req.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = "System Administrator"
	}

	a, err := h.lifecycle.Create(c.Request.Context(), lifecycle.NewAlertParams{
		Type:        models.AlertType(req.Type),
		Severity:    models.AlertSeverity(req.Severity),
		Title:       req.Title,
		Description: req.Description,
		District:    req.District,
		Priority:    req.Priority,
		Source: models.Source{
			Type:        models.SourceManual,
			TriggeredBy: triggeredBy,
		},
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	if h.broadcaster != nil {
		h.broadcaster.Broadcast(a)
	}

	c.JSON(http.StatusCreated, toAlertView(a))
}

func (h *Handler) getAlert(c *gin.Context) {
	a, err := h.store.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	c.JSON(http.StatusOK, toAlertView(a))
}

func (h *Handler) deleteAlert(c *gin.Context) {
	err := h.store.DeleteByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "alert deleted"})
}

// loadAlert fetches the alert or writes the 404 itself.
func (h *Handler) loadAlert(c *gin.Context) *models.AlertRecord {
	a, err := h.store.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return nil
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return nil
	}
	return a
}

type actionRequest struct {
	Action      string `json:"action"`
	PerformedBy string `json:"performedBy"`
	Role        string `json:"role"`
	Notes       string `json:"notes"`
}

func (h *Handler) addAlertAction(c *gin.Context) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	a := h.loadAlert(c)
	if a == nil {
		return
	}

	if err := h.lifecycle.AddAction(c.Request.Context(), a, models.ActionKind(req.Action), req.PerformedBy, req.Role, req.Notes); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAlertView(a))
}

type assignTeamRequest struct {
	Members []struct {
		Name    string `json:"name"`
		Role    string `json:"role"`
		Contact string `json:"contact"`
	} `json:"members"`
	AssignedBy string `json:"assignedBy"`
}

func (h *Handler) assignTeam(c *gin.Context) {
	var req assignTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	a := h.loadAlert(c)
	if a == nil {
		return
	}

	members := make([]models.TeamMember, len(req.Members))
	for i, m := range req.Members {
		members[i] = models.TeamMember{Name: m.Name, Role: m.Role, Contact: m.Contact}
	}

	if err := h.lifecycle.AssignTeam(c.Request.Context(), a, members, req.AssignedBy); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAlertView(a))
}

type escalateRequest struct {
	PerformedBy string `json:"performedBy"`
	Reason      string `json:"reason"`
}

func (h *Handler) escalateAlert(c *gin.Context) {
	var req escalateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	a := h.loadAlert(c)
	if a == nil {
		return
	}

	if err := h.lifecycle.Escalate(c.Request.Context(), a, req.PerformedBy, req.Reason); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAlertView(a))
}

type resolveRequest struct {
	ResolvedBy      string `json:"resolvedBy"`
	ResolutionNotes string `json:"resolutionNotes"`
}

func (h *Handler) resolveAlert(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	a := h.loadAlert(c)
	if a == nil {
		return
	}

	if err := h.lifecycle.Resolve(c.Request.Context(), a, req.ResolvedBy, req.ResolutionNotes); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAlertView(a))
}

// scanThresholds runs both detectors on demand and commits the survivors.
func (h *Handler) scanThresholds(c *gin.Context) {
	ctx := c.Request.Context()

	waterSince := time.Now().Add(-scanner.WaterWindow)
	water, err := h.store.ListWaterRecords(ctx, repository.WaterFilter{Since: &waterSince})
	if err != nil {
		abortWithError(c, err)
		return
	}

	caseSince := time.Now().Add(-scanner.HealthWindow)
	cases, err := h.store.ListCases(ctx, repository.CaseFilter{Since: &caseSince})
	if err != nil {
		abortWithError(c, err)
		return
	}

	result, err := h.scanner.Scan(ctx, water, cases)
	if err != nil {
		abortWithError(c, err)
		return
	}

	created := []*models.AlertRecord{}
	for _, a := range result.Created {
		ok, err := h.scanner.Commit(ctx, a)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if ok {
			created = append(created, a)
			if h.broadcaster != nil {
				h.broadcaster.Broadcast(a)
			}
		}
	}

	views := make([]alertView, len(created))
	for i, a := range created {
		views[i] = toAlertView(a)
	}
	c.JSON(http.StatusOK, gin.H{
		"generatedAlerts": views,
		"count":           len(created),
	})
}

func (h *Handler) getAlertStatistics(c *gin.Context) {
	var since, until *time.Time
	if s := c.Query("startDate"); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			since = &t
		}
	}
	if s := c.Query("endDate"); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			until = &t
		}
	}

	stats, err := h.store.Stats(c.Request.Context(), since, until)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// streamAlerts pushes newly created alerts over SSE until the client
// disconnects or the broadcaster shuts down.
func (h *Handler) streamAlerts(c *gin.Context) {
	if h.broadcaster == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alert stream not available"})
		return
	}

	id, ch := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(id)

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case a, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("alert", toAlertView(a))
			return true
		}
	})
}
