package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mr1hm/go-health-alerts/internal/models"
)

type caseReportRequest struct {
	Longitude        *float64 `json:"longitude"`
	Latitude         *float64 `json:"latitude"`
	Severity         string   `json:"severity"`
	SuspectedDisease string   `json:"suspectedDisease"`
	Location         string   `json:"location"`
	AgeGroup         string   `json:"ageGroup"`
	ReportDate       string   `json:"reportDate"` // RFC3339, defaults to now
	EmergencyAlert   bool     `json:"emergencyAlert"`
}

func (h *Handler) createCaseReport(c *gin.Context) {
	var req caseReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Severity == "" || req.SuspectedDisease == "" || req.Location == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "severity, suspectedDisease and location are required"})
		return
	}

	now := time.Now().UTC()
	reportDate := now
	if req.ReportDate != "" {
		t, err := time.Parse(time.RFC3339, req.ReportDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reportDate must be an RFC3339 timestamp"})
			return
		}
		reportDate = t
	}

	record := &models.CaseRecord{
		ID:               "case_" + uuid.NewString(),
		Severity:         models.CaseSeverity(req.Severity),
		SuspectedDisease: req.SuspectedDisease,
		Location:         req.Location,
		AgeGroup:         req.AgeGroup,
		ReportDate:       reportDate,
		EmergencyAlert:   req.EmergencyAlert,
		CreatedAt:        now,
	}
	if req.Longitude != nil && req.Latitude != nil {
		coords := models.Coordinates{Longitude: *req.Longitude, Latitude: *req.Latitude}
		if !coords.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates are outside valid bounds"})
			return
		}
		record.Coordinates = &coords
	}

	if err := h.store.AddCase(c.Request.Context(), record); err != nil {
		abortWithError(c, models.PersistenceError(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": record.ID})
}

type waterReportRequest struct {
	District        string   `json:"district"`
	Location        string   `json:"location"`
	PH              *float64 `json:"ph"`
	Turbidity       *float64 `json:"turbidity"`
	DissolvedOxygen *float64 `json:"dissolvedOxygen"`
	SampledAt       string   `json:"sampledAt"` // RFC3339, defaults to now
}

func (h *Handler) createWaterReport(c *gin.Context) {
	var req waterReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.District == "" || req.PH == nil || req.Turbidity == nil || req.DissolvedOxygen == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "district, ph, turbidity and dissolvedOxygen are required"})
		return
	}

	now := time.Now().UTC()
	sampledAt := now
	if req.SampledAt != "" {
		t, err := time.Parse(time.RFC3339, req.SampledAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sampledAt must be an RFC3339 timestamp"})
			return
		}
		sampledAt = t
	}

	record := &models.WaterQualityRecord{
		ID:              "w_" + uuid.NewString(),
		District:        req.District,
		Location:        req.Location,
		PH:              *req.PH,
		Turbidity:       *req.Turbidity,
		DissolvedOxygen: *req.DissolvedOxygen,
		SampledAt:       sampledAt,
		CreatedAt:       now,
	}

	if err := h.store.AddWaterRecord(c.Request.Context(), record); err != nil {
		abortWithError(c, models.PersistenceError(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": record.ID})
}
