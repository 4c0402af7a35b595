package models

import "time"

type CaseSeverity string

const (
	CaseSeverityMild     CaseSeverity = "mild"
	CaseSeverityModerate CaseSeverity = "moderate"
	CaseSeveritySevere   CaseSeverity = "severe"
	CaseSeverityCritical CaseSeverity = "critical"
)

// Weight is used when aggregating case severities into a cluster severity.
func (s CaseSeverity) Weight() int {
	switch s {
	case CaseSeverityModerate:
		return 2
	case CaseSeveritySevere:
		return 3
	case CaseSeverityCritical:
		return 4
	default:
		return 1
	}
}

type Coordinates struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// Valid reports whether the pair is inside WGS84 bounds. Records without
// usable coordinates are skipped during clustering rather than rejected.
func (c Coordinates) Valid() bool {
	return c.Longitude >= -180 && c.Longitude <= 180 &&
		c.Latitude >= -90 && c.Latitude <= 90
}

// CaseRecord is a geotagged disease-case report supplied by the record store.
// It is never mutated by the clustering or scanning code.
type CaseRecord struct {
	ID               string
	Coordinates      *Coordinates // nil when the report carried no location fix
	Severity         CaseSeverity
	SuspectedDisease string
	Location         string // free-text location label, e.g. "Ward 4, Majuli"
	AgeGroup         string // reporting bucket, e.g. "25-35"; empty when not supplied
	ReportDate       time.Time
	EmergencyAlert   bool
	CreatedAt        time.Time
}

// WaterQualityRecord is a single water test sample.
type WaterQualityRecord struct {
	ID              string
	District        string
	Location        string
	PH              float64
	Turbidity       float64 // NTU
	DissolvedOxygen float64 // mg/L
	SampledAt       time.Time
	CreatedAt       time.Time
}
