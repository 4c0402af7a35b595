package models

import "time"

// CaseSummary is the trimmed view of a case carried inside a cluster payload.
type CaseSummary struct {
	CaseID           string       `json:"caseId"`
	Severity         CaseSeverity `json:"severity"`
	ReportDate       time.Time    `json:"reportDate"`
	SuspectedDisease string       `json:"suspectedDisease"`
	AgeGroup         string       `json:"ageGroup,omitempty"`
	Coordinates      *Coordinates `json:"coordinates,omitempty"`
	Location         string       `json:"location,omitempty"`
}

// SeverityBreakdown counts cluster members per case severity.
type SeverityBreakdown struct {
	Mild     int `json:"mild"`
	Moderate int `json:"moderate"`
	Severe   int `json:"severe"`
	Critical int `json:"critical"`
}

func (b SeverityBreakdown) Total() int {
	return b.Mild + b.Moderate + b.Severe + b.Critical
}

// Cluster is a proximity group of case reports. Clusters are recomputed on
// every request; IDs are sequence numbers valid only within one result set.
type Cluster struct {
	ID                string            `json:"id"`
	Center            Coordinates       `json:"center"`
	CaseCount         int               `json:"caseCount"`
	Severity          CaseSeverity      `json:"severity"` // mild, moderate or severe
	SeverityBreakdown SeverityBreakdown `json:"severityBreakdown"`
	Radius            int               `json:"radius"` // display hint in map units, 50..500
	Cases             []CaseSummary     `json:"cases"`
	RecentCases       []CaseSummary     `json:"recentCases"` // up to 5, newest first
}

// ClusterUpdates is the incremental feed payload for map polling.
type ClusterUpdates struct {
	HasUpdates      bool      `json:"hasUpdates"`
	NewCases        int       `json:"newCases"`
	UpdatedClusters []Cluster `json:"updatedClusters"`
}
