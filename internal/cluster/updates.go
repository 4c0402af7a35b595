package cluster

import (
	"time"

	"github.com/mr1hm/go-health-alerts/internal/models"
)

// ContextWindow is how far back the caller should pull records to give the
// incremental feed enough clustering context.
const ContextWindow = 30 * 24 * time.Hour

// Updates computes the incremental cluster feed: window is clustered at
// radiusMeters and only clusters containing at least one case from changed
// are returned. changed holds the records created or updated after the
// caller's last poll; window is the broader recent context.
//
// An empty changed set short-circuits without running the clusterer. A zero
// since timestamp is a caller error and is rejected before any computation.
func Updates(since time.Time, changed, window []models.CaseRecord, radiusMeters float64) (*models.ClusterUpdates, error) {
	if since.IsZero() {
		return nil, models.ValidationError("lastUpdate timestamp is required")
	}

	if len(changed) == 0 {
		return &models.ClusterUpdates{
			HasUpdates:      false,
			NewCases:        0,
			UpdatedClusters: []models.Cluster{},
		}, nil
	}

	changedIDs := make(map[string]struct{}, len(changed))
	for _, c := range changed {
		changedIDs[c.ID] = struct{}{}
	}

	updated := []models.Cluster{}
	for _, cl := range Group(window, radiusMeters) {
		for _, cs := range cl.Cases {
			if _, ok := changedIDs[cs.CaseID]; ok {
				updated = append(updated, cl)
				break
			}
		}
	}

	return &models.ClusterUpdates{
		HasUpdates:      true,
		NewCases:        len(changed),
		UpdatedClusters: updated,
	}, nil
}
