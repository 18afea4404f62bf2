package model

import (
	"time"

	"github.com/google/uuid"
)

// DeploymentRun is the historical record aggregated from a terminated
// campaign. Exactly one run is produced per campaign that completed, was
// cancelled or aborted fatally.
//
// nolint:govet // fieldalignment - struct is better readable in its current form.
type DeploymentRun struct {
	ID         uuid.UUID `json:"id"`
	CampaignID uuid.UUID `json:"campaign_id"`
	EndTime    time.Time `json:"end_time"`

	TotalDevices int `json:"total_devices"`

	// StatusCounts buckets the final device list by terminal status.
	StatusCounts map[Status]int `json:"status_counts"`

	// ComponentUpdateCounts is the count of devices that required an update
	// per component slug.
	ComponentUpdateCounts map[string]int `json:"component_update_counts"`

	// FailureReasonCounts buckets failed devices by failure code.
	FailureReasonCounts map[string]int `json:"failure_reason_counts"`

	// SuccessRate is successful devices over total, 0..1.
	SuccessRate float64 `json:"success_rate"`
}
