// Package archive aggregates a terminated campaign into a historical
// DeploymentRun record and keeps a bounded run history.
package archive

import (
	"time"

	"github.com/google/uuid"

	"github.com/caretech-ops/fleetsweep/internal/model"
)

// Summarize aggregates the final device list of a terminated campaign.
// Exactly one run per terminated campaign is the caller's responsibility.
func Summarize(campaignID uuid.UUID, devices []model.Device, endTime time.Time) model.DeploymentRun {
	run := model.DeploymentRun{
		ID:                    uuid.New(),
		CampaignID:            campaignID,
		EndTime:               endTime,
		TotalDevices:          len(devices),
		StatusCounts:          map[model.Status]int{},
		ComponentUpdateCounts: map[string]int{},
		FailureReasonCounts:   map[string]int{},
	}

	succeeded := 0

	for idx := range devices {
		device := &devices[idx]

		run.StatusCounts[device.Status]++

		if device.Status == model.StatusSuccess {
			succeeded++
		}

		for _, component := range device.Components {
			if component.UpdateNeeded {
				run.ComponentUpdateCounts[component.Slug]++
			}
		}

		if device.FailureDetail != nil {
			run.FailureReasonCounts[device.FailureDetail.ErrorCode]++
		}
	}

	if run.TotalDevices > 0 {
		run.SuccessRate = float64(succeeded) / float64(run.TotalDevices)
	}

	return run
}
