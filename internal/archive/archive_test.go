package archive

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caretech-ops/fleetsweep/internal/model"
)

func Test_Summarize(t *testing.T) {
	campaignID := uuid.New()
	endTime := time.Date(2026, 3, 9, 17, 30, 0, 0, time.UTC)

	devices := []model.Device{
		{
			Hostname: "PC01",
			Status:   model.StatusSuccess,
			Components: model.Components{
				{Slug: model.SlugBIOS, UpdateNeeded: true},
				{Slug: model.SlugAgent, UpdateNeeded: true},
			},
		},
		{
			Hostname: "PC02",
			Status:   model.StatusFailed,
			Components: model.Components{
				{Slug: model.SlugBIOS, UpdateNeeded: true},
			},
			FailureDetail: &model.FailureDetail{ErrorCode: model.FailureCodeUpdateBIOS},
		},
		{
			Hostname:      "PC03",
			Status:        model.StatusOffline,
			FailureDetail: &model.FailureDetail{ErrorCode: model.FailureCodeConnectRetriesExhausted},
		},
		{Hostname: "PC04", Status: model.StatusCancelled},
	}

	run := Summarize(campaignID, devices, endTime)

	assert.Equal(t, campaignID, run.CampaignID)
	assert.Equal(t, endTime, run.EndTime)
	assert.Equal(t, 4, run.TotalDevices)
	assert.Equal(t, 0.25, run.SuccessRate)

	assert.Equal(t, 1, run.StatusCounts[model.StatusSuccess])
	assert.Equal(t, 1, run.StatusCounts[model.StatusFailed])
	assert.Equal(t, 1, run.StatusCounts[model.StatusOffline])
	assert.Equal(t, 1, run.StatusCounts[model.StatusCancelled])

	assert.Equal(t, 2, run.ComponentUpdateCounts[model.SlugBIOS])
	assert.Equal(t, 1, run.ComponentUpdateCounts[model.SlugAgent])

	assert.Equal(t, 1, run.FailureReasonCounts[model.FailureCodeUpdateBIOS])
	assert.Equal(t, 1, run.FailureReasonCounts[model.FailureCodeConnectRetriesExhausted])
}

func Test_SummarizeEmpty(t *testing.T) {
	run := Summarize(uuid.New(), nil, time.Now())

	assert.Zero(t, run.TotalDevices)
	assert.Zero(t, run.SuccessRate)
}

func testRun(end time.Time) model.DeploymentRun {
	return model.DeploymentRun{
		ID:           uuid.New(),
		CampaignID:   uuid.New(),
		EndTime:      end,
		TotalDevices: 3,
		SuccessRate:  1,
		StatusCounts: map[model.Status]int{
			model.StatusSuccess: 3,
		},
		ComponentUpdateCounts: map[string]int{model.SlugAgent: 2},
		FailureReasonCounts:   map[string]int{},
	}
}

func Test_StoreRoundTrip(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"), nil)
	require.NoError(t, err)

	run := testRun(time.Now().UTC().Truncate(time.Second))
	require.NoError(t, store.Append(run))

	runs, err := store.List()
	require.NoError(t, err)
	require.Len(t, runs, 1)

	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, run.TotalDevices, runs[0].TotalDevices)
	assert.Equal(t, run.StatusCounts, runs[0].StatusCounts)
	assert.Equal(t, run.ComponentUpdateCounts, runs[0].ComponentUpdateCounts)
}

func Test_StoreBoundedHistory(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"), nil)
	require.NoError(t, err)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < HistoryCap+5; i++ {
		require.NoError(t, store.Append(testRun(base.Add(time.Duration(i)*time.Hour))), fmt.Sprintf("run %d", i))
	}

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(HistoryCap), count)

	runs, err := store.List()
	require.NoError(t, err)
	require.Len(t, runs, HistoryCap)

	// newest first, the oldest five were evicted
	assert.True(t, runs[0].EndTime.Equal(base.Add(time.Duration(HistoryCap+4)*time.Hour)))
	assert.True(t, runs[len(runs)-1].EndTime.Equal(base.Add(5*time.Hour)))
}
