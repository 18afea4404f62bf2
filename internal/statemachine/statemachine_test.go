package statemachine

import (
	"strings"
	"testing"

	sw "github.com/filanov/stateswitch"
	"github.com/stretchr/testify/assert"

	"github.com/caretech-ops/fleetsweep/internal/model"
)

func Test_TransitionGraph(t *testing.T) {
	m := New()

	device := &model.Device{Hostname: "PC01", Status: model.StatusPending}

	// the happy path through scan to scanComplete
	steps := []struct {
		transition sw.TransitionType
		expected   model.Status
	}{
		{TransitionWake, model.StatusWakingUp},
		{TransitionConnect, model.StatusConnecting},
		{TransitionRetry, model.StatusRetrying},
		{TransitionConnect, model.StatusConnecting},
		{TransitionScanInfo, model.StatusScanningInfo},
		{TransitionScanBIOS, model.StatusScanningBIOS},
		{TransitionScanAgent, model.StatusScanningAgent},
		{TransitionScanOS, model.StatusScanningOS},
		{TransitionScanComplete, model.StatusScanComplete},
	}

	for _, step := range steps {
		assert.NoError(t, m.Transition(device, step.transition))
		assert.Equal(t, step.expected, device.Status)
	}
}

func Test_TransitionRejected(t *testing.T) {
	m := New()

	// updating is only reachable from scanComplete
	device := &model.Device{Hostname: "PC01", Status: model.StatusSuccess}

	err := m.Transition(device, TransitionUpdate)
	assert.ErrorIs(t, err, ErrDeviceTransition)
	assert.Equal(t, model.StatusSuccess, device.Status)

	// a pending device may not jump into the scan phase
	device = &model.Device{Hostname: "PC02", Status: model.StatusPending}
	assert.ErrorIs(t, m.Transition(device, TransitionScanInfo), ErrDeviceTransition)
}

func Test_CancelFromAnyNonTerminal(t *testing.T) {
	m := New()

	for _, status := range model.Statuses() {
		device := &model.Device{Hostname: "PC01", Status: status}

		assert.NoError(t, m.Cancel(device), string(status))

		if status.Terminal() {
			// terminal devices are untouched by cancellation
			assert.Equal(t, status, device.Status, string(status))
			continue
		}

		assert.Equal(t, model.StatusCancelled, device.Status, string(status))
	}
}

func Test_Graph(t *testing.T) {
	rendered := Graph().String()

	for _, status := range model.Statuses() {
		assert.True(t, strings.Contains(rendered, string(status)), string(status))
	}
}
