package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caretech-ops/fleetsweep/internal/model"
)

func testDevice() model.Device {
	return model.Device{Hostname: "PC01", MAC: "AABBCCDDEEFF"}
}

func Test_SimulatedOpenFailureRate(t *testing.T) {
	sim := NewSimulated(SimulatedOpts{ConnectFailureRate: 1, Seed: 1}, nil)
	assert.ErrorIs(t, sim.Open(context.Background(), testDevice()), ErrConnect)

	sim = NewSimulated(SimulatedOpts{ConnectFailureRate: 0, Seed: 1}, nil)
	assert.NoError(t, sim.Open(context.Background(), testDevice()))
}

func Test_SimulatedHonorsCancellation(t *testing.T) {
	sim := NewSimulated(SimulatedOpts{MinDelay: time.Minute, MaxDelay: time.Minute, Seed: 1}, nil)

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- sim.Open(ctx, testDevice())
	}()

	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("simulated transport did not honor cancellation")
	}
}

func Test_SimulatedInventoryStable(t *testing.T) {
	sim := NewSimulated(SimulatedOpts{Seed: 42}, nil)

	first, err := sim.QueryInventory(context.Background(), testDevice())
	require.NoError(t, err)

	second, err := sim.QueryInventory(context.Background(), testDevice())
	require.NoError(t, err)

	// repeated scans of the same device return the same metadata
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first.IP)
	assert.NotEmpty(t, first.Serial)
}

func Test_SimulatedQueryVersionOverride(t *testing.T) {
	sim := NewSimulated(SimulatedOpts{
		Seed: 7,
		InstalledVersions: func(_ model.Device, slug string) string {
			return "v-" + slug
		},
	}, nil)

	got, err := sim.QueryVersion(context.Background(), testDevice(), model.SlugAgent)
	require.NoError(t, err)
	assert.Equal(t, "v-agent", got)
}
