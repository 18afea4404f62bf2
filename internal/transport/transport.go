// Package transport defines the narrow interface the orchestrator uses to
// reach endpoint devices. A real network/agent implementation can replace
// the simulated one without touching orchestration logic.
package transport

import (
	"context"

	"github.com/pkg/errors"

	"github.com/caretech-ops/fleetsweep/internal/model"
)

var (
	ErrConnect = errors.New("device connection error")
	ErrQuery   = errors.New("device query error")
	ErrUpdate  = errors.New("device update error")
	ErrReboot  = errors.New("device reboot error")
)

// Queryor defines methods to reach a device during a campaign.
//
// Every method blocks for the duration of the simulated or real exchange and
// honors context cancellation at its wait points.
type Queryor interface {
	// Wake delivers a wake request to the device.
	Wake(ctx context.Context, device model.Device) error

	// Open establishes a management session with the device.
	Open(ctx context.Context, device model.Device) error

	// Close tears the session down, no context so teardown proceeds when the
	// parent context has been cancelled.
	Close(device model.Device) error

	// QueryInventory returns discovered device metadata.
	QueryInventory(ctx context.Context, device model.Device) (*model.Discovered, error)

	// QueryVersion returns the installed version for a component slug.
	QueryVersion(ctx context.Context, device model.Device, slug string) (string, error)

	// ApplyUpdate installs the target version for a component slug.
	ApplyUpdate(ctx context.Context, device model.Device, slug, version string) error

	// Reboot restarts the device.
	Reboot(ctx context.Context, device model.Device) error
}
