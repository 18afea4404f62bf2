// Package statemachine defines the per-device status graph for a campaign
// and the transition rules devices move along.
package statemachine

import (
	"fmt"

	sw "github.com/filanov/stateswitch"
	"github.com/pkg/errors"

	"github.com/caretech-ops/fleetsweep/internal/model"
)

// Transition types for the device status graph.
const (
	TransitionWake         sw.TransitionType = "wake"
	TransitionConnect      sw.TransitionType = "connect"
	TransitionRetry        sw.TransitionType = "retry"
	TransitionOffline      sw.TransitionType = "offline"
	TransitionScanInfo     sw.TransitionType = "scanInfo"
	TransitionScanBIOS     sw.TransitionType = "scanBIOS"
	TransitionScanAgent    sw.TransitionType = "scanAgent"
	TransitionScanOS       sw.TransitionType = "scanOS"
	TransitionScanComplete sw.TransitionType = "scanComplete"
	TransitionCompliant    sw.TransitionType = "compliant"
	TransitionUpdate       sw.TransitionType = "update"
	TransitionUpdateFailed sw.TransitionType = "updateFailed"
	TransitionUpdateDone   sw.TransitionType = "updateDone"
	TransitionAwaitReboot  sw.TransitionType = "awaitReboot"
	TransitionReboot       sw.TransitionType = "reboot"
	TransitionRebootDone   sw.TransitionType = "rebootDone"
	TransitionRebootFailed sw.TransitionType = "rebootFailed"
	TransitionCancel       sw.TransitionType = "cancel"
)

// ErrDeviceTransition is returned when a device transition is not allowed
// from its current status.
var ErrDeviceTransition = errors.New("error in device state transition")

// deviceSwitch adapts a model.Device to the stateswitch interface.
type deviceSwitch struct {
	device *model.Device
}

func (d deviceSwitch) State() sw.State {
	return sw.State(d.device.Status)
}

func (d deviceSwitch) SetState(state sw.State) error {
	d.device.Status = model.Status(state)
	return nil
}

// Machine drives device status transitions along the defined graph.
type Machine struct {
	sm sw.StateMachine
}

func state(s model.Status) sw.State { return sw.State(s) }

// New returns a state machine with the campaign device status graph loaded.
func New() *Machine {
	m := &Machine{sm: sw.NewStateMachine()}

	rules := []sw.TransitionRule{
		{
			TransitionType:   TransitionWake,
			SourceStates:     sw.States{state(model.StatusPending)},
			DestinationState: state(model.StatusWakingUp),
		},
		{
			TransitionType:   TransitionConnect,
			SourceStates:     sw.States{state(model.StatusWakingUp), state(model.StatusRetrying)},
			DestinationState: state(model.StatusConnecting),
		},
		{
			TransitionType:   TransitionRetry,
			SourceStates:     sw.States{state(model.StatusConnecting)},
			DestinationState: state(model.StatusRetrying),
		},
		{
			TransitionType:   TransitionOffline,
			SourceStates:     sw.States{state(model.StatusConnecting), state(model.StatusRetrying)},
			DestinationState: state(model.StatusOffline),
		},
		{
			TransitionType:   TransitionScanInfo,
			SourceStates:     sw.States{state(model.StatusConnecting)},
			DestinationState: state(model.StatusScanningInfo),
		},
		{
			TransitionType:   TransitionScanBIOS,
			SourceStates:     sw.States{state(model.StatusScanningInfo)},
			DestinationState: state(model.StatusScanningBIOS),
		},
		{
			TransitionType:   TransitionScanAgent,
			SourceStates:     sw.States{state(model.StatusScanningBIOS)},
			DestinationState: state(model.StatusScanningAgent),
		},
		{
			TransitionType:   TransitionScanOS,
			SourceStates:     sw.States{state(model.StatusScanningAgent)},
			DestinationState: state(model.StatusScanningOS),
		},
		{
			TransitionType:   TransitionScanComplete,
			SourceStates:     sw.States{state(model.StatusScanningOS)},
			DestinationState: state(model.StatusScanComplete),
		},
		{
			// a device with zero required updates skips the update phase entirely
			TransitionType:   TransitionCompliant,
			SourceStates:     sw.States{state(model.StatusScanningOS)},
			DestinationState: state(model.StatusSuccess),
		},
		{
			// update eligibility is asymmetric - only scanComplete devices may
			// be updated, a success device requires a new campaign.
			TransitionType:   TransitionUpdate,
			SourceStates:     sw.States{state(model.StatusScanComplete)},
			DestinationState: state(model.StatusUpdating),
		},
		{
			TransitionType:   TransitionUpdateFailed,
			SourceStates:     sw.States{state(model.StatusUpdating)},
			DestinationState: state(model.StatusFailed),
		},
		{
			TransitionType:   TransitionUpdateDone,
			SourceStates:     sw.States{state(model.StatusUpdating)},
			DestinationState: state(model.StatusSuccess),
		},
		{
			TransitionType:   TransitionAwaitReboot,
			SourceStates:     sw.States{state(model.StatusUpdating)},
			DestinationState: state(model.StatusPendingReboot),
		},
		{
			TransitionType:   TransitionReboot,
			SourceStates:     sw.States{state(model.StatusUpdating), state(model.StatusPendingReboot)},
			DestinationState: state(model.StatusRebooting),
		},
		{
			TransitionType:   TransitionRebootDone,
			SourceStates:     sw.States{state(model.StatusRebooting)},
			DestinationState: state(model.StatusSuccess),
		},
		{
			TransitionType:   TransitionRebootFailed,
			SourceStates:     sw.States{state(model.StatusRebooting)},
			DestinationState: state(model.StatusFailed),
		},
		{
			TransitionType:   TransitionCancel,
			SourceStates:     nonTerminalStates(),
			DestinationState: state(model.StatusCancelled),
		},
	}

	for _, rule := range rules {
		m.sm.AddTransition(rule)
	}

	return m
}

// nonTerminalStates returns every state cancellation may be issued from.
func nonTerminalStates() sw.States {
	states := sw.States{}

	for _, status := range model.Statuses() {
		if status.Terminal() {
			continue
		}

		states = append(states, state(status))
	}

	return states
}

// Transition moves the device along the graph, returning a wrapped
// ErrDeviceTransition when the move is not allowed from the current status.
func (m *Machine) Transition(device *model.Device, transition sw.TransitionType) error {
	if err := m.sm.Run(transition, deviceSwitch{device: device}, nil); err != nil {
		return errors.Wrap(
			ErrDeviceTransition,
			fmt.Sprintf("transition '%s' from status '%s' on device '%s': %s",
				transition, device.Status, device.Hostname, err.Error()),
		)
	}

	return nil
}

// Cancel transitions the device to cancelled unless it is already terminal.
// Already terminal devices are untouched.
func (m *Machine) Cancel(device *model.Device) error {
	if device.Status.Terminal() {
		return nil
	}

	return m.Transition(device, TransitionCancel)
}
