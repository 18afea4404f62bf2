// Package scope implements the operator confirmation workflow that issues a
// campaign scope policy.
//
// Authorization is deliberately two part: every targeted device must be
// acknowledged individually, and the operator must independently type the
// exact count of acknowledged devices. A hard device-count ceiling applies
// regardless of operator input.
package scope

import (
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"

	"github.com/caretech-ops/fleetsweep/internal/model"
)

var (
	ErrUnknownDevice    = errors.New("device is not a gate candidate")
	ErrUnacknowledged   = errors.New("not every targeted device is acknowledged")
	ErrCountMismatch    = errors.New("typed device count does not match acknowledged devices")
	ErrCountUnconfirmed = errors.New("device count has not been typed")
	ErrCeilingExceeded  = errors.New("device count exceeds the scope ceiling")
	ErrGateConsumed     = errors.New("scope gate already issued a policy")
	ErrSnapshot         = errors.New("error snapshotting verified devices")
)

// PolicyOptions carries the boolean gates stamped onto the issued policy.
type PolicyOptions struct {
	BlockBroadcastCommands   bool
	BlockRegistryWrites      bool
	BlockServiceStops        bool
	EnforceHostnameWhitelist bool
}

// Gate tracks operator acknowledgement for one candidate device set.
//
// A gate is single use: issuing a policy consumes it. Not safe for
// concurrent use, it belongs to one operator interaction.
type Gate struct {
	candidates map[uuid.UUID]*model.Device
	order      []uuid.UUID
	acked      map[uuid.UUID]bool

	typedCount     int
	countConfirmed bool

	ceiling int
	opts    PolicyOptions
	issued  bool

	now func() time.Time
}

// NewGate returns a gate over the candidate devices. ceiling is the hard
// device-count limit, enforced independent of any operator input.
func NewGate(candidates []*model.Device, ceiling int, opts PolicyOptions) *Gate {
	g := &Gate{
		candidates: map[uuid.UUID]*model.Device{},
		acked:      map[uuid.UUID]bool{},
		ceiling:    ceiling,
		opts:       opts,
		now:        time.Now,
	}

	for _, device := range candidates {
		g.candidates[device.ID] = device
		g.order = append(g.order, device.ID)
	}

	return g
}

// Acknowledge marks a single device as individually reviewed. Bulk selection
// is not a substitute - the caller invokes this once per device.
func (g *Gate) Acknowledge(id uuid.UUID) error {
	if _, ok := g.candidates[id]; !ok {
		return errors.Wrap(ErrUnknownDevice, id.String())
	}

	g.acked[id] = true

	return nil
}

// Unacknowledge reverts an acknowledgement.
func (g *Gate) Unacknowledge(id uuid.UUID) {
	delete(g.acked, id)
}

// AcknowledgedCount returns how many devices the operator acknowledged.
func (g *Gate) AcknowledgedCount() int {
	return len(g.acked)
}

// ConfirmCount records the operator-typed device count.
func (g *Gate) ConfirmCount(typed int) {
	g.typedCount = typed
	g.countConfirmed = true
}

// Ready reports whether the gate would issue a policy right now.
func (g *Gate) Ready() bool {
	return g.check() == nil
}

func (g *Gate) check() error {
	if g.issued {
		return ErrGateConsumed
	}

	if len(g.acked) != len(g.candidates) {
		return ErrUnacknowledged
	}

	if !g.countConfirmed {
		return ErrCountUnconfirmed
	}

	if g.typedCount != len(g.acked) {
		return ErrCountMismatch
	}

	if len(g.candidates) > g.ceiling {
		return ErrCeilingExceeded
	}

	return nil
}

// Issue emits the immutable scope policy and deep verified snapshots of the
// candidate devices, marked scopeVerified with the verification timestamp.
// The gate is consumed on success.
func (g *Gate) Issue() (*model.ScopePolicy, []model.Device, error) {
	if err := g.check(); err != nil {
		return nil, nil, err
	}

	verifiedAt := g.now()

	policy := &model.ScopePolicy{
		ID:                       uuid.New(),
		IssuedAt:                 verifiedAt,
		MaxDeviceCount:           g.ceiling,
		BlockBroadcastCommands:   g.opts.BlockBroadcastCommands,
		BlockRegistryWrites:      g.opts.BlockRegistryWrites,
		BlockServiceStops:        g.opts.BlockServiceStops,
		EnforceHostnameWhitelist: g.opts.EnforceHostnameWhitelist,
	}

	snapshots := make([]model.Device, 0, len(g.order))

	for _, id := range g.order {
		candidate := g.candidates[id]

		snapshot := model.Device{}
		if err := copier.CopyWithOption(&snapshot, candidate, copier.Option{DeepCopy: true}); err != nil {
			return nil, nil, errors.Wrap(ErrSnapshot, err.Error())
		}

		snapshot.ScopeVerified = true
		snapshot.ScopeVerifiedAt = verifiedAt

		policy.AllowedHostnames = append(policy.AllowedHostnames, snapshot.Hostname)
		policy.AllowedMACs = append(policy.AllowedMACs, snapshot.MAC)

		snapshots = append(snapshots, snapshot)
	}

	g.issued = true

	return policy, snapshots, nil
}
