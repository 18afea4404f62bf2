package transport

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/caretech-ops/fleetsweep/internal/model"
)

// SimulatedOpts tune the simulated device transport.
//
// nolint:govet // fieldalignment - struct is better readable in its current form.
type SimulatedOpts struct {
	// MinDelay, MaxDelay bound the randomized wait per exchange.
	MinDelay time.Duration `mapstructure:"min_delay"`
	MaxDelay time.Duration `mapstructure:"max_delay"`

	// ConnectFailureRate is the probability 0..1 that an Open call fails.
	ConnectFailureRate float64 `mapstructure:"connect_failure_rate"`

	// UpdateFailureRate is the probability 0..1 that an ApplyUpdate call fails.
	UpdateFailureRate float64 `mapstructure:"update_failure_rate"`

	// Seed fixes the random source, 0 seeds from the clock.
	Seed int64 `mapstructure:"seed"`

	// InstalledVersions returns the simulated installed version per slug for
	// a device. Nil falls back to defaults derived from the MAC.
	InstalledVersions func(device model.Device, slug string) string `mapstructure:"-"`
}

// Simulated implements Queryor with randomized delays and outcomes, standing
// in for the real wire protocol.
type Simulated struct {
	mu     sync.Mutex
	rng    *rand.Rand
	opts   SimulatedOpts
	logger *logrus.Entry
}

// NewSimulated returns a simulated device transport.
func NewSimulated(opts SimulatedOpts, logger *logrus.Entry) *Simulated {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = opts.MinDelay
	}

	return &Simulated{
		rng:    rand.New(rand.NewSource(seed)), // nolint:gosec // simulation, not crypto
		opts:   opts,
		logger: logger,
	}
}

// wait blocks for a randomized duration or until the context is done.
//
// This is the cooperative suspension point - an exchange in flight is never
// interrupted other than through the context.
func (s *Simulated) wait(ctx context.Context) error {
	s.mu.Lock()
	span := s.opts.MaxDelay - s.opts.MinDelay

	delay := s.opts.MinDelay
	if span > 0 {
		delay += time.Duration(s.rng.Int63n(int64(span)))
	}
	s.mu.Unlock()

	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Simulated) chance(rate float64) bool {
	if rate <= 0 {
		return false
	}

	if rate >= 1 {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rng.Float64() < rate
}

func (s *Simulated) Wake(ctx context.Context, device model.Device) error {
	return s.wait(ctx)
}

func (s *Simulated) Open(ctx context.Context, device model.Device) error {
	if err := s.wait(ctx); err != nil {
		return err
	}

	if s.chance(s.opts.ConnectFailureRate) {
		return errors.Wrap(ErrConnect, "no response from "+device.Hostname)
	}

	return nil
}

func (s *Simulated) Close(device model.Device) error {
	return nil
}

func (s *Simulated) QueryInventory(ctx context.Context, device model.Device) (*model.Discovered, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	// metadata derived from the MAC so repeated scans stay stable
	octet := byte(10)
	if len(device.MAC) == 12 {
		octet = device.MAC[11]
	}

	return &model.Discovered{
		IP:        fmt.Sprintf("10.20.%d.%d", octet%16, 10+octet%200),
		Serial:    "SIM-" + device.MAC,
		Model:     "OptiCare 7080",
		RAMGB:     16,
		DiskGB:    512,
		Encrypted: octet%2 == 0,
	}, nil
}

func (s *Simulated) QueryVersion(ctx context.Context, device model.Device, slug string) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}

	if s.opts.InstalledVersions != nil {
		return s.opts.InstalledVersions(device, slug), nil
	}

	// default installed versions lag behind typical targets
	switch slug {
	case model.SlugBIOS:
		return "1.8.2", nil
	case model.SlugAgent:
		return "4.1.0", nil
	case model.SlugOS:
		return "10.0.19044", nil
	default:
		return "", errors.Wrap(ErrQuery, "unknown component slug: "+slug)
	}
}

func (s *Simulated) ApplyUpdate(ctx context.Context, device model.Device, slug, version string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}

	if s.chance(s.opts.UpdateFailureRate) {
		return errors.Wrap(ErrUpdate, slug+" install did not complete on "+device.Hostname)
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"device":    device.Hostname,
			"component": slug,
			"version":   version,
		}).Debug("simulated update applied")
	}

	return nil
}

func (s *Simulated) Reboot(ctx context.Context, device model.Device) error {
	return s.wait(ctx)
}
