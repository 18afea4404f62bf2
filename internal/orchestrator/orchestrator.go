// Package orchestrator drives a deployment campaign end to end: waking,
// connecting, scanning and updating the device fleet while holding every
// safety precondition - script gate, scope policy, session authorization.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jinzhu/copier"
	"github.com/jpillora/backoff"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/google/uuid"

	"github.com/caretech-ops/fleetsweep/internal/archive"
	"github.com/caretech-ops/fleetsweep/internal/metrics"
	"github.com/caretech-ops/fleetsweep/internal/model"
	"github.com/caretech-ops/fleetsweep/internal/notify"
	"github.com/caretech-ops/fleetsweep/internal/session"
	"github.com/caretech-ops/fleetsweep/internal/statemachine"
	"github.com/caretech-ops/fleetsweep/internal/transport"

	sw "github.com/filanov/stateswitch"
)

var (
	ErrScriptUnsafe    = errors.New("script safety gate not passed")
	ErrNoScopePolicy   = errors.New("no scope policy issued for this campaign")
	ErrDeviceNotFound  = errors.New("device is not part of this campaign")
	ErrNotUpdatable    = errors.New("device is not eligible for update")
	ErrScopeRejected   = errors.New("device rejected by the scope whitelist")
	ErrComponentUpdate = errors.New("component update failed")
	ErrCancelled       = errors.New("campaign cancelled")
	ErrNotAuthorized   = errors.New("action not authorized")
)

// DefaultBulkConcurrency bounds simultaneous device updates in a bulk run.
const DefaultBulkConcurrency = 5

// Campaign termination states recorded on the duration metric.
const (
	campaignCompleted = "completed"
	campaignCancelled = "cancelled"
)

// Authorizer gates each privileged campaign action; session.Manager is the
// production implementation.
type Authorizer interface {
	Authorize(action session.PrivilegedAction, typedConfirmation string) error
}

// Archiver persists the single run record a terminated campaign produces.
type Archiver interface {
	Append(run model.DeploymentRun) error
}

// Config carries the verified inputs a campaign starts from. Policy and
// Safety must come from the scope gate and the script analyzer - the
// campaign refuses to run without them.
type Config struct {
	Settings model.DeploymentSettings
	Targets  model.TargetVersions
	Policy   *model.ScopePolicy
	Safety   *model.ScriptSafetyResult

	// BulkConcurrency limits simultaneous device updates, 0 uses the default.
	BulkConcurrency int
}

// Deps are the collaborators a campaign drives.
type Deps struct {
	Queryor  transport.Queryor
	Auth     Authorizer
	Archiver Archiver
	Notifier notify.Notifier
	Logger   *logrus.Entry
}

// Campaign owns the device list for one deployment run. Device state only
// moves along the status graph; readers always receive deep copies.
type Campaign struct {
	ID uuid.UUID

	cfg  Config
	deps Deps

	mu      sync.RWMutex
	devices []model.Device

	machine *statemachine.Machine
	journal *Journal

	start time.Time

	cancelCh   chan struct{}
	cancelOnce sync.Once

	// archiveOnce guarantees exactly one run record per terminated campaign.
	archiveOnce sync.Once
}

// New assembles a campaign over the scope-verified device list.
func New(cfg Config, devices []model.Device, deps Deps) (*Campaign, error) {
	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}

	if deps.Queryor == nil || deps.Auth == nil {
		return nil, errors.New("campaign requires a transport and an authorizer")
	}

	if deps.Notifier == nil {
		deps.Notifier = notify.Discard{}
	}

	c := &Campaign{
		ID:       uuid.New(),
		cfg:      cfg,
		deps:     deps,
		machine:  statemachine.New(),
		journal:  NewJournal(deps.Logger),
		cancelCh: make(chan struct{}),
	}

	c.devices = make([]model.Device, len(devices))
	if err := copier.CopyWithOption(&c.devices, &devices, copier.Option{DeepCopy: true}); err != nil {
		return nil, errors.Wrap(err, "copying campaign device list")
	}

	return c, nil
}

// Journal returns the campaign log.
func (c *Campaign) Journal() *Journal { return c.journal }

// Devices returns a deep copy of the current device list.
func (c *Campaign) Devices() []model.Device {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Device, len(c.devices))
	// an error here means a device held an uncopyable field, which the model does not
	_ = copier.CopyWithOption(&out, &c.devices, copier.Option{DeepCopy: true})

	return out
}

// Device returns a deep copy of one device.
func (c *Campaign) Device(id uuid.UUID) (model.Device, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for idx := range c.devices {
		if c.devices[idx].ID == id {
			var out model.Device

			_ = copier.CopyWithOption(&out, &c.devices[idx], copier.Option{DeepCopy: true})

			return out, nil
		}
	}

	return model.Device{}, errors.Wrap(ErrDeviceNotFound, id.String())
}

// Cancel requests cooperative campaign cancellation. In-flight transport
// waits return at their next suspension point; devices already terminal
// keep their status.
func (c *Campaign) Cancel() {
	c.cancelOnce.Do(func() {
		c.journal.Warn("campaign cancellation requested")
		close(c.cancelCh)
	})
}

// Cancelled reports whether cancellation was requested.
func (c *Campaign) Cancelled() bool {
	select {
	case <-c.cancelCh:
		return true
	default:
		return false
	}
}

// Run executes the scan phase sequentially over every device. It refuses to
// start unless the script passed the safety gate and a scope policy was
// issued - checked before any device is touched.
func (c *Campaign) Run(ctx context.Context, typedConfirmation string) error {
	if err := c.deps.Auth.Authorize(session.ActionRunScan, typedConfirmation); err != nil {
		return errors.Wrap(ErrNotAuthorized, err.Error())
	}

	if c.cfg.Safety == nil || !c.cfg.Safety.Safe {
		return errors.Wrap(ErrScriptUnsafe, "campaign start rejected")
	}

	if c.cfg.Policy == nil {
		return errors.Wrap(ErrNoScopePolicy, "campaign start rejected")
	}

	c.start = time.Now()

	ctx, stop := c.watch(ctx)
	defer stop()

	ids := c.deviceIDs()

	c.journal.Info(fmt.Sprintf("scan phase started for %d devices", len(ids)))

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}

		c.processDevice(ctx, id)
	}

	if ctx.Err() != nil {
		c.finalize(campaignCancelled)

		return errors.Wrap(ErrCancelled, "scan phase interrupted")
	}

	if c.allTerminal() {
		c.finalize(campaignCompleted)

		return nil
	}

	c.journal.Info("scan phase complete, devices with pending updates await operator action")

	return nil
}

// UpdateDevice applies all needed component updates to one scanned device.
func (c *Campaign) UpdateDevice(ctx context.Context, id uuid.UUID, typedConfirmation string) error {
	if err := c.deps.Auth.Authorize(session.ActionUpdate, typedConfirmation); err != nil {
		return errors.Wrap(ErrNotAuthorized, err.Error())
	}

	ctx, stop := c.watch(ctx)
	defer stop()

	err := c.update(ctx, id)

	c.maybeComplete()

	return err
}

// BulkUpdate runs updates over the given devices with bounded concurrency.
// Authorization is checked once at entry; per-device failures are recorded
// on the devices and aggregated into the returned error.
func (c *Campaign) BulkUpdate(ctx context.Context, ids []uuid.UUID, typedConfirmation string) error {
	if err := c.deps.Auth.Authorize(session.ActionBulkUpdate, typedConfirmation); err != nil {
		return errors.Wrap(ErrNotAuthorized, err.Error())
	}

	ctx, stop := c.watch(ctx)
	defer stop()

	concurrency := c.cfg.BulkConcurrency
	if concurrency <= 0 {
		concurrency = DefaultBulkConcurrency
	}

	c.journal.Info(fmt.Sprintf("bulk update started for %d devices, concurrency %d", len(ids), concurrency))

	limiter := NewLimiter(concurrency)

	var (
		errMu      sync.Mutex
		collected  *multierror.Error
		dispatched int
	)

dispatchLoop:
	for _, id := range ids {
		id := id

		task := func() {
			if err := c.update(ctx, id); err != nil {
				errMu.Lock()
				collected = multierror.Append(collected, err)
				errMu.Unlock()
			}
		}

		for {
			if ctx.Err() != nil {
				break dispatchLoop
			}

			err := limiter.Dispatch(task)
			if err == nil {
				dispatched++
				break
			}

			if !errors.Is(err, ErrLimiterConcurrency) {
				errMu.Lock()
				collected = multierror.Append(collected, err)
				errMu.Unlock()

				break
			}

			time.Sleep(10 * time.Millisecond)
		}
	}

	limiter.StopWait()

	c.journal.Info(fmt.Sprintf("bulk update finished, %d of %d devices dispatched", dispatched, len(ids)))

	if ctx.Err() != nil {
		c.finalize(campaignCancelled)

		return errors.Wrap(ErrCancelled, "bulk update interrupted")
	}

	c.maybeComplete()

	return collected.ErrorOrNil()
}

// RebootDevice reboots one device parked on pendingReboot.
func (c *Campaign) RebootDevice(ctx context.Context, id uuid.UUID, typedConfirmation string) error {
	if err := c.deps.Auth.Authorize(session.ActionReboot, typedConfirmation); err != nil {
		return errors.Wrap(ErrNotAuthorized, err.Error())
	}

	ctx, stop := c.watch(ctx)
	defer stop()

	err := c.reboot(ctx, id)

	c.maybeComplete()

	return err
}

// Finalize terminates the campaign: any device still mid-flight is marked
// cancelled, and exactly one run record is archived.
func (c *Campaign) Finalize() {
	c.finalize(campaignCompleted)
}

// processDevice moves one device through wake, connect-with-retries and the
// sequential compliance scan.
func (c *Campaign) processDevice(ctx context.Context, id uuid.UUID) {
	device, err := c.Device(id)
	if err != nil {
		c.journal.Error(err.Error())
		return
	}

	if device.Status != model.StatusPending {
		return
	}

	if err := c.transition(id, statemachine.TransitionWake); err != nil {
		c.journal.Error(err.Error())
		return
	}

	c.journal.Info(fmt.Sprintf("%s: waking device %s", device.Hostname, device.MAC))

	if err := c.deps.Queryor.Wake(ctx, device); err != nil {
		if ctx.Err() != nil {
			c.cancelDevice(id)
			return
		}

		// wake delivery is best effort, the connect attempts decide the outcome
		c.journal.Warn(fmt.Sprintf("%s: wake request failed: %s", device.Hostname, err.Error()))
	}

	if !c.connect(ctx, id, device) {
		return
	}

	defer func() {
		if err := c.deps.Queryor.Close(device); err != nil {
			c.journal.Warn(fmt.Sprintf("%s: session close failed: %s", device.Hostname, err.Error()))
		}
	}()

	c.scan(ctx, id, device)
}

// connect attempts the management session up to MaxRetries times with a
// fixed delay between attempts. Returns true once connected; on exhaustion
// the device is marked offline and the scan never starts.
func (c *Campaign) connect(ctx context.Context, id uuid.UUID, device model.Device) bool {
	delay := &backoff.Backoff{
		Min:    c.cfg.Settings.RetryDelay,
		Max:    c.cfg.Settings.RetryDelay,
		Factor: 1,
		Jitter: false,
	}

	maxAttempts := c.cfg.Settings.MaxRetries

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.transition(id, statemachine.TransitionConnect); err != nil {
			c.journal.Error(err.Error())
			return false
		}

		c.setRetryAttempt(id, attempt)
		c.journal.Info(fmt.Sprintf("%s: connection attempt %d of %d", device.Hostname, attempt, maxAttempts))

		err := c.deps.Queryor.Open(ctx, device)
		if err == nil {
			return true
		}

		if ctx.Err() != nil {
			c.cancelDevice(id)
			return false
		}

		metrics.ConnectionRetries.Inc()
		c.journal.Warn(fmt.Sprintf("%s: connection failed: %s", device.Hostname, err.Error()))

		if attempt == maxAttempts {
			break
		}

		if err := c.transition(id, statemachine.TransitionRetry); err != nil {
			c.journal.Error(err.Error())
			return false
		}

		select {
		case <-ctx.Done():
			c.cancelDevice(id)
			return false
		case <-time.After(delay.Duration()):
		}
	}

	c.markFailedTerminal(id, statemachine.TransitionOffline, model.FailureCodeConnectRetriesExhausted, model.StatusOffline)
	c.journal.Error(fmt.Sprintf("%s: unreachable after %d attempts, marked offline", device.Hostname, maxAttempts))

	return false
}

// scanPhase pairs a component slug with its status transition.
type scanPhase struct {
	slug       string
	transition sw.TransitionType
}

// scan runs the sequential compliance scan: inventory first, then each
// component version in install order.
func (c *Campaign) scan(ctx context.Context, id uuid.UUID, device model.Device) {
	if ctx.Err() != nil {
		c.cancelDevice(id)
		return
	}

	if err := c.transition(id, statemachine.TransitionScanInfo); err != nil {
		c.journal.Error(err.Error())
		return
	}

	discovered, err := c.deps.Queryor.QueryInventory(ctx, device)
	if err != nil {
		if ctx.Err() != nil {
			c.cancelDevice(id)
			return
		}

		c.journal.Warn(fmt.Sprintf("%s: inventory query failed: %s", device.Hostname, err.Error()))
	} else {
		_ = c.apply(id, func(d *model.Device) error {
			d.Discovered = *discovered
			return nil
		})

		c.journal.Info(fmt.Sprintf("%s: inventory collected, model %s serial %s", device.Hostname, discovered.Model, discovered.Serial))
	}

	phases := []scanPhase{
		{model.SlugBIOS, statemachine.TransitionScanBIOS},
		{model.SlugAgent, statemachine.TransitionScanAgent},
		{model.SlugOS, statemachine.TransitionScanOS},
	}

	for _, phase := range phases {
		if ctx.Err() != nil {
			c.cancelDevice(id)
			return
		}

		if err := c.transition(id, phase.transition); err != nil {
			c.journal.Error(err.Error())
			return
		}

		version, err := c.deps.Queryor.QueryVersion(ctx, device, phase.slug)
		if err != nil {
			if ctx.Err() != nil {
				c.cancelDevice(id)
				return
			}

			c.journal.Warn(fmt.Sprintf("%s: %s version query failed: %s", device.Hostname, phase.slug, err.Error()))
		}

		target, reboot := c.cfg.Targets.ForSlug(phase.slug)

		_ = c.apply(id, func(d *model.Device) error {
			component := d.Components.BySlug(phase.slug)
			if component == nil {
				d.Components = append(d.Components, model.Component{Slug: phase.slug})
				component = d.Components.BySlug(phase.slug)
			}

			component.CurrentVersion = version
			component.TargetVersion = target
			component.RebootRequired = reboot
			component.UpdateNeeded = target != "" && version != target

			return nil
		})
	}

	if ctx.Err() != nil {
		c.cancelDevice(id)
		return
	}

	current, err := c.Device(id)
	if err != nil {
		c.journal.Error(err.Error())
		return
	}

	pending := current.Components.UpdatesNeeded()

	if len(pending) == 0 {
		if err := c.transition(id, statemachine.TransitionCompliant); err != nil {
			c.journal.Error(err.Error())
			return
		}

		c.markProcessed(model.StatusSuccess)
		c.journal.Info(fmt.Sprintf("%s: all components compliant", device.Hostname))

		return
	}

	if err := c.transition(id, statemachine.TransitionScanComplete); err != nil {
		c.journal.Error(err.Error())
		return
	}

	c.journal.Info(fmt.Sprintf("%s: scan complete, updates needed: %s", device.Hostname, strings.Join(pending, ", ")))
}

// update applies every needed component update to one device in install
// order, aborting the remaining components on the first failure. The scope
// whitelist is re-checked on every call - policy drift between scan and
// update must not reach a device.
func (c *Campaign) update(ctx context.Context, id uuid.UUID) error {
	device, err := c.Device(id)
	if err != nil {
		return err
	}

	if c.cfg.Policy == nil {
		return errors.Wrap(ErrNoScopePolicy, device.Hostname)
	}

	if c.cfg.Policy.EnforceHostnameWhitelist && !c.cfg.Policy.HostnameAllowed(device.Hostname) {
		c.journal.Error(fmt.Sprintf("%s: update refused, hostname not in scope whitelist", device.Hostname))

		return errors.Wrap(ErrScopeRejected, device.Hostname)
	}

	if device.Status != model.StatusScanComplete {
		return errors.Wrap(ErrNotUpdatable, fmt.Sprintf("%s is %s", device.Hostname, device.Status))
	}

	slugs := device.Components.UpdatesNeeded()

	if err := c.transition(id, statemachine.TransitionUpdate); err != nil {
		return err
	}

	result := &model.UpdateResult{}
	rebootNeeded := false

	for _, slug := range slugs {
		if ctx.Err() != nil {
			c.setUpdateResult(id, result)
			c.cancelDevice(id)

			return errors.Wrap(ErrCancelled, device.Hostname)
		}

		target, reboot := c.cfg.Targets.ForSlug(slug)

		c.journal.Info(fmt.Sprintf("%s: applying %s update to version %s", device.Hostname, slug, target))

		if err := c.deps.Queryor.ApplyUpdate(ctx, device, slug, target); err != nil {
			if ctx.Err() != nil {
				c.setUpdateResult(id, result)
				c.cancelDevice(id)

				return errors.Wrap(ErrCancelled, device.Hostname)
			}

			metrics.ComponentUpdates.WithLabelValues(slug, "failed").Inc()

			result.Failed = append(result.Failed, slug)
			c.setUpdateResult(id, result)

			c.markFailedTerminal(id, statemachine.TransitionUpdateFailed, model.UpdateFailureCode(slug), model.StatusFailed)
			c.journal.Error(fmt.Sprintf("%s: %s update failed, remaining components skipped: %s", device.Hostname, slug, err.Error()))

			return errors.Wrap(ErrComponentUpdate, fmt.Sprintf("%s %s", device.Hostname, slug))
		}

		metrics.ComponentUpdates.WithLabelValues(slug, "applied").Inc()

		result.Succeeded = append(result.Succeeded, slug)

		_ = c.apply(id, func(d *model.Device) error {
			if component := d.Components.BySlug(slug); component != nil {
				component.CurrentVersion = target
				component.UpdateNeeded = false
			}

			return nil
		})

		if reboot {
			rebootNeeded = true
		}
	}

	c.setUpdateResult(id, result)

	if !rebootNeeded {
		if err := c.transition(id, statemachine.TransitionUpdateDone); err != nil {
			return err
		}

		c.markProcessed(model.StatusSuccess)
		c.journal.Info(fmt.Sprintf("%s: all updates applied, no reboot required", device.Hostname))

		return nil
	}

	if c.cfg.Settings.AutoReboot {
		return c.reboot(ctx, id)
	}

	if err := c.transition(id, statemachine.TransitionAwaitReboot); err != nil {
		return err
	}

	c.journal.Info(fmt.Sprintf("%s: updates applied, reboot pending operator action", device.Hostname))

	return nil
}

// reboot moves the device through the reboot phase to its terminal status.
func (c *Campaign) reboot(ctx context.Context, id uuid.UUID) error {
	device, err := c.Device(id)
	if err != nil {
		return err
	}

	if err := c.transition(id, statemachine.TransitionReboot); err != nil {
		return err
	}

	c.journal.Info(fmt.Sprintf("%s: rebooting", device.Hostname))

	if err := c.deps.Queryor.Reboot(ctx, device); err != nil {
		if ctx.Err() != nil {
			c.cancelDevice(id)

			return errors.Wrap(ErrCancelled, device.Hostname)
		}

		c.markFailedTerminal(id, statemachine.TransitionRebootFailed, model.FailureCodeRebootFailed, model.StatusFailed)
		c.journal.Error(fmt.Sprintf("%s: reboot failed: %s", device.Hostname, err.Error()))

		return errors.Wrap(transport.ErrReboot, device.Hostname)
	}

	if err := c.transition(id, statemachine.TransitionRebootDone); err != nil {
		return err
	}

	c.markProcessed(model.StatusSuccess)
	c.journal.Info(fmt.Sprintf("%s: reboot complete", device.Hostname))

	return nil
}

// finalize cancels any device still mid-flight and archives exactly one run
// record. Safe to call from multiple termination paths.
func (c *Campaign) finalize(state string) {
	c.archiveOnce.Do(func() {
		for _, id := range c.deviceIDs() {
			c.cancelDevice(id)
		}

		devices := c.Devices()
		run := archive.Summarize(c.ID, devices, time.Now())

		if c.deps.Archiver != nil {
			if err := c.deps.Archiver.Append(run); err != nil {
				c.journal.Error(fmt.Sprintf("archiving run record: %s", err.Error()))
			} else {
				metrics.RunsArchived.Inc()
			}
		}

		if !c.start.IsZero() {
			metrics.CampaignRunTimeSummary.WithLabelValues(state).Observe(time.Since(c.start).Seconds())
		}

		succeeded := run.StatusCounts[model.StatusSuccess]

		c.journal.Info(fmt.Sprintf("campaign %s, %d of %d devices succeeded", state, succeeded, run.TotalDevices))

		c.deps.Notifier.Send(
			"Deployment campaign "+state,
			fmt.Sprintf("%d of %d devices succeeded", succeeded, run.TotalDevices),
		)
	})
}

// maybeComplete archives the campaign once every device is terminal.
func (c *Campaign) maybeComplete() {
	if c.allTerminal() {
		c.finalize(campaignCompleted)
	}
}

// watch derives a context cancelled by either the caller or Cancel().
func (c *Campaign) watch(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		select {
		case <-c.cancelCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

func (c *Campaign) deviceIDs() []uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(c.devices))

	for idx := range c.devices {
		ids = append(ids, c.devices[idx].ID)
	}

	return ids
}

func (c *Campaign) allTerminal() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for idx := range c.devices {
		if !c.devices[idx].Status.Terminal() {
			return false
		}
	}

	return true
}

// apply mutates one device under the write lock.
func (c *Campaign) apply(id uuid.UUID, fn func(*model.Device) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for idx := range c.devices {
		if c.devices[idx].ID == id {
			return fn(&c.devices[idx])
		}
	}

	return errors.Wrap(ErrDeviceNotFound, id.String())
}

func (c *Campaign) transition(id uuid.UUID, transition sw.TransitionType) error {
	return c.apply(id, func(d *model.Device) error {
		return c.machine.Transition(d, transition)
	})
}

func (c *Campaign) setRetryAttempt(id uuid.UUID, attempt int) {
	_ = c.apply(id, func(d *model.Device) error {
		d.RetryAttempt = attempt
		return nil
	})
}

func (c *Campaign) setUpdateResult(id uuid.UUID, result *model.UpdateResult) {
	_ = c.apply(id, func(d *model.Device) error {
		d.LastUpdateResult = result
		return nil
	})
}

// cancelDevice marks a device cancelled unless it is already terminal.
func (c *Campaign) cancelDevice(id uuid.UUID) {
	cancelled := false

	_ = c.apply(id, func(d *model.Device) error {
		if d.Status.Terminal() {
			return nil
		}

		if err := c.machine.Cancel(d); err != nil {
			return err
		}

		cancelled = true

		return nil
	})

	if cancelled {
		c.markProcessed(model.StatusCancelled)
	}
}

// markFailedTerminal moves the device to a failed terminal status with its
// catalog failure detail attached.
func (c *Campaign) markFailedTerminal(id uuid.UUID, transition sw.TransitionType, failureCode string, status model.Status) {
	err := c.apply(id, func(d *model.Device) error {
		if err := c.machine.Transition(d, transition); err != nil {
			return err
		}

		detail := model.FailureByCode(failureCode)
		d.FailureDetail = &detail

		return nil
	})
	if err != nil {
		c.journal.Error(err.Error())
		return
	}

	c.markProcessed(status)
}

func (c *Campaign) markProcessed(status model.Status) {
	metrics.DevicesProcessed.WithLabelValues(string(status)).Inc()
}
