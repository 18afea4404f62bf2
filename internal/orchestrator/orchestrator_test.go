package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/caretech-ops/fleetsweep/internal/model"
	"github.com/caretech-ops/fleetsweep/internal/session"
	"github.com/caretech-ops/fleetsweep/internal/transport"
)

// fakeQueryor scripts transport behavior per test.
type fakeQueryor struct {
	mu       sync.Mutex
	attempts []string
	rebooted []string

	wakeErr   error
	openFn    func(ctx context.Context, device model.Device) error
	versionFn func(device model.Device, slug string) (string, error)
	applyFn   func(device model.Device, slug string) error
	rebootErr error
}

func (f *fakeQueryor) Wake(_ context.Context, _ model.Device) error { return f.wakeErr }

func (f *fakeQueryor) Open(ctx context.Context, device model.Device) error {
	if f.openFn != nil {
		return f.openFn(ctx, device)
	}

	return nil
}

func (f *fakeQueryor) Close(_ model.Device) error { return nil }

func (f *fakeQueryor) QueryInventory(_ context.Context, device model.Device) (*model.Discovered, error) {
	return &model.Discovered{Model: "OptiCare 7080", Serial: "SN-" + device.MAC}, nil
}

func (f *fakeQueryor) QueryVersion(_ context.Context, device model.Device, slug string) (string, error) {
	if f.versionFn != nil {
		return f.versionFn(device, slug)
	}

	// compliant by default
	version, _ := plainTargets().ForSlug(slug)

	return version, nil
}

func (f *fakeQueryor) ApplyUpdate(_ context.Context, device model.Device, slug, _ string) error {
	f.mu.Lock()
	f.attempts = append(f.attempts, device.Hostname+"/"+slug)
	f.mu.Unlock()

	if f.applyFn != nil {
		return f.applyFn(device, slug)
	}

	return nil
}

func (f *fakeQueryor) Reboot(_ context.Context, device model.Device) error {
	if f.rebootErr != nil {
		return f.rebootErr
	}

	f.mu.Lock()
	f.rebooted = append(f.rebooted, device.Hostname)
	f.mu.Unlock()

	return nil
}

func (f *fakeQueryor) attempted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.attempts))
	copy(out, f.attempts)

	return out
}

// allowAll authorizes every action, for tests not exercising the session gate.
type allowAll struct{}

func (allowAll) Authorize(session.PrivilegedAction, string) error { return nil }

// captureArchive records appended runs.
type captureArchive struct {
	mu   sync.Mutex
	runs []model.DeploymentRun
}

func (a *captureArchive) Append(run model.DeploymentRun) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.runs = append(a.runs, run)

	return nil
}

func (a *captureArchive) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.runs)
}

func (a *captureArchive) last() model.DeploymentRun {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.runs[len(a.runs)-1]
}

func plainTargets() model.TargetVersions {
	return model.TargetVersions{BIOS: "1.9.2", Agent: "5.2.0", OS: "10.0.22631"}
}

func testSettings() model.DeploymentSettings {
	return model.DeploymentSettings{MaxRetries: 3, RetryDelay: time.Millisecond}
}

func safeResult() *model.ScriptSafetyResult {
	return &model.ScriptSafetyResult{Safe: true, RiskLevel: model.RiskLow}
}

func policyFor(devices []model.Device) *model.ScopePolicy {
	policy := &model.ScopePolicy{
		ID:                       uuid.New(),
		IssuedAt:                 time.Now(),
		MaxDeviceCount:           50,
		EnforceHostnameWhitelist: true,
	}

	for _, device := range devices {
		policy.AllowedHostnames = append(policy.AllowedHostnames, device.Hostname)
		policy.AllowedMACs = append(policy.AllowedMACs, device.MAC)
	}

	return policy
}

func pendingDevice(hostname, mac string) model.Device {
	return model.Device{
		ID:       uuid.New(),
		Hostname: hostname,
		MAC:      mac,
		Status:   model.StatusPending,
		Components: model.Components{
			{Slug: model.SlugBIOS},
			{Slug: model.SlugAgent},
			{Slug: model.SlugOS},
		},
		ScopeVerified: true,
	}
}

// scannedDevice is parked on scanComplete with the given slugs needing updates.
func scannedDevice(hostname string, needed ...string) model.Device {
	device := pendingDevice(hostname, "AABBCCDDEEFF")
	device.Status = model.StatusScanComplete

	for _, slug := range needed {
		component := device.Components.BySlug(slug)
		component.CurrentVersion = "0.0.1"
		component.TargetVersion, component.RebootRequired = plainTargets().ForSlug(slug)
		component.UpdateNeeded = true
	}

	return device
}

func testCampaign(t *testing.T, cfg Config, devices []model.Device, queryor transport.Queryor, archiver Archiver) *Campaign {
	t.Helper()

	if cfg.Policy == nil {
		cfg.Policy = policyFor(devices)
	}

	if cfg.Safety == nil {
		cfg.Safety = safeResult()
	}

	campaign, err := New(cfg, devices, Deps{
		Queryor:  queryor,
		Auth:     allowAll{},
		Archiver: archiver,
	})
	require.NoError(t, err)

	return campaign
}

func Test_Run_OfflineAfterRetryExhaustion(t *testing.T) {
	defer goleak.VerifyNone(t)

	opens := 0
	queryor := &fakeQueryor{
		openFn: func(_ context.Context, _ model.Device) error {
			opens++
			return errors.Wrap(transport.ErrConnect, "no response")
		},
	}

	archiver := &captureArchive{}
	devices := []model.Device{pendingDevice("PC01", "AABBCCDDEE01")}
	cfg := Config{Settings: testSettings(), Targets: plainTargets()}

	campaign := testCampaign(t, cfg, devices, queryor, archiver)

	require.NoError(t, campaign.Run(context.Background(), "scan"))

	device := campaign.Devices()[0]

	assert.Equal(t, model.StatusOffline, device.Status)
	assert.Equal(t, 3, device.RetryAttempt)
	assert.Equal(t, 3, opens)

	require.NotNil(t, device.FailureDetail)
	assert.Equal(t, model.FailureCodeConnectRetriesExhausted, device.FailureDetail.ErrorCode)

	// the scan never started
	assert.Empty(t, device.Discovered.Serial)

	// every device terminal, so the run was archived
	require.Equal(t, 1, archiver.count())
	assert.Equal(t, 1, archiver.last().StatusCounts[model.StatusOffline])
}

func Test_Run_CompliantDeviceSkipsUpdatePhase(t *testing.T) {
	defer goleak.VerifyNone(t)

	queryor := &fakeQueryor{}
	archiver := &captureArchive{}
	devices := []model.Device{pendingDevice("PC01", "AABBCCDDEE01")}
	cfg := Config{Settings: testSettings(), Targets: plainTargets()}

	campaign := testCampaign(t, cfg, devices, queryor, archiver)

	require.NoError(t, campaign.Run(context.Background(), "scan"))

	device := campaign.Devices()[0]

	assert.Equal(t, model.StatusSuccess, device.Status)
	assert.Empty(t, device.Components.UpdatesNeeded())
	assert.Nil(t, device.LastUpdateResult)
	assert.Equal(t, "SN-AABBCCDDEE01", device.Discovered.Serial)

	assert.Equal(t, 1, archiver.count())
}

func Test_Run_RefusesUnsafeScript(t *testing.T) {
	defer goleak.VerifyNone(t)

	devices := []model.Device{pendingDevice("PC01", "AABBCCDDEE01")}
	archiver := &captureArchive{}
	cfg := Config{
		Settings: testSettings(),
		Targets:  plainTargets(),
		Safety:   &model.ScriptSafetyResult{Safe: false, RiskLevel: model.RiskCritical},
	}

	campaign := testCampaign(t, cfg, devices, &fakeQueryor{}, archiver)

	err := campaign.Run(context.Background(), "scan")
	assert.ErrorIs(t, err, ErrScriptUnsafe)

	// rejected before any device was touched
	assert.Equal(t, model.StatusPending, campaign.Devices()[0].Status)
	assert.Zero(t, archiver.count())
}

func Test_Run_SessionAuthorization(t *testing.T) {
	defer goleak.VerifyNone(t)

	devices := []model.Device{pendingDevice("PC01", "AABBCCDDEE01")}
	manager := session.NewManager("", 0, nil)

	campaign, err := New(
		Config{
			Settings: testSettings(),
			Targets:  plainTargets(),
			Policy:   policyFor(devices),
			Safety:   safeResult(),
		},
		devices,
		Deps{Queryor: &fakeQueryor{}, Auth: manager, Archiver: &captureArchive{}},
	)
	require.NoError(t, err)

	// nobody signed in
	err = campaign.Run(context.Background(), "scan")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	manager.SignIn("rgoldberg")

	// signed in but not elevated
	err = campaign.Run(context.Background(), "scan")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	require.NoError(t, manager.VerifyAdmin(true, ""))

	// elevated, wrong typed confirmation
	err = campaign.Run(context.Background(), "update")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	require.NoError(t, campaign.Run(context.Background(), "scan"))
	assert.Equal(t, model.StatusSuccess, campaign.Devices()[0].Status)
}

func Test_UpdateDevice_AppliesInInstallOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	queryor := &fakeQueryor{}
	archiver := &captureArchive{}
	devices := []model.Device{scannedDevice("PC01", model.SlugBIOS, model.SlugAgent, model.SlugOS)}
	cfg := Config{Settings: testSettings(), Targets: plainTargets()}

	campaign := testCampaign(t, cfg, devices, queryor, archiver)

	require.NoError(t, campaign.UpdateDevice(context.Background(), devices[0].ID, "update"))

	assert.Equal(t, []string{"PC01/bios", "PC01/agent", "PC01/os"}, queryor.attempted())

	device := campaign.Devices()[0]

	assert.Equal(t, model.StatusSuccess, device.Status)
	require.NotNil(t, device.LastUpdateResult)
	assert.Equal(t, []string{"bios", "agent", "os"}, device.LastUpdateResult.Succeeded)
	assert.Empty(t, device.LastUpdateResult.Failed)
	assert.Empty(t, device.Components.UpdatesNeeded())

	assert.Equal(t, 1, archiver.count())
}

func Test_UpdateDevice_ShortCircuitsOnComponentFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	queryor := &fakeQueryor{
		applyFn: func(_ model.Device, slug string) error {
			if slug == model.SlugAgent {
				return errors.Wrap(transport.ErrUpdate, "agent installer exited 1")
			}

			return nil
		},
	}
	devices := []model.Device{scannedDevice("PC01", model.SlugBIOS, model.SlugAgent, model.SlugOS)}
	cfg := Config{Settings: testSettings(), Targets: plainTargets()}

	campaign := testCampaign(t, cfg, devices, queryor, &captureArchive{})

	err := campaign.UpdateDevice(context.Background(), devices[0].ID, "update")
	assert.ErrorIs(t, err, ErrComponentUpdate)

	// os never attempted after the agent failure
	assert.Equal(t, []string{"PC01/bios", "PC01/agent"}, queryor.attempted())

	device := campaign.Devices()[0]

	assert.Equal(t, model.StatusFailed, device.Status)
	require.NotNil(t, device.FailureDetail)
	assert.Equal(t, model.FailureCodeUpdateAgent, device.FailureDetail.ErrorCode)

	require.NotNil(t, device.LastUpdateResult)
	assert.Equal(t, []string{"bios"}, device.LastUpdateResult.Succeeded)
	assert.Equal(t, []string{"agent"}, device.LastUpdateResult.Failed)
}

func Test_UpdateDevice_RebootPhases(t *testing.T) {
	defer goleak.VerifyNone(t)

	targets := plainTargets()
	targets.BIOSReboot = true

	t.Run("parked on pendingReboot", func(t *testing.T) {
		queryor := &fakeQueryor{}
		devices := []model.Device{scannedDevice("PC01", model.SlugBIOS)}
		devices[0].Components.BySlug(model.SlugBIOS).RebootRequired = true

		cfg := Config{Settings: testSettings(), Targets: targets}
		campaign := testCampaign(t, cfg, devices, queryor, &captureArchive{})

		require.NoError(t, campaign.UpdateDevice(context.Background(), devices[0].ID, "update"))
		assert.Equal(t, model.StatusPendingReboot, campaign.Devices()[0].Status)
		assert.Empty(t, queryor.rebooted)

		require.NoError(t, campaign.RebootDevice(context.Background(), devices[0].ID, "reboot"))
		assert.Equal(t, model.StatusSuccess, campaign.Devices()[0].Status)
		assert.Equal(t, []string{"PC01"}, queryor.rebooted)
	})

	t.Run("auto reboot", func(t *testing.T) {
		queryor := &fakeQueryor{}
		devices := []model.Device{scannedDevice("PC01", model.SlugBIOS)}
		devices[0].Components.BySlug(model.SlugBIOS).RebootRequired = true

		settings := testSettings()
		settings.AutoReboot = true

		cfg := Config{Settings: settings, Targets: targets}
		campaign := testCampaign(t, cfg, devices, queryor, &captureArchive{})

		require.NoError(t, campaign.UpdateDevice(context.Background(), devices[0].ID, "update"))
		assert.Equal(t, model.StatusSuccess, campaign.Devices()[0].Status)
		assert.Equal(t, []string{"PC01"}, queryor.rebooted)
	})

	t.Run("reboot failure", func(t *testing.T) {
		queryor := &fakeQueryor{rebootErr: errors.Wrap(transport.ErrReboot, "not acknowledged")}
		devices := []model.Device{scannedDevice("PC01", model.SlugBIOS)}
		devices[0].Components.BySlug(model.SlugBIOS).RebootRequired = true

		settings := testSettings()
		settings.AutoReboot = true

		cfg := Config{Settings: settings, Targets: targets}
		campaign := testCampaign(t, cfg, devices, queryor, &captureArchive{})

		err := campaign.UpdateDevice(context.Background(), devices[0].ID, "update")
		assert.ErrorIs(t, err, transport.ErrReboot)

		device := campaign.Devices()[0]

		assert.Equal(t, model.StatusFailed, device.Status)
		require.NotNil(t, device.FailureDetail)
		assert.Equal(t, model.FailureCodeRebootFailed, device.FailureDetail.ErrorCode)
	})
}

func Test_UpdateDevice_RefusedOffWhitelist(t *testing.T) {
	defer goleak.VerifyNone(t)

	devices := []model.Device{scannedDevice("LAB-9", model.SlugAgent)}

	// the issued policy never included this hostname
	cfg := Config{
		Settings: testSettings(),
		Targets:  plainTargets(),
		Policy: &model.ScopePolicy{
			ID:                       uuid.New(),
			AllowedHostnames:         []string{"PC01", "PC02"},
			EnforceHostnameWhitelist: true,
		},
	}

	queryor := &fakeQueryor{}
	campaign := testCampaign(t, cfg, devices, queryor, &captureArchive{})

	err := campaign.UpdateDevice(context.Background(), devices[0].ID, "update")
	assert.ErrorIs(t, err, ErrScopeRejected)

	// rejected before the device was touched
	assert.Equal(t, model.StatusScanComplete, campaign.Devices()[0].Status)
	assert.Empty(t, queryor.attempted())
}

func Test_UpdateDevice_RequiresScanComplete(t *testing.T) {
	defer goleak.VerifyNone(t)

	devices := []model.Device{pendingDevice("PC01", "AABBCCDDEE01")}
	cfg := Config{Settings: testSettings(), Targets: plainTargets()}

	campaign := testCampaign(t, cfg, devices, &fakeQueryor{}, &captureArchive{})

	err := campaign.UpdateDevice(context.Background(), devices[0].ID, "update")
	assert.ErrorIs(t, err, ErrNotUpdatable)
}

func Test_Cancel_MidScanArchivesExactlyOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	var blockOnce sync.Once

	started := make(chan struct{})

	queryor := &fakeQueryor{
		openFn: func(ctx context.Context, device model.Device) error {
			if device.Hostname == "PC03" {
				blockOnce.Do(func() { close(started) })
				<-ctx.Done()

				return ctx.Err()
			}

			return nil
		},
	}

	devices := []model.Device{
		pendingDevice("PC01", "AABBCCDDEE01"),
		pendingDevice("PC02", "AABBCCDDEE02"),
		pendingDevice("PC03", "AABBCCDDEE03"),
		pendingDevice("PC04", "AABBCCDDEE04"),
		pendingDevice("PC05", "AABBCCDDEE05"),
	}

	archiver := &captureArchive{}
	cfg := Config{Settings: testSettings(), Targets: plainTargets()}
	campaign := testCampaign(t, cfg, devices, queryor, archiver)

	done := make(chan error, 1)

	go func() {
		done <- campaign.Run(context.Background(), "scan")
	}()

	<-started
	campaign.Cancel()

	err := <-done
	assert.ErrorIs(t, err, ErrCancelled)
	assert.True(t, campaign.Cancelled())

	statuses := map[string]model.Status{}
	for _, device := range campaign.Devices() {
		statuses[device.Hostname] = device.Status
	}

	// devices processed before the cancel keep their terminal status
	assert.Equal(t, model.StatusSuccess, statuses["PC01"])
	assert.Equal(t, model.StatusSuccess, statuses["PC02"])

	// the in-flight device and the unprocessed tail are cancelled
	assert.Equal(t, model.StatusCancelled, statuses["PC03"])
	assert.Equal(t, model.StatusCancelled, statuses["PC04"])
	assert.Equal(t, model.StatusCancelled, statuses["PC05"])

	require.Equal(t, 1, archiver.count())

	run := archiver.last()
	assert.Equal(t, 2, run.StatusCounts[model.StatusSuccess])
	assert.Equal(t, 3, run.StatusCounts[model.StatusCancelled])
	assert.Equal(t, 0.4, run.SuccessRate)

	// a later explicit finalize does not produce a second record
	campaign.Finalize()
	assert.Equal(t, 1, archiver.count())
}

func Test_BulkUpdate_BoundedConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)

	var inFlight, peak int32

	queryor := &fakeQueryor{
		applyFn: func(_ model.Device, _ string) error {
			current := atomic.AddInt32(&inFlight, 1)

			for {
				observed := atomic.LoadInt32(&peak)
				if current <= observed || atomic.CompareAndSwapInt32(&peak, observed, current) {
					break
				}
			}

			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)

			return nil
		},
	}

	devices := make([]model.Device, 0, 8)
	ids := make([]uuid.UUID, 0, 8)

	for _, hostname := range []string{"PC01", "PC02", "PC03", "PC04", "PC05", "PC06", "PC07", "PC08"} {
		device := scannedDevice(hostname, model.SlugAgent)
		devices = append(devices, device)
		ids = append(ids, device.ID)
	}

	archiver := &captureArchive{}
	cfg := Config{Settings: testSettings(), Targets: plainTargets(), BulkConcurrency: 2}
	campaign := testCampaign(t, cfg, devices, queryor, archiver)

	require.NoError(t, campaign.BulkUpdate(context.Background(), ids, "bulk-update"))

	assert.LessOrEqual(t, peak, int32(2))

	for _, device := range campaign.Devices() {
		assert.Equal(t, model.StatusSuccess, device.Status, device.Hostname)
	}

	assert.Equal(t, 1, archiver.count())
	assert.Equal(t, float64(1), archiver.last().SuccessRate)
}

func Test_Devices_SnapshotIsolation(t *testing.T) {
	devices := []model.Device{scannedDevice("PC01", model.SlugAgent)}
	cfg := Config{Settings: testSettings(), Targets: plainTargets()}

	campaign := testCampaign(t, cfg, devices, &fakeQueryor{}, &captureArchive{})

	snapshot := campaign.Devices()
	snapshot[0].Hostname = "MUTATED"
	snapshot[0].Components.BySlug(model.SlugAgent).UpdateNeeded = false

	fresh := campaign.Devices()

	assert.Equal(t, "PC01", fresh[0].Hostname)
	assert.True(t, fresh[0].Components.BySlug(model.SlugAgent).UpdateNeeded)
}
