package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/caretech-ops/fleetsweep/internal/app"
	"github.com/caretech-ops/fleetsweep/internal/archive"
	"github.com/caretech-ops/fleetsweep/internal/intake"
	"github.com/caretech-ops/fleetsweep/internal/metrics"
	"github.com/caretech-ops/fleetsweep/internal/model"
	"github.com/caretech-ops/fleetsweep/internal/notify"
	"github.com/caretech-ops/fleetsweep/internal/orchestrator"
	"github.com/caretech-ops/fleetsweep/internal/scope"
	"github.com/caretech-ops/fleetsweep/internal/scriptcheck"
	"github.com/caretech-ops/fleetsweep/internal/session"
	"github.com/caretech-ops/fleetsweep/internal/transport"
	"github.com/caretech-ops/fleetsweep/internal/version"
)

var cmdRun = &cobra.Command{
	Use:   "run",
	Short: "Run a supervised update campaign: scope verification, scan, update, archive",
	Run: func(cmd *cobra.Command, _ []string) {
		runCampaign(cmd.Context())
	},
}

// run command flags
var (
	importFile   string
	scriptFile   string
	operatorName string
)

// prompter reads typed operator input. Every privileged step in the flow is
// confirmed through here - there is no fast path.
type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func newPrompter() *prompter {
	return &prompter{in: bufio.NewScanner(os.Stdin), out: os.Stdout}
}

func (p *prompter) ask(question string) string {
	fmt.Fprintf(p.out, "%s: ", question)

	if !p.in.Scan() {
		return ""
	}

	return strings.TrimSpace(p.in.Text())
}

func (p *prompter) yes(question string) bool {
	return strings.EqualFold(p.ask(question+" [y/N]"), "y")
}

// nolint:gocyclo // the campaign flow is one linear operator interaction.
func runCampaign(ctx context.Context) {
	fleet, err := app.New(cfgFile, logLevel)
	if err != nil {
		log.Fatal(err)
	}

	logger := fleet.Logger.WithField("component", "run")

	// serve metrics endpoint
	metrics.ListenAndServe(fleet.Config.MetricsEndpoint)
	version.ExportBuildInfoMetric()

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	prompt := newPrompter()

	devices, err := loadDevices(fleet)
	if err != nil {
		fleet.Logger.Fatal(err)
	}

	if len(devices) == 0 {
		fleet.Logger.Fatal("no target devices configured or imported")
	}

	// script safety gate - analyzed before any session or scope interaction
	safety := analyzeScript(fleet, devices)

	metrics.ScriptsAnalyzed.WithLabelValues(string(safety.RiskLevel)).Inc()

	for _, finding := range safety.Findings {
		logger.WithField("severity", finding.Severity).
			WithField("line", finding.Line).
			Warn(finding.Description)
	}

	if !safety.Safe {
		fleet.Logger.Fatal("deployment script failed the safety gate, campaign refused")
	}

	// operator session
	sessions := session.NewManager(
		fleet.Config.Session.AdminKeyword,
		fleet.Config.Session.Timeout,
		fleet.Logger.WithField("component", "session"),
	)
	sessions.StartSweep(time.Minute)

	defer sessions.StopSweep()

	name := operatorName
	if name == "" {
		name = prompt.ask("operator name")
	}

	sessions.SignIn(name)

	acknowledged := prompt.yes("I understand updates will be deployed to live clinical workstations")

	keyword := ""
	if fleet.Config.Session.AdminKeyword != "" {
		keyword = prompt.ask("admin keyword")
	}

	if err := sessions.VerifyAdmin(acknowledged, keyword); err != nil {
		fleet.Logger.Fatal(errors.Wrap(err, "admin verification failed"))
	}

	// scope gate - each device reviewed individually, then the typed count
	included := make([]*model.Device, 0, len(devices))

	for _, device := range devices {
		if prompt.yes(fmt.Sprintf("include %s (%s)", device.Hostname, device.MAC)) {
			included = append(included, device)
		}
	}

	gate := scope.NewGate(included, fleet.Config.Scope.MaxDeviceCount, fleet.Config.Scope.PolicyOptions())

	for _, device := range included {
		if err := gate.Acknowledge(device.ID); err != nil {
			fleet.Logger.Fatal(err)
		}
	}

	typed, err := strconv.Atoi(prompt.ask("type the exact number of devices in scope"))
	if err != nil {
		fleet.Logger.Fatal("the device count must be typed as a number")
	}

	gate.ConfirmCount(typed)

	policy, verified, err := gate.Issue()
	if err != nil {
		fleet.Logger.Fatal(errors.Wrap(err, "scope verification failed"))
	}

	runs, err := archive.Open(fleet.Config.Store.RunArchivePath, fleet.Logger)
	if err != nil {
		fleet.Logger.Fatal(err)
	}

	queryor := transport.NewSimulated(
		*fleet.Config.Simulator,
		fleet.Logger.WithField("component", "transport"),
	)

	campaign, err := orchestrator.New(
		orchestrator.Config{
			Settings:        fleet.Config.Deployment,
			Targets:         fleet.Config.Targets,
			Policy:          policy,
			Safety:          &safety,
			BulkConcurrency: fleet.Config.Concurrency,
		},
		verified,
		orchestrator.Deps{
			Queryor:  queryor,
			Auth:     sessions,
			Archiver: runs,
			Notifier: notify.NewDesktop(fleet.Logger.WithField("component", "notify")),
			Logger:   logger,
		},
	)
	if err != nil {
		fleet.Logger.Fatal(err)
	}

	// routine listens for the termination signal and cancels the campaign
	fleet.SyncWG.Add(1)

	go func() {
		defer fleet.SyncWG.Done()

		select {
		case <-fleet.TermCh:
			logger.Info("got TERM signal, cancelling campaign...")
			campaign.Cancel()
		case <-ctx.Done():
		}
	}()

	if err := campaign.Run(ctx, prompt.ask(`type "scan" to start the campaign`)); err != nil {
		if errors.Is(err, orchestrator.ErrCancelled) {
			finishCampaign(fleet, campaign, cancelFunc)
			return
		}

		fleet.Logger.Fatal(err)
	}

	updatePhase(ctx, fleet, campaign, prompt)
	rebootPhase(ctx, fleet, campaign, prompt)

	campaign.Finalize()
	finishCampaign(fleet, campaign, cancelFunc)
}

func updatePhase(ctx context.Context, fleet *app.App, campaign *orchestrator.Campaign, prompt *prompter) {
	pending := make([]model.Device, 0)

	for _, device := range campaign.Devices() {
		if device.Status == model.StatusScanComplete {
			pending = append(pending, device)
		}
	}

	if len(pending) == 0 {
		return
	}

	ids := make([]uuid.UUID, 0, len(pending))

	for _, device := range pending {
		fmt.Printf("%-20s needs: %s\n", device.Hostname, strings.Join(device.Components.UpdatesNeeded(), ", "))
		ids = append(ids, device.ID)
	}

	confirmation := prompt.ask(fmt.Sprintf(`type "bulk-update" to update %d devices`, len(pending)))

	if err := campaign.BulkUpdate(ctx, ids, confirmation); err != nil {
		fleet.Logger.WithError(err).Warn("bulk update finished with errors")
	}
}

func rebootPhase(ctx context.Context, fleet *app.App, campaign *orchestrator.Campaign, prompt *prompter) {
	for _, device := range campaign.Devices() {
		if device.Status != model.StatusPendingReboot {
			continue
		}

		confirmation := prompt.ask(fmt.Sprintf(`type "reboot" to reboot %s now, anything else to leave it parked`, device.Hostname))

		if err := campaign.RebootDevice(ctx, device.ID, confirmation); err != nil {
			fleet.Logger.WithError(err).Warn(device.Hostname + " left on pendingReboot")
		}
	}
}

func finishCampaign(fleet *app.App, campaign *orchestrator.Campaign, cancelFunc context.CancelFunc) {
	fmt.Println("\ncampaign result:")

	for _, device := range campaign.Devices() {
		line := fmt.Sprintf("%-20s %s", device.Hostname, device.Status)

		if device.FailureDetail != nil {
			line += fmt.Sprintf("  [%s] %s", device.FailureDetail.ErrorCode, device.FailureDetail.Reason)
		}

		fmt.Println(line)
	}

	cancelFunc()
	fleet.SyncWG.Wait()
}

// loadDevices reads the target fleet from the import file when given,
// falling back to the configured device list.
func loadDevices(fleet *app.App) ([]*model.Device, error) {
	if importFile != "" {
		fh, err := os.Open(importFile)
		if err != nil {
			return nil, err
		}

		defer fh.Close()

		result, err := intake.LoadCSV(fh)
		if err != nil {
			return nil, err
		}

		for _, rejection := range result.Rejected {
			fleet.Logger.Warn(rejection.Error())
		}

		return result.Devices, nil
	}

	configured, err := fleet.Config.DeviceList()
	if err != nil {
		return nil, err
	}

	devices := make([]*model.Device, 0, len(configured))

	for idx := range configured {
		devices = append(devices, &configured[idx])
	}

	return devices, nil
}

// analyzeScript runs the safety analyzer over the deployment script with the
// campaign hostnames as the allowed set.
func analyzeScript(fleet *app.App, devices []*model.Device) model.ScriptSafetyResult {
	raw, err := os.ReadFile(scriptFile)
	if err != nil {
		fleet.Logger.Fatal(errors.Wrap(err, "reading deployment script"))
	}

	hosts := make([]string, 0, len(devices))
	for _, device := range devices {
		hosts = append(hosts, device.Hostname)
	}

	opts := scriptcheck.Options{
		BlockBroadcastCommands: fleet.Config.Scope.BlockBroadcastCommands,
		BlockRegistryWrites:    fleet.Config.Scope.BlockRegistryWrites,
		BlockServiceStops:      fleet.Config.Scope.BlockServiceStops,
	}

	return scriptcheck.Analyze(string(raw), hosts, opts)
}

func init() {
	cmdRun.PersistentFlags().StringVar(&importFile, "import", "", "CSV file with hostname and MAC columns to load target devices from")
	cmdRun.PersistentFlags().StringVar(&scriptFile, "script", "", "deployment script analyzed by the safety gate before the campaign starts")
	cmdRun.PersistentFlags().StringVar(&operatorName, "operator", "", "operator name for the session, prompted when unset")

	if err := cmdRun.MarkPersistentFlagRequired("script"); err != nil {
		log.Fatal(err)
	}

	rootCmd.AddCommand(cmdRun)
}
