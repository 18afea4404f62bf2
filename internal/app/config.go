package app

import (
	"os"
	"strings"
	"time"

	"github.com/jeremywohl/flatten"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/caretech-ops/fleetsweep/internal/metrics"
	"github.com/caretech-ops/fleetsweep/internal/model"
	"github.com/caretech-ops/fleetsweep/internal/scope"
	"github.com/caretech-ops/fleetsweep/internal/transport"
)

const (
	// DefaultScopeCeiling is the hard device-count limit applied when the
	// configuration does not set one.
	DefaultScopeCeiling = 50

	defaultMaxRetries     = 3
	defaultRetryDelay     = 10 * time.Second
	defaultRunArchivePath = "fleetsweep-runs.db"
	defaultTemplatePath   = "fleetsweep-templates.yaml"
)

var ErrConfig = errors.New("configuration error")

// Configuration holds application configuration read from a YAML file or
// set by env variables.
//
// nolint:govet // prefer readability over field alignment optimization for this case.
type Configuration struct {
	// LogLevel is the app verbose logging level.
	// one of - info, debug, trace
	LogLevel string `mapstructure:"log_level"`

	// LogFile routes app logs to a rotated file when set.
	LogFile string `mapstructure:"log_file"`

	// MetricsEndpoint is the prometheus listen address.
	MetricsEndpoint string `mapstructure:"metrics_endpoint"`

	// Concurrency bounds simultaneous device updates in a bulk run.
	Concurrency int `mapstructure:"concurrency"`

	// Deployment are the campaign retry and reboot settings.
	Deployment model.DeploymentSettings `mapstructure:"deployment"`

	// Targets declare the compliant version per component.
	Targets model.TargetVersions `mapstructure:"targets"`

	Session *SessionOptions `mapstructure:"session"`

	Scope *ScopeOptions `mapstructure:"scope"`

	Store *StoreOptions `mapstructure:"store"`

	// Simulator tunes the simulated device transport.
	Simulator *transport.SimulatedOpts `mapstructure:"simulator"`

	// Devices is the inline target list, an alternative to CSV import.
	Devices []DeviceEntry `mapstructure:"devices"`
}

// SessionOptions configure the operator session gate.
type SessionOptions struct {
	// AdminKeyword is the expected admin verification keyword, empty accepts any.
	AdminKeyword string `mapstructure:"admin_keyword"`

	// Timeout is the session inactivity window.
	Timeout time.Duration `mapstructure:"timeout"`
}

// ScopeOptions configure the scope gate and the issued policy flags.
type ScopeOptions struct {
	MaxDeviceCount           int  `mapstructure:"max_device_count"`
	BlockBroadcastCommands   bool `mapstructure:"block_broadcast_commands"`
	BlockRegistryWrites      bool `mapstructure:"block_registry_writes"`
	BlockServiceStops        bool `mapstructure:"block_service_stops"`
	EnforceHostnameWhitelist bool `mapstructure:"enforce_hostname_whitelist"`
}

// PolicyOptions maps the configured flags onto scope gate options.
func (s *ScopeOptions) PolicyOptions() scope.PolicyOptions {
	return scope.PolicyOptions{
		BlockBroadcastCommands:   s.BlockBroadcastCommands,
		BlockRegistryWrites:      s.BlockRegistryWrites,
		BlockServiceStops:        s.BlockServiceStops,
		EnforceHostnameWhitelist: s.EnforceHostnameWhitelist,
	}
}

// StoreOptions locate the local persistence files.
type StoreOptions struct {
	RunArchivePath string `mapstructure:"run_archive_path"`
	TemplatePath   string `mapstructure:"template_path"`
}

// DeviceEntry is one configured target device.
type DeviceEntry struct {
	Hostname string `mapstructure:"hostname"`
	MAC      string `mapstructure:"mac"`
}

// DeviceList converts the configured device entries into campaign devices,
// normalizing each MAC. An invalid entry fails the whole list - a configured
// fleet should never be partially loaded.
func (c *Configuration) DeviceList() ([]model.Device, error) {
	devices := make([]model.Device, 0, len(c.Devices))

	for _, entry := range c.Devices {
		if entry.Hostname == "" {
			return nil, errors.Wrap(ErrConfig, "device entry with empty hostname")
		}

		mac, err := model.NormalizeMAC(entry.MAC)
		if err != nil {
			return nil, errors.Wrap(ErrConfig, entry.Hostname+": "+err.Error())
		}

		devices = append(devices, model.NewDevice(entry.Hostname, mac))
	}

	return devices, nil
}

// LoadConfiguration loads application configuration
//
// Reads in the cfgFile when available and overrides from environment variables.
func (a *App) LoadConfiguration(cfgFile string) error {
	a.v.SetConfigType("yaml")
	a.v.SetEnvPrefix(AppName)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	// these are initialized here so viper can read in configuration from env vars
	a.Config.Session = &SessionOptions{}
	a.Config.Scope = &ScopeOptions{}
	a.Config.Store = &StoreOptions{}
	a.Config.Simulator = &transport.SimulatedOpts{}

	if cfgFile != "" {
		fh, err := os.Open(cfgFile)
		if err != nil {
			return errors.Wrap(ErrConfig, err.Error())
		}

		defer fh.Close()

		if err = a.v.ReadConfig(fh); err != nil {
			return errors.Wrap(ErrConfig, "ReadConfig error: "+err.Error())
		}
	}

	a.v.SetDefault("log_level", "info")

	if err := a.envBindVars(); err != nil {
		return errors.Wrap(ErrConfig, "env var bind error: "+err.Error())
	}

	if err := a.v.Unmarshal(a.Config); err != nil {
		return errors.Wrap(ErrConfig, "Unmarshal error: "+err.Error())
	}

	a.applyDefaults()

	return nil
}

// applyDefaults fills the parameters the configuration left unset.
func (a *App) applyDefaults() {
	if a.Config.Deployment.MaxRetries < 1 {
		a.Config.Deployment.MaxRetries = defaultMaxRetries
	}

	if a.Config.Deployment.RetryDelay <= 0 {
		a.Config.Deployment.RetryDelay = defaultRetryDelay
	}

	if a.Config.MetricsEndpoint == "" {
		a.Config.MetricsEndpoint = metrics.DefaultEndpoint
	}

	if a.Config.Scope.MaxDeviceCount < 1 {
		a.Config.Scope.MaxDeviceCount = DefaultScopeCeiling
	}

	if a.Config.Store.RunArchivePath == "" {
		a.Config.Store.RunArchivePath = defaultRunArchivePath
	}

	if a.Config.Store.TemplatePath == "" {
		a.Config.Store.TemplatePath = defaultTemplatePath
	}
}

// envBindVars binds environment variables to the struct
// without a configuration file being unmarshalled,
// this is a workaround for a viper bug,
//
// This can be replaced by the solution in https://github.com/spf13/viper/pull/1429
// once that PR is merged.
func (a *App) envBindVars() error {
	envKeysMap := map[string]interface{}{}
	if err := mapstructure.Decode(a.Config, &envKeysMap); err != nil {
		return err
	}

	// Flatten nested conf map
	flat, err := flatten.Flatten(envKeysMap, "", flatten.DotStyle)
	if err != nil {
		return errors.Wrap(err, "Unable to flatten config")
	}

	for k := range flat {
		if err := a.v.BindEnv(k); err != nil {
			return errors.Wrap(ErrConfig, "env var bind error: "+err.Error())
		}
	}

	return nil
}
