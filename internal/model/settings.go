package model

import (
	"time"

	"github.com/pkg/errors"
)

var ErrSettings = errors.New("deployment settings error")

// DeploymentSettings control retry and reboot behavior for a campaign.
type DeploymentSettings struct {
	// MaxRetries is the connection attempt bound per device, at least 1.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`

	// RetryDelay is the fixed wait between connection attempts.
	RetryDelay time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`

	// AutoReboot runs the reboot phase immediately after a successful update
	// instead of parking the device on pendingReboot.
	AutoReboot bool `mapstructure:"auto_reboot" yaml:"auto_reboot"`
}

// Validate checks settings bounds.
func (s DeploymentSettings) Validate() error {
	if s.MaxRetries < 1 {
		return errors.Wrap(ErrSettings, "max_retries must be >= 1")
	}

	if s.RetryDelay < 0 {
		return errors.Wrap(ErrSettings, "retry_delay must not be negative")
	}

	return nil
}

// TargetVersions declares the compliant version per component and whether
// applying that component implies a host reboot.
type TargetVersions struct {
	BIOS        string `mapstructure:"bios" yaml:"bios"`
	Agent       string `mapstructure:"agent" yaml:"agent"`
	OS          string `mapstructure:"os" yaml:"os"`
	BIOSReboot  bool   `mapstructure:"bios_reboot" yaml:"bios_reboot"`
	AgentReboot bool   `mapstructure:"agent_reboot" yaml:"agent_reboot"`
	OSReboot    bool   `mapstructure:"os_reboot" yaml:"os_reboot"`
}

// ForSlug returns the target version and reboot flag for a component slug.
func (t TargetVersions) ForSlug(slug string) (version string, reboot bool) {
	switch slug {
	case SlugBIOS:
		return t.BIOS, t.BIOSReboot
	case SlugAgent:
		return t.Agent, t.AgentReboot
	case SlugOS:
		return t.OS, t.OSReboot
	default:
		return "", false
	}
}
