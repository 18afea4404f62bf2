package model

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrInvalidMAC = errors.New("invalid MAC address")

	macSeparators = strings.NewReplacer(":", "", "-", "", ".", "", " ", "")
	macHex12      = regexp.MustCompile(`^[0-9A-F]{12}$`)
)

// Component slugs, in the order updates are applied.
const (
	SlugBIOS  = "bios"
	SlugAgent = "agent"
	SlugOS    = "os"
)

// UpdateOrder defines the fixed order in which device components are updated,
// firmware class first, then the management agent, then the OS.
var UpdateOrder = []string{SlugBIOS, SlugAgent, SlugOS}

// Device is a single endpoint targeted by a campaign.
//
// nolint:govet // fieldalignment - struct is better readable in its current form.
type Device struct {
	ID uuid.UUID `json:"id"`

	Hostname string `json:"hostname"`

	// MAC is held in canonical form - separators stripped, upper cased, 12 hex digits.
	MAC string `json:"mac"`

	Status Status `json:"status"`

	// RetryAttempt is the count of connection attempts made for this device.
	RetryAttempt int `json:"retry_attempt"`

	// Components tracked for compliance, keyed lookup through the Components helpers.
	Components Components `json:"components"`

	// Discovered holds metadata collected during the inventory scan phase.
	Discovered Discovered `json:"discovered"`

	// ScopeVerified is set by the scope gate when the operator acknowledged
	// this device individually and the policy was issued.
	ScopeVerified   bool      `json:"scope_verified"`
	ScopeVerifiedAt time.Time `json:"scope_verified_at,omitempty"`

	// LastUpdateResult records the per-component outcome of the most recent update.
	LastUpdateResult *UpdateResult `json:"last_update_result,omitempty"`

	// FailureDetail is set when the device lands on a failed terminal state.
	FailureDetail *FailureDetail `json:"failure_detail,omitempty"`
}

// NewDevice returns a pending device with the tracked component set seeded.
// mac must already be in canonical form.
func NewDevice(hostname, mac string) Device {
	return Device{
		ID:       uuid.New(),
		Hostname: hostname,
		MAC:      mac,
		Status:   StatusPending,
		Components: Components{
			{Slug: SlugBIOS},
			{Slug: SlugAgent},
			{Slug: SlugOS},
		},
	}
}

// Discovered holds device metadata returned by the inventory scan.
type Discovered struct {
	IP        string `json:"ip,omitempty"`
	Serial    string `json:"serial,omitempty"`
	Model     string `json:"model,omitempty"`
	RAMGB     int    `json:"ram_gb,omitempty"`
	DiskGB    int    `json:"disk_gb,omitempty"`
	Encrypted bool   `json:"encrypted"`
}

// Component tracks one updatable component on a device.
type Component struct {
	Slug             string `json:"slug"`
	CurrentVersion   string `json:"current_version,omitempty"`
	TargetVersion    string `json:"target_version,omitempty"`
	UpdateNeeded     bool   `json:"update_needed"`
	RebootRequired   bool   `json:"reboot_required"`
	InstalledVersion string `json:"installed_version,omitempty"`
}

type Components []Component

// BySlug returns a pointer into the collection for the matching slug.
func (c Components) BySlug(slug string) *Component {
	for idx := range c {
		if strings.EqualFold(c[idx].Slug, slug) {
			return &c[idx]
		}
	}

	return nil
}

// UpdatesNeeded returns the slugs requiring an update, in install order.
func (c Components) UpdatesNeeded() []string {
	var slugs []string

	for _, slug := range UpdateOrder {
		if component := c.BySlug(slug); component != nil && component.UpdateNeeded {
			slugs = append(slugs, slug)
		}
	}

	return slugs
}

// UpdateResult records which components were applied and which failed.
type UpdateResult struct {
	Succeeded []string `json:"succeeded"`
	Failed    []string `json:"failed"`
}

// NormalizeMAC strips separators, upper cases and validates the given MAC,
// returning its canonical 12 hex digit form.
func NormalizeMAC(mac string) (string, error) {
	normalized := strings.ToUpper(macSeparators.Replace(strings.TrimSpace(mac)))

	if !macHex12.MatchString(normalized) {
		return "", errors.Wrap(ErrInvalidMAC, mac)
	}

	return normalized, nil
}
