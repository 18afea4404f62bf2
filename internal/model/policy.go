package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ScopePolicy is the authorization record issued by the scope gate.
//
// A policy is immutable once issued and scoped to a single campaign; the
// orchestrator re-checks it at every update entry point, not only at
// verification time.
//
// nolint:govet // fieldalignment - struct is better readable in its current form.
type ScopePolicy struct {
	ID       uuid.UUID `json:"id"`
	IssuedAt time.Time `json:"issued_at"`

	AllowedHostnames []string `json:"allowed_hostnames"`
	AllowedMACs      []string `json:"allowed_macs"`

	// MaxDeviceCount is the hard ceiling enforced regardless of operator input.
	MaxDeviceCount int `json:"max_device_count"`

	BlockBroadcastCommands   bool `json:"block_broadcast_commands"`
	BlockRegistryWrites      bool `json:"block_registry_writes"`
	BlockServiceStops        bool `json:"block_service_stops"`
	EnforceHostnameWhitelist bool `json:"enforce_hostname_whitelist"`
}

// HostnameAllowed reports whether the hostname is in the policy whitelist.
// Matching is case-insensitive.
func (p *ScopePolicy) HostnameAllowed(hostname string) bool {
	for _, allowed := range p.AllowedHostnames {
		if strings.EqualFold(allowed, hostname) {
			return true
		}
	}

	return false
}
