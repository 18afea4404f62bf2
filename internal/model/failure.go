package model

// FailureDetail is the structured diagnostic attached to a device that
// reached a failed terminal state.
type FailureDetail struct {
	ErrorCode            string   `json:"error_code"`
	Reason               string   `json:"reason"`
	TroubleshootingSteps []string `json:"troubleshooting_steps"`
}

// Failure reason codes, the catalog below is fixed for a release.
const (
	FailureCodeConnectRetriesExhausted = "E-CONN-RETRY"
	FailureCodeWakeFailed              = "E-WAKE"
	FailureCodeScanFailed              = "E-SCAN"
	FailureCodeUpdateBIOS              = "E-UPD-BIOS"
	FailureCodeUpdateAgent             = "E-UPD-AGENT"
	FailureCodeUpdateOS                = "E-UPD-OS"
	FailureCodeRebootFailed            = "E-REBOOT"
	FailureCodeScopeRejected           = "E-SCOPE"
)

var failureCatalog = map[string]FailureDetail{
	FailureCodeConnectRetriesExhausted: {
		ErrorCode: FailureCodeConnectRetriesExhausted,
		Reason:    "device did not respond within the configured connection attempts",
		TroubleshootingSteps: []string{
			"confirm the device is powered on and cabled to the network",
			"verify the device VLAN allows management traffic",
			"check whether the endpoint agent service is running locally",
		},
	},
	FailureCodeWakeFailed: {
		ErrorCode: FailureCodeWakeFailed,
		Reason:    "wake request could not be delivered",
		TroubleshootingSteps: []string{
			"verify wake-on-LAN is enabled in the device firmware",
			"confirm the recorded MAC address matches the device NIC",
		},
	},
	FailureCodeScanFailed: {
		ErrorCode: FailureCodeScanFailed,
		Reason:    "compliance scan query failed",
		TroubleshootingSteps: []string{
			"re-run the scan for this device",
			"collect agent logs from the endpoint if the failure repeats",
		},
	},
	FailureCodeUpdateBIOS: {
		ErrorCode: FailureCodeUpdateBIOS,
		Reason:    "firmware update did not complete",
		TroubleshootingSteps: []string{
			"do not power cycle the device until its state is confirmed",
			"retry the firmware update from a fresh scan",
			"escalate to hardware support if the device no longer boots",
		},
	},
	FailureCodeUpdateAgent: {
		ErrorCode: FailureCodeUpdateAgent,
		Reason:    "management agent update did not complete",
		TroubleshootingSteps: []string{
			"check free disk space on the endpoint",
			"reinstall the agent package manually if the retry fails",
		},
	},
	FailureCodeUpdateOS: {
		ErrorCode: FailureCodeUpdateOS,
		Reason:    "operating system update did not complete",
		TroubleshootingSteps: []string{
			"review the endpoint update service logs",
			"ensure the device stays on mains power and retry",
		},
	},
	FailureCodeRebootFailed: {
		ErrorCode: FailureCodeRebootFailed,
		Reason:    "reboot request was not acknowledged",
		TroubleshootingSteps: []string{
			"check for applications blocking shutdown on the endpoint",
			"schedule a manual reboot with the device owner",
		},
	},
	FailureCodeScopeRejected: {
		ErrorCode: FailureCodeScopeRejected,
		Reason:    "device hostname is not in the campaign scope whitelist",
		TroubleshootingSteps: []string{
			"re-run scope verification including this device",
		},
	},
}

// FailureByCode returns the catalog entry for a failure code. Unknown codes
// return a generic detail carrying the code itself.
func FailureByCode(code string) FailureDetail {
	if detail, ok := failureCatalog[code]; ok {
		return detail
	}

	return FailureDetail{ErrorCode: code, Reason: "unrecognized failure"}
}

// UpdateFailureCode maps a component slug to its failure code.
func UpdateFailureCode(slug string) string {
	switch slug {
	case SlugBIOS:
		return FailureCodeUpdateBIOS
	case SlugAgent:
		return FailureCodeUpdateAgent
	case SlugOS:
		return FailureCodeUpdateOS
	default:
		return FailureCodeScanFailed
	}
}
