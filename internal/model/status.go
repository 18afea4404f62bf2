package model

// Status is the per-device campaign state machine tag.
type Status string

const (
	StatusPending       Status = "pending"
	StatusWakingUp      Status = "wakingUp"
	StatusConnecting    Status = "connecting"
	StatusRetrying      Status = "retrying"
	StatusScanningInfo  Status = "scanningInfo"
	StatusScanningBIOS  Status = "scanningBIOS"
	StatusScanningAgent Status = "scanningAgent"
	StatusScanningOS    Status = "scanningOS"
	StatusScanComplete  Status = "scanComplete"
	StatusUpdating      Status = "updating"
	StatusPendingReboot Status = "pendingReboot"
	StatusRebooting     Status = "rebooting"
	StatusSuccess       Status = "success"
	StatusFailed        Status = "failed"
	StatusOffline       Status = "offline"
	StatusCancelled     Status = "cancelled"
)

// terminalStates are states from which no further automatic transition occurs
// except through a new campaign.
var terminalStates = map[Status]struct{}{
	StatusSuccess:   {},
	StatusFailed:    {},
	StatusOffline:   {},
	StatusCancelled: {},
}

// Terminal indicates no further transitions apply to the device this campaign.
func (s Status) Terminal() bool {
	_, terminal := terminalStates[s]
	return terminal
}

// Statuses returns every defined device status.
func Statuses() []Status {
	return []Status{
		StatusPending,
		StatusWakingUp,
		StatusConnecting,
		StatusRetrying,
		StatusScanningInfo,
		StatusScanningBIOS,
		StatusScanningAgent,
		StatusScanningOS,
		StatusScanComplete,
		StatusUpdating,
		StatusPendingReboot,
		StatusRebooting,
		StatusSuccess,
		StatusFailed,
		StatusOffline,
		StatusCancelled,
	}
}
