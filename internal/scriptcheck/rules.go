package scriptcheck

import (
	"regexp"

	"github.com/caretech-ops/fleetsweep/internal/model"
)

// Category groups rules so scope policy gates can promote whole classes.
type Category string

const (
	CategoryBroadcast   Category = "broadcast"
	CategoryRegistry    Category = "registry"
	CategoryService     Category = "service"
	CategoryDestructive Category = "destructive"
	CategoryPower       Category = "power"
	CategoryExecution   Category = "execution"
	CategoryCredential  Category = "credential"
	CategoryRecon       Category = "recon"
)

// Rule is one dangerous-pattern entry in the fixed catalog.
//
// nolint:govet // fieldalignment - struct is better readable in its current form.
type Rule struct {
	Name           string
	Severity       model.Severity
	Category       Category
	Pattern        *regexp.Regexp
	Description    string
	Recommendation string
}

// catalog is evaluated in order against every script line. The order and the
// content are fixed - the analyzer is a safety control and must stay
// deterministic for identical input.
var catalog = []Rule{
	{
		Name:           "filesystem-wipe",
		Severity:       model.SeverityBlocked,
		Category:       CategoryDestructive,
		Pattern:        regexp.MustCompile(`(?i)\brm\s+(-[a-z]*r[a-z]*f|-[a-z]*f[a-z]*r)[a-z]*\s+/(\s|$)`),
		Description:    "recursive forced delete of the filesystem root",
		Recommendation: "remove the command, root deletion is never part of an update",
	},
	{
		Name:           "volume-format",
		Severity:       model.SeverityBlocked,
		Category:       CategoryDestructive,
		Pattern:        regexp.MustCompile(`(?i)\b(format\s+[a-z]:|mkfs(\.\w+)?\b)`),
		Description:    "reformats a volume, destroying its contents",
		Recommendation: "remove the command, reimaging is handled outside update campaigns",
	},
	{
		Name:           "system-tree-delete",
		Severity:       model.SeverityBlocked,
		Category:       CategoryDestructive,
		Pattern:        regexp.MustCompile(`(?i)\bdel\s+/[sq]\b.*\\(windows|system32)`),
		Description:    "bulk delete under the system directory",
		Recommendation: "remove the command or scope it to the update staging directory",
	},
	{
		Name:           "disk-overwrite",
		Severity:       model.SeverityBlocked,
		Category:       CategoryDestructive,
		Pattern:        regexp.MustCompile(`(?i)\bdd\s+.*of=/dev/(sd|hd|nvme)`),
		Description:    "raw write to a block device",
		Recommendation: "remove the command",
	},
	{
		Name:           "broadcast-target",
		Severity:       model.SeverityDanger,
		Category:       CategoryBroadcast,
		Pattern:        regexp.MustCompile(`(?i)(255\.255\.255\.255|psexec\s+\\\\\*|Invoke-Command\s+.*-ComputerName\s+\*)`),
		Description:    "command addresses every host on the segment",
		Recommendation: "target only the devices verified by the campaign scope",
	},
	{
		Name:           "registry-write",
		Severity:       model.SeverityDanger,
		Category:       CategoryRegistry,
		Pattern:        regexp.MustCompile(`(?i)(\breg(\.exe)?\s+(add|delete)\b|Set-ItemProperty\s+.*HKLM|New-ItemProperty\s+.*HKLM)`),
		Description:    "writes to the machine registry hive",
		Recommendation: "prefer the agent configuration channel over direct registry writes",
	},
	{
		Name:           "service-stop",
		Severity:       model.SeverityDanger,
		Category:       CategoryService,
		Pattern:        regexp.MustCompile(`(?i)(\bnet\s+stop\b|\bsc\s+(stop|config)\b|Stop-Service\b|systemctl\s+(stop|disable))`),
		Description:    "stops or disables a system service",
		Recommendation: "document which service is touched and why, clinical systems may depend on it",
	},
	{
		Name:           "forced-power-change",
		Severity:       model.SeverityDanger,
		Category:       CategoryPower,
		Pattern:        regexp.MustCompile(`(?i)(\bshutdown\b\s+[-/]|Restart-Computer\b|\breboot\b\s*$|\bhalt\b\s*$)`),
		Description:    "forces a host power state change outside the managed reboot phase",
		Recommendation: "let the orchestrator schedule reboots so pending clinical sessions drain first",
	},
	{
		Name:           "download-and-execute",
		Severity:       model.SeverityDanger,
		Category:       CategoryExecution,
		Pattern:        regexp.MustCompile(`(?i)(curl|wget|Invoke-WebRequest|iwr)\b.*\|\s*(sh|bash|iex|powershell)`),
		Description:    "pipes downloaded content straight into an interpreter",
		Recommendation: "stage artifacts through the approved update share with checksums",
	},
	{
		Name:           "inline-expression-eval",
		Severity:       model.SeverityWarning,
		Category:       CategoryExecution,
		Pattern:        regexp.MustCompile(`(?i)\b(iex|invoke-expression|eval)\b`),
		Description:    "evaluates a dynamically built expression",
		Recommendation: "inline the command so review can see exactly what runs",
	},
	{
		Name:           "plaintext-credential",
		Severity:       model.SeverityWarning,
		Category:       CategoryCredential,
		Pattern:        regexp.MustCompile(`(?i)(password|passwd|secret|api[_-]?key)\s*[:=]\s*\S+`),
		Description:    "credential material embedded in the script",
		Recommendation: "move the secret into the credential store and reference it",
	},
	{
		Name:           "credential-dump",
		Severity:       model.SeverityBlocked,
		Category:       CategoryCredential,
		Pattern:        regexp.MustCompile(`(?i)(mimikatz|sekurlsa|lsass\.exe.*dump|procdump.*lsass)`),
		Description:    "harvests credentials from memory",
		Recommendation: "remove the command and report how it entered the script",
	},
	{
		Name:           "host-recon",
		Severity:       model.SeverityInfo,
		Category:       CategoryRecon,
		Pattern:        regexp.MustCompile(`(?i)\b(whoami|hostname|ipconfig|Get-ComputerInfo|systeminfo)\b`),
		Description:    "collects host information",
		Recommendation: "",
	},
}

// Rules returns the catalog, exposed for documentation commands.
func Rules() []Rule {
	out := make([]Rule, len(catalog))
	copy(out, catalog)

	return out
}
