package model

// Severity tags a script analysis finding.
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityDanger  Severity = "DANGER"
	SeverityBlocked Severity = "BLOCKED"
)

// rank orders severities for risk aggregation.
func (s Severity) rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityDanger:
		return 3
	case SeverityBlocked:
		return 4
	default:
		return 0
	}
}

// AtLeast reports whether s is as severe as other.
func (s Severity) AtLeast(other Severity) bool { return s.rank() >= other.rank() }

// RiskLevel is the overall script risk classification.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RiskForSeverity maps the highest observed finding severity to a risk level.
func RiskForSeverity(s Severity) RiskLevel {
	switch s {
	case SeverityWarning:
		return RiskMedium
	case SeverityDanger:
		return RiskHigh
	case SeverityBlocked:
		return RiskCritical
	default:
		return RiskLow
	}
}

// Finding is a single rule match within the analyzed script.
//
// nolint:govet // fieldalignment - struct is better readable in its current form.
type Finding struct {
	Severity       Severity `json:"severity"`
	Pattern        string   `json:"pattern"`
	Line           int      `json:"line"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`
}

// ScriptSafetyResult is the deterministic output of the script safety
// analyzer for a given (script, allowed hostnames) input.
type ScriptSafetyResult struct {
	Safe            bool      `json:"is_safe"`
	RiskLevel       RiskLevel `json:"risk_level"`
	Findings        []Finding `json:"findings"`
	BlockedPatterns []string  `json:"blocked_patterns"`
	ScopeViolations []string  `json:"scope_violations"`
}
