// Package scriptcheck statically reviews a candidate command script against
// a fixed dangerous-pattern catalog before any execution is permitted.
//
// The analyzer is a safety control: identical (script, allowed hostnames)
// input always yields an identical result. There is no state and nothing
// learned or randomized in here.
package scriptcheck

import (
	"regexp"
	"strings"

	"github.com/caretech-ops/fleetsweep/internal/model"
)

// Options promote rule categories to BLOCKED based on the scope policy gates.
type Options struct {
	BlockBroadcastCommands bool
	BlockRegistryWrites    bool
	BlockServiceStops      bool
}

// OptionsFromPolicy derives analyzer options from an issued scope policy.
func OptionsFromPolicy(policy *model.ScopePolicy) Options {
	if policy == nil {
		return Options{}
	}

	return Options{
		BlockBroadcastCommands: policy.BlockBroadcastCommands,
		BlockRegistryWrites:    policy.BlockRegistryWrites,
		BlockServiceStops:      policy.BlockServiceStops,
	}
}

// host references are collected from positions where scripts typically name
// a target: UNC paths, PowerShell -ComputerName arguments and ssh/scp style
// user@host tokens.
var hostRefPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\\\\([A-Za-z0-9][A-Za-z0-9-]*)`),
	regexp.MustCompile(`(?i)-ComputerName\s+([A-Za-z0-9][A-Za-z0-9.-]*)`),
	regexp.MustCompile(`@([A-Za-z0-9][A-Za-z0-9.-]*)`),
}

// Analyze reviews the script line by line. Any BLOCKED match forces an
// unsafe result; references to hosts absent from allowedHosts are soft scope
// violations, not a hard stop.
func Analyze(script string, allowedHosts []string, opts Options) model.ScriptSafetyResult {
	result := model.ScriptSafetyResult{
		Safe:      true,
		RiskLevel: model.RiskLow,
	}

	allowed := map[string]struct{}{}
	for _, host := range allowedHosts {
		allowed[strings.ToUpper(strings.TrimSpace(host))] = struct{}{}
	}

	highest := model.SeverityInfo
	seenViolations := map[string]struct{}{}

	for idx, line := range strings.Split(script, "\n") {
		lineNo := idx + 1

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "::") {
			continue
		}

		for _, rule := range catalog {
			if !rule.Pattern.MatchString(line) {
				continue
			}

			severity := effectiveSeverity(rule, opts)

			result.Findings = append(result.Findings, model.Finding{
				Severity:       severity,
				Pattern:        rule.Name,
				Line:           lineNo,
				Description:    rule.Description,
				Recommendation: rule.Recommendation,
			})

			if severity == model.SeverityBlocked {
				result.Safe = false
				result.BlockedPatterns = append(result.BlockedPatterns, rule.Name)
			}

			if severity.AtLeast(highest) {
				highest = severity
			}
		}

		for _, ref := range hostReferences(line) {
			if _, ok := allowed[ref]; ok {
				continue
			}

			if _, dup := seenViolations[ref]; dup {
				continue
			}

			seenViolations[ref] = struct{}{}
			result.ScopeViolations = append(result.ScopeViolations, ref)
		}
	}

	if len(result.Findings) > 0 {
		result.RiskLevel = model.RiskForSeverity(highest)
	}

	return result
}

// effectiveSeverity applies the policy gate promotions.
func effectiveSeverity(rule Rule, opts Options) model.Severity {
	switch rule.Category {
	case CategoryBroadcast:
		if opts.BlockBroadcastCommands {
			return model.SeverityBlocked
		}
	case CategoryRegistry:
		if opts.BlockRegistryWrites {
			return model.SeverityBlocked
		}
	case CategoryService:
		if opts.BlockServiceStops {
			return model.SeverityBlocked
		}
	}

	return rule.Severity
}

func hostReferences(line string) []string {
	var refs []string

	for _, pattern := range hostRefPatterns {
		for _, match := range pattern.FindAllStringSubmatch(line, -1) {
			ref := strings.ToUpper(match[1])

			// wildcard targets are handled by the broadcast rule
			if ref == "" || ref == "*" {
				continue
			}

			refs = append(refs, ref)
		}
	}

	return refs
}
