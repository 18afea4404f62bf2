// Package redact strips credential-shaped substrings from log and error
// text before it is stored or displayed.
package redact

import (
	"regexp"

	"github.com/sirupsen/logrus"
)

const mask = "[REDACTED]"

var patterns = []struct {
	re          *regexp.Regexp
	replacement string
}{
	// key=value / key: value credential assignments
	{
		regexp.MustCompile(`(?i)\b(password|passwd|pwd|secret|token|api[_-]?key|credential)\b(\s*[:=]\s*)\S+`),
		"$1$2" + mask,
	},
	// bearer tokens in auth headers
	{
		regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/=-]+`),
		"Bearer " + mask,
	},
	// basic auth userinfo embedded in URLs
	{
		regexp.MustCompile(`\b([a-z][a-z0-9+.-]*://[^/\s:@]+):[^@\s]+@`),
		"$1:" + mask + "@",
	},
}

// Scrub returns the text with credential-shaped substrings masked.
func Scrub(text string) string {
	for _, p := range patterns {
		text = p.re.ReplaceAllString(text, p.replacement)
	}

	return text
}

// Hook is a logrus hook applying Scrub to every entry message and string
// field so nothing credential-shaped reaches a sink.
type Hook struct{}

func (Hook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (Hook) Fire(entry *logrus.Entry) error {
	entry.Message = Scrub(entry.Message)

	for key, value := range entry.Data {
		if s, ok := value.(string); ok {
			entry.Data[key] = Scrub(s)
		}
	}

	return nil
}
