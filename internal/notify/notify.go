// Package notify delivers best-effort desktop notifications on campaign
// termination. Delivery is fire and forget - never authoritative, never
// retried.
package notify

import (
	"os/exec"
	"runtime"

	"github.com/sirupsen/logrus"
)

// Notifier delivers a single notification.
type Notifier interface {
	Send(title, body string)
}

// Desktop shells out to the platform notification bridge.
type Desktop struct {
	logger *logrus.Entry
}

func NewDesktop(logger *logrus.Entry) *Desktop {
	return &Desktop{logger: logger}
}

// Send dispatches the notification in the background; a failed delivery is
// logged at debug and dropped.
func (d *Desktop) Send(title, body string) {
	go func() {
		var cmd *exec.Cmd

		switch runtime.GOOS {
		case "darwin":
			script := "display notification " + appleQuote(body) + " with title " + appleQuote(title)
			cmd = exec.Command("osascript", "-e", script)
		case "linux":
			cmd = exec.Command("notify-send", title, body)
		default:
			return
		}

		if err := cmd.Run(); err != nil && d.logger != nil {
			d.logger.WithError(err).Debug("desktop notification delivery failed")
		}
	}()
}

func appleQuote(s string) string {
	quoted := make([]rune, 0, len(s)+2)
	quoted = append(quoted, '"')

	for _, r := range s {
		if r == '"' || r == '\\' {
			quoted = append(quoted, '\\')
		}

		quoted = append(quoted, r)
	}

	return string(append(quoted, '"'))
}

// Discard drops every notification, used where no desktop session exists.
type Discard struct{}

func (Discard) Send(string, string) {}
