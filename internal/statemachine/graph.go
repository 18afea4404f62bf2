package statemachine

import (
	"github.com/emicklei/dot"

	"github.com/caretech-ops/fleetsweep/internal/model"
)

// Graph renders the device status graph as DOT for documentation and review.
func Graph() *dot.Graph {
	g := dot.NewGraph(dot.Directed)

	nodes := map[model.Status]dot.Node{}
	for _, status := range model.Statuses() {
		nodes[status] = g.Node(string(status))
	}

	g.Edge(nodes[model.StatusPending], nodes[model.StatusWakingUp], "wake")
	g.Edge(nodes[model.StatusWakingUp], nodes[model.StatusConnecting], "connect")
	g.Edge(nodes[model.StatusConnecting], nodes[model.StatusRetrying], "attempt failed")
	g.Edge(nodes[model.StatusRetrying], nodes[model.StatusConnecting], "next attempt")
	g.Edge(nodes[model.StatusConnecting], nodes[model.StatusOffline], "retries exhausted")
	g.Edge(nodes[model.StatusConnecting], nodes[model.StatusScanningInfo], "connected")
	g.Edge(nodes[model.StatusScanningInfo], nodes[model.StatusScanningBIOS])
	g.Edge(nodes[model.StatusScanningBIOS], nodes[model.StatusScanningAgent])
	g.Edge(nodes[model.StatusScanningAgent], nodes[model.StatusScanningOS])
	g.Edge(nodes[model.StatusScanningOS], nodes[model.StatusScanComplete], "updates required")
	g.Edge(nodes[model.StatusScanningOS], nodes[model.StatusSuccess], "compliant")
	g.Edge(nodes[model.StatusScanComplete], nodes[model.StatusUpdating], "update")
	g.Edge(nodes[model.StatusUpdating], nodes[model.StatusFailed], "component failed")
	g.Edge(nodes[model.StatusUpdating], nodes[model.StatusSuccess], "no reboot required")
	g.Edge(nodes[model.StatusUpdating], nodes[model.StatusPendingReboot], "reboot required")
	g.Edge(nodes[model.StatusUpdating], nodes[model.StatusRebooting], "auto reboot")
	g.Edge(nodes[model.StatusPendingReboot], nodes[model.StatusRebooting], "reboot")
	g.Edge(nodes[model.StatusRebooting], nodes[model.StatusSuccess])
	g.Edge(nodes[model.StatusRebooting], nodes[model.StatusFailed], "reboot failed")

	for _, status := range model.Statuses() {
		if status.Terminal() || status == model.StatusCancelled {
			continue
		}

		g.Edge(nodes[status], nodes[model.StatusCancelled], "cancel")
	}

	return g
}
