package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/caretech-ops/fleetsweep/internal/app"
	"github.com/caretech-ops/fleetsweep/internal/metrics"
	"github.com/caretech-ops/fleetsweep/internal/scriptcheck"
)

var cmdCheckScript = &cobra.Command{
	Use:   "check-script <script file>",
	Short: "Run the deployment script safety analyzer and print the findings",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		checkScript(args[0])
	},
}

// check-script command flags
var allowedHosts []string

func checkScript(path string) {
	fleet, err := app.New(cfgFile, logLevel)
	if err != nil {
		log.Fatal(err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		fleet.Logger.Fatal(err)
	}

	hosts := allowedHosts

	if len(hosts) == 0 {
		for _, entry := range fleet.Config.Devices {
			hosts = append(hosts, entry.Hostname)
		}
	}

	opts := scriptcheck.Options{
		BlockBroadcastCommands: fleet.Config.Scope.BlockBroadcastCommands,
		BlockRegistryWrites:    fleet.Config.Scope.BlockRegistryWrites,
		BlockServiceStops:      fleet.Config.Scope.BlockServiceStops,
	}

	result := scriptcheck.Analyze(string(raw), hosts, opts)

	metrics.ScriptsAnalyzed.WithLabelValues(string(result.RiskLevel)).Inc()

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fleet.Logger.Fatal(err)
	}

	fmt.Println(string(out))

	if !result.Safe {
		os.Exit(1)
	}
}

func init() {
	cmdCheckScript.PersistentFlags().StringSliceVar(&allowedHosts, "allow", nil, "hostnames treated as in scope, defaults to the configured device list")

	rootCmd.AddCommand(cmdCheckScript)
}
