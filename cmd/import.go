package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/caretech-ops/fleetsweep/internal/intake"
)

var cmdImport = &cobra.Command{
	Use:   "import <csv file>",
	Short: "Validate a device import file and preview which rows would load",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		importDevices(args[0])
	},
}

func importDevices(path string) {
	fh, err := os.Open(path)
	if err != nil {
		log.Fatal(err)
	}

	defer fh.Close()

	result, err := intake.LoadCSV(fh)
	if err != nil {
		log.Fatal(err)
	}

	for _, device := range result.Devices {
		fmt.Printf("load    %-20s %s\n", device.Hostname, device.MAC)
	}

	for _, rejection := range result.Rejected {
		fmt.Printf("reject  %s\n", rejection.Error())
	}

	fmt.Printf("\n%d loaded, %d rejected\n", len(result.Devices), len(result.Rejected))

	if len(result.Rejected) > 0 {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(cmdImport)
}
