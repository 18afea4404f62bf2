package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/caretech-ops/fleetsweep/internal/app"
	"github.com/caretech-ops/fleetsweep/internal/archive"
	"github.com/caretech-ops/fleetsweep/internal/model"
)

var cmdHistory = &cobra.Command{
	Use:   "history",
	Short: "List archived deployment runs, newest first",
	Run: func(_ *cobra.Command, _ []string) {
		listHistory()
	},
}

func listHistory() {
	fleet, err := app.New(cfgFile, logLevel)
	if err != nil {
		log.Fatal(err)
	}

	store, err := archive.Open(fleet.Config.Store.RunArchivePath, fleet.Logger)
	if err != nil {
		fleet.Logger.Fatal(err)
	}

	runs, err := store.List()
	if err != nil {
		fleet.Logger.Fatal(err)
	}

	for _, run := range runs {
		fmt.Printf("%s  campaign=%s  devices=%d  success=%.0f%%  ok=%d failed=%d offline=%d cancelled=%d\n",
			run.EndTime.Format("2006-01-02 15:04"),
			run.CampaignID,
			run.TotalDevices,
			run.SuccessRate*100,
			run.StatusCounts[model.StatusSuccess],
			run.StatusCounts[model.StatusFailed],
			run.StatusCounts[model.StatusOffline],
			run.StatusCounts[model.StatusCancelled],
		)
	}

	if len(runs) == 0 {
		fmt.Println("no archived runs")
	}
}

func init() {
	rootCmd.AddCommand(cmdHistory)
}
