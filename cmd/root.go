// Package cmd wires the fleetsweep commands.
package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "fleetsweep",
	Short: "fleetsweep runs supervised update campaigns over a clinical workstation fleet",
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// Execute runs the root command.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration YAML file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "app log level - one of info, debug, trace")
}
