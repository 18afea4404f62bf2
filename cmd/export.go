package cmd

import (
	"fmt"

	"github.com/emicklei/dot"
	"github.com/spf13/cobra"

	"github.com/caretech-ops/fleetsweep/internal/statemachine"
)

type exportFlags struct {
	mermaid bool
	dotfmt  bool
}

var exportFlagSet = &exportFlags{}

var cmdExportStatemachine = &cobra.Command{
	Use:     "export-statemachine [--mermaid|--dot]",
	Aliases: []string{"graph"},
	Short:   "Export the device status graph for documentation and review",
	Run: func(_ *cobra.Command, _ []string) {
		exportStatemachine()
	},
}

func exportStatemachine() {
	g := statemachine.Graph()

	if exportFlagSet.dotfmt {
		fmt.Println(g.String())

		return
	}

	fmt.Println(dot.MermaidGraph(g, dot.MermaidTopDown))
}

func init() {
	cmdExportStatemachine.PersistentFlags().BoolVarP(&exportFlagSet.mermaid, "mermaid", "", true, "export the status graph in mermaid format")
	cmdExportStatemachine.PersistentFlags().BoolVarP(&exportFlagSet.dotfmt, "dot", "", false, "export the status graph in graphviz DOT format")

	rootCmd.AddCommand(cmdExportStatemachine)
}
