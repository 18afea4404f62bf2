package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/caretech-ops/fleetsweep/internal/app"
	"github.com/caretech-ops/fleetsweep/internal/template"
)

var cmdTemplate = &cobra.Command{
	Use:   "template",
	Short: "Manage saved deployment settings templates",
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

var cmdTemplateList = &cobra.Command{
	Use:   "list",
	Short: "List saved templates",
	Run: func(_ *cobra.Command, _ []string) {
		store := openTemplateStore()

		for _, name := range store.Names() {
			tmpl, err := store.Get(name)
			if err != nil {
				log.Fatal(err)
			}

			fmt.Printf("%-20s retries=%d delay=%s auto_reboot=%v  %s\n",
				name,
				tmpl.Settings.MaxRetries,
				tmpl.Settings.RetryDelay,
				tmpl.Settings.AutoReboot,
				tmpl.Description,
			)
		}
	},
}

var cmdTemplateSave = &cobra.Command{
	Use:   "save <name>",
	Short: "Save the configured deployment settings under a template name",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		fleet, err := app.New(cfgFile, logLevel)
		if err != nil {
			log.Fatal(err)
		}

		store, err := template.Open(fleet.Config.Store.TemplatePath)
		if err != nil {
			log.Fatal(err)
		}

		err = store.Save(args[0], template.Template{
			Settings:    fleet.Config.Deployment,
			Description: templateDescription,
			Notes:       templateNotes,
		})
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println("saved template " + args[0])
	},
}

var cmdTemplateDelete = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved template",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		if err := openTemplateStore().Delete(args[0]); err != nil {
			log.Fatal(err)
		}

		fmt.Println("deleted template " + args[0])
	},
}

// template command flags
var (
	templateDescription string
	templateNotes       string
)

func openTemplateStore() *template.Store {
	fleet, err := app.New(cfgFile, logLevel)
	if err != nil {
		log.Fatal(err)
	}

	store, err := template.Open(fleet.Config.Store.TemplatePath)
	if err != nil {
		log.Fatal(err)
	}

	return store
}

func init() {
	cmdTemplateSave.PersistentFlags().StringVar(&templateDescription, "description", "", "one line template description")
	cmdTemplateSave.PersistentFlags().StringVar(&templateNotes, "notes", "", "free form operator notes")

	cmdTemplate.AddCommand(cmdTemplateList)
	cmdTemplate.AddCommand(cmdTemplateSave)
	cmdTemplate.AddCommand(cmdTemplateDelete)

	rootCmd.AddCommand(cmdTemplate)
}
