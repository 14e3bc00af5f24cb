package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bitvia/bitvia/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Configure bitvia with an interactive wizard",
	Long:  `Runs an interactive wizard asking for node, index and server settings and writes a .bitvia.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
