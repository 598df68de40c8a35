package cmd

import (
	"github.com/spf13/cobra"

	"github.com/openlegis/billchat/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize billchat configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure billchat and generates a billchat.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
