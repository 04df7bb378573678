package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Afuraka666/Ungana-Medical-sub000/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize ungana configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure case generation and writes a .ungana.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
