package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trodix/keycloak-activiti-app-ext/internal/daemon"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(fixCmd)
}

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Run the admin data fixers and exit",
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return loadConfig()
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, err := daemon.New(&cfg)
		if err != nil {
			return err
		}
		defer func() { _ = d.Close() }()

		if failed := d.Fix(cmd.Context()); failed > 0 {
			return fmt.Errorf("%d data fixer(s) failed", failed) //nolint:goerr113
		}

		return nil
	},
}
