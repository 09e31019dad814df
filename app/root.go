// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/trodix/keycloak-activiti-app-ext/internal/config"
	"github.com/trodix/keycloak-activiti-app-ext/internal/logger"
)

var (
	configPath string // Path to the configuration file

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "keycloak-ext",
	Short: "keycloak-ext reconciles external identities into the internal user and group store",
	Long: `keycloak-ext authenticates logins with the configured strategy (identity service,
Keycloak bearer tokens, LDAP or local accounts) and converges the internal users,
groups and memberships with the roles asserted by the identity provider.`,
	Args:          cobra.OnlyValidArgs,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./etc/main.toml", "Path to the configuration file")
}

// loadConfig reads the configuration and initialises logging.
func loadConfig() error {
	var err error
	if cfg, err = config.ReadConfig(configPath); err != nil {
		return err
	}

	if devMode {
		cfg.DevMode = true
	}

	return logger.Init(cfg.Log)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
