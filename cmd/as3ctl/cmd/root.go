package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/f5devkit/as3ctl/internal/config"
	"github.com/f5devkit/as3ctl/internal/logger"
	"github.com/f5devkit/as3ctl/internal/service/lifecycle"
	"github.com/f5devkit/as3ctl/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel selects the minimum level for console output.
	logLevel string

	// Connection flags override the settings file per invocation.
	flagHost     string
	flagUsername string
	flagPassword string
	flagPort     int
	flagUseToken bool

	// rootCmd represents the base command for AS3 package lifecycle operations.
	rootCmd = &cobra.Command{
		Use:   "as3ctl",
		Short: "Manage the F5 AS3 extension package on a BIG-IP device.",
		Long: `as3ctl automates lifecycle operations for the F5 AS3 extension package:
installing and uninstalling it on a BIG-IP device over the management REST
API, checking the installed version, and downloading release artifacts from
the AS3 GitHub releases.

Connection settings are read from a YAML file and can be overridden per
invocation with flags.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
				logger.SetLogger(logger.New(nil, logger.WithLevel(level)))
			}
		},
	}
)

// connectionOverrides collects the flag values into the per-invocation override set.
func connectionOverrides() lifecycle.ConnectionOverrides {
	return lifecycle.ConnectionOverrides{
		Host:     flagHost,
		Username: flagUsername,
		Password: flagPassword,
		Port:     flagPort,
		UseToken: flagUseToken,
	}
}

// Execute runs the as3ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVarP(&logLevel, "log-level", "l", "info", "logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagHost, "host", "", "BIG-IP management address")
	rootCmd.PersistentFlags().StringVar(&flagUsername, "username", "", "BIG-IP username")
	rootCmd.PersistentFlags().StringVar(&flagPassword, "password", "", "BIG-IP password")
	rootCmd.PersistentFlags().IntVar(&flagPort, "port", 0, "BIG-IP management port")
	rootCmd.PersistentFlags().BoolVar(&flagUseToken, "token", false, "authenticate with a login token")
}
