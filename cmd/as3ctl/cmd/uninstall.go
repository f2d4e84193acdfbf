package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/f5devkit/as3ctl/internal/service/lifecycle"
)

// uninstallCmd removes the currently installed AS3 package from the device.
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the AS3 extension package from the device",
	Long: `Removes the currently installed AS3 extension package from the configured
BIG-IP device. The package name is derived from the version and release the
device reports.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		// Setup graceful shutdown handling.
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		options := &lifecycle.UninstallRunOptions{
			ConfigPath: configPath,
			Connection: connectionOverrides(),
		}

		return lifecycle.RunUninstall(ctx, options)
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(uninstallCmd)
}
