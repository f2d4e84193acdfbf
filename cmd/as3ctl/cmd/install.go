package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/f5devkit/as3ctl/internal/service/lifecycle"
)

var (
	// installVersion is the release name to install; empty means latest.
	installVersion string
	// installFile is a local package file to install instead of downloading.
	installFile string

	// installCmd downloads (when needed) and installs the AS3 package.
	installCmd = &cobra.Command{
		Use:   "install",
		Short: "Install the AS3 extension package on the device",
		Long: `Installs the AS3 extension package on the configured BIG-IP device.

Without flags the latest release is downloaded from GitHub and installed.
A specific release can be selected by name (--version v3.16.0), or a package
file already on disk can be supplied with --file.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &lifecycle.InstallRunOptions{
				ConfigPath: configPath,
				Connection: connectionOverrides(),
				Version:    installVersion,
				Filename:   installFile,
			}

			return lifecycle.RunInstall(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	installCmd.Flags().StringVarP(&installVersion, "version", "v", "", "release name to install (default: latest)")
	installCmd.Flags().StringVarP(&installFile, "file", "f", "", "local package file to install")
	rootCmd.AddCommand(installCmd)
}
