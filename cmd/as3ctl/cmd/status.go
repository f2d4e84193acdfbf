package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/f5devkit/as3ctl/internal/service/lifecycle"
)

var (
	// statusVersion requires the installed version to match exactly.
	statusVersion string
	// statusMinVersion requires the installed version to satisfy a minimum.
	statusMinVersion string

	// statusCmd reports the installed AS3 state.
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Report whether the AS3 extension package is installed",
		Long: `Queries the configured BIG-IP device for the installed AS3 extension state.

The exit code reflects the verdict: zero when the package is installed and
satisfies the requested checks, non-zero otherwise. --version requires an
exact version match; --min-version requires a semantic-version minimum.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &lifecycle.StatusRunOptions{
				ConfigPath: configPath,
				Connection: connectionOverrides(),
				Version:    statusVersion,
				MinVersion: statusMinVersion,
			}

			return lifecycle.RunStatus(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	statusCmd.Flags().StringVarP(&statusVersion, "version", "v", "", "expected installed version")
	statusCmd.Flags().StringVarP(&statusMinVersion, "min-version", "m", "", "minimum acceptable version")
	rootCmd.AddCommand(statusCmd)
}
