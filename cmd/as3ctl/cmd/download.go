package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/f5devkit/as3ctl/internal/service/lifecycle"
)

var (
	// downloadVersion is the release name to download; empty means latest.
	downloadVersion string
	// downloadReleaseID downloads a specific release by numeric id.
	downloadReleaseID int64

	// downloadCmd fetches a release's package and notes without touching a device.
	downloadCmd = &cobra.Command{
		Use:   "download",
		Short: "Download an AS3 release package and its release notes",
		Long: `Downloads an AS3 extension release from GitHub into the configured download
directory, together with its release notes, and prints the package path.

Without flags the latest release is fetched. A release can also be selected
by name (--version v3.16.0) or by numeric id (--release-id 22093972).`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &lifecycle.DownloadRunOptions{
				ConfigPath: configPath,
				Version:    downloadVersion,
				ReleaseID:  downloadReleaseID,
			}

			return lifecycle.RunDownload(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	downloadCmd.Flags().StringVarP(&downloadVersion, "version", "v", "", "release name to download (default: latest)")
	downloadCmd.Flags().Int64Var(&downloadReleaseID, "release-id", 0, "numeric release id to download")
	rootCmd.AddCommand(downloadCmd)
}
