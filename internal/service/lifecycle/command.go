package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/f5devkit/as3ctl/internal/config"
	"github.com/f5devkit/as3ctl/internal/logger"
)

// ConnectionOverrides are the per-invocation connection settings supplied via
// CLI flags; non-zero fields win over the settings file.
type ConnectionOverrides struct {
	// Host is the device management address.
	Host string
	// Username authenticates against the device.
	Username string
	// Password authenticates against the device.
	Password string
	// Port is the management REST port.
	Port int
	// UseToken switches to token authentication when set.
	UseToken bool
}

// InstallRunOptions are inputs accepted by the install entry point.
type InstallRunOptions struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// Connection overrides the settings file per invocation.
	Connection ConnectionOverrides
	// Version is the release name to install; empty means latest.
	Version string
	// Filename is a local package file to install instead of downloading.
	Filename string
}

// UninstallRunOptions are inputs accepted by the uninstall entry point.
type UninstallRunOptions struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// Connection overrides the settings file per invocation.
	Connection ConnectionOverrides
}

// StatusRunOptions are inputs accepted by the status entry point.
type StatusRunOptions struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// Connection overrides the settings file per invocation.
	Connection ConnectionOverrides
	// Version, when set, requires the installed version to match exactly.
	Version string
	// MinVersion, when set, requires the installed version to satisfy a minimum.
	MinVersion string
}

// DownloadRunOptions are inputs accepted by the download entry point.
type DownloadRunOptions struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// Version is the release name to download; empty means latest.
	Version string
	// ReleaseID downloads a specific release by numeric id, overriding Version.
	ReleaseID int64
}

// RunInstall executes the install workflow and is the entry point for the CLI.
func RunInstall(ctx context.Context, opts *InstallRunOptions) error {
	ctx = logger.WithName(ctx, "install")

	cfg, err := loadConfig(opts.ConfigPath, opts.Connection)
	if err != nil {
		return err
	}

	manager := NewManager(cfg, WithProgress(true))

	if err = manager.Install(ctx, InstallOptions{
		Version:  opts.Version,
		Filename: opts.Filename,
	}); err != nil {
		logger.ErrorKV(ctx, "Install failed", "error", err)
		return err
	}

	return nil
}

// RunUninstall executes the uninstall workflow and is the entry point for the CLI.
func RunUninstall(ctx context.Context, opts *UninstallRunOptions) error {
	ctx = logger.WithName(ctx, "uninstall")

	cfg, err := loadConfig(opts.ConfigPath, opts.Connection)
	if err != nil {
		return err
	}

	if err = NewManager(cfg).Uninstall(ctx); err != nil {
		logger.ErrorKV(ctx, "Uninstall failed", "error", err)
		return err
	}

	return nil
}

// RunStatus reports the installed state and is the entry point for the CLI.
// It returns a non-nil error when AS3 is absent or fails the requested
// version checks, so the process exit code reflects the verdict.
func RunStatus(ctx context.Context, opts *StatusRunOptions) error {
	ctx = logger.WithName(ctx, "status")

	cfg, err := loadConfig(opts.ConfigPath, opts.Connection)
	if err != nil {
		return err
	}

	manager := NewManager(cfg)

	info, ok, err := manager.IsInstalled(ctx, opts.Version)
	if err != nil {
		return err
	}

	if !ok {
		if opts.Version != "" {
			return newError(KindNotInstalled,
				"AS3 %s is not installed on %s", opts.Version, cfg.Host)
		}

		return newError(KindNotInstalled, "AS3 is not installed on %s", cfg.Host)
	}

	logger.InfoKV(ctx, "AS3 is installed",
		"host", cfg.Host, "version", info.Version, "release", info.Release)

	if opts.MinVersion != "" {
		if info.Version == "" {
			return newError(KindVerification,
				"device %s reports no version to compare against %s", cfg.Host, opts.MinVersion)
		}

		satisfied, err := CheckMinimumVersion(info.Version, opts.MinVersion)
		if err != nil {
			return err
		}

		if !satisfied {
			return newError(KindVerification,
				"installed version %s is below the required minimum %s", info.Version, opts.MinVersion)
		}

		logger.InfoKV(ctx, "Minimum version satisfied",
			"installed", info.Version, "minimum", opts.MinVersion)
	}

	return nil
}

// RunDownload fetches a release's package and notes without touching any
// device, and is the entry point for the CLI.
func RunDownload(ctx context.Context, opts *DownloadRunOptions) error {
	ctx = logger.WithName(ctx, "download")

	cfg, err := loadConfig(opts.ConfigPath, ConnectionOverrides{})
	if err != nil {
		return err
	}

	manager := NewManager(cfg, WithProgress(true))

	releaseID := opts.ReleaseID
	if releaseID == 0 && opts.Version != "" {
		if releaseID, err = manager.VersionToID(ctx, opts.Version); err != nil {
			return err
		}
	}

	localPath, err := manager.RetrieveVersion(ctx, releaseID)
	if err != nil {
		logger.ErrorKV(ctx, "Download failed", "error", err)
		return err
	}

	fmt.Println(localPath)

	return nil
}

// loadConfig reads the settings file, tolerating its absence when enough is
// supplied via overrides, then applies the overrides and validates the result.
func loadConfig(path string, overrides ConnectionOverrides) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}

		cfg = &config.Config{}
	}

	if overrides.Host != "" {
		cfg.Host = overrides.Host
	}

	if overrides.Username != "" {
		cfg.Username = overrides.Username
	}

	if overrides.Password != "" {
		cfg.Password = overrides.Password
	}

	if overrides.Port != 0 {
		cfg.Port = overrides.Port
	}

	if overrides.UseToken {
		cfg.UseToken = true
	}

	// The stock loopback default mirrors running directly on the device.
	if cfg.Host == "" {
		cfg.Host = config.DefaultHost
	}

	if err = config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
