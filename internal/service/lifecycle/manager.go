package lifecycle

import (
	"context"
	"errors"
	"io"
	"time"

	goversion "github.com/hashicorp/go-version"

	"github.com/f5devkit/as3ctl/internal/bigip"
	"github.com/f5devkit/as3ctl/internal/config"
	"github.com/f5devkit/as3ctl/internal/github"
	"github.com/f5devkit/as3ctl/internal/logger"
	"github.com/f5devkit/as3ctl/internal/repository/history"
)

// Device is the slice of the BIG-IP client the lifecycle consumes.
type Device interface {
	Get(ctx context.Context, path string) (map[string]any, error)
	Create(ctx context.Context, path string, body any) (*bigip.Response, error)
	UploadFile(ctx context.Context, localPath string) error
	RunCommand(ctx context.Context, command string) error
}

// Catalog is the slice of the release catalog the lifecycle consumes.
type Catalog interface {
	Releases(ctx context.Context) ([]github.Release, error)
	LatestRelease(ctx context.Context) (*github.Release, error)
	Release(ctx context.Context, id int64) (*github.Release, error)
	DownloadAsset(ctx context.Context, asset github.Asset, dst io.Writer) error
}

// PackageInfo is the installed-state snapshot reported by the device.
type PackageInfo struct {
	// Version is the installed AS3 version, empty when the endpoint omits it.
	Version string
	// Release is the package release number, empty when the endpoint omits it.
	Release string
	// Raw is the full mapping returned by the info endpoint.
	Raw map[string]any
}

// Manager orchestrates the AS3 package lifecycle against one device.
// The device session is established on first use and reused for the
// lifetime of the manager; the instance drives one device sequentially.
type Manager struct {
	// cfg is the immutable configuration supplied at construction.
	cfg *config.Config
	// catalog resolves and downloads release artifacts.
	catalog Catalog
	// device is the established session, nil until first use.
	device Device
	// history records completed operations, best-effort.
	history history.Repository
	// progress enables a byte progress bar during asset downloads.
	progress bool
}

// ManagerOption configures the manager.
type ManagerOption func(*Manager)

// WithDevice supplies an already-established device session (used by tests).
func WithDevice(d Device) ManagerOption {
	return func(m *Manager) {
		m.device = d
	}
}

// WithCatalog replaces the release catalog (used by tests).
func WithCatalog(c Catalog) ManagerOption {
	return func(m *Manager) {
		m.catalog = c
	}
}

// WithHistory replaces the operation history repository.
func WithHistory(h history.Repository) ManagerOption {
	return func(m *Manager) {
		m.history = h
	}
}

// WithProgress toggles the download progress bar; off by default so that
// library use and tests stay quiet.
func WithProgress(enabled bool) ManagerOption {
	return func(m *Manager) {
		m.progress = enabled
	}
}

const (
	// taskPath accepts asynchronous package management tasks; acceptance is 202.
	taskPath = "/mgmt/shared/iapp/package-management-tasks"
	// infoPath reports the installed AS3 state.
	infoPath = "/mgmt/shared/appsvcs/info"
	// remoteDownloadDir is where uploaded files land on the device.
	remoteDownloadDir = "/var/config/rest/downloads/"
	// enableCommand activates the iApps LX framework, a prerequisite for
	// package management tasks on older BIG-IP versions.
	enableCommand = "touch /var/config/rest/iapps/enable"
	// packageExtension selects the installable asset within a release.
	packageExtension = ".rpm"
	// packagePrefix is the canonical AS3 package name stem.
	packagePrefix = "f5-appsvcs"
)

// NewManager builds a lifecycle manager for the given configuration.
func NewManager(cfg *config.Config, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:     cfg,
		catalog: github.NewCatalog(cfg.ReleaseRepository),
		history: history.NewFileRepository(cfg.HistoryFile),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// ensureDevice returns the established session, dialing it on first use.
func (m *Manager) ensureDevice(ctx context.Context) (Device, error) {
	if m.device != nil {
		return m.device, nil
	}

	client, err := bigip.Dial(ctx, m.cfg)
	if err != nil {
		return nil, wrapError(KindConnection, err, "connect to %s", m.cfg.Host)
	}

	logger.InfoKV(ctx, "Connected to device", "host", m.cfg.Host, "token_auth", m.cfg.UseToken)
	m.device = client

	return client, nil
}

// InstalledPackage queries the info endpoint and returns the current snapshot.
// A nil result without error means the package is not installed. The state is
// always re-fetched; nothing is cached between calls.
func (m *Manager) InstalledPackage(ctx context.Context) (*PackageInfo, error) {
	device, err := m.ensureDevice(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := device.Get(ctx, infoPath)
	if err != nil {
		if errors.Is(err, bigip.ErrNotFound) {
			return nil, nil
		}

		return nil, wrapError(KindHTTP, err, "query installed state on %s", m.cfg.Host)
	}

	info := &PackageInfo{Raw: raw}

	if v, ok := raw["version"].(string); ok {
		info.Version = v
	}

	if r, ok := raw["release"].(string); ok {
		info.Release = r
	}

	return info, nil
}

// IsInstalled reports whether AS3 is installed, optionally at an expected
// version. A version mismatch means "not installed at the requested version"
// and is not an error. When the endpoint confirms presence without a version
// field there is nothing to compare, so presence alone decides.
func (m *Manager) IsInstalled(ctx context.Context, expectedVersion string) (*PackageInfo, bool, error) {
	info, err := m.InstalledPackage(ctx)
	if err != nil {
		return nil, false, err
	}

	if info == nil {
		return nil, false, nil
	}

	if expectedVersion != "" && info.Version != "" && info.Version != expectedVersion {
		logger.DebugKV(ctx, "Installed version differs from expected",
			"installed", info.Version, "expected", expectedVersion)

		return nil, false, nil
	}

	return info, true, nil
}

// VersionToID resolves a human release name to its numeric identifier by
// exact string match. The full release list is re-fetched on every call.
func (m *Manager) VersionToID(ctx context.Context, name string) (int64, error) {
	releases, err := m.catalog.Releases(ctx)
	if err != nil {
		return 0, wrapError(KindHTTP, err, "list releases")
	}

	for _, release := range releases {
		logger.DebugKV(ctx, "Inspecting release", "name", release.Name, "id", release.ID)

		if release.Name == name {
			return release.ID, nil
		}
	}

	return 0, newError(KindResolution, "no release named %q", name)
}

// CheckMinimumVersion reports whether the installed version satisfies the
// required minimum, comparing semantic versions rather than strings.
func CheckMinimumVersion(installed, minimum string) (bool, error) {
	installedVersion, err := goversion.NewVersion(installed)
	if err != nil {
		return false, wrapError(KindVerification, err, "parse installed version %q", installed)
	}

	minimumVersion, err := goversion.NewVersion(minimum)
	if err != nil {
		return false, wrapError(KindVerification, err, "parse minimum version %q", minimum)
	}

	return installedVersion.GreaterThanOrEqual(minimumVersion), nil
}

// waitForState polls the installed state until check approves it, the
// attempts are exhausted, or the context is cancelled. Exhaustion yields a
// KindPending failure built by pending, never a generic verification error:
// the asynchronous task may still be running.
func (m *Manager) waitForState(
	ctx context.Context,
	check func(info *PackageInfo, installed bool) bool,
	pending func(attempts int) *Error,
) error {
	for attempt := 1; attempt <= m.cfg.PollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.cfg.PollInterval):
		}

		info, err := m.InstalledPackage(ctx)
		if err != nil {
			logger.WarnKV(ctx, "State query failed while polling",
				"attempt", attempt, "error", err)

			continue
		}

		if check(info, info != nil) {
			return nil
		}

		logger.InfoKV(ctx, "State not settled yet",
			"attempt", attempt, "of", m.cfg.PollAttempts)
	}

	return pending(m.cfg.PollAttempts)
}

// recordHistory appends an operation record, logging instead of failing:
// history is bookkeeping, not part of the workflow contract.
func (m *Manager) recordHistory(ctx context.Context, record history.Record) {
	if m.history == nil {
		return
	}

	record.Time = time.Now()
	record.Host = m.cfg.Host

	if err := m.history.Append(ctx, record); err != nil {
		logger.WarnKV(ctx, "Unable to record operation history", "error", err)
	}
}
