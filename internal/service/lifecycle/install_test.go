package lifecycle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/f5devkit/as3ctl/internal/github"
	"github.com/f5devkit/as3ctl/internal/repository/history"
)

// writePackageFile drops a placeholder package into the manager's download directory.
func writePackageFile(t *testing.T, manager *Manager, name string) string {
	t.Helper()

	path := filepath.Join(manager.cfg.DownloadDir, name)
	require.NoError(t, os.WriteFile(path, []byte("placeholder"), 0o600))

	return path
}

// TestInstall_Succeeds walks the whole workflow with a local file:
// prerequisite command, upload, 202 task, and verified installed state.
func TestInstall_Succeeds(t *testing.T) {
	t.Parallel()

	device := &fakeDevice{
		infoQueue: []map[string]any{{"version": "3.16.0", "release": "6"}},
	}
	manager := testManager(t, device, &fakeCatalog{})
	path := writePackageFile(t, manager, "f5-appsvcs-3.16.0.rpm")

	err := manager.Install(context.Background(), InstallOptions{Filename: path})
	require.NoError(t, err)

	require.Equal(t, []string{enableCommand}, device.commands)
	require.Equal(t, []string{path}, device.uploaded)
	require.Len(t, device.createdBodies, 1)
	require.Equal(t, "INSTALL", device.createdBodies[0]["operation"])
	require.Equal(t, remoteDownloadDir+"f5-appsvcs-3.16.0.rpm", device.createdBodies[0]["packageFilePath"])

	// The run marker is released.
	_, err = os.Stat(manager.markerPath())
	require.ErrorIs(t, err, os.ErrNotExist)

	// A history record was appended.
	records, err := history.NewFileRepository(manager.cfg.HistoryFile).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, history.OperationInstall, records[0].Operation)
	require.True(t, records[0].Succeeded)
}

// TestInstall_FailsFastWhenFileMissing never uploads or submits a task for an
// artifact that is not on disk.
func TestInstall_FailsFastWhenFileMissing(t *testing.T) {
	t.Parallel()

	device := &fakeDevice{}
	manager := testManager(t, device, &fakeCatalog{})

	err := manager.Install(context.Background(), InstallOptions{
		Filename: filepath.Join(manager.cfg.DownloadDir, "nope.rpm"),
	})
	require.Error(t, err)
	require.Equal(t, KindResolution, KindOf(err))
	require.Empty(t, device.uploaded)
	require.Empty(t, device.createdBodies)
}

// TestInstall_TaskRejected treats any status but 202 as a submission failure.
func TestInstall_TaskRejected(t *testing.T) {
	t.Parallel()

	device := &fakeDevice{createStatus: 200}
	manager := testManager(t, device, &fakeCatalog{})
	path := writePackageFile(t, manager, "f5-appsvcs-3.16.0.rpm")

	err := manager.Install(context.Background(), InstallOptions{Filename: path})
	require.Error(t, err)
	require.Equal(t, KindTaskSubmission, KindOf(err))
}

// TestInstall_UploadPolicy verifies strict aborts and lenient proceeds.
func TestInstall_UploadPolicy(t *testing.T) {
	t.Parallel()

	// Strict: abort before task submission.
	device := &fakeDevice{uploadErr: errors.New("connection reset")}
	manager := testManager(t, device, &fakeCatalog{})
	manager.cfg.StrictUpload = true
	path := writePackageFile(t, manager, "f5-appsvcs-3.16.0.rpm")

	err := manager.Install(context.Background(), InstallOptions{Filename: path})
	require.Error(t, err)
	require.Equal(t, KindUpload, KindOf(err))
	require.Empty(t, device.createdBodies)

	// Lenient: the workflow continues and verification decides.
	device = &fakeDevice{
		uploadErr: errors.New("connection reset"),
		infoQueue: []map[string]any{{"version": "3.16.0"}},
	}
	manager = testManager(t, device, &fakeCatalog{})
	path = writePackageFile(t, manager, "f5-appsvcs-3.16.0.rpm")

	err = manager.Install(context.Background(), InstallOptions{Filename: path})
	require.NoError(t, err)
	require.Len(t, device.createdBodies, 1)
}

// TestInstall_Pending reports a pending outcome, not a verified failure,
// when polling ends with the package still absent.
func TestInstall_Pending(t *testing.T) {
	t.Parallel()

	device := &fakeDevice{infoQueue: []map[string]any{nil}}
	manager := testManager(t, device, &fakeCatalog{})
	path := writePackageFile(t, manager, "f5-appsvcs-3.16.0.rpm")

	err := manager.Install(context.Background(), InstallOptions{Filename: path})
	require.Error(t, err)
	require.Equal(t, KindPending, KindOf(err))

	// The failed attempt still lands in the history.
	records, loadErr := history.NewFileRepository(manager.cfg.HistoryFile).Load(context.Background())
	require.NoError(t, loadErr)
	require.Len(t, records, 1)
	require.False(t, records[0].Succeeded)
}

// TestInstall_RefusesConcurrentRun blocks while a fresh run marker exists.
func TestInstall_RefusesConcurrentRun(t *testing.T) {
	t.Parallel()

	device := &fakeDevice{}
	manager := testManager(t, device, &fakeCatalog{})

	require.NoError(t, os.WriteFile(manager.markerPath(), nil, 0o600))

	err := manager.Install(context.Background(), InstallOptions{Filename: "whatever.rpm"})
	require.ErrorIs(t, err, errAlreadyRunning)
	require.Empty(t, device.commands)
}

// TestInstall_ResolvesVersionThroughCatalog exercises the version-name path:
// name to id, download, then the full device workflow.
func TestInstall_ResolvesVersionThroughCatalog(t *testing.T) {
	t.Parallel()

	release := &github.Release{
		ID:     111,
		Name:   "v3.16.0",
		Body:   "notes",
		Assets: []github.Asset{{ID: 9, Name: "f5-appsvcs-3.16.0.rpm"}},
	}
	catalog := &fakeCatalog{
		releases:  []github.Release{{ID: 111, Name: "v3.16.0"}},
		byID:      map[int64]*github.Release{111: release},
		assetData: map[int64][]byte{9: []byte("rpm-bytes")},
	}
	device := &fakeDevice{
		infoQueue: []map[string]any{{"version": "3.16.0", "release": "6"}},
	}
	manager := testManager(t, device, catalog)

	err := manager.Install(context.Background(), InstallOptions{Version: "v3.16.0"})
	require.NoError(t, err)
	require.Len(t, device.uploaded, 1)
	require.Equal(t, "f5-appsvcs-3.16.0.rpm", filepath.Base(device.uploaded[0]))
}
